package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/shhayash-work/copilot-qna/pkg/a2a"
)

type Config struct {
	Agent   AgentConfig   `toml:"agent"`
	Poll    PollConfig    `toml:"poll"`
	HTTP    HTTPConfig    `toml:"http"`
	Log     LogConfig     `toml:"log"`
	Tracing TracingConfig `toml:"tracing"`
	Metrics MetricsConfig `toml:"metrics"`
	Audit   AuditConfig   `toml:"audit"`
}

type AgentConfig struct {
	URL            string `toml:"url"`
	Token          string `toml:"token"`
	TokenEnv       string `toml:"token_env"`
	Transport      string `toml:"transport"`
	PromptTemplate string `toml:"prompt_template"`
}

type PollConfig struct {
	Interval string `toml:"interval"`
	MaxPolls int    `toml:"max_polls"`
}

type HTTPConfig struct {
	Timeout string `toml:"timeout"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type TracingConfig struct {
	Enabled  bool   `toml:"enabled"`
	Endpoint string `toml:"endpoint"`
}

type MetricsConfig struct {
	Addr string `toml:"addr"`
}

type AuditConfig struct {
	Enabled bool   `toml:"enabled"`
	DSN     string `toml:"dsn"`
}

const (
	EnvAgentURL       = "A2A_AGENT_URL"
	EnvLegacyAgentURL = "DEV_TUNNEL_URL"
	EnvToken          = "DEV_TUNNEL_TOKEN"

	DefaultPollInterval = 500 * time.Millisecond
	DefaultMaxPolls     = 240
)

// DefaultPromptTemplate wraps the user's question with answering guidelines
// before it is sent to the agent.
const DefaultPromptTemplate = `
[Question from the user]
{{.Prompt}}

[Answer guidelines]
- Unless the user asks otherwise:
    - Keep the answer concise and easy to follow.
    - Explain technical topics so that a beginner can understand them.
    - For questions about Jira, include the concrete steps to perform.
- When answering:
    - Ask the Slack agent for the latest information when needed.
`

func Default() *Config {
	return &Config{
		Agent: AgentConfig{
			TokenEnv:       EnvToken,
			Transport:      string(a2a.TransportJSONRPC),
			PromptTemplate: DefaultPromptTemplate,
		},
		Poll: PollConfig{
			Interval: DefaultPollInterval.String(),
			MaxPolls: DefaultMaxPolls,
		},
		HTTP: HTTPConfig{
			Timeout: "0s",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Audit: AuditConfig{
			DSN: filepath.Join(DataDir(), "audit.db"),
		},
	}
}

var (
	current *Config
	mu      sync.RWMutex
)

// Load reads the TOML file at path (a missing file yields the defaults),
// then applies .env and environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err == nil {
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	cfg.applyEnv()

	if cfg.Audit.DSN == "" {
		cfg.Audit.DSN = filepath.Join(DataDir(), "audit.db")
	}

	Set(cfg)
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvAgentURL); v != "" {
		c.Agent.URL = v
	} else if v := os.Getenv(EnvLegacyAgentURL); v != "" {
		c.Agent.URL = v
	}
	c.Agent.URL = strings.TrimSuffix(strings.TrimSpace(c.Agent.URL), "/")

	if c.Agent.TokenEnv != "" {
		if v := os.Getenv(c.Agent.TokenEnv); v != "" {
			c.Agent.Token = v
		}
	}
}

// Validate checks what a submission needs. A missing URL is reported as
// a2a.ErrConfigMissing.
func (c *Config) Validate() error {
	if c.Agent.URL == "" {
		return &a2a.Error{Kind: a2a.KindConfigMissing, Detail: "agent url is not configured"}
	}
	if !strings.HasPrefix(c.Agent.URL, "http://") && !strings.HasPrefix(c.Agent.URL, "https://") {
		return fmt.Errorf("config: agent url must start with http:// or https://, got %q", c.Agent.URL)
	}
	switch a2a.Transport(c.Agent.Transport) {
	case a2a.TransportJSONRPC, a2a.TransportREST:
	default:
		return fmt.Errorf("config: unknown transport %q", c.Agent.Transport)
	}
	if _, err := c.PollInterval(); err != nil {
		return err
	}
	if c.Poll.MaxPolls <= 0 {
		return fmt.Errorf("config: poll.max_polls must be positive, got %d", c.Poll.MaxPolls)
	}
	if _, err := c.HTTPTimeout(); err != nil {
		return err
	}
	return nil
}

func (c *Config) PollInterval() (time.Duration, error) {
	d, err := time.ParseDuration(c.Poll.Interval)
	if err != nil {
		return 0, fmt.Errorf("config: invalid poll.interval %q: %w", c.Poll.Interval, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("config: poll.interval must be positive, got %s", d)
	}
	return d, nil
}

func (c *Config) HTTPTimeout() (time.Duration, error) {
	if c.HTTP.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.HTTP.Timeout)
	if err != nil {
		return 0, fmt.Errorf("config: invalid http.timeout %q: %w", c.HTTP.Timeout, err)
	}
	return d, nil
}

// Endpoint is the connection part of the config, copied by value.
func (c *Config) Endpoint() a2a.Endpoint {
	return a2a.Endpoint{
		BaseURL:   c.Agent.URL,
		Token:     c.Agent.Token,
		Transport: a2a.Transport(c.Agent.Transport),
	}
}

func Set(cfg *Config) {
	mu.Lock()
	current = cfg
	mu.Unlock()
}

func Current() *Config {
	mu.RLock()
	defer mu.RUnlock()
	if current == nil {
		return Default()
	}
	return current
}

func DataDir() string {
	if dir := os.Getenv("QNA_DATA_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".qna"
	}
	return filepath.Join(home, ".qna")
}

func DefaultConfigPath() string {
	return filepath.Join(DataDir(), "qna.toml")
}

func EnsureDataDir() error {
	return os.MkdirAll(DataDir(), 0700)
}
