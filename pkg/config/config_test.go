package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shhayash-work/copilot-qna/pkg/a2a"
)

func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvAgentURL, "")
	t.Setenv(EnvLegacyAgentURL, "")
	t.Setenv(EnvToken, "")
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Poll.MaxPolls != 240 {
		t.Errorf("MaxPolls = %d, want 240", cfg.Poll.MaxPolls)
	}
	d, err := cfg.PollInterval()
	if err != nil {
		t.Fatalf("PollInterval: %v", err)
	}
	if d != 500*time.Millisecond {
		t.Errorf("PollInterval = %v, want 500ms", d)
	}
	if cfg.Agent.Transport != "jsonrpc" {
		t.Errorf("Transport = %q, want %q", cfg.Agent.Transport, "jsonrpc")
	}
}

func TestLoadNonExistent(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Poll.MaxPolls != 240 {
		t.Errorf("MaxPolls = %d, want 240", cfg.Poll.MaxPolls)
	}
}

func TestLoadValid(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "qna.toml")

	content := `
[agent]
url = "https://xxx-5000.asse.devtunnels.ms/"
token = "secret"
transport = "rest"

[poll]
interval = "1s"
max_polls = 10
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Agent.URL != "https://xxx-5000.asse.devtunnels.ms" {
		t.Errorf("URL = %q, want trailing slash trimmed", cfg.Agent.URL)
	}
	if cfg.Agent.Token != "secret" {
		t.Errorf("Token = %q, want %q", cfg.Agent.Token, "secret")
	}
	if cfg.Poll.MaxPolls != 10 {
		t.Errorf("MaxPolls = %d, want 10", cfg.Poll.MaxPolls)
	}
	ep := cfg.Endpoint()
	if ep.Transport != a2a.TransportREST {
		t.Errorf("Transport = %q, want %q", ep.Transport, a2a.TransportREST)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadInvalid(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "bad.toml")
	os.WriteFile(path, []byte("not [valid toml"), 0644)

	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid TOML")
	}
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvLegacyAgentURL, "http://tunnel.example/")
	t.Setenv(EnvToken, "tok")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Agent.URL != "http://tunnel.example" {
		t.Errorf("URL = %q, want %q", cfg.Agent.URL, "http://tunnel.example")
	}
	if cfg.Agent.Token != "tok" {
		t.Errorf("Token = %q, want %q", cfg.Agent.Token, "tok")
	}

	t.Setenv(EnvAgentURL, "https://primary.example")
	cfg, _ = Load(filepath.Join(t.TempDir(), "missing.toml"))
	if cfg.Agent.URL != "https://primary.example" {
		t.Errorf("URL = %q, want A2A_AGENT_URL to win", cfg.Agent.URL)
	}
}

func TestDotEnv(t *testing.T) {
	clearEnv(t)
	// godotenv never overrides a variable that is present, even if empty.
	os.Unsetenv(EnvAgentURL)
	if err := os.WriteFile(".env", []byte("A2A_AGENT_URL=http://from-dotenv:5000\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Agent.URL != "http://from-dotenv:5000" {
		t.Errorf("URL = %q, want value from .env", cfg.Agent.URL)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
		missing bool
	}{
		{"ok", func(c *Config) { c.Agent.URL = "http://localhost:5000" }, false, false},
		{"missing url", func(c *Config) {}, true, true},
		{"bad scheme", func(c *Config) { c.Agent.URL = "ftp://host" }, true, false},
		{"bad transport", func(c *Config) { c.Agent.URL = "http://h"; c.Agent.Transport = "grpc" }, true, false},
		{"bad interval", func(c *Config) { c.Agent.URL = "http://h"; c.Poll.Interval = "soon" }, true, false},
		{"zero polls", func(c *Config) { c.Agent.URL = "http://h"; c.Poll.MaxPolls = 0 }, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got := errors.Is(err, a2a.ErrConfigMissing); got != tt.missing {
				t.Errorf("errors.Is(err, ErrConfigMissing) = %v, want %v", got, tt.missing)
			}
		})
	}
}

func TestWatchReloads(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "qna.toml")
	if err := os.WriteFile(path, []byte("[agent]\nurl = \"http://one\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	before := Current()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan *Config, 8)
	onChange := func(c *Config) {
		select {
		case changed <- c:
		default:
		}
	}
	if err := Watch(ctx, path, onChange); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	if err := os.WriteFile(path, []byte("[agent]\nurl = \"http://two\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case c := <-changed:
			if c.Agent.URL != "http://two" {
				continue
			}
			if before.Agent.URL != "http://one" {
				t.Errorf("previous config mutated: URL = %q", before.Agent.URL)
			}
			if Current().Agent.URL != "http://two" {
				t.Errorf("Current().Agent.URL = %q, want %q", Current().Agent.URL, "http://two")
			}
			return
		case <-deadline:
			t.Fatal("timed out waiting for reload")
		}
	}
}
