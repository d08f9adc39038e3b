package qna

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/shhayash-work/copilot-qna/pkg/a2a"
	"github.com/shhayash-work/copilot-qna/pkg/config"
	"github.com/shhayash-work/copilot-qna/pkg/telemetry"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose the qna setup and the agent connection",
	RunE:  runDoctor,
}

type checkResult struct {
	name   string
	ok     bool
	detail string
}

func runDoctor(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "qna doctor v%s\n", version)
	fmt.Fprintf(out, "Platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(out, "Go: %s\n\n", runtime.Version())

	path := configPath()
	cfg, cfgCheck := checkConfig(path)

	checks := []checkResult{
		checkDataDir(),
		cfgCheck,
	}
	if cfg != nil {
		checks = append(checks,
			checkAgentURL(cfg),
			checkToken(cfg),
			checkAgentCard(cfg),
			checkAuditDB(cfg),
		)
	}

	return reportChecks(out, checks)
}

func reportChecks(out io.Writer, checks []checkResult) error {
	passed, failed := 0, 0
	for _, c := range checks {
		status := "✓"
		if !c.ok {
			status = "✗"
			failed++
		} else {
			passed++
		}
		fmt.Fprintf(out, "  %s %s: %s\n", status, c.name, c.detail)
	}

	fmt.Fprintf(out, "\n%d passed, %d failed\n", passed, failed)

	if failed > 0 {
		return fmt.Errorf("%d checks failed", failed)
	}
	return nil
}

func checkDataDir() checkResult {
	dir := config.DataDir()
	info, err := os.Stat(dir)
	if err != nil {
		return checkResult{"Data directory", false, fmt.Sprintf("%s does not exist", dir)}
	}
	if !info.IsDir() {
		return checkResult{"Data directory", false, fmt.Sprintf("%s is not a directory", dir)}
	}
	return checkResult{"Data directory", true, dir}
}

func checkConfig(path string) (*config.Config, checkResult) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, checkResult{"Config file", false, fmt.Sprintf("parse error: %s", err)}
	}
	if _, err := os.Stat(path); err != nil {
		return cfg, checkResult{"Config file", true, fmt.Sprintf("%s not found (using defaults and environment)", path)}
	}
	return cfg, checkResult{"Config file", true, path}
}

func checkAgentURL(cfg *config.Config) checkResult {
	if err := cfg.Validate(); err != nil {
		return checkResult{"Agent URL", false, describeError(err)}
	}
	return checkResult{"Agent URL", true, fmt.Sprintf("%s (%s)", cfg.Agent.URL, cfg.Agent.Transport)}
}

func checkToken(cfg *config.Config) checkResult {
	if cfg.Agent.Token == "" {
		return checkResult{"Tunnel token", true, fmt.Sprintf("not set (optional, %s)", cfg.Agent.TokenEnv)}
	}
	return checkResult{"Tunnel token", true, fmt.Sprintf("set (%d chars)", len(cfg.Agent.Token))}
}

func checkAgentCard(cfg *config.Config) checkResult {
	if cfg.Agent.URL == "" {
		return checkResult{"Agent card", false, "skipped, no agent URL"}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := a2a.NewClient(a2a.ClientConfig{Logger: telemetry.Discard()})
	card, err := client.FetchAgentCard(ctx, cfg.Agent.URL, cfg.Agent.Token)
	if err != nil {
		return checkResult{"Agent card", false, describeError(err)}
	}
	return checkResult{"Agent card", true, fmt.Sprintf("%s (streaming: %v)", card.Name, card.Capabilities.Streaming)}
}

func checkAuditDB(cfg *config.Config) checkResult {
	if !cfg.Audit.Enabled {
		return checkResult{"Audit trail", true, "disabled"}
	}
	info, err := os.Stat(cfg.Audit.DSN)
	if err != nil {
		return checkResult{"Audit trail", true, fmt.Sprintf("%s not found (will be created on first question)", cfg.Audit.DSN)}
	}
	return checkResult{"Audit trail", true, fmt.Sprintf("%s (%d KB)", cfg.Audit.DSN, info.Size()/1024)}
}
