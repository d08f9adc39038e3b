package qna

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/shhayash-work/copilot-qna/pkg/a2a"
	"github.com/shhayash-work/copilot-qna/pkg/audit"
	"github.com/shhayash-work/copilot-qna/pkg/config"
	"github.com/shhayash-work/copilot-qna/pkg/gateway"
	"github.com/shhayash-work/copilot-qna/pkg/task"
	"github.com/shhayash-work/copilot-qna/pkg/telemetry"
)

// app is what every agent-facing command shares: the loaded config, the
// logger and an orchestrator wired to logs, metrics and the audit trail.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	orch   *task.Orchestrator
	audit  *audit.Logger

	stopTracer  func(context.Context) error
	stopMetrics context.CancelFunc
}

func newApp(ctx context.Context) (*app, error) {
	return newAppLogging(ctx, os.Stderr)
}

// newAppLogging is newApp with the log output chosen by the caller.
func newAppLogging(ctx context.Context, logOut io.Writer) (*app, error) {
	cfg, err := config.Load(configPath())
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	level := cfg.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	logger := telemetry.SetupLogger(level, cfg.Log.Format, logOut)

	stopTracer, err := telemetry.InitTracer(ctx, telemetry.TracerConfig{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: "qna",
		Version:     version,
	})
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, stopTracer: stopTracer}

	observers := []task.Observer{task.LogObserver{Logger: logger}, task.MetricsObserver{}}
	if cfg.Audit.Enabled {
		if err := config.EnsureDataDir(); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		a.audit, err = audit.Open(cfg.Audit.DSN)
		if err != nil {
			return nil, err
		}
		observers = append(observers, a.audit)
	}

	timeout, err := cfg.HTTPTimeout()
	if err != nil {
		return nil, err
	}
	client := a2a.NewClient(a2a.ClientConfig{
		HTTPClient: &http.Client{Timeout: timeout},
		Logger:     logger,
	})

	a.orch = task.New(task.OrchestratorConfig{
		Client:   client,
		Settings: task.CurrentSettings,
		Observer: task.MultiObserver(observers...),
		Logger:   logger,
	})

	addr := metricsAddr
	if addr == "" {
		addr = cfg.Metrics.Addr
	}
	if addr != "" {
		mctx, cancel := context.WithCancel(telemetry.WithLogger(ctx, logger))
		a.stopMetrics = cancel
		g := gateway.New(gateway.Config{Addr: addr, Logger: logger})
		go func() {
			if err := g.Start(mctx); err != nil {
				logger.Error("metrics server failed", slog.String("err", err.Error()))
			}
		}()
	}

	return a, nil
}

func (a *app) Close() {
	if a.stopMetrics != nil {
		a.stopMetrics()
	}
	if a.audit != nil {
		_ = a.audit.Close()
	}
	if a.stopTracer != nil {
		_ = a.stopTracer(context.Background())
	}
}

// signalContext is canceled on Ctrl-C or SIGTERM, which stops any wait in
// progress without contacting the agent.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
