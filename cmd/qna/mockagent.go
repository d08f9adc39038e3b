package qna

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/shhayash-work/copilot-qna/pkg/a2a"
	"github.com/shhayash-work/copilot-qna/pkg/a2a/agenttest"
	"github.com/shhayash-work/copilot-qna/pkg/gateway"
	"github.com/shhayash-work/copilot-qna/pkg/telemetry"
	"github.com/spf13/cobra"
)

var mockAgentCmd = &cobra.Command{
	Use:   "mock-agent",
	Short: "Run a local echo agent for trying qna without a real agent",
	RunE:  runMockAgent,
}

var (
	mockAddr          string
	mockToken         string
	mockCompleteAfter int
	mockFinalState    string
)

func init() {
	mockAgentCmd.Flags().StringVar(&mockAddr, "addr", "127.0.0.1:5000", "listen address")
	mockAgentCmd.Flags().StringVar(&mockToken, "token", "", "require this tunnel token")
	mockAgentCmd.Flags().IntVar(&mockCompleteAfter, "complete-after", 3, "polls before a task finishes (0 = never)")
	mockAgentCmd.Flags().StringVar(&mockFinalState, "final-state", "completed", "state a task finishes in")
}

func runMockAgent(cmd *cobra.Command, args []string) error {
	state := a2a.TaskState(mockFinalState)
	if !state.Terminal() {
		return fmt.Errorf("--final-state must be one of completed, failed, canceled, rejected; got %q", mockFinalState)
	}

	level := logLevel
	if level == "" {
		level = "info"
	}
	logger := telemetry.SetupLogger(level, "text", os.Stderr)

	agent := agenttest.New()
	agent.Token = mockToken
	agent.CompleteAfter = mockCompleteAfter
	agent.FinalState = state

	ctx, cancel := signalContext()
	defer cancel()

	logger.Info("mock agent starting",
		slog.String("addr", mockAddr),
		slog.Int("complete_after", mockCompleteAfter),
		slog.String("final_state", mockFinalState),
	)

	g := gateway.New(gateway.Config{Addr: mockAddr, Logger: logger, Handler: agent})
	return g.Start(telemetry.WithLogger(ctx, logger))
}
