package qna

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/shhayash-work/copilot-qna/pkg/audit"
	"github.com/shhayash-work/copilot-qna/pkg/config"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View the audit trail of past questions",
	RunE:  runHistory,
}

var (
	historyEventType string
	historyTaskID    string
	historyAgent     string
	historyLimit     int
	historySince     string
)

func init() {
	historyCmd.Flags().StringVar(&historyEventType, "type", "", "filter by event type (task_submit, task_finished, ...)")
	historyCmd.Flags().StringVar(&historyTaskID, "task", "", "filter by task id")
	historyCmd.Flags().StringVar(&historyAgent, "agent", "", "filter by agent name")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 50, "maximum number of entries")
	historyCmd.Flags().StringVar(&historySince, "since", "", "show entries since (e.g. 2024-01-01)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if _, err := os.Stat(cfg.Audit.DSN); err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "No audit trail at %s. Set [audit].enabled = true to record one.\n", cfg.Audit.DSN)
		return nil
	}

	auditLog, err := audit.Open(cfg.Audit.DSN)
	if err != nil {
		return err
	}
	defer func() { _ = auditLog.Close() }()

	filter := audit.Filter{
		EventType: historyEventType,
		TaskID:    historyTaskID,
		AgentName: historyAgent,
		Limit:     historyLimit,
	}

	if historySince != "" {
		t, err := time.Parse("2006-01-02", historySince)
		if err != nil {
			return fmt.Errorf("invalid --since format (use YYYY-MM-DD): %w", err)
		}
		filter.Since = t
	}

	entries, err := auditLog.Query(context.Background(), filter)
	if err != nil {
		return fmt.Errorf("querying audit trail: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "No audit entries found.")
		return nil
	}

	for _, e := range entries {
		ts := e.Timestamp.Local().Format("2006-01-02 15:04:05")
		fmt.Fprintf(out, "[%s] %-17s task=%-36s agent=%-12s state=%-10s polls=%-3d %dms %s\n",
			ts, e.EventType, e.TaskID, e.AgentName, e.State, e.Attempts, e.LatencyMS, e.Detail,
		)
	}

	return nil
}
