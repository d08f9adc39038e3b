package qna

import (
	"fmt"

	"github.com/shhayash-work/copilot-qna/pkg/task"
	"github.com/spf13/cobra"
)

var pollCmd = &cobra.Command{
	Use:   "poll <task-id>",
	Short: "Check on a submitted task, once or until it finishes",
	Args:  cobra.ExactArgs(1),
	RunE:  runPoll,
}

var (
	pollWait         bool
	pollJSON         bool
	pollShowThinking bool
)

func init() {
	pollCmd.Flags().BoolVar(&pollWait, "wait", false, "keep polling until the task finishes or the poll budget runs out")
	pollCmd.Flags().BoolVar(&pollJSON, "json", false, "print the result as JSON")
	pollCmd.Flags().BoolVar(&pollShowThinking, "show-thinking", false, "print the agent's thinking trace")
}

func runPoll(cmd *cobra.Command, args []string) error {
	taskID := args[0]

	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()

	if !pollWait {
		res, err := a.orch.PollTask(ctx, taskID)
		if pollJSON {
			if werr := writeJSON(out, newResultOutput(res.Result, "", err)); werr != nil {
				return werr
			}
			return err
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "task %s: %s\n", taskID, res.State)
		renderResult(out, res.Result, pollShowThinking)
		return nil
	}

	s, err := task.CurrentSettings()
	if err != nil {
		return err
	}
	sess := task.NewSession(taskID, s)

	var printer *thinkingPrinter
	if pollShowThinking && !pollJSON {
		printer = &thinkingPrinter{w: cmd.ErrOrStderr()}
	}
	result, err := a.orch.Wait(ctx, sess, func(r task.PollResult) {
		if printer != nil {
			printer.update(r.Result.Thinking)
		}
	})

	if pollJSON {
		if werr := writeJSON(out, newResultOutput(result, "", err)); werr != nil {
			return werr
		}
		return err
	}
	if err != nil {
		return err
	}
	renderResult(out, result, false)
	return nil
}
