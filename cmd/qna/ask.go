package qna

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/shhayash-work/copilot-qna/pkg/a2a"
	"github.com/shhayash-work/copilot-qna/pkg/task"
	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask the agent a question and wait for the answer",
	Long: "Ask submits the question without blocking and polls the task until it finishes. " +
		"With --stream the answer is taken from a single streaming call instead. " +
		"The question is read from stdin when no argument (or \"-\") is given.",
	RunE: runAsk,
}

var (
	askStream       bool
	askJSON         bool
	askShowThinking bool
)

func init() {
	askCmd.Flags().BoolVar(&askStream, "stream", false, "use one streaming call instead of submit and poll")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the result as JSON")
	askCmd.Flags().BoolVar(&askShowThinking, "show-thinking", false, "print the agent's thinking trace")
}

func runAsk(cmd *cobra.Command, args []string) error {
	prompt, err := promptFromArgs(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	var printer *thinkingPrinter
	if askShowThinking && !askJSON {
		printer = &thinkingPrinter{w: cmd.ErrOrStderr()}
	}

	result, agent, err := ask(ctx, a.orch, prompt, askStream, cmd.ErrOrStderr(), printer)
	if askJSON {
		if werr := writeJSON(out, newResultOutput(result, agent, err)); werr != nil {
			return werr
		}
		return err
	}

	if err != nil && result.Answer == nil {
		return err
	}
	renderResult(out, result, false)
	return err
}

// ask runs one question with the chosen strategy. status, if set, receives
// progress notes; printer, if set, receives thinking items as they arrive.
func ask(ctx context.Context, orch *task.Orchestrator, prompt string, stream bool, status io.Writer, printer *thinkingPrinter) (a2a.TaskResult, string, error) {
	if stream {
		result, err := orch.SendSync(ctx, prompt)
		if printer != nil {
			printer.update(result.Thinking)
		}
		return result, "", err
	}

	sess, err := orch.Submit(ctx, prompt)
	if err != nil {
		return a2a.TaskResult{Thinking: []a2a.ThinkingItem{}}, "", err
	}
	if status != nil {
		fmt.Fprintf(status, "Submitted task %s to %s\n", sess.TaskID, sess.AgentName)
	}

	result, err := orch.Wait(ctx, sess, func(r task.PollResult) {
		if printer != nil {
			printer.update(r.Result.Thinking)
		}
	})
	return result, sess.AgentName, err
}

func promptFromArgs(stdin io.Reader, args []string) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}
	b, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("reading question from stdin: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}
