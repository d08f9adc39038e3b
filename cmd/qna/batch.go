package qna

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shhayash-work/copilot-qna/pkg/a2a"
	"github.com/shhayash-work/copilot-qna/pkg/task"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Ask every question in a file, one per line",
	Long: "Batch runs one independent session per question, several at a time. Blank lines and lines " +
		"starting with # are skipped. Results are printed in file order.",
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

var (
	batchConcurrency int
	batchStream      bool
	batchJSON        bool
)

func init() {
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 4, "questions in flight at once")
	batchCmd.Flags().BoolVar(&batchStream, "stream", false, "use one streaming call per question")
	batchCmd.Flags().BoolVar(&batchJSON, "json", false, "print one JSON object per line")
}

type batchResult struct {
	Index  int    `json:"index"`
	Prompt string `json:"prompt"`
	resultOutput
	err error
}

func runBatch(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening %s: %w", args[0], err)
	}
	prompts, err := readPrompts(f)
	f.Close()
	if err != nil {
		return err
	}
	if len(prompts) == 0 {
		return fmt.Errorf("%s contains no questions", args[0])
	}

	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	results := runPrompts(ctx, a.orch, prompts, batchConcurrency, batchStream)

	out := cmd.OutOrStdout()
	failed := 0
	for _, r := range results {
		if r.err != nil {
			failed++
		}
		if batchJSON {
			if err := writeJSONLine(out, r); err != nil {
				return err
			}
			continue
		}
		fmt.Fprintf(out, "## %d. %s\n", r.Index+1, r.Prompt)
		if r.err != nil {
			fmt.Fprintln(out, describeError(r.err))
			if r.Answer == nil {
				fmt.Fprintln(out)
				continue
			}
		}
		renderResult(out, r.TaskResult, false)
		fmt.Fprintln(out)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d questions failed", failed, len(results))
	}
	return nil
}

// runPrompts asks every prompt with at most limit sessions in flight. A
// failed question never stops the others; only ctx does.
func runPrompts(ctx context.Context, orch *task.Orchestrator, prompts []string, limit int, stream bool) []batchResult {
	results := make([]batchResult, len(prompts))
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, p := range prompts {
		i, p := i, p
		g.Go(func() error {
			var (
				result a2a.TaskResult
				agent  string
				err    error
			)
			if gctx.Err() != nil {
				err = gctx.Err()
			} else {
				result, agent, err = ask(gctx, orch, p, stream, nil, nil)
			}
			results[i] = batchResult{
				Index:        i,
				Prompt:       p,
				resultOutput: newResultOutput(result, agent, err),
				err:          err,
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func readPrompts(r io.Reader) ([]string, error) {
	var prompts []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		prompts = append(prompts, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading questions: %w", err)
	}
	return prompts, nil
}

func writeJSONLine(w io.Writer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", b)
	return err
}
