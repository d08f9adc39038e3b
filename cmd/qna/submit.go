package qna

import (
	"fmt"

	"github.com/spf13/cobra"
)

var submitCmd = &cobra.Command{
	Use:   "submit [question]",
	Short: "Submit a question without waiting and print the task id",
	RunE:  runSubmit,
}

var submitJSON bool

func init() {
	submitCmd.Flags().BoolVar(&submitJSON, "json", false, "print the submission as JSON")
}

func runSubmit(cmd *cobra.Command, args []string) error {
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

	sess, err := a.orch.Submit(ctx, prompt)
	if err != nil {
		return err
	}

	if submitJSON {
		return writeJSON(cmd.OutOrStdout(), map[string]string{
			"taskId": sess.TaskID,
			"agent":  sess.AgentName,
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), sess.TaskID)
	fmt.Fprintf(cmd.ErrOrStderr(), "Submitted to %s. Run `qna poll %s --wait` to follow it.\n", sess.AgentName, sess.TaskID)
	return nil
}
