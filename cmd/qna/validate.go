package qna

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the connection to the configured agent",
	RunE:  runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	card, err := a.orch.Validate(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	streaming := "no"
	if card.Capabilities.Streaming {
		streaming = "yes"
	}
	fmt.Fprintf(out, "Connected to %s\n", card.Name)
	if card.Description != "" {
		fmt.Fprintf(out, "  %s\n", card.Description)
	}
	fmt.Fprintf(out, "  url:       %s\n", card.URL)
	if card.Version != "" {
		fmt.Fprintf(out, "  version:   %s\n", card.Version)
	}
	fmt.Fprintf(out, "  streaming: %s\n", streaming)
	for _, s := range card.Skills {
		fmt.Fprintf(out, "  skill:     %s - %s\n", s.Name, s.Description)
	}
	return nil
}
