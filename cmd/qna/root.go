package qna

import (
	"fmt"
	"os"

	"github.com/shhayash-work/copilot-qna/pkg/config"
	"github.com/spf13/cobra"
)

const version = "0.1.0"

var (
	cfgFile     string
	metricsAddr string
	logLevel    string
)

var rootCmd = &cobra.Command{
	Use:   "qna",
	Short: "qna - ask questions to a remote A2A agent",
	Long: "qna submits questions to an A2A agent, follows the task until it finishes and prints the answer " +
		"together with the agent's thinking trace.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, describeError(err))
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.qna/qna.toml)")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve /metrics and /healthz on this address while running")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(pollCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(mockAgentCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of qna",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "qna v%s\n", version)
	},
}

func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultConfigPath()
}
