package main

import (
	"ai-test-agent/internal/bootstrap"
	"ai-test-agent/internal/script"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

var (
	flagAutoApprove bool
	flagMaxReplans  int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "testrunner [script-file]",
		Short: "Run a numbered test script in a browser, step by step",
		Long: "Plans every step of a numbered test script with an LLM, asks the reviewer to approve " +
			"each plan and executes it in a browser. Without a file the built-in demo script runs.",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			text := script.DefaultScript

			if len(args) == 1 {
				data, err := os.ReadFile(args[0])
				if err != nil {
					return fmt.Errorf("Не удалось прочитать файл '%s': %w", args[0], err)
				}

				text = string(data)
			}

			if cmd.Flags().Changed("auto-approve") {
				os.Setenv("REVIEW_AUTO_APPROVE", strconv.FormatBool(flagAutoApprove))
			}

			if cmd.Flags().Changed("max-replans") {
				os.Setenv("RUN_MAX_REPLANS", strconv.Itoa(flagMaxReplans))
			}

			app := bootstrap.NewApp(text)
			if err := app.Err(); err != nil {
				return fmt.Errorf("build application: %w", err)
			}

			app.Run()

			return nil
		},
	}

	rootCmd.Flags().BoolVar(&flagAutoApprove, "auto-approve", false, "Approve every plan and continue after failures (env: REVIEW_AUTO_APPROVE)")
	rootCmd.Flags().IntVar(&flagMaxReplans, "max-replans", 0, "Reject limit per step, 0 for unlimited (env: RUN_MAX_REPLANS)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
