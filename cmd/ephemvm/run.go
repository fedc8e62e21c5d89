package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jbweber/ephemvm/internal/output"
	"github.com/jbweber/ephemvm/internal/session"
	"github.com/jbweber/ephemvm/internal/status"
)

var runOutputFormat string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Install and boot an ephemeral VM",
	Long: `Run a full ephemeral session.

This will:
- Build a cloud-init seed with an autoinstall section
- Allocate a sparse raw root disk
- Fetch the installer ISO (re-downloaded only when its manifest changed)
- Boot the installer with the configured kernel command line
- Boot the installed disk in the background

The final session status is printed when the command finishes.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := output.ValidateFormat(runOutputFormat); err != nil {
			return err
		}

		formatter, err := output.NewFormatter(output.Options{Format: output.Format(runOutputFormat)})
		if err != nil {
			return err
		}

		tracker, runErr := session.Run(cmd.Context(), cfg)
		if tracker != nil {
			result, err := formatter.FormatStatus(tracker)
			if err != nil {
				return fmt.Errorf("failed to format output: %w", err)
			}
			fmt.Print(result)
		}
		if runErr != nil {
			return fmt.Errorf("session failed: %w", runErr)
		}
		if !status.IsTerminal(tracker.Phase) {
			return fmt.Errorf("session stopped in phase %s", tracker.Phase)
		}

		return nil
	},
}

func init() {
	runCmd.Flags().StringVarP(&runOutputFormat, "output", "o", "table", "status output format (table, yaml, json)")
}
