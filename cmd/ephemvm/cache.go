package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jbweber/ephemvm/internal/output"
	"github.com/jbweber/ephemvm/internal/release"
)

var (
	outputFormat string
	noHeaders    bool
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the ISO cache",
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached installer ISOs",
	Long: `List every ISO under the cache root with its size, age and manifest
checksum.

Output formats:
  -o table  Human-readable table (default)
  -o yaml   YAML stream, one document per ISO
  -o json   JSON array`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Validate output format
		if err := output.ValidateFormat(outputFormat); err != nil {
			return err
		}

		artifacts, err := release.List(cfg.CacheRoot)
		if err != nil {
			return fmt.Errorf("failed to list cache: %w", err)
		}

		formatter, err := output.NewFormatter(output.Options{
			Format:    output.Format(outputFormat),
			NoHeaders: noHeaders,
		})
		if err != nil {
			return err
		}

		result, err := formatter.FormatArtifacts(artifacts)
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}

		fmt.Print(result)
		return nil
	},
}

func init() {
	cacheListCmd.Flags().StringVarP(&outputFormat, "output", "o", "table", "output format (table, yaml, json)")
	cacheListCmd.Flags().BoolVar(&noHeaders, "no-headers", false, "omit table headers")
	cacheCmd.AddCommand(cacheListCmd)
}
