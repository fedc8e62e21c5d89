package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jbweber/ephemvm/internal/release"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch the configured installer ISO into the cache",
	Long: `Fetch the installer ISO selected by the release configuration.

The manifest is always refreshed. The ISO is downloaded only when it is
missing from the cache or its manifest checksum changed. The local ISO
path is printed on success.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := cfg.Release.Identity()
		if err != nil {
			return err
		}

		fetcher := release.NewFetcher(cfg.CacheRoot,
			release.WithMirror(cfg.Mirror),
			release.WithHTTPClient(release.NewSecureHTTPClient()),
			release.WithProgressOutput(os.Stderr),
		)

		isoPath, err := fetcher.Fetch(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("failed to fetch %s: %w", id, err)
		}

		fmt.Println(isoPath)
		return nil
	},
}
