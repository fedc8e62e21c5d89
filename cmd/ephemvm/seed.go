package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jbweber/ephemvm/internal/cloudinit"
	"github.com/jbweber/ephemvm/internal/shell"
)

var seedAutoinstall bool

var seedCmd = &cobra.Command{
	Use:   "seed <dir>",
	Short: "Build a cloud-init seed image",
	Long: `Write user-data and meta-data (plus vendor-data and network-config
when configured) into <dir> and compile them into my-seed.img.

The image is built with cloud-localds or in-process, per vmm.seed_method.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := args[0]
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}

		builder, err := cloudinit.NewBuilder(cfg.VMM.SeedMethod, shell.NewExecRunner())
		if err != nil {
			return err
		}

		seed, err := cloudinit.NewSeed(&cfg.CloudInit, seedAutoinstall)
		if err != nil {
			return err
		}

		imgPath, err := builder.Build(cmd.Context(), dir, seed)
		if err != nil {
			return err
		}

		fmt.Println(imgPath)
		return nil
	},
}

func init() {
	seedCmd.Flags().BoolVar(&seedAutoinstall, "autoinstall", true, "include the autoinstall section in user-data")
}
