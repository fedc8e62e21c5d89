package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jbweber/ephemvm/internal/config"
	"github.com/jbweber/ephemvm/internal/logger"
)

var (
	version = "dev"
	commit  = "unknown"
)

// Persistent flags
var (
	configPath string
	logLevel   string
	logFormat  string
)

// cfg is loaded once flags are parsed.
var cfg *config.Config

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ephemvm",
	Short: "ephemvm - ephemeral installer test VMs",
	Long: `ephemvm boots throwaway QEMU/KVM virtual machines to exercise the
Ubuntu installer.

It fetches the daily installer ISO into a checksum-verified local cache,
builds a cloud-init seed, runs an unattended install onto a fresh raw disk
and then boots the installed system with SSH forwarded to localhost.`,
	Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.LoadFromFile(configPath)
		if err != nil {
			return err
		}

		if cmd.Flags().Changed("log-level") {
			loaded.Log.Level = logLevel
		}
		if cmd.Flags().Changed("log-format") {
			loaded.Log.Format = logFormat
		}

		z, err := logger.New(loaded.Log.Level, loaded.Log.Format)
		if err != nil {
			return err
		}
		logger.Init(z)

		cfg = loaded
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Logger().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to ephemvm YAML configuration (defaults when empty)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "log format (console, json)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("ephemvm %s (commit: %s)\n", version, commit)
		return nil
	},
}
