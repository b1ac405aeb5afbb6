// Package main is the entry point for the podrun CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/isdmx/podrun/config"
	"github.com/isdmx/podrun/logger"
)

// Global flags.
var (
	configFile string
	verbose    bool
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "podrun",
		Short: "Run untrusted code snippets in podman containers",
		Long: `podrun executes a code snippet with node, deno, sh, bash or pwsh inside a
podman container with CPU and memory limits, no network access and a
read-only root filesystem, and prints what the snippet wrote.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (default ./config.yaml or ./config/config.yaml)")
	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable debug logging on stderr")

	root.AddCommand(newRunCmd())
	root.AddCommand(newRuntimesCmd())

	return root
}

// loadEnv reads the configuration and builds a logger for a single command
// that writes to the command's stderr.
func loadEnv(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, err
	}

	level := "warn"
	if verbose {
		level = "debug"
	}
	log, err := logger.New(cfg.Logging.Mode, level,
		logger.WithOutput(zapcore.AddSync(cmd.ErrOrStderr())),
		logger.WithFields(zap.String("command", cmd.Name())))
	if err != nil {
		return nil, nil, err
	}

	return cfg, log, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
