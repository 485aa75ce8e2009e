// Package cli defines the citekeep command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/citekeep/citekeep/internal/config"
	"github.com/citekeep/citekeep/internal/infrastructure/monitoring/logging"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// RootOptions holds the global flags shared by every subcommand.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
}

// NewRootCommand assembles the root command with all subcommands attached.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "citekeep",
		Short:   "citekeep anchors extracted facts to source evidence and deduplicates them",
		Long:    "citekeep manages evidence-anchored facts: it locates quoted evidence\ninside captured source documents, records character-offset anchors, and\ncollapses near-duplicate facts under a canonical representative.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),

		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to config file (default: environment only)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "override configured log level")

	cmd.AddCommand(
		newServeCommand(opts),
		newMigrateCommand(opts),
		newDedupCommand(opts),
		newAnchorCommand(),
	)
	return cmd
}

// loadConfig resolves configuration for a subcommand, honoring the global
// flag overrides.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if opts.ConfigPath != "" {
		cfg, err = config.Load(opts.ConfigPath)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		return nil, err
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}
	return cfg, nil
}

// newLogger builds the process logger from config.
func newLogger(cfg *config.Config) (logging.Logger, error) {
	out := cfg.Log.Output
	if out == "" {
		out = "stdout"
	}
	return logging.NewLogger(logging.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		OutputPaths: []string{out},
	})
}

// Execute runs the command tree and exits non-zero on error.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
