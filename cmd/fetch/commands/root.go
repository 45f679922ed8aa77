package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"fuelprice/internal/app"
	"fuelprice/internal/config"
	"fuelprice/internal/logging"
)

var configPath string

// application is built before every subcommand and closed after Execute.
var application *app.App

var rootCmd = &cobra.Command{
	Use:           "fetch",
	Short:         "fetch runs fuel price sweeps, probes and lookups against the local store.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		log := logging.New(cfg.Log.Level, cfg.Log.Format)
		log.SetOutput(cmd.ErrOrStderr())
		a, err := app.Build(cmd.Context(), cfg, log)
		if err != nil {
			return fmt.Errorf("build: %w", err)
		}
		application = a
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("CONFIG_FILE"), "Path to a JSON or YAML config file.")
}

// Execute runs the CLI with args, writing results to out.
func Execute(ctx context.Context, args []string, out io.Writer) error {
	rootCmd.SetArgs(args)
	rootCmd.SetOut(out)
	defer func() {
		if application != nil {
			_ = application.Close()
			application = nil
		}
	}()
	return rootCmd.ExecuteContext(ctx)
}

// ExecuteContext runs the CLI with the process arguments and returns the
// exit code.
func ExecuteContext(ctx context.Context) int {
	if err := Execute(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
