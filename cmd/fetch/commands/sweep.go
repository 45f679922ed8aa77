package commands

import (
	"errors"

	"github.com/spf13/cobra"

	"fuelprice/internal/fuel"
	"fuelprice/internal/store"
)

var (
	probeCity string
	probeFuel string
)

func init() {
	probeCmd.Flags().StringVar(&probeCity, "city", fuel.DefaultAnchor().Name, "City to probe.")
	probeCmd.Flags().StringVar(&probeFuel, "fuel", string(fuel.BenzinaRegular), "Fuel code to probe.")
	rootCmd.AddCommand(sweepCmd, probeCmd)
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Runs one acquisition sweep and commits it when coverage allows.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rep, err := application.Orchestrator.Run(cmd.Context())
		var cov *store.InsufficientCoverageError
		if err != nil && !errors.As(err, &cov) {
			return err
		}
		if perr := printJSON(cmd, rep); perr != nil {
			return perr
		}
		return err
	},
}

var probeCmd = &cobra.Command{
	Use:   "probe [--city <city>] [--fuel <code>]",
	Short: "Fetches a single pair without touching the store.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		code, err := fuel.ParseCode(probeFuel)
		if err != nil {
			return err
		}
		p, err := application.Orchestrator.Probe(cmd.Context(), probeCity, code)
		if err != nil {
			return err
		}
		return printJSON(cmd, p)
	},
}
