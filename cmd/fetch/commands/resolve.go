package commands

import (
	"github.com/spf13/cobra"

	"fuelprice/internal/fuel"
	"fuelprice/internal/resolve"
)

var (
	resolveCity     string
	resolveLon      float64
	resolveLat      float64
	resolveFuel     string
	resolveDistance float64
)

func init() {
	f := resolveCmd.Flags()
	f.StringVar(&resolveCity, "city", "", "City name; takes precedence over coordinates.")
	f.Float64Var(&resolveLon, "lon", 0, "Destination longitude.")
	f.Float64Var(&resolveLat, "lat", 0, "Destination latitude.")
	f.StringVar(&resolveFuel, "fuel", string(fuel.BenzinaRegular), "Fuel code.")
	f.Float64Var(&resolveDistance, "distance", 0, "Trip distance in km.")
	rootCmd.AddCommand(resolveCmd)
}

var resolveCmd = &cobra.Command{
	Use:   "resolve [--city <city> | --lon <lon> --lat <lat>] [--fuel <code>] [--distance <km>]",
	Short: "Resolves the price used for a trip.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		q := resolve.Query{City: resolveCity, Code: fuel.Code(resolveFuel), DistanceKM: resolveDistance}
		if cmd.Flags().Changed("lon") && cmd.Flags().Changed("lat") {
			q.Coordinates = []float64{resolveLon, resolveLat}
		}
		res, err := application.Resolver.Resolve(cmd.Context(), q)
		if err != nil {
			return err
		}
		return printJSON(cmd, res)
	},
}
