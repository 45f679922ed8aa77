package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fuelprice/internal/export"
)

var exportOut string

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "prices.xlsx", "Output workbook path.")
	rootCmd.AddCommand(averagesCmd, exportCmd)
}

var averagesCmd = &cobra.Command{
	Use:   "averages",
	Short: "Prints the per-fuel averages of the stored set.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		avgs, err := application.Store.Averages(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd, avgs)
	},
}

var exportCmd = &cobra.Command{
	Use:   "export [--out <path/to/prices.xlsx>]",
	Short: "Writes the stored prices and averages to an XLSX workbook.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		quotes, err := application.Store.All(ctx)
		if err != nil {
			return err
		}
		avgs, err := application.Store.Averages(ctx)
		if err != nil {
			return err
		}

		f, err := os.Create(exportOut)
		if err != nil {
			return fmt.Errorf("create %s: %w", exportOut, err)
		}
		if err := export.WriteXLSX(f, quotes, avgs); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d prices to %s\n", len(quotes), exportOut)
		return nil
	},
}
