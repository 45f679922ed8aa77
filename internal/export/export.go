// Package export writes the price aggregate as a spreadsheet.
package export

import (
	"fmt"
	"io"
	"sort"

	"github.com/xuri/excelize/v2"

	"fuelprice/internal/fuel"
)

const (
	PricesSheet   = "Prices"
	AveragesSheet = "Averages"
)

// WriteXLSX writes quotes to the Prices sheet and averages, ordered by
// fuel kind, to the Averages sheet.
func WriteXLSX(w io.Writer, quotes []fuel.Quote, averages map[fuel.Kind]float64) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", PricesSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := setRow(f, PricesSheet, 1, "City", "Fuel", "Price", "Updated"); err != nil {
		return err
	}
	for i, q := range quotes {
		if err := setRow(f, PricesSheet, i+2, q.City, string(q.Fuel), q.Price, q.ObservedAt.UTC().Format("2006-01-02 15:04:05")); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(AveragesSheet); err != nil {
		return fmt.Errorf("add sheet: %w", err)
	}
	if err := setRow(f, AveragesSheet, 1, "Fuel", "Average"); err != nil {
		return err
	}
	kinds := make([]fuel.Kind, 0, len(averages))
	for k := range averages {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	for i, k := range kinds {
		if err := setRow(f, AveragesSheet, i+2, string(k), averages[k]); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values ...any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("%s row %d: %w", sheet, row, err)
	}
	return nil
}
