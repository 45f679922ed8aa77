package commands_test

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"fuelprice/cmd/fetch/commands"
	"fuelprice/internal/export"
	"fuelprice/internal/fuel"
	"fuelprice/internal/resolve"
	"fuelprice/internal/store"
)

// seeded points the CLI at a sqlite file holding two prices.
func seeded(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	dsn := filepath.Join(dir, "cli.db")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_DSN", dsn)
	t.Setenv("LOG_LEVEL", "error")

	s, err := store.Open(t.Context(), "sqlite", dsn)
	require.NoError(t, err)
	at := time.Now()
	require.NoError(t, s.Commit(t.Context(), store.Batch{
		Total: 2,
		Quotes: []fuel.Quote{
			{City: "Cluj", Fuel: fuel.KindBenzinaStandard, Price: 7.1, ObservedAt: at},
			{City: "Gorj", Fuel: fuel.KindBenzinaStandard, Price: 7.3, ObservedAt: at},
		},
	}, at))
	require.NoError(t, s.Close())
}

func TestAverages(t *testing.T) {
	// Arrange
	seeded(t)
	var out bytes.Buffer

	// Act
	err := commands.Execute(t.Context(), []string{"averages"}, &out)

	// Assert
	require.NoError(t, err)
	var got map[string]float64
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	require.InDelta(t, 7.2, got["Benzina Standard"], 1e-9)
}

func TestResolve_NearTripUsesStore(t *testing.T) {
	// Arrange
	seeded(t)
	var out bytes.Buffer

	// Act
	err := commands.Execute(t.Context(), []string{"resolve", "--city", "gorj", "--fuel", "Benzina_Regular", "--distance", "50"}, &out)

	// Assert
	require.NoError(t, err)
	var got resolve.Resolution
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	require.Equal(t, 7.3, got.Price)
	require.Equal(t, "DB-Gorj", got.Provenance)
	require.Equal(t, resolve.BranchDatabase, got.Branch)
}

func TestExport(t *testing.T) {
	// Arrange
	seeded(t)
	path := filepath.Join(t.TempDir(), "out.xlsx")
	var out bytes.Buffer

	// Act
	err := commands.Execute(t.Context(), []string{"export", "--out", path}, &out)

	// Assert
	require.NoError(t, err)
	require.Contains(t, out.String(), "wrote 2 prices")
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(export.PricesSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
}

func TestProbe_UnknownFuel(t *testing.T) {
	seeded(t)

	err := commands.Execute(t.Context(), []string{"probe", "--fuel", "Kerosene"}, &bytes.Buffer{})

	require.ErrorIs(t, err, fuel.ErrUnknownFuelCode)
}
