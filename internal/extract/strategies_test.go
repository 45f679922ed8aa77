package extract_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"fuelprice/internal/extract"
)

func TestStructured_PatternVariants(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"var rezultate":       `<script>var rezultate = JSON.parse('[[\"Socar\",1,2,\"a\",\"b\",\"7.11\"]]');</script>`,
		"bare assignment":     `<script>rezultate = JSON.parse('[[\"Socar\",1,2,\"a\",\"b\",\"7.11\"]]')</script>`,
		"json property":       `{"status":"ok","rezultate": [["Socar",1,2,"a","b","7.11"],["Mol",1,2,"a","b",7.5]],"count":2}`,
		"var data":            `<script>var data = JSON.parse('[[\"Socar\",1,2,\"a\",\"b\",\"7.11\"]]')</script>`,
		"var results literal": `<script>var results = [["Socar",1,2,"a","b",7.11]];</script>`,
	}
	for name, body := range cases {
		got := extract.Structured(body)
		require.NotEmptyf(t, got, "case %s", name)
		require.Equalf(t, "Socar", got[0].Source, "case %s", name)
		require.Equalf(t, "7.11", got[0].PriceText, "case %s", name)
	}
}

func TestStructured_NullSkipsToNextPattern(t *testing.T) {
	t.Parallel()

	body := `<script>var rezultate = JSON.parse('null');
var results = [["OMV",1,2,"a","b","7.20"]];</script>`
	got := extract.Structured(body)
	require.Equal(t, []extract.Candidate{{Source: "OMV", Address: "a", PriceText: "7.20"}}, got)
}

func TestStructured_BalancedLiteralStopsAtArrayEnd(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"trailing script":     "<script>var results = [[\"OMV\",1,2,\"a\",\"b\",\"7.20\"]];\nconsole.log(\"x\");</script>",
		"trailing properties": `{"rezultate": [["OMV",1,2,"a","b","7.20"]], "total": 1, "pagina": [1]}`,
		"nested brackets":     `<script>var results = [["OMV",1,2,"Str. [vechi] 3","b","7.20"]]; var x = [1];</script>`,
	}
	for name, body := range cases {
		got := extract.Structured(body)
		require.Lenf(t, got, 1, "case %s", name)
		require.Equalf(t, "OMV", got[0].Source, "case %s", name)
		require.Equalf(t, "7.20", got[0].PriceText, "case %s", name)
	}
}

func TestStructuredGroups_OnePerMatchingPattern(t *testing.T) {
	t.Parallel()

	body := `<script>var rezultate = JSON.parse('[[\"Petrom\",1,2,\"a\",\"b\",\"45.10\"]]');
var results = [["Mol",1,2,"Str. Lunga 2","b","7.30"]];</script>`

	got := extract.StructuredGroups(body)

	require.Equal(t, [][]extract.Candidate{
		{{Source: "Petrom", Address: "a", PriceText: "45.10"}},
		{{Source: "Mol", Address: "Str. Lunga 2", PriceText: "7.30"}},
	}, got)
}

func TestStructured_UnescapesAndSkipsMalformedRecords(t *testing.T) {
	t.Parallel()

	body := `<script>var rezultate = JSON.parse('[[\"PETROM\",1,2,\"Str. 1 Mai \/ colt\",\"L\'Oreal\",\"7,19\"],[\"OMV\",1,2],[\"Mol\",1,2,\"a\",\"b\",null],{\"retea\":\"rompetrol\",\"pret\":\"7.25\"},{\"network\":\"Gazprom\",\"price\":7.05}]');</script>`
	got := extract.Structured(body)
	require.Equal(t, []extract.Candidate{
		{Source: "Petrom", Address: "Str. 1 Mai / colt", PriceText: "7,19"},
		{Source: "Rompetrol", PriceText: "7.25"},
		{Source: "Gazprom", PriceText: "7.05"},
	}, got)
}

func TestStructured_NoArray(t *testing.T) {
	t.Parallel()

	require.Nil(t, extract.Structured("<html>nothing here</html>"))
	require.Nil(t, extract.Structured(`<script>var rezultate = JSON.parse('{not json');</script>`))
}

func TestScriptText(t *testing.T) {
	t.Parallel()

	body := `<html>
<script src="app.js"></script>
<script>var pret_minim = "7,45 lei"; var alt = '7.60 RON';</script>
<script>var banner = "Reducere 10 lei";</script>
<p>8,00 lei</p>
</html>`
	got := extract.ScriptText(body)
	require.Equal(t, []extract.Candidate{
		{Source: "script", PriceText: "7,45"},
		{Source: "script", PriceText: "7.60"},
	}, got)
}

func TestLegacyMarkup(t *testing.T) {
	t.Parallel()

	body := `<h5 class="card-pret"><strong> 7,55 </strong></h5>
<h5 class="titlu"><strong>9.99</strong></h5>
<table><tr><td>7.29</td><td> Petrom - Centru </td></tr><tr><td>only one</td></tr></table>`
	got := extract.LegacyMarkup(body)
	require.Equal(t, []extract.Candidate{
		{Source: "legacy", PriceText: "7,55"},
		{Source: "Petrom - Centru", PriceText: "7.29"},
	}, got)
}
