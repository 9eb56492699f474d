package main

import (
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabsight/internal/engine"
	"tabsight/internal/report"
)

func TestExtensionFor(t *testing.T) {
	tests := []struct {
		format report.Format
		want   string
	}{
		{report.FormatJSON, "json"},
		{report.FormatCSV, "csv"},
		{report.FormatMarkdown, "md"},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			assert.Equal(t, tt.want, extensionFor(tt.format))
		})
	}
}

func TestPrintSummary(t *testing.T) {
	rep := &report.Report{
		Overview: report.Overview{Rows: 120, Columns: 4},
		ColumnTypes: []report.ColumnType{
			{Column: "date", Type: engine.TypeDateTime, Storage: "string"},
			{Column: "sales", Type: engine.TypeNumericContinuous, Storage: "float"},
		},
		Correlations: []engine.CorrelationPair{
			{ColumnA: "sales", ColumnB: "units", Coefficient: 0.82, Important: true},
		},
		Recommendations: []engine.Recommendation{
			{Category: engine.CategoryTimeSeries, Columns: []string{"date", "sales"}},
		},
	}

	// Capture stdout while the summary prints
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	printSummary(rep)

	w.Close()
	os.Stdout = old

	out, err := io.ReadAll(r)
	require.NoError(t, err)

	text := string(out)
	assert.Contains(t, text, "DATASET OVERVIEW")
	assert.Contains(t, text, "Rows: 120  Columns: 4")
	assert.Contains(t, text, "datetime")
	assert.Contains(t, text, "CORRELATIONS")
	assert.Contains(t, text, "+0.820")
	assert.Contains(t, text, "RECOMMENDED VISUALIZATIONS")
	assert.Contains(t, text, "date, sales")
}

func TestPrintSummary_EmptySections(t *testing.T) {
	rep := &report.Report{
		Overview: report.Overview{Rows: 3, Columns: 1},
		ColumnTypes: []report.ColumnType{
			{Column: "note", Type: engine.TypeFreeText, Storage: "string"},
		},
	}

	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	printSummary(rep)

	w.Close()
	os.Stdout = old

	out, err := io.ReadAll(r)
	require.NoError(t, err)

	text := string(out)
	assert.Contains(t, text, "COLUMN TYPES")
	assert.NotContains(t, text, "CORRELATIONS")
	assert.NotContains(t, text, "RECOMMENDED VISUALIZATIONS")
}
