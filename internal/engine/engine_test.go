package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabsight/internal/dataset"
)

func TestNewValidatesOptions(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Options)
		wantErr bool
	}{
		{name: "defaults are valid", mutate: func(o *Options) {}, wantErr: false},
		{name: "negative threshold", mutate: func(o *Options) { o.CorrelationThreshold = -0.1 }, wantErr: true},
		{name: "threshold above one", mutate: func(o *Options) { o.CorrelationThreshold = 1.5 }, wantErr: true},
		{name: "max categories too small", mutate: func(o *Options) { o.MaxCategories = 1 }, wantErr: true},
		{name: "zero sample size", mutate: func(o *Options) { o.DatetimeSampleSize = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.mutate(&opts)
			eng, err := New(opts, nil)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, eng)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, opts, eng.Options())
		})
	}
}

func analysisFixture(t *testing.T) *dataset.Dataset {
	t.Helper()
	rows := 60
	dates := make([]string, rows)
	prices := make([]float64, rows)
	units := make([]float64, rows)
	regions := make([]string, rows)
	for i := 0; i < rows; i++ {
		dates[i] = day(2024, time.January, 1).AddDate(0, 0, i).Format("2006-01-02")
		prices[i] = 50 + 2.5*float64(i%17) + 0.125*float64(i)
		units[i] = 100 + 5*float64(i%17) + 0.25*float64(i)
		regions[i] = []string{"north", "south"}[i%2]
	}
	ds, err := dataset.New(
		dataset.TextColumn("sale_date", dates),
		dataset.NumberColumn("price", dataset.KindFloat, prices),
		dataset.NumberColumn("units", dataset.KindFloat, units),
		dataset.TextColumn("region", regions),
	)
	require.NoError(t, err)
	return ds
}

func TestEngineAnalyze(t *testing.T) {
	eng, err := New(DefaultOptions(), nil)
	require.NoError(t, err)

	ds := analysisFixture(t)
	analysis, err := eng.Analyze(context.Background(), ds)
	require.NoError(t, err)

	require.Len(t, analysis.Profiles, 4)
	byColumn := map[string]ColumnType{}
	for _, p := range analysis.Profiles {
		byColumn[p.Column] = p.Type
	}
	assert.Equal(t, TypeDateTime, byColumn["sale_date"])
	assert.Equal(t, TypeNumericMonetary, byColumn["price"])
	assert.Equal(t, TypeNumericContinuous, byColumn["units"])
	assert.Equal(t, TypeCategoricalBinary, byColumn["region"])

	require.NotEmpty(t, analysis.Correlations, "price and units move together")
	assert.Equal(t, "price", analysis.Correlations[0].ColumnA)
	assert.Equal(t, "units", analysis.Correlations[0].ColumnB)
	assert.Greater(t, analysis.Correlations[0].Coefficient, 0.9)

	cats := categoriesOf(analysis.Recommendations)
	assert.Equal(t, []Category{
		CategoryTimeSeries,
		CategoryKeyMetrics,
		CategoryCorrelations,
		CategoryCategories,
		CategoryFinancial,
	}, cats)
}

func TestEngineAnalyzeEmpty(t *testing.T) {
	eng, err := New(DefaultOptions(), nil)
	require.NoError(t, err)

	_, err = eng.Analyze(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyDataset)
}

func TestEngineAnalyzeCancelled(t *testing.T) {
	eng, err := New(DefaultOptions(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = eng.Analyze(ctx, analysisFixture(t))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngineSummarizeColumn(t *testing.T) {
	eng, err := New(DefaultOptions(), nil)
	require.NoError(t, err)
	ds := analysisFixture(t)

	summary, err := eng.SummarizeColumn(ds, "price")
	require.NoError(t, err)
	assert.Equal(t, 60, summary.Count)
	assert.LessOrEqual(t, summary.Min, summary.Median)
	assert.LessOrEqual(t, summary.Median, summary.Max)

	_, err = eng.SummarizeColumn(ds, "absent")
	assert.ErrorIs(t, err, ErrColumnNotFound)
}

func TestEngineSummarizeTextColumnIsEmpty(t *testing.T) {
	eng, err := New(DefaultOptions(), nil)
	require.NoError(t, err)
	ds := analysisFixture(t)

	summary, err := eng.SummarizeColumn(ds, "region")
	require.NoError(t, err)
	assert.Equal(t, Summary{}, summary, "no numeric values means an empty summary, not an error")
}

func TestEngineOutliersForColumn(t *testing.T) {
	eng, err := New(DefaultOptions(), nil)
	require.NoError(t, err)

	ds, err := dataset.New(dataset.NumberColumn("price", dataset.KindFloat, []float64{10, 20, 30, 1000}))
	require.NoError(t, err)

	outliers, err := eng.OutliersForColumn(ds, "price")
	require.NoError(t, err)
	assert.Equal(t, []float64{1000}, outliers)

	_, err = eng.OutliersForColumn(ds, "absent")
	assert.ErrorIs(t, err, ErrColumnNotFound)
}

func TestEngineCorrelationsByName(t *testing.T) {
	eng, err := New(DefaultOptions(), nil)
	require.NoError(t, err)
	ds := analysisFixture(t)

	pairs, err := eng.Correlations(ds, []string{"price", "units"}, 0.5)
	require.NoError(t, err)
	require.Len(t, pairs, 1)

	pairs, err = eng.Correlations(ds, []string{"price"}, 0.5)
	require.NoError(t, err)
	assert.Empty(t, pairs)

	_, err = eng.Correlations(ds, []string{"price", "absent"}, 0.5)
	assert.ErrorIs(t, err, ErrColumnNotFound)
}

func TestEngineBuildTimeSeries(t *testing.T) {
	eng, err := New(DefaultOptions(), nil)
	require.NoError(t, err)
	ds := analysisFixture(t)

	// Materialize the datetime column first, as a caller would.
	_, err = eng.Analyze(context.Background(), ds)
	require.NoError(t, err)

	series, err := eng.BuildTimeSeries(ds, "sale_date", "price", "", "")
	require.NoError(t, err)

	assert.Equal(t, GranularityWeekly, series.Granularity, "59 day span resamples weekly")
	assert.Equal(t, AggregationMean, series.Aggregation)
	assert.NotEmpty(t, series.Buckets)
	assert.Greater(t, series.TrendSlope, 0.0, "prices drift upward across the fixture")

	for i := 1; i < len(series.Buckets); i++ {
		assert.True(t, series.Buckets[i-1].Start.Before(series.Buckets[i].Start))
	}

	_, err = eng.BuildTimeSeries(ds, "absent", "price", "", "")
	assert.ErrorIs(t, err, ErrColumnNotFound)

	_, err = eng.BuildTimeSeries(ds, "sale_date", "price", Granularity("hourly"), "")
	assert.Error(t, err)
}

func TestEngineBuildTimeSeriesNoUsableRows(t *testing.T) {
	eng, err := New(DefaultOptions(), nil)
	require.NoError(t, err)

	ds, err := dataset.New(
		dataset.TextColumn("when", []string{"alpha", "beta"}),
		dataset.NumberColumn("value", dataset.KindFloat, []float64{1, 2}),
	)
	require.NoError(t, err)

	series, err := eng.BuildTimeSeries(ds, "when", "value", "", "")
	require.NoError(t, err)
	assert.Empty(t, series.Buckets, "text dates never align with values")
}
