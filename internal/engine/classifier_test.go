package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabsight/internal/dataset"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		column *dataset.Column
		want   ColumnType
	}{
		{
			name:   "datetime by storage kind",
			column: dataset.TimeColumn("observed", []time.Time{time.Now(), time.Now()}),
			want:   TypeDateTime,
		},
		{
			name:   "datetime by name and parseable values",
			column: dataset.TextColumn("order_date", []string{"2024-01-05", "2024-02-10", "2024-03-15"}),
			want:   TypeDateTime,
		},
		{
			name:   "datetime name with unparseable values demotes silently",
			column: dataset.TextColumn("order_date", []string{"pending", "shipped", "pending"}),
			want:   TypeCategoricalBinary,
		},
		{
			name:   "latitude short name",
			column: dataset.NumberColumn("lat", dataset.KindFloat, []float64{33.3, 30.5, 36.2}),
			want:   TypeGeoLatitude,
		},
		{
			name:   "latitude full keyword",
			column: dataset.NumberColumn("pickup_latitude", dataset.KindFloat, []float64{-45.0, 89.9}),
			want:   TypeGeoLatitude,
		},
		{
			name:   "latitude out of range falls to numeric",
			column: dataset.NumberColumn("lat", dataset.KindFloat, []float64{33.3, 1500.0}),
			want:   TypeNumericContinuous,
		},
		{
			name:   "platform is not latitude",
			column: dataset.NumberColumn("platform", dataset.KindFloat, []float64{1.5, 2.5}),
			want:   TypeNumericContinuous,
		},
		{
			name:   "longitude short name",
			column: dataset.NumberColumn("lon", dataset.KindFloat, []float64{44.4, -120.7, 179.9}),
			want:   TypeGeoLongitude,
		},
		{
			name:   "longitude range wider than latitude",
			column: dataset.NumberColumn("lng", dataset.KindFloat, []float64{150.0, -150.0}),
			want:   TypeGeoLongitude,
		},
		{
			name:   "percentage needs sign in name",
			column: dataset.NumberColumn("growth %", dataset.KindFloat, []float64{10.5, 99.9, 0.0}),
			want:   TypeNumericPercentage,
		},
		{
			name:   "percentage range without sign stays numeric",
			column: dataset.NumberColumn("growth", dataset.KindFloat, []float64{10.5, 99.9}),
			want:   TypeNumericContinuous,
		},
		{
			name:   "monetary by keyword",
			column: dataset.NumberColumn("price", dataset.KindFloat, []float64{10, 20, 30, 1000}),
			want:   TypeNumericMonetary,
		},
		{
			name:   "monetary by embedded keyword",
			column: dataset.NumberColumn("total_revenue", dataset.KindFloat, []float64{1.5, 2.5}),
			want:   TypeNumericMonetary,
		},
		{
			name:   "monetary by currency prefix",
			column: dataset.NumberColumn("$ value", dataset.KindFloat, []float64{9.99, 19.99}),
			want:   TypeNumericMonetary,
		},
		{
			name:   "monetary beats discrete on whole amounts",
			column: dataset.NumberColumn("amount", dataset.KindInteger, []float64{100, 200, 300}),
			want:   TypeNumericMonetary,
		},
		{
			name:   "discrete whole numbers",
			column: dataset.NumberColumn("children", dataset.KindInteger, []float64{0, 1, 2, 3, 2}),
			want:   TypeNumericDiscrete,
		},
		{
			name:   "continuous fallback",
			column: dataset.NumberColumn("temperature", dataset.KindFloat, []float64{21.4, 22.8, 19.6}),
			want:   TypeNumericContinuous,
		},
		{
			name:   "zero variance still classifies",
			column: dataset.NumberColumn("reading", dataset.KindFloat, []float64{5.5, 5.5, 5.5}),
			want:   TypeNumericContinuous,
		},
		{
			name:   "binary two distinct values",
			column: dataset.TextColumn("active", []string{"yes", "no", "yes", "yes"}),
			want:   TypeCategoricalBinary,
		},
		{
			name:   "boolean storage is binary",
			column: dataset.NewColumn("flag", dataset.KindBoolean, []dataset.Value{dataset.BoolValue(true), dataset.BoolValue(false), dataset.BoolValue(true)}),
			want:   TypeCategoricalBinary,
		},
		{
			name:   "free text high cardinality",
			column: dataset.TextColumn("comment", []string{"first note", "second note", "third note", "fourth note"}),
			want:   TypeFreeText,
		},
		{
			name:   "all missing falls through to free text",
			column: dataset.TextColumn("empty", []string{"", "", "", ""}),
			want:   TypeFreeText,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.column, DefaultOptions())
			assert.Equal(t, tt.want, got.Type)
			assert.Equal(t, tt.column.Name, got.Column)
		})
	}
}

func TestClassifyIdentifierPriority(t *testing.T) {
	// 100 rows, 4 distinct codes: under the low-cardinality cutoff either
	// way; the identifier keyword decides id over nominal.
	values := make([]string, 100)
	codes := []string{"a1", "b2", "c3", "d4"}
	for i := range values {
		values[i] = codes[i%len(codes)]
	}

	idCol := dataset.TextColumn("customer_id", values)
	assert.Equal(t, TypeCategoricalID, Classify(idCol, DefaultOptions()).Type)

	nominalCol := dataset.TextColumn("region", values)
	assert.Equal(t, TypeCategoricalNominal, Classify(nominalCol, DefaultOptions()).Type)
}

func TestClassifyBinaryBeatsID(t *testing.T) {
	values := make([]string, 100)
	for i := range values {
		if i%2 == 0 {
			values[i] = "on"
		} else {
			values[i] = "off"
		}
	}
	col := dataset.TextColumn("state_code", values)
	assert.Equal(t, TypeCategoricalBinary, Classify(col, DefaultOptions()).Type)
}

func TestClassifyTotality(t *testing.T) {
	known := map[ColumnType]bool{
		TypeDateTime: true, TypeGeoLatitude: true, TypeGeoLongitude: true,
		TypeNumericContinuous: true, TypeNumericDiscrete: true,
		TypeNumericPercentage: true, TypeNumericMonetary: true,
		TypeCategoricalNominal: true, TypeCategoricalBinary: true,
		TypeCategoricalID: true, TypeFreeText: true,
	}

	columns := []*dataset.Column{
		dataset.NumberColumn("a", dataset.KindFloat, []float64{1.1, 2.2}),
		dataset.TextColumn("b", []string{"x", "y", "z"}),
		dataset.TextColumn("c", []string{"", ""}),
		dataset.TimeColumn("d", []time.Time{time.Now()}),
		dataset.NumberColumn("lat", dataset.KindFloat, []float64{10}),
		dataset.NewColumn("e", dataset.KindBoolean, []dataset.Value{dataset.BoolValue(true)}),
	}
	for _, col := range columns {
		got := Classify(col, DefaultOptions())
		assert.True(t, known[got.Type], "column %q got unknown tag %q", col.Name, got.Type)
	}
}

func TestClassifyIdempotent(t *testing.T) {
	col := dataset.NumberColumn("price", dataset.KindFloat, []float64{10, 20, 30})
	first := Classify(col, DefaultOptions())
	second := Classify(col, DefaultOptions())
	assert.Equal(t, first, second)
}

func TestClassifyDatasetMaterializesDatetime(t *testing.T) {
	// The garbage value sits past the sample bound, so the column still
	// classifies datetime; materialization then turns it into a missing cell.
	ds, err := dataset.New(
		dataset.TextColumn("sale_date", []string{"2024-01-05", "2024-01-06", "not a date"}),
		dataset.NumberColumn("price", dataset.KindFloat, []float64{10, 20, 30}),
	)
	require.NoError(t, err)

	opts := DefaultOptions()
	opts.DatetimeSampleSize = 2
	profiles, err := ClassifyDataset(ds, opts)
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, TypeDateTime, profiles[0].Type)
	assert.Equal(t, TypeNumericMonetary, profiles[1].Type)

	col, ok := ds.Column("sale_date")
	require.True(t, ok)
	assert.Equal(t, dataset.KindDateTime, col.Kind, "storage kind must flip after materialization")

	parsed, ok := col.Values[0].AsTime()
	require.True(t, ok)
	assert.Equal(t, 2024, parsed.Year())

	assert.True(t, col.Values[2].IsMissing(), "unparseable stragglers become missing")
}

func TestClassifyDatasetSampleBound(t *testing.T) {
	// The name suggests dates but only the first value parses; a sample of
	// one never sees the garbage, so the column still classifies datetime.
	values := []string{"2024-01-05", "garbage", "more garbage"}
	ds, err := dataset.New(dataset.TextColumn("day", values))
	require.NoError(t, err)

	opts := DefaultOptions()
	opts.DatetimeSampleSize = 1
	profiles, err := ClassifyDataset(ds, opts)
	require.NoError(t, err)
	assert.Equal(t, TypeDateTime, profiles[0].Type)
}

func TestClassifyDatasetEmpty(t *testing.T) {
	_, err := ClassifyDataset(nil, DefaultOptions())
	assert.ErrorIs(t, err, ErrEmptyDataset)
}
