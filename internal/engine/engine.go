// Package engine implements the column classification and visualization
// recommendation core: a decision-list column typer, meaningfulness
// filters, a pairwise-complete correlation ranker, a time-bucket selector
// and descriptive statistics with IQR outlier detection.
//
// Every operation is synchronous and re-entrant over its dataset snapshot.
// The single mutation is the datetime materialization performed by
// ClassifyDataset; callers invoking the engine concurrently against the
// same snapshot must synchronize around it themselves.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tabsight/internal/dataset"
)

// Engine bundles the component functions with fixed options and a logger
// so the service layer can run full analyses with one call.
type Engine struct {
	opts   Options
	logger *slog.Logger
}

// New builds an engine after validating the options. A nil logger falls
// back to the default logger.
func New(opts Options, logger *slog.Logger) (*Engine, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine options: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		opts:   opts,
		logger: logger.With(slog.String("component", "analysis_engine")),
	}, nil
}

// Options returns the engine's configured parameters.
func (e *Engine) Options() Options {
	return e.opts
}

// Analyze runs the full pipeline over one snapshot: classify every column,
// rank correlations across the meaningful numeric columns, and build the
// recommendation menu. The returned Analysis is freshly derived and safe to
// retain after the dataset is gone.
func (e *Engine) Analyze(ctx context.Context, ds *dataset.Dataset) (*Analysis, error) {
	start := time.Now()

	if ds == nil || ds.Rows() == 0 {
		return nil, fmt.Errorf("analyze: %w", ErrEmptyDataset)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	profiles, err := ClassifyDataset(ds, e.opts)
	if err != nil {
		return nil, fmt.Errorf("classification failed: %w", err)
	}

	b := partition(ds, profiles, e.opts)
	numericCols := make([]*dataset.Column, 0, len(b.numerics))
	for _, name := range b.numerics {
		if col, ok := ds.Column(name); ok {
			numericCols = append(numericCols, col)
		}
	}
	correlations := RankCorrelations(numericCols, e.opts.CorrelationThreshold)
	recommendations := recommendationsFromProfiles(ds, profiles, e.opts)

	e.logger.InfoContext(ctx, "analysis completed",
		slog.Int("rows", ds.Rows()),
		slog.Int("columns", len(profiles)),
		slog.Int("correlations", len(correlations)),
		slog.Int("recommendations", len(recommendations)),
		slog.Duration("duration", time.Since(start)),
	)

	return &Analysis{
		Profiles:        profiles,
		Correlations:    correlations,
		Recommendations: recommendations,
	}, nil
}

// SummarizeColumn computes descriptive statistics for a named column. An
// unknown name is an input shape error; a column without numeric values
// yields the zero summary with a zero count.
func (e *Engine) SummarizeColumn(ds *dataset.Dataset, name string) (Summary, error) {
	col, ok := ds.Column(name)
	if !ok {
		return Summary{}, fmt.Errorf("summarize %q: %w", name, ErrColumnNotFound)
	}
	summary, _ := Summarize(col)
	return summary, nil
}

// OutliersForColumn runs IQR outlier detection on a named column.
func (e *Engine) OutliersForColumn(ds *dataset.Dataset, name string) ([]float64, error) {
	col, ok := ds.Column(name)
	if !ok {
		return nil, fmt.Errorf("outliers %q: %w", name, ErrColumnNotFound)
	}
	return DetectOutliers(col), nil
}

// Correlations ranks the pairwise coefficients over the named columns with
// a caller-chosen threshold, resolving each name against the snapshot.
func (e *Engine) Correlations(ds *dataset.Dataset, names []string, threshold float64) ([]CorrelationPair, error) {
	columns := make([]*dataset.Column, 0, len(names))
	for _, name := range names {
		col, ok := ds.Column(name)
		if !ok {
			return nil, fmt.Errorf("correlations %q: %w", name, ErrColumnNotFound)
		}
		columns = append(columns, col)
	}
	return RankCorrelations(columns, threshold), nil
}

// TimeSeries is a resampled value series over a datetime column, ready for
// trend plotting.
type TimeSeries struct {
	DateColumn  string       `json:"date_column"`
	ValueColumn string       `json:"value_column"`
	Granularity Granularity  `json:"granularity"`
	Aggregation Aggregation  `json:"aggregation"`
	Buckets     []TimeBucket `json:"buckets"`
	TrendSlope  float64      `json:"trend_slope"`
}

// BuildTimeSeries pairs a datetime column with a numeric column, picks the
// granularity from the observed date range unless the caller overrides it,
// resamples with the requested aggregation (mean by default) and fits the
// linear trend. Rows missing either side are skipped; a series with no
// usable rows comes back with empty buckets.
func (e *Engine) BuildTimeSeries(ds *dataset.Dataset, dateName, valueName string, g Granularity, agg Aggregation) (*TimeSeries, error) {
	dateCol, ok := ds.Column(dateName)
	if !ok {
		return nil, fmt.Errorf("time series date column %q: %w", dateName, ErrColumnNotFound)
	}
	valueCol, ok := ds.Column(valueName)
	if !ok {
		return nil, fmt.Errorf("time series value column %q: %w", valueName, ErrColumnNotFound)
	}
	if agg == "" {
		agg = AggregationMean
	}
	if !agg.IsValid() {
		return nil, fmt.Errorf("invalid aggregation %q", agg)
	}

	rows := len(dateCol.Values)
	dates := make([]time.Time, 0, rows)
	values := make([]float64, 0, rows)
	for i := 0; i < rows && i < len(valueCol.Values); i++ {
		t, okT := dateCol.Values[i].AsTime()
		v, okV := valueCol.Values[i].AsFloat()
		if !okT || !okV {
			continue
		}
		dates = append(dates, t)
		values = append(values, v)
	}

	series := &TimeSeries{
		DateColumn:  dateName,
		ValueColumn: valueName,
		Aggregation: agg,
		Buckets:     []TimeBucket{},
	}
	if len(dates) == 0 {
		if g == "" {
			g = GranularityDaily
		}
		series.Granularity = g
		return series, nil
	}

	if g == "" {
		minD, maxD := dates[0], dates[0]
		for _, d := range dates[1:] {
			if d.Before(minD) {
				minD = d
			}
			if d.After(maxD) {
				maxD = d
			}
		}
		g = SelectGranularity(minD, maxD)
	}
	if !g.IsValid() {
		return nil, fmt.Errorf("invalid granularity %q", g)
	}

	buckets, err := Resample(dates, values, g, agg)
	if err != nil {
		return nil, err
	}
	series.Granularity = g
	series.Buckets = buckets
	series.TrendSlope = TrendSlope(buckets)
	return series, nil
}
