// Package report assembles analysis results into a serializable report
// and renders it as JSON, CSV, or Markdown.
package report

import (
	"context"
	"log/slog"
	"math"
	"time"

	"tabsight/internal/dataset"
	"tabsight/internal/engine"
)

// maxOutlierSample caps how many outlier values a report carries per
// column. The count always reflects the full total.
const maxOutlierSample = 20

// Overview describes the dataset shape.
type Overview struct {
	Rows        int       `json:"rows"`
	Columns     int       `json:"columns"`
	GeneratedAt time.Time `json:"generated_at"`
}

// ColumnType pairs a column with its semantic tag and storage kind.
type ColumnType struct {
	Column  string            `json:"column"`
	Type    engine.ColumnType `json:"type"`
	Storage string            `json:"storage"`
}

// MissingValues reports missing cells for one column. Percent is rounded
// to two decimal places.
type MissingValues struct {
	Column  string  `json:"column"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// NumericSummary attaches descriptive statistics to a column name.
type NumericSummary struct {
	Column string `json:"column"`
	engine.Summary
}

// OutlierSummary lists extreme values for one numeric column. Values is
// truncated to a sample when the column has many outliers.
type OutlierSummary struct {
	Column string    `json:"column"`
	Count  int       `json:"count"`
	Values []float64 `json:"values,omitempty"`
}

// Report is the full analysis output for one dataset.
type Report struct {
	Overview        Overview                 `json:"overview"`
	ColumnTypes     []ColumnType             `json:"column_types"`
	MissingValues   []MissingValues          `json:"missing_values"`
	Summaries       []NumericSummary         `json:"numerical_summaries"`
	Outliers        []OutlierSummary         `json:"outliers"`
	Correlations    []engine.CorrelationPair `json:"correlations"`
	Recommendations []engine.Recommendation  `json:"recommendations"`
}

// Builder runs the analysis engine and shapes its output into a Report.
type Builder struct {
	engine *engine.Engine
	logger *slog.Logger
	now    func() time.Time
}

// NewBuilder wires a report builder to an engine.
func NewBuilder(eng *engine.Engine, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		engine: eng,
		logger: logger.With(slog.String("component", "report_builder")),
		now:    time.Now,
	}
}

// Build analyzes the dataset and assembles every report section. Sections
// with nothing to say stay empty rather than failing the build.
func (b *Builder) Build(ctx context.Context, ds *dataset.Dataset) (*Report, error) {
	analysis, err := b.engine.Analyze(ctx, ds)
	if err != nil {
		return nil, err
	}

	rows := ds.Rows()
	r := &Report{
		Overview: Overview{
			Rows:        rows,
			Columns:     len(ds.Columns()),
			GeneratedAt: b.now().UTC(),
		},
		ColumnTypes:     make([]ColumnType, 0, len(analysis.Profiles)),
		MissingValues:   []MissingValues{},
		Summaries:       []NumericSummary{},
		Outliers:        []OutlierSummary{},
		Correlations:    analysis.Correlations,
		Recommendations: analysis.Recommendations,
	}

	for _, profile := range analysis.Profiles {
		col, ok := ds.Column(profile.Column)
		if !ok {
			continue
		}
		r.ColumnTypes = append(r.ColumnTypes, ColumnType{
			Column:  profile.Column,
			Type:    profile.Type,
			Storage: col.Kind.String(),
		})

		if missing := col.MissingCount(); missing > 0 && rows > 0 {
			r.MissingValues = append(r.MissingValues, MissingValues{
				Column:  profile.Column,
				Count:   missing,
				Percent: round2(100 * float64(missing) / float64(rows)),
			})
		}

		if !profile.Type.IsNumeric() {
			continue
		}
		if summary, ok := engine.Summarize(col); ok {
			r.Summaries = append(r.Summaries, NumericSummary{Column: profile.Column, Summary: summary})
		}
		if outliers := engine.DetectOutliers(col); len(outliers) > 0 {
			entry := OutlierSummary{Column: profile.Column, Count: len(outliers), Values: outliers}
			if len(entry.Values) > maxOutlierSample {
				entry.Values = entry.Values[:maxOutlierSample]
			}
			r.Outliers = append(r.Outliers, entry)
		}
	}

	b.logger.InfoContext(ctx, "report built",
		slog.Int("columns", r.Overview.Columns),
		slog.Int("summaries", len(r.Summaries)),
		slog.Int("recommendations", len(r.Recommendations)),
	)
	return r, nil
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
