package http

import (
	"context"
	"io"

	"tabsight/internal/engine"
	"tabsight/internal/report"
	"tabsight/pkg/contracts/domain"
)

// AnalysisServiceInterface defines the dataset operations the HTTP layer
// consumes. *services.AnalysisService satisfies it.
type AnalysisServiceInterface interface {
	Upload(ctx context.Context, filename string, data []byte) (*domain.DatasetInfo, error)
	List(ctx context.Context) []domain.DatasetInfo
	Get(ctx context.Context, id string) (*domain.DatasetDetail, error)
	Delete(ctx context.Context, id string) error

	Profiles(ctx context.Context, id string) ([]domain.ColumnProfile, error)
	Recommendations(ctx context.Context, id string) ([]domain.Recommendation, error)
	Correlations(ctx context.Context, id string, threshold float64) ([]domain.CorrelationResult, error)
	ColumnSummary(ctx context.Context, id, column string) (*domain.ColumnSummary, error)
	ColumnOutliers(ctx context.Context, id, column string) (*domain.ColumnOutliers, error)
	TimeSeries(ctx context.Context, id, valueColumn, dateColumn string, g engine.Granularity, agg engine.Aggregation) (*domain.TimeSeriesResult, error)

	Report(ctx context.Context, id string) (*report.Report, error)
	RenderReport(ctx context.Context, id string, format report.Format, out io.Writer) error

	// Geocoding enrichment
	EnrichGeocode(ctx context.Context, id, placeColumn string) (*domain.DatasetDetail, error)
	GeocodeEnabled() bool
}
