package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"tabsight/internal/cache"
	"tabsight/internal/config"
	"tabsight/internal/dataset"
	"tabsight/internal/engine"
	apperrors "tabsight/internal/errors"
	"tabsight/internal/geocode"
	"tabsight/internal/infrastructure"
	"tabsight/internal/loader"
	"tabsight/internal/report"
	"tabsight/internal/validation"
	"tabsight/pkg/contracts/domain"
)

// Upload progress stages pushed over the hub.
const (
	StageValidate = "validate"
	StageParse    = "parse"
	StageAnalyze  = "analyze"
	StageEnrich   = "enrich"
	StageStore    = "store"
)

// ProgressBroadcaster is the push surface the service needs while working
// through an upload. *websocket.Hub satisfies it.
type ProgressBroadcaster interface {
	BroadcastProgressWithTrace(stage string, percent int, message, traceID string)
	BroadcastError(code, message, details, stage string, recoverable bool)
	BroadcastAnalysisComplete(datasetID, name string, rows, columns int)
	BroadcastDatasetUpdate(action, datasetID, name string)
}

// Dataset update actions mirrored onto the hub.
const (
	actionCreated = "created"
	actionUpdated = "updated"
	actionDeleted = "deleted"
)

// storedDataset couples a parsed snapshot with its analysis and upload
// metadata under one identifier. After Upload returns, the snapshot and the
// analysis are read-only.
type storedDataset struct {
	info     domain.DatasetInfo
	data     *dataset.Dataset
	analysis *engine.Analysis
}

// uploadResult is what one collapsed parse+analyze flight produces.
type uploadResult struct {
	data     *dataset.Dataset
	analysis *engine.Analysis
	cacheHit bool
}

// AnalysisService runs uploads through validate, parse and analyze, and
// keeps the results in an in-memory store for the HTTP surface.
type AnalysisService struct {
	config    *config.Config
	logger    *slog.Logger
	loader    *loader.Loader
	engine    *engine.Engine
	cache     *cache.Cache
	geocoder  *geocode.Client
	builder   *report.Builder
	writer    *report.Writer
	validator *validation.FileValidator

	// Optional collaborators, wired at bootstrap. Both are nil-safe.
	hub     ProgressBroadcaster
	metrics *infrastructure.AnalysisMetrics

	// flight collapses concurrent identical uploads onto one parse and one
	// analysis. Materializing datetimes mutates the shared snapshot, so the
	// first analysis per fingerprint must not run twice in parallel.
	flight singleflight.Group

	mu       sync.RWMutex
	datasets map[string]*storedDataset
}

// NewAnalysisService creates an analysis service using the default logger.
func NewAnalysisService(cfg *config.Config) (*AnalysisService, error) {
	return NewAnalysisServiceWithLogger(cfg, slog.Default())
}

// NewAnalysisServiceWithLogger creates an analysis service with a specific
// logger. The engine, loader, cache and report collaborators are built from
// the config; the geocoding client only when enabled.
func NewAnalysisServiceWithLogger(cfg *config.Config, logger *slog.Logger) (*AnalysisService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("analysis service requires a config")
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "analysis_service"))

	eng, err := engine.New(engine.Options{
		CorrelationThreshold: cfg.Engine.CorrelationThreshold,
		MaxCategories:        cfg.Engine.MaxCategories,
		DatetimeSampleSize:   cfg.Engine.DatetimeSampleSize,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build engine: %w", err)
	}

	ld := loader.New(logger,
		loader.WithMaxRows(cfg.Loader.MaxRows),
		loader.WithMaxBytes(cfg.Loader.MaxBytes),
	)

	svc := &AnalysisService{
		config:    cfg,
		logger:    logger,
		loader:    ld,
		engine:    eng,
		cache:     cache.New(cfg.Cache.TTL, cfg.Cache.MaxEntries),
		builder:   report.NewBuilder(eng, logger),
		writer:    report.NewWriter(logger),
		validator: validation.NewFileValidator(logger),
		datasets:  make(map[string]*storedDataset),
	}

	if cfg.Geocode.Enabled {
		svc.geocoder = geocode.NewClient(cfg.Geocode.BaseURL, cfg.Geocode.APIKey, logger,
			geocode.WithHTTPClient(&http.Client{Timeout: cfg.Geocode.Timeout}),
			geocode.WithRetryDelay(cfg.Geocode.RetryDelay),
			geocode.WithRateLimit(cfg.Geocode.RateLimit, cfg.Geocode.Burst),
			geocode.WithLookupObserver(func(unknown bool, d time.Duration) {
				infrastructure.RecordGeocodeLookup(context.Background(), svc.metrics, unknown, d)
			}),
		)
	}

	logger.Info("analysis service initialized",
		slog.Float64("correlation_threshold", cfg.Engine.CorrelationThreshold),
		slog.Int("max_categories", cfg.Engine.MaxCategories),
		slog.Int("max_rows", cfg.Loader.MaxRows),
		slog.Int64("max_bytes", cfg.Loader.MaxBytes),
		slog.Bool("geocode_enabled", cfg.Geocode.Enabled),
	)

	return svc, nil
}

// SetBroadcaster wires the websocket hub used for progress pushes. The
// service works without one; pushes become no-ops.
func (s *AnalysisService) SetBroadcaster(hub ProgressBroadcaster) {
	s.hub = hub
}

// SetMetrics wires the analysis instruments created at bootstrap.
func (s *AnalysisService) SetMetrics(m *infrastructure.AnalysisMetrics) {
	s.metrics = m
}

// Upload ingests one raw file: validate the name and size, fingerprint the
// bytes, parse (or reuse the cached parse), run the full analysis and store
// the result under a fresh identifier.
func (s *AnalysisService) Upload(ctx context.Context, filename string, data []byte) (*domain.DatasetInfo, error) {
	start := time.Now()
	traceID := infrastructure.GetTraceID(ctx)

	s.progress(StageValidate, 5, fmt.Sprintf("validating %s", filename), traceID)
	if err := s.validator.ValidateUpload(filename, int64(len(data)), s.config.Loader.MaxBytes); err != nil {
		s.broadcastFailure(StageValidate, err)
		logAnalysisError(ctx, "upload_validate", "upload rejected",
			slog.String("filename", filename),
			slog.Int("size", len(data)),
			slog.String("error", err.Error()))
		return nil, err
	}

	format, err := loader.FormatForPath(filename)
	if err != nil {
		s.broadcastFailure(StageValidate, err)
		return nil, err
	}

	fingerprint := cache.Fingerprint(data)
	s.progress(StageParse, 25, "parsing dataset", traceID)

	result, err := s.loadAndAnalyze(ctx, fingerprint, format, data, traceID)
	if err != nil {
		s.broadcastFailure(StageAnalyze, err)
		logAnalysisError(ctx, "upload_analyze", "upload failed",
			slog.String("filename", filename),
			slog.String("fingerprint", fingerprint),
			slog.String("error", err.Error()))
		infrastructure.RecordAnalysisMetrics(ctx, s.metrics, "", string(format), 0, time.Since(start), err)
		return nil, err
	}
	infrastructure.RecordCacheAccess(ctx, s.metrics, result.cacheHit)

	s.progress(StageStore, 90, "storing analysis", traceID)

	stored := &storedDataset{
		info: domain.DatasetInfo{
			ID:          uuid.New().String(),
			Name:        filename,
			Format:      string(format),
			SizeBytes:   int64(len(data)),
			Rows:        result.data.Rows(),
			Columns:     len(result.data.Columns()),
			Fingerprint: fingerprint,
			UploadedAt:  time.Now().UTC(),
		},
		data:     result.data,
		analysis: result.analysis,
	}

	s.mu.Lock()
	s.datasets[stored.info.ID] = stored
	s.mu.Unlock()

	infrastructure.RecordActiveDatasetChange(ctx, s.metrics, 1)
	infrastructure.RecordAnalysisMetrics(ctx, s.metrics, stored.info.ID, string(format), stored.info.Rows, time.Since(start), nil)

	if s.hub != nil {
		s.hub.BroadcastAnalysisComplete(stored.info.ID, stored.info.Name, stored.info.Rows, stored.info.Columns)
		s.hub.BroadcastDatasetUpdate(actionCreated, stored.info.ID, stored.info.Name)
	}

	s.logger.InfoContext(ctx, "dataset uploaded and analyzed",
		slog.String("dataset_id", stored.info.ID),
		slog.String("filename", filename),
		slog.String("format", string(format)),
		slog.Int("rows", stored.info.Rows),
		slog.Int("columns", stored.info.Columns),
		slog.Bool("cache_hit", result.cacheHit),
		slog.Duration("duration", time.Since(start)),
	)

	info := stored.info
	return &info, nil
}

// loadAndAnalyze parses and analyzes one upload, collapsing concurrent
// identical uploads onto a single flight.
func (s *AnalysisService) loadAndAnalyze(ctx context.Context, fingerprint string, format loader.Format, data []byte, traceID string) (*uploadResult, error) {
	v, err, shared := s.flight.Do(fingerprint, func() (interface{}, error) {
		ds, hit, err := s.cache.GetOrLoad(ctx, fingerprint, func(ctx context.Context) (*dataset.Dataset, error) {
			return s.loader.LoadReader(ctx, bytes.NewReader(data), format)
		})
		if err != nil {
			return nil, err
		}

		s.progress(StageAnalyze, 60, "classifying columns", traceID)
		analysis, err := s.engine.Analyze(ctx, ds)
		if err != nil {
			return nil, translateEngineError(err)
		}
		return &uploadResult{data: ds, analysis: analysis, cacheHit: hit}, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.logger.DebugContext(ctx, "upload collapsed onto concurrent flight",
			slog.String("fingerprint", fingerprint))
	}
	return v.(*uploadResult), nil
}

// List returns the catalog of stored datasets, newest first.
func (s *AnalysisService) List(ctx context.Context) []domain.DatasetInfo {
	s.mu.RLock()
	infos := make([]domain.DatasetInfo, 0, len(s.datasets))
	for _, sd := range s.datasets {
		infos = append(infos, sd.info)
	}
	s.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].UploadedAt.Equal(infos[j].UploadedAt) {
			return infos[i].Name < infos[j].Name
		}
		return infos[i].UploadedAt.After(infos[j].UploadedAt)
	})

	s.logger.DebugContext(ctx, "datasets listed", slog.Int("count", len(infos)))
	return infos
}

// Get returns the full stored view of one dataset.
func (s *AnalysisService) Get(ctx context.Context, id string) (*domain.DatasetDetail, error) {
	sd, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	return s.detailFor(sd), nil
}

// Delete removes one dataset from the store. The parse cache keeps its
// entry; identical re-uploads stay cheap until the TTL runs out.
func (s *AnalysisService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	sd, ok := s.datasets[id]
	if ok {
		delete(s.datasets, id)
	}
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("delete dataset %q: %w", id, apperrors.ErrDatasetNotFound)
	}

	infrastructure.RecordActiveDatasetChange(ctx, s.metrics, -1)
	if s.hub != nil {
		s.hub.BroadcastDatasetUpdate(actionDeleted, id, sd.info.Name)
	}

	s.logger.InfoContext(ctx, "dataset deleted",
		slog.String("dataset_id", id),
		slog.String("name", sd.info.Name),
	)
	return nil
}

// Profiles returns the per-column classification verdicts.
func (s *AnalysisService) Profiles(ctx context.Context, id string) ([]domain.ColumnProfile, error) {
	sd, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	profiles := make([]domain.ColumnProfile, len(sd.analysis.Profiles))
	for i, p := range sd.analysis.Profiles {
		profiles[i] = domain.ColumnProfile{Column: p.Column, Type: string(p.Type)}
	}
	return profiles, nil
}

// Recommendations returns the visualization menu in its fixed order.
func (s *AnalysisService) Recommendations(ctx context.Context, id string) ([]domain.Recommendation, error) {
	sd, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	recs := make([]domain.Recommendation, len(sd.analysis.Recommendations))
	for i, r := range sd.analysis.Recommendations {
		recs[i] = domain.Recommendation{Category: string(r.Category), Columns: r.Columns}
	}
	return recs, nil
}

// Correlations returns the ranked pairwise coefficients. A negative
// threshold means the one the analysis was stored with; anything else
// recomputes over the same numeric columns.
func (s *AnalysisService) Correlations(ctx context.Context, id string, threshold float64) ([]domain.CorrelationResult, error) {
	sd, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	pairs := sd.analysis.Correlations
	if threshold >= 0 {
		if threshold > 1 {
			return nil, apperrors.NewAppValidationError(fmt.Sprintf("correlation threshold %g outside [0, 1]", threshold))
		}
		names := numericColumnNames(sd.analysis.Profiles)
		pairs, err = s.engine.Correlations(sd.data, names, threshold)
		if err != nil {
			return nil, translateEngineError(err)
		}
		s.logger.DebugContext(ctx, "correlations recomputed",
			slog.String("dataset_id", id),
			slog.Float64("threshold", threshold),
			slog.Int("pairs", len(pairs)),
		)
	}

	results := make([]domain.CorrelationResult, len(pairs))
	for i, p := range pairs {
		results[i] = domain.CorrelationResult{
			ColumnA:     p.ColumnA,
			ColumnB:     p.ColumnB,
			Coefficient: p.Coefficient,
			Important:   p.Important,
		}
	}
	return results, nil
}

// ColumnSummary returns descriptive statistics for one column. A column
// without numeric values yields a zero-count summary rather than an error.
func (s *AnalysisService) ColumnSummary(ctx context.Context, id, column string) (*domain.ColumnSummary, error) {
	sd, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	summary, err := s.engine.SummarizeColumn(sd.data, column)
	if err != nil {
		return nil, translateEngineError(err)
	}

	return &domain.ColumnSummary{
		Column: column,
		Type:   string(s.columnType(sd, column)),
		Stats: domain.DescriptiveStats{
			Count:  summary.Count,
			Mean:   summary.Mean,
			Median: summary.Median,
			Std:    summary.Std,
			Min:    summary.Min,
			Max:    summary.Max,
			Mode:   summary.Mode,
		},
	}, nil
}

// ColumnOutliers returns the values of one column outside the Tukey fences.
func (s *AnalysisService) ColumnOutliers(ctx context.Context, id, column string) (*domain.ColumnOutliers, error) {
	sd, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	outliers, err := s.engine.OutliersForColumn(sd.data, column)
	if err != nil {
		return nil, translateEngineError(err)
	}

	return &domain.ColumnOutliers{
		Column:   column,
		Count:    len(outliers),
		Outliers: outliers,
	}, nil
}

// TimeSeries resamples one numeric column over a datetime column. An empty
// dateColumn picks the first datetime-classified column of the dataset; an
// empty granularity lets the engine choose from the observed date range.
func (s *AnalysisService) TimeSeries(ctx context.Context, id, valueColumn, dateColumn string, g engine.Granularity, agg engine.Aggregation) (*domain.TimeSeriesResult, error) {
	sd, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	if dateColumn == "" {
		dateColumn = firstDatetimeColumn(sd.analysis.Profiles)
		if dateColumn == "" {
			return nil, fmt.Errorf("dataset %q has no datetime column: %w", id, apperrors.ErrColumnNotTemporal)
		}
	}

	series, err := s.engine.BuildTimeSeries(sd.data, dateColumn, valueColumn, g, agg)
	if err != nil {
		return nil, translateEngineError(err)
	}

	buckets := make([]domain.TimeBucket, len(series.Buckets))
	for i, b := range series.Buckets {
		buckets[i] = domain.TimeBucket{Start: b.Start, Value: b.Value, Count: b.Count}
	}
	return &domain.TimeSeriesResult{
		DateColumn:  series.DateColumn,
		ValueColumn: series.ValueColumn,
		Granularity: string(series.Granularity),
		Aggregation: string(series.Aggregation),
		Buckets:     buckets,
		TrendSlope:  series.TrendSlope,
	}, nil
}

// Report builds the full analysis report for one dataset.
func (s *AnalysisService) Report(ctx context.Context, id string) (*report.Report, error) {
	sd, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	r, err := s.builder.Build(ctx, sd.data)
	if err != nil {
		return nil, translateEngineError(err)
	}
	return r, nil
}

// RenderReport builds the report and writes it to out in the requested
// format.
func (s *AnalysisService) RenderReport(ctx context.Context, id string, format report.Format, out io.Writer) error {
	if !format.IsValid() {
		return apperrors.NewAppValidationError(fmt.Sprintf("invalid report format %q", format))
	}

	r, err := s.Report(ctx, id)
	if err != nil {
		return err
	}

	if err := s.writer.Write(out, r, format); err != nil {
		return fmt.Errorf("render report %q: %w", id, err)
	}
	infrastructure.RecordReportGenerated(ctx, s.metrics, string(format))
	return nil
}

// EnrichGeocode appends geocoded latitude/longitude columns for a place
// column and re-runs the analysis. The stored snapshot is replaced with an
// enriched copy; the parse cache keeps the original bytes' parse.
func (s *AnalysisService) EnrichGeocode(ctx context.Context, id, placeColumn string) (*domain.DatasetDetail, error) {
	if s.geocoder == nil {
		return nil, apperrors.NewAppValidationError("geocoding is disabled")
	}

	sd, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	traceID := infrastructure.GetTraceID(ctx)
	s.progress(StageEnrich, 30, fmt.Sprintf("geocoding %s", placeColumn), traceID)

	// Work on a copy so the cached snapshot keeps matching its fingerprint.
	cols := append([]*dataset.Column(nil), sd.data.Columns()...)
	enriched, err := dataset.New(cols...)
	if err != nil {
		return nil, fmt.Errorf("copy dataset %q: %w", id, err)
	}

	if err := s.geocoder.EnrichDataset(ctx, enriched, placeColumn); err != nil {
		s.broadcastFailure(StageEnrich, err)
		logAnalysisError(ctx, "enrich_geocode", "enrichment failed",
			slog.String("dataset_id", id),
			slog.String("column", placeColumn),
			slog.String("error", err.Error()))
		return nil, err
	}

	s.progress(StageAnalyze, 70, "re-analyzing enriched dataset", traceID)
	analysis, err := s.engine.Analyze(ctx, enriched)
	if err != nil {
		return nil, translateEngineError(err)
	}

	s.mu.Lock()
	current, ok := s.datasets[id]
	if ok {
		updated := &storedDataset{info: current.info, data: enriched, analysis: analysis}
		updated.info.Columns = len(enriched.Columns())
		s.datasets[id] = updated
		sd = updated
	}
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("enrich dataset %q: %w", id, apperrors.ErrDatasetNotFound)
	}

	if s.hub != nil {
		s.hub.BroadcastDatasetUpdate(actionUpdated, id, sd.info.Name)
	}

	s.logger.InfoContext(ctx, "dataset enriched",
		slog.String("dataset_id", id),
		slog.String("column", placeColumn),
		slog.Int("columns", sd.info.Columns),
	)
	return s.detailFor(sd), nil
}

// DatasetCount reports how many datasets the store holds.
func (s *AnalysisService) DatasetCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.datasets)
}

// GeocodeEnabled reports whether a geocoding client is wired.
func (s *AnalysisService) GeocodeEnabled() bool {
	return s.geocoder != nil
}

// CacheEntries reports how many parses the cache holds.
func (s *AnalysisService) CacheEntries() int {
	return s.cache.Len()
}

// lookup resolves a dataset id against the store.
func (s *AnalysisService) lookup(id string) (*storedDataset, error) {
	s.mu.RLock()
	sd, ok := s.datasets[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("dataset %q: %w", id, apperrors.ErrDatasetNotFound)
	}
	return sd, nil
}

// columnType resolves a column's classified type from the stored profiles.
func (s *AnalysisService) columnType(sd *storedDataset, column string) engine.ColumnType {
	for _, p := range sd.analysis.Profiles {
		if p.Column == column {
			return p.Type
		}
	}
	return ""
}

// detailFor assembles the full dataset view from one store entry.
func (s *AnalysisService) detailFor(sd *storedDataset) *domain.DatasetDetail {
	detail := &domain.DatasetDetail{
		DatasetInfo: sd.info,
		ColumnNames: sd.data.ColumnNames(),
	}

	detail.Profiles = make([]domain.ColumnProfile, len(sd.analysis.Profiles))
	for i, p := range sd.analysis.Profiles {
		detail.Profiles[i] = domain.ColumnProfile{Column: p.Column, Type: string(p.Type)}
	}

	detail.Recommendations = make([]domain.Recommendation, len(sd.analysis.Recommendations))
	for i, r := range sd.analysis.Recommendations {
		detail.Recommendations[i] = domain.Recommendation{Category: string(r.Category), Columns: r.Columns}
	}

	detail.Correlations = make([]domain.CorrelationResult, len(sd.analysis.Correlations))
	for i, p := range sd.analysis.Correlations {
		detail.Correlations[i] = domain.CorrelationResult{
			ColumnA:     p.ColumnA,
			ColumnB:     p.ColumnB,
			Coefficient: p.Coefficient,
			Important:   p.Important,
		}
	}

	for _, col := range sd.data.Columns() {
		missing := col.MissingCount()
		if missing == 0 {
			continue
		}
		percent := float64(missing) / float64(col.Len()) * 100
		detail.MissingValues = append(detail.MissingValues, domain.ColumnMissingness{
			Column:  col.Name,
			Missing: missing,
			Percent: percent,
		})
	}

	return detail
}

// progress pushes one stage update when a hub is attached.
func (s *AnalysisService) progress(stage string, percent int, message, traceID string) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastProgressWithTrace(stage, percent, message, traceID)
}

// broadcastFailure mirrors an upload failure onto the hub with the matching
// recovery hint code.
func (s *AnalysisService) broadcastFailure(stage string, err error) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastError(errorCode(err), "analysis failed", err.Error(), stage, true)
}

// errorCode names an error for hub consumers.
func errorCode(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrUnsupportedFormat):
		return "UNSUPPORTED_FORMAT"
	case errors.Is(err, apperrors.ErrDatasetTooLarge):
		return "DATASET_TOO_LARGE"
	case errors.Is(err, apperrors.ErrDatasetEmpty):
		return "DATASET_EMPTY"
	default:
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && appErr.Type == apperrors.ErrTypeParsing {
			return "PARSE_FAILED"
		}
		return "ANALYSIS_FAILED"
	}
}

// translateEngineError converts the engine's shape sentinels into the
// shared ones the transport layer maps to problem documents.
func translateEngineError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, engine.ErrEmptyDataset):
		return fmt.Errorf("%v: %w", err, apperrors.ErrDatasetEmpty)
	case errors.Is(err, engine.ErrColumnNotFound):
		return fmt.Errorf("%v: %w", err, apperrors.ErrColumnNotFound)
	default:
		return err
	}
}

// numericColumnNames selects the columns classified into a numeric type.
func numericColumnNames(profiles []engine.ColumnTypeProfile) []string {
	names := make([]string, 0, len(profiles))
	for _, p := range profiles {
		if p.Type.IsNumeric() {
			names = append(names, p.Column)
		}
	}
	return names
}

// firstDatetimeColumn returns the first datetime-classified column, or "".
func firstDatetimeColumn(profiles []engine.ColumnTypeProfile) string {
	for _, p := range profiles {
		if p.Type == engine.TypeDateTime {
			return p.Column
		}
	}
	return ""
}
