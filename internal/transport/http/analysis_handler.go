package http

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apierrors "tabsight/internal/errors"
	"tabsight/internal/engine"
	"tabsight/internal/report"
	"tabsight/pkg/contracts/domain"
)

// uploadMemoryLimit caps how much of a multipart upload is buffered in
// memory before spilling to disk.
const uploadMemoryLimit = 32 << 20

// AnalysisHandler handles dataset upload and analysis HTTP requests with
// RFC 7807 compliance
type AnalysisHandler struct {
	service      AnalysisServiceInterface
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
	validate     *validator.Validate
}

// NewAnalysisHandler creates a new analysis handler with RFC 7807 error
// handling
func NewAnalysisHandler(service AnalysisServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *AnalysisHandler {
	return &AnalysisHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "analysis_handler")),
		errorHandler: errorHandler,
		validate:     validator.New(),
	}
}

// Routes returns the dataset routes with proper Chi patterns
func (h *AnalysisHandler) Routes() chi.Router {
	r := chi.NewRouter()

	// Use render for consistent JSON responses
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Post("/", h.UploadDataset)
	r.Get("/", h.ListDatasets)

	// Sub-resource routes
	r.Route("/{id}", func(r chi.Router) {
		r.Use(h.DatasetCtx) // Validate dataset id format
		r.Get("/", h.GetDataset)
		r.Delete("/", h.DeleteDataset)
		r.Get("/profiles", h.GetProfiles)
		r.Get("/recommendations", h.GetRecommendations)
		r.Get("/correlations", h.GetCorrelations)
		r.Get("/report", h.GetReport)
		r.Post("/enrich", h.EnrichDataset)

		r.Route("/columns/{column}", func(r chi.Router) {
			r.Use(h.ColumnCtx) // Validate column parameter
			r.Get("/summary", h.GetColumnSummary)
			r.Get("/outliers", h.GetColumnOutliers)
			r.Get("/timeseries", h.GetColumnTimeSeries)
		})
	})

	return r
}

// DatasetCtx middleware validates the dataset id parameter
func (h *AnalysisHandler) DatasetCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("id", "Dataset id is required"))
			return
		}

		if err := h.validate.Var(id, "uuid4"); err != nil {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("id", "Dataset id must be a UUID"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ColumnCtx middleware validates the column parameter
func (h *AnalysisHandler) ColumnCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		column := chi.URLParam(r, "column")
		if column == "" {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("column", "Column name is required"))
			return
		}
		if len(column) > 256 {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("column", "Column name is too long"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// renderServiceError maps a service error onto an RFC 7807 problem document
// keyed by the request id.
func (h *AnalysisHandler) renderServiceError(w http.ResponseWriter, r *http.Request, err error) {
	reqID := middleware.GetReqID(r.Context())

	h.logger.ErrorContext(r.Context(), "request failed",
		slog.String("error", err.Error()),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	render.Render(w, r, apierrors.MapAnalysisError(err, reqID))
}

// UploadDataset handles POST /api/datasets with a multipart file upload
func (h *AnalysisHandler) UploadDataset(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	if err := r.ParseMultipartForm(uploadMemoryLimit); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("body", "Request must be multipart/form-data with a 'file' field"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("file", "Multipart field 'file' is required"))
		return
	}
	defer file.Close()

	req := domain.UploadRequest{Filename: header.Filename, SizeBytes: header.Size}
	if err := h.validate.Struct(req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("file", "Upload needs a filename and a non-empty body"))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.New(
			http.StatusBadRequest,
			"UPLOAD_READ_FAILED",
			"Could not read the uploaded file",
		))
		return
	}

	h.logger.InfoContext(r.Context(), "uploading dataset",
		slog.String("request_id", reqID),
		slog.String("filename", header.Filename),
		slog.Int64("size", header.Size),
	)

	info, err := h.service.Upload(r.Context(), header.Filename, data)
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   info,
	})
}

// ListDatasets handles GET /api/datasets
func (h *AnalysisHandler) ListDatasets(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	h.logger.InfoContext(r.Context(), "listing datasets",
		slog.String("request_id", reqID),
	)

	datasets := h.service.List(r.Context())

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   datasets,
		"count":  len(datasets),
	})
}

// GetDataset handles GET /api/datasets/{id}
func (h *AnalysisHandler) GetDataset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	detail, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   detail,
	})
}

// DeleteDataset handles DELETE /api/datasets/{id}
func (h *AnalysisHandler) DeleteDataset(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())
	id := chi.URLParam(r, "id")

	h.logger.InfoContext(r.Context(), "deleting dataset",
		slog.String("request_id", reqID),
		slog.String("dataset_id", id),
	)

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.renderServiceError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   map[string]string{"id": id},
	})
}

// GetProfiles handles GET /api/datasets/{id}/profiles
func (h *AnalysisHandler) GetProfiles(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	profiles, err := h.service.Profiles(r.Context(), id)
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   profiles,
		"count":  len(profiles),
	})
}

// GetRecommendations handles GET /api/datasets/{id}/recommendations
func (h *AnalysisHandler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	recommendations, err := h.service.Recommendations(r.Context(), id)
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   recommendations,
		"count":  len(recommendations),
	})
}

// GetCorrelations handles GET /api/datasets/{id}/correlations. Without a
// threshold parameter the pairs stored at analysis time are returned;
// with one they are recomputed.
func (h *AnalysisHandler) GetCorrelations(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	threshold := -1.0
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < 0 || parsed > 1 {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("threshold", "Threshold must be a number between 0 and 1"))
			return
		}
		threshold = parsed
	}

	correlations, err := h.service.Correlations(r.Context(), id, threshold)
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   correlations,
		"count":  len(correlations),
	})
}

// GetColumnSummary handles GET /api/datasets/{id}/columns/{column}/summary
func (h *AnalysisHandler) GetColumnSummary(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	column := chi.URLParam(r, "column")

	summary, err := h.service.ColumnSummary(r.Context(), id, column)
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   summary,
	})
}

// GetColumnOutliers handles GET /api/datasets/{id}/columns/{column}/outliers
func (h *AnalysisHandler) GetColumnOutliers(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	column := chi.URLParam(r, "column")

	outliers, err := h.service.ColumnOutliers(r.Context(), id, column)
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   outliers,
		"count":  outliers.Count,
	})
}

// GetColumnTimeSeries handles GET /api/datasets/{id}/columns/{column}/timeseries.
// The path column is the numeric value column; the date column comes from
// the "date" query parameter or is auto-detected.
func (h *AnalysisHandler) GetColumnTimeSeries(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())
	id := chi.URLParam(r, "id")
	column := chi.URLParam(r, "column")

	var granularity engine.Granularity
	if raw := r.URL.Query().Get("granularity"); raw != "" {
		parsed, err := engine.ParseGranularity(raw)
		if err != nil {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("granularity", "Granularity must be one of: daily, weekly, monthly"))
			return
		}
		granularity = parsed
	}

	var aggregation engine.Aggregation
	if raw := r.URL.Query().Get("agg"); raw != "" {
		parsed, err := engine.ParseAggregation(raw)
		if err != nil {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("agg", "Aggregation must be one of: mean, sum, median, min, max"))
			return
		}
		aggregation = parsed
	}

	dateColumn := r.URL.Query().Get("date")

	h.logger.InfoContext(r.Context(), "building time series",
		slog.String("request_id", reqID),
		slog.String("dataset_id", id),
		slog.String("value_column", column),
		slog.String("date_column", dateColumn),
		slog.String("granularity", string(granularity)),
		slog.String("aggregation", string(aggregation)),
	)

	series, err := h.service.TimeSeries(r.Context(), id, column, dateColumn, granularity, aggregation)
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   series,
		"count":  len(series.Buckets),
	})
}

// GetReport handles GET /api/datasets/{id}/report. The format parameter
// selects the rendering; csv and markdown stream as downloads.
func (h *AnalysisHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())
	id := chi.URLParam(r, "id")

	format := report.Format(r.URL.Query().Get("format"))
	if format == "" {
		format = report.FormatJSON
	}
	if !format.IsValid() {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("format", "Format must be one of: json, csv, markdown"))
		return
	}

	h.logger.InfoContext(r.Context(), "rendering report",
		slog.String("request_id", reqID),
		slog.String("dataset_id", id),
		slog.String("format", string(format)),
	)

	if format == report.FormatJSON {
		rep, err := h.service.Report(r.Context(), id)
		if err != nil {
			h.renderServiceError(w, r, err)
			return
		}
		render.JSON(w, r, map[string]interface{}{
			"status": "success",
			"data":   rep,
		})
		return
	}

	// Render into a buffer so a failed build still comes back as a problem
	// document instead of a half-written download.
	var buf bytes.Buffer
	if err := h.service.RenderReport(r.Context(), id, format, &buf); err != nil {
		h.renderServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", reportContentType(format))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "report."+reportExtension(format)))
	w.Write(buf.Bytes())
}

// EnrichDataset handles POST /api/datasets/{id}/enrich: geocode a place
// column and re-analyze.
func (h *AnalysisHandler) EnrichDataset(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())
	id := chi.URLParam(r, "id")

	var req domain.EnrichRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("body", "Request body must be JSON with a 'column' field"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("column", "Column name is required"))
		return
	}

	h.logger.InfoContext(r.Context(), "enriching dataset",
		slog.String("request_id", reqID),
		slog.String("dataset_id", id),
		slog.String("column", req.Column),
	)

	detail, err := h.service.EnrichGeocode(r.Context(), id, req.Column)
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   detail,
	})
}

func reportContentType(format report.Format) string {
	switch format {
	case report.FormatCSV:
		return "text/csv; charset=utf-8"
	case report.FormatMarkdown:
		return "text/markdown; charset=utf-8"
	default:
		return "application/json; charset=utf-8"
	}
}

func reportExtension(format report.Format) string {
	switch format {
	case report.FormatCSV:
		return "csv"
	case report.FormatMarkdown:
		return "md"
	default:
		return "json"
	}
}
