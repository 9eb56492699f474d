package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/render"
)

// Analysis domain errors (using errors package for sentinel errors)
var (
	ErrDatasetNotFound   = errors.New("dataset not found")
	ErrDatasetEmpty      = errors.New("dataset is empty")
	ErrColumnNotFound    = errors.New("column not found")
	ErrColumnNotNumeric  = errors.New("column is not numeric")
	ErrColumnNotTemporal = errors.New("column is not a datetime column")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrDatasetTooLarge   = errors.New("dataset too large")
	ErrAnalysisFailed    = errors.New("analysis failed")
)

// DatasetDetails provides additional context for dataset errors
type DatasetDetails struct {
	DatasetID string `json:"dataset_id,omitempty"`
	Filename  string `json:"filename,omitempty"`
	Format    string `json:"format,omitempty"`
	SizeBytes int64  `json:"size_bytes,omitempty"`
	MaxBytes  int64  `json:"max_bytes,omitempty"`
	Rows      int    `json:"rows,omitempty"`
	Columns   int    `json:"columns,omitempty"`
}

// ProblemDetails implements RFC 7807 Problem Details for HTTP APIs
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	// Additional fields for extensibility
	Extensions map[string]interface{} `json:"-"`
}

// Render implements the render.Renderer interface
func (pd *ProblemDetails) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, pd.Status)
	return nil
}

// MarshalJSON custom marshaler to include extensions
func (pd *ProblemDetails) MarshalJSON() ([]byte, error) {
	data := make(map[string]interface{})

	// Add standard fields
	data["type"] = pd.Type
	data["title"] = pd.Title
	data["status"] = pd.Status

	if pd.Detail != "" {
		data["detail"] = pd.Detail
	}
	if pd.Instance != "" {
		data["instance"] = pd.Instance
	}

	// Add extensions
	for k, v := range pd.Extensions {
		data[k] = v
	}

	return json.Marshal(data)
}

// NewProblemDetails creates a new RFC 7807 compliant error
func NewProblemDetails(status int, problemType, title, detail, instance string) *ProblemDetails {
	return &ProblemDetails{
		Type:       problemType,
		Title:      title,
		Status:     status,
		Detail:     detail,
		Instance:   instance,
		Extensions: make(map[string]interface{}),
	}
}

// WithExtension adds an extension field to the problem details
func (pd *ProblemDetails) WithExtension(key string, value interface{}) *ProblemDetails {
	pd.Extensions[key] = value
	return pd
}

// NewDatasetTooLargeError creates an error carrying the observed and
// permitted sizes so clients can adjust uploads.
func NewDatasetTooLargeError(details *DatasetDetails, traceID string) *ProblemDetails {
	problem := NewProblemDetails(
		http.StatusRequestEntityTooLarge,
		"/errors/dataset-too-large",
		"Dataset Too Large",
		"The uploaded dataset exceeds the configured size limit.",
		fmt.Sprintf("/api/datasets#%s", traceID),
	)

	problem.WithExtension("error_type", "dataset_too_large").
		WithExtension("trace_id", traceID)

	if details != nil {
		if details.Filename != "" {
			problem.WithExtension("filename", details.Filename)
		}
		if details.SizeBytes > 0 {
			problem.WithExtension("size_bytes", details.SizeBytes)
		}
		if details.MaxBytes > 0 {
			problem.WithExtension("max_bytes", details.MaxBytes)
		}
	}

	return problem
}

// NewUnsupportedFormatError creates an error listing the formats the
// loader accepts.
func NewUnsupportedFormatError(details *DatasetDetails, traceID string) *ProblemDetails {
	problem := NewProblemDetails(
		http.StatusUnsupportedMediaType,
		"/errors/unsupported-format",
		"Unsupported File Format",
		"The uploaded file is not in a supported format.",
		fmt.Sprintf("/api/datasets#%s", traceID),
	)

	problem.WithExtension("error_type", "unsupported_format").
		WithExtension("trace_id", traceID).
		WithExtension("supported_formats", []string{"csv", "xlsx", "json"})

	if details != nil {
		if details.Filename != "" {
			problem.WithExtension("filename", details.Filename)
		}
		if details.Format != "" {
			problem.WithExtension("detected_format", details.Format)
		}
	}

	return problem
}

// MapAnalysisError maps domain errors to HTTP problem details
func MapAnalysisError(err error, traceID string) render.Renderer {
	instance := fmt.Sprintf("/api/datasets#trace-%s", traceID)

	// Check if it's an APIError from errors.go
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.ErrorCode == "DATASET_NOT_FOUND" {
			return NewProblemDetails(
				http.StatusNotFound,
				"/errors/dataset-not-found",
				"Dataset Not Found",
				"No dataset with that identifier is loaded. Upload one first.",
				instance,
			).WithExtension("trace_id", traceID).
				WithExtension("error_code", "DATASET_NOT_FOUND")
		}
	}

	switch {
	case errors.Is(err, ErrDatasetNotFound):
		return NewProblemDetails(
			http.StatusNotFound,
			"/errors/dataset-not-found",
			"Dataset Not Found",
			"No dataset with that identifier is loaded. Upload one first.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "DATASET_NOT_FOUND")

	case errors.Is(err, ErrColumnNotFound):
		return NewProblemDetails(
			http.StatusNotFound,
			"/errors/column-not-found",
			"Column Not Found",
			"The dataset has no column with that name.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "COLUMN_NOT_FOUND")

	case errors.Is(err, ErrDatasetEmpty):
		return NewProblemDetails(
			http.StatusUnprocessableEntity,
			"/errors/dataset-empty",
			"Dataset Empty",
			"The dataset contains no rows or no columns, so it cannot be analyzed.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "DATASET_EMPTY")

	case errors.Is(err, ErrColumnNotNumeric):
		return NewProblemDetails(
			http.StatusUnprocessableEntity,
			"/errors/column-not-numeric",
			"Column Not Numeric",
			"This operation requires a numeric column.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "COLUMN_NOT_NUMERIC")

	case errors.Is(err, ErrColumnNotTemporal):
		return NewProblemDetails(
			http.StatusUnprocessableEntity,
			"/errors/column-not-temporal",
			"Column Not Temporal",
			"This operation requires a datetime column.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "COLUMN_NOT_TEMPORAL")

	case errors.Is(err, ErrUnsupportedFormat):
		return NewUnsupportedFormatError(nil, traceID)

	case errors.Is(err, ErrDatasetTooLarge):
		return NewDatasetTooLargeError(nil, traceID)

	case errors.Is(err, ErrAnalysisFailed):
		return NewProblemDetails(
			http.StatusInternalServerError,
			"/errors/analysis-failed",
			"Analysis Failed",
			"The analysis could not be completed. Please try again later.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "ANALYSIS_FAILED")

	default:
		// AppError types carry enough to pick a status
		var appErr *AppError
		if errors.As(err, &appErr) {
			return appErrorToProblem(appErr, instance, traceID)
		}

		// Generic error
		return NewProblemDetails(
			http.StatusInternalServerError,
			"/errors/internal-error",
			"Internal Server Error",
			"An unexpected error occurred while processing your request.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "INTERNAL_ERROR")
	}
}

// appErrorToProblem maps AppError taxonomy types to problem documents.
func appErrorToProblem(appErr *AppError, instance, traceID string) *ProblemDetails {
	status := http.StatusInternalServerError
	problemType := "/errors/internal-error"

	switch appErr.Type {
	case ErrTypeValidation:
		status = http.StatusBadRequest
		problemType = "/errors/validation"
	case ErrTypeParsing:
		status = http.StatusUnprocessableEntity
		problemType = "/errors/parsing"
	case ErrTypeNotFound:
		status = http.StatusNotFound
		problemType = "/errors/not-found"
	case ErrTypePermission:
		status = http.StatusForbidden
		problemType = "/errors/forbidden"
	case ErrTypeNetwork:
		status = http.StatusServiceUnavailable
		problemType = "/errors/network"
	case ErrTypeStorage, ErrTypeConfig:
		// defaults hold
	}

	problem := NewProblemDetails(
		status,
		problemType,
		http.StatusText(status),
		appErr.Message,
		instance,
	).WithExtension("trace_id", traceID).
		WithExtension("error_code", string(appErr.Type))

	for k, v := range appErr.Context {
		problem.WithExtension(k, v)
	}
	return problem
}
