package config

import "time"

// Application constants - all hardcoded values for the TabSight system
const (
	// Application Info
	AppName    = "TabSight"
	AppVersion = "1.0.0"

	// Dataset Upload Limits
	MaxUploadSize     = 100 * 1024 * 1024 // 100MB
	MaxDatasetRows    = 1_000_000
	MaxColumnNameLen  = 256
	MaxUploadFileName = 255

	// Supported Upload Extensions
	ExtCSV   = ".csv"
	ExtExcel = ".xlsx"
	ExtJSON  = ".json"

	// Rate Limiting
	DefaultRateLimit = 100 // requests per minute
	DefaultBurstSize = 50
	UploadRateLimit  = 10 // uploads per minute

	// Network Timeouts
	DefaultHTTPTimeout  = 30 * time.Second
	GeocodeTimeout      = 5 * time.Second
	SheetsFetchTimeout  = 45 * time.Second
	WebSocketPingPeriod = 30 * time.Second
	WebSocketPongWait   = 60 * time.Second

	// File Paths (relative to executable)
	DefaultDataDir    = "data"
	DefaultLogsDir    = "logs"
	DefaultWebDir     = "web"
	DefaultUploadsDir = "data/uploads"
	DefaultReportsDir = "data/reports"

	// Cache Settings
	DatasetCacheDuration = 15 * time.Minute
	DatasetCacheEntries  = 64
	ReportCacheDuration  = 1 * time.Hour

	// Operation Timeouts
	DefaultAnalysisTimeout  = 5 * time.Minute
	DatasetLoadTimeout      = 2 * time.Minute
	ReportGenerationTimeout = 1 * time.Minute

	// WebSocket Buffer Sizes
	WebSocketReadBufferSize  = 1024
	WebSocketWriteBufferSize = 1024

	// Log Settings
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "json"
	MaxLogFileSize    = 100 * 1024 * 1024 // 100MB
	MaxLogFileAge     = 30                // days
	MaxLogFileBackups = 10

	// Analysis Defaults
	DefaultCorrelationThreshold = 0.3
	DefaultMaxCategories        = 10
	DefaultDatetimeSampleSize   = 100

	// Error Messages
	ErrMsgUnsupportedFormat = "Unsupported file format. Please upload a CSV, Excel (.xlsx) or JSON file."
	ErrMsgDatasetTooLarge   = "Dataset exceeds the maximum upload size. Please split the file or reduce its size."
	ErrMsgDatasetEmpty      = "The uploaded dataset contains no rows. Please check the file contents."
	ErrMsgNetworkError      = "Network error. Please check your internet connection."

	// Success Messages
	MsgAnalysisComplete = "Dataset analyzed successfully."
	MsgReportGenerated  = "Report generated successfully."
)

// Feature Flags - compile-time configuration
const (
	// Core Features
	FeatureWebSocketEnabled   = true
	FeatureMetricsEnabled     = true
	FeatureHealthCheckEnabled = true
	FeatureGeocodeEnabled     = true
	FeatureSheetsEnabled      = true

	// Security Features
	FeatureRateLimitingEnabled = true

	// Development Features
	FeatureDebugLoggingEnabled = false
	FeatureVerboseModeEnabled  = false
	FeatureMockDataEnabled     = false
)

// URLs and Endpoints (all embedded)
const (
	// External Services
	NominatimBaseURL = "https://nominatim.openstreetmap.org"

	// API Endpoints (internal)
	APIBasePath      = "/api"
	DatasetsEndpoint = "/api/datasets"
	HealthEndpoint   = "/api/health"
	MetricsEndpoint  = "/metrics"

	// WebSocket Endpoints
	WebSocketEndpoint = "/ws"
)

// GetFeatureFlag returns the value of a feature flag
func GetFeatureFlag(flag string) bool {
	switch flag {
	case "websocket":
		return FeatureWebSocketEnabled
	case "metrics":
		return FeatureMetricsEnabled
	case "health_check":
		return FeatureHealthCheckEnabled
	case "geocode":
		return FeatureGeocodeEnabled
	case "sheets":
		return FeatureSheetsEnabled
	case "rate_limiting":
		return FeatureRateLimitingEnabled
	case "debug_logging":
		return FeatureDebugLoggingEnabled
	case "verbose_mode":
		return FeatureVerboseModeEnabled
	case "mock_data":
		return FeatureMockDataEnabled
	default:
		return false
	}
}
