// Package config provides centralized configuration management for TabSight.
// It handles loading configuration from multiple sources, validation, and provides
// a type-safe API for accessing configuration values throughout the application.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. Configuration files (YAML)
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern TABSIGHT_* for namespacing:
//
//	TABSIGHT_SERVER_PORT=8080
//	TABSIGHT_LOGGING_LEVEL=info
//	TABSIGHT_ENGINE_CORRELATION_THRESHOLD=0.3
//	TABSIGHT_LOADER_MAX_BYTES=104857600
//	TABSIGHT_GEOCODE_ENABLED=true
//
// # Configuration Structure
//
// The main configuration struct groups settings by concern:
//
//	type Config struct {
//	    Server    ServerConfig    // HTTP server timeouts and port
//	    Security  SecurityConfig  // CORS origins and rate limits
//	    Logging   LoggingConfig   // Level, format, output
//	    Engine    EngineConfig    // Classification thresholds
//	    Loader    LoaderConfig    // Dataset ingestion bounds
//	    Cache     CacheConfig     // Parsed-dataset cache
//	    Geocode   GeocodeConfig   // Place-name enrichment client
//	    WebSocket WebSocketConfig // Progress push channel
//	}
//
// # Path Management
//
// The package provides centralized path management through the Paths type,
// which handles all file system paths relative to the executable location:
//
//	paths, err := config.GetPaths()
//	uploadPath := paths.GetUploadPath("sales.csv")
//	reportPath := paths.GetReportPath("sales_report.json")
//
// # Validation
//
// All configuration is validated at load time to ensure:
//
//	- Required fields are present
//	- Values are within acceptable ranges
//	- File paths are accessible
//	- Thresholds fall inside their valid intervals
//
// # Usage
//
// Load configuration at application startup:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Testing
//
// For testing, use config.Default() to create a configuration with
// sensible defaults that don't require environment variables or
// external resources.
package config
