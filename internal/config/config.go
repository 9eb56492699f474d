package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Engine    EngineConfig    `yaml:"engine" envconfig:"ENGINE"`
	Loader    LoaderConfig    `yaml:"loader" envconfig:"LOADER"`
	Cache     CacheConfig     `yaml:"cache" envconfig:"CACHE"`
	Geocode   GeocodeConfig   `yaml:"geocode" envconfig:"GEOCODE"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES" default:"1048576"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	AnalysisTimeout time.Duration `yaml:"analysis_timeout" envconfig:"ANALYSIS_TIMEOUT" default:"5m"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8080"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS" default:"true"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"100"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"50"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format      string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output      string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/app.log"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT" default:"true"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	ExecutableDir string `yaml:"executable_dir" envconfig:"EXECUTABLE_DIR"`
	DataDir       string `yaml:"data_dir" envconfig:"DATA_DIR" default:"data"`
	WebDir        string `yaml:"web_dir" envconfig:"WEB_DIR" default:"web"`
	LogsDir       string `yaml:"logs_dir" envconfig:"LOGS_DIR" default:"logs"`
}

// EngineConfig tunes the column classification engine
type EngineConfig struct {
	CorrelationThreshold float64 `yaml:"correlation_threshold" envconfig:"CORRELATION_THRESHOLD" default:"0.3"`
	MaxCategories        int     `yaml:"max_categories" envconfig:"MAX_CATEGORIES" default:"10"`
	DatetimeSampleSize   int     `yaml:"datetime_sample_size" envconfig:"DATETIME_SAMPLE_SIZE" default:"100"`
}

// LoaderConfig bounds dataset ingestion
type LoaderConfig struct {
	MaxRows               int    `yaml:"max_rows" envconfig:"MAX_ROWS" default:"1000000"`
	MaxBytes              int64  `yaml:"max_bytes" envconfig:"MAX_BYTES" default:"104857600"`
	SheetsCredentialsFile string `yaml:"sheets_credentials_file" envconfig:"SHEETS_CREDENTIALS_FILE"`
}

// CacheConfig controls the parsed-dataset cache
type CacheConfig struct {
	TTL        time.Duration `yaml:"ttl" envconfig:"TTL" default:"15m"`
	MaxEntries int           `yaml:"max_entries" envconfig:"MAX_ENTRIES" default:"64"`
}

// GeocodeConfig configures the optional place-name enrichment client
type GeocodeConfig struct {
	Enabled    bool          `yaml:"enabled" envconfig:"ENABLED" default:"false"`
	BaseURL    string        `yaml:"base_url" envconfig:"BASE_URL" default:"https://nominatim.openstreetmap.org"`
	APIKey     string        `yaml:"api_key" envconfig:"API_KEY"`
	Timeout    time.Duration `yaml:"timeout" envconfig:"TIMEOUT" default:"5s"`
	RetryDelay time.Duration `yaml:"retry_delay" envconfig:"RETRY_DELAY" default:"2s"`
	RateLimit  float64       `yaml:"rate_limit" envconfig:"RATE_LIMIT" default:"1"`
	Burst      int           `yaml:"burst" envconfig:"BURST" default:"1"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE" default:"1024"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE" default:"1024"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD" default:"30s"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT" default:"60s"`
}

// Load loads configuration from environment variables and config file
func Load() (*Config, error) {
	var cfg Config

	// Load from environment variables first
	if err := envconfig.Process("TABSIGHT", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// Load from config file if exists
	configFile := getConfigFilePath()
	if _, err := os.Stat(configFile); err == nil {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileConfig, cfg)
	}

	// Resolve relative paths
	if err := cfg.resolvePaths(); err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	// Validate paths
	if err := cfg.ValidatePaths(); err != nil {
		return nil, fmt.Errorf("path validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// mergeConfigs merges file config with env config (env takes precedence).
// Only fields without envconfig defaults can still be zero after Process,
// so those are the ones the file can supply.
func mergeConfigs(fileConfig, envConfig Config) Config {
	if envConfig.Paths.ExecutableDir == "" {
		envConfig.Paths.ExecutableDir = fileConfig.Paths.ExecutableDir
	}
	if envConfig.Loader.SheetsCredentialsFile == "" {
		envConfig.Loader.SheetsCredentialsFile = fileConfig.Loader.SheetsCredentialsFile
	}
	if envConfig.Geocode.APIKey == "" {
		envConfig.Geocode.APIKey = fileConfig.Geocode.APIKey
	}

	return envConfig
}

// resolvePaths sets up the executable directory
func (c *Config) resolvePaths() error {
	// Use centralized paths system to get all paths
	paths, err := GetPaths()
	if err != nil {
		return fmt.Errorf("failed to get paths: %w", err)
	}

	// Update config with resolved paths from centralized system
	c.Paths.ExecutableDir = paths.ExecutableDir

	return nil
}

// ValidatePaths validates that critical paths exist or can be created
func (c *Config) ValidatePaths() error {
	paths, err := GetPaths()
	if err != nil {
		return fmt.Errorf("failed to get paths: %w", err)
	}

	// Ensure all required directories exist
	if err := paths.EnsureDirectories(); err != nil {
		return fmt.Errorf("failed to ensure directories: %w", err)
	}

	// Log path resolution for debugging
	paths.LogPathResolution()

	return nil
}

// GetDataDir returns the resolved data directory path
func (c *Config) GetDataDir() string {
	paths, err := GetPaths()
	if err != nil {
		// Fallback to config-based resolution if paths system fails
		if filepath.IsAbs(c.Paths.DataDir) {
			return c.Paths.DataDir
		}
		return filepath.Join(c.Paths.ExecutableDir, c.Paths.DataDir)
	}
	return paths.DataDir
}

// GetWebDir returns the resolved web directory path
func (c *Config) GetWebDir() string {
	paths, err := GetPaths()
	if err != nil {
		if filepath.IsAbs(c.Paths.WebDir) {
			return c.Paths.WebDir
		}
		return filepath.Join(c.Paths.ExecutableDir, c.Paths.WebDir)
	}
	return paths.WebDir
}

// GetLogsDir returns the resolved logs directory path
func (c *Config) GetLogsDir() string {
	paths, err := GetPaths()
	if err != nil {
		if filepath.IsAbs(c.Paths.LogsDir) {
			return c.Paths.LogsDir
		}
		return filepath.Join(c.Paths.ExecutableDir, c.Paths.LogsDir)
	}
	return paths.LogsDir
}

// GetSheetsCredentialsFile returns the resolved Google Sheets credentials path
func (c *Config) GetSheetsCredentialsFile() string {
	if c.Loader.SheetsCredentialsFile == "" {
		paths, err := GetPaths()
		if err != nil {
			return ""
		}
		return paths.CredentialsFile
	}
	if filepath.IsAbs(c.Loader.SheetsCredentialsFile) {
		return c.Loader.SheetsCredentialsFile
	}
	return filepath.Join(c.Paths.ExecutableDir, c.Loader.SheetsCredentialsFile)
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}

	if c.Engine.CorrelationThreshold < 0 || c.Engine.CorrelationThreshold > 1 {
		return fmt.Errorf("correlation threshold must be in [0, 1], got %g", c.Engine.CorrelationThreshold)
	}

	if c.Engine.MaxCategories < 2 {
		return fmt.Errorf("max categories must be at least 2, got %d", c.Engine.MaxCategories)
	}

	if c.Engine.DatetimeSampleSize <= 0 {
		return fmt.Errorf("datetime sample size must be positive, got %d", c.Engine.DatetimeSampleSize)
	}

	if c.Loader.MaxRows <= 0 {
		return fmt.Errorf("loader max rows must be positive, got %d", c.Loader.MaxRows)
	}

	if c.Loader.MaxBytes <= 0 {
		return fmt.Errorf("loader max bytes must be positive, got %d", c.Loader.MaxBytes)
	}

	if c.Cache.MaxEntries <= 0 {
		return fmt.Errorf("cache max entries must be positive, got %d", c.Cache.MaxEntries)
	}

	if c.Geocode.Enabled {
		if c.Geocode.BaseURL == "" {
			return fmt.Errorf("geocode base URL is required when geocoding is enabled")
		}
		if c.Geocode.RateLimit <= 0 {
			return fmt.Errorf("geocode rate limit must be positive, got %g", c.Geocode.RateLimit)
		}
	}

	// Logging is always structured JSON
	if c.Logging.Format != "json" {
		c.Logging.Format = "json"
	}

	if c.Logging.Output != "both" && c.Logging.Output != "file" {
		c.Logging.Output = "both"
	}

	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/app.log"
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	// Check for config file in common locations
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
		"../../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
			AnalysisTimeout: DefaultAnalysisTimeout,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: FeatureRateLimitingEnabled,
				RPS:     DefaultRateLimit,
				Burst:   DefaultBurstSize,
			},
		},
		Logging: LoggingConfig{
			Level:       DefaultLogLevel,
			Format:      DefaultLogFormat,
			Output:      "both",
			FilePath:    "logs/app.log",
			Development: true,
		},
		Paths: PathsConfig{
			DataDir: DefaultDataDir,
			WebDir:  DefaultWebDir,
			LogsDir: DefaultLogsDir,
		},
		Engine: EngineConfig{
			CorrelationThreshold: DefaultCorrelationThreshold,
			MaxCategories:        DefaultMaxCategories,
			DatetimeSampleSize:   DefaultDatetimeSampleSize,
		},
		Loader: LoaderConfig{
			MaxRows:  MaxDatasetRows,
			MaxBytes: MaxUploadSize,
		},
		Cache: CacheConfig{
			TTL:        DatasetCacheDuration,
			MaxEntries: DatasetCacheEntries,
		},
		Geocode: GeocodeConfig{
			Enabled:    false,
			BaseURL:    NominatimBaseURL,
			Timeout:    GeocodeTimeout,
			RetryDelay: 2 * time.Second,
			RateLimit:  1,
			Burst:      1,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  WebSocketReadBufferSize,
			WriteBufferSize: WebSocketWriteBufferSize,
			PingPeriod:      WebSocketPingPeriod,
			PongWait:        WebSocketPongWait,
		},
	}
}
