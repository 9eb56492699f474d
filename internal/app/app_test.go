package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabsight/internal/config"
	"tabsight/internal/infrastructure"
)

// setupTestEnvironment sets up a clean test environment
func setupTestEnvironment(t *testing.T) func() {
	t.Helper()

	infrastructure.ResetLoggerForTesting()

	// Use a dedicated port and quiet logging for tests
	os.Setenv("TABSIGHT_SERVER_PORT", "8157")
	os.Setenv("TABSIGHT_LOGGING_LEVEL", "error")

	return func() {
		os.Unsetenv("TABSIGHT_SERVER_PORT")
		os.Unsetenv("TABSIGHT_LOGGING_LEVEL")
		infrastructure.ResetLoggerForTesting()
	}
}

// createTestLogger creates a logger that discards output for testing
func createTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

func TestNewApplication(t *testing.T) {
	tests := []struct {
		name          string
		setupEnv      func()
		wantErr       bool
		errorContains string
	}{
		{
			name:     "successful initialization",
			setupEnv: func() {},
			wantErr:  false,
		},
		{
			name: "initialization with invalid config",
			setupEnv: func() {
				os.Setenv("TABSIGHT_SERVER_PORT", "-1")
			},
			wantErr:       true,
			errorContains: "config validation failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleanup := setupTestEnvironment(t)
			defer cleanup()

			if tt.setupEnv != nil {
				tt.setupEnv()
			}

			app, err := NewApplication()

			if tt.wantErr {
				assert.Error(t, err)
				if tt.errorContains != "" {
					assert.Contains(t, err.Error(), tt.errorContains)
				}
				assert.Nil(t, app)
			} else {
				assert.NoError(t, err)
				if assert.NotNil(t, app) {
					assert.NotNil(t, app.Config)
					assert.NotNil(t, app.Logger)
					assert.NotNil(t, app.Router)
					assert.NotNil(t, app.Server)
					assert.NotNil(t, app.WebSocketHub)
					assert.NotNil(t, app.AnalysisService)
					assert.NotNil(t, app.HealthService)
					assert.NotNil(t, app.OTelProviders)
					app.WebSocketHub.Stop()
				}
			}
		})
	}
}

func TestApplication_initializeServices(t *testing.T) {
	cleanup := setupTestEnvironment(t)
	defer cleanup()

	cfg, err := config.Load()
	require.NoError(t, err)

	logger := createTestLogger()
	otelProviders, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), logger)
	require.NoError(t, err)

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
	}

	err = app.initializeServices()
	require.NoError(t, err)
	defer app.WebSocketHub.Stop()

	assert.NotNil(t, app.WebSocketHub)
	assert.NotNil(t, app.AnalysisService)
	assert.NotNil(t, app.HealthService)
	assert.NotNil(t, app.AnalysisMetrics)
	assert.NotNil(t, app.SystemMetrics)
	assert.Equal(t, 0, app.WebSocketHub.ClientCount())
}

func TestApplication_setupRouter(t *testing.T) {
	cleanup := setupTestEnvironment(t)
	defer cleanup()

	app, err := NewApplication()
	require.NoError(t, err)
	defer app.WebSocketHub.Stop()

	testServer := httptest.NewServer(app.Router)
	defer testServer.Close()

	t.Run("api health endpoint registered", func(t *testing.T) {
		resp, err := http.Get(testServer.URL + "/api/health")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("websocket endpoint requires upgrade", func(t *testing.T) {
		resp, err := http.Get(testServer.URL + "/ws")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("prometheus endpoint registered", func(t *testing.T) {
		resp, err := http.Get(testServer.URL + "/metrics")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("unknown route returns 404", func(t *testing.T) {
		resp, err := http.Get(testServer.URL + "/api/nonexistent")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestApplication_handleWebSocket(t *testing.T) {
	cleanup := setupTestEnvironment(t)
	defer cleanup()

	app, err := NewApplication()
	require.NoError(t, err)
	defer app.WebSocketHub.Stop()

	testServer := httptest.NewServer(http.HandlerFunc(app.handleWebSocket))
	defer testServer.Close()

	t.Run("successful WebSocket upgrade", func(t *testing.T) {
		wsURL := "ws" + strings.TrimPrefix(testServer.URL, "http")

		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		if err != nil {
			t.Skipf("WebSocket connection failed: %v", err)
			return
		}
		defer conn.Close()

		err = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`))
		assert.NoError(t, err)

		// Set read deadline to avoid hanging; the read may time out,
		// which is fine, we only care that the upgrade succeeded
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		conn.ReadMessage()
	})

	t.Run("plain HTTP request is rejected", func(t *testing.T) {
		resp, err := http.Get(testServer.URL)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestApplication_Start(t *testing.T) {
	cleanup := setupTestEnvironment(t)
	defer cleanup()

	t.Run("successful start", func(t *testing.T) {
		app, err := NewApplication()
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		err = app.Start(ctx, cancel)
		require.NoError(t, err)

		// Poll the health endpoint until the server answers
		healthURL := fmt.Sprintf("http://localhost:%d/api/health", app.Config.Server.Port)
		var resp *http.Response
		for i := 0; i < 20; i++ {
			resp, err = http.Get(healthURL)
			if err == nil {
				break
			}
			time.Sleep(100 * time.Millisecond)
		}
		if assert.NoError(t, err, "server did not become ready") {
			defer resp.Body.Close()
			assert.Equal(t, http.StatusOK, resp.StatusCode)
		}

		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()
		assert.NoError(t, app.Stop(stopCtx))
	})

	t.Run("start with port already in use", func(t *testing.T) {
		// Occupy a port so ListenAndServe fails immediately
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		defer listener.Close()

		port := listener.Addr().(*net.TCPAddr).Port
		os.Setenv("TABSIGHT_SERVER_PORT", fmt.Sprintf("%d", port))
		defer os.Setenv("TABSIGHT_SERVER_PORT", "8157")

		app, err := NewApplication()
		require.NoError(t, err)
		defer app.WebSocketHub.Stop()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Start itself does not fail; the listen error cancels the context
		err = app.Start(ctx, cancel)
		assert.NoError(t, err)

		select {
		case <-ctx.Done():
			// expected
		case <-time.After(3 * time.Second):
			t.Fatal("context was not cancelled after listen failure")
		}
	})
}

func TestApplication_Stop(t *testing.T) {
	cleanup := setupTestEnvironment(t)
	defer cleanup()

	app, err := NewApplication()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, app.Start(ctx, cancel))

	// Give it time to start
	time.Sleep(100 * time.Millisecond)

	t.Run("graceful shutdown", func(t *testing.T) {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		assert.NoError(t, app.Stop(shutdownCtx))
	})

	t.Run("repeated shutdown is safe", func(t *testing.T) {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		assert.NoError(t, app.Stop(shutdownCtx))
	})
}

func TestApplication_Run(t *testing.T) {
	cleanup := setupTestEnvironment(t)
	defer cleanup()

	t.Run("shuts down after server failure", func(t *testing.T) {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		defer listener.Close()

		port := listener.Addr().(*net.TCPAddr).Port
		os.Setenv("TABSIGHT_SERVER_PORT", fmt.Sprintf("%d", port))
		defer os.Setenv("TABSIGHT_SERVER_PORT", "8157")

		app, err := NewApplication()
		require.NoError(t, err)

		runErr := make(chan error, 1)
		go func() {
			runErr <- app.Run()
		}()

		select {
		case err := <-runErr:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("Run did not return after listen failure")
		}
	})

	t.Run("run and interrupt", func(t *testing.T) {
		if runtime.GOOS == "windows" {
			t.Skip("sending signals to the own process is not supported on windows")
		}

		app, err := NewApplication()
		require.NoError(t, err)

		runErr := make(chan error, 1)
		go func() {
			runErr <- app.Run()
		}()

		// Give it time to start
		time.Sleep(300 * time.Millisecond)

		proc, err := os.FindProcess(os.Getpid())
		require.NoError(t, err)
		require.NoError(t, proc.Signal(os.Interrupt))

		select {
		case err := <-runErr:
			assert.NoError(t, err)
		case <-time.After(10 * time.Second):
			t.Fatal("Run did not shut down after interrupt")
		}
	})
}

func TestApplication_getCORSConfig(t *testing.T) {
	cleanup := setupTestEnvironment(t)
	defer cleanup()

	app, err := NewApplication()
	require.NoError(t, err)
	defer app.WebSocketHub.Stop()

	t.Run("development mode allows local dev servers", func(t *testing.T) {
		app.Config.Logging.Development = true

		corsConfig := app.getCORSConfig()
		assert.Contains(t, corsConfig.AllowedOrigins, "http://localhost:3000")
		assert.True(t, corsConfig.AllowCredentials)
		assert.Equal(t, 300, corsConfig.MaxAge)
		assert.NotEmpty(t, corsConfig.AllowedMethods)
		assert.NotEmpty(t, corsConfig.AllowedHeaders)
	})

	t.Run("production mode restricts to same origin", func(t *testing.T) {
		os.Unsetenv("TABSIGHT_ENV")
		os.Unsetenv("GO_ENV")
		app.Config.Logging.Development = false
		defer func() { app.Config.Logging.Development = true }()

		corsConfig := app.getCORSConfig()
		sameOrigin := fmt.Sprintf("http://localhost:%d", app.Config.Server.Port)
		assert.Contains(t, corsConfig.AllowedOrigins, sameOrigin)
		assert.NotContains(t, corsConfig.AllowedOrigins, "http://localhost:3000")
	})

	t.Run("production mode appends configured origins", func(t *testing.T) {
		os.Unsetenv("TABSIGHT_ENV")
		os.Unsetenv("GO_ENV")
		app.Config.Logging.Development = false
		app.Config.Security.EnableCORS = true
		oldOrigins := app.Config.Security.AllowedOrigins
		app.Config.Security.AllowedOrigins = []string{"https://dashboard.example.com"}
		defer func() {
			app.Config.Logging.Development = true
			app.Config.Security.AllowedOrigins = oldOrigins
		}()

		corsConfig := app.getCORSConfig()
		assert.Contains(t, corsConfig.AllowedOrigins, "https://dashboard.example.com")
	})
}

func TestApplication_isDevelopmentMode(t *testing.T) {
	cleanup := setupTestEnvironment(t)
	defer cleanup()

	app, err := NewApplication()
	require.NoError(t, err)
	defer app.WebSocketHub.Stop()

	tests := []struct {
		name        string
		setupEnv    func()
		development bool
		want        bool
	}{
		{
			name: "TABSIGHT_ENV development",
			setupEnv: func() {
				os.Setenv("TABSIGHT_ENV", "development")
			},
			development: false,
			want:        true,
		},
		{
			name: "GO_ENV development",
			setupEnv: func() {
				os.Setenv("GO_ENV", "development")
			},
			development: false,
			want:        true,
		},
		{
			name:        "config flag enabled",
			setupEnv:    func() {},
			development: true,
			want:        true,
		},
		{
			name:        "no environment and flag disabled",
			setupEnv:    func() {},
			development: false,
			want:        false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Unsetenv("TABSIGHT_ENV")
			os.Unsetenv("GO_ENV")
			defer func() {
				os.Unsetenv("TABSIGHT_ENV")
				os.Unsetenv("GO_ENV")
			}()

			tt.setupEnv()
			app.Config.Logging.Development = tt.development

			assert.Equal(t, tt.want, app.isDevelopmentMode())
		})
	}
}

func TestApplication_performStartupHealthCheck(t *testing.T) {
	cleanup := setupTestEnvironment(t)
	defer cleanup()

	app, err := NewApplication()
	require.NoError(t, err)
	defer app.WebSocketHub.Stop()

	// NewApplication ensures the directory tree, so the check passes
	assert.NoError(t, app.performStartupHealthCheck(context.Background()))
}

func TestApplication_createServer(t *testing.T) {
	cleanup := setupTestEnvironment(t)
	defer cleanup()

	app, err := NewApplication()
	require.NoError(t, err)
	defer app.WebSocketHub.Stop()

	require.NotNil(t, app.Server)
	assert.Equal(t, fmt.Sprintf(":%d", app.Config.Server.Port), app.Server.Addr)
	assert.Equal(t, app.Config.Server.ReadTimeout, app.Server.ReadTimeout)
	assert.Equal(t, app.Config.Server.WriteTimeout, app.Server.WriteTimeout)
	assert.Equal(t, app.Config.Server.IdleTimeout, app.Server.IdleTimeout)
	assert.Equal(t, app.Config.Server.MaxHeaderBytes, app.Server.MaxHeaderBytes)
	assert.Equal(t, app.Router, app.Server.Handler)
}

func TestApplication_setupAPIRoutes(t *testing.T) {
	cleanup := setupTestEnvironment(t)
	defer cleanup()

	app, err := NewApplication()
	require.NoError(t, err)
	defer app.WebSocketHub.Stop()

	testServer := httptest.NewServer(app.Router)
	defer testServer.Close()

	tests := []struct {
		name        string
		method      string
		path        string
		body        string
		contentType string
		wantStatus  int
		wantBody    string
	}{
		{
			name:       "health endpoint",
			method:     http.MethodGet,
			path:       "/api/health",
			wantStatus: http.StatusOK,
			wantBody:   `"status":"ok"`,
		},
		{
			name:       "readiness endpoint",
			method:     http.MethodGet,
			path:       "/api/health/ready",
			wantStatus: http.StatusOK,
		},
		{
			name:       "liveness endpoint",
			method:     http.MethodGet,
			path:       "/api/health/live",
			wantStatus: http.StatusOK,
			wantBody:   `"alive"`,
		},
		{
			name:       "version endpoint",
			method:     http.MethodGet,
			path:       "/api/version",
			wantStatus: http.StatusOK,
			wantBody:   VERSION,
		},
		{
			name:       "stats endpoint",
			method:     http.MethodGet,
			path:       "/api/stats",
			wantStatus: http.StatusOK,
			wantBody:   "stored_datasets",
		},
		{
			name:       "list datasets",
			method:     http.MethodGet,
			path:       "/api/datasets",
			wantStatus: http.StatusOK,
			wantBody:   `"status":"success"`,
		},
		{
			name:       "malformed dataset id",
			method:     http.MethodGet,
			path:       "/api/datasets/not-a-uuid",
			wantStatus: http.StatusBadRequest,
			wantBody:   "Dataset id must be a UUID",
		},
		{
			name:       "unknown dataset id",
			method:     http.MethodGet,
			path:       "/api/datasets/2f1e7c6a-8b4d-4e9a-9c3b-5a6d7e8f9a0b",
			wantStatus: http.StatusNotFound,
			wantBody:   "DATASET_NOT_FOUND",
		},
		{
			name:        "client log accepted",
			method:      http.MethodPost,
			path:        "/api/client-logs",
			body:        `{"level":"info","message":"dashboard loaded"}`,
			contentType: "application/json",
			wantStatus:  http.StatusOK,
		},
		{
			name:       "client log without content type",
			method:     http.MethodPost,
			path:       "/api/client-logs",
			body:       `{"level":"info","message":"x"}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   "MISSING_CONTENT_TYPE",
		},
		{
			name:        "client log with unsupported content type",
			method:      http.MethodPost,
			path:        "/api/client-logs",
			body:        "level=info",
			contentType: "text/plain",
			wantStatus:  http.StatusUnsupportedMediaType,
			wantBody:    "UNSUPPORTED_MEDIA_TYPE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body io.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			}
			req, err := http.NewRequest(tt.method, testServer.URL+tt.path, body)
			require.NoError(t, err)
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			respBody, err := io.ReadAll(resp.Body)
			require.NoError(t, err)

			assert.Equal(t, tt.wantStatus, resp.StatusCode, "body: %s", respBody)
			if tt.wantBody != "" {
				assert.Contains(t, string(respBody), tt.wantBody)
			}
		})
	}
}

func TestApplication_DatasetLifecycle(t *testing.T) {
	cleanup := setupTestEnvironment(t)
	defer cleanup()

	app, err := NewApplication()
	require.NoError(t, err)
	defer app.WebSocketHub.Stop()

	testServer := httptest.NewServer(app.Router)
	defer testServer.Close()

	csv := "date,city,sales\n" +
		"2024-01-01,Austin,100.50\n" +
		"2024-01-02,Dallas,220.75\n" +
		"2024-01-03,Austin,90.25\n"

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "sales.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(csv))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	// Upload through the full middleware stack
	resp, err := http.Post(testServer.URL+"/api/datasets", writer.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var uploaded struct {
		Status string `json:"status"`
		Data   struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&uploaded))
	assert.Equal(t, "success", uploaded.Status)
	require.NotEmpty(t, uploaded.Data.ID)

	t.Run("profiles reflect classified columns", func(t *testing.T) {
		resp, err := http.Get(testServer.URL + "/api/datasets/" + uploaded.Data.ID + "/profiles")
		require.NoError(t, err)
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode, "body: %s", body)
		assert.Contains(t, string(body), "datetime")
		assert.Contains(t, string(body), "categorical-binary")
	})

	t.Run("recommendations include time series", func(t *testing.T) {
		resp, err := http.Get(testServer.URL + "/api/datasets/" + uploaded.Data.ID + "/recommendations")
		require.NoError(t, err)
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode, "body: %s", body)
		assert.Contains(t, string(body), "Time Series")
	})

	t.Run("dataset listed after upload", func(t *testing.T) {
		resp, err := http.Get(testServer.URL + "/api/datasets")
		require.NoError(t, err)
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), uploaded.Data.ID)
	})

	t.Run("delete removes dataset", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodDelete, testServer.URL+"/api/datasets/"+uploaded.Data.ID, nil)
		require.NoError(t, err)

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		getResp, err := http.Get(testServer.URL + "/api/datasets/" + uploaded.Data.ID)
		require.NoError(t, err)
		defer getResp.Body.Close()
		assert.Equal(t, http.StatusNotFound, getResp.StatusCode)
	})
}

func TestGenerateBuildID(t *testing.T) {
	id := generateBuildID()
	assert.Len(t, id, 12)
	assert.Equal(t, id, generateBuildID())

	assert.NotEmpty(t, BuildID)
	assert.NotEmpty(t, BuildTime)
}
