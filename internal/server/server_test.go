// Package server provides HTTP server for the application.
// This file contains unit tests for the server package.
package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/researchd/researchd/internal/config"
	"github.com/researchd/researchd/internal/pipeline"
	"github.com/researchd/researchd/pkg/logger"
)

func init() {
	// Initialize logger for tests
	logger.Init(logger.Config{
		Level:  "error",
		Format: "text",
	})
}

type stubConductor struct{}

func (stubConductor) Run(context.Context, string) (string, []string, error) {
	return "report", nil, nil
}

func (stubConductor) Stream(context.Context, string) <-chan pipeline.Update {
	ch := make(chan pipeline.Update)
	close(ch)
	return ch
}

func testServerConfig() *config.Config {
	cfg := config.Default()
	cfg.Server.Host = "localhost"
	cfg.Server.Port = 0 // automatic port assignment in tests
	return cfg
}

// TestServer_New tests creating a new server instance
func TestServer_New(t *testing.T) {
	cfg := testServerConfig()
	srv := New(cfg, stubConductor{})
	require.NotNil(t, srv)
	assert.Equal(t, cfg, srv.cfg)
	assert.NotNil(t, srv.router)
}

// TestServer_SetupRoutes tests setting up routes
func TestServer_SetupRoutes(t *testing.T) {
	srv := New(testServerConfig(), stubConductor{})
	srv.SetupRoutes()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "ok"}`, w.Body.String())
}

// TestServer_Start tests starting the server
func TestServer_Start(t *testing.T) {
	srv := New(testServerConfig(), stubConductor{})
	srv.SetupRoutes()

	err := srv.Start()
	require.NoError(t, err)
	assert.NotNil(t, srv.httpServer)

	err = srv.Stop()
	require.NoError(t, err)
}

// TestServer_Stop tests stopping the server
func TestServer_Stop(t *testing.T) {
	srv := New(testServerConfig(), stubConductor{})
	srv.SetupRoutes()

	// Stop without starting should not error
	err := srv.Stop()
	require.NoError(t, err)

	err = srv.Start()
	require.NoError(t, err)

	// Give server a moment to start
	time.Sleep(100 * time.Millisecond)

	err = srv.Stop()
	require.NoError(t, err)
}

// TestServer_Stop_WithTimeout tests stopping server with timeout
func TestServer_Stop_WithTimeout(t *testing.T) {
	srv := New(testServerConfig(), stubConductor{})
	srv.SetupRoutes()

	err := srv.Start()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan error)
	go func() {
		done <- srv.Stop()
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-ctx.Done():
		t.Fatal("Stop() timed out")
	}
}

// TestServer_Router tests getting the router
func TestServer_Router(t *testing.T) {
	srv := New(testServerConfig(), stubConductor{})
	router := srv.Router()

	assert.NotNil(t, router)
	assert.Equal(t, srv.router, router)
}

// TestServer_Address tests server address configuration
func TestServer_Address(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.ServerConfig
		expected string
	}{
		{
			name: "default port",
			cfg: config.ServerConfig{
				Host: "localhost",
				Port: 8080,
			},
			expected: "localhost:8080",
		},
		{
			name: "custom host and port",
			cfg: config.ServerConfig{
				Host: "0.0.0.0",
				Port: 3000,
			},
			expected: "0.0.0.0:3000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.cfg.Address())
		})
	}
}

// TestServer_DebugMode tests debug mode configuration
func TestServer_DebugMode(t *testing.T) {
	tests := []struct {
		name     string
		debug    bool
		expected string
	}{
		{
			name:     "debug mode enabled",
			debug:    true,
			expected: gin.DebugMode,
		},
		{
			name:     "debug mode disabled",
			debug:    false,
			expected: gin.ReleaseMode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testServerConfig()
			cfg.Server.Debug = tt.debug

			_ = New(cfg, stubConductor{})
			assert.Equal(t, tt.expected, gin.Mode())
		})
	}
}

// TestServer_HTTPTimeouts tests HTTP server timeout configuration
func TestServer_HTTPTimeouts(t *testing.T) {
	srv := New(testServerConfig(), stubConductor{})
	srv.SetupRoutes()

	err := srv.Start()
	require.NoError(t, err)
	defer srv.Stop()

	assert.Equal(t, defaultReadTimeout, srv.httpServer.ReadTimeout)
	assert.Zero(t, srv.httpServer.WriteTimeout, "no write deadline: /run streams SSE")
	assert.Equal(t, defaultIdleTimeout, srv.httpServer.IdleTimeout)
}

// TestServer_RouterConfiguration tests router configuration
func TestServer_RouterConfiguration(t *testing.T) {
	srv := New(testServerConfig(), stubConductor{})

	assert.False(t, srv.router.RedirectTrailingSlash)
	assert.False(t, srv.router.RedirectFixedPath)
}
