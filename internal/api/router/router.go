// Package router sets up the API routes for the application.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/researchd/researchd/consts"
	"github.com/researchd/researchd/internal/api/handler"
	"github.com/researchd/researchd/internal/api/middleware"
	"github.com/researchd/researchd/internal/config"
)

// Setup configures all API routes
func Setup(r *gin.Engine, conductor handler.Conductor, cfg *config.Config) {
	// Apply global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger(&middleware.LoggerConfig{
		AccessLog: cfg.Logging.AccessLog,
	}))
	r.Use(middleware.CORS(cfg.Server.CORSOrigins))
	r.Use(middleware.RequestID())
	r.Use(middleware.Metrics())
	r.Use(middleware.ErrorHandler(cfg.Server.Debug))

	// Apply OpenTelemetry tracing middleware
	r.Use(otelgin.Middleware(consts.ServiceName))

	// Health check endpoint (public)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	researchHandler := handler.NewResearchHandler(conductor)
	r.POST("/evaluate", researchHandler.Evaluate)
	r.POST("/run", researchHandler.Run)
}
