package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/johnquangdev/transcript-pipeline/pkg/config"
)

// HealthChecker reports whether a backing dependency is reachable
type HealthChecker func(ctx context.Context) error

// Router holds all handlers
type Router struct {
	cfg           *config.Config
	transcription *TranscriptionController
	checks        map[string]HealthChecker
}

// NewRouter creates a new router with all handlers. checks are run by /health.
func NewRouter(cfg *config.Config, transcription *TranscriptionController, checks map[string]HealthChecker) *Router {
	return &Router{
		cfg:           cfg,
		transcription: transcription,
		checks:        checks,
	}
}

// Setup configures all application routes
func (rt *Router) Setup(e *echo.Echo) {
	// Health check endpoint
	e.GET("/health", rt.healthCheck)

	// API v1 group
	v1 := e.Group("/v1")

	rt.setupTranscriptionRoutes(v1)
}

// setupTranscriptionRoutes configures transcription job routes
func (rt *Router) setupTranscriptionRoutes(g *echo.Group) {
	jobs := g.Group("/transcriptions")

	if rt.transcription == nil {
		jobs.Any("", rt.notImplemented)
		jobs.Any("/*", rt.notImplemented)
		return
	}

	jobs.POST("", rt.transcription.SubmitJob)
	jobs.GET("", rt.transcription.ListJobs)
	jobs.GET("/:id", rt.transcription.PollJob)
	jobs.GET("/:id/result", rt.transcription.GetResult)
	jobs.POST("/:id/analysis", rt.transcription.Analyze)
	jobs.POST("/:id/translations", rt.transcription.Translate)
	jobs.POST("/:id/note", rt.transcription.PromoteToNote)
}

// notImplemented returns 501 Not Implemented response
func (rt *Router) notImplemented(c echo.Context) error {
	return c.JSON(http.StatusNotImplemented, map[string]interface{}{
		"error":   "This endpoint is not yet implemented",
		"path":    c.Request().URL.Path,
		"method":  c.Request().Method,
		"message": "Please initialize the required handler in main.go",
	})
}

// healthCheck returns health status of the service and its dependencies
func (rt *Router) healthCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := make(map[string]string, len(rt.checks))
	for name, check := range rt.checks {
		if err := check(ctx); err != nil {
			deps[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	environment := ""
	if rt.cfg != nil {
		environment = rt.cfg.Server.Environment
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	return c.JSON(status, map[string]interface{}{
		"status":       overall,
		"environment":  environment,
		"dependencies": deps,
		"time":         time.Now().UTC().Format(time.RFC3339),
	})
}
