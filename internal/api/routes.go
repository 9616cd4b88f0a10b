package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/GPS-Demos/suny-ther-assist/domain/entities"
	"github.com/GPS-Demos/suny-ther-assist/domain/repositories"
	"github.com/GPS-Demos/suny-ther-assist/internal/auth"
	"github.com/GPS-Demos/suny-ther-assist/internal/metrics"
	"github.com/GPS-Demos/suny-ther-assist/internal/websocket"
	"github.com/GPS-Demos/suny-ther-assist/usecase"
)

const (
	serviceName        = "Therapy Transcription Streaming Service (Low Latency)"
	healthProbeTimeout = 5 * time.Second
)

// Dependencies are the collaborators served by the HTTP surface. Optional
// collaborators left nil disable their routes.
type Dependencies struct {
	Hub        *websocket.Hub
	Transcribe *websocket.Handler
	// Verifier guards the transcription socket when set
	Verifier   *auth.Verifier
	Speech     repositories.HealthChecker
	Generation *usecase.GenerationService
	Store      repositories.ObjectStore
	Metrics    *metrics.Metrics
	Gatherer   prometheus.Gatherer
	ProjectID  string
	Logger     *zap.Logger
	Now        func() time.Time
}

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, deps Dependencies) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	h := &handlers{Dependencies: deps}

	e.GET("/", h.root)
	e.GET("/health", h.health)
	if deps.Gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	// WebSocket endpoint, authenticated when a verifier is configured
	e.GET("/ws/transcribe", h.transcribe)

	// API v1 routes
	v1 := e.Group("/api/v1")

	if deps.Store != nil {
		v1.GET("/storage", h.getObject)
		v1.GET("/storage/metadata", h.getObjectMetadata)
	}

	if deps.Generation != nil {
		v1.POST("/generate", h.generate)
	}
}

type handlers struct {
	Dependencies
}

func (h *handlers) root(c echo.Context) error {
	return c.JSON(http.StatusOK, ServiceInfo{
		Status:  "healthy",
		Service: serviceName,
		Features: ServiceFeatures{
			Streaming:      true,
			InterimResults: true,
			Latency:        "200-500ms",
		},
		Timestamp: entities.FormatTimestamp(h.Now()),
	})
}

func (h *handlers) health(c echo.Context) error {
	speechStatus := "connected"
	if h.Speech != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), healthProbeTimeout)
		defer cancel()
		if err := h.Speech.Ping(ctx); err != nil {
			h.Logger.Warn("Speech API health probe failed", zap.Error(err))
			speechStatus = "error: " + err.Error()
		}
	}

	active := 0
	if h.Hub != nil {
		active = h.Hub.ActiveSessions()
	}

	return c.JSON(http.StatusOK, HealthResponse{
		Status:           "healthy",
		SpeechAPI:        speechStatus,
		ProjectID:        h.ProjectID,
		StreamingEnabled: true,
		ActiveSessions:   active,
		Timestamp:        entities.FormatTimestamp(h.Now()),
	})
}

// transcribe handles WebSocket connections, with JWT authentication when enabled
func (h *handlers) transcribe(c echo.Context) error {
	if h.Verifier != nil {
		claims, err := h.Verifier.VerifyRequest(c.Request())
		if err != nil {
			code := "invalid_token"
			message := "Invalid or expired JWT token"
			if errors.Is(err, auth.ErrMissingToken) {
				code = "missing_token"
				message = "JWT token is required in Authorization header or token query parameter"
			}
			h.Logger.Warn("WebSocket connection rejected", zap.String("reason", code), zap.Error(err))
			return c.JSON(http.StatusUnauthorized, ErrorResponse{
				Error:   code,
				Message: message,
			})
		}

		h.Logger.Info("WebSocket connection authenticated", zap.String("user_id", claims.UserID))
	}

	return h.Transcribe.HandleTranscribe(c)
}
