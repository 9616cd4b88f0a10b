package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/GPS-Demos/suny-ther-assist/adapters/llm"
	"github.com/GPS-Demos/suny-ther-assist/adapters/storage"
	"github.com/GPS-Demos/suny-ther-assist/adapters/stt"
	"github.com/GPS-Demos/suny-ther-assist/domain/repositories"
	"github.com/GPS-Demos/suny-ther-assist/internal/api"
	"github.com/GPS-Demos/suny-ther-assist/internal/auth"
	"github.com/GPS-Demos/suny-ther-assist/internal/config"
	"github.com/GPS-Demos/suny-ther-assist/internal/metrics"
	"github.com/GPS-Demos/suny-ther-assist/internal/transcription"
	"github.com/GPS-Demos/suny-ther-assist/internal/websocket"
	"github.com/GPS-Demos/suny-ther-assist/usecase"
)

func serve(ctx context.Context, cfg *config.Config) error {
	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	// Initialize adapters
	recognizer, speechHealth, err := newRecognizer(ctx, cfg.Speech, logger)
	if err != nil {
		return err
	}
	defer closeClient(logger, "speech", recognizer)

	generator, err := newGenerator(ctx, cfg.Generative, logger)
	if err != nil {
		return err
	}

	store, err := newObjectStore(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer closeClient(logger, "storage", store)

	var verifier *auth.Verifier
	if cfg.Auth.Enabled() {
		verifier, err = auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
		if err != nil {
			return err
		}
	} else {
		logger.Warn("JWT_SECRET not set, transcription socket is unauthenticated")
	}

	// Initialize usecase services
	ready := transcription.DefaultReadyConfig()
	ready.Features.InterimResults = cfg.Speech.InterimResults
	manager := transcription.NewManager(recognizer, transcription.ManagerConfig{
		Recognition:     cfg.Speech.Recognition(),
		Ready:           ready,
		QueueMaxDepth:   cfg.Relay.QueueMaxDepth,
		PollInterval:    cfg.Relay.PollInterval,
		ShutdownTimeout: cfg.Relay.ShutdownTimeout,
	}, logger, m)
	generation := usecase.NewGenerationService(generator, logger).WithDatastores(cfg.Generative.Datastores)

	// Initialize WebSocket hub
	hub := websocket.NewHub(logger)
	go hub.Run(ctx)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	api.InitRoutes(e, api.Dependencies{
		Hub:        hub,
		Transcribe: websocket.NewHandler(hub, manager, logger),
		Verifier:   verifier,
		Speech:     speechHealth,
		Generation: generation,
		Store:      store,
		Metrics:    m,
		Gatherer:   reg,
		ProjectID:  cfg.Speech.Project,
		Logger:     logger,
	})

	addr := ":" + strconv.Itoa(cfg.Server.Port)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", zap.Error(err))
			stop()
		}
	}()

	logger.Info("Server started",
		zap.String("addr", addr),
		zap.String("version", version),
		zap.String("stt_provider", cfg.Speech.Provider),
		zap.String("llm_provider", cfg.Generative.Provider),
		zap.Bool("auth_enabled", cfg.Auth.Enabled()))

	<-ctx.Done()

	logger.Info("Server is shutting down...")

	// Close live sessions before the listener so clients get a close frame
	hub.CloseAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("Server exited")
	return nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	zc.Level = level

	return zc.Build()
}

func newRecognizer(ctx context.Context, cfg config.SpeechConfig, logger *zap.Logger) (repositories.SpeechRecognizer, repositories.HealthChecker, error) {
	if cfg.Provider == config.ProviderMock {
		logger.Info("Using mock speech recognizer")
		return stt.NewMockRecognizer(nil, 0, logger), nil, nil
	}

	recognizer, err := stt.NewGoogleRecognizer(ctx, cfg.Project, cfg.Location, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create speech recognizer: %w", err)
	}
	return recognizer, recognizer, nil
}

func newGenerator(ctx context.Context, cfg config.GenerativeConfig, logger *zap.Logger) (repositories.Generator, error) {
	if cfg.Provider == config.ProviderMock {
		logger.Info("Using mock generator")
		return llm.NewMockGenerator(), nil
	}

	generator, err := llm.NewGeminiGenerator(ctx, llm.GeminiConfig{
		APIKey:         cfg.APIKey,
		Project:        cfg.Project,
		Location:       cfg.Location,
		Model:          cfg.Model,
		TimeoutSeconds: cfg.TimeoutSeconds,
		MaxAttempts:    cfg.MaxAttempts,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create generator: %w", err)
	}
	return generator, nil
}

func newObjectStore(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (repositories.ObjectStore, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if cfg.Provider == config.ProviderMemory {
		store := storage.NewMemoryStore()
		if cfg.Dir == "" {
			logger.Warn("Memory object store has no seed directory, every lookup will miss")
			return store, nil
		}
		n, err := store.LoadDir(cfg.Dir)
		if err != nil {
			return nil, err
		}
		logger.Info("Memory object store seeded", zap.String("dir", cfg.Dir), zap.Int("objects", n))
		return store, nil
	}

	store, err := storage.NewGCSStore(ctx, logger)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// closeClient releases adapters that hold network clients. Deferred calls run
// after the hub and listener are shut down, so no session still uses them.
func closeClient(logger *zap.Logger, name string, v any) {
	c, ok := v.(io.Closer)
	if !ok {
		return
	}
	if err := c.Close(); err != nil {
		logger.Warn("Failed to close client", zap.String("client", name), zap.Error(err))
	}
}
