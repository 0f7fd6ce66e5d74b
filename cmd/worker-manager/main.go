// cmd/worker-manager/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"vm-pathways/internal/common/camunda"
	"vm-pathways/internal/common/config"
	"vm-pathways/internal/common/database"
	"vm-pathways/internal/common/logger"
	"vm-pathways/internal/common/observability"
	"vm-pathways/internal/recommendation"

	gr "vm-pathways/internal/workers/recommendation/generate-recommendation"
	vi "vm-pathways/internal/workers/recommendation/validate-intake"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

// workerHandler is what main needs from each job worker.
type workerHandler interface {
	Register() error
	Close()
	GetTaskType() string
	IsEnabled() bool
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...",
		zap.String("app", cfg.App.Name),
		zap.String("environment", cfg.App.Environment),
	)

	if err := cfg.ValidateWorkerManager(); err != nil {
		zapLog.Fatal("invalid configuration", zap.Error(err))
	}

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		zapLog.Fatal("observability setup failed", zap.Error(err))
	}
	defer obs.Shutdown(context.Background())

	ctx := context.Background()

	// --- Init Redis with retry ---
	redisClient := database.NewRedis(cfg.Redis)
	err = retryWithBackoff(func() error {
		return redisClient.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redisClient.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init Zeebe Client with retry ---
	var zeebe *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClient(camunda.ClientConfigFrom(cfg.Camunda))
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	defer zeebe.Close()
	zapLog.Info("Zeebe client connected successfully")

	generator := recommendation.NewGeneratorFromConfig(cfg, log, obs)

	generateHandler, err := gr.NewHandler(gr.HandlerOptions{
		AppConfig:     cfg,
		Camunda:       zeebe,
		Redis:         redisClient.Client,
		Generator:     generator,
		Observability: obs,
		Logger:        log.With(map[string]interface{}{"worker": gr.TaskType}),
	})
	if err != nil {
		zapLog.Fatal("generate-recommendation worker setup failed", zap.Error(err))
	}

	validateHandler, err := vi.NewHandler(vi.HandlerOptions{
		AppConfig:     cfg,
		Camunda:       zeebe,
		Observability: obs,
		Logger:        log.With(map[string]interface{}{"worker": vi.TaskType}),
	})
	if err != nil {
		zapLog.Fatal("validate-intake worker setup failed", zap.Error(err))
	}

	handlers := []workerHandler{validateHandler, generateHandler}
	for _, h := range handlers {
		if err := h.Register(); err != nil {
			zapLog.Fatal("worker registration failed", zap.String("taskType", h.GetTaskType()), zap.Error(err))
		}
		zapLog.Info("Worker processed", zap.String("taskType", h.GetTaskType()), zap.Bool("enabled", h.IsEnabled()))
	}

	// --- Health & Metrics Server ---
	server := &http.Server{
		Addr: cfg.Metrics.Address,
		Handler: newServeMux(map[string]readinessCheck{
			"redis": redisClient.Ping,
			"zeebe": zeebe.HealthCheck,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", cfg.Metrics.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, h := range handlers {
		h.Close()
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping health server", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped")
}
