package bootstrap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gitlab.com/timkado/api/review-xmpp-notifier/internal/adapters/middleware"
	"gitlab.com/timkado/api/review-xmpp-notifier/pkg/safego"
)

// The App struct and NewApp live in providers.go for Wire.

// registerRoutes mounts the operations endpoints on the mux.
func (a *App) registerRoutes(ctx context.Context) {
	healthHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.logger.Debug(r.Context(), "Health check endpoint hit")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, `{"status":"OK"}`)
	})
	a.httpServeMux.Handle("GET /health", middleware.RequestIDMiddleware(healthHandler))
	a.httpServeMux.Handle("GET /ready", middleware.RequestIDMiddleware(http.HandlerFunc(a.readyHandler)))
	a.httpServeMux.Handle("GET /metrics", middleware.RequestIDMiddleware(promhttp.Handler()))
	a.logger.Info(ctx, "Operations endpoints registered", "paths", []string{"/health", "/ready", "/metrics"})
}

func (a *App) readyHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ready := true
	dependenciesStatus := make(map[string]string)

	var natsConn *nats.Conn
	if a.consumer != nil {
		natsConn = a.consumer.NatsConn()
	}
	if natsConn != nil {
		if natsConn.Status() == nats.CONNECTED {
			dependenciesStatus["nats"] = "connected"
		} else {
			dependenciesStatus["nats"] = "disconnected"
			ready = false
			a.logger.Warn(r.Context(), "Readiness check failed: NATS disconnected", "status", natsConn.Status().String())
		}
	} else {
		dependenciesStatus["nats"] = "not_configured"
		ready = false
	}

	if a.redisClient != nil {
		if err := a.redisClient.Ping(r.Context()).Err(); err == nil {
			dependenciesStatus["redis"] = "connected"
		} else {
			// Dedup fails open, so Redis being down degrades but does not block delivery.
			dependenciesStatus["redis"] = "degraded"
			a.logger.Warn(r.Context(), "Readiness check: Redis ping failed", "error", err.Error())
		}
	} else {
		dependenciesStatus["redis"] = "not_configured"
	}

	response := struct {
		Status       string            `json:"status"`
		Dependencies map[string]string `json:"dependencies"`
	}{
		Dependencies: dependenciesStatus,
	}
	if ready {
		response.Status = "READY"
		w.WriteHeader(http.StatusOK)
	} else {
		response.Status = "NOT_READY"
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		a.logger.Error(r.Context(), "Failed to encode readiness response", "error", err)
	}
}

// Run starts the review event consumer and the operations HTTP server, and
// blocks until shutdown.
func (a *App) Run(ctx context.Context) error {
	cfg := a.configProvider.Get()
	a.logger.Info(ctx, "Starting application",
		"service_name", cfg.App.ServiceName,
		"version", cfg.App.Version,
		"xmpp_server", cfg.XMPP.Address(),
		"subject_prefix", cfg.NATS.SubjectPrefix)

	a.registerRoutes(ctx)

	if err := a.consumer.Start(ctx, a.eventHandler); err != nil {
		return fmt.Errorf("failed to start review event consumer: %w", err)
	}

	safego.Execute(ctx, a.logger, "SignalListenerAndGracefulShutdown", func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)
		select {
		case sig := <-quit:
			a.logger.Info(context.Background(), "Shutdown signal received, initiating graceful shutdown...", "signal", sig.String())
		case <-ctx.Done():
			a.logger.Info(context.Background(), "Application context cancelled, initiating graceful shutdown...")
		}

		shutdownTimeout := 30 * time.Second
		if secs := a.configProvider.Get().App.ShutdownTimeoutSeconds; secs > 0 {
			shutdownTimeout = time.Duration(secs) * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		// Stop intake first so the in-flight event finishes its fan-out.
		a.logger.Info(context.Background(), "Stopping review event consumer...")
		if err := a.consumer.Stop(); err != nil {
			a.logger.Error(context.Background(), "Error stopping review event consumer", "error", err.Error())
		}

		if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Error(context.Background(), "HTTP server graceful shutdown failed", "error", err.Error())
		}
		a.logger.Info(context.Background(), "HTTP server shut down.")
	})

	a.logger.Info(ctx, fmt.Sprintf("HTTP server listening on port %d", cfg.Server.HTTPPort))
	if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		a.logger.Error(ctx, "HTTP server ListenAndServe error", "error", err.Error())
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	a.logger.Info(ctx, "Application shut down gracefully or server closed.")
	return nil
}
