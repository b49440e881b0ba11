package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/miethe/family-shopping-dashboard-sub003/internal/cache"
	"github.com/miethe/family-shopping-dashboard-sub003/internal/config"
	"github.com/miethe/family-shopping-dashboard-sub003/internal/connection"
	"github.com/miethe/family-shopping-dashboard-sub003/internal/database"
	"github.com/miethe/family-shopping-dashboard-sub003/internal/journal"
	"github.com/miethe/family-shopping-dashboard-sub003/internal/model"
	"github.com/miethe/family-shopping-dashboard-sub003/internal/router"
	"github.com/miethe/family-shopping-dashboard-sub003/internal/subscription"
	"github.com/miethe/family-shopping-dashboard-sub003/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/syncd.local.yaml", "path to config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting syncd",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	wsURL, err := cfg.API.WebSocketURL()
	if err != nil {
		logger.Error("failed to derive websocket url", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"user_id", cfg.Client.UserID,
		"ws_url", wsURL,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Local cache
	store := cache.NewStore(cfg.Client.UserID, logger)

	// Connection manager
	mgr := connection.NewManager(connection.ManagerConfig{
		WSURL:              wsURL,
		ReconnectBaseDelay: cfg.Connection.ReconnectBaseDelay,
		ReconnectMaxDelay:  cfg.Connection.ReconnectMaxDelay,
		HeartbeatTimeout:   cfg.Connection.HeartbeatTimeout,
		WriteTimeout:       cfg.Connection.WriteTimeout,
		MessageBufferSize:  cfg.Connection.MessageBufferSize,
	}, logger)

	// Subscription registry feeds the manager's resubscribe flush
	registry := subscription.NewRegistry(subscription.Config{
		GracePeriod: cfg.Subscription.GracePeriod,
	}, mgr, store, logger)
	defer registry.Close()
	mgr.SetTopicSource(registry)

	// Event router
	rtr := router.NewRouter(router.Config{
		FirehoseBufferSize: cfg.Router.FirehoseBufferSize,
	}, mgr.Messages(), store, logger)

	if err := rtr.Start(ctx); err != nil {
		logger.Error("failed to start router", "error", err)
		os.Exit(1)
	}

	// Optional event journal
	var pool *pgxpool.Pool
	var jw *journal.Writer
	if cfg.Journal.Enabled {
		logger.Info("connecting to database",
			"host", cfg.Database.Host,
			"port", cfg.Database.Port,
			"database", cfg.Database.Name,
		)

		pool, err = database.Connect(ctx, cfg.Database)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		jw = journal.NewWriter(journal.Config{
			BatchSize:     cfg.Journal.BatchSize,
			FlushInterval: cfg.Journal.FlushInterval,
		}, rtr.Events(), pool, logger)

		if err := jw.Start(ctx); err != nil {
			logger.Error("failed to start journal writer", "error", err)
			os.Exit(1)
		}
	}

	// Health server
	healthServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Health.Port),
		Handler: createHealthHandler(cfg.Health.Path, mgr, rtr, store, registry, pool),
	}

	go func() {
		logger.Info("starting health server", "port", cfg.Health.Port)
		if err := healthServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("health server error", "error", err)
		}
	}()

	// The daemon keeps the shared collection topics warm so a fresh
	// browser tab gets a hot cache.
	sessionID := uuid.NewString()
	for _, topic := range []string{model.TopicGifts, model.TopicLists, model.TopicOccasions, model.TopicPeople} {
		registry.Subscribe(topic, sessionID)
	}

	// Connect the socket
	if err := mgr.Connect(ctx); err != nil {
		logger.Error("failed to connect", "error", err)
		os.Exit(1)
	}

	logger.Info("syncd running",
		"session_id", sessionID,
		"health_url", fmt.Sprintf("http://localhost:%d%s", cfg.Health.Port, cfg.Health.Path),
	)

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	mgr.Disconnect()
	if jw != nil {
		jw.Stop(shutdownCtx)
	}
	rtr.Stop(shutdownCtx)
	healthServer.Shutdown(shutdownCtx)

	logger.Info("syncd stopped")
}

// createHealthHandler creates the HTTP handler for health checks.
func createHealthHandler(path string, mgr *connection.Manager, rtr *router.Router, store *cache.Store, registry *subscription.Registry, pool *pgxpool.Pool) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string         `json:"status"`
			Components map[string]any `json:"components"`
		}{
			Status:     "healthy",
			Components: make(map[string]any),
		}

		state := mgr.State()
		health.Components["connection"] = map[string]any{
			"state": state.String(),
			"stats": mgr.Stats(),
		}
		if state != connection.StateConnected {
			health.Status = "degraded"
		}

		health.Components["router"] = rtr.Stats()
		health.Components["cache"] = store.Stats()
		health.Components["subscriptions"] = registry.ActiveTopics()

		if pool != nil {
			if err := pool.Ping(ctx); err != nil {
				health.Status = "unhealthy"
				health.Components["database"] = map[string]string{
					"status": "disconnected",
					"error":  err.Error(),
				}
			} else {
				health.Components["database"] = "connected"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	return mux
}
