package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dm-relay/internal/config"
	"dm-relay/internal/database"
	"dm-relay/internal/handlers"
	"dm-relay/internal/presence"
	"dm-relay/internal/router"
	"dm-relay/internal/session"
	"dm-relay/internal/websocket"
	"dm-relay/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal(err, "invalid configuration")
	}

	logger.Init(logger.Config{
		Level:       cfg.Log.Level,
		Pretty:      cfg.Log.Pretty,
		ServiceName: "dm-relay",
	})
	l := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// the relay does not start without its message log
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	db, err := database.NewPostgresDB(connectCtx, cfg.Database.URL)
	cancel()
	if err != nil {
		logger.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	registry := presence.NewRegistry()
	hub := websocket.NewHub()
	msgRouter := router.New(db, registry, hub)
	manager := session.NewManager(registry, msgRouter, hub)

	wsHandlers := handlers.NewWebSocketHandlers(ctx, hub, manager, cfg.WebSocket)
	healthHandlers := handlers.NewHealthHandlers(db, registry)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandlers.HandleWebSocket)
	mux.HandleFunc("/health", healthHandlers.Health)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      logger.HTTPMiddleware(l)(corsMiddleware(mux)),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		l.Info().Str("addr", server.Addr).Msg("server running")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal(err, "server error")
		}
	}()

	<-ctx.Done()
	l.Info().Msg("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	hub.Shutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		l.Error().Err(err).Msg("graceful shutdown failed")
		os.Exit(1)
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
