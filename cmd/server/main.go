package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/atmx/ledger-engine/internal/analysis"
	"github.com/atmx/ledger-engine/internal/api"
	"github.com/atmx/ledger-engine/internal/config"
	"github.com/atmx/ledger-engine/internal/ledger"
	"github.com/atmx/ledger-engine/internal/listing"
	"github.com/atmx/ledger-engine/internal/metrics"
	"github.com/atmx/ledger-engine/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(os.Getenv("LEDGER_CONFIG"))
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Initialize store ---
	st, closeStore, err := store.Open(ctx, cfg.Store, logger)
	if err != nil {
		slog.Error("store init failed", "driver", cfg.Store.Driver, "err", err)
		os.Exit(1)
	}
	defer closeStore()

	// --- WebSocket hub ---
	wsHub := api.NewWSHub()
	go wsHub.Run(ctx)

	// --- Ledger and listing board ---
	l, snap, err := ledger.Open(ctx, st, cfg.Seed, ledger.WithPublisher(wsHub), ledger.WithLogger(logger))
	if err != nil {
		slog.Error("ledger load failed", "err", err)
		os.Exit(1)
	}
	board := listing.NewBoard(l, listing.WithStore(st), listing.WithLogger(logger))
	if err := board.Restore(snap.Listings); err != nil {
		slog.Error("listing load failed", "err", err)
		os.Exit(1)
	}
	slog.Info("listings loaded", "count", board.Len())

	// --- Contract analysis (optional) ---
	var analyzer analysis.Analyzer
	if cfg.Analysis.APIKey != "" {
		gemini, err := analysis.NewGeminiAnalyzer(ctx, cfg.Analysis.APIKey, cfg.Analysis.Model)
		if err != nil {
			slog.Error("analysis client init failed", "err", err)
			os.Exit(1)
		}
		interval, _ := cfg.Analysis.IntervalDuration()
		analyzer = analysis.NewThrottled(gemini, interval)
		slog.Info("contract analysis enabled", "model", cfg.Analysis.Model, "interval", interval)
	} else {
		slog.Warn("GEMINI_API_KEY not set, contract analysis disabled")
	}

	svc := api.NewService(l, board, analyzer, wsHub)

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)

	// CORS middleware for frontend cross-origin requests.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"ledger-engine"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", svc.Mount)

	// --- Server ---
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("ledger-engine listening", "port", cfg.Server.Port, "store", cfg.Store.Driver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down ledger-engine...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	if err := l.Save(shutdownCtx); err != nil {
		slog.Error("final save failed", "err", err)
	}
	fmt.Println("ledger-engine stopped")
}
