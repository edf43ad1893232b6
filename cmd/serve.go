package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/trustgate/internal/history"
	"github.com/sells-group/trustgate/internal/policy"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve read-only trust history and regression endpoints",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		store, err := openHistoryStore(ctx, cfg.History)
		if err != nil {
			return err
		}
		defer store.Close() //nolint:errcheck

		pol, err := policy.Load(cfg.Policy.Path)
		if err != nil {
			return err
		}

		limiter := rate.NewLimiter(rate.Limit(cfg.Server.RateLimit), cfg.Server.RateBurst)
		r := newServeRouter(store, pol, limiter)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx) //nolint:errcheck
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// newServeRouter builds the read-only HTTP API over a history store.
func newServeRouter(store history.Store, pol *policy.Config, limiter *rate.Limiter) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedMethods: []string{http.MethodGet},
	}))
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if !limiter.Allow() {
				http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, req)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/api/history", func(w http.ResponseWriter, req *http.Request) {
		fingerprint := req.URL.Query().Get("fingerprint")
		if fingerprint == "" {
			http.Error(w, `{"error":"fingerprint query parameter is required"}`, http.StatusBadRequest)
			return
		}
		entries, err := store.Load(req.Context(), fingerprint)
		if err != nil {
			zap.L().Error("serve: history load failed", zap.Error(err))
			http.Error(w, `{"error":"history unavailable"}`, http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, entries)
	})

	r.Get("/api/history/regression", func(w http.ResponseWriter, req *http.Request) {
		fingerprint := req.URL.Query().Get("fingerprint")
		scoreStr := req.URL.Query().Get("score")
		score, err := strconv.Atoi(scoreStr)
		if fingerprint == "" || err != nil || score < 0 || score > 100 {
			http.Error(w, `{"error":"fingerprint and score (0-100) query parameters are required"}`, http.StatusBadRequest)
			return
		}
		entries, err := store.Load(req.Context(), fingerprint)
		if err != nil {
			zap.L().Error("serve: history load failed", zap.Error(err))
			http.Error(w, `{"error":"history unavailable"}`, http.StatusInternalServerError)
			return
		}
		reg := history.DetectRegression(entries, score,
			pol.Scoring.RegressionWindow, pol.Scoring.RegressionDelta)
		writeJSON(w, http.StatusOK, reg)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
