package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/whimapp/discovery-cli/internal/engine"
	"github.com/whimapp/discovery-cli/internal/filter"
	"github.com/whimapp/discovery-cli/internal/model"
	"github.com/whimapp/discovery-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the discovery HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(env.Engine, env.Store),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// batchFunc is the shared shape of Engine.Discover and Engine.NextBatch.
type batchFunc func(ctx context.Context, raw map[string]any) (*model.DiscoveryResult, []filter.Warning, error)

// newRouter builds the HTTP API. Split from the command so handler tests can
// run against it directly.
func newRouter(eng *engine.Engine, st store.Store) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/v1/discover", handleBatch(st, eng.Discover))
	r.Post("/v1/next", handleBatch(st, eng.NextBatch))

	r.Post("/v1/reset", func(w http.ResponseWriter, req *http.Request) {
		raw, ok := decodeFilters(w, req)
		if !ok {
			return
		}
		if err := eng.Reset(raw); err != nil {
			writeFilterError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
	})

	return r
}

// discoverResponse flattens the result with its normalization warnings.
type discoverResponse struct {
	*model.DiscoveryResult
	Warnings []filter.Warning `json:"warnings,omitempty"`
}

func handleBatch(st store.Store, fn batchFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		raw, ok := decodeFilters(w, req)
		if !ok {
			return
		}

		res, warnings, err := fn(req.Context(), raw)
		if err != nil {
			if res == nil {
				writeFilterError(w, err)
				return
			}
			// Upstream failure: the error-state result is the body.
			zap.L().Error("discovery failed", zap.Error(err))
			writeJSON(w, http.StatusBadGateway, discoverResponse{DiscoveryResult: res, Warnings: warnings})
			return
		}

		journalBatch(req.Context(), st, res)
		writeJSON(w, http.StatusOK, discoverResponse{DiscoveryResult: res, Warnings: warnings})
	}
}

func decodeFilters(w http.ResponseWriter, req *http.Request) (map[string]any, bool) {
	var raw map[string]any
	if err := json.NewDecoder(req.Body).Decode(&raw); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return nil, false
	}
	return raw, true
}

// writeFilterError maps normalization failures to 400; anything else at this
// point is unexpected.
func writeFilterError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, filter.ErrInvalidOrigin) || strings.Contains(err.Error(), "filter:") {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
