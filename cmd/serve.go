package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/veritax-advisory/taxhealth-cli/internal/config"
	"github.com/veritax-advisory/taxhealth-cli/internal/db"
	"github.com/veritax-advisory/taxhealth-cli/internal/readiness"
	"github.com/veritax-advisory/taxhealth-cli/internal/scoring"
	sig "github.com/veritax-advisory/taxhealth-cli/internal/signal"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP scoring API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := scoring.ValidateConfig(cfg.Scoring); err != nil {
			return err
		}

		pool, err := storePool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := scoring.Migrate(ctx, pool); err != nil {
			return eris.Wrap(err, "serve: migrate")
		}

		api := newAPI(pool, cfg.Scoring, cfg.Server)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           api.routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
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

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// api bundles the handler dependencies so tests can back them with pgxmock.
type api struct {
	pool        db.Pool
	collector   *sig.Collector
	engine      *scoring.Engine
	scoringCfg  config.ScoringConfig
	recalcLimit *rate.Limiter
}

func newAPI(pool db.Pool, scoringCfg config.ScoringConfig, serverCfg config.ServerConfig) *api {
	perMinute := serverCfg.RecalcPerMinute
	if perMinute <= 0 {
		perMinute = 30
	}
	return &api{
		pool:        pool,
		collector:   sig.NewCollector(pool),
		engine:      scoring.NewEngine(scoringCfg),
		scoringCfg:  scoringCfg,
		recalcLimit: rate.NewLimiter(rate.Limit(float64(perMinute)/60), perMinute),
	}
}

func (a *api) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", a.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/companies/{companyID}/score", a.handleGetScore)
		r.Post("/companies/{companyID}/score/recalculate", a.handleRecalculate)
		r.Get("/companies/{companyID}/readiness", a.handleGetReadiness)
		r.Post("/readiness", a.handleComputeReadiness)
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (a *api) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *api) handleGetScore(w http.ResponseWriter, r *http.Request) {
	companyID := chi.URLParam(r, "companyID")

	result, err := scoring.LoadResult(r.Context(), a.pool, companyID)
	if err != nil {
		zap.L().Error("load score failed", zap.String("company_id", companyID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "load score"})
		return
	}
	if result == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "company has no score yet"})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *api) handleRecalculate(w http.ResponseWriter, r *http.Request) {
	if !a.recalcLimit.Allow() {
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "recalculation rate limit exceeded"})
		return
	}

	companyID := chi.URLParam(r, "companyID")

	snap, err := a.collector.Snapshot(r.Context(), companyID)
	if err != nil {
		zap.L().Warn("snapshot failed", zap.String("company_id", companyID), zap.Error(err))
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "company not found"})
		return
	}

	result := a.engine.ComputeScore(snap)
	scoring.Stamp(&result, a.scoringCfg, time.Now().UTC())

	if err := scoring.SaveResult(r.Context(), a.pool, &result); err != nil {
		zap.L().Error("save score failed", zap.String("company_id", companyID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "save score"})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *api) handleGetReadiness(w http.ResponseWriter, r *http.Request) {
	companyID := chi.URLParam(r, "companyID")

	responses, err := readiness.LoadResponses(r.Context(), a.pool, companyID)
	if err != nil {
		zap.L().Error("load readiness failed", zap.String("company_id", companyID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "load readiness"})
		return
	}
	writeJSON(w, http.StatusOK, readiness.Compute(responses))
}

func (a *api) handleComputeReadiness(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Answers map[string]string `json:"answers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	responses := make(map[readiness.ItemKey]readiness.Response, len(req.Answers))
	for k, v := range req.Answers {
		responses[readiness.ItemKey(k)] = readiness.ParseResponse(v)
	}
	writeJSON(w, http.StatusOK, readiness.Compute(responses))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}
