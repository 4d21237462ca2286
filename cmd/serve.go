package main

import (
	"encoding/json"
	"errors"
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

	"github.com/feasai/viability-engine/internal/engine"
	"github.com/feasai/viability-engine/internal/model"
	"github.com/feasai/viability-engine/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, "serve")
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
			Handler: newRouter(env, cfg.Server.CORSOrigins),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			_ = srv.Shutdown(ctx)
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

// newRouter builds the API routes over the command environment.
func newRouter(env *env, corsOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/analyses", env.handleCreateAnalysis)
		r.Get("/analyses", env.handleListAnalyses)
		r.Get("/analyses/{id}", env.handleGetAnalysis)
		r.Delete("/analyses/{id}", env.handleDeleteAnalysis)
		r.Get("/stats/dashboard", env.handleDashboard)
	})

	return r
}

type analysisRequestBody struct {
	User        string   `json:"user"`
	Description string   `json:"description"`
	Factors     []string `json:"factors,omitempty"`
	Provider    string   `json:"provider,omitempty"`
}

func (e *env) handleCreateAnalysis(w http.ResponseWriter, r *http.Request) {
	var body analysisRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.User == "" {
		writeError(w, http.StatusBadRequest, "user is required")
		return
	}

	req := model.AnalysisRequest{User: body.User, Description: body.Description}
	for _, name := range body.Factors {
		f, ok := model.ParseFactor(name)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown factor: "+name)
			return
		}
		req.Factors = append(req.Factors, f)
	}
	if body.Provider != "" {
		p, ok := model.ParseProvider(body.Provider)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown provider: "+body.Provider)
			return
		}
		req.PreferredProvider = p
	}

	record, err := runAnalysis(r.Context(), e, req)
	if err != nil {
		writeAnalysisError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, record)
}

func (e *env) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.AnalysisFilter{
		User:     q.Get("user"),
		Category: model.Category(q.Get("category")),
		Limit:    atoiDefault(q.Get("limit"), 50),
		Offset:   atoiDefault(q.Get("offset"), 0),
	}

	records, err := e.Store.ListAnalyses(r.Context(), filter)
	if err != nil {
		zap.L().Error("list analyses", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list analyses failed")
		return
	}
	if records == nil {
		records = []model.Analysis{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (e *env) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	record, err := e.Store.GetAnalysis(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "analysis not found")
			return
		}
		zap.L().Error("get analysis", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "get analysis failed")
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (e *env) handleDeleteAnalysis(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := e.Store.DeleteAnalysis(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "analysis not found")
			return
		}
		zap.L().Error("delete analysis", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "delete analysis failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (e *env) handleDashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := buildDashboard(r.Context(), e.Store)
	if err != nil {
		zap.L().Error("build dashboard", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "dashboard failed")
		return
	}
	writeJSON(w, http.StatusOK, dashboard)
}

// writeAnalysisError maps engine errors to HTTP: configuration problems are
// the client's fault, exhaustion is an upstream failure (429 when every
// provider was rate limited), anything else is a 500.
func writeAnalysisError(w http.ResponseWriter, err error) {
	var ce *engine.ConfigurationError
	if errors.As(err, &ce) {
		writeError(w, http.StatusBadRequest, ce.Reason)
		return
	}

	var ex *engine.AllProvidersExhaustedError
	if errors.As(err, &ex) {
		status := http.StatusBadGateway
		if ex.RateLimited() {
			status = http.StatusTooManyRequests
		}
		writeJSON(w, status, map[string]any{
			"error": "all providers exhausted",
			"trail": ex.Trail,
		})
		return
	}

	zap.L().Error("analysis failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "analysis failed")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
