package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/specialistvlad/stageplan/internal/ctxlog"
	"github.com/specialistvlad/stageplan/internal/sqlitestore"
)

// routes builds the HTTP surface served next to a run.
func (a *App) routes(ctx context.Context) http.Handler {
	logger := ctxlog.FromContext(ctx)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			logger.Debug("HTTP: Request received.", "remote_addr", req.RemoteAddr, "method", req.Method, "path", req.URL.Path)
			next.ServeHTTP(w, req)
		})
	})

	r.Get("/health", a.handleHealth)
	r.Get("/plans", a.handlePlans)
	r.Get("/plans/{pipeline}", a.handlePlan)
	r.Get("/runs", a.handleRuns)
	return r
}

func (a *App) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

func (a *App) handlePlans(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.Plans())
}

func (a *App) handlePlan(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "pipeline")
	for _, p := range a.Plans() {
		if p.Pipeline == name {
			writeJSON(w, http.StatusOK, p)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": fmt.Sprintf("pipeline '%s' not found", name)})
}

func (a *App) handleRuns(w http.ResponseWriter, r *http.Request) {
	if a.db == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "run history is disabled"})
		return
	}
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}
	runs, err := sqlitestore.NewRunLog(a.db).List(r.Context(), r.URL.Query().Get("pipeline"), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	views := make([]runView, 0, len(runs))
	for _, run := range runs {
		views = append(views, runView{
			ID:          run.ID,
			Pipeline:    run.Pipeline,
			Fingerprint: run.Fingerprint,
			Status:      run.Status.String(),
			StartedAt:   run.StartedAt,
			FinishedAt:  run.FinishedAt,
		})
	}
	writeJSON(w, http.StatusOK, views)
}

type runView struct {
	ID          string     `json:"runId"`
	Pipeline    string     `json:"pipeline"`
	Fingerprint string     `json:"fingerprint"`
	Status      string     `json:"status"`
	StartedAt   time.Time  `json:"startedAt"`
	FinishedAt  *time.Time `json:"finishedAt,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// startHealthcheckServer initializes and runs the health check HTTP server.
func (a *App) startHealthcheckServer(ctx context.Context, port int) {
	logger := ctxlog.FromContext(ctx)
	addr := fmt.Sprintf(":%d", port)
	a.httpServer = &http.Server{
		Addr:              addr,
		Handler:           a.routes(ctx),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("🩺 Health check server starting", "address", fmt.Sprintf("http://localhost%s/health", addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Health check server failed unexpectedly", "error", err)
		}
	}()
}

func (a *App) closeHealthcheckServer(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)
	if a.httpServer == nil {
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	logger.Info("🩺 Shutting down health check server...")
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Health check server shutdown failed", "error", err)
		return
	}
	logger.Debug("App: Health check server shut down.")
}
