// Package httpapi exposes a small read-only status surface over the
// daemon's history, plus the one write endpoint system cron mode
// needs to resume a waiting flow's timer. It never touches a Flow
// directly — everything here reads history or calls back into the
// daemon's own resume function.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/remindctl/remind/config"
	"github.com/remindctl/remind/history"
	"github.com/remindctl/remind/logger"
	"github.com/remindctl/remind/telemetry"
)

// ResumeFunc fires the timer for the named workflow, as if its
// StartTimer effect had just elapsed. It is how a system-crontab
// entry (see package cron) turns an HTTP request back into a
// TimerFired event for the right Flow.
type ResumeFunc func(workflowName string) error

// Server serves /healthz, /metrics, /workflows, /workflows/{name}/cycles,
// and /internal/timer/{name}.
type Server struct {
	cfg       *config.HTTPConfig
	history   history.Store
	workflows []string
	resume    ResumeFunc
	httpSrv   *http.Server
}

// New builds a Server. workflows lists the configured workflow names
// the /workflows endpoint reports on.
func New(cfg *config.HTTPConfig, store history.Store, workflows []string, resume ResumeFunc) *Server {
	return &Server{cfg: cfg, history: store, workflows: workflows, resume: resume}
}

func (s *Server) mux() *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("/healthz", withRequestID(telemetry.WrapHandler("healthz", http.HandlerFunc(s.handleHealthz))))
	mux.Handle("/metrics", telemetry.MetricsHandler())
	mux.Handle("/workflows", withRequestID(telemetry.WrapHandler("workflows", http.HandlerFunc(s.handleWorkflows))))
	mux.Handle("/workflows/", withRequestID(telemetry.WrapHandler("workflow-cycles", http.HandlerFunc(s.handleWorkflowCycles))))
	mux.Handle("/internal/timer/", withRequestID(telemetry.WrapHandler("internal-timer", http.HandlerFunc(s.handleInternalTimer))))

	return mux
}

// withRequestID stamps every request with an X-Request-Id, generating
// one when the caller didn't send one, so a cron-triggered resume call
// can be traced through the logs it produces.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-Id")
		if reqID == "" {
			reqID = uuid.New().String()
		}
		w.Header().Set("X-Request-Id", reqID)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleWorkflows(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"workflows": s.workflows})
}

func (s *Server) handleWorkflowCycles(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/workflows/")
	name = strings.TrimSuffix(name, "/cycles")
	if name == "" {
		http.Error(w, "workflow name required", http.StatusBadRequest)
		return
	}
	cycles, err := s.history.RecentCycles(r.Context(), name, 20)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(cycles)
}

func (s *Server) handleInternalTimer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/internal/timer/")
	if name == "" {
		http.Error(w, "workflow name required", http.StatusBadRequest)
		return
	}
	if s.resume == nil {
		http.Error(w, "system cron mode is not enabled on this daemon", http.StatusNotImplemented)
		return
	}
	if err := s.resume(name); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// ListenAndServe runs the status server until ctx is cancelled or a
// SIGINT/SIGTERM is received, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := "127.0.0.1:8089"
	if s.cfg != nil && s.cfg.Port != 0 {
		host := s.cfg.Host
		if host == "" {
			host = "127.0.0.1"
		}
		addr = host + ":" + strconv.Itoa(s.cfg.Port)
	}

	s.httpSrv = &http.Server{Addr: addr, Handler: s.mux()}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("status API listening on %s", addr)
		errCh <- s.httpSrv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-sigCh:
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.httpSrv.Shutdown(shutdownCtx)
}
