// Package server exposes stored runs, the simulator and the linkage
// solver over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/san-kum/fourbar/internal/config"
	"github.com/san-kum/fourbar/internal/experiment"
	"github.com/san-kum/fourbar/internal/storage"
)

const (
	// MaxDuration bounds the simulated time a single request may ask for.
	MaxDuration = 3600.0
	// MaxSteps bounds Duration/Dt for a single request.
	MaxSteps = 1_000_000
)

type Server struct {
	store    *storage.Store
	registry *experiment.Registry
	base     *config.Config
	log      *slog.Logger
}

// New builds a server. base supplies every setting a request leaves out.
func New(store *storage.Store, registry *experiment.Registry, base *config.Config, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{store: store, registry: registry, base: base, log: log}
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/runs", s.listRuns).Methods("GET")
	api.HandleFunc("/runs/{id}", s.getRun).Methods("GET")
	api.HandleFunc("/runs/{id}/states", s.getStates).Methods("GET")
	api.HandleFunc("/runs/{id}/report", s.getReport).Methods("GET")
	api.HandleFunc("/runs/{id}/xlsx", s.getXLSX).Methods("GET")
	api.HandleFunc("/simulate", s.simulate).Methods("POST")
	api.HandleFunc("/pose", s.pose).Methods("GET")
	api.HandleFunc("/pose/svg", s.poseSVG).Methods("GET")
	api.HandleFunc("/presets", s.presets).Methods("GET")

	return r
}

// Handler returns the router wrapped in CORS headers.
func (s *Server) Handler() http.Handler {
	return CORS(s.Router())
}

func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"elapsed", time.Since(start))
	})
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
