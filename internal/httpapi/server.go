package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"whisperctl/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Status() types.StatusResponse
}

type api struct {
	svc Service
}

// NewMux assembles the status API router.
func NewMux(svc Service) http.Handler {
	a := &api{svc: svc}
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	r.Use(requestLogger)
	r.Use(MetricsMiddleware)
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		opts := cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
		}
		if len(opts.AllowedOrigins) == 0 {
			opts.AllowedOrigins = []string{"*"}
		}
		if len(opts.AllowedMethods) == 0 {
			opts.AllowedMethods = []string{http.MethodGet, http.MethodOptions}
		}
		r.Use(cors.Handler(opts))
	}

	r.Get("/status", a.status)
	r.Get("/healthz", a.healthz)
	r.Get("/readyz", a.readyz)

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)
	return r
}

// status returns the full deployment snapshot.
// @Summary Deployment status
// @Tags deployment
// @Produce json
// @Success 200 {object} types.StatusResponse
// @Router /status [get]
func (a *api) status(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(a.svc.Status()); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
	}
}

// healthz reports process liveness.
// @Summary Liveness probe
// @Tags probes
// @Produce plain
// @Success 200 {string} string "ok"
// @Router /healthz [get]
func (a *api) healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// readyz reports whether the launched inference server is up.
// @Summary Readiness probe
// @Tags probes
// @Produce plain
// @Success 200 {string} string "ready"
// @Failure 503 {object} types.ErrorResponse
// @Router /readyz [get]
func (a *api) readyz(w http.ResponseWriter, r *http.Request) {
	st := a.svc.Status().Server.State
	if st == types.StateRunning || st == types.StateReady {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}
	writeJSONError(w, http.StatusServiceUnavailable, "server not running: "+st)
}

// Server hosts the status API beside a running deployment.
type Server struct {
	http *http.Server
}

// NewServer builds the sidecar server on addr.
func NewServer(addr string, svc Service) *Server {
	return &Server{http: &http.Server{
		Addr:              addr,
		Handler:           NewMux(svc),
		ReadHeaderTimeout: 5 * time.Second,
	}}
}

// Run serves until ctx is cancelled, then drains connections briefly.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.http.ListenAndServe() }()
	if zlog != nil {
		zlog.Info().Str("addr", s.http.Addr).Msg("status API listening")
	}
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.http.Shutdown(sctx)
}
