package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// SetupRoutes configures the bridge routes. Metrics are served from
// gatherer when it is not nil.
func SetupRoutes(r chi.Router, h *Handler, gatherer prometheus.Gatherer) {
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: log.StandardLogger(), NoColor: true}))
	r.Use(middleware.Recoverer)

	r.Get("/health", h.HealthCheck)
	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/controllers", func(r chi.Router) {
		r.Get("/", h.ListControllers)
		r.Get("/{id}", h.GetController)
		r.Put("/{id}/zones/{zone}/color", h.SetZoneColor)
		r.Post("/{id}/custom-mode", h.SetCustomMode)
	})
}

// Serve runs the bridge on address until ctx ends, then shuts it down
// gracefully.
func Serve(ctx context.Context, address string, h *Handler, gatherer prometheus.Gatherer) error {
	r := chi.NewRouter()
	SetupRoutes(r, h, gatherer)

	srv := &http.Server{
		Addr:              address,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.WithField("address", address).Info("bridge listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info("bridge stopping")
	return srv.Shutdown(shutdownCtx)
}
