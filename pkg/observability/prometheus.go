// Package observability provides metrics for the orchestrator and pipeline
package observability

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

//nolint:gochecknoglobals // Singleton pattern for metrics server
var (
	metricsServer *http.Server
	once          sync.Once
)

// StartMetricsServer starts the Prometheus metrics endpoint plus a trivial
// health endpoint, once per process. Intended for the long-running daemon;
// one-shot CLI commands leave it off.
func StartMetricsServer(log logrus.FieldLogger, addr string) {
	once.Do(func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})

		metricsServer = &http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 15 * time.Second,
			Handler:           mux,
		}

		go func() {
			log.WithField("addr", addr).Info("Starting metrics server")

			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Fatal("Failed to start metrics server")
			}
		}()
	})
}
