// Package metrics exposes sampling counters on a private Prometheus registry.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry creates a registry with the Go and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

type Metrics struct {
	Cycles       prometheus.Counter
	Fallbacks    *prometheus.CounterVec // labels: reason
	Published    *prometheus.CounterVec // labels: output
	PublishError *prometheus.CounterVec // labels: output
	LastSeq      prometheus.Gauge
	TemperatureC prometheus.Gauge
	HumidityPct  prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "envframe_cycles_total",
			Help: "Sampling cycles run.",
		}),
		Fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "envframe_fallback_total",
			Help: "Cycles that used the fallback reading, by reason.",
		}, []string{"reason"}),
		Published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "envframe_frames_published_total",
			Help: "Frames handed to an output successfully.",
		}, []string{"output"}),
		PublishError: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "envframe_publish_errors_total",
			Help: "Frames an output failed to publish.",
		}, []string{"output"}),
		LastSeq: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "envframe_last_seq",
			Help: "Sequence number of the last frame.",
		}),
		TemperatureC: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "envframe_temperature_celsius",
			Help: "Temperature carried in the last frame, before encoding.",
		}),
		HumidityPct: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "envframe_humidity_percent",
			Help: "Relative humidity carried in the last frame, before encoding.",
		}),
	}
	reg.MustRegister(m.Cycles, m.Fallbacks, m.Published, m.PublishError, m.LastSeq, m.TemperatureC, m.HumidityPct)
	return m
}

// Serve runs the /metrics endpoint until ctx is done.
func Serve(ctx context.Context, addr string, reg *prometheus.Registry, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(reg))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
