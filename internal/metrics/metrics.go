// Package metrics exposes bridge activity as prometheus collectors.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const namespace = "basewasm"

// Collector implements bridge.Recorder.
type Collector struct {
	registry       *prometheus.Registry
	writes         prometheus.Counter
	bytes          prometheus.Counter
	memoryNotReady prometheus.Counter
	flushes        *prometheus.CounterVec
	executeErrors  prometheus.Counter
	instances      prometheus.Gauge
}

// NewCollector registers the bridge collectors, plus the Go runtime and
// process collectors, on a private registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		writes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "writes_total",
			Help:      "Guest print calls decoded into the text buffer.",
		}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "bytes_total",
			Help:      "Bytes read from guest memory by print calls.",
		}),
		memoryNotReady: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "memory_not_ready_total",
			Help:      "Print calls made before guest memory was bound.",
		}),
		flushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "flushes_total",
			Help:      "Buffer flushes by mode.",
		}, []string{"mode"}),
		executeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "execute_errors_total",
			Help:      "Execute-mode flushes whose snippet failed.",
		}),
		instances: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "wasm",
			Name:      "instances",
			Help:      "Live guest instances.",
		}),
	}

	c.registry.MustRegister(
		c.writes,
		c.bytes,
		c.memoryNotReady,
		c.flushes,
		c.executeErrors,
		c.instances,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

func (c *Collector) ObserveWrite(n int) {
	c.writes.Inc()
	c.bytes.Add(float64(n))
}

func (c *Collector) ObserveMemoryNotReady() {
	c.memoryNotReady.Inc()
}

func (c *Collector) ObserveFlush(mode string) {
	c.flushes.WithLabelValues(mode).Inc()
}

func (c *Collector) ObserveExecuteError() {
	c.executeErrors.Inc()
}

// InstanceStarted and InstanceStopped track live guest instances.
func (c *Collector) InstanceStarted() { c.instances.Inc() }
func (c *Collector) InstanceStopped() { c.instances.Dec() }

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on port until ctx is done.
func (c *Collector) Serve(ctx context.Context, port int, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("Serving metrics", zap.Int("port", port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}
