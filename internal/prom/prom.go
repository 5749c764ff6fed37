// Package prom exposes projection metrics. Every helper is a no-op until Init.
package prom

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	namespace = "stake_scope"

	projectorSubsystem = "projector"
	decodeSubsystem    = "decode"
)

var (
	metrics bool

	eventsApplied  *prometheus.CounterVec
	eventsRejected *prometheus.CounterVec
	decodeFailures prometheus.Counter
	cursorBlock    prometheus.Gauge
	applyDuration  prometheus.Histogram
)

// Init registers the collectors with the default registry.
func Init() {
	if metrics {
		return
	}
	metrics = true

	eventsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: projectorSubsystem,
		Name:      "events_applied_total",
		Help:      "Number of events applied to the entity store",
	}, []string{"event"})

	eventsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: projectorSubsystem,
		Name:      "events_rejected_total",
		Help:      "Number of events rejected by the projector",
	}, []string{"event", "reason"})

	decodeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: decodeSubsystem,
		Name:      "failures_total",
		Help:      "Number of logs that failed to decode",
	})

	cursorBlock = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: projectorSubsystem,
		Name:      "cursor_block",
		Help:      "Block number of the last applied log",
	})

	applyDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: projectorSubsystem,
		Name:      "apply_duration_seconds",
		Help:      "Time spent applying one event",
		Buckets:   prometheus.DefBuckets,
	})
}

// IncApplied counts an applied event.
func IncApplied(event string) {
	if metrics {
		eventsApplied.WithLabelValues(event).Inc()
	}
}

// IncRejected counts a rejected event.
func IncRejected(event, reason string) {
	if metrics {
		eventsRejected.WithLabelValues(event, reason).Inc()
	}
}

// IncDecodeFailure counts a decode failure.
func IncDecodeFailure() {
	if metrics {
		decodeFailures.Inc()
	}
}

// SetCursorBlock records the last applied block.
func SetCursorBlock(block uint64) {
	if metrics {
		cursorBlock.Set(float64(block))
	}
}

// ObserveApply records how long one event took.
func ObserveApply(d time.Duration) {
	if metrics {
		applyDuration.Observe(d.Seconds())
	}
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics server shutdown", zap.Error(err))
		}
	}()
	go func() {
		logger.Info("metrics server start", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
}
