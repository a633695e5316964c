package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/nanobot-go/nanobot/internal/channels"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsPollInterval = 15 * time.Second

// metricsExporter republishes each channel adapter's MetricsSnapshot onto
// a dedicated Prometheus registry, polled on an interval rather than
// pushed, since adapters already keep their own atomic counters and the
// exporter only needs an eventually-consistent view for scraping.
type metricsExporter struct {
	registry *prometheus.Registry
	mgr      *channels.Manager

	messagesSent     *prometheus.GaugeVec
	messagesReceived *prometheus.GaugeVec
	messagesFailed   *prometheus.GaugeVec
	reconnects       *prometheus.GaugeVec
	uptimeSeconds    *prometheus.GaugeVec
}

func newMetricsExporter(mgr *channels.Manager) *metricsExporter {
	reg := prometheus.NewRegistry()
	labels := []string{"channel"}
	return &metricsExporter{
		registry: reg,
		mgr:      mgr,
		messagesSent: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "nanobot", Subsystem: "channel", Name: "messages_sent_total",
		}, labels),
		messagesReceived: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "nanobot", Subsystem: "channel", Name: "messages_received_total",
		}, labels),
		messagesFailed: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "nanobot", Subsystem: "channel", Name: "messages_failed_total",
		}, labels),
		reconnects: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "nanobot", Subsystem: "channel", Name: "reconnect_attempts_total",
		}, labels),
		uptimeSeconds: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "nanobot", Subsystem: "channel", Name: "uptime_seconds",
		}, labels),
	}
}

func (e *metricsExporter) poll() {
	for ct, snap := range e.mgr.MetricsSnapshot() {
		label := prometheus.Labels{"channel": string(ct)}
		e.messagesSent.With(label).Set(float64(snap.MessagesSent))
		e.messagesReceived.With(label).Set(float64(snap.MessagesReceived))
		e.messagesFailed.With(label).Set(float64(snap.MessagesFailed))
		e.reconnects.With(label).Set(float64(snap.ReconnectAttempts))
		e.uptimeSeconds.With(label).Set(snap.Uptime.Seconds())
	}
}

// Serve polls metrics on an interval and serves them over HTTP at addr
// until ctx is cancelled.
func (e *metricsExporter) Serve(ctx context.Context, addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		ticker := time.NewTicker(metricsPollInterval)
		defer ticker.Stop()
		e.poll()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				e.poll()
			}
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("metrics server failed", "error", err)
	}
}
