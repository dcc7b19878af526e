package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"loopctl/internal/activity"
	"loopctl/internal/logging"
	"loopctl/internal/remote"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// Synchronizer metrics
	Polls               *prometheus.CounterVec
	PollDuration        *prometheus.HistogramVec
	LastPollSuccess     *prometheus.GaugeVec
	ConsecutiveFailures *prometheus.GaugeVec

	// Remote state
	StreamRunning prometheus.Gauge
	Uploading     prometheus.Gauge

	// Dispatcher metrics
	Commands        *prometheus.CounterVec
	ActivityEntries prometheus.Counter
}

// New creates all metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,

		Polls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "loopctl_polls_total",
			Help: "Refreshes of synchronized state by slice and result",
		}, []string{"slice", "result"}),
		PollDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "loopctl_poll_duration_seconds",
			Help:    "Round-trip time of state refreshes",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		}, []string{"slice"}),
		LastPollSuccess: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "loopctl_last_poll_success_timestamp_seconds",
			Help: "Unix time of the last successful refresh by slice",
		}, []string{"slice"}),
		ConsecutiveFailures: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "loopctl_poll_consecutive_failures",
			Help: "Refresh failures since the last success by slice",
		}, []string{"slice"}),

		StreamRunning: factory.NewGauge(prometheus.GaugeOpts{
			Name: "loopctl_stream_running",
			Help: "1 when the service reports the stream as running",
		}),
		Uploading: factory.NewGauge(prometheus.GaugeOpts{
			Name: "loopctl_upload_in_progress",
			Help: "1 while an upload is in flight",
		}),

		Commands: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "loopctl_commands_total",
			Help: "Dispatched commands by verb and result",
		}, []string{"command", "result"}),
		ActivityEntries: factory.NewCounter(prometheus.CounterOpts{
			Name: "loopctl_activity_entries_total",
			Help: "Entries appended to the activity log",
		}),
	}
}

// Registry exposes the underlying registry for tests and custom handlers.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObservePoll records one refresh of a state slice.
func (m *Metrics) ObservePoll(slice string, err error, elapsed time.Duration) {
	m.PollDuration.WithLabelValues(slice).Observe(elapsed.Seconds())
	if err != nil {
		m.Polls.WithLabelValues(slice, "error").Inc()
		m.ConsecutiveFailures.WithLabelValues(slice).Inc()
		return
	}
	m.Polls.WithLabelValues(slice, "success").Inc()
	m.ConsecutiveFailures.WithLabelValues(slice).Set(0)
	m.LastPollSuccess.WithLabelValues(slice).SetToCurrentTime()
}

// ObserveStatus records the latest run status.
func (m *Metrics) ObserveStatus(status remote.RunStatus) {
	m.StreamRunning.Set(boolToFloat(status.Running))
}

// ObserveUploading records the upload flag.
func (m *Metrics) ObserveUploading(active bool) {
	m.Uploading.Set(boolToFloat(active))
}

// ObserveCommand records one dispatcher verb outcome.
func (m *Metrics) ObserveCommand(verb string, ok bool) {
	result := "success"
	if !ok {
		result = "error"
	}
	m.Commands.WithLabelValues(verb, result).Inc()
}

// Append counts activity entries; Metrics is an activity.Sink.
func (m *Metrics) Append(activity.Entry) {
	m.ActivityEntries.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Serve exposes /metrics on bind until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, bind string, logger *slog.Logger) error {
	logger = logging.NewComponentLogger(logger, "metrics")
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: bind, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics listener started", logging.String("bind", bind))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func boolToFloat(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
