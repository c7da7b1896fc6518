// Package metrics exposes Prometheus instrumentation for a storefront session.
//
// A nil *Metrics is valid and records nothing, so components can take one
// unconditionally.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
	OutcomeNoop   = "noop"
)

// Config configures metric registration.
type Config struct {
	// Namespace is the metrics namespace (default: "storefront").
	Namespace string

	// ConstLabels are added to every metric.
	ConstLabels prometheus.Labels
}

// Option configures Config.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// Metrics holds the session collectors.
type Metrics struct {
	notifications  *prometheus.CounterVec
	cartOps        *prometheus.CounterVec
	workflows      *prometheus.CounterVec
	uploadBytes    prometheus.Counter
	uploadProgress prometheus.Gauge
}

// New registers the session collectors on reg. Registering twice on the same
// registry panics, as with promauto.
func New(reg prometheus.Registerer, opts ...Option) *Metrics {
	cfg := Config{Namespace: "storefront"}
	for _, opt := range opts {
		opt(&cfg)
	}
	f := promauto.With(reg)

	return &Metrics{
		notifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "notifications_total",
			Help:        "Notifications enqueued, by kind.",
			ConstLabels: cfg.ConstLabels,
		}, []string{"kind"}),
		cartOps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "cart_operations_total",
			Help:        "Cart operations, by operation and result.",
			ConstLabels: cfg.ConstLabels,
		}, []string{"op", "result"}),
		workflows: f.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "workflow_runs_total",
			Help:        "Account and upload workflow runs, by workflow and outcome.",
			ConstLabels: cfg.ConstLabels,
		}, []string{"workflow", "outcome"}),
		uploadBytes: f.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "upload_bytes_total",
			Help:        "Bytes streamed to blob storage.",
			ConstLabels: cfg.ConstLabels,
		}),
		uploadProgress: f.NewGauge(prometheus.GaugeOpts{
			Namespace:   cfg.Namespace,
			Name:        "upload_progress_percent",
			Help:        "Progress of the current upload, 0-100.",
			ConstLabels: cfg.ConstLabels,
		}),
	}
}

// Notification counts an enqueued notification.
func (m *Metrics) Notification(kind string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(kind).Inc()
}

// CartOp counts a cart operation.
func (m *Metrics) CartOp(op, result string) {
	if m == nil {
		return
	}
	m.cartOps.WithLabelValues(op, result).Inc()
}

// Workflow counts a workflow run.
func (m *Metrics) Workflow(name, outcome string) {
	if m == nil {
		return
	}
	m.workflows.WithLabelValues(name, outcome).Inc()
}

// UploadBytes adds n streamed bytes.
func (m *Metrics) UploadBytes(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.uploadBytes.Add(float64(n))
}

// UploadProgress records the current upload progress.
func (m *Metrics) UploadProgress(p float64) {
	if m == nil {
		return
	}
	m.uploadProgress.Set(p)
}
