package conn

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ngerakines/rgbops/wire"
)

// Metrics holds the Prometheus collectors shared by every Conn given the
// same value. A nil *Metrics records nothing.
//
// Metrics collected:
//   - rgbops_requests_total: requests by kind and status
//   - rgbops_request_duration_seconds: request latency by kind
//   - rgbops_commands_total: fire-and-forget commands by kind
//   - rgbops_notifications_total: notifications received by kind
//   - rgbops_notifications_dropped_total: notifications lost to full subscribers
//   - rgbops_orphaned_replies_total: late replies discarded
//   - rgbops_disconnects_total: sessions that ended
type Metrics struct {
	requests             *prometheus.CounterVec
	requestDuration      *prometheus.HistogramVec
	commands             *prometheus.CounterVec
	notifications        *prometheus.CounterVec
	notificationsDropped prometheus.Counter
	orphans              prometheus.Counter
	disconnects          prometheus.Counter
}

// NewMetrics registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rgbops",
			Name:      "requests_total",
			Help:      "Total number of OpenRGB requests by kind and outcome",
		}, []string{"kind", "status"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "rgbops",
			Name:      "request_duration_seconds",
			Help:      "Time from acquiring the request gate to receiving the reply",
			Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 10},
		}, []string{"kind"}),

		commands: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rgbops",
			Name:      "commands_total",
			Help:      "Total number of fire-and-forget commands written",
		}, []string{"kind"}),

		notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rgbops",
			Name:      "notifications_total",
			Help:      "Total number of server notifications received",
		}, []string{"kind"}),

		notificationsDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "rgbops",
			Name:      "notifications_dropped_total",
			Help:      "Notifications not delivered because a subscriber buffer was full",
		}),

		orphans: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "rgbops",
			Name:      "orphaned_replies_total",
			Help:      "Replies discarded because their caller gave up",
		}),

		disconnects: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "rgbops",
			Name:      "disconnects_total",
			Help:      "Sessions that ended, cleanly or not",
		}),
	}
}

func requestStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ErrDisconnected), errors.Is(err, ErrClosed):
		return "disconnected"
	case errors.Is(err, wire.ErrUnsupportedKind):
		return "unsupported"
	default:
		return "error"
	}
}

func (m *Metrics) observeRequest(kind wire.Kind, err error, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(kind.String(), requestStatus(err)).Inc()
	if err == nil {
		m.requestDuration.WithLabelValues(kind.String()).Observe(d.Seconds())
	}
}

func (m *Metrics) command(kind wire.Kind) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(kind.String()).Inc()
}

func (m *Metrics) notification(kind wire.Kind) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(kind.String()).Inc()
}

func (m *Metrics) dropped() {
	if m == nil {
		return
	}
	m.notificationsDropped.Inc()
}

func (m *Metrics) orphan() {
	if m == nil {
		return
	}
	m.orphans.Inc()
}

func (m *Metrics) disconnect() {
	if m == nil {
		return
	}
	m.disconnects.Inc()
}
