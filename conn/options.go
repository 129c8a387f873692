package conn

import (
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/ngerakines/rgbops/wire"
)

const (
	// DefaultRequestTimeout bounds every request that arrives without a
	// tighter context deadline.
	DefaultRequestTimeout = 10 * time.Second

	// DefaultNotificationBuffer is the per-subscriber queue length.
	DefaultNotificationBuffer = 16

	tracerName = "github.com/ngerakines/rgbops/conn"
)

// Option configures a Conn.
type Option func(*options)

type options struct {
	name         string
	maxVersion   uint32
	timeout      time.Duration
	notifyBuffer int
	logger       log.FieldLogger
	metrics      *Metrics
	tracer       trace.Tracer
	maxPayload   uint32
}

func defaultOptions() options {
	return options{
		maxVersion:   wire.ProtocolVersion,
		timeout:      DefaultRequestTimeout,
		notifyBuffer: DefaultNotificationBuffer,
		logger:       log.StandardLogger(),
		maxPayload:   wire.DefaultMaxPayload,
	}
}

// WithClientName sends SetClientName during the handshake.
func WithClientName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithMaxVersion lowers the protocol version offered to the server.
func WithMaxVersion(v uint32) Option {
	return func(o *options) {
		if v < wire.ProtocolVersion {
			o.maxVersion = v
		}
	}
}

// WithRequestTimeout sets the per-request timeout. Zero disables it.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithNotificationBuffer sets how many notifications each subscriber may
// have queued before further ones are dropped.
func WithNotificationBuffer(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.notifyBuffer = n
		}
	}
}

func WithLogger(logger log.FieldLogger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics records request and notification counters on m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithTracer replaces the tracer taken from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) {
		o.tracer = t
	}
}

// WithMaxPayload caps the payload size accepted from and sent to the server.
func WithMaxPayload(n uint32) Option {
	return func(o *options) {
		if n > 0 {
			o.maxPayload = n
		}
	}
}

func (o *options) resolve() {
	if o.tracer == nil {
		o.tracer = otel.Tracer(tracerName)
	}
	if o.logger == nil {
		o.logger = log.StandardLogger()
	}
}
