package conn

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ngerakines/rgbops/wire"
)

func (c *Conn) startSpan(ctx context.Context, name string, kind wire.Kind, deviceIndex uint32) (context.Context, trace.Span) {
	return c.opts.tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("openrgb.kind", kind.String()),
			attribute.Int64("openrgb.device_index", int64(deviceIndex)),
			attribute.Int64("openrgb.protocol_version", int64(c.version)),
		),
	)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
