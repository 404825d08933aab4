package otelx

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// Carrier is a W3C trace context detached from any request, small enough to
// persist next to a row and restore later.
type Carrier struct {
	Traceparent string
	Tracestate  string
}

// CarrierFrom captures the span in ctx through the global propagator. The
// result is empty when ctx carries no sampled span or no propagator is set.
func CarrierFrom(ctx context.Context) Carrier {
	m := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, m)
	return Carrier{Traceparent: m.Get("traceparent"), Tracestate: m.Get("tracestate")}
}

func (c Carrier) Empty() bool {
	return c.Traceparent == ""
}

// Restore returns ctx with the captured span as remote parent. An empty
// carrier leaves ctx untouched.
func (c Carrier) Restore(ctx context.Context) context.Context {
	if c.Empty() {
		return ctx
	}
	m := propagation.MapCarrier{"traceparent": c.Traceparent}
	if c.Tracestate != "" {
		m["tracestate"] = c.Tracestate
	}
	return otel.GetTextMapPropagator().Extract(ctx, m)
}
