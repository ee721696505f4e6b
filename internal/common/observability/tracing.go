package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// newTracerProvider registers a global tracer provider. Spans opened by
// camunda.Process for every job end up here; with no exporter attached they
// are sampled and dropped, which keeps trace context flowing to downstream
// clients.
func newTracerProvider(sampleRatio float64, opts ...sdktrace.TracerProviderOption) *sdktrace.TracerProvider {
	if sampleRatio <= 0 || sampleRatio > 1 {
		sampleRatio = 1
	}
	opts = append([]sdktrace.TracerProviderOption{
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(sampleRatio))),
	}, opts...)

	provider := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(provider)
	return provider
}

func (o *Observability) shutdownTracing() {
	if o.tracerProvider == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := o.tracerProvider.Shutdown(ctx); err != nil {
		o.log.Warn("tracer provider shutdown failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
