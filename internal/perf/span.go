package perf

import (
	"context"
	"errors"
	"os"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const tracerName = "github.com/collective-modding/cm-toolkit/internal/perf"

type Config struct {
	Enabled bool
}

var (
	globalMu  sync.Mutex
	globalTP  *sdktrace.TracerProvider
	globalExp *spanExporter
)

var errNotEnabled = errors.New("performance tracing is not enabled")

// EnabledFromEnv reports whether span collection was requested via CMT_PERF.
func EnabledFromEnv() bool {
	_, present := os.LookupEnv("CMT_PERF")
	return present
}

func Init(cfg Config) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if !cfg.Enabled || globalTP != nil {
		return nil
	}

	exporter := newSpanExporter()

	// A syncer makes spans visible to SnapshotSpans the moment they end.
	globalExp = exporter
	globalTP = sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	return nil
}

func Reset() {
	globalMu.Lock()
	provider := globalTP
	globalTP = nil
	globalExp = nil
	globalMu.Unlock()

	if provider != nil {
		_ = provider.Shutdown(context.Background())
	}
}

// StartSpan begins a span on the collecting tracer, or on a no-op tracer
// when collection is off. A nil context is tolerated.
func StartSpan(ctx context.Context, name string, opts ...oteltrace.SpanStartOption) (context.Context, oteltrace.Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	return tracer().Start(ctx, name, opts...)
}

func WithAttributes(attrs ...attribute.KeyValue) oteltrace.SpanStartOption {
	return oteltrace.WithAttributes(attrs...)
}

func WithLinks(links ...oteltrace.Link) oteltrace.SpanStartOption {
	return oteltrace.WithLinks(links...)
}

func SnapshotSpans() ([]sdktrace.ReadOnlySpan, error) {
	globalMu.Lock()
	exporter := globalExp
	globalMu.Unlock()

	if exporter == nil {
		return nil, errNotEnabled
	}
	return exporter.Snapshot(), nil
}

func tracer() oteltrace.Tracer {
	globalMu.Lock()
	provider := globalTP
	globalMu.Unlock()

	if provider == nil {
		return noop.NewTracerProvider().Tracer(tracerName)
	}
	return provider.Tracer(tracerName)
}

func attributesToMap(attrs []attribute.KeyValue) map[string]interface{} {
	if len(attrs) == 0 {
		return nil
	}
	out := make(map[string]interface{}, len(attrs))
	for _, kv := range attrs {
		out[string(kv.Key)] = kv.Value.AsInterface()
	}
	return out
}
