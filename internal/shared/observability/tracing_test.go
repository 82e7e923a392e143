package observability

import (
	"context"
	"testing"
)

func TestInitTracingDisabled(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), TracingConfig{Enabled: false})
	if err != nil {
		t.Fatalf("expected no error when tracing disabled, got %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown returned error: %v", err)
	}

	_, span := Tracer.Start(context.Background(), "noop")
	span.End()
}
