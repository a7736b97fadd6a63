package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/cosmethod/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestSpanHelpers(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp, err := NewProvider(config.TracingConfig{ServiceName: "cos-test", SamplerRatio: 1}, sdktrace.WithSpanProcessor(sr))
	require.NoError(t, err)
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(noop.NewTracerProvider())
		_ = tp.Shutdown(context.Background())
	})

	ctx, span := StartSpan(context.Background(), "cos.Price")
	assert.NotEmpty(t, GetTraceID(ctx))
	AddTag(ctx, "cos.model", "heston")
	AddTag(ctx, "cos.series_length", 1024)
	AddTag(ctx, "cos.truncation", 10.0)
	AddTag(ctx, "cos.cached", true)
	AddTag(ctx, "cos.terms", []float64{1})
	SetError(ctx, errors.New("degenerate"))
	SetError(ctx, nil)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	got := spans[0]
	assert.Equal(t, "cos.Price", got.Name())
	assert.Equal(t, codes.Error, got.Status().Code)
	assert.Contains(t, got.Attributes(), attribute.String("cos.model", "heston"))
	assert.Contains(t, got.Attributes(), attribute.Int("cos.series_length", 1024))
	assert.Contains(t, got.Attributes(), attribute.String("cos.terms", "[1]"))
	assert.Len(t, got.Events(), 1)
}

func TestInitTracerDisabled(t *testing.T) {
	shutdown, err := InitTracer(config.TracingConfig{Enabled: false})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
	assert.Empty(t, GetTraceID(context.Background()))
}
