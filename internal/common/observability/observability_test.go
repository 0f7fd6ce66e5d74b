package observability

import (
	"context"
	"testing"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTestObservability(t *testing.T) (*Observability, *tracetest.SpanRecorder, *promclient.Registry) {
	t.Helper()
	reg := promclient.NewRegistry()
	recorder := tracetest.NewSpanRecorder()

	obs, err := New("test-service", WithRegisterer(reg), WithSpanProcessor(recorder), WithoutGlobal())
	require.NoError(t, err)
	t.Cleanup(func() { _ = obs.Shutdown(context.Background()) })
	return obs, recorder, reg
}

func TestObservability_StartSpan(t *testing.T) {
	obs, recorder, _ := newTestObservability(t)

	_, span := obs.StartSpan(context.Background(), "assistant.create_thread", attribute.String("thread.id", "thread_1"))
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "assistant.create_thread", ended[0].Name())
	assert.Contains(t, ended[0].Attributes(), attribute.String("thread.id", "thread_1"))
}

func TestObservability_RecordsMetrics(t *testing.T) {
	obs, _, reg := newTestObservability(t)
	ctx := context.Background()

	obs.RecordJobProcessed(ctx, "recommendation.generate", "success")
	obs.RecordJobDuration(ctx, "recommendation.generate", 120*time.Millisecond, "success")
	obs.RecordAssistantCall(ctx, "create_run", "success")
	obs.RecordRunPolls(ctx, 3, "completed")

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "jobs_processed_total")
	assert.Contains(t, names, "assistant_calls_total")
}

func TestObservability_NilSafe(t *testing.T) {
	var obs *Observability
	ctx := context.Background()

	assert.NotPanics(t, func() {
		obs.RecordJobProcessed(ctx, "x", "success")
		obs.RecordJobDuration(ctx, "x", time.Second, "success")
		obs.RecordAssistantCall(ctx, "x", "success")
		obs.RecordRunPolls(ctx, 1, "completed")
		_, span := obs.StartSpan(ctx, "noop")
		span.End()
	})
	assert.NoError(t, obs.Shutdown(ctx))
}
