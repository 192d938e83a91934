package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestReadThroughRecordsCacheStatus(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	ctx := context.Background()
	c, _ := newTestCache(t)
	svc := NewUserService(newFakeUserRepo(alice()), c)

	for i := 0; i < 2; i++ {
		_, err := svc.GetUser(ctx, "u1")
		require.NoError(t, err)
	}

	var statuses []string
	for _, s := range rec.Ended() {
		if s.Name() != "readThrough" {
			continue
		}
		for _, kv := range s.Attributes() {
			if kv.Key == attribute.Key("cache.status") {
				statuses = append(statuses, kv.Value.AsString())
			}
		}
	}
	assert.Equal(t, []string{"miss", "hit"}, statuses)
}
