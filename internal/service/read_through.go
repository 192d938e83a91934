package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/ManikLakhanpal/Tube-Pay/internal/cache"
)

var tracer = otel.Tracer("tube-pay/service")

// sharedLoadTimeout bounds a store load shared by every caller of a flight.
const sharedLoadTimeout = 10 * time.Second

// readThrough serves a read from the cache and falls back to load on a miss
// or a degraded cache. Concurrent fallbacks for the same flight share one
// store load and one cache write. Load errors are returned untouched and
// never cached. The shared load outlives the cancellation of whichever
// caller started it.
func readThrough[T any](
	ctx context.Context,
	sf *singleflight.Group,
	flight string,
	get func(context.Context) cache.Result[T],
	load func(context.Context) (*T, error),
	put func(context.Context, *T),
) (*T, error) {
	ctx, span := tracer.Start(ctx, "readThrough", trace.WithAttributes(attribute.String("flight", flight)))
	defer span.End()

	res := get(ctx)
	span.SetAttributes(attribute.String("cache.status", res.Status.String()))
	if res.Ok() {
		v := res.Value
		return &v, nil
	}

	result, err, shared := sf.Do(flight, func() (interface{}, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedLoadTimeout)
		defer cancel()

		v, err := load(lctx)
		if err != nil {
			return nil, err
		}
		put(lctx, v)
		return v, nil
	})
	span.SetAttributes(attribute.Bool("flight.shared", shared))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	v, ok := result.(*T)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from singleflight")
	}
	out := *v
	return &out, nil
}

// flightKey names a singleflight group member. It is not a cache key.
func flightKey(parts ...string) string {
	return strings.Join(parts, "/")
}
