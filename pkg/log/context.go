package log

import (
	"context"

	"github.com/rs/zerolog"
)

type ctxKey struct{}

// WithLogger stores a logger in the context.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// Ctx returns the request-scoped logger, or the global logger when the
// context carries none.
func Ctx(ctx context.Context) zerolog.Logger {
	if ctx == nil {
		return L()
	}
	if l, ok := ctx.Value(ctxKey{}).(zerolog.Logger); ok {
		return l
	}
	return L()
}

// WithFields returns a context whose logger carries the given string fields.
func WithFields(ctx context.Context, kv map[string]string) context.Context {
	l := Ctx(ctx)
	lc := l.With()
	for k, v := range kv {
		lc = lc.Str(k, v)
	}
	return WithLogger(ctx, lc.Logger())
}
