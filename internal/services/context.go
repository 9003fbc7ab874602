package services

import "context"

type ctxKey uint8

const (
	runIDKey ctxKey = iota
	sectionKey
	stageKey
	requestIDKey
)

// withValue leaves ctx untouched for a zero value, so callers can pass
// optional identifiers straight through.
func withValue[T comparable](ctx context.Context, key ctxKey, v T) context.Context {
	var zero T
	if v == zero {
		return ctx
	}
	return context.WithValue(ctx, key, v)
}

func valueOf[T comparable](ctx context.Context, key ctxKey) (T, bool) {
	var zero T
	if ctx == nil {
		return zero, false
	}
	v, ok := ctx.Value(key).(T)
	if !ok || v == zero {
		return zero, false
	}
	return v, true
}

// WithRunID annotates ctx with the assembly run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	return withValue(ctx, runIDKey, id)
}

func RunIDFromContext(ctx context.Context) (string, bool) {
	return valueOf[string](ctx, runIDKey)
}

// WithSection annotates ctx with the 1-based plan section index.
func WithSection(ctx context.Context, index int) context.Context {
	if index < 0 {
		return ctx
	}
	return withValue(ctx, sectionKey, index)
}

func SectionFromContext(ctx context.Context) (int, bool) {
	return valueOf[int](ctx, sectionKey)
}

// WithStage annotates ctx with the pipeline step name.
func WithStage(ctx context.Context, stage string) context.Context {
	return withValue(ctx, stageKey, stage)
}

func StageFromContext(ctx context.Context) (string, bool) {
	return valueOf[string](ctx, stageKey)
}

// WithRequestID annotates ctx with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	return withValue(ctx, requestIDKey, id)
}

func RequestIDFromContext(ctx context.Context) (string, bool) {
	return valueOf[string](ctx, requestIDKey)
}
