package telemetry

import (
	"context"

	"github.com/google/uuid"
)

// Context plumbing for conversion-scoped identifiers. The conversion ID ties
// together log lines, spans, and events produced during one parse-and-flatten
// pass.

type conversionIDKey struct{}
type documentNameKey struct{}

// WithConversionID returns a context carrying the given conversion ID.
func WithConversionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, conversionIDKey{}, id)
}

// ConversionIDFromContext returns the conversion ID carried by the context,
// or the empty string.
func ConversionIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(conversionIDKey{}).(string); ok {
		return id
	}
	return ""
}

// EnsureConversionID returns the context's conversion ID, minting and
// attaching a fresh one when absent.
func EnsureConversionID(ctx context.Context) (context.Context, string) {
	if id := ConversionIDFromContext(ctx); id != "" {
		return ctx, id
	}
	id := uuid.New().String()
	return WithConversionID(ctx, id), id
}

// WithDocumentName returns a context carrying the document name or path.
func WithDocumentName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, documentNameKey{}, name)
}

// DocumentNameFromContext returns the document name carried by the context,
// or the empty string.
func DocumentNameFromContext(ctx context.Context) string {
	if name, ok := ctx.Value(documentNameKey{}).(string); ok {
		return name
	}
	return ""
}

// ConversionLogger returns the context logger enriched with the context's
// conversion-scoped fields.
func ConversionLogger(ctx context.Context) *Logger {
	l := FromContext(ctx)
	if id := ConversionIDFromContext(ctx); id != "" {
		l = l.WithConversionID(id)
	}
	if name := DocumentNameFromContext(ctx); name != "" {
		l = l.WithDocument(name)
	}
	return l
}
