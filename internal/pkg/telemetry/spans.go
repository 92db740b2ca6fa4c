package telemetry

import (
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span names.
const (
	SpanRemoteFetch  = "markapi.fetch"
	SpanRemoteSubmit = "markapi.submit"
	SpanMarkCreate   = "marks.create"
	SpanMarkList     = "marks.list"
)

// Attribute keys beyond the OTel semantic conventions.
const (
	AttrMarkKey   = "pinmap.mark.key"
	AttrMarkCount = "pinmap.mark.count"
	AttrCacheHit  = "pinmap.cache.hit"
)

// Fail records err on span and marks it failed.
func Fail(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
