// Package tracer provides a small tracing abstraction over OpenTelemetry.
//
// Services depend on the Tracer interface only. NoopTracer serves tests and
// deployments without a collector; OTelTracer adapts the global provider.
package tracer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Span represents an active trace span.
type Span interface {
	// End completes the span, marking it failed when err is non-nil.
	// End must be called exactly once, typically via defer.
	End(err error)

	SetAttributes(attrs ...Attribute)

	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
type Tracer interface {
	// Start creates a span. The returned context carries it to child
	// operations.
	//
	//   ctx, span := t.Start(ctx, tracer.SpanPopulatePerson,
	//       tracer.String(tracer.AttrUserID, userID.String()),
	//   )
	//   defer span.End(err)
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute represents a key-value pair attached to spans.
type Attribute struct {
	Key   string
	Value any
}

func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

func Int64(key string, value int64) Attribute {
	return Attribute{Key: key, Value: value}
}

func Int(key string, value int) Attribute {
	return Attribute{Key: key, Value: int64(value)}
}

func Float64(key string, value float64) Attribute {
	return Attribute{Key: key, Value: value}
}

// Duration creates a duration attribute in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// HashIdentifier returns a short SHA-256 digest so traces can be correlated
// without carrying the identifier itself.
func HashIdentifier(v string) string {
	if v == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(v))
	return hex.EncodeToString(hash[:8])
}

// Span names used by the profile pipelines.
const (
	SpanPopulateBatch  = "profile.populate.batch"
	SpanPopulatePerson = "profile.populate.person"
	SpanValidateBatch  = "profile.validate.batch"
	SpanValidatePerson = "profile.validate.person"
	SpanNormalize      = "profile.normalize"
	SpanPersist        = "profile.persist"
)

// Attribute keys used by the profile pipelines.
const (
	AttrUserID      = "user_id"
	AttrDocuments   = "documents"
	AttrCredentials = "credentials"
	AttrUnresolved  = "unresolved"
	AttrComplete    = "complete"
	AttrAllVerified = "all_verified"
	AttrBatchSize   = "batch.size"
	AttrFailed      = "batch.failed"
)

// Event names used by the profile pipelines.
const (
	EventLeaseHeld      = "lease.held"
	EventIdentitySynced = "identity.synced"
	EventPublished      = "event.published"
)
