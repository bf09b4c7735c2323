/*
Package compositor – error types.

Schema-definition errors (template syntax, schema validation) are fatal build
defects surfaced at construction. Per-operation errors (missing attribute,
unusable index, version conflict) carry the offending names so callers can
log or surface them without re-deriving context.
*/
package compositor

import (
	"fmt"
	"strings"
)

// ErrorCode is a well-known error category string.
type ErrorCode string

const (
	ErrArgument    ErrorCode = "ArgumentError"
	ErrConditional ErrorCode = "ConditionalError"
	ErrNotFound    ErrorCode = "NotFoundError"
	ErrRuntime     ErrorCode = "RuntimeError"
)

// CompositorError is the general runtime error returned by the table layer.
// It carries an optional Code and a free-form Context map for debugging data.
type CompositorError struct {
	Message string
	Code    ErrorCode
	Context map[string]any
	Cause   error
}

func (e *CompositorError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return e.Message
}

func (e *CompositorError) Unwrap() error { return e.Cause }

// NewError constructs a CompositorError.
func NewError(msg string, opts ...func(*CompositorError)) *CompositorError {
	err := &CompositorError{Message: msg}
	for _, o := range opts {
		o(err)
	}
	return err
}

// WithCode sets the error code.
func WithCode(c ErrorCode) func(*CompositorError) {
	return func(e *CompositorError) { e.Code = c }
}

// WithContext attaches a context map.
func WithContext(ctx map[string]any) func(*CompositorError) {
	return func(e *CompositorError) { e.Context = ctx }
}

// WithCause wraps an underlying error.
func WithCause(cause error) func(*CompositorError) {
	return func(e *CompositorError) { e.Cause = cause }
}

// TemplateSyntaxError reports a malformed composite-key format string.
// It is raised at schema-definition time and is never retryable.
type TemplateSyntaxError struct {
	Format string
	Pos    int
	Reason string
}

func (e *TemplateSyntaxError) Error() string {
	return fmt.Sprintf("template %q: %s at offset %d", e.Format, e.Reason, e.Pos)
}

// SchemaValidationError reports an inconsistent table schema configuration.
type SchemaValidationError struct {
	Table  string
	Index  string // offending index name, may be empty
	Reason string
}

func (e *SchemaValidationError) Error() string {
	if e.Index != "" {
		return fmt.Sprintf("schema %q index %q: %s", e.Table, e.Index, e.Reason)
	}
	return fmt.Sprintf("schema %q: %s", e.Table, e.Reason)
}

// MissingAttributeError reports the first unresolved placeholder encountered
// while rendering a composite key.
type MissingAttributeError struct {
	Attribute string // placeholder name with no value
	Key       string // physical key attribute being rendered
}

func (e *MissingAttributeError) Error() string {
	return fmt.Sprintf("missing attribute %q rendering key %q", e.Attribute, e.Key)
}

// AttributeTypeError reports a placeholder value that is not representable as
// a key segment (containers, nil, and other non-scalar values).
type AttributeTypeError struct {
	Attribute string
	Value     any
}

func (e *AttributeTypeError) Error() string {
	return fmt.Sprintf("attribute %q has non-scalar value of type %T", e.Attribute, e.Value)
}

// NoIndexSatisfiesQueryError is the definitive selection failure: no index can
// be fully rendered from the supplied attribute names. Retrying with the same
// attribute set yields the same outcome; the caller must supply more.
type NoIndexSatisfiesQueryError struct {
	Intent Intent
	Known  []string
	Index  string // for write intent, the first index that cannot be populated
}

func (e *NoIndexSatisfiesQueryError) Error() string {
	if e.Index != "" {
		return fmt.Sprintf("index %q cannot be populated from attributes [%s]",
			e.Index, strings.Join(e.Known, ", "))
	}
	return fmt.Sprintf("no index satisfies %s with attributes [%s]",
		e.Intent, strings.Join(e.Known, ", "))
}

// VersionConflictError is the optimistic-concurrency signal: the version the
// caller expected does not match the externally tracked current version.
type VersionConflictError struct {
	UniqueID string
	Expected int
	Current  int
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("version conflict for %q: expected %d, current %d",
		e.UniqueID, e.Expected, e.Current)
}
