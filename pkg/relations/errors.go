package relations

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	// ErrUnsupportedRelation means the relation handle exists but is of a
	// kind the engine does not handle. A configuration error.
	ErrUnsupportedRelation ErrorKind = "unsupported_relation_kind"
	// ErrUnknownAccessor means a declared nested key has no registered
	// relation accessor. A configuration error.
	ErrUnknownAccessor ErrorKind = "unknown_relation_accessor"
	// ErrInvalidPayload means the payload shape does not match the relation's
	// cardinality (a sequence for a singular relation, or vice versa).
	ErrInvalidPayload ErrorKind = "invalid_payload_shape"
	// ErrRecordNotFound means an update path referenced a key absent from
	// storage.
	ErrRecordNotFound ErrorKind = "record_not_found"
	// ErrPersistence means a create/update/delete failed in storage.
	ErrPersistence ErrorKind = "persistence_failure"
)

// RelationError is the error type surfaced by the nested save engine. It
// carries the relation key and operation where the failure occurred.
type RelationError struct {
	Kind     ErrorKind
	Relation string
	Op       string
	Message  string
	cause    error
}

func NewRelationError(kind ErrorKind, relation string, msg string) *RelationError {
	return &RelationError{
		Kind:     kind,
		Relation: relation,
		Message:  msg,
	}
}

func NewRelationErrorf(kind ErrorKind, relation string, format string, args ...any) *RelationError {
	return &RelationError{
		Kind:     kind,
		Relation: relation,
		Message:  fmt.Sprintf(format, args...),
	}
}

// WrapPersistence wraps a storage failure, preserving the cause.
func WrapPersistence(relation, op string, err error) *RelationError {
	return &RelationError{
		Kind:     ErrPersistence,
		Relation: relation,
		Op:       op,
		Message:  err.Error(),
		cause:    err,
	}
}

// WrapNotFound wraps a failed should-be-existing lookup.
func WrapNotFound(relation string, key any, err error) *RelationError {
	return &RelationError{
		Kind:     ErrRecordNotFound,
		Relation: relation,
		Op:       "find",
		Message:  fmt.Sprintf("record with key '%v' not found: %v", key, err),
		cause:    err,
	}
}

func (e *RelationError) Error() string {
	msg := fmt.Sprintf("relation '%s'", e.Relation)
	if e.Op != "" {
		msg += fmt.Sprintf(" %s", e.Op)
	}
	return fmt.Sprintf("%s: %s: %s", msg, e.Kind, e.Message)
}

func (e *RelationError) Unwrap() error {
	return e.cause
}

// IsKind reports whether err is a RelationError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var relErr *RelationError
	if errors.As(err, &relErr) {
		return relErr.Kind == kind
	}
	return false
}
