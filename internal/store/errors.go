package store

import (
	"errors"
	"fmt"
)

// Common sentinel errors.
var (
	// ErrNotFound is returned by assert lookups when no matching entity exists.
	ErrNotFound = errors.New("entity not found")

	// ErrImmutableKey is returned when an update tries to change the
	// identity field.
	ErrImmutableKey = errors.New("identity field is immutable")
)

// NotFoundError reports a failed assert lookup. Message carries the optional
// caller-supplied text.
type NotFoundError struct {
	Entity  string
	Key     string
	Message string
}

func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s with key %q not found", e.Entity, e.Key)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// AmbiguousUniqueIndexError is the non-fatal diagnostic raised when a
// unique-index lookup matches more than one entity. The lookup still returns
// the first match; this error is reported through the store's diagnostics
// hook, not returned to the caller.
type AmbiguousUniqueIndexError struct {
	Entity string
	Field  string
	Value  any
	Count  int
}

func (e *AmbiguousUniqueIndexError) Error() string {
	return fmt.Sprintf("unique index %s.%s has %d entries for value %v", e.Entity, e.Field, e.Count, e.Value)
}

// IsNotFound checks if an error reports a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
