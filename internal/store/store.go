package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no record matches a lookup.
var ErrNotFound = errors.New("record not found")

// Collection is an append-oriented record collection. Records are immutable
// once appended; the only mutations are removal and clearing.
type Collection[T any] interface {
	// Append durably adds a record to the collection.
	Append(ctx context.Context, record T) error
	// List returns all records in insertion order.
	List(ctx context.Context) ([]T, error)
	// Find returns the first record matching the predicate.
	Find(ctx context.Context, match func(T) bool) (T, bool, error)
	// Remove deletes the first record matching the predicate and reports
	// whether anything was removed.
	Remove(ctx context.Context, match func(T) bool) (bool, error)
	// Clear deletes all records and returns the number removed.
	Clear(ctx context.Context) (int, error)
	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)
}
