package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileCollection implements Collection with a single JSON snapshot file.
// The whole file is rewritten on every mutation; a mutex serializes the
// read-modify-write so interleaved handlers cannot lose updates.
type FileCollection[T any] struct {
	path string

	mu      sync.Mutex
	records []T
}

// NewFileCollection opens (or creates) the snapshot at path and loads any
// existing records into memory.
func NewFileCollection[T any](path string) (*FileCollection[T], error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	c := &FileCollection[T]{path: path}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", path, err)
	}
	if len(data) == 0 {
		return c, nil
	}
	if err := json.Unmarshal(data, &c.records); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot %s: %w", path, err)
	}
	return c, nil
}

func (c *FileCollection[T]) Append(ctx context.Context, record T) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.records = append(c.records, record)
	if err := c.persist(); err != nil {
		// Keep memory and disk consistent so a failed append is not
		// acknowledged anywhere downstream.
		c.records = c.records[:len(c.records)-1]
		return err
	}
	return nil
}

func (c *FileCollection[T]) List(ctx context.Context) ([]T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]T, len(c.records))
	copy(out, c.records)
	return out, nil
}

func (c *FileCollection[T]) Find(ctx context.Context, match func(T) bool) (T, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, r := range c.records {
		if match(r) {
			return r, true, nil
		}
	}
	var zero T
	return zero, false, nil
}

func (c *FileCollection[T]) Remove(ctx context.Context, match func(T) bool) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, r := range c.records {
		if match(r) {
			removed := c.records[i]
			c.records = append(c.records[:i], c.records[i+1:]...)
			if err := c.persist(); err != nil {
				c.records = append(c.records[:i], append([]T{removed}, c.records[i:]...)...)
				return false, err
			}
			return true, nil
		}
	}
	return false, nil
}

func (c *FileCollection[T]) Clear(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.records)
	old := c.records
	c.records = nil
	if err := c.persist(); err != nil {
		c.records = old
		return 0, err
	}
	return n, nil
}

func (c *FileCollection[T]) Count(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records), nil
}

// persist rewrites the snapshot file. Callers must hold the mutex.
func (c *FileCollection[T]) persist() error {
	records := c.records
	if records == nil {
		records = []T{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot %s: %w", c.path, err)
	}
	return nil
}
