package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresCollection implements Collection on a jsonb table, one table per
// collection. It is the pluggable alternative to the file snapshot backend.
type PostgresCollection[T any] struct {
	db    *pgxpool.Pool
	table string
}

// NewPostgresCollection creates the backing table if needed. The table name
// comes from internal constants, never from request input.
func NewPostgresCollection[T any](ctx context.Context, db *pgxpool.Pool, table string) (*PostgresCollection[T], error) {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			pos BIGSERIAL PRIMARY KEY,
			doc JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`, table)

	if _, err := db.Exec(ctx, query); err != nil {
		return nil, fmt.Errorf("failed to create table %s: %w", table, err)
	}
	return &PostgresCollection[T]{db: db, table: table}, nil
}

func (c *PostgresCollection[T]) Append(ctx context.Context, record T) error {
	doc, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	query := fmt.Sprintf(`INSERT INTO %s (doc) VALUES ($1)`, c.table)
	if _, err := c.db.Exec(ctx, query, doc); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", c.table, err)
	}
	return nil
}

func (c *PostgresCollection[T]) List(ctx context.Context) ([]T, error) {
	query := fmt.Sprintf(`SELECT doc FROM %s ORDER BY pos`, c.table)
	rows, err := c.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", c.table, err)
	}
	defer rows.Close()

	records := []T{}
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", c.table, err)
		}
		var record T
		if err := json.Unmarshal(doc, &record); err != nil {
			return nil, fmt.Errorf("failed to decode %s record: %w", c.table, err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (c *PostgresCollection[T]) Find(ctx context.Context, match func(T) bool) (T, bool, error) {
	var zero T
	records, err := c.List(ctx)
	if err != nil {
		return zero, false, err
	}
	for _, r := range records {
		if match(r) {
			return r, true, nil
		}
	}
	return zero, false, nil
}

func (c *PostgresCollection[T]) Remove(ctx context.Context, match func(T) bool) (bool, error) {
	query := fmt.Sprintf(`SELECT pos, doc FROM %s ORDER BY pos`, c.table)
	rows, err := c.db.Query(ctx, query)
	if err != nil {
		return false, fmt.Errorf("failed to query %s: %w", c.table, err)
	}
	defer rows.Close()

	var target int64 = -1
	for rows.Next() {
		var pos int64
		var doc []byte
		if err := rows.Scan(&pos, &doc); err != nil {
			return false, fmt.Errorf("failed to scan %s row: %w", c.table, err)
		}
		var record T
		if err := json.Unmarshal(doc, &record); err != nil {
			return false, fmt.Errorf("failed to decode %s record: %w", c.table, err)
		}
		if match(record) {
			target = pos
			break
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return false, err
	}
	if target < 0 {
		return false, nil
	}

	del := fmt.Sprintf(`DELETE FROM %s WHERE pos = $1`, c.table)
	if _, err := c.db.Exec(ctx, del, target); err != nil {
		return false, fmt.Errorf("failed to delete from %s: %w", c.table, err)
	}
	return true, nil
}

func (c *PostgresCollection[T]) Clear(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRow(ctx, fmt.Sprintf(`SELECT count(*) FROM %s`, c.table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", c.table, err)
	}
	if _, err := c.db.Exec(ctx, fmt.Sprintf(`DELETE FROM %s`, c.table)); err != nil {
		return 0, fmt.Errorf("failed to clear %s: %w", c.table, err)
	}
	return n, nil
}

func (c *PostgresCollection[T]) Count(ctx context.Context) (int, error) {
	var n int
	query := fmt.Sprintf(`SELECT count(*) FROM %s`, c.table)
	if err := c.db.QueryRow(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", c.table, err)
	}
	return n, nil
}
