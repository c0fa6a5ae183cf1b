package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// MaxListLimit caps the rows returned by a single listing.
const MaxListLimit = 50

// Record appends c to the journal. A missing ID or CreatedAt is filled in.
func (db *DB) Record(ctx context.Context, c Change) (Change, error) {
	if c.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return Change{}, fmt.Errorf("failed to generate change id: %w", err)
		}
		c.ID = id.String()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = db.now()
	}

	query := `
		INSERT INTO changes (id, kind, document, change_key, payload, user_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	start := time.Now()
	_, err := db.conn.ExecContext(ctx, query,
		c.ID, c.Kind, c.Document, c.Key, c.Payload, c.UserID, c.CreatedAt.UnixMilli())
	if err != nil {
		slog.ErrorContext(ctx, "failed to record change",
			"kind", c.Kind,
			"key", c.Key,
			"error", err)
		return Change{}, fmt.Errorf("failed to record change: %w", err)
	}

	if duration := time.Since(start); duration > 100*time.Millisecond {
		slog.WarnContext(ctx, "slow database operation",
			"operation", "Record",
			"duration_ms", duration.Milliseconds())
	}
	return c, nil
}

// Recent returns up to limit changes, newest first.
func (db *DB) Recent(ctx context.Context, limit int) ([]Change, error) {
	query := `
		SELECT id, kind, document, change_key, payload, user_id, created_at
		FROM changes
		ORDER BY seq DESC
		LIMIT ?
	`
	return db.queryChanges(ctx, query, clampLimit(limit))
}

// Search returns up to limit changes, newest first, whose key or payload
// contains term. LIKE wildcards in term match literally.
func (db *DB) Search(ctx context.Context, term string, limit int) ([]Change, error) {
	pattern := "%" + sanitizeSearchTerm(term) + "%"
	query := `
		SELECT id, kind, document, change_key, payload, user_id, created_at
		FROM changes
		WHERE change_key LIKE ? ESCAPE '\' OR payload LIKE ? ESCAPE '\'
		ORDER BY seq DESC
		LIMIT ?
	`
	return db.queryChanges(ctx, query, pattern, pattern, clampLimit(limit))
}

// Count returns the number of recorded changes.
func (db *DB) Count(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM changes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count changes: %w", err)
	}
	return n, nil
}

func (db *DB) queryChanges(ctx context.Context, query string, args ...any) ([]Change, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query changes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Change
	for rows.Next() {
		c, err := scanChange(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate changes: %w", err)
	}
	return out, nil
}

func scanChange(rows *sql.Rows) (Change, error) {
	var (
		c       Change
		created int64
	)
	if err := rows.Scan(&c.ID, &c.Kind, &c.Document, &c.Key, &c.Payload, &c.UserID, &created); err != nil {
		return Change{}, fmt.Errorf("failed to scan change: %w", err)
	}
	c.CreatedAt = time.UnixMilli(created)
	return c, nil
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
