// Package postgres implements the daily quota counter on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bobmcallan/brokeclub/internal/common"
	"github.com/bobmcallan/brokeclub/internal/interfaces"
)

const schema = `
CREATE TABLE IF NOT EXISTS quote_daily_usage (
  day  TEXT PRIMARY KEY,
  used INTEGER NOT NULL DEFAULT 0 CHECK (used >= 0),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// UsageCounter keeps one quote_daily_usage row per day
type UsageCounter struct {
	DB     *pgxpool.Pool
	logger *common.Logger
}

// Connect opens a pool for the DSN and applies the schema
func Connect(ctx context.Context, dsn string, logger *common.Logger) (*UsageCounter, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach postgres: %w", err)
	}

	c := New(pool, logger)
	if err := c.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return c, nil
}

func New(db *pgxpool.Pool, logger *common.Logger) *UsageCounter {
	return &UsageCounter{DB: db, logger: logger}
}

// Migrate creates the usage table if it does not exist
func (c *UsageCounter) Migrate(ctx context.Context) error {
	if _, err := c.DB.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate quote_daily_usage: %w", err)
	}
	return nil
}

// TryIncrement is a single upsert: the insert creates the day lazily and the
// conflict branch only applies when the new total stays within limit. The
// row lock taken by ON CONFLICT serialises concurrent callers.
func (c *UsageCounter) TryIncrement(ctx context.Context, day string, tokens, limit int) (bool, error) {
	if tokens > limit {
		return false, nil
	}

	tag, err := c.DB.Exec(ctx, `
		INSERT INTO quote_daily_usage (day, used)
		VALUES ($1, $2)
		ON CONFLICT (day)
		DO UPDATE SET used = quote_daily_usage.used + EXCLUDED.used,
		              updated_at = now()
		WHERE quote_daily_usage.used + EXCLUDED.used <= $3
	`, day, tokens, limit)
	if err != nil {
		return false, fmt.Errorf("failed to increment usage for %s: %w", day, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (c *UsageCounter) Decrement(ctx context.Context, day string, tokens int) error {
	_, err := c.DB.Exec(ctx, `
		UPDATE quote_daily_usage
		SET used = GREATEST(0, used - $2), updated_at = now()
		WHERE day = $1
	`, day, tokens)
	if err != nil {
		return fmt.Errorf("failed to decrement usage for %s: %w", day, err)
	}
	return nil
}

func (c *UsageCounter) Used(ctx context.Context, day string) (int, error) {
	var used int
	err := c.DB.QueryRow(ctx, `SELECT used FROM quote_daily_usage WHERE day = $1`, day).Scan(&used)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read usage for %s: %w", day, err)
	}
	return used, nil
}

func (c *UsageCounter) Close() {
	c.DB.Close()
}

var _ interfaces.UsageCounter = (*UsageCounter)(nil)
