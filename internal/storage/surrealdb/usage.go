package surrealdb

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/bobmcallan/brokeclub/internal/common"
	"github.com/bobmcallan/brokeclub/internal/interfaces"
)

type usageRecord struct {
	Day  string `json:"day"`
	Used int    `json:"used"`
}

// UsageStore keeps one quote_daily_usage record per day
type UsageStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewUsageStore(db *surrealdb.DB, logger *common.Logger) *UsageStore {
	return &UsageStore{db: db, logger: logger}
}

// TryIncrement creates the day lazily, then applies the increment in a single
// conditional UPDATE so concurrent callers cannot overshoot the limit.
func (s *UsageStore) TryIncrement(ctx context.Context, day string, tokens, limit int) (bool, error) {
	sql := `UPSERT $rid SET day = $day, used = used ?? 0;
UPDATE $rid SET used += $tokens WHERE used + $tokens <= $limit RETURN AFTER;`
	vars := map[string]any{
		"rid":    surrealmodels.NewRecordID(tableDailyUsage, day),
		"day":    day,
		"tokens": tokens,
		"limit":  limit,
	}

	results, err := surrealdb.Query[[]usageRecord](ctx, s.db, sql, vars)
	if err != nil {
		return false, fmt.Errorf("failed to increment usage for %s: %w", day, err)
	}
	if results == nil || len(*results) < 2 {
		return false, fmt.Errorf("failed to increment usage for %s: unexpected result count", day)
	}

	return len((*results)[1].Result) == 1, nil
}

func (s *UsageStore) Decrement(ctx context.Context, day string, tokens int) error {
	sql := "UPDATE $rid SET used = math::max([0, used - $tokens]) RETURN NONE"
	vars := map[string]any{
		"rid":    surrealmodels.NewRecordID(tableDailyUsage, day),
		"tokens": tokens,
	}
	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to decrement usage for %s: %w", day, err)
	}
	return nil
}

func (s *UsageStore) Used(ctx context.Context, day string) (int, error) {
	rec, err := surrealdb.Select[usageRecord](ctx, s.db, surrealmodels.NewRecordID(tableDailyUsage, day))
	if err != nil {
		return 0, fmt.Errorf("failed to read usage for %s: %w", day, err)
	}
	if rec == nil {
		return 0, nil
	}
	return rec.Used, nil
}

var _ interfaces.UsageCounter = (*UsageStore)(nil)
