// Package quota enforces the shared daily budget of vendor quote calls
package quota

import (
	"context"
	"math"
	"time"

	"github.com/bobmcallan/brokeclub/internal/common"
	"github.com/bobmcallan/brokeclub/internal/interfaces"
)

// dayLayout keys usage rows by UTC calendar date
const dayLayout = "2006-01-02"

// Unlimited is what Remaining reports when no daily limit is configured
const Unlimited = math.MaxInt32

// Ledger implements QuotaLedger on top of an atomic UsageCounter.
type Ledger struct {
	counter interfaces.UsageCounter
	limit   int
	logger  *common.Logger
	now     func() time.Time // injectable clock for testing
}

// NewLedger creates a ledger allowing limit calls per UTC day.
// A limit <= 0 makes the ledger unlimited.
func NewLedger(counter interfaces.UsageCounter, limit int, logger *common.Logger) *Ledger {
	return &Ledger{
		counter: counter,
		limit:   limit,
		logger:  logger,
		now:     time.Now,
	}
}

// SetClock replaces the ledger's clock
func (l *Ledger) SetClock(now func() time.Time) {
	l.now = now
}

// Limit returns the configured daily limit
func (l *Ledger) Limit() int {
	return l.limit
}

func (l *Ledger) unlimited() bool {
	return l.limit <= 0
}

func (l *Ledger) day() string {
	return l.now().UTC().Format(dayLayout)
}

// TryConsume spends tokens from today's budget. It returns false, without
// spending anything, when the budget cannot cover all of them.
func (l *Ledger) TryConsume(ctx context.Context, tokens int) (bool, error) {
	if tokens <= 0 {
		return false, nil
	}
	if l.unlimited() {
		return true, nil
	}

	day := l.day()
	ok, err := l.counter.TryIncrement(ctx, day, tokens, l.limit)
	if err != nil {
		return false, err
	}
	if !ok {
		l.logger.Debug().Str("day", day).Int("tokens", tokens).Int("limit", l.limit).Msg("Daily quote quota exhausted")
	}
	return ok, nil
}

// Remaining returns max(0, limit - used) for today
func (l *Ledger) Remaining(ctx context.Context) (int, error) {
	if l.unlimited() {
		return Unlimited, nil
	}

	used, err := l.counter.Used(ctx, l.day())
	if err != nil {
		return 0, err
	}
	if used >= l.limit {
		return 0, nil
	}
	return l.limit - used, nil
}

// Refund returns tokens to today's budget, never below zero used
func (l *Ledger) Refund(ctx context.Context, tokens int) error {
	if tokens <= 0 || l.unlimited() {
		return nil
	}
	return l.counter.Decrement(ctx, l.day(), tokens)
}

var _ interfaces.QuotaLedger = (*Ledger)(nil)
