package postgres

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/brokeclub/internal/common"
	tcommon "github.com/bobmcallan/brokeclub/tests/common"
)

func testCounter(t *testing.T) *UsageCounter {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping PostgreSQL integration test in short mode")
	}

	pc := tcommon.StartPostgres(t)
	ctx := context.Background()

	c, err := Connect(ctx, pc.DSN(), common.NewSilentLogger())
	require.NoError(t, err)
	t.Cleanup(func() {
		c.DB.Exec(context.Background(), "TRUNCATE quote_daily_usage")
		c.Close()
	})
	return c
}

func TestUsageCounter_LimitAndRefund(t *testing.T) {
	c := testCounter(t)
	ctx := context.Background()
	day := "2026-03-02"

	used, err := c.Used(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, 0, used)

	ok, err := c.TryIncrement(ctx, day, 2, 3)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.TryIncrement(ctx, day, 2, 3)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = c.TryIncrement(ctx, day, 1, 3)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.TryIncrement(ctx, "2026-03-03", 5, 3)
	require.NoError(t, err)
	assert.False(t, ok, "a fresh day still respects the limit")

	require.NoError(t, c.Decrement(ctx, day, 10))
	used, err = c.Used(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, 0, used)
}

func TestUsageCounter_ConcurrentLastToken(t *testing.T) {
	c := testCounter(t)
	ctx := context.Background()
	day := "2026-04-01"

	ok, err := c.TryIncrement(ctx, day, 19, 20)
	require.NoError(t, err)
	require.True(t, ok)

	var wg sync.WaitGroup
	var wins atomic.Int32
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, err := c.TryIncrement(ctx, day, 1, 20); err == nil && ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	used, err := c.Used(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, 20, used)
}
