package memory

import (
	"context"
	"sync"

	"github.com/bobmcallan/brokeclub/internal/interfaces"
)

// UsageCounter is a mutex-guarded per-day call counter
type UsageCounter struct {
	mu   sync.Mutex
	used map[string]int
}

// NewUsageCounter creates an empty counter
func NewUsageCounter() *UsageCounter {
	return &UsageCounter{used: make(map[string]int)}
}

func (c *UsageCounter) TryIncrement(_ context.Context, day string, tokens, limit int) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	used := c.used[day] // lazily creates the day at zero
	if used+tokens > limit {
		c.used[day] = used
		return false, nil
	}
	c.used[day] = used + tokens
	return true, nil
}

func (c *UsageCounter) Decrement(_ context.Context, day string, tokens int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	used, ok := c.used[day]
	if !ok {
		return nil
	}
	used -= tokens
	if used < 0 {
		used = 0
	}
	c.used[day] = used
	return nil
}

func (c *UsageCounter) Used(_ context.Context, day string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.used[day], nil
}

// Set forces the day's counter, for seeding tests and operator tooling
func (c *UsageCounter) Set(day string, used int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if used < 0 {
		used = 0
	}
	c.used[day] = used
}

var _ interfaces.UsageCounter = (*UsageCounter)(nil)
