package ingest

import (
	"fmt"
	"time"

	"github.com/bobmcallan/brokeclub/internal/common"
)

// tolerance is how far from the open/close clock a tick may land and still
// trigger that session's batch
const tolerance = 5 * time.Minute

// Session is the market window the scheduler times its batches against.
// Open and Close are offsets from local midnight.
type Session struct {
	Location *time.Location
	Open     time.Duration
	Close    time.Duration
	Hourly   time.Duration
}

// SessionFromConfig builds a Session from the schedule config section
func SessionFromConfig(c *common.ScheduleConfig) (Session, error) {
	loc, err := c.Location()
	if err != nil {
		return Session{}, err
	}
	open, err := c.OpenClock()
	if err != nil {
		return Session{}, err
	}
	closeAt, err := c.CloseClock()
	if err != nil {
		return Session{}, err
	}
	if closeAt <= open {
		return Session{}, fmt.Errorf("session close %s must be after open %s", c.Close, c.Open)
	}
	return Session{
		Location: loc,
		Open:     open,
		Close:    closeAt,
		Hourly:   c.HourlyInterval(),
	}, nil
}

// timeOfDay returns the wall-clock offset from midnight of a local time
func timeOfDay(local time.Time) time.Duration {
	h, m, s := local.Clock()
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second + time.Duration(local.Nanosecond())
}

func near(tod, target time.Duration) bool {
	d := tod - target
	if d < 0 {
		d = -d
	}
	return d <= tolerance
}

// State is the scheduler's per-day progress. It is owned by the tick loop
// and replaced wholesale when the local date changes.
type State struct {
	Date       string // YYYY-MM-DD in the session timezone
	OpenDone   bool
	CloseDone  bool
	LastHourly time.Time
}
