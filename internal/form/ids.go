package form

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// TimestampLayout is how createdAt is written: UTC with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// IDGenerator hands out millisecond-based record ids that never repeat within
// the process, even when the clock stalls or steps backwards.
type IDGenerator struct {
	mu   sync.Mutex
	last int64
}

// Next returns max(now in ms, previous id + 1).
func (g *IDGenerator) Next(now time.Time) int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := now.UnixMilli()
	if id <= g.last {
		id = g.last + 1
	}
	g.last = id
	return id
}

// Observe raises the floor so later ids are above id.
func (g *IDGenerator) Observe(id int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if id > g.last {
		g.last = id
	}
}

// Timestamp formats t for createdAt.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

func newSessionID(now time.Time) string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(now), entropy).String()
}
