package clock

import (
    "sync"
    "time"
)

// Clock abstracts time so the hold-expiry logic can be tested against a
// controlled instant instead of the wall clock. All times are UTC.
type Clock interface {
    Now() time.Time
}

type systemClock struct{}

// NewSystem returns a clock backed by time.Now.
func NewSystem() Clock {
    return systemClock{}
}

func (systemClock) Now() time.Time {
    return time.Now().UTC()
}

// Fixed is a clock that returns a settable instant. Tests advance it to
// simulate holds lapsing without sleeping.
type Fixed struct {
    mu  sync.Mutex
    now time.Time
}

// NewFixed returns a clock pinned to the given instant.
func NewFixed(t time.Time) *Fixed {
    return &Fixed{now: t.UTC()}
}

func (f *Fixed) Now() time.Time {
    f.mu.Lock()
    defer f.mu.Unlock()
    return f.now
}

// Advance moves the clock forward by d.
func (f *Fixed) Advance(d time.Duration) {
    f.mu.Lock()
    defer f.mu.Unlock()
    f.now = f.now.Add(d)
}
