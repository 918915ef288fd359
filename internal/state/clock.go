package state

import (
	"time"

	"github.com/google/uuid"
)

// NewID returns a fresh element or board id.
func NewID() string {
	return uuid.NewString()
}

// Clock is the time source used for gesture timing.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now() }
