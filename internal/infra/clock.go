package infra

import (
	"time"

	"github.com/eliteGoblin/focusd/app_block/internal/domain"
)

// SystemClock is the wall clock.
type SystemClock struct{}

// Now returns time.Now.
func (SystemClock) Now() time.Time { return time.Now() }

// AfterFunc wraps time.AfterFunc.
func (SystemClock) AfterFunc(d time.Duration, f func()) domain.Timer {
	return time.AfterFunc(d, f)
}

var _ domain.Clock = SystemClock{}
