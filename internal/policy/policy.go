// Package policy decides whether an app should be blocked at a given moment.
// ShouldBlock is pure; Evaluator wraps it with logging for the engine.
package policy

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/app_block/internal/domain"
)

// ShouldBlock reports whether rule applies at now. Only the weekday and
// wall-clock of now (in its own location) are used.
//
// The window is start-inclusive and end-exclusive. A window whose start is
// not before its end crosses midnight. The weekday checked is always now's
// weekday, also for the after-midnight half of an overnight window.
//
// An error is returned only for malformed time strings; the result is then
// false.
func ShouldBlock(rule domain.BlockRule, now time.Time) (bool, error) {
	if !rule.IsActive {
		return false, nil
	}
	today := rule.EnabledDays.Has(now.Weekday())
	if rule.BlockAllDay {
		return today, nil
	}
	if !rule.HasWindow() {
		return false, nil
	}
	if !today {
		return false, nil
	}

	start, err := domain.ParseTimeOfDay(rule.StartTime)
	if err != nil {
		return false, err
	}
	end, err := domain.ParseTimeOfDay(rule.EndTime)
	if err != nil {
		return false, err
	}

	cur := domain.TimeOfDayOf(now).Minutes()
	s, e := start.Minutes(), end.Minutes()
	if s < e {
		return cur >= s && cur < e, nil
	}
	return cur >= s || cur < e, nil
}

// Evaluator is the logging front of ShouldBlock used by the engine.
type Evaluator struct {
	logger *zap.Logger
}

// NewEvaluator creates an evaluator.
func NewEvaluator(logger *zap.Logger) *Evaluator {
	return &Evaluator{logger: logger}
}

// ShouldBlockNow never fails: malformed schedules are logged and treated as
// never-blocking.
func (e *Evaluator) ShouldBlockNow(rule domain.BlockRule, now time.Time) bool {
	block, err := ShouldBlock(rule, now)
	if err != nil {
		if errors.Is(err, domain.ErrMalformedSchedule) {
			e.logger.Warn("ignoring rule with malformed schedule",
				zap.String("app", rule.AppID),
				zap.String("start", rule.StartTime),
				zap.String("end", rule.EndTime),
				zap.Error(err))
		}
		return false
	}
	return block
}
