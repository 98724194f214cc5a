// Package domain contains core business entities and interfaces.
// This is the innermost layer in Clean Architecture - no external dependencies.
package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrRuleNotFound is returned when no rule exists for an app identifier.
	ErrRuleNotFound = errors.New("rule not found")

	// ErrInvalidRule is returned when a rule fails validation on write.
	ErrInvalidRule = errors.New("invalid rule")

	// ErrMalformedSchedule is returned when persisted time strings cannot be parsed.
	ErrMalformedSchedule = errors.New("malformed schedule")

	// ErrInvalidDuration is returned for non-positive override durations.
	ErrInvalidDuration = errors.New("invalid override duration")
)

// TimeOfDay is a wall-clock time with minute precision.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses an "HH:MM" string (24h clock).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("%w: %q is not HH:MM", ErrMalformedSchedule, s)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// TimeOfDayOf returns the wall-clock part of t.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}
}

// Minutes returns minutes since midnight.
func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// DayMask is a 7-bit weekday set. Bit i is set when blocking applies on
// time.Weekday(i), so Sunday is bit 0 and Saturday is bit 6.
type DayMask uint8

const (
	NoDays   DayMask = 0
	EveryDay DayMask = 0x7F
	Weekdays DayMask = 1<<time.Monday | 1<<time.Tuesday | 1<<time.Wednesday | 1<<time.Thursday | 1<<time.Friday
	Weekends DayMask = 1<<time.Saturday | 1<<time.Sunday
)

var dayNames = [7]string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}

// DaysOf builds a mask from the given weekdays.
func DaysOf(days ...time.Weekday) DayMask {
	var m DayMask
	for _, d := range days {
		m |= 1 << uint(d)
	}
	return m
}

// Has reports whether d is enabled in the mask.
func (m DayMask) Has(d time.Weekday) bool {
	return m&(1<<uint(d)) != 0
}

// String renders the mask as a comma list, e.g. "mon,wed,fri".
func (m DayMask) String() string {
	switch m & EveryDay {
	case NoDays:
		return "none"
	case EveryDay:
		return "daily"
	}
	var names []string
	for i, name := range dayNames {
		if m.Has(time.Weekday(i)) {
			names = append(names, name)
		}
	}
	return strings.Join(names, ",")
}

// ParseDayMask accepts a comma list of day names (mon, tue, ...), the
// shorthands daily, weekdays, weekends and none, or a raw mask 0-127.
// Day names are either the three-letter form or the full English name.
func ParseDayMask(s string) (DayMask, error) {
	if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		if n < 0 || n > int(EveryDay) {
			return 0, fmt.Errorf("%w: day mask %d out of range", ErrInvalidRule, n)
		}
		return DayMask(n), nil
	}

	var m DayMask
	for _, part := range strings.Split(strings.ToLower(s), ",") {
		part = strings.TrimSpace(part)
		switch part {
		case "":
			continue
		case "daily", "all":
			m |= EveryDay
			continue
		case "weekdays":
			m |= Weekdays
			continue
		case "weekends":
			m |= Weekends
			continue
		case "none":
			continue
		}
		found := false
		for i, name := range dayNames {
			if part == name || part == strings.ToLower(time.Weekday(i).String()) {
				m |= 1 << uint(i)
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("%w: unknown day %q", ErrInvalidRule, part)
		}
	}
	return m, nil
}

// BlockRule is the persisted schedule and policy for one application.
type BlockRule struct {
	AppID       string
	DisplayName string
	IsActive    bool
	BlockAllDay bool
	StartTime   string // "HH:MM", empty when absent
	EndTime     string // "HH:MM", empty when absent
	EnabledDays DayMask
	Secret      string // shared unlock code, empty when unset
	UpdatedAt   time.Time
}

// HasWindow reports whether both ends of the time window are present.
func (r BlockRule) HasWindow() bool {
	return r.StartTime != "" && r.EndTime != ""
}

// Validate checks a rule before it is written to storage.
func (r BlockRule) Validate() error {
	if strings.TrimSpace(r.AppID) == "" {
		return fmt.Errorf("%w: app id is required", ErrInvalidRule)
	}
	if r.EnabledDays&^EveryDay != 0 {
		return fmt.Errorf("%w: day mask %#x has bits above Saturday", ErrInvalidRule, uint8(r.EnabledDays))
	}
	for _, s := range []string{r.StartTime, r.EndTime} {
		if s == "" {
			continue
		}
		if _, err := ParseTimeOfDay(s); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidRule, err)
		}
	}
	return nil
}

// Schedule is the set of fields changed by an UpdateSchedule call.
type Schedule struct {
	StartTime   string
	EndTime     string
	BlockAllDay bool
	EnabledDays DayMask
	Secret      string
}

// RuleUpdate is a partial-field update; nil fields are left unchanged.
type RuleUpdate struct {
	IsActive *bool
	Schedule *Schedule
	Secret   *string
}

// EnforcementSession is the transient state of one active block.
// It is never persisted.
type EnforcementSession struct {
	ID          string
	TargetAppID string
	StartedAt   time.Time
}

// ForegroundEvent is a single foreground-change signal from the host platform.
type ForegroundEvent struct {
	AppID     string
	Timestamp time.Time
}

// DaemonState is the registration row written by a running daemon.
type DaemonState struct {
	PID           int
	StartedAt     time.Time
	LastHeartbeat time.Time
	AppVersion    string
	ListenAddr    string
}
