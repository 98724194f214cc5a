package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/app_block/internal/domain"
)

// 2024-01-01 is a Monday.
func at(day int, hhmm string) time.Time {
	tod, err := domain.ParseTimeOfDay(hhmm)
	if err != nil {
		panic(err)
	}
	return time.Date(2024, time.January, day, tod.Hour, tod.Minute, 0, 0, time.UTC)
}

func windowRule(start, end string, days domain.DayMask) domain.BlockRule {
	return domain.BlockRule{
		AppID:       "com.example.game",
		IsActive:    true,
		StartTime:   start,
		EndTime:     end,
		EnabledDays: days,
	}
}

func TestShouldBlock(t *testing.T) {
	tests := []struct {
		name string
		rule domain.BlockRule
		now  time.Time
		want bool
	}{
		{
			name: "normal range blocks at inclusive start",
			rule: windowRule("09:00", "17:00", domain.EveryDay),
			now:  at(1, "09:00"),
			want: true,
		},
		{
			name: "normal range does not block at exclusive end",
			rule: windowRule("09:00", "17:00", domain.EveryDay),
			now:  at(1, "17:00"),
			want: false,
		},
		{
			name: "normal range blocks inside window",
			rule: windowRule("09:00", "17:00", domain.EveryDay),
			now:  at(1, "12:30"),
			want: true,
		},
		{
			name: "normal range does not block before start",
			rule: windowRule("09:00", "17:00", domain.EveryDay),
			now:  at(1, "08:59"),
			want: false,
		},
		{
			name: "overnight range blocks late evening",
			rule: windowRule("22:00", "06:00", domain.EveryDay),
			now:  at(1, "23:30"),
			want: true,
		},
		{
			name: "overnight range blocks early morning",
			rule: windowRule("22:00", "06:00", domain.EveryDay),
			now:  at(1, "05:00"),
			want: true,
		},
		{
			name: "overnight range does not block at noon",
			rule: windowRule("22:00", "06:00", domain.EveryDay),
			now:  at(1, "12:00"),
			want: false,
		},
		{
			name: "overnight range excludes end",
			rule: windowRule("22:00", "06:00", domain.EveryDay),
			now:  at(1, "06:00"),
			want: false,
		},
		{
			name: "equal start and end covers the whole day",
			rule: windowRule("08:00", "08:00", domain.EveryDay),
			now:  at(1, "03:00"),
			want: true,
		},
		{
			name: "monday-only rule blocks on monday",
			rule: windowRule("09:00", "17:00", domain.DaysOf(time.Monday)),
			now:  at(1, "10:00"),
			want: true,
		},
		{
			name: "monday-only rule does not block on tuesday",
			rule: windowRule("09:00", "17:00", domain.DaysOf(time.Monday)),
			now:  at(2, "10:00"),
			want: false,
		},
		{
			name: "missing end time never blocks",
			rule: windowRule("09:00", "", domain.EveryDay),
			now:  at(1, "10:00"),
			want: false,
		},
		{
			name: "missing both times never blocks",
			rule: windowRule("", "", domain.EveryDay),
			now:  at(1, "10:00"),
			want: false,
		},
		{
			name: "all day blocks on enabled day",
			rule: domain.BlockRule{AppID: "a", IsActive: true, BlockAllDay: true, EnabledDays: domain.Weekdays},
			now:  at(1, "00:00"),
			want: true,
		},
		{
			name: "all day ignores time window",
			rule: domain.BlockRule{AppID: "a", IsActive: true, BlockAllDay: true, StartTime: "09:00", EndTime: "10:00", EnabledDays: domain.EveryDay},
			now:  at(1, "23:00"),
			want: true,
		},
		{
			name: "all day does not block on disabled day",
			rule: domain.BlockRule{AppID: "a", IsActive: true, BlockAllDay: true, EnabledDays: domain.Weekdays},
			now:  at(6, "12:00"), // Saturday
			want: false,
		},
		{
			name: "inactive rule never blocks",
			rule: domain.BlockRule{AppID: "a", IsActive: false, BlockAllDay: true, EnabledDays: domain.EveryDay},
			now:  at(1, "12:00"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ShouldBlock(tt.rule, tt.now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestShouldBlock_AllDayDependsOnlyOnWeekday(t *testing.T) {
	for mask := domain.DayMask(0); mask <= domain.EveryDay; mask++ {
		rule := domain.BlockRule{AppID: "a", IsActive: true, BlockAllDay: true, EnabledDays: mask}
		for day := 1; day <= 7; day++ {
			want := mask.Has(at(day, "00:00").Weekday())
			for minute := 0; minute < 24*60; minute += 37 {
				now := time.Date(2024, time.January, day, minute/60, minute%60, 0, 0, time.UTC)
				got, err := ShouldBlock(rule, now)
				require.NoError(t, err)
				if got != want {
					t.Fatalf("mask %s day %d minute %d: got %v want %v", mask, day, minute, got, want)
				}
			}
		}
	}
}

func TestShouldBlock_InactiveNeverBlocks(t *testing.T) {
	rule := windowRule("00:00", "00:00", domain.EveryDay)
	rule.IsActive = false
	for minute := 0; minute < 24*60; minute += 11 {
		got, err := ShouldBlock(rule, time.Date(2024, time.January, 3, minute/60, minute%60, 0, 0, time.UTC))
		require.NoError(t, err)
		assert.False(t, got)
	}
}

func TestShouldBlock_MalformedSchedule(t *testing.T) {
	rule := windowRule("9am", "17:00", domain.EveryDay)

	got, err := ShouldBlock(rule, at(1, "10:00"))

	assert.False(t, got)
	assert.ErrorIs(t, err, domain.ErrMalformedSchedule)
}

func TestEvaluator_MalformedScheduleFailsOpen(t *testing.T) {
	e := NewEvaluator(zap.NewNop())

	assert.False(t, e.ShouldBlockNow(windowRule("25:00", "26:00", domain.EveryDay), at(1, "10:00")))
	assert.True(t, e.ShouldBlockNow(windowRule("09:00", "17:00", domain.EveryDay), at(1, "10:00")))
}
