package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in      string
		want    TimeOfDay
		wantErr bool
	}{
		{in: "09:00", want: TimeOfDay{Hour: 9}},
		{in: "23:59", want: TimeOfDay{Hour: 23, Minute: 59}},
		{in: " 7:05 ", want: TimeOfDay{Hour: 7, Minute: 5}},
		{in: "24:00", wantErr: true},
		{in: "noon", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimeOfDay(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedSchedule)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.Hour*60+tt.want.Minute, got.Minutes())
		})
	}
}

func TestDayMask(t *testing.T) {
	m := DaysOf(time.Monday, time.Wednesday)

	assert.True(t, m.Has(time.Monday))
	assert.False(t, m.Has(time.Tuesday))
	assert.Equal(t, "mon,wed", m.String())
	assert.Equal(t, "daily", EveryDay.String())
	assert.Equal(t, "none", NoDays.String())
	assert.Equal(t, DayMask(0b0111110), Weekdays)
}

func TestParseDayMask(t *testing.T) {
	tests := []struct {
		in      string
		want    DayMask
		wantErr bool
	}{
		{in: "mon,wed", want: DaysOf(time.Monday, time.Wednesday)},
		{in: "Monday, Friday", want: DaysOf(time.Monday, time.Friday)},
		{in: "weekdays", want: Weekdays},
		{in: "weekends,mon", want: Weekends | DaysOf(time.Monday)},
		{in: "daily", want: EveryDay},
		{in: "", want: NoDays},
		{in: "funday", wantErr: true},
		{in: "sunday,SAT", want: Weekends},
		{in: "sunshine", wantErr: true},
		{in: "monkey", wantErr: true},
		{in: "tues", wantErr: true},
		{in: "62", want: Weekdays},
		{in: "128", wantErr: true},
		{in: "-1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDayMask(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRule)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBlockRule_Validate(t *testing.T) {
	assert.NoError(t, BlockRule{AppID: "a", StartTime: "09:00", EndTime: "10:00"}.Validate())
	assert.NoError(t, BlockRule{AppID: "a", StartTime: "09:00"}.Validate())
	assert.ErrorIs(t, BlockRule{AppID: " "}.Validate(), ErrInvalidRule)
	assert.ErrorIs(t, BlockRule{AppID: "a", EndTime: "9pm"}.Validate(), ErrInvalidRule)
	assert.ErrorIs(t, BlockRule{AppID: "a", EnabledDays: 0x80}.Validate(), ErrInvalidRule)
}
