package api

import (
	"time"

	"github.com/eliteGoblin/focusd/app_block/internal/domain"
)

// ForegroundRequest reports the app now in the foreground. A zero
// timestamp means "now".
type ForegroundRequest struct {
	AppID       string `json:"app_id" binding:"required"`
	TimestampMs int64  `json:"timestamp_ms"`
}

// ForegroundResponse says whether the signal was processed.
type ForegroundResponse struct {
	Accepted bool `json:"accepted"`
}

// BlockedResponse is the answer to "is this app blocked right now".
type BlockedResponse struct {
	AppID   string `json:"app_id"`
	Blocked bool   `json:"blocked"`
}

// OverrideRequest asks for a temporary override.
type OverrideRequest struct {
	DurationMs int64 `json:"duration_ms" binding:"required"`
}

// OverrideResponse reports when a granted override expires.
type OverrideResponse struct {
	AppID string    `json:"app_id"`
	Until time.Time `json:"until"`
}

// UnlockRequest carries an unlock secret.
type UnlockRequest struct {
	Secret string `json:"secret"`
}

// UnlockResponse says whether the secret was accepted.
type UnlockResponse struct {
	Unlocked bool `json:"unlocked"`
}

// ActiveRequest toggles a rule.
type ActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// SecretRequest sets or clears (empty) a rule's secret.
type SecretRequest struct {
	Secret string `json:"secret"`
}

// ScheduleRequest replaces a rule's schedule. Days is a comma list of day
// names or one of daily, weekdays, weekends; empty means daily.
type ScheduleRequest struct {
	Start  string `json:"start"`
	End    string `json:"end"`
	AllDay bool   `json:"all_day"`
	Days   string `json:"days"`
	Secret string `json:"secret"`
}

// RuleRequest creates or replaces a rule. Active defaults to true.
type RuleRequest struct {
	DisplayName string `json:"display_name"`
	Active      *bool  `json:"active"`
	ScheduleRequest
}

// RuleView is a rule as returned by the API. The secret itself is never
// included.
type RuleView struct {
	AppID       string    `json:"app_id"`
	DisplayName string    `json:"display_name,omitempty"`
	Active      bool      `json:"active"`
	AllDay      bool      `json:"all_day"`
	Start       string    `json:"start,omitempty"`
	End         string    `json:"end,omitempty"`
	Days        string    `json:"days"`
	HasSecret   bool      `json:"has_secret"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SessionView is the current enforcement session.
type SessionView struct {
	ID        string    `json:"id"`
	AppID     string    `json:"app_id"`
	StartedAt time.Time `json:"started_at"`
}

// HealthResponse is returned by /healthz.
type HealthResponse struct {
	Status     string `json:"status"`
	Rules      int    `json:"rules"`
	Foreground string `json:"foreground,omitempty"`
	Enforcing  string `json:"enforcing,omitempty"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewRuleView converts a rule for output.
func NewRuleView(r domain.BlockRule) RuleView {
	return RuleView{
		AppID:       r.AppID,
		DisplayName: r.DisplayName,
		Active:      r.IsActive,
		AllDay:      r.BlockAllDay,
		Start:       r.StartTime,
		End:         r.EndTime,
		Days:        r.EnabledDays.String(),
		HasSecret:   r.Secret != "",
		UpdatedAt:   r.UpdatedAt,
	}
}

// NewSessionView converts a session for output.
func NewSessionView(s domain.EnforcementSession) SessionView {
	return SessionView{
		ID:        s.ID,
		AppID:     s.TargetAppID,
		StartedAt: s.StartedAt,
	}
}

// Schedule converts the request to a domain schedule.
func (r ScheduleRequest) Schedule() (domain.Schedule, error) {
	days := domain.EveryDay
	if r.Days != "" {
		parsed, err := domain.ParseDayMask(r.Days)
		if err != nil {
			return domain.Schedule{}, err
		}
		days = parsed
	}
	return domain.Schedule{
		StartTime:   r.Start,
		EndTime:     r.End,
		BlockAllDay: r.AllDay,
		EnabledDays: days,
		Secret:      r.Secret,
	}, nil
}

// Rule converts the request to a domain rule for appID.
func (r RuleRequest) Rule(appID string) (domain.BlockRule, error) {
	sch, err := r.Schedule()
	if err != nil {
		return domain.BlockRule{}, err
	}
	active := true
	if r.Active != nil {
		active = *r.Active
	}
	return domain.BlockRule{
		AppID:       appID,
		DisplayName: r.DisplayName,
		IsActive:    active,
		BlockAllDay: sch.BlockAllDay,
		StartTime:   sch.StartTime,
		EndTime:     sch.EndTime,
		EnabledDays: sch.EnabledDays,
		Secret:      sch.Secret,
	}, nil
}
