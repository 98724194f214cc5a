// Package client talks to a running appblock daemon over HTTP.
package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/eliteGoblin/focusd/app_block/internal/api"
	"github.com/eliteGoblin/focusd/app_block/internal/domain"
)

// Error is a non-2xx reply from the daemon. It unwraps to the matching
// domain error so callers can use errors.Is.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("daemon returned %d: %s", e.Status, e.Message)
}

func (e *Error) Unwrap() error {
	switch e.Status {
	case http.StatusNotFound:
		return domain.ErrRuleNotFound
	case http.StatusBadRequest:
		return domain.ErrInvalidRule
	}
	return nil
}

// Client is a daemon API client.
type Client struct {
	http *resty.Client
}

// New creates a client for the daemon at addr ("host:port" or a full URL).
func New(addr string, timeout time.Duration) *Client {
	base := addr
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &Client{
		http: resty.New().
			SetBaseURL(base).
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json").
			SetHeader("User-Agent", "appblock-cli"),
	}
}

func (c *Client) request(ctx context.Context) *resty.Request {
	return c.http.R().SetContext(ctx).SetError(&api.ErrorResponse{})
}

// check turns transport failures and error replies into errors.
func check(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("failed to reach daemon: %w", err)
	}
	if !resp.IsError() {
		return nil
	}
	msg := strings.TrimSpace(resp.String())
	if e, ok := resp.Error().(*api.ErrorResponse); ok && e.Error != "" {
		msg = e.Error
	}
	return &Error{Status: resp.StatusCode(), Message: msg}
}

// Health returns the daemon's health summary.
func (c *Client) Health(ctx context.Context) (*api.HealthResponse, error) {
	var out api.HealthResponse
	if err := check(c.request(ctx).SetResult(&out).Get("/healthz")); err != nil {
		return nil, err
	}
	return &out, nil
}

// Foreground reports a foreground change and returns whether it was processed.
func (c *Client) Foreground(ctx context.Context, appID string, at time.Time) (bool, error) {
	body := api.ForegroundRequest{AppID: appID}
	if !at.IsZero() {
		body.TimestampMs = at.UnixMilli()
	}
	var out api.ForegroundResponse
	if err := check(c.request(ctx).SetBody(body).SetResult(&out).Post("/v1/foreground")); err != nil {
		return false, err
	}
	return out.Accepted, nil
}

// Blocked reports whether appID is blocked right now.
func (c *Client) Blocked(ctx context.Context, appID string) (bool, error) {
	var out api.BlockedResponse
	err := check(c.request(ctx).SetPathParam("id", appID).SetResult(&out).Get("/v1/apps/{id}/blocked"))
	if err != nil {
		return false, err
	}
	return out.Blocked, nil
}

// Override suspends enforcement of appID for d and returns when the
// daemon will resume it.
func (c *Client) Override(ctx context.Context, appID string, d time.Duration) (time.Time, error) {
	var out api.OverrideResponse
	err := check(c.request(ctx).
		SetPathParam("id", appID).
		SetBody(api.OverrideRequest{DurationMs: d.Milliseconds()}).
		SetResult(&out).
		Post("/v1/apps/{id}/override"))
	if err != nil {
		return time.Time{}, err
	}
	return out.Until, nil
}

// Unlock tries secret against appID's rule.
func (c *Client) Unlock(ctx context.Context, appID, secret string) (bool, error) {
	var out api.UnlockResponse
	err := check(c.request(ctx).
		SetPathParam("id", appID).
		SetBody(api.UnlockRequest{Secret: secret}).
		SetResult(&out).
		Post("/v1/apps/{id}/unlock"))
	if err != nil {
		return false, err
	}
	return out.Unlocked, nil
}

// Session returns the active enforcement session, or nil when none.
func (c *Client) Session(ctx context.Context) (*api.SessionView, error) {
	var out api.SessionView
	resp, err := c.request(ctx).SetResult(&out).Get("/v1/session")
	if err == nil && resp.StatusCode() == http.StatusNotFound {
		return nil, nil
	}
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

// Rules lists every rule.
func (c *Client) Rules(ctx context.Context) ([]api.RuleView, error) {
	var out []api.RuleView
	if err := check(c.request(ctx).SetResult(&out).Get("/v1/rules")); err != nil {
		return nil, err
	}
	return out, nil
}

// Rule returns one rule.
func (c *Client) Rule(ctx context.Context, appID string) (*api.RuleView, error) {
	var out api.RuleView
	if err := check(c.request(ctx).SetPathParam("id", appID).SetResult(&out).Get("/v1/rules/{id}")); err != nil {
		return nil, err
	}
	return &out, nil
}

// PutRule creates or replaces a rule.
func (c *Client) PutRule(ctx context.Context, appID string, rule api.RuleRequest) (*api.RuleView, error) {
	var out api.RuleView
	err := check(c.request(ctx).SetPathParam("id", appID).SetBody(rule).SetResult(&out).Put("/v1/rules/{id}"))
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SetActive enables or disables a rule.
func (c *Client) SetActive(ctx context.Context, appID string, active bool) error {
	return check(c.request(ctx).
		SetPathParam("id", appID).
		SetBody(api.ActiveRequest{Active: &active}).
		Patch("/v1/rules/{id}/active"))
}

// SetSchedule replaces a rule's schedule.
func (c *Client) SetSchedule(ctx context.Context, appID string, schedule api.ScheduleRequest) error {
	return check(c.request(ctx).SetPathParam("id", appID).SetBody(schedule).Put("/v1/rules/{id}/schedule"))
}

// SetSecret sets or clears a rule's secret.
func (c *Client) SetSecret(ctx context.Context, appID, secret string) error {
	return check(c.request(ctx).
		SetPathParam("id", appID).
		SetBody(api.SecretRequest{Secret: secret}).
		Put("/v1/rules/{id}/secret"))
}

// DeleteRule removes a rule.
func (c *Client) DeleteRule(ctx context.Context, appID string) error {
	return check(c.request(ctx).SetPathParam("id", appID).Delete("/v1/rules/{id}"))
}
