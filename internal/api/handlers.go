package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/eliteGoblin/focusd/app_block/internal/domain"
)

func (s *Server) health(c *gin.Context) {
	fg, _ := s.engine.Foreground()
	resp := HealthResponse{
		Status:     "ok",
		Rules:      s.engine.Store().Len(),
		Foreground: fg,
	}
	if sess, ok := s.engine.Session(); ok {
		resp.Enforcing = sess.TargetAppID
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) foreground(c *gin.Context) {
	var req ForegroundRequest
	if !bind(c, &req) {
		return
	}
	var at time.Time
	if req.TimestampMs > 0 {
		at = time.UnixMilli(req.TimestampMs)
	}
	accepted := s.engine.OnForegroundChanged(c.Request.Context(), req.AppID, at)
	c.JSON(http.StatusAccepted, ForegroundResponse{Accepted: accepted})
}

func (s *Server) session(c *gin.Context) {
	sess, ok := s.engine.Session()
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "no active session"})
		return
	}
	c.JSON(http.StatusOK, NewSessionView(sess))
}

func (s *Server) blocked(c *gin.Context) {
	appID := c.Param("id")
	c.JSON(http.StatusOK, BlockedResponse{
		AppID:   appID,
		Blocked: s.engine.IsBlockedNow(c.Request.Context(), appID),
	})
}

func (s *Server) override(c *gin.Context) {
	var req OverrideRequest
	if !bind(c, &req) {
		return
	}
	d := time.Duration(req.DurationMs) * time.Millisecond
	until, err := s.engine.RequestOverride(c.Request.Context(), c.Param("id"), d)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, OverrideResponse{AppID: c.Param("id"), Until: until})
}

func (s *Server) unlock(c *gin.Context) {
	var req UnlockRequest
	if !bind(c, &req) {
		return
	}
	ok := s.engine.Unlock(c.Request.Context(), c.Param("id"), req.Secret)
	c.JSON(http.StatusOK, UnlockResponse{Unlocked: ok})
}

func (s *Server) listRules(c *gin.Context) {
	rules := s.engine.Store().All(c.Request.Context())
	views := make([]RuleView, 0, len(rules))
	for _, r := range rules {
		views = append(views, NewRuleView(r))
	}
	c.JSON(http.StatusOK, views)
}

func (s *Server) getRule(c *gin.Context) {
	rule, ok := s.engine.Store().Get(c.Request.Context(), c.Param("id"))
	if !ok {
		writeError(c, domain.ErrRuleNotFound)
		return
	}
	c.JSON(http.StatusOK, NewRuleView(rule))
}

func (s *Server) putRule(c *gin.Context) {
	var req RuleRequest
	if !bind(c, &req) {
		return
	}
	rule, err := req.Rule(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	ctx := c.Request.Context()
	if err := s.engine.Store().Upsert(ctx, rule); err != nil {
		writeError(c, err)
		return
	}
	saved, ok := s.engine.Store().Get(ctx, rule.AppID)
	if !ok {
		saved = rule
	}
	c.JSON(http.StatusOK, NewRuleView(saved))
}

func (s *Server) setActive(c *gin.Context) {
	var req ActiveRequest
	if !bind(c, &req) {
		return
	}
	if err := s.engine.Store().SetActive(c.Request.Context(), c.Param("id"), *req.Active); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) setSchedule(c *gin.Context) {
	var req ScheduleRequest
	if !bind(c, &req) {
		return
	}
	sch, err := req.Schedule()
	if err != nil {
		writeError(c, err)
		return
	}
	if err := s.engine.Store().UpdateSchedule(c.Request.Context(), c.Param("id"), sch); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) setSecret(c *gin.Context) {
	var req SecretRequest
	if !bind(c, &req) {
		return
	}
	if err := s.engine.Store().UpdateSecret(c.Request.Context(), c.Param("id"), req.Secret); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) deleteRule(c *gin.Context) {
	if err := s.engine.Store().Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// bind decodes the JSON body, replying 400 on failure.
func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return false
	}
	return true
}

// writeError maps domain errors onto status codes.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrRuleNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidRule),
		errors.Is(err, domain.ErrInvalidDuration),
		errors.Is(err, domain.ErrMalformedSchedule):
		status = http.StatusBadRequest
	}
	_ = c.Error(err)
	c.JSON(status, ErrorResponse{Error: err.Error()})
}
