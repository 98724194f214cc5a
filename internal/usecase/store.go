// Package usecase contains application business logic.
package usecase

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/app_block/internal/domain"
	"github.com/eliteGoblin/focusd/app_block/internal/monitoring"
)

// ScheduleStore owns block rules: a durable repository behind an in-memory
// cache keyed by app id.
//
// Reads never fail; storage errors are logged and read as "absent". Writes go
// to storage first and then patch the cache under the same write lock, so a
// reader sees either the old or the new value, never both.
type ScheduleStore struct {
	repo    domain.RuleRepository
	clock   domain.Clock
	metrics *monitoring.Metrics
	logger  *zap.Logger

	// writeMu serializes refreshes and mutations. Held across storage I/O.
	writeMu sync.Mutex

	// mu guards the fields below. Never held across storage I/O.
	mu     sync.RWMutex
	cache  map[string]domain.BlockRule
	loaded bool
	gen    uint64 // bumped on every cache mutation
}

// NewScheduleStore creates a store with an empty cache. Call Refresh to load it.
func NewScheduleStore(repo domain.RuleRepository, clock domain.Clock, metrics *monitoring.Metrics, logger *zap.Logger) *ScheduleStore {
	return &ScheduleStore{
		repo:    repo,
		clock:   clock,
		metrics: metrics,
		logger:  logger,
		cache:   make(map[string]domain.BlockRule),
	}
}

// Refresh reloads every rule from storage and swaps the cache in one step.
// On failure the previous cache is kept.
func (s *ScheduleStore) Refresh(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	rules, err := s.repo.GetAll(ctx)
	if err != nil {
		s.logger.Warn("schedule refresh failed, keeping cached rules", zap.Error(err))
		s.metrics.RecordStoreError("refresh")
		s.metrics.RecordRefresh(err, 0)
		return fmt.Errorf("failed to refresh rules: %w", err)
	}

	next := make(map[string]domain.BlockRule, len(rules))
	for _, r := range rules {
		next[r.AppID] = r
	}

	s.mu.Lock()
	s.cache = next
	s.loaded = true
	s.gen++
	s.mu.Unlock()

	s.metrics.RecordRefresh(nil, len(next))
	s.logger.Debug("schedule refreshed", zap.Int("rules", len(next)))
	return nil
}

// RunRefresher refreshes the cache every interval until ctx is cancelled.
// Failures are logged by Refresh and the next tick tries again.
func (s *ScheduleStore) RunRefresher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = s.Refresh(ctx)
		}
	}
}

// Get returns the rule for appID, from cache or, on a miss, from storage.
func (s *ScheduleStore) Get(ctx context.Context, appID string) (domain.BlockRule, bool) {
	s.mu.RLock()
	rule, ok := s.cache[appID]
	gen := s.gen
	s.mu.RUnlock()
	if ok {
		return rule, true
	}

	stored, err := s.repo.Get(ctx, appID)
	if err != nil {
		if !errors.Is(err, domain.ErrRuleNotFound) {
			s.logger.Warn("rule lookup failed, treating as unblocked",
				zap.String("app", appID), zap.Error(err))
			s.metrics.RecordStoreError("get")
		}
		return domain.BlockRule{}, false
	}

	// Skip populating if a write or refresh landed while we were reading.
	s.mu.Lock()
	if s.gen == gen {
		s.cache[appID] = *stored
	}
	s.mu.Unlock()
	return *stored, true
}

// GetActive returns every rule with IsActive set, sorted by app id.
func (s *ScheduleStore) GetActive(ctx context.Context) []domain.BlockRule {
	all := s.All(ctx)
	active := all[:0]
	for _, r := range all {
		if r.IsActive {
			active = append(active, r)
		}
	}
	return active
}

// All returns every rule, sorted by app id. Served from the cache once it
// has been loaded.
func (s *ScheduleStore) All(ctx context.Context) []domain.BlockRule {
	s.mu.RLock()
	loaded := s.loaded
	rules := make([]domain.BlockRule, 0, len(s.cache))
	for _, r := range s.cache {
		rules = append(rules, r)
	}
	s.mu.RUnlock()

	if !loaded {
		stored, err := s.repo.GetAll(ctx)
		if err != nil {
			s.logger.Warn("rule listing failed", zap.Error(err))
			s.metrics.RecordStoreError("list")
			return nil
		}
		rules = stored
	}

	sort.Slice(rules, func(i, j int) bool { return rules[i].AppID < rules[j].AppID })
	return rules
}

// Len returns the number of cached rules.
func (s *ScheduleStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cache)
}

// Upsert creates or replaces a rule.
func (s *ScheduleStore) Upsert(ctx context.Context, rule domain.BlockRule) error {
	if err := rule.Validate(); err != nil {
		return err
	}
	rule.UpdatedAt = s.clock.Now()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.repo.Upsert(ctx, rule); err != nil {
		s.metrics.RecordStoreError("upsert")
		return fmt.Errorf("failed to save rule %s: %w", rule.AppID, err)
	}
	s.put(rule)
	s.logger.Info("rule saved", zap.String("app", rule.AppID), zap.Bool("active", rule.IsActive))
	return nil
}

// SetActive toggles whether a rule participates in enforcement.
func (s *ScheduleStore) SetActive(ctx context.Context, appID string, active bool) error {
	return s.update(ctx, appID, domain.RuleUpdate{IsActive: &active})
}

// UpdateSchedule replaces the window, days, all-day flag and secret of a rule.
func (s *ScheduleStore) UpdateSchedule(ctx context.Context, appID string, schedule domain.Schedule) error {
	probe := domain.BlockRule{
		AppID:       appID,
		StartTime:   schedule.StartTime,
		EndTime:     schedule.EndTime,
		EnabledDays: schedule.EnabledDays,
	}
	if err := probe.Validate(); err != nil {
		return err
	}
	return s.update(ctx, appID, domain.RuleUpdate{Schedule: &schedule})
}

// UpdateSecret sets or clears (empty string) the unlock secret.
func (s *ScheduleStore) UpdateSecret(ctx context.Context, appID, secret string) error {
	return s.update(ctx, appID, domain.RuleUpdate{Secret: &secret})
}

// Delete removes a rule.
func (s *ScheduleStore) Delete(ctx context.Context, appID string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.repo.Delete(ctx, appID); err != nil {
		s.metrics.RecordStoreError("delete")
		return fmt.Errorf("failed to delete rule %s: %w", appID, err)
	}

	s.mu.Lock()
	delete(s.cache, appID)
	s.gen++
	s.mu.Unlock()

	s.logger.Info("rule deleted", zap.String("app", appID))
	return nil
}

// VerifySecret reports whether candidate matches the rule's secret. False
// when there is no rule or no secret.
func (s *ScheduleStore) VerifySecret(ctx context.Context, appID, candidate string) bool {
	rule, ok := s.Get(ctx, appID)
	if !ok || rule.Secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(rule.Secret), []byte(candidate)) == 1
}

// update applies a partial update and re-reads the row so the cache holds
// exactly what storage holds. If the re-read fails the key is dropped and
// the next Get goes to storage.
func (s *ScheduleStore) update(ctx context.Context, appID string, update domain.RuleUpdate) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.repo.Update(ctx, appID, update); err != nil {
		if errors.Is(err, domain.ErrRuleNotFound) {
			return fmt.Errorf("failed to update %s: %w", appID, err)
		}
		s.metrics.RecordStoreError("update")
		return fmt.Errorf("failed to update rule %s: %w", appID, err)
	}

	stored, err := s.repo.Get(ctx, appID)
	if err != nil {
		s.logger.Warn("re-read after update failed, invalidating cache entry",
			zap.String("app", appID), zap.Error(err))
		s.mu.Lock()
		delete(s.cache, appID)
		s.gen++
		s.mu.Unlock()
		return nil
	}
	s.put(*stored)
	s.logger.Info("rule updated", zap.String("app", appID))
	return nil
}

func (s *ScheduleStore) put(rule domain.BlockRule) {
	s.mu.Lock()
	s.cache[rule.AppID] = rule
	s.gen++
	s.mu.Unlock()
}
