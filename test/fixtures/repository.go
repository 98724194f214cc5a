package fixtures

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/eliteGoblin/focusd/app_block/internal/domain"
)

// ErrStorageDown is returned by MemoryRepository when failures are enabled.
var ErrStorageDown = errors.New("storage unavailable")

// MemoryRepository is an in-memory domain.RuleRepository.
// Fail makes every call return ErrStorageDown; GetHook, when set, runs at the
// start of Get (tests use it to hold a lookup in flight).
type MemoryRepository struct {
	mu      sync.Mutex
	rules   map[string]domain.BlockRule
	fail    bool
	gets    int
	GetHook func(appID string)
}

// NewMemoryRepository creates a repository seeded with rules.
func NewMemoryRepository(rules ...domain.BlockRule) *MemoryRepository {
	r := &MemoryRepository{rules: make(map[string]domain.BlockRule)}
	for _, rule := range rules {
		r.rules[rule.AppID] = rule
	}
	return r
}

// Fail toggles simulated storage failure.
func (r *MemoryRepository) Fail(fail bool) {
	r.mu.Lock()
	r.fail = fail
	r.mu.Unlock()
}

// Gets returns how many Get calls reached the repository.
func (r *MemoryRepository) Gets() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gets
}

// Put writes a rule directly, bypassing any cache in front of the repository.
func (r *MemoryRepository) Put(rule domain.BlockRule) {
	r.mu.Lock()
	r.rules[rule.AppID] = rule
	r.mu.Unlock()
}

func (r *MemoryRepository) Get(ctx context.Context, appID string) (*domain.BlockRule, error) {
	if hook := r.GetHook; hook != nil {
		hook(appID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gets++
	if r.fail {
		return nil, ErrStorageDown
	}
	rule, ok := r.rules[appID]
	if !ok {
		return nil, domain.ErrRuleNotFound
	}
	return &rule, nil
}

func (r *MemoryRepository) GetAll(ctx context.Context) ([]domain.BlockRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return nil, ErrStorageDown
	}
	out := make([]domain.BlockRule, 0, len(r.rules))
	for _, rule := range r.rules {
		out = append(out, rule)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AppID < out[j].AppID })
	return out, nil
}

func (r *MemoryRepository) GetActive(ctx context.Context) ([]domain.BlockRule, error) {
	all, err := r.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, rule := range all {
		if rule.IsActive {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (r *MemoryRepository) Upsert(ctx context.Context, rule domain.BlockRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return ErrStorageDown
	}
	r.rules[rule.AppID] = rule
	return nil
}

func (r *MemoryRepository) Update(ctx context.Context, appID string, update domain.RuleUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return ErrStorageDown
	}
	rule, ok := r.rules[appID]
	if !ok {
		return domain.ErrRuleNotFound
	}
	if update.IsActive != nil {
		rule.IsActive = *update.IsActive
	}
	if s := update.Schedule; s != nil {
		rule.StartTime = s.StartTime
		rule.EndTime = s.EndTime
		rule.BlockAllDay = s.BlockAllDay
		rule.EnabledDays = s.EnabledDays
		rule.Secret = s.Secret
	}
	if update.Secret != nil {
		rule.Secret = *update.Secret
	}
	r.rules[appID] = rule
	return nil
}

func (r *MemoryRepository) Delete(ctx context.Context, appID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return ErrStorageDown
	}
	delete(r.rules, appID)
	return nil
}

var _ domain.RuleRepository = (*MemoryRepository)(nil)
