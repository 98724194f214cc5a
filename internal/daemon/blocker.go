// Package daemon runs the blocking engine as a long-lived process.
package daemon

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/app_block/internal/domain"
	"github.com/eliteGoblin/focusd/app_block/internal/usecase"
)

// Service is a component that runs alongside the engine until its context
// is cancelled, such as the HTTP API or a foreground signal reader. A nil
// return means the service finished on its own; an error stops the daemon.
type Service interface {
	Name() string
	Run(ctx context.Context) error
}

// BlockerConfig holds blocker daemon configuration.
type BlockerConfig struct {
	RefreshInterval   time.Duration // How often the rule cache is reloaded
	HeartbeatInterval time.Duration // How often to update heartbeat
}

// DefaultBlockerConfig returns default blocker configuration.
func DefaultBlockerConfig() BlockerConfig {
	return BlockerConfig{
		RefreshInterval:   30 * time.Second,
		HeartbeatInterval: 30 * time.Second,
	}
}

// Blocker is the enforcement daemon. It keeps the schedule cache fresh,
// reports liveness and runs the services that feed the engine.
type Blocker struct {
	config   BlockerConfig
	engine   *usecase.Engine
	registry domain.DaemonRegistry
	services []Service
	state    domain.DaemonState
	logger   *zap.Logger
}

// NewBlocker creates a new blocker daemon.
func NewBlocker(
	config BlockerConfig,
	engine *usecase.Engine,
	registry domain.DaemonRegistry,
	state domain.DaemonState,
	logger *zap.Logger,
	services ...Service,
) *Blocker {
	defaults := DefaultBlockerConfig()
	if config.RefreshInterval <= 0 {
		config.RefreshInterval = defaults.RefreshInterval
	}
	if config.HeartbeatInterval <= 0 {
		config.HeartbeatInterval = defaults.HeartbeatInterval
	}
	return &Blocker{
		config:   config,
		engine:   engine,
		registry: registry,
		services: services,
		state:    state,
		logger:   logger,
	}
}

// Run starts the daemon loop. It blocks until ctx is cancelled or a service
// fails, then shuts the engine down and clears the registration.
func (b *Blocker) Run(ctx context.Context) error {
	if err := b.registry.Register(b.state); err != nil {
		b.logger.Error("failed to register daemon", zap.Error(err))
		return fmt.Errorf("failed to register daemon: %w", err)
	}

	b.logger.Info("blocker daemon started",
		zap.Int("pid", b.state.PID),
		zap.String("version", b.state.AppVersion),
		zap.String("listen", b.state.ListenAddr))

	// Storage may be down at boot; the store falls back to per-app lookups.
	if err := b.engine.Store().Refresh(ctx); err == nil {
		b.logger.Info("rules loaded", zap.Int("rules", b.engine.Store().Len()))
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	failed := make(chan error, len(b.services))
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		b.engine.Store().RunRefresher(runCtx, b.config.RefreshInterval)
	}()

	for _, svc := range b.services {
		wg.Add(1)
		go func(svc Service) {
			defer wg.Done()
			if err := svc.Run(runCtx); err != nil {
				failed <- fmt.Errorf("%s: %w", svc.Name(), err)
				return
			}
			b.logger.Info("service finished", zap.String("service", svc.Name()))
		}(svc)
	}

	heartbeatTicker := time.NewTicker(b.config.HeartbeatInterval)
	defer heartbeatTicker.Stop()

	var runErr error
loop:
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("blocker daemon stopping")
			break loop

		case err := <-failed:
			b.logger.Error("service failed, stopping", zap.Error(err))
			runErr = err
			break loop

		case <-heartbeatTicker.C:
			if err := b.registry.UpdateHeartbeat(); err != nil {
				b.logger.Warn("failed to update heartbeat", zap.Error(err))
			}
		}
	}

	cancel()
	wg.Wait()
	b.engine.Shutdown()
	if err := b.registry.Clear(); err != nil {
		b.logger.Warn("failed to clear daemon registration", zap.Error(err))
	}
	return runErr
}
