//go:build integration

package integration

import (
	"context"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/app_block/internal/domain"
	"github.com/eliteGoblin/focusd/app_block/internal/infra"
	"github.com/eliteGoblin/focusd/app_block/internal/usecase"
	"github.com/eliteGoblin/focusd/app_block/test/fixtures"
)

// at returns a wall-clock time on Monday 2024-01-01.
func at(hour, minute int) time.Time {
	return time.Date(2024, time.January, 1, hour, minute, 0, 0, time.UTC)
}

var _ = Describe("Engine over the encrypted store", func() {
	var (
		ctx     context.Context
		tmpDir  string
		store   *infra.EncryptedStore
		clock   *fixtures.ManualClock
		surface *fixtures.RecordingOverlay
		engine  *usecase.Engine
	)

	newEngine := func() *usecase.Engine {
		config := usecase.DefaultEngineConfig()
		config.Loop.TickInterval = 5 * time.Millisecond
		return usecase.NewEngine(config, usecase.EngineDeps{
			Repository: store,
			Overlay:    surface,
			Clock:      clock,
			Logger:     zap.NewNop(),
		})
	}

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		tmpDir, err = os.MkdirTemp("", "appblock-integration-*")
		Expect(err).NotTo(HaveOccurred())

		store, err = infra.OpenEncryptedStore(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		clock = fixtures.NewManualClock(at(22, 30))
		surface = fixtures.NewRecordingOverlay()
		engine = newEngine()
	})

	AfterEach(func() {
		engine.Shutdown()
		store.Close()
		os.RemoveAll(tmpDir)
	})

	Describe("overnight schedule", func() {
		BeforeEach(func() {
			Expect(engine.Store().Upsert(ctx, domain.BlockRule{
				AppID:       "com.example.game",
				IsActive:    true,
				StartTime:   "22:00",
				EndTime:     "06:00",
				EnabledDays: domain.EveryDay,
				Secret:      "letmein",
			})).To(Succeed())
		})

		Context("inside the window", func() {
			It("should block the app when it comes to the foreground", func() {
				Expect(engine.IsBlockedNow(ctx, "com.example.game")).To(BeTrue())
				Expect(engine.OnForegroundChanged(ctx, "com.example.game", time.Time{})).To(BeTrue())

				Expect(surface.Visible()).To(BeTrue())
				Expect(surface.Target()).To(Equal("com.example.game"))
				sess, ok := engine.Session()
				Expect(ok).To(BeTrue())
				Expect(sess.TargetAppID).To(Equal("com.example.game"))
			})

			It("should hide the overlay when the user goes home", func() {
				engine.OnForegroundChanged(ctx, "com.example.game", time.Time{})
				engine.OnForegroundChanged(ctx, "com.android.launcher3", time.Time{})

				Expect(surface.Visible()).To(BeFalse())
				_, ok := engine.Session()
				Expect(ok).To(BeFalse())
			})
		})

		Context("after the window ends", func() {
			It("should release the block on the next tick", func() {
				engine.OnForegroundChanged(ctx, "com.example.game", time.Time{})
				Expect(surface.Visible()).To(BeTrue())

				clock.Set(at(6, 30).AddDate(0, 0, 1)) // Tuesday morning
				Eventually(surface.Visible, time.Second, 5*time.Millisecond).Should(BeFalse())
			})
		})

		Context("with the right secret", func() {
			It("should unlock and persist the disabled rule", func() {
				engine.OnForegroundChanged(ctx, "com.example.game", time.Time{})

				Expect(engine.Unlock(ctx, "com.example.game", "nope")).To(BeFalse())
				Expect(engine.Unlock(ctx, "com.example.game", "letmein")).To(BeTrue())
				Expect(surface.Visible()).To(BeFalse())

				stored, err := store.Get(ctx, "com.example.game")
				Expect(err).NotTo(HaveOccurred())
				Expect(stored.IsActive).To(BeFalse())
			})
		})

		Context("with a temporary override", func() {
			It("should block again once the override expires", func() {
				engine.OnForegroundChanged(ctx, "com.example.game", time.Time{})

				until, err := engine.RequestOverride(ctx, "com.example.game", 10*time.Minute)
				Expect(err).NotTo(HaveOccurred())
				Expect(until).To(Equal(at(22, 40)))
				Expect(surface.Visible()).To(BeFalse())
				Expect(engine.IsBlockedNow(ctx, "com.example.game")).To(BeFalse())

				clock.Advance(10 * time.Minute)
				Eventually(surface.Visible, time.Second, 5*time.Millisecond).Should(BeTrue())
			})
		})
	})

	Describe("restart", func() {
		It("should enforce rules written by a previous process", func() {
			Expect(engine.Store().Upsert(ctx, domain.BlockRule{
				AppID:       "com.example.social",
				IsActive:    true,
				BlockAllDay: true,
				EnabledDays: domain.Weekdays,
			})).To(Succeed())
			engine.Shutdown()
			Expect(store.Close()).To(Succeed())

			var err error
			store, err = infra.OpenEncryptedStore(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			engine = newEngine()
			Expect(engine.Store().Refresh(ctx)).To(Succeed())

			Expect(engine.Store().Len()).To(Equal(1))
			Expect(engine.IsBlockedNow(ctx, "com.example.social")).To(BeTrue())

			clock.Set(time.Date(2024, time.January, 6, 12, 0, 0, 0, time.UTC)) // Saturday
			Expect(engine.IsBlockedNow(ctx, "com.example.social")).To(BeFalse())
		})
	})
})
