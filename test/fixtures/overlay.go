package fixtures

import (
	"errors"
	"sync"

	"github.com/eliteGoblin/focusd/app_block/internal/domain"
)

// RecordingOverlay is a domain.OverlaySurface that records calls.
// TearDown simulates the host platform removing the overlay.
type RecordingOverlay struct {
	mu      sync.Mutex
	visible bool
	target  string
	shows   []string
	hides   int
	failing int
}

// ErrHideFailed is returned by Hide while failures are armed.
var ErrHideFailed = errors.New("overlay hide failed")

// NewRecordingOverlay creates a hidden overlay.
func NewRecordingOverlay() *RecordingOverlay {
	return &RecordingOverlay{}
}

func (o *RecordingOverlay) Show(appID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.visible = true
	o.target = appID
	o.shows = append(o.shows, appID)
	return nil
}

func (o *RecordingOverlay) Hide() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.failing > 0 {
		o.failing--
		return ErrHideFailed
	}
	o.visible = false
	o.target = ""
	o.hides++
	return nil
}

// FailHides makes the next n Hide calls fail without touching the overlay.
func (o *RecordingOverlay) FailHides(n int) {
	o.mu.Lock()
	o.failing = n
	o.mu.Unlock()
}

func (o *RecordingOverlay) Visible() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.visible
}

// TearDown hides the overlay behind the engine's back.
func (o *RecordingOverlay) TearDown() {
	o.mu.Lock()
	o.visible = false
	o.mu.Unlock()
}

// Target returns the app the overlay is shown for, or "".
func (o *RecordingOverlay) Target() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.visible {
		return ""
	}
	return o.target
}

// Shows returns how many times Show reached the surface.
func (o *RecordingOverlay) Shows() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.shows)
}

// Hides returns how many times Hide reached the surface.
func (o *RecordingOverlay) Hides() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.hides
}

var _ domain.OverlaySurface = (*RecordingOverlay)(nil)
