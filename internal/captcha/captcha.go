// Package captcha detects challenge widgets and waits out a bounded
// window for manual intervention. It never attempts to solve a
// challenge.
package captcha

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"formrunner/internal/browser"
	"formrunner/internal/catalog"
)

const checkInterval = 500 * time.Millisecond

// TimeoutError marks a challenge still present after the wait window.
// It is a distinct, retryable failure reason; it counts against the
// retry budget rather than blocking forever.
type TimeoutError struct {
	Marker string
	Window time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("captcha %q unresolved after %s", e.Marker, e.Window)
}

// Gate checks the page against the provider marker catalog.
type Gate struct {
	markers []string
	logger  zerolog.Logger
}

func NewGate(cat *catalog.Catalog, logger zerolog.Logger) *Gate {
	return &Gate{markers: cat.Captcha.Markers, logger: logger}
}

// Detect reports whether any known challenge marker is visible, and
// which one matched first.
func (g *Gate) Detect(ctx context.Context, ctrl browser.Controller) (bool, string) {
	for _, marker := range g.markers {
		if ctx.Err() != nil {
			return false, ""
		}
		count, err := ctrl.CountVisible(ctx, marker)
		if err != nil {
			continue
		}
		if count > 0 {
			return true, marker
		}
	}
	return false, ""
}

// WaitOut suspends until the detected challenge disappears or the window
// expires. Expiry returns a TimeoutError; the attempt is then failed
// with the captcha-timeout reason instead of blocking indefinitely.
func (g *Gate) WaitOut(ctx context.Context, ctrl browser.Controller, window time.Duration) error {
	present, marker := g.Detect(ctx, ctrl)
	if !present {
		return nil
	}
	g.logger.Warn().Str("marker", marker).Dur("window", window).Msg("captcha detected, waiting for manual solve")

	deadline := time.NewTimer(window)
	defer deadline.Stop()
	tick := time.NewTicker(checkInterval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return &TimeoutError{Marker: marker, Window: window}
		case <-tick.C:
			if present, _ := g.Detect(ctx, ctrl); !present {
				g.logger.Info().Msg("captcha cleared")
				return nil
			}
		}
	}
}
