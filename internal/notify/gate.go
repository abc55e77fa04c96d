// Package notify implements the notification permission gate.
//
// Permission moves from Unknown to Granted or Denied at most once and never
// back. While Unknown, concurrent callers of EnsurePermission share a single
// prompt.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"geo-reminder/internal/reminder"
)

type Gate struct {
	platform Platform
	logger   *slog.Logger

	mu    sync.Mutex
	state PermissionState

	prompts singleflight.Group
}

// NewGate wraps platform. A nil platform means notifications are unsupported
// and permission is never granted.
func NewGate(platform Platform, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Gate{platform: platform, logger: logger, state: Denied}
	if platform != nil {
		g.state = platform.Permission()
	}
	return g
}

func (g *Gate) State() PermissionState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// EnsurePermission reports whether notifications may be shown, prompting the
// user only while the state is Unknown.
func (g *Gate) EnsurePermission(ctx context.Context) bool {
	switch g.State() {
	case Granted:
		return true
	case Denied:
		return false
	}

	v, err, shared := g.prompts.Do("permission", func() (any, error) {
		if s := g.State(); s != Unknown {
			return s, nil
		}
		s, err := g.platform.RequestPermission(ctx)
		if err != nil {
			return Unknown, err
		}
		g.resolve(s)
		return g.State(), nil
	})
	if err != nil {
		g.logger.Warn("notification permission request failed", "error", err, "shared", shared)
		return false
	}
	return v.(PermissionState) == Granted
}

func (g *Gate) resolve(s PermissionState) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != Unknown || s == Unknown {
		return
	}
	g.state = s
	g.logger.Info("notification permission resolved", "state", s)
}

// Title and Body build the notification text for a reminder.
func Title(r *reminder.Reminder) string {
	return fmt.Sprintf("Reminder: %s", r.Task)
}

func Body(r *reminder.Reminder) string {
	return fmt.Sprintf("You are near %s.", r.LocationName)
}

// Notify shows a notification for r. It does nothing unless permission is
// granted; delivery is not acknowledged.
func (g *Gate) Notify(ctx context.Context, r *reminder.Reminder) (bool, error) {
	if g.State() != Granted {
		return false, nil
	}
	if err := g.platform.Show(ctx, Title(r), Body(r)); err != nil {
		return false, fmt.Errorf("failed to show notification for %s: %w", r.ID, err)
	}
	return true, nil
}
