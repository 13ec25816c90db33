package refresher

import (
	"context"
	"errors"
	"time"

	"github.com/nkiryanov/mondoauth/internal/apperrors"
	"github.com/nkiryanov/mondoauth/internal/logger"
	"github.com/nkiryanov/mondoauth/internal/models"
)

const defaultWindow = 5 * time.Minute

type tokenManager interface {
	AccessTokenExpiry(ctx context.Context) (time.Time, bool, error)
	Refresh(ctx context.Context) (string, error)
}

type slotChecker interface {
	IsSet(ctx context.Context, slot models.Slot) (bool, error)
}

type Config struct {
	// How often token is checked. Zero disables refresher
	Interval time.Duration

	// Refresh token if it expires within the window
	// If not set than default is used
	Window time.Duration
}

// Refresher keeps access token fresh in background
type Refresher struct {
	interval time.Duration
	window   time.Duration

	manager tokenManager
	store   slotChecker
	logger  logger.Logger
	now     func() time.Time

	// Guard kept after failed refresh makes every tick skip, warn about it once
	skipReported bool
}

func New(cfg Config, manager tokenManager, store slotChecker, l logger.Logger) *Refresher {
	if cfg.Window == 0 {
		cfg.Window = defaultWindow
	}
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &Refresher{
		interval: cfg.Interval,
		window:   cfg.Window,
		manager:  manager,
		store:    store,
		logger:   l.With("component", "refresher"),
		now:      time.Now,
	}
}

// Run checks token every interval until ctx is done. Returned channel is closed when refresher stops
func (r *Refresher) Run(ctx context.Context) <-chan struct{} {
	stopped := make(chan struct{})

	if r.interval <= 0 {
		r.logger.Info("Refresher disabled")
		close(stopped)
		return stopped
	}

	r.logger.Debug("Starting refresher", "interval", r.interval, "window", r.window)

	go func() {
		defer close(stopped)

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				r.logger.Debug("Refresher stopped by context")
				return
			case <-ticker.C:
				r.check(ctx)
			}
		}
	}()

	return stopped
}

// check refreshes token when needed and reports whether refresh was attempted
func (r *Refresher) check(ctx context.Context) bool {
	expiresAt, ok, err := r.manager.AccessTokenExpiry(ctx)
	switch {
	case errors.Is(err, apperrors.ErrNotAuthenticated):
		// Absent access token with refresh token present is left by interrupted refresh
		hasRefresh, err := r.store.IsSet(ctx, models.SlotRefreshToken)
		if err != nil {
			r.logger.Error("Failed to check refresh token", "error", err)
			return false
		}
		if !hasRefresh {
			return false
		}
		r.logger.Info("Access token absent, refreshing")
	case err != nil:
		r.logger.Error("Failed to read access token", "error", err)
		return false
	case !ok:
		return false
	case expiresAt.After(r.now().Add(r.window)):
		return false
	default:
		r.logger.Info("Access token expires soon, refreshing", "expires_at", expiresAt)
	}

	access, err := r.manager.Refresh(ctx)
	switch {
	case err != nil:
		r.skipReported = false
		r.logger.Error("Background refresh failed", "error", err)
	case access == "" && !r.skipReported:
		r.skipReported = true
		r.logger.Warn("Background refresh skipped, refresh guard is set. "+
			"After failed refresh it stays set until ResetRefreshGuard or restart, REFRESH_FAILURE=release clears it on failure")
	case access == "":
		r.logger.Debug("Background refresh skipped")
	default:
		r.skipReported = false
	}
	return true
}
