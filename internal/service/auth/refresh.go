package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nkiryanov/mondoauth/internal/apperrors"
	"github.com/nkiryanov/mondoauth/internal/models"
)

type RefreshFailurePolicy int

const (
	// Guard stays set after failed refresh; following refresh calls are skipped
	// until ResetRefreshGuard is called
	KeepGuard RefreshFailurePolicy = iota

	// Guard is cleared after failed refresh so the next call may retry
	ReleaseGuard
)

func ParseFailurePolicy(s string) (RefreshFailurePolicy, error) {
	switch strings.ToLower(s) {
	case "", "keep":
		return KeepGuard, nil
	case "release":
		return ReleaseGuard, nil
	default:
		return KeepGuard, fmt.Errorf("unknown refresh failure policy %q, expected keep or release", s)
	}
}

type RefreshMode int

const (
	// Concurrent caller returns immediately with empty token
	SkipConcurrent RefreshMode = iota

	// Concurrent callers wait for the outstanding refresh and get its result
	ShareInFlight
)

func ParseRefreshMode(s string) (RefreshMode, error) {
	switch strings.ToLower(s) {
	case "", "skip":
		return SkipConcurrent, nil
	case "shared":
		return ShareInFlight, nil
	default:
		return SkipConcurrent, fmt.Errorf("unknown refresh mode %q, expected skip or shared", s)
	}
}

// Refresh exchanges stored refresh token for a new pair.
//
// At most one refresh runs at a time. Empty token and nil error means the call was skipped,
// either because another refresh is running or the guard was kept after a failure.
// The access token is deleted before the remote call and is not restored if the call fails.
func (m *Manager) Refresh(ctx context.Context) (string, error) {
	if m.mode == ShareInFlight {
		v, err, shared := m.group.Do("refresh", func() (any, error) {
			return m.guardedRefresh(ctx)
		})
		if shared {
			m.logger.Debug("Joined in-flight refresh")
		}
		return v.(string), err
	}

	return m.guardedRefresh(ctx)
}

// Whether refresh guard is set
func (m *Manager) Refreshing() bool {
	return m.refreshing.Load()
}

// Clear guard left by failed refresh
func (m *Manager) ResetRefreshGuard() {
	if m.refreshing.Swap(false) {
		m.logger.Info("Refresh guard reset")
	}
}

func (m *Manager) guardedRefresh(ctx context.Context) (string, error) {
	if !m.refreshing.CompareAndSwap(false, true) {
		m.logger.Info("Refresh skipped, guard is set")
		return "", nil
	}

	if err := m.store.Delete(ctx, models.SlotAccessToken); err != nil {
		return m.refreshFailed(fmt.Errorf("failed to delete access token: %w", err))
	}

	refresh, err := m.store.Get(ctx, models.SlotRefreshToken)
	if err != nil {
		return m.refreshFailed(fmt.Errorf("failed to read refresh token: %w", err))
	}

	stageCtx, cancel := context.WithTimeout(ctx, m.stageTimeout)
	defer cancel()

	pair, err := m.remote.RefreshToken(stageCtx, refresh)
	if err != nil {
		return m.refreshFailed(err)
	}
	if pair.Access == "" {
		return m.refreshFailed(errors.New("refresh returned empty access token"))
	}
	if pair.Refresh == "" {
		pair.Refresh = refresh
	}

	if err := m.storePair(ctx, pair); err != nil {
		return m.refreshFailed(err)
	}

	m.refreshing.Store(false)
	m.logger.Info("Token refreshed", "access", pair.Access)
	return pair.Access, nil
}

func (m *Manager) refreshFailed(err error) (string, error) {
	if m.failurePolicy == ReleaseGuard {
		m.refreshing.Store(false)
	}

	m.logger.Error("Token refresh failed", "error", err, "guard_kept", m.refreshing.Load())
	return "", fmt.Errorf("%w: %w", apperrors.ErrRefreshFailed, err)
}
