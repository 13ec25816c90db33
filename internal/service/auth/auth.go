package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/nkiryanov/mondoauth/internal/apperrors"
	"github.com/nkiryanov/mondoauth/internal/logger"
	"github.com/nkiryanov/mondoauth/internal/models"
	"github.com/nkiryanov/mondoauth/internal/repository"
)

const defaultStageTimeout = 30 * time.Second

// Remote OAuth grants the manager relies on
type Remote interface {
	// authorization_code grant
	ExchangeCode(ctx context.Context, code string) (models.TokenPair, error)

	// refresh_token grant
	RefreshToken(ctx context.Context, refresh string) (models.TokenPair, error)
}

type Config struct {
	// OAuth client registration. ClientSecret is used by the remote only
	ClientID    string
	RedirectURL string

	// Provider login page
	AuthURL string

	// Timeout for every remote call. If not set than default is used
	StageTimeout time.Duration

	// What happens with the refresh guard when refresh fails
	FailurePolicy RefreshFailurePolicy

	// How concurrent refresh calls are handled
	Mode RefreshMode
}

// Manager owns access and refresh tokens: obtains, refreshes and forgets them
type Manager struct {
	oauth        oauth2.Config
	stageTimeout time.Duration

	remote Remote
	store  repository.CredentialStore
	logger logger.Logger

	// Set while refresh exchange is outstanding
	refreshing    atomic.Bool
	failurePolicy RefreshFailurePolicy
	mode          RefreshMode
	group         singleflight.Group
}

func New(cfg Config, remote Remote, store repository.CredentialStore, l logger.Logger) (*Manager, error) {
	switch {
	case cfg.ClientID == "":
		return nil, errors.New("client id must not be empty")
	case cfg.AuthURL == "":
		return nil, errors.New("auth url must not be empty")
	case cfg.RedirectURL == "":
		return nil, errors.New("redirect url must not be empty")
	case remote == nil || store == nil:
		return nil, errors.New("remote and store must not be nil")
	}

	if cfg.StageTimeout == 0 {
		cfg.StageTimeout = defaultStageTimeout
	}
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &Manager{
		oauth: oauth2.Config{
			ClientID:    cfg.ClientID,
			RedirectURL: cfg.RedirectURL,
			Endpoint:    oauth2.Endpoint{AuthURL: cfg.AuthURL},
		},
		stageTimeout:  cfg.StageTimeout,
		remote:        remote,
		store:         store,
		logger:        l.With("component", "auth"),
		failurePolicy: cfg.FailurePolicy,
		mode:          cfg.Mode,
	}, nil
}

// Login page address: client id, redirect uri and response_type=code
func (m *Manager) BuildAuthorizationURL() string {
	return m.oauth.AuthCodeURL("")
}

// ExchangeCode takes code from the redirect uri the provider sent user back with,
// exchanges it for a token pair and stores both tokens.
// Nothing is stored if exchange fails.
func (m *Manager) ExchangeCode(ctx context.Context, redirectURI string) (string, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return "", fmt.Errorf("%w: %w", apperrors.ErrAuthExchange, err)
	}
	code := u.Query().Get("code")
	if code == "" {
		return "", fmt.Errorf("%w: %w", apperrors.ErrAuthExchange, apperrors.ErrMissingCode)
	}

	stageCtx, cancel := context.WithTimeout(ctx, m.stageTimeout)
	defer cancel()

	pair, err := m.remote.ExchangeCode(stageCtx, code)
	if err != nil {
		m.logger.Warn("Code exchange failed", "error", err)
		return "", fmt.Errorf("%w: %w", apperrors.ErrAuthExchange, err)
	}
	if pair.Access == "" || pair.Refresh == "" {
		m.logger.Warn("Code exchange returned incomplete token pair")
		return "", fmt.Errorf("%w: incomplete token pair", apperrors.ErrAuthExchange)
	}

	if err := m.storePair(ctx, pair); err != nil {
		return "", err
	}

	m.logger.Info("Code exchanged", "access", pair.Access)
	return pair.Access, nil
}

func (m *Manager) IsAuthenticated(ctx context.Context) (bool, error) {
	return m.store.IsSet(ctx, models.SlotAccessToken)
}

// Forget both tokens. Webhook id is left as is
func (m *Manager) Logout(ctx context.Context) error {
	if err := m.store.Delete(ctx, models.SlotAccessToken); err != nil {
		return fmt.Errorf("failed to delete access token: %w", err)
	}
	if err := m.store.Delete(ctx, models.SlotRefreshToken); err != nil {
		return fmt.Errorf("failed to delete refresh token: %w", err)
	}

	m.logger.Info("Logged out")
	return nil
}

func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	access, err := m.store.Get(ctx, models.SlotAccessToken)
	switch {
	case errors.Is(err, apperrors.ErrCredentialNotSet):
		return "", apperrors.ErrNotAuthenticated
	case err != nil:
		return "", fmt.Errorf("failed to read access token: %w", err)
	}
	return access, nil
}

// Access token is written first. If refresh token can't be written
// the access token is removed again so the pair is never half stored.
func (m *Manager) storePair(ctx context.Context, pair models.TokenPair) error {
	if err := m.store.Set(ctx, models.SlotAccessToken, pair.Access); err != nil {
		return fmt.Errorf("failed to store access token: %w", err)
	}
	if err := m.store.Set(ctx, models.SlotRefreshToken, pair.Refresh); err != nil {
		if delErr := m.store.Delete(ctx, models.SlotAccessToken); delErr != nil {
			m.logger.Error("Failed to roll back access token", "error", delErr)
		}
		return fmt.Errorf("failed to store refresh token: %w", err)
	}
	return nil
}
