package webhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nkiryanov/mondoauth/internal/apperrors"
	"github.com/nkiryanov/mondoauth/internal/logger"
	"github.com/nkiryanov/mondoauth/internal/models"
	"github.com/nkiryanov/mondoauth/internal/repository"
	"github.com/nkiryanov/mondoauth/internal/service/push"
)

const defaultStageTimeout = 30 * time.Second

// Remote API calls used during registration
type Remote interface {
	Accounts(ctx context.Context) ([]models.Account, error)
	RegisterWebhook(ctx context.Context, accountID string, callbackURL string) (models.Webhook, error)
	DeleteWebhook(ctx context.Context, webhookID string) error
}

type TokenUploader interface {
	UploadToken(ctx context.Context, token models.RegistrationToken) error
}

// Picks account the webhook is registered for
type AccountSelector func(accounts []models.Account) (models.Account, error)

func FirstAccount(accounts []models.Account) (models.Account, error) {
	if len(accounts) == 0 {
		return models.Account{}, apperrors.ErrNoAccounts
	}
	return accounts[0], nil
}

type Config struct {
	// Address remote service pushes events to
	CallbackURL string

	// Timeout for every stage. If not set than default is used
	StageTimeout time.Duration

	// If not set than FirstAccount is used
	SelectAccount AccountSelector
}

type Deps struct {
	Remote      Remote
	Uploader    TokenUploader
	DeviceToken push.DeviceTokenSource
	Store       repository.CredentialStore
}

type Registrar struct {
	callbackURL   string
	stageTimeout  time.Duration
	selectAccount AccountSelector

	remote   Remote
	uploader TokenUploader
	device   push.DeviceTokenSource
	store    repository.CredentialStore
	logger   logger.Logger
}

func New(cfg Config, deps Deps, l logger.Logger) (*Registrar, error) {
	if cfg.CallbackURL == "" {
		return nil, errors.New("callback url must not be empty")
	}
	if deps.Remote == nil || deps.Uploader == nil || deps.DeviceToken == nil || deps.Store == nil {
		return nil, errors.New("all registrar dependencies must be set")
	}

	if cfg.StageTimeout == 0 {
		cfg.StageTimeout = defaultStageTimeout
	}
	if cfg.SelectAccount == nil {
		cfg.SelectAccount = FirstAccount
	}
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &Registrar{
		callbackURL:   cfg.CallbackURL,
		stageTimeout:  cfg.StageTimeout,
		selectAccount: cfg.SelectAccount,
		remote:        deps.Remote,
		uploader:      deps.Uploader,
		device:        deps.DeviceToken,
		store:         deps.Store,
		logger:        l.With("component", "webhook"),
	}, nil
}

// Register binds selected account to this device push webhook replacing previous registration.
//
// Stages run one by one and any failure aborts registration, except removal of the previous
// webhook: its failure is logged and ignored. Completed stages are not rolled back.
func (r *Registrar) Register(ctx context.Context) (models.Webhook, error) {
	var account models.Account
	err := r.stage(ctx, func(ctx context.Context) error {
		accounts, err := r.remote.Accounts(ctx)
		if err != nil {
			return fmt.Errorf("failed to list accounts: %w", err)
		}
		account, err = r.selectAccount(accounts)
		if err != nil {
			return fmt.Errorf("failed to select account: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Webhook{}, err
	}
	l := r.logger.With("account_id", account.ID)

	var token models.RegistrationToken
	err = r.stage(ctx, func(ctx context.Context) error {
		deviceToken, err := r.device.DeviceToken(ctx)
		if err != nil {
			if !errors.Is(err, apperrors.ErrDeviceToken) {
				err = fmt.Errorf("%w: %w", apperrors.ErrDeviceToken, err)
			}
			return err
		}
		token = models.RegistrationToken{AccountID: account.ID, DeviceToken: deviceToken}
		return nil
	})
	if err != nil {
		return models.Webhook{}, err
	}

	err = r.stage(ctx, func(ctx context.Context) error {
		if err := r.uploader.UploadToken(ctx, token); err != nil {
			return fmt.Errorf("failed to upload device token: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Webhook{}, err
	}
	l.Debug("Device token uploaded")

	if err := r.stage(ctx, r.deletePrevious); err != nil {
		l.Warn("Previous webhook not deleted", "error", err)
	}

	var hook models.Webhook
	err = r.stage(ctx, func(ctx context.Context) error {
		hook, err = r.remote.RegisterWebhook(ctx, account.ID, r.callbackURL)
		if err != nil {
			return fmt.Errorf("failed to register webhook: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Webhook{}, err
	}

	if err := r.store.Set(ctx, models.SlotWebhookID, hook.ID); err != nil {
		return models.Webhook{}, fmt.Errorf("failed to store webhook id: %w", err)
	}

	l.Info("Webhook registered", "webhook_id", hook.ID)
	return hook, nil
}

// Remove webhook registered before if any.
// Caller ignores the error: previous webhook may be already removed on the remote side
func (r *Registrar) deletePrevious(ctx context.Context) error {
	previous, err := r.store.Get(ctx, models.SlotWebhookID)
	switch {
	case errors.Is(err, apperrors.ErrCredentialNotSet):
		return nil
	case err != nil:
		return fmt.Errorf("failed to read previous webhook id: %w", err)
	}

	if err := r.remote.DeleteWebhook(ctx, previous); err != nil {
		return fmt.Errorf("failed to delete webhook %s: %w", previous, err)
	}

	r.logger.Debug("Previous webhook deleted", "webhook_id", previous)
	return nil
}

func (r *Registrar) stage(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, r.stageTimeout)
	defer cancel()
	return fn(ctx)
}
