package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/nkiryanov/mondoauth/internal/handlers/middleware"
	"github.com/nkiryanov/mondoauth/internal/logger"
	"github.com/nkiryanov/mondoauth/internal/models"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

type RouterConfig struct {
	// Register push webhook right after successful login
	RegisterOnLogin bool
}

func NewRouter(
	cfg RouterConfig,
	authService authService,
	webhookService webhookService,
	accountService accountService,
	logger logger.Logger,
) http.Handler {
	withAuth := middleware.AuthMiddleware(authService)

	mux := http.NewServeMux()

	mux.Handle("GET /login", handleLogin(authService))
	mux.Handle("GET /callback", handleCallback(authService, webhookService, cfg.RegisterOnLogin, logger))
	mux.Handle("POST /exchange", handleExchange(authService, logger))
	mux.Handle("GET /status", handleStatus(authService, logger))
	mux.Handle("POST /refresh", handleRefresh(authService, logger))
	mux.Handle("POST /logout", handleLogout(authService, logger))

	mux.Handle("POST /webhook", withAuth(handleRegisterWebhook(webhookService, logger)))
	mux.Handle("GET /accounts", withAuth(handleListAccounts(accountService, logger)))
	mux.Handle("GET /accounts/{id}/balance", withAuth(handleAccountBalance(accountService, logger)))
	mux.Handle("GET /accounts/{id}/transactions", withAuth(handleListTransactions(accountService, logger)))

	handler := chain(mux,
		middleware.RequestIDMiddleware(),
		middleware.LoggerMiddleware(logger),
	)

	return handler
}

type authService interface {
	// Provider login page address
	BuildAuthorizationURL() string

	// Exchange code from redirect uri for tokens
	// Has to return apperrors.ErrAuthExchange on failure and apperrors.ErrMissingCode if uri has no code
	ExchangeCode(ctx context.Context, redirectURI string) (string, error)

	// Refresh tokens. Empty token without error means refresh was skipped
	// Has to return apperrors.ErrRefreshFailed if remote refresh failed
	Refresh(ctx context.Context) (string, error)

	// Whether refresh guard is set
	Refreshing() bool

	IsAuthenticated(ctx context.Context) (bool, error)
	AccessTokenExpiry(ctx context.Context) (time.Time, bool, error)
	Logout(ctx context.Context) error
}

type webhookService interface {
	Register(ctx context.Context) (models.Webhook, error)
}

type accountService interface {
	Accounts(ctx context.Context) ([]models.Account, error)
	Balance(ctx context.Context, accountID string) (models.Balance, error)
	Transactions(ctx context.Context, accountID string) ([]models.Transaction, error)
}
