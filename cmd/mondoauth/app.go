package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nkiryanov/mondoauth/internal/handlers"
	"github.com/nkiryanov/mondoauth/internal/logger"
	"github.com/nkiryanov/mondoauth/internal/service/auth"
	"github.com/nkiryanov/mondoauth/internal/service/mondo"
	"github.com/nkiryanov/mondoauth/internal/service/push"
	"github.com/nkiryanov/mondoauth/internal/service/refresher"
	"github.com/nkiryanov/mondoauth/internal/service/webhook"
)

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler

	refresher  *refresher.Refresher
	closeStore func()
	logger     logger.Logger
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	// Initialize logger
	logger, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	failurePolicy, err := auth.ParseFailurePolicy(c.RefreshFailure)
	if err != nil {
		return nil, err
	}
	refreshMode, err := auth.ParseRefreshMode(c.RefreshMode)
	if err != nil {
		return nil, err
	}

	store, closeStore, err := openStore(ctx, c)
	if err != nil {
		return nil, err
	}

	// Initialize remote clients
	client, err := mondo.NewClient(mondo.Config{
		BaseURL:      c.APIURL,
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURL:  c.RedirectURL,
	}, store, nil, logger)
	if err != nil {
		closeStore()
		return nil, fmt.Errorf("error while creating api client. Err: %w", err)
	}
	pushClient := push.NewClient(c.PushURL, nil, logger)

	var deviceToken push.DeviceTokenSource
	switch c.DeviceToken {
	case "":
		deviceToken = push.Bridge(pushClient.RequestInstanceToken, c.SenderID)
	default:
		deviceToken = push.StaticToken(c.DeviceToken)
	}

	// Initialize services
	manager, err := auth.New(auth.Config{
		ClientID:      c.ClientID,
		RedirectURL:   c.RedirectURL,
		AuthURL:       c.LoginURL,
		StageTimeout:  c.StageTimeout,
		FailurePolicy: failurePolicy,
		Mode:          refreshMode,
	}, client, store, logger)
	if err != nil {
		closeStore()
		return nil, fmt.Errorf("error while creating auth manager. Err: %w", err)
	}

	registrar, err := webhook.New(webhook.Config{
		CallbackURL:  c.WebhookURL,
		StageTimeout: c.StageTimeout,
	}, webhook.Deps{
		Remote:      client,
		Uploader:    pushClient,
		DeviceToken: deviceToken,
		Store:       store,
	}, logger)
	if err != nil {
		closeStore()
		return nil, fmt.Errorf("error while creating webhook registrar. Err: %w", err)
	}

	mux := handlers.NewRouter(
		handlers.RouterConfig{RegisterOnLogin: c.RegisterOnLogin},
		manager,
		registrar,
		client,
		logger,
	)

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    mux,
		refresher:  refresher.New(refresher.Config{Interval: c.RefreshInterval}, manager, store, logger),
		closeStore: closeStore,
		logger:     logger,
	}, nil
}

// Run starts http server and background refresher and closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	defer s.closeStore()

	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	refresherStopped := s.refresher.Run(srvCtx)

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); errors.Is(err, context.DeadlineExceeded) {
			s.logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		s.logger.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	s.logger.Info("Starting server", "address", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed
	<-refresherStopped

	return err
}
