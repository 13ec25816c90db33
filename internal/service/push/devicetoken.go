package push

import (
	"context"
	"fmt"
	"sync"

	"github.com/nkiryanov/mondoauth/internal/apperrors"
)

// DeviceTokenSource provides the platform push token of this device
type DeviceTokenSource interface {
	DeviceToken(ctx context.Context) (string, error)
}

// CallbackFetcher is a callback style token retrieval, like Client.RequestInstanceToken.
// It must call done at least once; any call after the first is ignored.
type CallbackFetcher func(senderID string, done func(token string, err error))

type bridge struct {
	fetch    CallbackFetcher
	senderID string
}

// Bridge turns callback style retrieval into a blocking single-shot call
func Bridge(fetch CallbackFetcher, senderID string) DeviceTokenSource {
	return &bridge{fetch: fetch, senderID: senderID}
}

func (b *bridge) DeviceToken(ctx context.Context) (string, error) {
	type result struct {
		token string
		err   error
	}

	// Buffered so late callback never blocks when nobody waits anymore
	ch := make(chan result, 1)
	var once sync.Once

	b.fetch(b.senderID, func(token string, err error) {
		once.Do(func() {
			ch <- result{token: token, err: err}
		})
	})

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %w", apperrors.ErrDeviceToken, ctx.Err())
	case r := <-ch:
		if r.err != nil {
			return "", fmt.Errorf("%w: %w", apperrors.ErrDeviceToken, r.err)
		}
		if r.token == "" {
			return "", fmt.Errorf("%w: empty token", apperrors.ErrDeviceToken)
		}
		return r.token, nil
	}
}

type staticToken string

// StaticToken always returns the same token. Useful when token is issued out of band
func StaticToken(token string) DeviceTokenSource {
	return staticToken(token)
}

func (s staticToken) DeviceToken(ctx context.Context) (string, error) {
	if s == "" {
		return "", fmt.Errorf("%w: device token is not configured", apperrors.ErrDeviceToken)
	}
	return string(s), nil
}
