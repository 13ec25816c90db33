package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nkiryanov/mondoauth/internal/logger"
	"github.com/nkiryanov/mondoauth/internal/models"
)

const defaultTimeout = 10 * time.Second

// Client of the push registration service
type Client struct {
	PushAddr string
	Timeout  time.Duration

	client *http.Client
	logger logger.Logger
}

func NewClient(addr string, httpClient *http.Client, l logger.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &Client{
		PushAddr: strings.TrimRight(addr, "/"),
		Timeout:  defaultTimeout,
		client:   httpClient,
		logger:   l.With("component", "push-client"),
	}
}

// Upload device token so pushes for the account are routed to the device
func (c *Client) UploadToken(ctx context.Context, token models.RegistrationToken) error {
	form := url.Values{
		"account_id": {token.AccountID},
		"token":      {token.DeviceToken},
	}

	return c.post(ctx, "/register", form, func(resp *http.Response) error {
		switch resp.StatusCode {
		case http.StatusOK, http.StatusCreated, http.StatusNoContent:
			c.logger.Debug("Device token uploaded", "account_id", token.AccountID, "token", token.DeviceToken)
			return nil
		default:
			c.logger.Warn("Failed to upload device token", "status_code", resp.StatusCode, "account_id", token.AccountID)
			return fmt.Errorf("failed to upload device token: unexpected status code %d", resp.StatusCode)
		}
	})
}

// RequestInstanceToken asks the push service for a device instance token.
// The call returns immediately, done is called exactly once from another goroutine.
func (c *Client) RequestInstanceToken(senderID string, done func(token string, err error)) {
	go func() {
		done(c.instanceToken(senderID))
	}()
}

func (c *Client) instanceToken(senderID string) (string, error) {
	var token string

	err := c.post(context.Background(), "/instance_id", url.Values{"sender_id": {senderID}}, func(resp *http.Response) error {
		if resp.StatusCode != http.StatusOK {
			c.logger.Warn("Failed to request instance token", "status_code", resp.StatusCode)
			return fmt.Errorf("unexpected status code %d", resp.StatusCode)
		}

		var body struct {
			Token string `json:"token"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		if body.Token == "" {
			return errors.New("empty instance token")
		}

		token = body.Token
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to request instance token: %w", err)
	}

	return token, nil
}

func (c *Client) post(ctx context.Context, path string, form url.Values, handle func(*http.Response) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.PushAddr+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck

	return handle(resp)
}
