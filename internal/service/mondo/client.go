package mondo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/oauth2"

	"github.com/nkiryanov/mondoauth/internal/apperrors"
	"github.com/nkiryanov/mondoauth/internal/logger"
	"github.com/nkiryanov/mondoauth/internal/models"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultTokenPath = "/oauth2/token"
)

// Error returned for any non 2xx API response
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mondo api: status %d, code: %s, message: %s", e.StatusCode, e.Code, e.Message)
}

// 401 from the API means the stored access token is not accepted anymore
func (e *APIError) Is(target error) bool {
	return target == apperrors.ErrNotAuthenticated && e.StatusCode == http.StatusUnauthorized
}

type Config struct {
	// API base address, like https://api.getmondo.co.uk
	BaseURL string

	// OAuth client credentials
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// Token endpoint. If not set than BaseURL + /oauth2/token is used
	TokenURL string

	// Timeout for a single API call. If not set than default is used
	Timeout time.Duration
}

// Source of the bearer token for API calls
type tokenGetter interface {
	Get(ctx context.Context, slot models.Slot) (string, error)
}

type Client struct {
	baseURL string
	timeout time.Duration

	oauth    *oauth2.Config
	tokens   tokenGetter
	client   *http.Client
	validate *validator.Validate
	logger   logger.Logger
}

func NewClient(cfg Config, tokens tokenGetter, httpClient *http.Client, l logger.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("base url must not be empty")
	}
	if cfg.ClientID == "" {
		return nil, errors.New("client id must not be empty")
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if cfg.TokenURL == "" {
		cfg.TokenURL = baseURL + defaultTokenPath
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &Client{
		baseURL: baseURL,
		timeout: cfg.Timeout,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint: oauth2.Endpoint{
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		tokens:   tokens,
		client:   httpClient,
		validate: validator.New(),
		logger:   l.With("component", "mondo-client"),
	}, nil
}

// Exchange authorization code for a token pair (authorization_code grant)
func (c *Client) ExchangeCode(ctx context.Context, code string) (models.TokenPair, error) {
	ctx, cancel := c.oauthContext(ctx)
	defer cancel()

	token, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("authorization_code grant: %w", err)
	}

	c.logger.Debug("Code exchanged", "access", token.AccessToken)
	return models.TokenPair{Access: token.AccessToken, Refresh: token.RefreshToken}, nil
}

// Exchange refresh token for a new token pair (refresh_token grant)
func (c *Client) RefreshToken(ctx context.Context, refresh string) (models.TokenPair, error) {
	ctx, cancel := c.oauthContext(ctx)
	defer cancel()

	token, err := c.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refresh}).Token()
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("refresh_token grant: %w", err)
	}

	c.logger.Debug("Token refreshed", "access", token.AccessToken)
	return models.TokenPair{Access: token.AccessToken, Refresh: token.RefreshToken}, nil
}

func (c *Client) oauthContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.client)
	return context.WithTimeout(ctx, c.timeout)
}

func (c *Client) Accounts(ctx context.Context) ([]models.Account, error) {
	var resp struct {
		Accounts []struct {
			ID          string    `json:"id" validate:"required"`
			Description string    `json:"description"`
			Created     time.Time `json:"created"`
		} `json:"accounts" validate:"dive"`
	}

	if err := c.do(ctx, http.MethodGet, "/accounts", nil, nil, &resp); err != nil {
		return nil, err
	}

	accounts := make([]models.Account, 0, len(resp.Accounts))
	for _, a := range resp.Accounts {
		accounts = append(accounts, models.Account{ID: a.ID, Description: a.Description, Created: a.Created})
	}
	return accounts, nil
}

func (c *Client) RegisterWebhook(ctx context.Context, accountID string, callbackURL string) (models.Webhook, error) {
	var resp struct {
		Webhook struct {
			ID        string `json:"id" validate:"required"`
			AccountID string `json:"account_id"`
			URL       string `json:"url"`
		} `json:"webhook"`
	}

	form := url.Values{
		"account_id": {accountID},
		"url":        {callbackURL},
	}
	if err := c.do(ctx, http.MethodPost, "/webhooks", nil, form, &resp); err != nil {
		return models.Webhook{}, err
	}

	return models.Webhook{
		ID:        resp.Webhook.ID,
		AccountID: resp.Webhook.AccountID,
		URL:       resp.Webhook.URL,
	}, nil
}

func (c *Client) DeleteWebhook(ctx context.Context, webhookID string) error {
	return c.do(ctx, http.MethodDelete, "/webhooks/"+url.PathEscape(webhookID), nil, nil, nil)
}

// do sends authorized request and decodes JSON response into out (if not nil)
func (c *Client) do(ctx context.Context, method string, path string, query url.Values, form url.Values, out any) error {
	access, err := c.tokens.Get(ctx, models.SlotAccessToken)
	if err != nil {
		if errors.Is(err, apperrors.ErrCredentialNotSet) {
			return apperrors.ErrNotAuthenticated
		}
		return fmt.Errorf("failed to read access token: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+access)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.processError(resp, method, path)
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.logger.Warn("Failed to decode response", "path", path, "error", err)
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if err := c.validate.Struct(out); err != nil {
		return fmt.Errorf("unexpected response for %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) processError(resp *http.Response, method string, path string) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	// Body is optional, keep status code at least
	_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(apiErr)

	c.logger.Warn("API request failed", "method", method, "path", path, "status_code", resp.StatusCode, "error_code", apiErr.Code)
	return apiErr
}
