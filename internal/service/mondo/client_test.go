package mondo

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/nkiryanov/mondoauth/internal/apperrors"
	"github.com/nkiryanov/mondoauth/internal/models"
	"github.com/nkiryanov/mondoauth/internal/repository/memory"
)

func newTestClient(t *testing.T, h http.Handler) (*Client, *memory.Store) {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	store := memory.New()
	c, err := NewClient(Config{
		BaseURL:      srv.URL,
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "mondo://auth",
	}, store, srv.Client(), nil)
	require.NoError(t, err)

	return c, store
}

func writeJSON(w http.ResponseWriter, code int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(body))
}

func TestNewClient(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		c, err := NewClient(Config{BaseURL: "https://api.example.com/", ClientID: "id"}, memory.New(), nil, nil)
		require.NoError(t, err)

		require.Equal(t, "https://api.example.com", c.baseURL)
		require.Equal(t, "https://api.example.com/oauth2/token", c.oauth.Endpoint.TokenURL)
		require.Equal(t, defaultTimeout, c.timeout)
	})

	t.Run("required fields", func(t *testing.T) {
		_, err := NewClient(Config{ClientID: "id"}, memory.New(), nil, nil)
		require.Error(t, err, "base url is required")

		_, err = NewClient(Config{BaseURL: "https://api.example.com"}, memory.New(), nil, nil)
		require.Error(t, err, "client id is required")
	})
}

func TestClient_Grants(t *testing.T) {
	t.Run("authorization code grant", func(t *testing.T) {
		c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/oauth2/token", r.URL.Path)
			require.NoError(t, r.ParseForm())

			assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
			assert.Equal(t, "client-id", r.PostForm.Get("client_id"))
			assert.Equal(t, "client-secret", r.PostForm.Get("client_secret"))
			assert.Equal(t, "mondo://auth", r.PostForm.Get("redirect_uri"))
			assert.Equal(t, "the-code", r.PostForm.Get("code"))

			writeJSON(w, http.StatusOK, `{"access_token":"access-1","refresh_token":"refresh-1","token_type":"Bearer"}`)
		}))

		pair, err := c.ExchangeCode(t.Context(), "the-code")

		require.NoError(t, err)
		require.Equal(t, models.TokenPair{Access: "access-1", Refresh: "refresh-1"}, pair)
	})

	t.Run("refresh token grant", func(t *testing.T) {
		c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())

			assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
			assert.Equal(t, "refresh-1", r.PostForm.Get("refresh_token"))
			assert.Equal(t, "client-id", r.PostForm.Get("client_id"))
			assert.Equal(t, "client-secret", r.PostForm.Get("client_secret"))

			writeJSON(w, http.StatusOK, `{"access_token":"access-2","refresh_token":"refresh-2","token_type":"Bearer"}`)
		}))

		pair, err := c.RefreshToken(t.Context(), "refresh-1")

		require.NoError(t, err)
		require.Equal(t, models.TokenPair{Access: "access-2", Refresh: "refresh-2"}, pair)
	})

	t.Run("grant rejected", func(t *testing.T) {
		c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusBadRequest, `{"error":"invalid_grant"}`)
		}))

		_, err := c.ExchangeCode(t.Context(), "used-code")

		require.Error(t, err)
		var retrieveErr *oauth2.RetrieveError
		require.True(t, errors.As(err, &retrieveErr), "oauth2 error must be preserved")
		require.Equal(t, "invalid_grant", retrieveErr.ErrorCode)
	})

	t.Run("response without access token", func(t *testing.T) {
		c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, `{"refresh_token":"refresh-1"}`)
		}))

		_, err := c.ExchangeCode(t.Context(), "code")

		require.Error(t, err)
	})
}

func TestClient_API(t *testing.T) {
	t.Run("accounts", func(t *testing.T) {
		c, store := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodGet, r.Method)
			require.Equal(t, "/accounts", r.URL.Path)
			require.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))

			writeJSON(w, http.StatusOK, `{"accounts":[
				{"id":"acc1","description":"Main","created":"2016-01-10T12:00:00Z"},
				{"id":"acc2","description":"Second","created":"2016-02-10T12:00:00Z"}
			]}`)
		}))
		require.NoError(t, store.Set(t.Context(), models.SlotAccessToken, "access-1"))

		accounts, err := c.Accounts(t.Context())

		require.NoError(t, err)
		require.Len(t, accounts, 2)
		require.Equal(t, "acc1", accounts[0].ID)
		require.Equal(t, "Main", accounts[0].Description)
	})

	t.Run("not authenticated without request", func(t *testing.T) {
		called := false
		c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		}))

		_, err := c.Accounts(t.Context())

		require.ErrorIs(t, err, apperrors.ErrNotAuthenticated)
		require.False(t, called, "no request without access token")
	})

	t.Run("register webhook", func(t *testing.T) {
		c, store := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "/webhooks", r.URL.Path)
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "acc1", r.PostForm.Get("account_id"))
			assert.Equal(t, "https://push.example.com/hook", r.PostForm.Get("url"))

			writeJSON(w, http.StatusOK, `{"webhook":{"id":"new_hook","account_id":"acc1","url":"https://push.example.com/hook"}}`)
		}))
		require.NoError(t, store.Set(t.Context(), models.SlotAccessToken, "access-1"))

		hook, err := c.RegisterWebhook(t.Context(), "acc1", "https://push.example.com/hook")

		require.NoError(t, err)
		require.Equal(t, models.Webhook{ID: "new_hook", AccountID: "acc1", URL: "https://push.example.com/hook"}, hook)
	})

	t.Run("register webhook without id", func(t *testing.T) {
		c, store := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, `{"webhook":{"account_id":"acc1"}}`)
		}))
		require.NoError(t, store.Set(t.Context(), models.SlotAccessToken, "access-1"))

		_, err := c.RegisterWebhook(t.Context(), "acc1", "https://push.example.com/hook")

		require.Error(t, err, "webhook without id is not usable")
	})

	t.Run("delete webhook", func(t *testing.T) {
		c, store := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodDelete, r.Method)
			require.Equal(t, "/webhooks/old_hook", r.URL.Path)
			w.WriteHeader(http.StatusOK)
		}))
		require.NoError(t, store.Set(t.Context(), models.SlotAccessToken, "access-1"))

		err := c.DeleteWebhook(t.Context(), "old_hook")

		require.NoError(t, err)
	})

	t.Run("api error", func(t *testing.T) {
		tests := []struct {
			name         string
			status       int
			body         string
			expectedCode string
			unauthorized bool
		}{
			{"not found", http.StatusNotFound, `{"code":"not_found","message":"webhook not found"}`, "not_found", false},
			{"unauthorized", http.StatusUnauthorized, `{"code":"unauthorized.bad_access_token"}`, "unauthorized.bad_access_token", true},
			{"empty body", http.StatusInternalServerError, ``, "", false},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				c, store := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					writeJSON(w, tt.status, tt.body)
				}))
				require.NoError(t, store.Set(t.Context(), models.SlotAccessToken, "access-1"))

				err := c.DeleteWebhook(t.Context(), "old_hook")

				var apiErr *APIError
				require.ErrorAs(t, err, &apiErr)
				require.Equal(t, tt.status, apiErr.StatusCode)
				require.Equal(t, tt.expectedCode, apiErr.Code)
				require.Equal(t, tt.unauthorized, errors.Is(err, apperrors.ErrNotAuthenticated))
			})
		}
	})
}

func TestClient_Balance(t *testing.T) {
	t.Run("balance in major units", func(t *testing.T) {
		c, store := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/balance", r.URL.Path)
			require.Equal(t, "acc1", r.URL.Query().Get("account_id"))

			writeJSON(w, http.StatusOK, `{"balance":5012,"currency":"GBP","spend_today":-250}`)
		}))
		require.NoError(t, store.Set(t.Context(), models.SlotAccessToken, "access-1"))

		balance, err := c.Balance(t.Context(), "acc1")

		require.NoError(t, err)
		require.Equal(t, "acc1", balance.AccountID)
		require.Equal(t, "GBP", balance.Currency)
		require.Equal(t, "50.12", balance.Balance.StringFixed(2))
		require.Equal(t, "-2.50", balance.SpendToday.StringFixed(2))
	})

	t.Run("transactions", func(t *testing.T) {
		c, store := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/transactions", r.URL.Path)
			require.Equal(t, "acc1", r.URL.Query().Get("account_id"))

			writeJSON(w, http.StatusOK, `{"transactions":[
				{"id":"tx1","created":"2016-01-10T12:00:00Z","description":"Coffee","category":"eating_out","currency":"GBP","amount":-310}
			]}`)
		}))
		require.NoError(t, store.Set(t.Context(), models.SlotAccessToken, "access-1"))

		transactions, err := c.Transactions(t.Context(), "acc1")

		require.NoError(t, err)
		require.Len(t, transactions, 1)
		require.Equal(t, "tx1", transactions[0].ID)
		require.Equal(t, "eating_out", transactions[0].Category)
		require.Equal(t, "-3.10", transactions[0].Amount.StringFixed(2))
	})
}
