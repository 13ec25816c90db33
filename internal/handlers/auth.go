package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/nkiryanov/mondoauth/internal/apperrors"
	"github.com/nkiryanov/mondoauth/internal/handlers/render"
	"github.com/nkiryanov/mondoauth/internal/logger"
)

type messageResponse struct {
	Message string `json:"message"`
}

func handleLogin(authService authService) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, authService.BuildAuthorizationURL(), http.StatusFound)
	})
}

// Provider redirects user here with authorization code
func handleCallback(authService authService, webhookService webhookService, registerOnLogin bool, l logger.Logger) http.Handler {
	type response struct {
		Message      string `json:"message"`
		WebhookID    string `json:"webhook_id,omitempty"`
		WebhookError string `json:"webhook_error,omitempty"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !exchangeCode(w, r, authService, r.URL.String(), l) {
			return
		}

		resp := response{Message: "Logged in successfully"}

		if registerOnLogin {
			hook, err := webhookService.Register(r.Context())
			switch err {
			case nil:
				resp.WebhookID = hook.ID
			default:
				// Login itself succeeded, webhook may be registered later
				l.Error("Failed to register webhook after login", "error", err)
				resp.WebhookError = "Webhook registration failed"
			}
		}

		render.JSON(w, resp)
	})
}

// Same as callback but for clients that catch redirect themselves (like mobile app)
func handleExchange(authService authService, l logger.Logger) http.Handler {
	type request struct {
		RedirectURI string `json:"redirect_uri" validate:"required,oauth_redirect"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		if exchangeCode(w, r, authService, data.RedirectURI, l) {
			render.JSON(w, messageResponse{Message: "Logged in successfully"})
		}
	})
}

// exchangeCode writes error response and returns false if exchange failed
func exchangeCode(w http.ResponseWriter, r *http.Request, authService authService, redirectURI string, l logger.Logger) bool {
	_, err := authService.ExchangeCode(r.Context(), redirectURI)
	switch {
	case err == nil:
		return true
	case errors.Is(err, apperrors.ErrMissingCode):
		render.ServiceError(w, "Authorization code is missing", http.StatusBadRequest)
	case errors.Is(err, apperrors.ErrAuthExchange):
		l.Warn("Code exchange failed", "error", err)
		render.ServiceError(w, "Code exchange failed", http.StatusBadGateway)
	default:
		l.Error("Failed to store tokens", "error", err)
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
	}
	return false
}

func handleStatus(authService authService, l logger.Logger) http.Handler {
	type response struct {
		Authenticated bool       `json:"authenticated"`
		Refreshing    bool       `json:"refreshing"`
		ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authenticated, err := authService.IsAuthenticated(r.Context())
		if err != nil {
			l.Error("Failed to check authentication", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		resp := response{Authenticated: authenticated, Refreshing: authService.Refreshing()}
		if authenticated {
			expiresAt, ok, err := authService.AccessTokenExpiry(r.Context())
			if err == nil && ok {
				resp.ExpiresAt = &expiresAt
			}
		}

		render.JSON(w, resp)
	})
}

func handleRefresh(authService authService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		access, err := authService.Refresh(r.Context())
		switch {
		case errors.Is(err, apperrors.ErrRefreshFailed):
			render.ServiceError(w, "Token refresh failed", http.StatusBadGateway)
		case err != nil:
			l.Error("Failed to refresh token", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		case access == "":
			render.JSONWithStatus(w, messageResponse{Message: "Refresh skipped"}, http.StatusAccepted)
		default:
			render.JSON(w, messageResponse{Message: "Token refreshed successfully"})
		}
	})
}

func handleLogout(authService authService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := authService.Logout(r.Context()); err != nil {
			l.Error("Failed to logout", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, messageResponse{Message: "Logged out successfully"})
	})
}
