package handlers

import (
	"errors"
	"net/http"

	"github.com/nkiryanov/mondoauth/internal/apperrors"
	"github.com/nkiryanov/mondoauth/internal/handlers/render"
	"github.com/nkiryanov/mondoauth/internal/logger"
)

func handleRegisterWebhook(webhookService webhookService, l logger.Logger) http.Handler {
	type response struct {
		ID        string `json:"id"`
		AccountID string `json:"account_id"`
		URL       string `json:"url"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hook, err := webhookService.Register(r.Context())

		switch {
		case err == nil:
			render.JSON(w, response{ID: hook.ID, AccountID: hook.AccountID, URL: hook.URL})
		case errors.Is(err, apperrors.ErrNotAuthenticated):
			render.ServiceError(w, "Not authenticated", http.StatusUnauthorized)
		case errors.Is(err, apperrors.ErrNoAccounts):
			render.ServiceError(w, "No accounts available", http.StatusUnprocessableEntity)
		case errors.Is(err, apperrors.ErrDeviceToken):
			l.Warn("Device token unavailable", "error", err)
			render.ServiceError(w, "Device token unavailable", http.StatusBadGateway)
		default:
			l.Error("Failed to register webhook", "error", err)
			render.ServiceError(w, "Webhook registration failed", http.StatusBadGateway)
		}
	})
}
