package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/nkiryanov/mondoauth/internal/apperrors"
	"github.com/nkiryanov/mondoauth/internal/handlers/render"
	"github.com/nkiryanov/mondoauth/internal/logger"
)

func handleListAccounts(accountService accountService, l logger.Logger) http.Handler {
	type account struct {
		ID          string    `json:"id"`
		Description string    `json:"description"`
		Created     time.Time `json:"created"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accounts, err := accountService.Accounts(r.Context())
		if err != nil {
			remoteError(w, l, "Failed to list accounts", err)
			return
		}

		resp := make([]account, 0, len(accounts))
		for _, a := range accounts {
			resp = append(resp, account{ID: a.ID, Description: a.Description, Created: a.Created})
		}
		render.JSON(w, resp)
	})
}

func handleAccountBalance(accountService accountService, l logger.Logger) http.Handler {
	type response struct {
		AccountID  string  `json:"account_id"`
		Currency   string  `json:"currency"`
		Balance    float64 `json:"balance"`
		SpendToday float64 `json:"spend_today"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		balance, err := accountService.Balance(r.Context(), r.PathValue("id"))
		if err != nil {
			remoteError(w, l, "Failed to get balance", err)
			return
		}

		current, _ := balance.Balance.Float64()
		spendToday, _ := balance.SpendToday.Float64()
		render.JSON(w, response{
			AccountID:  balance.AccountID,
			Currency:   balance.Currency,
			Balance:    current,
			SpendToday: spendToday,
		})
	})
}

func handleListTransactions(accountService accountService, l logger.Logger) http.Handler {
	type transaction struct {
		ID          string    `json:"id"`
		Created     time.Time `json:"created"`
		Description string    `json:"description"`
		Category    string    `json:"category"`
		Currency    string    `json:"currency"`
		Amount      float64   `json:"amount"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		transactions, err := accountService.Transactions(r.Context(), r.PathValue("id"))
		if err != nil {
			remoteError(w, l, "Failed to list transactions", err)
			return
		}

		resp := make([]transaction, 0, len(transactions))
		for _, t := range transactions {
			amount, _ := t.Amount.Float64()
			resp = append(resp, transaction{
				ID:          t.ID,
				Created:     t.Created,
				Description: t.Description,
				Category:    t.Category,
				Currency:    t.Currency,
				Amount:      amount,
			})
		}
		render.JSON(w, resp)
	})
}

// Remote API rejected token or failed
func remoteError(w http.ResponseWriter, l logger.Logger, msg string, err error) {
	if errors.Is(err, apperrors.ErrNotAuthenticated) {
		render.ServiceError(w, "Not authenticated", http.StatusUnauthorized)
		return
	}

	l.Error(msg, "error", err)
	render.ServiceError(w, "Remote service failed", http.StatusBadGateway)
}
