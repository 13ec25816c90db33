package mondo

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nkiryanov/mondoauth/internal/models"
)

// API reports money in minor units (pennies)
func minorUnits(amount int64) decimal.Decimal {
	return decimal.New(amount, -2)
}

func (c *Client) Balance(ctx context.Context, accountID string) (models.Balance, error) {
	var resp struct {
		Balance    int64  `json:"balance"`
		Currency   string `json:"currency" validate:"required"`
		SpendToday int64  `json:"spend_today"`
	}

	query := url.Values{"account_id": {accountID}}
	if err := c.do(ctx, http.MethodGet, "/balance", query, nil, &resp); err != nil {
		return models.Balance{}, err
	}

	return models.Balance{
		AccountID:  accountID,
		Currency:   resp.Currency,
		Balance:    minorUnits(resp.Balance),
		SpendToday: minorUnits(resp.SpendToday),
	}, nil
}

func (c *Client) Transactions(ctx context.Context, accountID string) ([]models.Transaction, error) {
	var resp struct {
		Transactions []struct {
			ID          string    `json:"id" validate:"required"`
			Created     time.Time `json:"created"`
			Description string    `json:"description"`
			Category    string    `json:"category"`
			Currency    string    `json:"currency"`
			Amount      int64     `json:"amount"`
		} `json:"transactions" validate:"dive"`
	}

	query := url.Values{"account_id": {accountID}}
	if err := c.do(ctx, http.MethodGet, "/transactions", query, nil, &resp); err != nil {
		return nil, err
	}

	transactions := make([]models.Transaction, 0, len(resp.Transactions))
	for _, t := range resp.Transactions {
		transactions = append(transactions, models.Transaction{
			ID:          t.ID,
			AccountID:   accountID,
			Created:     t.Created,
			Description: t.Description,
			Category:    t.Category,
			Currency:    t.Currency,
			Amount:      minorUnits(t.Amount),
		})
	}
	return transactions, nil
}
