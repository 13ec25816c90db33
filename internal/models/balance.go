package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Balance struct {
	AccountID  string
	Currency   string
	Balance    decimal.Decimal
	SpendToday decimal.Decimal
}

type Transaction struct {
	ID          string
	AccountID   string
	Created     time.Time
	Description string
	Category    string
	Currency    string
	Amount      decimal.Decimal
}
