package models

import (
	"time"
)

type Account struct {
	ID          string
	Description string
	Created     time.Time
}

// Device token bound to an account, uploaded to the push registration service
type RegistrationToken struct {
	AccountID   string
	DeviceToken string
}

type Webhook struct {
	ID        string
	AccountID string
	URL       string
}
