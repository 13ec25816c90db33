package models

// Named credential slot in the credential store
type Slot string

const (
	SlotAccessToken  Slot = "access_token"
	SlotRefreshToken Slot = "refresh_token"
	SlotWebhookID    Slot = "webhook_id"
)

// Token pair returned by code or refresh grants
// It is never stored as a unit: each value goes to its own slot
type TokenPair struct {
	Access  string
	Refresh string
}
