package repository

import (
	"context"

	"github.com/nkiryanov/mondoauth/internal/models"
)

// Credential store keeps access token, refresh token and webhook id in named slots
// Every slot is independent: writing one never touches another
// Implementations must make each single-slot operation atomic
type CredentialStore interface {
	// Return the slot value
	// If the slot is absent must return apperrors.ErrCredentialNotSet
	Get(ctx context.Context, slot models.Slot) (string, error)

	// Set the slot value, replacing the previous one
	Set(ctx context.Context, slot models.Slot, value string) error

	// Delete the slot
	// Deleting an absent slot is not an error
	Delete(ctx context.Context, slot models.Slot) error

	// Report whether the slot holds a value
	IsSet(ctx context.Context, slot models.Slot) (bool, error)
}
