package apperrors

import (
	"errors"
)

var (
	ErrCredentialNotSet = errors.New("credential not set")
	ErrStoreNotMigrated = errors.New("credential store schema is not migrated")

	ErrAuthExchange     = errors.New("auth code exchange failed")
	ErrMissingCode      = errors.New("redirect uri has no code parameter")
	ErrNotAuthenticated = errors.New("not authenticated")

	// Refresh call failed after the access token was already deleted.
	// Depending on the refresh failure policy the in-flight guard may stay set.
	ErrRefreshFailed = errors.New("token refresh failed")

	ErrDeviceToken = errors.New("device token retrieval failed")
	ErrNoAccounts  = errors.New("no accounts available")
)
