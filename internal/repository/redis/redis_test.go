package redis

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/mondoauth/internal/apperrors"
	"github.com/nkiryanov/mondoauth/internal/models"
	"github.com/nkiryanov/mondoauth/internal/testutil"
)

func TestStore(t *testing.T) {
	t.Parallel()

	rc := testutil.StartRedisContainer(t)
	t.Cleanup(rc.Terminate)

	client, err := Connect(t.Context(), rc.URL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	t.Run("default prefix", func(t *testing.T) {
		s := New(client, "")
		require.Equal(t, DefaultPrefix+"access_token", s.key(models.SlotAccessToken))
	})

	t.Run("absent slot", func(t *testing.T) {
		s := New(client, "absent:")

		_, err := s.Get(t.Context(), models.SlotAccessToken)
		require.ErrorIs(t, err, apperrors.ErrCredentialNotSet)

		ok, err := s.IsSet(t.Context(), models.SlotAccessToken)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("set get delete", func(t *testing.T) {
		s := New(client, "roundtrip:")

		require.NoError(t, s.Set(t.Context(), models.SlotWebhookID, "old_hook"))
		require.NoError(t, s.Set(t.Context(), models.SlotWebhookID, "new_hook"))

		value, err := s.Get(t.Context(), models.SlotWebhookID)
		require.NoError(t, err)
		require.Equal(t, "new_hook", value)

		require.NoError(t, s.Delete(t.Context(), models.SlotWebhookID))
		require.NoError(t, s.Delete(t.Context(), models.SlotWebhookID), "deleting absent key must be noop")

		ok, err := s.IsSet(t.Context(), models.SlotWebhookID)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("bad url", func(t *testing.T) {
		_, err := Connect(t.Context(), "not-a-url")
		require.Error(t, err)
	})
}
