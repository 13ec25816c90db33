package postgres

import (
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/mondoauth/internal/apperrors"
	"github.com/nkiryanov/mondoauth/internal/models"
	"github.com/nkiryanov/mondoauth/internal/testutil"
)

func Test_CredentialRepo(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	t.Run("default namespace", func(t *testing.T) {
		repo := NewCredentialRepo(pg.Pool, "")
		require.Equal(t, DefaultNamespace, repo.Namespace)
	})

	t.Run("get absent slot", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := NewCredentialRepo(tx, "test")

			_, err := repo.Get(t.Context(), models.SlotAccessToken)

			require.ErrorIs(t, err, apperrors.ErrCredentialNotSet)
		})
	})

	t.Run("set overwrites value", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := NewCredentialRepo(tx, "test")

			require.NoError(t, repo.Set(t.Context(), models.SlotWebhookID, "old_hook"))
			require.NoError(t, repo.Set(t.Context(), models.SlotWebhookID, "new_hook"))

			value, err := repo.Get(t.Context(), models.SlotWebhookID)
			require.NoError(t, err)
			require.Equal(t, "new_hook", value, "set must replace, not merge")
		})
	})

	t.Run("delete and is set", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := NewCredentialRepo(tx, "test")
			require.NoError(t, repo.Set(t.Context(), models.SlotAccessToken, "access"))

			ok, err := repo.IsSet(t.Context(), models.SlotAccessToken)
			require.NoError(t, err)
			require.True(t, ok)

			require.NoError(t, repo.Delete(t.Context(), models.SlotAccessToken))
			require.NoError(t, repo.Delete(t.Context(), models.SlotAccessToken), "second delete must be noop")

			ok, err = repo.IsSet(t.Context(), models.SlotAccessToken)
			require.NoError(t, err)
			require.False(t, ok)
		})
	})

	t.Run("namespaces are isolated", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			first := NewCredentialRepo(tx, "first")
			second := NewCredentialRepo(tx, "second")

			require.NoError(t, first.Set(t.Context(), models.SlotRefreshToken, "refresh"))

			ok, err := second.IsSet(t.Context(), models.SlotRefreshToken)
			require.NoError(t, err)
			require.False(t, ok)
		})
	})

	t.Run("missing table", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			_, err := tx.Exec(t.Context(), "DROP TABLE credentials")
			require.NoError(t, err)

			repo := NewCredentialRepo(tx, "test")
			_, err = repo.IsSet(t.Context(), models.SlotAccessToken)

			require.ErrorIs(t, err, apperrors.ErrStoreNotMigrated)
		})
	})
}
