package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nkiryanov/mondoauth/internal/apperrors"
	"github.com/nkiryanov/mondoauth/internal/models"
)

const DefaultNamespace = "default"

// Satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Credential store backed by 'credentials' table
// Namespace lets several clients share one database
type CredentialRepo struct {
	DB        DBTX
	Namespace string
}

func NewCredentialRepo(db DBTX, namespace string) *CredentialRepo {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &CredentialRepo{DB: db, Namespace: namespace}
}

const getCredential = `-- name: GetCredential
SELECT value FROM credentials
WHERE namespace = $1 AND slot = $2
`

func (r *CredentialRepo) Get(ctx context.Context, slot models.Slot) (string, error) {
	rows, _ := r.DB.Query(ctx, getCredential, r.Namespace, string(slot))
	value, err := pgx.CollectOneRow(rows, pgx.RowTo[string])

	switch {
	case err == nil:
		return value, nil
	case errors.Is(err, pgx.ErrNoRows):
		return "", fmt.Errorf("slot %s: %w", slot, apperrors.ErrCredentialNotSet)
	default:
		return "", dbError(err)
	}
}

const setCredential = `-- name: SetCredential
INSERT INTO credentials (namespace, slot, value, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (namespace, slot) DO UPDATE
SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
`

func (r *CredentialRepo) Set(ctx context.Context, slot models.Slot, value string) error {
	_, err := r.DB.Exec(ctx, setCredential, r.Namespace, string(slot), value)
	if err != nil {
		return dbError(err)
	}
	return nil
}

const deleteCredential = `-- name: DeleteCredential
DELETE FROM credentials
WHERE namespace = $1 AND slot = $2
`

func (r *CredentialRepo) Delete(ctx context.Context, slot models.Slot) error {
	_, err := r.DB.Exec(ctx, deleteCredential, r.Namespace, string(slot))
	if err != nil {
		return dbError(err)
	}
	return nil
}

const credentialExists = `-- name: CredentialExists
SELECT EXISTS (
	SELECT 1 FROM credentials
	WHERE namespace = $1 AND slot = $2
)
`

func (r *CredentialRepo) IsSet(ctx context.Context, slot models.Slot) (bool, error) {
	var ok bool
	err := r.DB.QueryRow(ctx, credentialExists, r.Namespace, string(slot)).Scan(&ok)
	if err != nil {
		return false, dbError(err)
	}
	return ok, nil
}

func dbError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UndefinedTable {
		return fmt.Errorf("db error: %w", apperrors.ErrStoreNotMigrated)
	}
	return fmt.Errorf("db error: %w", err)
}
