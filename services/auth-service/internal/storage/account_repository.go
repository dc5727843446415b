package storage

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/slotwise/slotwise/libs/db"
)

// Account is a master's login identity. MasterID is the identifier the other
// services key everything on; the account row owns the credentials for it.
type Account struct {
	ID           string
	MasterID     string
	Email        string
	PasswordHash string
	Slug         string
	Name         string
	Timezone     string
}

type AccountRepository struct {
	pool *db.Pool
}

func NewAccountRepository(pool *db.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

func (r *AccountRepository) CreateTx(ctx context.Context, tx pgx.Tx, a Account) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO master_accounts (id, master_id, email, password_hash, slug, name, timezone)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, a.ID, a.MasterID, a.Email, a.PasswordHash, a.Slug, a.Name, a.Timezone)
	return err
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (Account, error) {
	var a Account
	err := r.pool.QueryRow(ctx, `
		SELECT id, master_id, email, password_hash, slug, name, timezone
		FROM master_accounts
		WHERE email = $1
	`, email).Scan(&a.ID, &a.MasterID, &a.Email, &a.PasswordHash, &a.Slug, &a.Name, &a.Timezone)
	if err != nil {
		return Account{}, err
	}
	return a, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (Account, error) {
	var a Account
	err := r.pool.QueryRow(ctx, `
		SELECT id, master_id, email, password_hash, slug, name, timezone
		FROM master_accounts
		WHERE id = $1
	`, id).Scan(&a.ID, &a.MasterID, &a.Email, &a.PasswordHash, &a.Slug, &a.Name, &a.Timezone)
	if err != nil {
		return Account{}, err
	}
	return a, nil
}

func IsNotFound(err error) bool {
	return err == pgx.ErrNoRows
}
