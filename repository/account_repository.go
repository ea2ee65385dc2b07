package repository

import (
	"context"
	"fmt"

	"girinhas/database"
	"girinhas/domain/entities"

	"github.com/jackc/pgx/v5"
)

// AccountRepository implements the AccountRepository interface
type AccountRepository struct {
	q queryable
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{q: db.Pool}
}

// newAccountRepositoryWithTx creates a new account repository with a transaction
func newAccountRepositoryWithTx(tx queryable) *AccountRepository {
	return &AccountRepository{q: tx}
}

// Balance and spendable balance are derived on read: balance is the sum of
// lot remainders, spendable is balance minus active holds. No stored balance
// column exists to drift.
const accountSelectColumns = `
	a.id,
	a.username,
	a.active,
	a.created_at,
	a.updated_at,
	COALESCE(
		(SELECT SUM(l.remaining) FROM lots l WHERE l.account_id = a.id),
		0
	) AS balance,
	COALESCE(
		(SELECT SUM(h.amount) FROM holds h
		 WHERE h.account_id = a.id AND h.status = 'active'),
		0
	) AS held
`

// Create creates a new account
func (r *AccountRepository) Create(ctx context.Context, username string) (*entities.Account, error) {
	query := `
		INSERT INTO accounts (username)
		VALUES ($1)
		RETURNING id, username, active, created_at, updated_at
	`

	var account entities.Account
	err := r.q.QueryRow(ctx, query, username).Scan(
		&account.ID,
		&account.Username,
		&account.Active,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create account %q: %w", username, err)
	}

	// A new account has no lots and no holds yet
	account.Balance = 0
	account.SpendableBalance = 0

	return &account, nil
}

// GetByID retrieves an account with its derived balances
func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*entities.Account, error) {
	query := `SELECT ` + accountSelectColumns + ` FROM accounts a WHERE a.id = $1`
	return r.scanAccount(r.q.QueryRow(ctx, query, id), id)
}

// GetByIDForUpdate retrieves an account with its row locked for the rest of
// the transaction. Locking the account row serializes every balance-affecting
// operation for that account. The balance sums are read in a second statement
// after the lock is granted: under read committed they would otherwise be
// evaluated against a snapshot taken before a competing transaction committed
// its hold, and two racing holds could both pass the spendable check.
func (r *AccountRepository) GetByIDForUpdate(ctx context.Context, id int64) (*entities.Account, error) {
	lockQuery := `
		SELECT id, username, active, created_at, updated_at
		FROM accounts
		WHERE id = $1
		FOR UPDATE
	`

	var account entities.Account
	err := r.q.QueryRow(ctx, lockQuery, id).Scan(
		&account.ID,
		&account.Username,
		&account.Active,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock account %d: %w", id, err)
	}

	sumQuery := `
		SELECT
			COALESCE((SELECT SUM(l.remaining) FROM lots l WHERE l.account_id = $1), 0),
			COALESCE(
				(SELECT SUM(h.amount) FROM holds h
				 WHERE h.account_id = $1 AND h.status = 'active'),
				0
			)
	`

	var held int64
	if err := r.q.QueryRow(ctx, sumQuery, id).Scan(&account.Balance, &held); err != nil {
		return nil, fmt.Errorf("failed to read balances for account %d: %w", id, err)
	}

	account.SpendableBalance = account.Balance - held
	return &account, nil
}

// Deactivate marks an account inactive, blocking new holds and transfers
func (r *AccountRepository) Deactivate(ctx context.Context, id int64) error {
	query := `
		UPDATE accounts
		SET active = FALSE, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.q.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate account %d: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("account %d not found", id)
	}

	return nil
}

func (r *AccountRepository) scanAccount(row pgx.Row, id int64) (*entities.Account, error) {
	var account entities.Account
	var held int64
	err := row.Scan(
		&account.ID,
		&account.Username,
		&account.Active,
		&account.CreatedAt,
		&account.UpdatedAt,
		&account.Balance,
		&held,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account %d: %w", id, err)
	}

	account.SpendableBalance = account.Balance - held
	return &account, nil
}
