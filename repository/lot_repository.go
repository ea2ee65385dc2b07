package repository

import (
	"context"
	"fmt"
	"time"

	"girinhas/database"
	"girinhas/domain/entities"

	"github.com/jackc/pgx/v5"
)

// LotRepository implements the LotRepository interface
type LotRepository struct {
	q queryable
}

// NewLotRepository creates a new lot repository
func NewLotRepository(db *database.DB) *LotRepository {
	return &LotRepository{q: db.Pool}
}

// newLotRepositoryWithTx creates a new lot repository with a transaction
func newLotRepositoryWithTx(tx queryable) *LotRepository {
	return &LotRepository{q: tx}
}

// Create inserts a new lot and fills in its generated fields
func (r *LotRepository) Create(ctx context.Context, lot *entities.Lot) error {
	query := `
		INSERT INTO lots (account_id, amount, remaining, source, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		lot.AccountID,
		lot.Amount,
		lot.Remaining,
		lot.Source,
		lot.ExpiresAt,
	).Scan(&lot.ID, &lot.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create lot for account %d: %w", lot.AccountID, err)
	}

	return nil
}

// GetSpendableByAccount returns the account's non-empty lots ordered
// earliest-expiring first, the order debits consume them in. Expired lots the
// sweeper has not reached yet are included: they still count toward the
// balance, so they must stay consumable or a settlement could fail to cover
// its hold.
func (r *LotRepository) GetSpendableByAccount(ctx context.Context, accountID int64) ([]*entities.Lot, error) {
	query := `
		SELECT id, account_id, amount, remaining, source, expires_at, created_at
		FROM lots
		WHERE account_id = $1 AND remaining > 0
		ORDER BY expires_at, id
	`

	rows, err := r.q.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get spendable lots for account %d: %w", accountID, err)
	}
	defer rows.Close()

	return scanLots(rows)
}

// SetRemaining records consumption or forfeiture of part of a lot
func (r *LotRepository) SetRemaining(ctx context.Context, lotID int64, remaining int64) error {
	query := `UPDATE lots SET remaining = $1 WHERE id = $2`

	result, err := r.q.Exec(ctx, query, remaining, lotID)
	if err != nil {
		return fmt.Errorf("failed to update lot %d: %w", lotID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("lot %d not found", lotID)
	}

	return nil
}

// GetExpiredByAccount returns the account's expired lots that still hold
// girinhas, earliest-expiring first
func (r *LotRepository) GetExpiredByAccount(ctx context.Context, accountID int64, now time.Time) ([]*entities.Lot, error) {
	query := `
		SELECT id, account_id, amount, remaining, source, expires_at, created_at
		FROM lots
		WHERE account_id = $1 AND remaining > 0 AND expires_at <= $2
		ORDER BY expires_at, id
	`

	rows, err := r.q.Query(ctx, query, accountID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get expired lots for account %d: %w", accountID, err)
	}
	defer rows.Close()

	return scanLots(rows)
}

// GetAccountIDsWithExpiredLots returns accounts the sweeper should visit
func (r *LotRepository) GetAccountIDsWithExpiredLots(ctx context.Context, now time.Time, limit int) ([]int64, error) {
	query := `
		SELECT DISTINCT account_id
		FROM lots
		WHERE remaining > 0 AND expires_at <= $1
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get accounts with expired lots: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan account id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate account ids: %w", err)
	}

	return ids, nil
}

// GetUpcomingExpirations returns the account's next forfeiture deadlines
func (r *LotRepository) GetUpcomingExpirations(ctx context.Context, accountID int64, limit int) ([]entities.LotExpiration, error) {
	query := `
		SELECT id, remaining, expires_at
		FROM lots
		WHERE account_id = $1 AND remaining > 0
		ORDER BY expires_at, id
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get upcoming expirations for account %d: %w", accountID, err)
	}
	defer rows.Close()

	var expirations []entities.LotExpiration
	for rows.Next() {
		var exp entities.LotExpiration
		if err := rows.Scan(&exp.LotID, &exp.Remaining, &exp.ExpiresAt); err != nil {
			return nil, fmt.Errorf("failed to scan lot expiration: %w", err)
		}
		expirations = append(expirations, exp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate lot expirations: %w", err)
	}

	return expirations, nil
}

func scanLots(rows pgx.Rows) ([]*entities.Lot, error) {
	var lots []*entities.Lot
	for rows.Next() {
		var lot entities.Lot
		err := rows.Scan(
			&lot.ID,
			&lot.AccountID,
			&lot.Amount,
			&lot.Remaining,
			&lot.Source,
			&lot.ExpiresAt,
			&lot.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lot: %w", err)
		}
		lots = append(lots, &lot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate lots: %w", err)
	}

	return lots, nil
}
