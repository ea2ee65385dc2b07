package repository

import (
	"context"
	"fmt"
	"time"

	"girinhas/database"
	"girinhas/domain/entities"

	"github.com/jackc/pgx/v5"
)

// HoldRepository implements the HoldRepository interface
type HoldRepository struct {
	q queryable
}

// NewHoldRepository creates a new hold repository
func NewHoldRepository(db *database.DB) *HoldRepository {
	return &HoldRepository{q: db.Pool}
}

// newHoldRepositoryWithTx creates a new hold repository with a transaction
func newHoldRepositoryWithTx(tx queryable) *HoldRepository {
	return &HoldRepository{q: tx}
}

// Create inserts a new hold and fills in its generated fields
func (r *HoldRepository) Create(ctx context.Context, hold *entities.Hold) error {
	query := `
		INSERT INTO holds (account_id, amount, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query, hold.AccountID, hold.Amount, hold.Status).
		Scan(&hold.ID, &hold.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create hold for account %d: %w", hold.AccountID, err)
	}

	return nil
}

// GetByID retrieves a hold by its id
func (r *HoldRepository) GetByID(ctx context.Context, id int64) (*entities.Hold, error) {
	query := `
		SELECT id, account_id, amount, status, created_at, resolved_at
		FROM holds
		WHERE id = $1
	`

	var hold entities.Hold
	err := r.q.QueryRow(ctx, query, id).Scan(
		&hold.ID,
		&hold.AccountID,
		&hold.Amount,
		&hold.Status,
		&hold.CreatedAt,
		&hold.ResolvedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get hold %d: %w", id, err)
	}

	return &hold, nil
}

// Resolve moves an active hold to a terminal status. Only active holds can
// be resolved, so racing settles and releases cannot both succeed.
func (r *HoldRepository) Resolve(ctx context.Context, id int64, status entities.HoldStatus, resolvedAt time.Time) error {
	query := `
		UPDATE holds
		SET status = $1, resolved_at = $2
		WHERE id = $3 AND status = 'active'
	`

	result, err := r.q.Exec(ctx, query, status, resolvedAt, id)
	if err != nil {
		return fmt.Errorf("failed to resolve hold %d: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("hold %d is not active", id)
	}

	return nil
}

// ActiveTotalByAccount returns the total amount earmarked by active holds
func (r *HoldRepository) ActiveTotalByAccount(ctx context.Context, accountID int64) (int64, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM holds
		WHERE account_id = $1 AND status = 'active'
	`

	var total int64
	if err := r.q.QueryRow(ctx, query, accountID).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to get active hold total for account %d: %w", accountID, err)
	}

	return total, nil
}
