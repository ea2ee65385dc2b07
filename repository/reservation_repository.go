package repository

import (
	"context"
	"fmt"
	"time"

	"girinhas/database"
	"girinhas/domain/entities"

	"github.com/jackc/pgx/v5"
)

// ReservationRepository implements the ReservationRepository interface
type ReservationRepository struct {
	q queryable
}

// NewReservationRepository creates a new reservation repository
func NewReservationRepository(db *database.DB) *ReservationRepository {
	return &ReservationRepository{q: db.Pool}
}

// newReservationRepositoryWithTx creates a new reservation repository with a transaction
func newReservationRepositoryWithTx(tx queryable) *ReservationRepository {
	return &ReservationRepository{q: tx}
}

const reservationColumns = `
	id, item_id, claimant_account_id, owner_account_id, amount_held,
	hold_id, status, confirmation_code, created_at, expires_at, resolved_at`

// Create inserts a pending reservation. The partial unique index on
// (item_id) WHERE pending rejects a second live reservation for the item.
func (r *ReservationRepository) Create(ctx context.Context, reservation *entities.Reservation) error {
	query := `
		INSERT INTO reservations (item_id, claimant_account_id, owner_account_id, amount_held, hold_id, status, confirmation_code, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		reservation.ItemID,
		reservation.ClaimantAccountID,
		reservation.OwnerAccountID,
		reservation.AmountHeld,
		reservation.HoldID,
		reservation.Status,
		reservation.ConfirmationCode,
		reservation.ExpiresAt,
	).Scan(&reservation.ID, &reservation.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create reservation for item %d: %w", reservation.ItemID, err)
	}

	return nil
}

// GetByID retrieves a reservation by its id
func (r *ReservationRepository) GetByID(ctx context.Context, id int64) (*entities.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`
	return r.scanReservation(r.q.QueryRow(ctx, query, id), id)
}

// Update persists a reservation's resolution
func (r *ReservationRepository) Update(ctx context.Context, reservation *entities.Reservation) error {
	query := `
		UPDATE reservations
		SET status = $1, resolved_at = $2
		WHERE id = $3
	`

	result, err := r.q.Exec(ctx, query, reservation.Status, reservation.ResolvedAt, reservation.ID)
	if err != nil {
		return fmt.Errorf("failed to update reservation %d: %w", reservation.ID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("reservation %d not found", reservation.ID)
	}

	return nil
}

// GetPendingByItem returns the item's live reservation, nil when none exists
func (r *ReservationRepository) GetPendingByItem(ctx context.Context, itemID int64) (*entities.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE item_id = $1 AND status = 'pending'`
	return r.scanReservation(r.q.QueryRow(ctx, query, itemID), itemID)
}

// GetExpiredPendingIDs returns reservations past their deadline, oldest first
func (r *ReservationRepository) GetExpiredPendingIDs(ctx context.Context, now time.Time, limit int) ([]int64, error) {
	query := `
		SELECT id
		FROM reservations
		WHERE status = 'pending' AND expires_at <= $1
		ORDER BY expires_at
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get expired reservations: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan reservation id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reservation ids: %w", err)
	}

	return ids, nil
}

func (r *ReservationRepository) scanReservation(row pgx.Row, id int64) (*entities.Reservation, error) {
	var reservation entities.Reservation
	err := row.Scan(
		&reservation.ID,
		&reservation.ItemID,
		&reservation.ClaimantAccountID,
		&reservation.OwnerAccountID,
		&reservation.AmountHeld,
		&reservation.HoldID,
		&reservation.Status,
		&reservation.ConfirmationCode,
		&reservation.CreatedAt,
		&reservation.ExpiresAt,
		&reservation.ResolvedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation %d: %w", id, err)
	}

	return &reservation, nil
}
