package repository

import (
	"context"
	"fmt"

	"girinhas/database"
	"girinhas/domain/entities"

	"github.com/jackc/pgx/v5"
)

// QueueRepository implements the QueueRepository interface. All mutating
// methods are called under the item's row lock, which serializes position
// assignment and renumbering per item.
type QueueRepository struct {
	q queryable
}

// NewQueueRepository creates a new queue repository
func NewQueueRepository(db *database.DB) *QueueRepository {
	return &QueueRepository{q: db.Pool}
}

// newQueueRepositoryWithTx creates a new queue repository with a transaction
func newQueueRepositoryWithTx(tx queryable) *QueueRepository {
	return &QueueRepository{q: tx}
}

// Join appends the account to the item's queue at the tail position
func (r *QueueRepository) Join(ctx context.Context, itemID, accountID int64) (*entities.QueueEntry, error) {
	query := `
		INSERT INTO queue_entries (item_id, account_id, position)
		VALUES ($1, $2, (SELECT COALESCE(MAX(position), 0) + 1 FROM queue_entries WHERE item_id = $1))
		RETURNING id, position, joined_at
	`

	entry := &entities.QueueEntry{ItemID: itemID, AccountID: accountID}
	err := r.q.QueryRow(ctx, query, itemID, accountID).
		Scan(&entry.ID, &entry.Position, &entry.JoinedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to join queue for item %d: %w", itemID, err)
	}

	return entry, nil
}

// Leave removes the account's entry and closes the gap behind it. Returns
// false when the account was not queued.
func (r *QueueRepository) Leave(ctx context.Context, itemID, accountID int64) (bool, error) {
	deleteQuery := `
		DELETE FROM queue_entries
		WHERE item_id = $1 AND account_id = $2
		RETURNING position
	`

	var position int
	err := r.q.QueryRow(ctx, deleteQuery, itemID, accountID).Scan(&position)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to leave queue for item %d: %w", itemID, err)
	}

	if err := r.renumberAfter(ctx, itemID, position); err != nil {
		return false, err
	}
	return true, nil
}

// PositionOf returns the account's place in line, 0 when not queued
func (r *QueueRepository) PositionOf(ctx context.Context, itemID, accountID int64) (int, error) {
	query := `SELECT position FROM queue_entries WHERE item_id = $1 AND account_id = $2`

	var position int
	err := r.q.QueryRow(ctx, query, itemID, accountID).Scan(&position)
	if err == pgx.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get queue position for item %d: %w", itemID, err)
	}

	return position, nil
}

// PeekHead returns the entry next in line without removing it
func (r *QueueRepository) PeekHead(ctx context.Context, itemID int64) (*entities.QueueEntry, error) {
	query := `
		SELECT id, item_id, account_id, position, joined_at
		FROM queue_entries
		WHERE item_id = $1
		ORDER BY position
		LIMIT 1
	`
	return r.scanEntry(r.q.QueryRow(ctx, query, itemID), itemID)
}

// PopHead removes and returns the head of the queue, shifting everyone else
// up one place. Returns nil when the queue is empty.
func (r *QueueRepository) PopHead(ctx context.Context, itemID int64) (*entities.QueueEntry, error) {
	query := `
		DELETE FROM queue_entries
		WHERE id = (
			SELECT id FROM queue_entries
			WHERE item_id = $1
			ORDER BY position
			LIMIT 1
		)
		RETURNING id, item_id, account_id, position, joined_at
	`

	entry, err := r.scanEntry(r.q.QueryRow(ctx, query, itemID), itemID)
	if err != nil || entry == nil {
		return entry, err
	}

	if err := r.renumberAfter(ctx, itemID, entry.Position); err != nil {
		return nil, err
	}
	return entry, nil
}

// CountByItem returns the queue length for an item
func (r *QueueRepository) CountByItem(ctx context.Context, itemID int64) (int, error) {
	query := `SELECT COUNT(*) FROM queue_entries WHERE item_id = $1`

	var count int
	if err := r.q.QueryRow(ctx, query, itemID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count queue for item %d: %w", itemID, err)
	}

	return count, nil
}

// renumberAfter shifts every entry behind the vacated position up one place,
// keeping positions contiguous from 1
func (r *QueueRepository) renumberAfter(ctx context.Context, itemID int64, vacated int) error {
	query := `
		UPDATE queue_entries
		SET position = position - 1
		WHERE item_id = $1 AND position > $2
	`

	if _, err := r.q.Exec(ctx, query, itemID, vacated); err != nil {
		return fmt.Errorf("failed to renumber queue for item %d: %w", itemID, err)
	}
	return nil
}

func (r *QueueRepository) scanEntry(row pgx.Row, itemID int64) (*entities.QueueEntry, error) {
	var entry entities.QueueEntry
	err := row.Scan(
		&entry.ID,
		&entry.ItemID,
		&entry.AccountID,
		&entry.Position,
		&entry.JoinedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get queue entry for item %d: %w", itemID, err)
	}

	return &entry, nil
}
