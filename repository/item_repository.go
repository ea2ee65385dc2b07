package repository

import (
	"context"
	"fmt"

	"girinhas/database"
	"girinhas/domain/entities"

	"github.com/jackc/pgx/v5"
)

// ItemRepository implements the ItemRepository interface
type ItemRepository struct {
	q queryable
}

// NewItemRepository creates a new item repository
func NewItemRepository(db *database.DB) *ItemRepository {
	return &ItemRepository{q: db.Pool}
}

// newItemRepositoryWithTx creates a new item repository with a transaction
func newItemRepositoryWithTx(tx queryable) *ItemRepository {
	return &ItemRepository{q: tx}
}

// Create publishes a new item and fills in its generated fields
func (r *ItemRepository) Create(ctx context.Context, item *entities.Item) error {
	query := `
		INSERT INTO items (owner_account_id, title, price, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		item.OwnerAccountID,
		item.Title,
		item.Price,
		item.Status,
	).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create item for account %d: %w", item.OwnerAccountID, err)
	}

	return nil
}

// GetByID retrieves an item by its id
func (r *ItemRepository) GetByID(ctx context.Context, id int64) (*entities.Item, error) {
	query := itemSelect + ` WHERE id = $1`
	return r.scanItem(r.q.QueryRow(ctx, query, id), id)
}

// GetByIDForUpdate retrieves an item with its row locked for the rest of the
// transaction. The item lock is the serialization point for every claim,
// cancel, confirm and expiry touching the item, and is always taken before
// any account lock.
func (r *ItemRepository) GetByIDForUpdate(ctx context.Context, id int64) (*entities.Item, error) {
	query := itemSelect + ` WHERE id = $1 FOR UPDATE`
	return r.scanItem(r.q.QueryRow(ctx, query, id), id)
}

// UpdateStatus transitions an item's availability state
func (r *ItemRepository) UpdateStatus(ctx context.Context, id int64, status entities.ItemStatus) error {
	query := `
		UPDATE items
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.q.Exec(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update item %d status: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("item %d not found", id)
	}

	return nil
}

const itemSelect = `
	SELECT id, owner_account_id, title, price, status, created_at, updated_at
	FROM items`

func (r *ItemRepository) scanItem(row pgx.Row, id int64) (*entities.Item, error) {
	var item entities.Item
	err := row.Scan(
		&item.ID,
		&item.OwnerAccountID,
		&item.Title,
		&item.Price,
		&item.Status,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item %d: %w", id, err)
	}

	return &item, nil
}
