package repository

import (
	"context"
	"fmt"

	"girinhas/database"
	"girinhas/domain/entities"
)

// TransactionRepository implements the TransactionRepository interface.
// Rows are append-only; there are no update or delete operations.
type TransactionRepository struct {
	q queryable
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *database.DB) *TransactionRepository {
	return &TransactionRepository{q: db.Pool}
}

// newTransactionRepositoryWithTx creates a new transaction repository with a transaction
func newTransactionRepositoryWithTx(tx queryable) *TransactionRepository {
	return &TransactionRepository{q: tx}
}

// Create appends a ledger entry and fills in its generated fields
func (r *TransactionRepository) Create(ctx context.Context, txn *entities.Transaction) error {
	query := `
		INSERT INTO transactions (transfer_id, account_id, counterparty_account_id, item_id, kind, amount, balance_after)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		txn.TransferID,
		txn.AccountID,
		txn.CounterpartyAccountID,
		txn.ItemID,
		txn.Kind,
		txn.Amount,
		txn.BalanceAfter,
	).Scan(&txn.ID, &txn.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create %s transaction for account %d: %w", txn.Kind, txn.AccountID, err)
	}

	return nil
}

// ListByAccount returns the account's ledger entries, newest first
func (r *TransactionRepository) ListByAccount(ctx context.Context, accountID int64, limit, offset int) ([]*entities.Transaction, error) {
	query := `
		SELECT id, transfer_id, account_id, counterparty_account_id, item_id, kind, amount, balance_after, created_at
		FROM transactions
		WHERE account_id = $1
		ORDER BY id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.q.Query(ctx, query, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions for account %d: %w", accountID, err)
	}
	defer rows.Close()

	var txns []*entities.Transaction
	for rows.Next() {
		var txn entities.Transaction
		err := rows.Scan(
			&txn.ID,
			&txn.TransferID,
			&txn.AccountID,
			&txn.CounterpartyAccountID,
			&txn.ItemID,
			&txn.Kind,
			&txn.Amount,
			&txn.BalanceAfter,
			&txn.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, &txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}

	return txns, nil
}
