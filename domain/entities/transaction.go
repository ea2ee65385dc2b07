package entities

import (
	"time"

	"github.com/google/uuid"
)

// TransactionKind represents the type of ledger movement
type TransactionKind string

// All transaction kinds recorded by the ledger
const (
	// Credit kinds
	TransactionKindSignupBonus  TransactionKind = "signup_bonus"
	TransactionKindAdminCredit  TransactionKind = "admin_credit"
	TransactionKindSaleProceeds TransactionKind = "sale_proceeds"
	TransactionKindTransferIn   TransactionKind = "transfer_in"

	// Debit kinds
	TransactionKindPurchase    TransactionKind = "purchase"
	TransactionKindTransferOut TransactionKind = "transfer_out"
	TransactionKindForfeiture  TransactionKind = "forfeiture"
)

// IsCredit returns true if the kind increases the account balance
func (k TransactionKind) IsCredit() bool {
	switch k {
	case TransactionKindSignupBonus, TransactionKindAdminCredit,
		TransactionKindSaleProceeds, TransactionKindTransferIn:
		return true
	}
	return false
}

// IsDebit returns true if the kind decreases the account balance
func (k TransactionKind) IsDebit() bool {
	return !k.IsCredit()
}

// Transaction is an immutable ledger log entry. Rows are append-only and are
// never mutated or deleted. The two rows of a settlement or transfer share a
// TransferID for joint auditability.
type Transaction struct {
	ID                    int64           `db:"id"`
	TransferID            *uuid.UUID      `db:"transfer_id"`
	AccountID             int64           `db:"account_id"`
	CounterpartyAccountID *int64          `db:"counterparty_account_id"`
	ItemID                *int64          `db:"item_id"`
	Kind                  TransactionKind `db:"kind"`
	Amount                int64           `db:"amount"`
	BalanceAfter          int64           `db:"balance_after"`
	CreatedAt             time.Time       `db:"created_at"`
}

// SignedAmount returns the amount with the sign implied by the kind
func (t *Transaction) SignedAmount() int64 {
	if t.Kind.IsDebit() {
		return -t.Amount
	}
	return t.Amount
}

// TransferReceipt pairs the debit and credit rows produced by a settlement
// or peer transfer.
type TransferReceipt struct {
	TransferID uuid.UUID
	Debit      *Transaction
	Credit     *Transaction
}
