package entities

import "time"

// LotExpiration describes an upcoming forfeiture deadline within a wallet
type LotExpiration struct {
	LotID     int64     `db:"id"`
	Remaining int64     `db:"remaining"`
	ExpiresAt time.Time `db:"expires_at"`
}

// WalletSummary is the caller-facing view of an account's ledger state
type WalletSummary struct {
	AccountID           int64
	Balance             int64
	SpendableBalance    int64
	HeldAmount          int64
	UpcomingExpirations []LotExpiration
}
