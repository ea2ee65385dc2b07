package entities

import "time"

// Lot is a discrete, separately-expiring quantity of girinhas within an
// account's balance. Lots are consumed earliest-expiring first on debit so
// that funds closest to forfeiture are spent before newer ones.
type Lot struct {
	ID        int64           `db:"id"`
	AccountID int64           `db:"account_id"`
	Amount    int64           `db:"amount"`
	Remaining int64           `db:"remaining"`
	Source    TransactionKind `db:"source"`
	ExpiresAt time.Time       `db:"expires_at"`
	CreatedAt time.Time       `db:"created_at"`
}

// IsExpired checks whether the lot has passed its expiration time
func (l *Lot) IsExpired(now time.Time) bool {
	return !l.ExpiresAt.After(now)
}
