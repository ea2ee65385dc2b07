package entities

import (
	"fmt"
	"time"
)

// Account represents a marketplace participant with a girinhas balance.
// Balance and SpendableBalance are derived from the lot and hold tables.
type Account struct {
	ID               int64     `db:"id"`
	Username         string    `db:"username"`
	Active           bool      `db:"active"`
	Balance          int64     `db:"-"` // sum of lot remainders
	SpendableBalance int64     `db:"-"` // balance minus active holds
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

// CanAfford checks if the account has sufficient spendable balance for an amount
func (a *Account) CanAfford(amount int64) bool {
	return a.SpendableBalance >= amount
}

// HeldAmount returns the amount currently earmarked by active holds
func (a *Account) HeldAmount() int64 {
	return a.Balance - a.SpendableBalance
}

// ValidateAmount checks that an amount is positive and affordable
func (a *Account) ValidateAmount(amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("amount must be positive, got %d", amount)
	}
	if !a.CanAfford(amount) {
		return ErrInsufficientFunds(a.SpendableBalance, amount)
	}
	return nil
}
