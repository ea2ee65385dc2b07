package entities

import (
	"crypto/subtle"
	"time"
)

// ReservationStatus represents the state of a reservation
type ReservationStatus string

const (
	ReservationStatusPending   ReservationStatus = "pending"
	ReservationStatusConfirmed ReservationStatus = "confirmed"
	ReservationStatusCancelled ReservationStatus = "cancelled"
	ReservationStatusExpired   ReservationStatus = "expired"
)

// Reservation is an active claim on an item. At most one pending reservation
// exists per item; resolved reservations are retained as history.
type Reservation struct {
	ID                int64             `db:"id"`
	ItemID            int64             `db:"item_id"`
	ClaimantAccountID int64             `db:"claimant_account_id"`
	OwnerAccountID    int64             `db:"owner_account_id"`
	AmountHeld        int64             `db:"amount_held"`
	HoldID            int64             `db:"hold_id"`
	Status            ReservationStatus `db:"status"`
	ConfirmationCode  string            `db:"confirmation_code"`
	CreatedAt         time.Time         `db:"created_at"`
	ExpiresAt         time.Time         `db:"expires_at"`
	ResolvedAt        *time.Time        `db:"resolved_at"`
}

// IsPending checks whether the reservation is still awaiting resolution
func (r *Reservation) IsPending() bool {
	return r.Status == ReservationStatusPending
}

// IsPastExpiry checks whether the reservation's TTL has elapsed
func (r *Reservation) IsPastExpiry(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}

// IsParticipant checks if an account is the claimant or the item owner
func (r *Reservation) IsParticipant(accountID int64) bool {
	return r.ClaimantAccountID == accountID || r.OwnerAccountID == accountID
}

// CodeMatches compares a supplied confirmation code in constant time
func (r *Reservation) CodeMatches(supplied string) bool {
	return subtle.ConstantTimeCompare([]byte(r.ConfirmationCode), []byte(supplied)) == 1
}
