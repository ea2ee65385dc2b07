package entities

import "time"

// HoldStatus represents the lifecycle state of a hold
type HoldStatus string

const (
	HoldStatusActive   HoldStatus = "active"
	HoldStatusSettled  HoldStatus = "settled"
	HoldStatusReleased HoldStatus = "released"
)

// Hold is a temporary earmark of funds pending settlement or release. An
// active hold reduces the account's spendable balance without moving money;
// no transaction row exists until the hold settles.
type Hold struct {
	ID         int64      `db:"id"`
	AccountID  int64      `db:"account_id"`
	Amount     int64      `db:"amount"`
	Status     HoldStatus `db:"status"`
	CreatedAt  time.Time  `db:"created_at"`
	ResolvedAt *time.Time `db:"resolved_at"`
}

// IsActive checks whether the hold still earmarks funds
func (h *Hold) IsActive() bool {
	return h.Status == HoldStatusActive
}
