package entities

import "time"

// QueueEntry is a pending claim on a contested item. Entries are strictly
// FIFO by join time (ties broken by id) and positions stay contiguous from 1.
// No funds are held while queued; a hold is only placed at promotion time.
type QueueEntry struct {
	ID        int64     `db:"id"`
	ItemID    int64     `db:"item_id"`
	AccountID int64     `db:"account_id"`
	Position  int       `db:"position"`
	JoinedAt  time.Time `db:"joined_at"`
}

// IsHead checks whether the entry is next in line for promotion
func (e *QueueEntry) IsHead() bool {
	return e.Position == 1
}
