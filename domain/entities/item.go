package entities

import "time"

// ItemStatus represents an item's availability state
type ItemStatus string

const (
	ItemStatusAvailable ItemStatus = "available"
	ItemStatusReserved  ItemStatus = "reserved"
	ItemStatusSold      ItemStatus = "sold"
)

// Item is a physical good listed for a fixed girinhas price. Sold is terminal;
// re-listing a returned item creates a new Item.
type Item struct {
	ID             int64      `db:"id"`
	OwnerAccountID int64      `db:"owner_account_id"`
	Title          string     `db:"title"`
	Price          int64      `db:"price"`
	Status         ItemStatus `db:"status"`
	CreatedAt      time.Time  `db:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"`
}

// IsAvailable checks whether the item can be reserved directly
func (i *Item) IsAvailable() bool {
	return i.Status == ItemStatusAvailable
}

// IsReserved checks whether the item currently has an active reservation
func (i *Item) IsReserved() bool {
	return i.Status == ItemStatusReserved
}

// IsSold checks whether the item has reached its terminal state
func (i *Item) IsSold() bool {
	return i.Status == ItemStatusSold
}

// IsOwnedBy checks whether the given account published this item
func (i *Item) IsOwnedBy(accountID int64) bool {
	return i.OwnerAccountID == accountID
}
