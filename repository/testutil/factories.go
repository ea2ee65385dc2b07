package testutil

import (
	"time"

	"girinhas/domain/entities"
)

// CreateTestLot creates a lot crediting an account, expiring far in the future
func CreateTestLot(accountID, amount int64) *entities.Lot {
	return &entities.Lot{
		AccountID: accountID,
		Amount:    amount,
		Remaining: amount,
		Source:    entities.TransactionKindAdminCredit,
		ExpiresAt: time.Now().Add(90 * 24 * time.Hour),
	}
}

// CreateTestLotExpiringAt creates a lot with a specific expiration time
func CreateTestLotExpiringAt(accountID, amount int64, expiresAt time.Time) *entities.Lot {
	lot := CreateTestLot(accountID, amount)
	lot.ExpiresAt = expiresAt
	return lot
}

// CreateTestItem creates an available item for sale
func CreateTestItem(ownerAccountID, price int64, title string) *entities.Item {
	return &entities.Item{
		OwnerAccountID: ownerAccountID,
		Title:          title,
		Price:          price,
		Status:         entities.ItemStatusAvailable,
	}
}

// CreateTestHold creates an active hold on an account's funds
func CreateTestHold(accountID, amount int64) *entities.Hold {
	return &entities.Hold{
		AccountID: accountID,
		Amount:    amount,
		Status:    entities.HoldStatusActive,
	}
}

// CreateTestReservation creates a pending reservation linking the given rows
func CreateTestReservation(itemID, claimantID, ownerID, amount, holdID int64) *entities.Reservation {
	return &entities.Reservation{
		ItemID:            itemID,
		ClaimantAccountID: claimantID,
		OwnerAccountID:    ownerID,
		AmountHeld:        amount,
		HoldID:            holdID,
		Status:            entities.ReservationStatusPending,
		ConfirmationCode:  "TESTCODE",
		ExpiresAt:         time.Now().Add(48 * time.Hour),
	}
}
