package postgres

import (
	"time"
)

/*
 * 'LedgerEntry' is the receipt row written for every wallet movement.
 * AmountCents is negative for charges and positive for credits, so the
 * sum over a username reconstructs the balance.
 */
type LedgerEntry struct {
	ReceiptID   string    `gorm:"primaryKey;size:50;not null"`
	Username    string    `gorm:"size:50;not null;index:idx_ledger_entries_username"`
	AmountCents int64     `gorm:"not null"`
	Reason      string    `gorm:"size:100"`
	CreatedAt   time.Time `gorm:"default:CURRENT_TIMESTAMP"`

	User User `gorm:"foreignKey:Username;references:ProfileUsername"`
}
