package postgres

import (
	"time"
)

/*
 * 'User' contains the blueprint definition of a User account.
 * BalanceCents is the wallet balance; every mutation goes through
 * the ledger service and leaves a LedgerEntry row.
 */
type User struct {
	Email           string    `gorm:"primaryKey;size:100;not null"`
	ProfileUsername string    `gorm:"size:50;not null;uniqueIndex"`
	PasswordHash    string    `gorm:"size:255;not null"`
	BalanceCents    int64     `gorm:"default:0"`
	UserIcon        int       `gorm:"default:0"`
	MemberSince     time.Time `gorm:"default:CURRENT_TIMESTAMP"`
}
