package ledger

import (
	"errors"
	"fmt"
	"log"

	models "Garito/models/postgres"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrInsufficientFunds is returned by Charge when the wallet can't cover
// the amount. Any other error means the movement may not have happened.
var ErrInsufficientFunds = errors.New("insufficient funds")

/*
 * Service is the narrow money interface the room engine sees. The engine
 * never assumes a call succeeds and never touches balances directly.
 * Amounts are in cents.
 */
type Service interface {
	Charge(username string, amountCents int64, reason string) (receiptID string, err error)
	Credit(username string, amountCents int64, reason string) (receiptID string, err error)
}

// GormLedger implements Service over the users + ledger_entries tables.
type GormLedger struct {
	DB *gorm.DB
}

func NewGormLedger(db *gorm.DB) *GormLedger {
	return &GormLedger{DB: db}
}

// Charge debits a wallet inside one transaction: row-lock the user,
// check the balance, update it and write the receipt row.
func (l *GormLedger) Charge(username string, amountCents int64, reason string) (string, error) {
	if amountCents <= 0 {
		return "", fmt.Errorf("charge amount must be positive, got %d", amountCents)
	}

	receiptID := uuid.NewString()
	err := l.DB.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("profile_username = ?", username).First(&user).Error; err != nil {
			return fmt.Errorf("error locking user %s: %w", username, err)
		}

		if user.BalanceCents < amountCents {
			return ErrInsufficientFunds
		}

		if err := tx.Model(&models.User{}).
			Where("profile_username = ?", username).
			Update("balance_cents", gorm.Expr("balance_cents - ?", amountCents)).Error; err != nil {
			return fmt.Errorf("error debiting user %s: %w", username, err)
		}

		entry := models.LedgerEntry{
			ReceiptID:   receiptID,
			Username:    username,
			AmountCents: -amountCents,
			Reason:      reason,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("error writing ledger entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	log.Printf("[LEDGER] Charged %d cents to %s (%s), receipt %s", amountCents, username, reason, receiptID)
	return receiptID, nil
}

// Credit adds to a wallet and writes the receipt row.
func (l *GormLedger) Credit(username string, amountCents int64, reason string) (string, error) {
	if amountCents <= 0 {
		return "", fmt.Errorf("credit amount must be positive, got %d", amountCents)
	}

	receiptID := uuid.NewString()
	err := l.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).
			Where("profile_username = ?", username).
			Update("balance_cents", gorm.Expr("balance_cents + ?", amountCents)).Error; err != nil {
			return fmt.Errorf("error crediting user %s: %w", username, err)
		}

		entry := models.LedgerEntry{
			ReceiptID:   receiptID,
			Username:    username,
			AmountCents: amountCents,
			Reason:      reason,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("error writing ledger entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	log.Printf("[LEDGER] Credited %d cents to %s (%s), receipt %s", amountCents, username, reason, receiptID)
	return receiptID, nil
}
