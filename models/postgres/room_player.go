package postgres

import (
	"gorm.io/datatypes"
)

/*
 * 'RoomPlayer' records one identity's participation in a room: entry fee
 * paid, final score and winner flag. References GameRoom and User.
 */
type RoomPlayer struct {
	// NOTE: composite primary key definition
	RoomID       string         `gorm:"primaryKey;size:50;not null"`
	Username     string         `gorm:"primaryKey;size:50;not null;index"`
	FeePaidCents int64          `gorm:"default:0"`
	FinalScore   int            `gorm:"default:0"`
	Winner       bool           `gorm:"default:false"`
	AutoPlayed   bool           `gorm:"default:false"`
	FinalState   datatypes.JSON `gorm:"type:jsonb;default:'{}'"`

	GameRoom GameRoom `gorm:"foreignKey:RoomID"`
	User     User     `gorm:"foreignKey:Username;references:ProfileUsername"`
}
