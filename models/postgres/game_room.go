package postgres

import (
	"time"
)

/*
 * 'GameRoom' is the durable record of a room: who created it, which game
 * variant it runs and how it ended. The live state machine runs in memory
 * (services/rooms); this row exists for listings that survive restarts and
 * for match history foreign keys.
 */
type GameRoom struct {
	ID              string    `gorm:"primaryKey;size:50;not null"` // join code assigned by the live directory
	DisplayName     string    `gorm:"size:50;not null;index:idx_game_rooms_name"`
	CreatorUsername string    `gorm:"size:50;index:idx_game_rooms_creator"`
	GameVariant     string    `gorm:"size:20;not null"`
	EntryFeeCents   int64     `gorm:"not null"`
	MaxPlayers      int       `gorm:"default:2"`
	AllowSpectators bool      `gorm:"default:true"`
	PasswordHash    string    `gorm:"size:255"` // empty if the room is open
	Status          string    `gorm:"size:20;default:'forming';index:idx_game_rooms_status"`
	WinnerUsername  string    `gorm:"size:50"`
	PrizeCents      int64     `gorm:"default:0"`
	CreatedAt       time.Time `gorm:"default:CURRENT_TIMESTAMP"`

	Creator     User          `gorm:"foreignKey:CreatorUsername;references:ProfileUsername"`
	RoomPlayers []*RoomPlayer `gorm:"foreignKey:RoomID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}
