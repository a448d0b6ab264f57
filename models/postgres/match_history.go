package postgres

import (
	"time"

	"gorm.io/datatypes"
)

/*
 * 'MatchHistory' stores the full record of a finished match as jsonb.
 * Written at most once per room, before the room closes; a write that
 * fails is retried from memory by services/sync until it lands.
 */
type MatchHistory struct {
	RoomID      string         `gorm:"primaryKey;size:50;not null"`
	GameVariant string         `gorm:"size:20;not null"`
	Winner      string         `gorm:"size:50"`
	PrizeCents  int64          `gorm:"default:0"`
	Record      datatypes.JSON `gorm:"type:jsonb;default:'{}'"`
	FinishedAt  time.Time      `gorm:"default:CURRENT_TIMESTAMP"`
}
