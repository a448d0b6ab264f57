package redis

import (
	"encoding/json"
	"time"
)

// RoundSnapshot is a best-effort copy of a room's public round state,
// pushed after every accepted action so reconnecting clients can catch up.
type RoundSnapshot struct {
	RoomID  string          `json:"room_id"`
	Round   int             `json:"round"`
	State   json.RawMessage `json:"state"`
	SavedAt time.Time       `json:"saved_at"`
}
