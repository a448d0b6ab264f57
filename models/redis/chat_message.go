package redis

import "time"

// ChatMessage represents one message in a room chat channel.
// Seq is assigned by the room, monotonically per room+channel.
type ChatMessage struct {
	Channel   string    `json:"channel"` // lobby | players | spectators
	Username  string    `json:"username"`
	Message   string    `json:"message"`
	Seq       uint64    `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
}

// System sender sentinel for engine-generated notices
const SystemSender = "__system__"
