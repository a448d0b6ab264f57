package rooms

import (
	"log"
	"time"

	redis_models "Garito/models/redis"
)

// MatchRecord is the full record of a finished match, written at least
// once before the room closes.
type MatchRecord struct {
	RoomID       string                 `json:"room_id"`
	GameVariant  string                 `json:"game_variant"`
	Players      []string               `json:"players"`
	Participants []MatchParticipant     `json:"participants"`
	Scores       map[string]int         `json:"scores"`
	Winner       string                 `json:"winner"`
	PrizeCents   int64                  `json:"prize_cents"`
	PoolCents    int64                  `json:"pool_cents"`
	FinishedAt   time.Time              `json:"finished_at"`
	FinalState   map[string]interface{} `json:"final_state"`
}

// MatchParticipant is one seat's line in the record, in seating order.
// This is what per-player history queries are keyed on.
type MatchParticipant struct {
	Username     string `json:"username"`
	FeePaidCents int64  `json:"fee_paid_cents"`
	FinalScore   int    `json:"final_score"`
	Winner       bool   `json:"winner"`
	AutoPlayed   bool   `json:"auto_played"`
}

/*
 * Store is the persistence boundary of the engine. All calls are safe to
 * retry. Snapshot and chat writes are best-effort: the room actor fires
 * them on a separate goroutine with one retry and never blocks its
 * command queue on them. SaveMatchHistory is attempted before the room
 * closes; a failure there is flagged for reconciliation, never allowed
 * to block payout. CleanupRoomData drops the closed room's volatile
 * keys; a failure there just means they wait out their TTL.
 */
type Store interface {
	SaveRoundSnapshot(roomID string, snapshot map[string]interface{}) error
	LoadRoundSnapshots(roomID string) ([]redis_models.RoundSnapshot, error)
	SaveMatchHistory(record MatchRecord) error
	AppendChat(roomID string, msg redis_models.ChatMessage) error
	LoadChatHistory(roomID string, channel string, limit int) ([]redis_models.ChatMessage, error)
	CleanupRoomData(roomID string) error
}

// noopStore backs directories created without persistence wired in.
type noopStore struct{}

func (noopStore) SaveRoundSnapshot(string, map[string]interface{}) error { return nil }
func (noopStore) LoadRoundSnapshots(string) ([]redis_models.RoundSnapshot, error) {
	return nil, nil
}
func (noopStore) SaveMatchHistory(MatchRecord) error                { return nil }
func (noopStore) AppendChat(string, redis_models.ChatMessage) error { return nil }
func (noopStore) LoadChatHistory(string, string, int) ([]redis_models.ChatMessage, error) {
	return nil, nil
}
func (noopStore) CleanupRoomData(string) error { return nil }

// bestEffort runs op off the actor goroutine with one retry. Failures are
// logged as persistence degradation and never reach players.
func bestEffort(what, roomID string, op func() error) {
	go func() {
		err := op()
		if err == nil {
			return
		}
		time.Sleep(500 * time.Millisecond)
		if err = op(); err != nil {
			log.Printf("[PERSIST-DEGRADED] %s failed for room %s: %v", what, roomID, err)
		}
	}()
}
