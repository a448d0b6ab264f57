package store

import (
	"encoding/json"
	"fmt"
	"sync"

	models "Garito/models/postgres"
	redis_models "Garito/models/redis"
	"Garito/services/redis"
	"Garito/services/rooms"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

/*
 * CompositeStore implements the engine's persistence boundary: chat and
 * round snapshots go to Redis, match history to PostgreSQL. A failed
 * history write is parked in the pending queue so the sync manager can
 * retry it; gameplay never waits for either backend.
 */
type CompositeStore struct {
	redisClient *redis.RedisClient
	db          *gorm.DB

	pendingMu sync.Mutex
	pending   []rooms.MatchRecord
}

func NewCompositeStore(redisClient *redis.RedisClient, db *gorm.DB) *CompositeStore {
	return &CompositeStore{redisClient: redisClient, db: db}
}

func (s *CompositeStore) SaveRoundSnapshot(roomID string, snapshot map[string]interface{}) error {
	return s.redisClient.SaveRoundSnapshot(roomID, snapshot)
}

func (s *CompositeStore) LoadRoundSnapshots(roomID string) ([]redis_models.RoundSnapshot, error) {
	return s.redisClient.LoadRoundSnapshots(roomID)
}

func (s *CompositeStore) AppendChat(roomID string, msg redis_models.ChatMessage) error {
	return s.redisClient.AppendChatMessage(roomID, msg)
}

func (s *CompositeStore) LoadChatHistory(roomID string, channel string, limit int) ([]redis_models.ChatMessage, error) {
	return s.redisClient.GetChatHistory(roomID, channel, limit)
}

// SaveMatchHistory writes the history row and final room status in one
// transaction. On failure the record is queued for reconciliation and the
// error returned so the caller can log the degradation.
func (s *CompositeStore) SaveMatchHistory(record rooms.MatchRecord) error {
	if err := s.writeMatchHistory(record); err != nil {
		s.pendingMu.Lock()
		s.pending = append(s.pending, record)
		s.pendingMu.Unlock()
		return err
	}
	return nil
}

func (s *CompositeStore) writeMatchHistory(record rooms.MatchRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("error marshaling match record: %v", err)
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		history := models.MatchHistory{
			RoomID:      record.RoomID,
			GameVariant: record.GameVariant,
			Winner:      record.Winner,
			PrizeCents:  record.PrizeCents,
			Record:      datatypes.JSON(payload),
			FinishedAt:  record.FinishedAt,
		}
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&history).Error; err != nil {
			return fmt.Errorf("error writing match history: %v", err)
		}

		// Per-player participation rows back the history endpoint.
		for _, p := range record.Participants {
			row := models.RoomPlayer{
				RoomID:       record.RoomID,
				Username:     p.Username,
				FeePaidCents: p.FeePaidCents,
				FinalScore:   p.FinalScore,
				Winner:       p.Winner,
				AutoPlayed:   p.AutoPlayed,
			}
			if err := tx.Omit(clause.Associations).
				Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
				return fmt.Errorf("error writing participation row for %s: %v", p.Username, err)
			}
		}

		updates := map[string]interface{}{
			"status":          "finished",
			"winner_username": record.Winner,
			"prize_cents":     record.PrizeCents,
		}
		if err := tx.Model(&models.GameRoom{}).Where("id = ?", record.RoomID).Updates(updates).Error; err != nil {
			return fmt.Errorf("error updating room row: %v", err)
		}
		return nil
	})
}

// PendingCount reports how many history writes still await reconciliation.
func (s *CompositeStore) PendingCount() int {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	return len(s.pending)
}

// FlushPending retries every parked history write, requeueing the ones
// that fail again. Returns how many were flushed.
func (s *CompositeStore) FlushPending() int {
	s.pendingMu.Lock()
	pending := s.pending
	s.pending = nil
	s.pendingMu.Unlock()

	flushed := 0
	for _, record := range pending {
		if err := s.writeMatchHistory(record); err != nil {
			s.pendingMu.Lock()
			s.pending = append(s.pending, record)
			s.pendingMu.Unlock()
			continue
		}
		flushed++
	}
	return flushed
}

// CleanupRoomData drops a closed room's volatile Redis keys.
func (s *CompositeStore) CleanupRoomData(roomID string) error {
	return s.redisClient.DeleteRoomData(roomID)
}
