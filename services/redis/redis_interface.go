package redis

import (
	"encoding/json"
	"fmt"
	"time"

	redis_models "Garito/models/redis"
	redis_utils "Garito/services/redis/utils"

	"github.com/redis/go-redis/v9"
)

const (
	chatHistoryMax  = 500
	snapshotMax     = 50
	volatileDataTTL = 24 * time.Hour
)

// AppendChatMessage pushes one chat message onto a room channel's history
// list. Key format: "room:{id}:chat:{channel}", trimmed to chatHistoryMax.
func (rc *RedisClient) AppendChatMessage(roomID string, msg redis_models.ChatMessage) error {
	key := redis_utils.FormatChatKey(roomID, msg.Channel)
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("error marshaling chat message: %v", err)
	}

	pipe := rc.Client.Pipeline()
	pipe.RPush(rc.Ctx, key, data)
	pipe.LTrim(rc.Ctx, key, -chatHistoryMax, -1)
	pipe.Expire(rc.Ctx, key, volatileDataTTL)
	if _, err := pipe.Exec(rc.Ctx); err != nil {
		return fmt.Errorf("error appending chat message: %v", err)
	}
	return nil
}

// GetChatHistory returns up to limit most recent messages of one channel.
func (rc *RedisClient) GetChatHistory(roomID string, channel string, limit int) ([]redis_models.ChatMessage, error) {
	key := redis_utils.FormatChatKey(roomID, channel)
	raw, err := rc.Client.LRange(rc.Ctx, key, int64(-limit), -1).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("error getting chat history: %v", err)
	}

	messages := make([]redis_models.ChatMessage, 0, len(raw))
	for _, item := range raw {
		var msg redis_models.ChatMessage
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, fmt.Errorf("error unmarshaling chat message: %v", err)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// SaveRoundSnapshot appends a round snapshot for rejoin replay.
// Key format: "room:{id}:snapshots", trimmed to snapshotMax.
func (rc *RedisClient) SaveRoundSnapshot(roomID string, state map[string]interface{}) error {
	stateData, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("error marshaling snapshot state: %v", err)
	}
	snapshot := redis_models.RoundSnapshot{
		RoomID:  roomID,
		State:   stateData,
		SavedAt: time.Now(),
	}
	if round, ok := state["round"].(int); ok {
		snapshot.Round = round
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("error marshaling snapshot: %v", err)
	}

	key := redis_utils.FormatSnapshotKey(roomID)
	pipe := rc.Client.Pipeline()
	pipe.RPush(rc.Ctx, key, data)
	pipe.LTrim(rc.Ctx, key, -snapshotMax, -1)
	pipe.Expire(rc.Ctx, key, volatileDataTTL)
	if _, err := pipe.Exec(rc.Ctx); err != nil {
		return fmt.Errorf("error saving round snapshot: %v", err)
	}
	return nil
}

// LoadRoundSnapshots returns every retained snapshot for a room, oldest first.
func (rc *RedisClient) LoadRoundSnapshots(roomID string) ([]redis_models.RoundSnapshot, error) {
	key := redis_utils.FormatSnapshotKey(roomID)
	raw, err := rc.Client.LRange(rc.Ctx, key, 0, -1).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("error loading round snapshots: %v", err)
	}

	snapshots := make([]redis_models.RoundSnapshot, 0, len(raw))
	for _, item := range raw {
		var s redis_models.RoundSnapshot
		if err := json.Unmarshal([]byte(item), &s); err != nil {
			return nil, fmt.Errorf("error unmarshaling snapshot: %v", err)
		}
		snapshots = append(snapshots, s)
	}
	return snapshots, nil
}

// SavePlayerPresence stores a player's presence record.
// Key format: "presence:{username}"
func (rc *RedisClient) SavePlayerPresence(presence *redis_models.PlayerPresence) error {
	key := redis_utils.FormatPresenceKey(presence.Username)
	data, err := json.Marshal(presence)
	if err != nil {
		return fmt.Errorf("error marshaling presence: %v", err)
	}
	return rc.Client.Set(rc.Ctx, key, data, volatileDataTTL).Err()
}

// GetPlayerPresence retrieves a player's presence record, nil if unknown.
func (rc *RedisClient) GetPlayerPresence(username string) (*redis_models.PlayerPresence, error) {
	key := redis_utils.FormatPresenceKey(username)
	data, err := rc.Client.Get(rc.Ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("error getting presence: %v", err)
	}

	var presence redis_models.PlayerPresence
	if err := json.Unmarshal(data, &presence); err != nil {
		return nil, fmt.Errorf("error unmarshaling presence: %v", err)
	}
	return &presence, nil
}

// DeleteRoomData clears every volatile key a room produced.
func (rc *RedisClient) DeleteRoomData(roomID string) error {
	keys := []string{
		redis_utils.FormatChatKey(roomID, "lobby"),
		redis_utils.FormatChatKey(roomID, "players"),
		redis_utils.FormatChatKey(roomID, "spectators"),
		redis_utils.FormatSnapshotKey(roomID),
	}
	return rc.CleanupKeys(keys)
}
