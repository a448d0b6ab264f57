package rooms

import (
	"time"

	game_constants "Garito/constants/game"
	redis_models "Garito/models/redis"
)

type Channel string

const (
	ChannelLobby      Channel = "lobby"
	ChannelPlayers    Channel = "players"
	ChannelSpectators Channel = "spectators"
)

// Role of an identity inside one room.
type Role int

const (
	RoleNone Role = iota
	RoleLobby
	RolePlayer
	RoleSpectator
)

/*
 * Permission matrix (role x channel):
 *
 *   lobby member:  lobby write          | players none      | spectators none
 *   active player: lobby write pre-game | players write     | spectators none
 *   spectator:     lobby none           | players read-only | spectators write
 *
 * The lobby channel disappears entirely (not just read-only) once the
 * match is in progress.
 */
func CanWrite(role Role, ch Channel, inProgress bool) bool {
	switch ch {
	case ChannelLobby:
		if inProgress {
			return false
		}
		return role == RoleLobby || role == RolePlayer
	case ChannelPlayers:
		return role == RolePlayer
	case ChannelSpectators:
		return role == RoleSpectator
	}
	return false
}

func CanRead(role Role, ch Channel, inProgress bool) bool {
	if CanWrite(role, ch, inProgress) {
		return true
	}
	// The only read-only cell: spectators watching the players channel.
	return ch == ChannelPlayers && role == RoleSpectator
}

// chatRouter hands out per-channel sequence numbers and keeps a short
// rolling window for rejoin replay. Full history lives in the store.
type chatRouter struct {
	seq    map[Channel]uint64
	window map[Channel][]redis_models.ChatMessage
}

func newChatRouter() *chatRouter {
	return &chatRouter{
		seq:    make(map[Channel]uint64),
		window: make(map[Channel][]redis_models.ChatMessage),
	}
}

func (c *chatRouter) append(ch Channel, sender, message string, now time.Time) redis_models.ChatMessage {
	c.seq[ch]++
	msg := redis_models.ChatMessage{
		Channel:   string(ch),
		Username:  sender,
		Message:   message,
		Seq:       c.seq[ch],
		Timestamp: now,
	}
	win := append(c.window[ch], msg)
	if len(win) > game_constants.CHAT_REPLAY_WINDOW {
		win = win[len(win)-game_constants.CHAT_REPLAY_WINDOW:]
	}
	c.window[ch] = win
	return msg
}

func (c *chatRouter) replay(ch Channel) []redis_models.ChatMessage {
	return append([]redis_models.ChatMessage{}, c.window[ch]...)
}
