package rooms

import (
	"Garito/services/game"
)

// Command is anything a room actor processes. Client commands arrive
// tagged with the issuing identity (stamped by the transport layer,
// never trusted from the payload); timer firings re-enter as synthetic
// commands so they share the ordering and staleness checks.
type Command interface {
	commandName() string
}

type JoinRoom struct {
	Username string
	Password string
}

type SpectateRoom struct {
	Username string
	Password string
}

type SelectPlayer struct {
	Username string // issuer, must be the room admin
	Target   string
}

type Ready struct {
	Username string
}

type GameAction struct {
	Username string
	Action   game.Action
}

type ChatSend struct {
	Username string
	Channel  Channel
	Message  string
}

type VoteKick struct {
	Username string // voter
	Target   string
}

// KickFromLobby is the admin's pre-game removal: the target leaves the
// room and is banned from it for the room's lifetime.
type KickFromLobby struct {
	Username string // issuer, must be the room admin
	Target   string
}

type LeaveRoom struct {
	Username string
}

// Rejoin asks for a state replay after a reconnect.
type Rejoin struct {
	Username string
}

func (JoinRoom) commandName() string      { return "join_room" }
func (SpectateRoom) commandName() string  { return "spectate_room" }
func (SelectPlayer) commandName() string  { return "select_player" }
func (Ready) commandName() string         { return "ready" }
func (GameAction) commandName() string    { return "game_action" }
func (ChatSend) commandName() string      { return "chat" }
func (VoteKick) commandName() string      { return "vote_kick" }
func (KickFromLobby) commandName() string { return "kick_from_lobby" }
func (LeaveRoom) commandName() string     { return "leave_room" }
func (Rejoin) commandName() string        { return "rejoin" }

// Synthetic commands. playerOffline/playerOnline come from the directory's
// presence watcher; the timer commands carry the epoch current when they
// were scheduled and are dropped as no-ops if the room moved on.

type playerOffline struct{ username string }
type playerOnline struct{ username string }

type readyTimeout struct{ epoch uint64 }
type turnTimeout struct{ epoch uint64 }
type disconnectDeadline struct {
	username string
	epoch    uint64
}
type closeTimeout struct{ epoch uint64 }

func (playerOffline) commandName() string      { return "player_offline" }
func (playerOnline) commandName() string       { return "player_online" }
func (readyTimeout) commandName() string       { return "ready_timeout" }
func (turnTimeout) commandName() string        { return "turn_timeout" }
func (disconnectDeadline) commandName() string { return "disconnect_deadline" }
func (closeTimeout) commandName() string       { return "close_timeout" }
