package rooms

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestChatPermissionMatrix(t *testing.T) {
	tests := []struct {
		role       Role
		channel    Channel
		inProgress bool
		canWrite   bool
		canRead    bool
	}{
		// Lobby member: lobby only, and only before the match starts
		{RoleLobby, ChannelLobby, false, true, true},
		{RoleLobby, ChannelLobby, true, false, false},
		{RoleLobby, ChannelPlayers, false, false, false},
		{RoleLobby, ChannelSpectators, false, false, false},

		// Active player: lobby pre-game, players always
		{RolePlayer, ChannelLobby, false, true, true},
		{RolePlayer, ChannelLobby, true, false, false},
		{RolePlayer, ChannelPlayers, false, true, true},
		{RolePlayer, ChannelPlayers, true, true, true},
		{RolePlayer, ChannelSpectators, true, false, false},

		// Spectator: own channel writable, players read-only
		{RoleSpectator, ChannelSpectators, true, true, true},
		{RoleSpectator, ChannelPlayers, true, false, true},
		{RoleSpectator, ChannelLobby, false, false, false},
		{RoleSpectator, ChannelLobby, true, false, false},

		// No role: nothing
		{RoleNone, ChannelLobby, false, false, false},
		{RoleNone, ChannelPlayers, false, false, false},
		{RoleNone, ChannelSpectators, false, false, false},
	}

	for _, tt := range tests {
		name := fmt.Sprintf("role=%d channel=%s inProgress=%v", tt.role, tt.channel, tt.inProgress)
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.canWrite, CanWrite(tt.role, tt.channel, tt.inProgress))
			assert.Equal(t, tt.canRead, CanRead(tt.role, tt.channel, tt.inProgress))
		})
	}
}

func TestChatRouterSequencesPerChannel(t *testing.T) {
	router := newChatRouter()
	now := time.Now()

	m1 := router.append(ChannelLobby, "ana", "hola", now)
	m2 := router.append(ChannelLobby, "bob", "hey", now)
	m3 := router.append(ChannelPlayers, "ana", "gl", now)

	assert.Equal(t, uint64(1), m1.Seq)
	assert.Equal(t, uint64(2), m2.Seq)
	assert.Equal(t, uint64(1), m3.Seq, "channels sequence independently")
}

func TestChatRouterReplayWindow(t *testing.T) {
	router := newChatRouter()
	now := time.Now()
	for i := 0; i < 100; i++ {
		router.append(ChannelPlayers, "ana", fmt.Sprintf("msg %d", i), now)
	}

	replay := router.replay(ChannelPlayers)
	assert.Len(t, replay, 30)
	assert.Equal(t, "msg 70", replay[0].Message, "oldest retained message")
	assert.Equal(t, "msg 99", replay[len(replay)-1].Message)
	assert.Equal(t, uint64(100), replay[len(replay)-1].Seq, "sequence numbers survive trimming")
}

func TestChatRouterReplayIsACopy(t *testing.T) {
	router := newChatRouter()
	router.append(ChannelLobby, "ana", "original", time.Now())

	replay := router.replay(ChannelLobby)
	replay[0].Message = "mutated"

	assert.Equal(t, "original", router.replay(ChannelLobby)[0].Message)
}
