package rooms

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCreateRoomValidation(t *testing.T) {
	f := newFixture(t, map[string]int64{"ana": 5000}, testOptions())

	base := CreateRoomParams{
		Name:        "valid",
		GameVariant: "dicerace",
		Admin:       "ana",
		FeeCents:    1000,
		MaxPlayers:  4,
	}

	tests := []struct {
		name   string
		mutate func(CreateRoomParams) CreateRoomParams
	}{
		{"empty name", func(p CreateRoomParams) CreateRoomParams { p.Name = "  "; return p }},
		{"fee below minimum", func(p CreateRoomParams) CreateRoomParams { p.FeeCents = 99; return p }},
		{"fee above maximum", func(p CreateRoomParams) CreateRoomParams { p.FeeCents = 100001; return p }},
		{"unknown variant", func(p CreateRoomParams) CreateRoomParams { p.GameVariant = "roulette"; return p }},
		{"board match needs 2 seats", func(p CreateRoomParams) CreateRoomParams {
			p.GameVariant = "boardmatch"
			p.MaxPlayers = 4
			return p
		}},
		{"too many seats", func(p CreateRoomParams) CreateRoomParams { p.MaxPlayers = 9; return p }},
		{"single seat", func(p CreateRoomParams) CreateRoomParams { p.MaxPlayers = 1; return p }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.dir.CreateRoom(tt.mutate(base))
			assert.Error(t, err)
			var engineErr *EngineError
			assert.ErrorAs(t, err, &engineErr)
			assert.Equal(t, KindRuleViolation, engineErr.Kind)
		})
	}
}

func TestRoomIDsAreShortJoinCodes(t *testing.T) {
	f := newFixture(t, map[string]int64{"ana": 5000}, testOptions())

	seen := map[string]bool{}
	for i, name := range []string{"first", "second", "third"} {
		room, err := f.dir.CreateRoom(CreateRoomParams{
			Name:        name,
			GameVariant: "dicerace",
			Admin:       "ana",
			FeeCents:    1000,
			MaxPlayers:  4,
		})
		assert.NoError(t, err)
		assert.Len(t, room.ID, 6, "room %d", i)
		assert.False(t, seen[room.ID], "room ids must be unique")
		seen[room.ID] = true
	}
}

func TestCreateRoomRejectsDuplicateName(t *testing.T) {
	f := newFixture(t, map[string]int64{"ana": 5000, "bob": 5000}, testOptions())

	params := CreateRoomParams{
		Name:        "the table",
		GameVariant: "dicerace",
		Admin:       "ana",
		FeeCents:    1000,
		MaxPlayers:  2,
	}
	_, err := f.dir.CreateRoom(params)
	assert.NoError(t, err)

	params.Admin = "bob"
	_, err = f.dir.CreateRoom(params)
	assert.Error(t, err)
}

func TestListRedactsAndFilters(t *testing.T) {
	f := newFixture(t, map[string]int64{"ana": 5000, "bob": 5000}, testOptions())

	_, err := f.dir.CreateRoom(CreateRoomParams{
		Name:        "secret club",
		GameVariant: "dicerace",
		Admin:       "ana",
		FeeCents:    1000,
		MaxPlayers:  4,
		Password:    "hunter2",
	})
	assert.NoError(t, err)

	_, err = f.dir.CreateRoom(CreateRoomParams{
		Name:        "open board",
		GameVariant: "boardmatch",
		Admin:       "bob",
		FeeCents:    500,
		MaxPlayers:  2,
	})
	assert.NoError(t, err)

	all := f.dir.List("")
	assert.Len(t, all, 2)
	// Sorted by name
	assert.Equal(t, "open board", all[0].Name)
	assert.Equal(t, "secret club", all[1].Name)
	assert.True(t, all[1].PasswordProtected)
	assert.False(t, all[1].CanRejoin("ana"), "forming rooms are never rejoinable")

	dice := f.dir.List("dicerace")
	assert.Len(t, dice, 1)
	assert.Equal(t, "secret club", dice[0].Name)
}

func TestPasswordProtectedJoin(t *testing.T) {
	f := newFixture(t, map[string]int64{"ana": 5000}, testOptions())

	room, err := f.dir.CreateRoom(CreateRoomParams{
		Name:        "members only",
		GameVariant: "dicerace",
		Admin:       "ana",
		FeeCents:    1000,
		MaxPlayers:  2,
		Password:    "hunter2",
	})
	assert.NoError(t, err)

	room.Submit(JoinRoom{Username: "bob", Password: "wrong"})
	rejected := f.rec.waitFor(t, "command_rejected", 1, time.Second)
	assert.Equal(t, []string{"bob"}, rejected.Recipients)
	assert.Equal(t, string(KindAuthorization), rejected.Payload["kind"])

	room.Submit(JoinRoom{Username: "bob", Password: "hunter2"})
	joined := f.rec.waitFor(t, "lobby_member_joined", 1, time.Second)
	assert.Equal(t, "bob", joined.Payload["username"])
}

func TestOneActiveRoomPerIdentity(t *testing.T) {
	f := newFixture(t, map[string]int64{"ana": 9000, "bob": 9000, "eve": 9000}, testOptions())

	f.startMatch(t, CreateRoomParams{
		Name:        "first table",
		GameVariant: "dicerace",
		Admin:       "ana",
		FeeCents:    1000,
		MaxPlayers:  2,
	}, []string{"ana", "bob"})

	// bob, already active in the first room, tries to go active elsewhere
	err := f.dir.bindActive("bob", "some-other-room")
	assert.Error(t, err)
	var engineErr *EngineError
	assert.ErrorAs(t, err, &engineErr)
	assert.Equal(t, KindFatal, engineErr.Kind)
}
