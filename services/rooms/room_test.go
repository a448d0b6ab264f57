package rooms

import (
	"errors"
	"sync"
	"testing"
	"time"

	redis_models "Garito/models/redis"
	"Garito/services/game"

	"github.com/stretchr/testify/assert"
)

// ---------------------------------------------------------------
// Test doubles
// ---------------------------------------------------------------

type movement struct {
	username string
	amount   int64
	reason   string
}

type fakeLedger struct {
	mu       sync.Mutex
	balances map[string]int64
	charges  []movement
	credits  []movement
	failFor  map[string]bool // usernames whose charges fail
}

func newFakeLedger(balances map[string]int64) *fakeLedger {
	b := make(map[string]int64, len(balances))
	for k, v := range balances {
		b[k] = v
	}
	return &fakeLedger{balances: b, failFor: make(map[string]bool)}
}

func (l *fakeLedger) Charge(username string, amountCents int64, reason string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failFor[username] || l.balances[username] < amountCents {
		return "", errors.New("insufficient funds")
	}
	l.balances[username] -= amountCents
	l.charges = append(l.charges, movement{username, amountCents, reason})
	return "receipt-" + username, nil
}

func (l *fakeLedger) Credit(username string, amountCents int64, reason string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[username] += amountCents
	l.credits = append(l.credits, movement{username, amountCents, reason})
	return "receipt-" + username, nil
}

func (l *fakeLedger) balance(username string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[username]
}

type memStore struct {
	mu        sync.Mutex
	snapshots int
	chats     []redis_models.ChatMessage
	histories []MatchRecord
	cleanups  []string
}

func (s *memStore) SaveRoundSnapshot(roomID string, snapshot map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots++
	return nil
}

func (s *memStore) LoadRoundSnapshots(roomID string) ([]redis_models.RoundSnapshot, error) {
	return nil, nil
}

func (s *memStore) SaveMatchHistory(record MatchRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.histories = append(s.histories, record)
	return nil
}

func (s *memStore) AppendChat(roomID string, msg redis_models.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats = append(s.chats, msg)
	return nil
}

func (s *memStore) LoadChatHistory(roomID string, channel string, limit int) ([]redis_models.ChatMessage, error) {
	return nil, nil
}

func (s *memStore) CleanupRoomData(roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanups = append(s.cleanups, roomID)
	return nil
}

func (s *memStore) historyCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.histories)
}

func (s *memStore) cleanedUp(roomID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.cleanups {
		if id == roomID {
			return true
		}
	}
	return false
}

// eventRecorder collects every emitted event; tests poll it instead of
// sleeping for fixed amounts.
type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (rec *eventRecorder) sink() Sink {
	return func(roomID string, ev Event) {
		rec.mu.Lock()
		rec.events = append(rec.events, ev)
		rec.mu.Unlock()
	}
}

func (rec *eventRecorder) all() []Event {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return append([]Event{}, rec.events...)
}

func (rec *eventRecorder) count(name string) int {
	n := 0
	for _, ev := range rec.all() {
		if ev.Name == name {
			n++
		}
	}
	return n
}

func (rec *eventRecorder) find(name string) (Event, bool) {
	for _, ev := range rec.all() {
		if ev.Name == name {
			return ev, true
		}
	}
	return Event{}, false
}

// waitFor polls until the given occurrence count of an event name shows up.
func (rec *eventRecorder) waitFor(t *testing.T, name string, occurrence int, timeout time.Duration) Event {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		seen := 0
		for _, ev := range rec.all() {
			if ev.Name == name {
				seen++
				if seen >= occurrence {
					return ev
				}
			}
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for event %q (occurrence %d)", name, occurrence)
	return Event{}
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.ReadyTimeout = 5 * time.Second
	opts.TurnTimeout = 5 * time.Second
	opts.DisconnectGrace = 60 * time.Millisecond
	opts.CloseGrace = 40 * time.Millisecond
	opts.Seed = 42
	return opts
}

type fixture struct {
	dir    *Directory
	ledger *fakeLedger
	store  *memStore
	rec    *eventRecorder
}

func newFixture(t *testing.T, balances map[string]int64, opts Options) *fixture {
	t.Helper()
	f := &fixture{
		ledger: newFakeLedger(balances),
		store:  &memStore{},
		rec:    &eventRecorder{},
	}
	f.dir = NewDirectory(Deps{
		Ledger: f.ledger,
		Store:  f.store,
		Sink:   f.rec.sink(),
		Opts:   opts,
	})
	return f
}

// startMatch walks a room from creation to in_progress with the given
// players (the first one is the admin).
func (f *fixture) startMatch(t *testing.T, params CreateRoomParams, players []string) *Room {
	t.Helper()
	room, err := f.dir.CreateRoom(params)
	assert.NoError(t, err)

	for _, p := range players[1:] {
		assert.NoError(t, room.Submit(JoinRoom{Username: p}))
	}
	for _, p := range players {
		assert.NoError(t, room.Submit(SelectPlayer{Username: params.Admin, Target: p}))
	}
	f.rec.waitFor(t, "awaiting_ready", 1, time.Second)

	for _, p := range players {
		assert.NoError(t, room.Submit(Ready{Username: p}))
	}
	f.rec.waitFor(t, "game_started", 1, time.Second)
	return room
}

// ---------------------------------------------------------------
// End to end
// ---------------------------------------------------------------

func TestRoomEndToEnd(t *testing.T) {
	f := newFixture(t, map[string]int64{"ana": 5000, "bob": 5000}, testOptions())

	room := f.startMatch(t, CreateRoomParams{
		Name:        "high stakes",
		GameVariant: "dicerace",
		Admin:       "ana",
		FeeCents:    1000,
		MaxPlayers:  2,
	}, []string{"ana", "bob"})

	// Both entry fees charged exactly once
	assert.Equal(t, int64(4000), f.ledger.balance("ana"))
	assert.Equal(t, int64(4000), f.ledger.balance("bob"))

	// Seating order follows activation order: ana rolls first. Alternate
	// strictly until the race decides.
	for i := 0; i < 100; i++ {
		if _, ok := f.rec.find("match_finished"); ok {
			break
		}
		room.Submit(GameAction{Username: "ana", Action: roll()})
		room.Submit(GameAction{Username: "bob", Action: roll()})
		time.Sleep(2 * time.Millisecond)
	}
	finished := f.rec.waitFor(t, "match_finished", 1, 2*time.Second)

	winner := finished.Payload["winner"].(string)
	assert.Contains(t, []string{"ana", "bob"}, winner)
	assert.Equal(t, int64(1200), finished.Payload["prize_cents"])
	assert.Equal(t, int64(2000), finished.Payload["pool_cents"])

	// Winner ends up with 4000 + 1200, loser stays at 4000
	loser := "bob"
	if winner == "bob" {
		loser = "ana"
	}
	assert.Equal(t, int64(5200), f.ledger.balance(winner))
	assert.Equal(t, int64(4000), f.ledger.balance(loser))

	// Durable record written before closing, one line per seat
	f.rec.waitFor(t, "room_closed", 1, 2*time.Second)
	assert.Equal(t, 1, f.store.historyCount())
	record := f.store.histories[0]
	assert.Equal(t, winner, record.Winner)
	assert.Len(t, record.Participants, 2)
	for _, p := range record.Participants {
		assert.Equal(t, int64(1000), p.FeePaidCents)
		assert.Equal(t, p.Username == winner, p.Winner)
		assert.False(t, p.AutoPlayed)
	}

	// Gone from the directory, later commands get the stale-room error
	deadline := time.Now().Add(time.Second)
	for {
		if _, ok := f.dir.Get(room.ID); !ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("room never left the directory")
		}
		time.Sleep(2 * time.Millisecond)
	}
	assert.ErrorIs(t, f.dir.Submit(room.ID, Ready{Username: "ana"}), ErrRoomClosed)

	// The volatile keys get dropped once the room is gone
	deadline = time.Now().Add(time.Second)
	for !f.store.cleanedUp(room.ID) {
		if time.Now().After(deadline) {
			t.Fatal("room data never cleaned up")
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func roll() game.Action {
	return game.Action{Type: "roll"}
}

// ---------------------------------------------------------------
// Disconnection, kick votes, reconnection
// ---------------------------------------------------------------

func TestReconnectCancelsKickVote(t *testing.T) {
	opts := testOptions()
	opts.DisconnectGrace = 150 * time.Millisecond
	f := newFixture(t, map[string]int64{"ana": 5000, "bob": 5000, "eve": 5000}, opts)

	f.startMatch(t, CreateRoomParams{
		Name:        "flaky wifi",
		GameVariant: "dicerace",
		Admin:       "ana",
		FeeCents:    500,
		MaxPlayers:  3,
	}, []string{"ana", "bob", "eve"})

	// bob vanishes, then comes back inside the grace window
	f.dir.OnOffline("bob")
	f.rec.waitFor(t, "player_disconnected", 1, time.Second)
	f.dir.OnOnline("bob")
	f.rec.waitFor(t, "player_reconnected", 1, time.Second)

	// The first episode's deadline must never open a vote
	time.Sleep(300 * time.Millisecond)
	assert.Zero(t, f.rec.count("kick_vote_open"), "reconnection must cancel the pending deadline")

	// Second episode: the grace expires and voting opens fresh
	f.dir.OnOffline("bob")
	f.rec.waitFor(t, "player_disconnected", 2, time.Second)
	open := f.rec.waitFor(t, "kick_vote_open", 1, time.Second)
	assert.Equal(t, "bob", open.Payload["username"])
	assert.Equal(t, 1, open.Payload["required_votes"], "3 active players need 1 vote")

	// One vote reaches the threshold; bob flips to permanent auto-play
	f.dir.Submit(roomIDOf(t, f.dir, "flaky wifi"), VoteKick{Username: "ana", Target: "bob"})
	kicked := f.rec.waitFor(t, "player_kicked", 1, time.Second)
	assert.Equal(t, "bob", kicked.Payload["username"])
}

func TestReconnectDiscardsCastVotes(t *testing.T) {
	f := newFixture(t, map[string]int64{
		"ana": 5000, "bob": 5000, "eve": 5000, "dan": 5000,
	}, testOptions())

	room := f.startMatch(t, CreateRoomParams{
		Name:        "second chances",
		GameVariant: "dicerace",
		Admin:       "ana",
		FeeCents:    500,
		MaxPlayers:  4,
	}, []string{"ana", "bob", "eve", "dan"})

	// dan drops, the vote opens and ana casts 1 of the 2 required
	f.dir.OnOffline("dan")
	open := f.rec.waitFor(t, "kick_vote_open", 1, time.Second)
	assert.Equal(t, 2, open.Payload["required_votes"], "4 active players need 2 votes")
	room.Submit(VoteKick{Username: "ana", Target: "dan"})
	cast := f.rec.waitFor(t, "kick_vote_cast", 1, time.Second)
	assert.Equal(t, 1, cast.Payload["votes"])

	// dan makes it back: the episode is discarded, tally included
	f.dir.OnOnline("dan")
	f.rec.waitFor(t, "player_reconnected", 1, time.Second)
	assert.Zero(t, f.rec.count("player_kicked"))

	// A fresh drop opens a fresh tally; ana's earlier vote is gone and
	// her new one counts as the first.
	f.dir.OnOffline("dan")
	f.rec.waitFor(t, "kick_vote_open", 2, time.Second)
	room.Submit(VoteKick{Username: "ana", Target: "dan"})
	cast = f.rec.waitFor(t, "kick_vote_cast", 2, time.Second)
	assert.Equal(t, 1, cast.Payload["votes"], "votes from the discarded episode must not carry over")
	assert.Zero(t, f.rec.count("player_kicked"))

	// The second voter completes the kick
	room.Submit(VoteKick{Username: "bob", Target: "dan"})
	kicked := f.rec.waitFor(t, "player_kicked", 1, time.Second)
	assert.Equal(t, "dan", kicked.Payload["username"])
}

func TestAutoPlayedTurnFollowsHumanActionPromptly(t *testing.T) {
	f := newFixture(t, map[string]int64{"ana": 5000, "bob": 5000, "eve": 5000}, testOptions())

	room := f.startMatch(t, CreateRoomParams{
		Name:        "ghost seat",
		GameVariant: "dicerace",
		Admin:       "ana",
		FeeCents:    500,
		MaxPlayers:  3,
	}, []string{"ana", "bob", "eve"})

	room.Submit(GameAction{Username: "ana", Action: roll()})
	room.Submit(GameAction{Username: "bob", Action: roll()})
	f.rec.waitFor(t, "dice_rolled", 2, time.Second)

	// eve drops on her own turn and gets voted out
	f.dir.OnOffline("eve")
	f.rec.waitFor(t, "kick_vote_open", 1, time.Second)
	room.Submit(VoteKick{Username: "ana", Target: "eve"})
	f.rec.waitFor(t, "player_kicked", 1, time.Second)

	// Her substituted roll fires on the spot
	f.rec.waitFor(t, "dice_rolled", 3, time.Second)

	// Next round: after the humans act, eve's seat must roll right
	// behind them, not after the turn timer.
	room.Submit(GameAction{Username: "ana", Action: roll()})
	room.Submit(GameAction{Username: "bob", Action: roll()})
	f.rec.waitFor(t, "dice_rolled", 6, time.Second)
}

func TestKickVoteRejectedBeforeDeadline(t *testing.T) {
	opts := testOptions()
	opts.DisconnectGrace = 5 * time.Second // deadline far away
	f := newFixture(t, map[string]int64{"ana": 5000, "bob": 5000, "eve": 5000}, opts)

	room := f.startMatch(t, CreateRoomParams{
		Name:        "patience",
		GameVariant: "dicerace",
		Admin:       "ana",
		FeeCents:    500,
		MaxPlayers:  3,
	}, []string{"ana", "bob", "eve"})

	f.dir.OnOffline("bob")
	f.rec.waitFor(t, "player_disconnected", 1, time.Second)

	// Voting has not opened yet: the vote bounces back to the voter
	room.Submit(VoteKick{Username: "ana", Target: "bob"})
	rejected := f.rec.waitFor(t, "command_rejected", 1, time.Second)
	assert.Equal(t, []string{"ana"}, rejected.Recipients)
	assert.Equal(t, string(KindRuleViolation), rejected.Payload["kind"])
	assert.Zero(t, f.rec.count("player_kicked"))
}

// ---------------------------------------------------------------
// Pre-game teardown
// ---------------------------------------------------------------

func TestAdminLeavePreGameRefundsEveryone(t *testing.T) {
	f := newFixture(t, map[string]int64{"ana": 5000, "bob": 5000}, testOptions())

	room, err := f.dir.CreateRoom(CreateRoomParams{
		Name:        "short lived",
		GameVariant: "dicerace",
		Admin:       "ana",
		FeeCents:    1000,
		MaxPlayers:  2,
	})
	assert.NoError(t, err)

	room.Submit(JoinRoom{Username: "bob"})
	room.Submit(SelectPlayer{Username: "ana", Target: "ana"})
	room.Submit(SelectPlayer{Username: "ana", Target: "bob"})
	f.rec.waitFor(t, "awaiting_ready", 1, time.Second)

	room.Submit(LeaveRoom{Username: "ana"})
	f.rec.waitFor(t, "room_closed", 1, time.Second)

	// Both charged fees came back
	assert.Equal(t, int64(5000), f.ledger.balance("ana"))
	assert.Equal(t, int64(5000), f.ledger.balance("bob"))
	_, live := f.dir.Get(room.ID)
	assert.False(t, live)
}

func TestAdminLobbyKickBansReentry(t *testing.T) {
	f := newFixture(t, map[string]int64{"ana": 5000, "bob": 5000, "eve": 5000}, testOptions())

	room, err := f.dir.CreateRoom(CreateRoomParams{
		Name:            "house rules",
		GameVariant:     "dicerace",
		Admin:           "ana",
		FeeCents:        500,
		MaxPlayers:      3,
		AllowSpectators: true,
	})
	assert.NoError(t, err)

	room.Submit(JoinRoom{Username: "bob"})
	room.Submit(JoinRoom{Username: "eve"})
	f.rec.waitFor(t, "lobby_member_joined", 2, time.Second)

	room.Submit(KickFromLobby{Username: "ana", Target: "bob"})
	left := f.rec.waitFor(t, "player_left", 1, time.Second)
	assert.Equal(t, "bob", left.Payload["username"])
	assert.Equal(t, "kicked", left.Payload["reason"])

	// Neither door lets a banned identity back in
	room.Submit(JoinRoom{Username: "bob"})
	rejected := f.rec.waitFor(t, "command_rejected", 1, time.Second)
	assert.Equal(t, []string{"bob"}, rejected.Recipients)
	assert.Equal(t, string(KindAuthorization), rejected.Payload["kind"])

	room.Submit(SpectateRoom{Username: "bob"})
	rejected = f.rec.waitFor(t, "command_rejected", 2, time.Second)
	assert.Equal(t, []string{"bob"}, rejected.Recipients)
	assert.Equal(t, string(KindAuthorization), rejected.Payload["kind"])

	// Only the admin kicks
	room.Submit(KickFromLobby{Username: "eve", Target: "ana"})
	rejected = f.rec.waitFor(t, "command_rejected", 3, time.Second)
	assert.Equal(t, []string{"eve"}, rejected.Recipients)
	assert.Equal(t, string(KindAuthorization), rejected.Payload["kind"])
	assert.Equal(t, 1, f.rec.count("player_left"))
}

func TestChargeFailureReturnsPlayerToLobby(t *testing.T) {
	// bob can't afford the fee; ana's charge goes through and must not
	// be rolled back, bob falls back to the lobby.
	f := newFixture(t, map[string]int64{"ana": 5000, "bob": 100}, testOptions())

	room, err := f.dir.CreateRoom(CreateRoomParams{
		Name:        "broke",
		GameVariant: "dicerace",
		Admin:       "ana",
		FeeCents:    1000,
		MaxPlayers:  2,
	})
	assert.NoError(t, err)

	room.Submit(JoinRoom{Username: "bob"})
	room.Submit(SelectPlayer{Username: "ana", Target: "ana"})
	room.Submit(SelectPlayer{Username: "ana", Target: "bob"})

	aborted := f.rec.waitFor(t, "selection_aborted", 1, time.Second)
	assert.Equal(t, "bob", aborted.Payload["username"])

	rejected, ok := f.rec.find("command_rejected")
	assert.True(t, ok)
	assert.Equal(t, []string{"bob"}, rejected.Recipients)
	assert.Equal(t, string(KindFinancial), rejected.Payload["kind"])

	assert.Equal(t, int64(4000), f.ledger.balance("ana"))
	assert.Equal(t, int64(100), f.ledger.balance("bob"))
	assert.Equal(t, "selecting", room.Summary().Status)
}

// ---------------------------------------------------------------
// Chat routing through a live room
// ---------------------------------------------------------------

func TestChatRoutingInProgress(t *testing.T) {
	f := newFixture(t, map[string]int64{"ana": 5000, "bob": 5000}, testOptions())

	room := f.startMatch(t, CreateRoomParams{
		Name:            "chatty",
		GameVariant:     "dicerace",
		Admin:           "ana",
		FeeCents:        500,
		MaxPlayers:      2,
		AllowSpectators: true,
	}, []string{"ana", "bob"})

	room.Submit(SpectateRoom{Username: "zoe"})
	f.rec.waitFor(t, "spectator_joined", 1, time.Second)

	// Player message on the players channel reaches players and the
	// read-only spectator.
	room.Submit(ChatSend{Username: "ana", Channel: ChannelPlayers, Message: "gl"})
	msg := f.rec.waitFor(t, "chat_message", 1, time.Second)
	assert.ElementsMatch(t, []string{"ana", "bob", "zoe"}, msg.Recipients)

	// Spectator writing to the players channel is an authorization error
	room.Submit(ChatSend{Username: "zoe", Channel: ChannelPlayers, Message: "psst"})
	rejected := f.rec.waitFor(t, "command_rejected", 1, time.Second)
	assert.Equal(t, []string{"zoe"}, rejected.Recipients)
	assert.Equal(t, string(KindAuthorization), rejected.Payload["kind"])

	// The lobby channel is gone entirely once the match runs
	room.Submit(ChatSend{Username: "ana", Channel: ChannelLobby, Message: "anyone?"})
	rejected = f.rec.waitFor(t, "command_rejected", 2, time.Second)
	assert.Equal(t, []string{"ana"}, rejected.Recipients)
	assert.Equal(t, 1, f.rec.count("chat_message"))
}

// ---------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------

func roomIDOf(t *testing.T, d *Directory, name string) string {
	t.Helper()
	for _, s := range d.List("") {
		if s.Name == name {
			return s.RoomID
		}
	}
	t.Fatalf("no live room named %q", name)
	return ""
}
