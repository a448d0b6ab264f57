package rooms

import (
	"math/rand"
	"sync"
	"time"

	game_constants "Garito/constants/game"
	"Garito/services/game"
	"Garito/services/ledger"
)

type RoomState int

const (
	StateForming RoomState = iota
	StateSelecting
	StateAwaitingReady
	StateInProgress
	StateFinished
	StateClosed
)

func (s RoomState) String() string {
	switch s {
	case StateForming:
		return "forming"
	case StateSelecting:
		return "selecting"
	case StateAwaitingReady:
		return "awaiting_ready"
	case StateInProgress:
		return "in_progress"
	case StateFinished:
		return "finished"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Player is one active (selected and charged) participant.
type Player struct {
	Username   string
	FeeReceipt string
	Ready      bool
	Connected  bool
	AutoPlay   bool // permanent once set (kick or voluntary leave mid-game)
	Kicked     bool // kicked players cannot rejoin
}

// Options carries the engine tuning knobs. Tests shrink the timeouts.
type Options struct {
	ReadyTimeout    time.Duration
	TurnTimeout     time.Duration
	DisconnectGrace time.Duration
	CloseGrace      time.Duration
	WinPercentage   int
	InboxSize       int
	Seed            int64 // 0 means seed from the clock
}

func DefaultOptions() Options {
	return Options{
		ReadyTimeout:    game_constants.ReadyTimeout,
		TurnTimeout:     game_constants.TurnTimeout,
		DisconnectGrace: game_constants.DisconnectGrace,
		CloseGrace:      game_constants.CloseGracePeriod,
		WinPercentage:   game_constants.WIN_PERCENTAGE,
		InboxSize:       game_constants.ROOM_INBOX_SIZE,
	}
}

// Deps are the external collaborators of every room.
type Deps struct {
	Ledger ledger.Service
	Store  Store
	Sink   Sink
	Opts   Options
}

/*
 * Room owns one game session. All fields below the inbox are owned by the
 * room's single goroutine: nothing outside the command loop reads or
 * writes them. External code interacts through Submit and the event sink.
 */
type Room struct {
	ID              string
	DisplayName     string
	Variant         string
	AdminUsername   string
	FeeCents        int64
	MaxPlayers      int
	AllowSpectators bool
	CreatedAt       time.Time

	passwordHash string
	deps         Deps
	dir          *Directory

	inbox  chan Command
	haltMu sync.RWMutex
	halted bool

	// ---- actor-owned state from here on ----
	state         RoomState
	lobby         map[string]bool
	selected      map[string]bool
	selectedOrder []string
	players       map[string]*Player
	order         []string // seating order (activation order)
	spectators    map[string]bool
	banned        map[string]bool

	rules     game.Rules
	gameState game.State
	rng       *rand.Rand

	chat    *chatRouter
	records map[string]*DisconnectRecord

	payout      *PayoutResult
	matchResult *game.MatchResult

	readyEpoch uint64
	turnEpoch  uint64
	closeEpoch uint64
	timerEpoch uint64 // shared counter all epochs draw from

	readyTimer *time.Timer
	turnTimer  *time.Timer
	closeTimer *time.Timer

	summaryMu sync.RWMutex
	summary   RoomSummary
}

// Submit enqueues a command for the room's single writer. It never blocks:
// a full inbox is a capacity error and a closed room a stale-room error.
func (r *Room) Submit(cmd Command) error {
	r.haltMu.RLock()
	defer r.haltMu.RUnlock()
	if r.halted {
		return ErrRoomClosed
	}
	select {
	case r.inbox <- cmd:
		return nil
	default:
		return ErrRoomBusy
	}
}

func (r *Room) markHalted() {
	r.haltMu.Lock()
	r.halted = true
	r.haltMu.Unlock()
}

// run is the room's only goroutine. Commands take effect strictly in
// arrival order; the loop exits once the room reaches Closed.
func (r *Room) run() {
	for cmd := range r.inbox {
		r.handle(cmd)
		if r.state == StateClosed {
			return
		}
	}
}

// nextEpoch invalidates every outstanding timer of the kind that reads it.
func (r *Room) nextEpoch() uint64 {
	r.timerEpoch++
	return r.timerEpoch
}

func (r *Room) stopTimer(t *time.Timer) {
	if t != nil {
		t.Stop()
	}
}

// RoomSummary is the directory-listing projection. It never carries the
// banned set or round-state contents.
type RoomSummary struct {
	RoomID            string   `json:"room_id"`
	Name              string   `json:"name"`
	Status            string   `json:"status"`
	GameVariant       string   `json:"game_variant"`
	PlayerCount       int      `json:"player_count"`
	MaxPlayers        int      `json:"max_players"`
	SpectatorCount    int      `json:"spectator_count"`
	AllowSpectators   bool     `json:"allow_spectators"`
	PasswordProtected bool     `json:"is_password_protected"`
	EntryFeeCents     int64    `json:"entry_fee_cents"`
	rejoinable        []string // active, connected-or-not, non-kicked players of a running match
}

// refreshSummary publishes a read-only snapshot for directory listings.
// Called by the actor after every handled command.
func (r *Room) refreshSummary() {
	s := RoomSummary{
		RoomID:            r.ID,
		Name:              r.DisplayName,
		Status:            r.state.String(),
		GameVariant:       r.Variant,
		PlayerCount:       len(r.players),
		MaxPlayers:        r.MaxPlayers,
		SpectatorCount:    len(r.spectators),
		AllowSpectators:   r.AllowSpectators,
		PasswordProtected: r.passwordHash != "",
		EntryFeeCents:     r.FeeCents,
	}
	if r.state == StateInProgress || r.state == StateAwaitingReady {
		for _, p := range r.players {
			if !p.Kicked {
				s.rejoinable = append(s.rejoinable, p.Username)
			}
		}
	}
	r.summaryMu.Lock()
	r.summary = s
	r.summaryMu.Unlock()
}

func (r *Room) currentSummary() RoomSummary {
	r.summaryMu.RLock()
	defer r.summaryMu.RUnlock()
	return r.summary
}

// Summary returns the last snapshot the actor published. Safe from any
// goroutine; never blocks on the actor.
func (r *Room) Summary() RoomSummary {
	return r.currentSummary()
}

// CanRejoin reports whether the identity may reattach to a running match.
func (s RoomSummary) CanRejoin(identity string) bool {
	for _, u := range s.rejoinable {
		if u == identity {
			return true
		}
	}
	return false
}
