package rooms

import (
	"fmt"
	"log"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	game_constants "Garito/constants/game"
	"Garito/services/game"

	"golang.org/x/crypto/bcrypt"
)

// Rooms are addressed by short join codes, easier to share than a UUID.
const roomCodeLength = 6
const roomCodeCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func newRoomCode(length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = roomCodeCharset[rand.Intn(len(roomCodeCharset))]
	}
	return string(b)
}

type CreateRoomParams struct {
	Name            string
	GameVariant     string
	Admin           string
	FeeCents        int64
	MaxPlayers      int
	AllowSpectators bool
	Password        string // empty for an open room
}

/*
 * Directory is the process-wide registry of live rooms. It routes inbound
 * commands to the right room actor, serves the listing projection and
 * implements the registry's presence watcher so a vanished identity
 * reaches the room(s) that care. It never reads room internals: listings
 * come from the summary snapshots each actor publishes.
 */
type Directory struct {
	deps Deps

	mu      sync.RWMutex
	rooms   map[string]*Room
	names   map[string]string          // display name -> room id
	active  map[string]string          // active player -> room id (at most one)
	members map[string]map[string]bool // any member -> room ids
}

func NewDirectory(deps Deps) *Directory {
	if deps.Opts == (Options{}) {
		deps.Opts = DefaultOptions()
	}
	if deps.Sink == nil {
		deps.Sink = func(string, Event) {}
	}
	if deps.Store == nil {
		deps.Store = noopStore{}
	}
	return &Directory{
		deps:    deps,
		rooms:   make(map[string]*Room),
		names:   make(map[string]string),
		active:  make(map[string]string),
		members: make(map[string]map[string]bool),
	}
}

func (d *Directory) CreateRoom(params CreateRoomParams) (*Room, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, errRule("room name is required")
	}
	if params.FeeCents < game_constants.MIN_ENTRY_FEE || params.FeeCents > game_constants.MAX_ENTRY_FEE {
		return nil, errRule("entry fee out of range")
	}
	rules, err := game.ForVariant(params.GameVariant)
	if err != nil {
		return nil, errRule("%v", err)
	}
	if params.GameVariant == game_constants.VARIANT_BOARD_MATCH && params.MaxPlayers != 2 {
		return nil, errRule("board match rooms take exactly 2 players")
	}
	if params.MaxPlayers < game_constants.MinPlayersPerRoom || params.MaxPlayers > game_constants.MaxPlayersPerRoom {
		return nil, errRule("max_players out of range")
	}

	var passwordHash string
	if params.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("error hashing room password: %w", err)
		}
		passwordHash = string(hash)
	}

	seed := d.deps.Opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	r := &Room{
		DisplayName:     name,
		Variant:         params.GameVariant,
		AdminUsername:   params.Admin,
		FeeCents:        params.FeeCents,
		MaxPlayers:      params.MaxPlayers,
		AllowSpectators: params.AllowSpectators,
		CreatedAt:       time.Now(),
		passwordHash:    passwordHash,
		deps:            d.deps,
		dir:             d,
		inbox:           make(chan Command, d.deps.Opts.InboxSize),
		state:           StateForming,
		lobby:           map[string]bool{params.Admin: true},
		selected:        make(map[string]bool),
		players:         make(map[string]*Player),
		spectators:      make(map[string]bool),
		banned:          make(map[string]bool),
		rules:           rules,
		rng:             rand.New(rand.NewSource(seed)),
		chat:            newChatRouter(),
		records:         make(map[string]*DisconnectRecord),
	}

	d.mu.Lock()
	if _, taken := d.names[name]; taken {
		d.mu.Unlock()
		return nil, errRule("a room named %q already exists", name)
	}
	// Collisions against live rooms are rare in this id space, but
	// the loop costs nothing.
	r.ID = newRoomCode(roomCodeLength)
	for _, taken := d.rooms[r.ID]; taken; _, taken = d.rooms[r.ID] {
		r.ID = newRoomCode(roomCodeLength)
	}
	d.names[name] = r.ID
	d.rooms[r.ID] = r
	d.mu.Unlock()

	d.trackMember(params.Admin, r.ID)
	r.refreshSummary()
	go r.run()

	log.Printf("[DIRECTORY] Room %s (%s) created by %s, variant %s", r.ID, name, params.Admin, params.GameVariant)
	return r, nil
}

func (d *Directory) Get(roomID string) (*Room, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.rooms[roomID]
	return r, ok
}

// Submit routes a command to a room. Commands for rooms that already left
// the directory get a stale-room error, never silence.
func (d *Directory) Submit(roomID string, cmd Command) error {
	r, ok := d.Get(roomID)
	if !ok {
		return ErrRoomClosed
	}
	return r.Submit(cmd)
}

// List returns the listing projection, optionally filtered by variant.
func (d *Directory) List(variant string) []RoomSummary {
	d.mu.RLock()
	rooms := make([]*Room, 0, len(d.rooms))
	for _, r := range d.rooms {
		rooms = append(rooms, r)
	}
	d.mu.RUnlock()

	out := make([]RoomSummary, 0, len(rooms))
	for _, r := range rooms {
		s := r.currentSummary()
		if variant != "" && s.GameVariant != variant {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ---------------------------------------------------------------
// rooms.PresenceWatcher
// ---------------------------------------------------------------

func (d *Directory) OnOnline(identity string) {
	for _, roomID := range d.roomsOf(identity) {
		if err := d.Submit(roomID, playerOnline{username: identity}); err != nil {
			log.Printf("[DIRECTORY] Online notice for %s dropped by room %s: %v", identity, roomID, err)
		}
	}
}

func (d *Directory) OnOffline(identity string) {
	for _, roomID := range d.roomsOf(identity) {
		if err := d.Submit(roomID, playerOffline{username: identity}); err != nil {
			log.Printf("[DIRECTORY] Offline notice for %s dropped by room %s: %v", identity, roomID, err)
		}
	}
}

func (d *Directory) roomsOf(identity string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.members[identity]))
	for roomID := range d.members[identity] {
		out = append(out, roomID)
	}
	return out
}

// ---------------------------------------------------------------
// Bookkeeping called by room actors
// ---------------------------------------------------------------

func (d *Directory) trackMember(username, roomID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	set, ok := d.members[username]
	if !ok {
		set = make(map[string]bool)
		d.members[username] = set
	}
	set[roomID] = true
}

func (d *Directory) untrackMember(username, roomID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.members[username], roomID)
	if len(d.members[username]) == 0 {
		delete(d.members, username)
	}
}

// bindActive enforces the one-active-room-per-identity invariant.
func (d *Directory) bindActive(username, roomID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if other, ok := d.active[username]; ok && other != roomID {
		return &EngineError{
			Kind:    KindFatal,
			Message: fmt.Sprintf("identity %s already active in room %s", username, other),
		}
	}
	d.active[username] = roomID
	return nil
}

func (d *Directory) unbindActive(username, roomID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active[username] == roomID {
		delete(d.active, username)
	}
}

func (d *Directory) removeRoom(r *Room) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.rooms, r.ID)
	if d.names[r.DisplayName] == r.ID {
		delete(d.names, r.DisplayName)
	}
}
