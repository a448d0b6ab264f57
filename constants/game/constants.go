package game_constants

import "time"

const MaxPlayersPerRoom = 8
const MinPlayersPerRoom = 2
const WIN_PERCENTAGE = 60 // winner takes this % of the pot

// Entry fee bounds, in cents
const (
	MIN_ENTRY_FEE = 100
	MAX_ENTRY_FEE = 100000
)

// Engine timing
const (
	ReadyTimeout     = 30 * time.Second
	TurnTimeout      = 20 * time.Second
	DisconnectGrace  = 30 * time.Second
	CloseGracePeriod = 60 * time.Second
)

// Game variant tags
const VARIANT_DICE_RACE = "dicerace"
const VARIANT_BOARD_MATCH = "boardmatch"

// Dice race tuning
const DICE_RACE_TARGET = 50
const MAX_TIEBREAK_ITERATIONS = 10

// Board match tuning
const BOARD_MATCH_WIN_THRESHOLD = 2 // first to 2 game wins

// Chat messages kept in the room for rejoin replay (full history lives in Redis)
const CHAT_REPLAY_WINDOW = 30

// Room command queue depth
const ROOM_INBOX_SIZE = 256
