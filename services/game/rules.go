package game

import (
	"errors"
	"fmt"
	"math/rand"

	game_constants "Garito/constants/game"
)

// Rule violations surfaced to the acting player only. The room never
// broadcasts these and never mutates state when one is returned.
var (
	ErrNotYourTurn    = errors.New("not your turn")
	ErrInvalidMove    = errors.New("invalid move")
	ErrAlreadyDecided = errors.New("match already decided")
)

// Action is a client move, opaque to the room.
type Action struct {
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data,omitempty"`
}

// Update is an event a variant wants broadcast to the room audience.
type Update struct {
	Name    string
	Payload map[string]interface{}
}

// MatchResult carries final per-player scores and the winner.
// Winner is empty for variants that can end in a draw.
type MatchResult struct {
	Scores map[string]int
	Winner string
}

// State is the in-progress match data. The room treats it as opaque and
// replaces it wholesale on every accepted action, never mutating it.
type State interface{}

/*
 * Rules is the uniform contract every game variant implements. All methods
 * are deterministic given their inputs; the only randomness comes from the
 * *rand.Rand handed to Start, which the variant must keep using.
 */
type Rules interface {
	Variant() string

	// Start deals the initial state for the given seating order.
	Start(players []string, rng *rand.Rand) (State, []Update)

	// Apply plays one action for actor. Returns the replacement state,
	// updates to broadcast and whether the match just became terminal.
	// On a rule violation the original state stands untouched.
	Apply(st State, actor string, a Action) (State, []Update, bool, error)

	// Result returns the match result once terminal, (nil, false) before.
	Result(st State) (*MatchResult, bool)

	// CurrentTurn names the player whose action is awaited ("" if none).
	CurrentTurn(st State) string

	// DefaultAction is the variant's declared policy for a turn that
	// timed out or belongs to an auto-played player.
	DefaultAction(st State, actor string) Action

	// PublicState is a redacted snapshot safe to replay to reconnecting
	// participants.
	PublicState(st State) map[string]interface{}
}

// ForVariant builds a fresh Rules value for a variant tag.
func ForVariant(tag string) (Rules, error) {
	switch tag {
	case game_constants.VARIANT_DICE_RACE:
		return NewDiceRace(game_constants.DICE_RACE_TARGET, game_constants.MAX_TIEBREAK_ITERATIONS), nil
	case game_constants.VARIANT_BOARD_MATCH:
		return NewBoardMatch(game_constants.BOARD_MATCH_WIN_THRESHOLD), nil
	default:
		return nil, fmt.Errorf("unknown game variant: %s", tag)
	}
}
