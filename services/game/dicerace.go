package game

import (
	"math/rand"

	game_constants "Garito/constants/game"
)

/*
 * DiceRace: every player rolls two dice per turn in seating order, scores
 * accumulate, first past the target wins. If several players share the top
 * score when the deciding round completes, only the tied leaders re-draw,
 * one roll each, until a single leader remains. The re-draw loop is
 * bounded; past the bound a winner is picked uniformly among the still
 * tied set and a tiebreak_forced update is emitted so the oddity shows up
 * in any monitoring of the event stream.
 */
type DiceRace struct {
	target   int
	maxIters int
}

type raceState struct {
	players []string
	scores  map[string]int
	turn    int // index into players
	round   int
	rng     *rand.Rand
	decided bool
	winner  string
}

func NewDiceRace(target, maxIters int) *DiceRace {
	return &DiceRace{target: target, maxIters: maxIters}
}

func (d *DiceRace) Variant() string { return game_constants.VARIANT_DICE_RACE }

func (d *DiceRace) Start(players []string, rng *rand.Rand) (State, []Update) {
	st := &raceState{
		players: append([]string{}, players...),
		scores:  make(map[string]int, len(players)),
		round:   1,
		rng:     rng,
	}
	for _, p := range players {
		st.scores[p] = 0
	}
	return st, []Update{{
		Name: "race_started",
		Payload: map[string]interface{}{
			"players": st.players,
			"target":  d.target,
		},
	}}
}

func (d *DiceRace) Apply(s State, actor string, a Action) (State, []Update, bool, error) {
	st := s.(*raceState)
	if st.decided {
		return st, nil, false, ErrAlreadyDecided
	}
	if a.Type != "roll" {
		return st, nil, false, ErrInvalidMove
	}
	if st.players[st.turn] != actor {
		return st, nil, false, ErrNotYourTurn
	}

	next := st.clone()
	roll := next.rng.Intn(6) + 1 + next.rng.Intn(6) + 1
	next.scores[actor] += roll

	updates := []Update{{
		Name: "dice_rolled",
		Payload: map[string]interface{}{
			"username": actor,
			"roll":     roll,
			"score":    next.scores[actor],
			"round":    next.round,
		},
	}}

	next.turn++
	if next.turn < len(next.players) {
		return next, updates, false, nil
	}

	// Round complete
	next.turn = 0
	leaders, top := next.leaders()
	if top < d.target {
		next.round++
		return next, updates, false, nil
	}

	winner, tieUpdates := d.resolveTie(leaders, next.rng)
	updates = append(updates, tieUpdates...)
	next.decided = true
	next.winner = winner
	updates = append(updates, Update{
		Name: "race_decided",
		Payload: map[string]interface{}{
			"winner": winner,
			"scores": copyScores(next.scores),
		},
	})
	return next, updates, true, nil
}

// resolveTie re-draws among the tied leaders until one remains or the
// iteration bound is hit. Always returns exactly one winner.
func (d *DiceRace) resolveTie(tied []string, rng *rand.Rand) (string, []Update) {
	if len(tied) == 1 {
		return tied[0], nil
	}
	var updates []Update
	for i := 0; i < d.maxIters; i++ {
		draws := make(map[string]int, len(tied))
		best := 0
		for _, p := range tied {
			roll := rng.Intn(6) + 1 + rng.Intn(6) + 1
			draws[p] = roll
			if roll > best {
				best = roll
			}
		}
		var still []string
		for _, p := range tied {
			if draws[p] == best {
				still = append(still, p)
			}
		}
		updates = append(updates, Update{
			Name: "tiebreak_draw",
			Payload: map[string]interface{}{
				"iteration": i + 1,
				"draws":     draws,
			},
		})
		tied = still
		if len(tied) == 1 {
			return tied[0], updates
		}
	}
	winner := tied[rng.Intn(len(tied))]
	updates = append(updates, Update{
		Name: "tiebreak_forced",
		Payload: map[string]interface{}{
			"candidates": append([]string{}, tied...),
			"winner":     winner,
		},
	})
	return winner, updates
}

func (d *DiceRace) Result(s State) (*MatchResult, bool) {
	st := s.(*raceState)
	if !st.decided {
		return nil, false
	}
	return &MatchResult{Scores: copyScores(st.scores), Winner: st.winner}, true
}

func (d *DiceRace) CurrentTurn(s State) string {
	st := s.(*raceState)
	if st.decided {
		return ""
	}
	return st.players[st.turn]
}

func (d *DiceRace) DefaultAction(s State, actor string) Action {
	// Timed-out or auto-played players just roll
	return Action{Type: "roll"}
}

func (d *DiceRace) PublicState(s State) map[string]interface{} {
	st := s.(*raceState)
	return map[string]interface{}{
		"variant": d.Variant(),
		"target":  d.target,
		"players": st.players,
		"scores":  copyScores(st.scores),
		"turn":    d.CurrentTurn(s),
		"round":   st.round,
		"decided": st.decided,
		"winner":  st.winner,
	}
}

func (st *raceState) clone() *raceState {
	c := *st
	c.scores = copyScores(st.scores)
	return &c
}

func (st *raceState) leaders() ([]string, int) {
	top := -1
	for _, p := range st.players {
		if st.scores[p] > top {
			top = st.scores[p]
		}
	}
	var tied []string
	for _, p := range st.players {
		if st.scores[p] == top {
			tied = append(tied, p)
		}
	}
	return tied, top
}

func copyScores(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
