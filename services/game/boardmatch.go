package game

import (
	"math/rand"

	game_constants "Garito/constants/game"
)

/*
 * BoardMatch: two players, three-in-a-row on a 3x3 board, best-of-N.
 * First mover reverses after every decided game, draws included, so
 * neither player keeps the opening advantage. The match ends when a
 * player reaches the win threshold. A timed-out turn forfeits the
 * current game (the variant's declared default-action policy).
 */
type BoardMatch struct {
	winThreshold int
}

type boardState struct {
	players    [2]string
	gameWins   map[string]int
	board      [9]int // 0 empty, 1 = players[0], 2 = players[1]
	firstMover int    // index of this game's opening player
	turn       int    // index of the player to move
	game       int    // 1-based
	decided    bool
	winner     string
}

func NewBoardMatch(winThreshold int) *BoardMatch {
	return &BoardMatch{winThreshold: winThreshold}
}

func (b *BoardMatch) Variant() string { return game_constants.VARIANT_BOARD_MATCH }

func (b *BoardMatch) Start(players []string, rng *rand.Rand) (State, []Update) {
	st := &boardState{
		players:  [2]string{players[0], players[1]},
		gameWins: map[string]int{players[0]: 0, players[1]: 0},
		game:     1,
	}
	return st, []Update{{
		Name: "match_started",
		Payload: map[string]interface{}{
			"players":       players,
			"win_threshold": b.winThreshold,
			"first_mover":   st.players[st.firstMover],
		},
	}}
}

func (b *BoardMatch) Apply(s State, actor string, a Action) (State, []Update, bool, error) {
	st := s.(*boardState)
	if st.decided {
		return st, nil, false, ErrAlreadyDecided
	}
	if st.players[st.turn] != actor {
		return st, nil, false, ErrNotYourTurn
	}

	switch a.Type {
	case "place":
		cell, ok := cellIndex(a.Data)
		if !ok || cell < 0 || cell > 8 {
			return st, nil, false, ErrInvalidMove
		}
		if st.board[cell] != 0 {
			return st, nil, false, ErrInvalidMove
		}
		next := st.clone()
		mark := next.turn + 1
		next.board[cell] = mark

		updates := []Update{{
			Name: "piece_placed",
			Payload: map[string]interface{}{
				"username": actor,
				"cell":     cell,
				"game":     next.game,
			},
		}}

		if hasLine(next.board, mark) {
			more, terminal := b.endGame(next, actor)
			return next, append(updates, more...), terminal, nil
		}
		if boardFull(next.board) {
			more, _ := b.endGame(next, "")
			return next, append(updates, more...), false, nil
		}
		next.turn = 1 - next.turn
		return next, updates, false, nil

	case "forfeit":
		next := st.clone()
		opponent := next.players[1-next.turn]
		updates := []Update{{
			Name: "game_forfeited",
			Payload: map[string]interface{}{
				"username": actor,
				"game":     next.game,
			},
		}}
		more, terminal := b.endGame(next, opponent)
		return next, append(updates, more...), terminal, nil

	default:
		return st, nil, false, ErrInvalidMove
	}
}

// endGame records a decided or drawn game, reverses the opener and either
// terminates the match or deals the next board. gameWinner is "" on a draw.
func (b *BoardMatch) endGame(st *boardState, gameWinner string) ([]Update, bool) {
	payload := map[string]interface{}{"game": st.game}
	name := "game_drawn"
	if gameWinner != "" {
		st.gameWins[gameWinner]++
		name = "game_won"
		payload["username"] = gameWinner
		payload["game_wins"] = st.gameWins[gameWinner]
	}
	updates := []Update{{Name: name, Payload: payload}}

	if gameWinner != "" && st.gameWins[gameWinner] >= b.winThreshold {
		st.decided = true
		st.winner = gameWinner
		updates = append(updates, Update{
			Name: "match_decided",
			Payload: map[string]interface{}{
				"winner": gameWinner,
				"scores": copyScores(st.gameWins),
			},
		})
		return updates, true
	}

	st.game++
	st.board = [9]int{}
	st.firstMover = 1 - st.firstMover
	st.turn = st.firstMover
	updates = append(updates, Update{
		Name: "next_game",
		Payload: map[string]interface{}{
			"game":        st.game,
			"first_mover": st.players[st.firstMover],
		},
	})
	return updates, false
}

func (b *BoardMatch) Result(s State) (*MatchResult, bool) {
	st := s.(*boardState)
	if !st.decided {
		return nil, false
	}
	return &MatchResult{Scores: copyScores(st.gameWins), Winner: st.winner}, true
}

func (b *BoardMatch) CurrentTurn(s State) string {
	st := s.(*boardState)
	if st.decided {
		return ""
	}
	return st.players[st.turn]
}

func (b *BoardMatch) DefaultAction(s State, actor string) Action {
	return Action{Type: "forfeit"}
}

func (b *BoardMatch) PublicState(s State) map[string]interface{} {
	st := s.(*boardState)
	return map[string]interface{}{
		"variant":     b.Variant(),
		"players":     st.players[:],
		"game_wins":   copyScores(st.gameWins),
		"board":       st.board[:],
		"game":        st.game,
		"first_mover": st.players[st.firstMover],
		"turn":        b.CurrentTurn(s),
		"decided":     st.decided,
		"winner":      st.winner,
	}
}

func (st *boardState) clone() *boardState {
	c := *st
	c.gameWins = copyScores(st.gameWins)
	return &c
}

func cellIndex(data map[string]interface{}) (int, bool) {
	raw, ok := data["cell"]
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case float64: // JSON numbers decode as float64
		return int(v), true
	case int:
		return v, true
	default:
		return 0, false
	}
}

var lines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

func hasLine(board [9]int, mark int) bool {
	for _, l := range lines {
		if board[l[0]] == mark && board[l[1]] == mark && board[l[2]] == mark {
			return true
		}
	}
	return false
}

func boardFull(board [9]int) bool {
	for _, c := range board {
		if c == 0 {
			return false
		}
	}
	return true
}
