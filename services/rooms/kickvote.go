package rooms

import "time"

/*
 * DisconnectRecord tracks one disconnection episode of an active player.
 * Created when the registry reports zero sessions, cleared on reconnect
 * or on a successful kick; votes never leak across episodes because the
 * whole record is discarded.
 */
type DisconnectRecord struct {
	Username       string
	DisconnectedAt time.Time
	Deadline       time.Time
	epoch          uint64 // guards the deadline timer
	open           bool   // true once the deadline passed and voting opened
	votes          map[string]bool
	timer          *time.Timer
}

func newDisconnectRecord(username string, now time.Time, grace time.Duration, epoch uint64) *DisconnectRecord {
	return &DisconnectRecord{
		Username:       username,
		DisconnectedAt: now,
		Deadline:       now.Add(grace),
		epoch:          epoch,
		votes:          make(map[string]bool),
	}
}

// CastVote records a vote. Duplicate votes are ignored; the return
// value says whether this vote was new.
func (r *DisconnectRecord) CastVote(voter string) bool {
	if r.votes[voter] {
		return false
	}
	r.votes[voter] = true
	return true
}

func (r *DisconnectRecord) VoteCount() int { return len(r.votes) }

// RequiredVotes is ceil((n-1)/2) for n active players: a simple majority
// of the players remaining once the disconnected one is excluded.
// n=2 -> 1, n=3 -> 1, n=4 -> 2, n=5 -> 2, n=10 -> 5.
func RequiredVotes(activePlayers int) int {
	if activePlayers < 2 {
		return 1
	}
	return activePlayers / 2
}
