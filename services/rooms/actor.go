package rooms

import (
	"log"
	"time"

	"Garito/services/game"
	"Garito/services/ledger"

	"golang.org/x/crypto/bcrypt"
)

// handle processes exactly one command. It runs on the room goroutine,
// which is the only code allowed to touch room state.
func (r *Room) handle(cmd Command) {
	if r.state == StateClosed {
		return
	}

	switch c := cmd.(type) {
	case JoinRoom:
		r.handleJoin(c)
	case SpectateRoom:
		r.handleSpectate(c)
	case SelectPlayer:
		r.handleSelect(c)
	case Ready:
		r.handleReady(c)
	case GameAction:
		r.handleGameAction(c)
	case ChatSend:
		r.handleChat(c)
	case VoteKick:
		r.handleVoteKick(c)
	case KickFromLobby:
		r.handleKickFromLobby(c)
	case LeaveRoom:
		r.handleLeave(c.Username)
	case Rejoin:
		r.handleRejoin(c)
	case playerOffline:
		r.handleOffline(c.username)
	case playerOnline:
		r.handleOnline(c.username)
	case readyTimeout:
		r.handleReadyTimeout(c)
	case turnTimeout:
		r.handleTurnTimeout(c)
	case disconnectDeadline:
		r.handleDisconnectDeadline(c)
	case closeTimeout:
		r.handleCloseTimeout(c)
	default:
		log.Printf("[ROOM-WARN] Room %s ignoring unknown command %T", r.ID, cmd)
	}

	if r.state != StateClosed {
		r.checkInvariants()
	}
	r.refreshSummary()
}

// ---------------------------------------------------------------
// Admission
// ---------------------------------------------------------------

func (r *Room) handleJoin(c JoinRoom) {
	if r.state != StateForming && r.state != StateSelecting {
		r.rejectCommand(c.Username, errCapacity("room %s already started", r.ID))
		return
	}
	if r.banned[c.Username] {
		r.rejectCommand(c.Username, errAuthorization("you are banned from this room"))
		return
	}
	if r.roleOf(c.Username) != RoleNone {
		r.rejectCommand(c.Username, errRule("already in this room"))
		return
	}
	if !r.checkPassword(c.Password) {
		r.rejectCommand(c.Username, errAuthorization("wrong room password"))
		return
	}

	r.lobby[c.Username] = true
	r.dir.trackMember(c.Username, r.ID)

	r.emit("room_joined", ToUser, c.Username, map[string]interface{}{
		"room_id":      r.ID,
		"name":         r.DisplayName,
		"game_variant": r.Variant,
		"entry_fee":    r.FeeCents,
		"max_players":  r.MaxPlayers,
		"chat_replay":  r.chat.replay(ChannelLobby),
	})
	r.emit("lobby_member_joined", ToRoom, "", map[string]interface{}{
		"username": c.Username,
	})
}

func (r *Room) handleSpectate(c SpectateRoom) {
	if !r.AllowSpectators {
		r.rejectCommand(c.Username, errAuthorization("room does not allow spectators"))
		return
	}
	if r.state == StateFinished || r.state == StateClosed {
		r.rejectCommand(c.Username, errCapacity("room %s already finished", r.ID))
		return
	}
	if r.banned[c.Username] {
		r.rejectCommand(c.Username, errAuthorization("you are banned from this room"))
		return
	}
	if r.roleOf(c.Username) != RoleNone {
		r.rejectCommand(c.Username, errRule("already in this room"))
		return
	}
	if !r.checkPassword(c.Password) {
		r.rejectCommand(c.Username, errAuthorization("wrong room password"))
		return
	}

	r.spectators[c.Username] = true
	r.dir.trackMember(c.Username, r.ID)

	payload := map[string]interface{}{
		"room_id":     r.ID,
		"name":        r.DisplayName,
		"chat_replay": append(r.chat.replay(ChannelPlayers), r.chat.replay(ChannelSpectators)...),
	}
	if r.state == StateInProgress {
		payload["game"] = r.rules.PublicState(r.gameState)
	}
	r.emit("spectating", ToUser, c.Username, payload)
	r.emit("spectator_joined", ToRoom, "", map[string]interface{}{
		"username": c.Username,
	})
}

// ---------------------------------------------------------------
// Selection & charging
// ---------------------------------------------------------------

func (r *Room) handleSelect(c SelectPlayer) {
	if c.Username != r.AdminUsername {
		r.rejectCommand(c.Username, errAuthorization("only the room admin selects players"))
		return
	}
	if r.state != StateForming && r.state != StateSelecting {
		r.rejectCommand(c.Username, errCapacity("selection is closed"))
		return
	}
	if !r.lobby[c.Target] {
		r.rejectCommand(c.Username, errRule("%s is not in the lobby", c.Target))
		return
	}
	if len(r.players)+len(r.selected) >= r.MaxPlayers {
		r.rejectCommand(c.Username, errCapacity("room is full"))
		return
	}

	delete(r.lobby, c.Target)
	r.selected[c.Target] = true
	r.selectedOrder = append(r.selectedOrder, c.Target)
	r.state = StateSelecting

	r.emit("player_selected", ToRoom, "", map[string]interface{}{
		"username": c.Target,
	})

	if len(r.players)+len(r.selected) == r.MaxPlayers {
		r.chargeSelected()
	}
}

// chargeSelected charges every selected player the entry fee, in selection
// order. This deliberately blocks the room's queue: nobody becomes active
// without the ledger confirming the debit. A failed charge returns that one
// player to the lobby and leaves everyone else untouched.
func (r *Room) chargeSelected() {
	pending := r.selectedOrder
	r.selectedOrder = nil

	for _, username := range pending {
		if !r.selected[username] {
			continue
		}
		delete(r.selected, username)

		receipt, err := r.deps.Ledger.Charge(username, r.FeeCents, "entry fee for room "+r.ID)
		if err != nil {
			log.Printf("[ROOM-CHARGE] Charge failed for %s in room %s: %v", username, r.ID, err)
			r.lobby[username] = true
			if err == ledger.ErrInsufficientFunds {
				r.rejectCommand(username, errFinancial("insufficient funds for the entry fee"))
			} else {
				r.rejectCommand(username, errFinancial("entry fee charge failed"))
			}
			r.emit("selection_aborted", ToRoom, "", map[string]interface{}{
				"username": username,
			})
			continue
		}

		if err := r.dir.bindActive(username, r.ID); err != nil {
			// Last-resort breaker: one identity active in two rooms.
			r.halt(err.Error())
			return
		}
		r.players[username] = &Player{
			Username:   username,
			FeeReceipt: receipt,
			Connected:  true,
		}
		r.order = append(r.order, username)
		r.emit("player_activated", ToRoom, "", map[string]interface{}{
			"username":     username,
			"player_count": len(r.players),
		})
	}

	if len(r.players) == r.MaxPlayers {
		r.toAwaitingReady()
	}
}

func (r *Room) toAwaitingReady() {
	r.state = StateAwaitingReady
	epoch := r.nextEpoch()
	r.readyEpoch = epoch
	r.stopTimer(r.readyTimer)
	r.readyTimer = time.AfterFunc(r.deps.Opts.ReadyTimeout, func() {
		_ = r.Submit(readyTimeout{epoch: epoch})
	})
	r.emit("awaiting_ready", ToRoom, "", map[string]interface{}{
		"deadline": time.Now().Add(r.deps.Opts.ReadyTimeout),
	})
}

func (r *Room) handleReady(c Ready) {
	if r.state != StateAwaitingReady {
		r.rejectCommand(c.Username, &EngineError{Kind: KindStaleCommand, Message: "room is not awaiting ready"})
		return
	}
	p := r.players[c.Username]
	if p == nil {
		r.rejectCommand(c.Username, errAuthorization("only active players signal ready"))
		return
	}
	if p.Ready {
		return
	}
	p.Ready = true
	r.emit("player_ready", ToRoom, "", map[string]interface{}{
		"username": c.Username,
	})
	if r.allReady() {
		r.startMatch()
	}
}

func (r *Room) handleReadyTimeout(c readyTimeout) {
	// A stale timer is a no-op: the room either started or moved on.
	if r.state != StateAwaitingReady || c.epoch != r.readyEpoch {
		return
	}
	for _, p := range r.players {
		if !p.Ready {
			p.Ready = true
			r.emit("player_ready", ToRoom, "", map[string]interface{}{
				"username": p.Username,
				"auto":     true,
			})
		}
	}
	r.startMatch()
}

func (r *Room) allReady() bool {
	for _, p := range r.players {
		if !p.Ready {
			return false
		}
	}
	return len(r.players) > 0
}

// ---------------------------------------------------------------
// Match
// ---------------------------------------------------------------

func (r *Room) startMatch() {
	r.stopTimer(r.readyTimer)
	r.state = StateInProgress

	st, updates := r.rules.Start(r.order, r.rng)
	r.gameState = st

	r.emit("game_started", ToRoom, "", map[string]interface{}{
		"players": append([]string{}, r.order...),
	})
	r.broadcastUpdates(updates)
	r.saveSnapshot()
	r.scheduleTurnTimer()
	r.driveAutoPlay()
}

func (r *Room) handleGameAction(c GameAction) {
	r.applyGameAction(c.Username, c.Action, false)
	// The turn may now belong to an auto-played player.
	r.driveAutoPlay()
}

// applyGameAction runs one plugin action. isDefault marks timer- or
// auto-play-substituted actions, whose rejections are logged, not emitted.
func (r *Room) applyGameAction(username string, action game.Action, isDefault bool) {
	if r.state != StateInProgress {
		if !isDefault {
			r.rejectCommand(username, &EngineError{Kind: KindStaleCommand, Message: "no match in progress"})
		}
		return
	}
	p := r.players[username]
	if p == nil {
		r.rejectCommand(username, errAuthorization("only active players act"))
		return
	}
	if p.AutoPlay && !isDefault {
		r.rejectCommand(username, errAuthorization("player is on auto-play"))
		return
	}

	next, updates, terminal, err := r.rules.Apply(r.gameState, username, action)
	if err != nil {
		if isDefault {
			log.Printf("[ROOM-WARN] Default action rejected for %s in room %s: %v", username, r.ID, err)
			return
		}
		r.rejectCommand(username, err)
		return
	}

	r.gameState = next
	r.broadcastUpdates(updates)
	r.saveSnapshot()

	if terminal {
		r.finishMatch()
		return
	}
	r.scheduleTurnTimer()
}

// driveAutoPlay substitutes the plugin's default action for every
// consecutive turn owned by an auto-played player. The bound is a safety
// net only; game logic terminates the loop by itself.
func (r *Room) driveAutoPlay() {
	for i := 0; i < 10000 && r.state == StateInProgress; i++ {
		current := r.rules.CurrentTurn(r.gameState)
		if current == "" {
			return
		}
		p := r.players[current]
		if p == nil || !p.AutoPlay {
			return
		}
		r.applyGameAction(current, r.rules.DefaultAction(r.gameState, current), true)
	}
}

func (r *Room) scheduleTurnTimer() {
	r.stopTimer(r.turnTimer)
	current := r.rules.CurrentTurn(r.gameState)
	if current == "" {
		return
	}
	epoch := r.nextEpoch()
	r.turnEpoch = epoch
	r.turnTimer = time.AfterFunc(r.deps.Opts.TurnTimeout, func() {
		_ = r.Submit(turnTimeout{epoch: epoch})
	})
}

func (r *Room) handleTurnTimeout(c turnTimeout) {
	if r.state != StateInProgress || c.epoch != r.turnEpoch {
		return
	}
	current := r.rules.CurrentTurn(r.gameState)
	if current == "" {
		return
	}
	r.emit("turn_timed_out", ToPlayers, "", map[string]interface{}{
		"username": current,
	})
	r.applyGameAction(current, r.rules.DefaultAction(r.gameState, current), true)
	r.driveAutoPlay()
}

func (r *Room) finishMatch() {
	result, ok := r.rules.Result(r.gameState)
	if !ok {
		r.halt("plugin reported terminal without a result")
		return
	}
	r.matchResult = result
	r.stopTimer(r.turnTimer)
	r.nextEpoch() // invalidates any queued turn timer
	r.state = StateFinished

	r.computePayoutOnce()

	payload := map[string]interface{}{
		"winner":      r.payout.Winner,
		"scores":      result.Scores,
		"prize_cents": r.payout.PrizeCents,
		"pool_cents":  r.payout.PoolCents,
	}
	if r.payout.Refunds != nil {
		payload["refunds"] = r.payout.Refunds
	}
	r.emit("match_finished", ToRoom, "", payload)

	r.settlePayout()
	r.writeMatchHistory()

	// Active players are free again once the match is over.
	for _, p := range r.players {
		r.dir.unbindActive(p.Username, r.ID)
	}

	epoch := r.nextEpoch()
	r.closeEpoch = epoch
	r.closeTimer = time.AfterFunc(r.deps.Opts.CloseGrace, func() {
		_ = r.Submit(closeTimeout{epoch: epoch})
	})
}

// computePayoutOnce is idempotent: the payout for a room is computed at
// most once and immutable afterwards.
func (r *Room) computePayoutOnce() {
	if r.payout != nil {
		return
	}
	p := ComputePayout(r.order, r.matchResult.Winner, r.FeeCents, r.deps.Opts.WinPercentage)
	r.payout = &p
}

func (r *Room) settlePayout() {
	if r.payout.Winner != "" {
		if _, err := r.deps.Ledger.Credit(r.payout.Winner, r.payout.PrizeCents, "prize for room "+r.ID); err != nil {
			log.Printf("[LEDGER-ERROR] Prize credit failed for %s in room %s: %v", r.payout.Winner, r.ID, err)
		}
		return
	}
	for username, cents := range r.payout.Refunds {
		if _, err := r.deps.Ledger.Credit(username, cents, "refund for drawn match in room "+r.ID); err != nil {
			log.Printf("[LEDGER-ERROR] Refund credit failed for %s in room %s: %v", username, r.ID, err)
		}
	}
}

// writeMatchHistory attempts the durable record before the room can
// close. A failure is degradation, never a payout blocker.
func (r *Room) writeMatchHistory() {
	participants := make([]MatchParticipant, 0, len(r.order))
	for _, username := range r.order {
		p := r.players[username]
		participants = append(participants, MatchParticipant{
			Username:     username,
			FeePaidCents: r.FeeCents,
			FinalScore:   r.matchResult.Scores[username],
			Winner:       username == r.payout.Winner,
			AutoPlayed:   p != nil && p.AutoPlay,
		})
	}
	record := MatchRecord{
		RoomID:       r.ID,
		GameVariant:  r.Variant,
		Players:      append([]string{}, r.order...),
		Participants: participants,
		Scores:       r.matchResult.Scores,
		Winner:       r.payout.Winner,
		PrizeCents:   r.payout.PrizeCents,
		PoolCents:    r.payout.PoolCents,
		FinishedAt:   time.Now(),
		FinalState:   r.rules.PublicState(r.gameState),
	}
	if err := r.deps.Store.SaveMatchHistory(record); err != nil {
		log.Printf("[PERSIST-DEGRADED] Match history write failed for room %s, flagged for reconciliation: %v", r.ID, err)
	}
}

func (r *Room) handleCloseTimeout(c closeTimeout) {
	if r.state != StateFinished || c.epoch != r.closeEpoch {
		return
	}
	r.closeRoom("grace period elapsed")
}

// ---------------------------------------------------------------
// Chat
// ---------------------------------------------------------------

func (r *Room) handleChat(c ChatSend) {
	switch c.Channel {
	case ChannelLobby, ChannelPlayers, ChannelSpectators:
	default:
		r.rejectCommand(c.Username, errRule("unknown chat channel %q", c.Channel))
		return
	}
	role := r.roleOf(c.Username)
	inProgress := r.state >= StateInProgress
	if !CanWrite(role, c.Channel, inProgress) {
		r.rejectCommand(c.Username, errAuthorization("cannot write to the %s channel", c.Channel))
		return
	}

	msg := r.chat.append(c.Channel, c.Username, c.Message, time.Now())
	msgCopy := msg
	bestEffort("chat append", r.ID, func() error {
		return r.deps.Store.AppendChat(r.ID, msgCopy)
	})

	var readers []string
	for _, m := range r.membersAll() {
		if CanRead(r.roleOf(m), c.Channel, inProgress) {
			readers = append(readers, m)
		}
	}
	r.deps.Sink(r.ID, Event{
		Name:       "chat_message",
		Audience:   ToRoom,
		Recipients: readers,
		Payload: map[string]interface{}{
			"channel":   msg.Channel,
			"username":  msg.Username,
			"message":   msg.Message,
			"seq":       msg.Seq,
			"timestamp": msg.Timestamp,
		},
	})
}

// ---------------------------------------------------------------
// Disconnection & kick votes
// ---------------------------------------------------------------

func (r *Room) handleOffline(username string) {
	// Admin gone before the match starts: the room dies with them.
	if username == r.AdminUsername && r.state < StateInProgress {
		r.closePreGame("admin disconnected")
		return
	}

	if p := r.players[username]; p != nil {
		// Pre-game disconnection of a paid player follows the same
		// grace/vote path as an in-game one.
		if p.Kicked || !p.Connected || r.state == StateFinished {
			return
		}
		p.Connected = false
		if r.records[username] == nil {
			epoch := r.nextEpoch()
			rec := newDisconnectRecord(username, time.Now(), r.deps.Opts.DisconnectGrace, epoch)
			r.records[username] = rec
			rec.timer = time.AfterFunc(r.deps.Opts.DisconnectGrace, func() {
				_ = r.Submit(disconnectDeadline{username: username, epoch: epoch})
			})
			r.emit("player_disconnected", ToRoom, "", map[string]interface{}{
				"username": username,
				"deadline": rec.Deadline,
			})
		}
		return
	}

	// Non-player members just drop out.
	if r.lobby[username] || r.selected[username] || r.spectators[username] {
		r.removeMember(username, "disconnected")
	}
}

func (r *Room) handleOnline(username string) {
	p := r.players[username]
	if p == nil || p.Kicked {
		return
	}
	p.Connected = true
	if rec := r.records[username]; rec != nil {
		// Reconnection discards the whole episode, votes included.
		r.stopTimer(rec.timer)
		delete(r.records, username)
		r.emit("player_reconnected", ToRoom, "", map[string]interface{}{
			"username": username,
		})
	}
}

func (r *Room) handleDisconnectDeadline(c disconnectDeadline) {
	rec := r.records[c.username]
	if rec == nil || rec.epoch != c.epoch || rec.open {
		return
	}
	if r.state != StateAwaitingReady && r.state != StateInProgress {
		return
	}
	rec.open = true
	r.emit("kick_vote_open", ToPlayers, "", map[string]interface{}{
		"username":       c.username,
		"required_votes": RequiredVotes(len(r.players)),
	})
}

func (r *Room) handleVoteKick(c VoteKick) {
	if r.state != StateAwaitingReady && r.state != StateInProgress {
		r.rejectCommand(c.Username, &EngineError{Kind: KindStaleCommand, Message: "no match to vote in"})
		return
	}
	voter := r.players[c.Username]
	if voter == nil {
		r.rejectCommand(c.Username, errAuthorization("only active players vote"))
		return
	}
	if c.Username == c.Target {
		r.rejectCommand(c.Username, errRule("cannot vote against yourself"))
		return
	}
	rec := r.records[c.Target]
	if rec == nil {
		r.rejectCommand(c.Username, errRule("%s is not disconnected", c.Target))
		return
	}
	if !rec.open {
		r.rejectCommand(c.Username, errRule("the kick vote has not opened yet"))
		return
	}

	if rec.CastVote(c.Username) {
		r.emit("kick_vote_cast", ToPlayers, "", map[string]interface{}{
			"username":       c.Target,
			"votes":          rec.VoteCount(),
			"required_votes": RequiredVotes(len(r.players)),
		})
	}
	if rec.VoteCount() >= RequiredVotes(len(r.players)) {
		r.kickPlayer(c.Target)
	}
}

// kickPlayer flips the player to permanent auto-play. They stay in the
// scoring and keep their seat; they just can't act or rejoin anymore.
func (r *Room) kickPlayer(username string) {
	p := r.players[username]
	if p == nil {
		return
	}
	p.AutoPlay = true
	p.Kicked = true
	if rec := r.records[username]; rec != nil {
		r.stopTimer(rec.timer)
		delete(r.records, username)
	}
	r.emit("player_kicked", ToRoom, "", map[string]interface{}{
		"username": username,
	})
	r.driveAutoPlay()
}

// handleKickFromLobby is the admin's pre-game removal. It only touches
// uncharged members; a paid seat is protected and can only fall to a
// kick vote after the match starts.
func (r *Room) handleKickFromLobby(c KickFromLobby) {
	if c.Username != r.AdminUsername {
		r.rejectCommand(c.Username, errAuthorization("only the room admin kicks members"))
		return
	}
	if r.state != StateForming && r.state != StateSelecting {
		r.rejectCommand(c.Username, errRule("the room already started"))
		return
	}
	if c.Target == r.AdminUsername {
		r.rejectCommand(c.Username, errRule("cannot kick yourself"))
		return
	}
	if r.players[c.Target] != nil {
		r.rejectCommand(c.Username, errRule("%s already paid the entry fee", c.Target))
		return
	}
	if !r.lobby[c.Target] && !r.selected[c.Target] && !r.spectators[c.Target] {
		r.rejectCommand(c.Username, errRule("%s is not in this room", c.Target))
		return
	}

	r.removeMember(c.Target, "kicked")
	r.banned[c.Target] = true
	log.Printf("[ROOM] Admin %s banned %s from room %s", c.Username, c.Target, r.ID)
}

func (r *Room) handleRejoin(c Rejoin) {
	p := r.players[c.Username]
	if p == nil {
		r.rejectCommand(c.Username, errAuthorization("not an active player of this room"))
		return
	}
	if p.Kicked {
		r.rejectCommand(c.Username, errAuthorization("kicked players cannot rejoin"))
		return
	}
	payload := map[string]interface{}{
		"room_id": r.ID,
		"status":  r.state.String(),
	}
	if r.state == StateInProgress {
		payload["game"] = r.rules.PublicState(r.gameState)
	}
	inProgress := r.state >= StateInProgress
	replay := []interface{}{}
	for _, ch := range []Channel{ChannelLobby, ChannelPlayers, ChannelSpectators} {
		if CanRead(RolePlayer, ch, inProgress) {
			for _, m := range r.chat.replay(ch) {
				replay = append(replay, m)
			}
		}
	}
	payload["chat_replay"] = replay
	r.emit("rejoin_state", ToUser, c.Username, payload)
}

// ---------------------------------------------------------------
// Leaving & teardown
// ---------------------------------------------------------------

func (r *Room) handleLeave(username string) {
	if username == r.AdminUsername && r.state < StateInProgress {
		r.closePreGame("admin left")
		return
	}

	if p := r.players[username]; p != nil {
		if r.state == StateInProgress {
			// Mid-game leave: the seat plays itself out.
			if !p.AutoPlay {
				p.AutoPlay = true
				r.emit("player_left_match", ToRoom, "", map[string]interface{}{
					"username": username,
				})
				r.driveAutoPlay()
			}
			return
		}
		if r.state == StateFinished {
			return
		}
		// Paid but the game never started: refund and reopen the seat.
		if _, err := r.deps.Ledger.Credit(username, r.FeeCents, "refund, left room "+r.ID+" before start"); err != nil {
			log.Printf("[LEDGER-ERROR] Refund failed for %s in room %s: %v", username, r.ID, err)
		}
		delete(r.players, username)
		r.order = removeString(r.order, username)
		r.dir.unbindActive(username, r.ID)
		r.dir.untrackMember(username, r.ID)
		if rec := r.records[username]; rec != nil {
			r.stopTimer(rec.timer)
			delete(r.records, username)
		}
		r.stopTimer(r.readyTimer)
		r.state = StateSelecting
		r.emit("player_left", ToRoom, "", map[string]interface{}{
			"username": username,
			"refunded": true,
		})
		return
	}

	if r.lobby[username] || r.selected[username] || r.spectators[username] {
		r.removeMember(username, "left")
	}
}

func (r *Room) removeMember(username, reason string) {
	delete(r.lobby, username)
	delete(r.selected, username)
	r.selectedOrder = removeString(r.selectedOrder, username)
	delete(r.spectators, username)
	r.dir.untrackMember(username, r.ID)
	r.emit("player_left", ToRoom, "", map[string]interface{}{
		"username": username,
		"reason":   reason,
	})
}

// closePreGame tears the room down before any game started. Charged
// players get their entry fee back through the ledger before closure.
func (r *Room) closePreGame(reason string) {
	for _, p := range r.players {
		if _, err := r.deps.Ledger.Credit(p.Username, r.FeeCents, "refund, room "+r.ID+" closed"); err != nil {
			log.Printf("[LEDGER-ERROR] Refund failed for %s in room %s: %v", p.Username, r.ID, err)
		}
	}
	r.closeRoom(reason)
}

func (r *Room) closeRoom(reason string) {
	r.stopTimer(r.readyTimer)
	r.stopTimer(r.turnTimer)
	r.stopTimer(r.closeTimer)
	for _, rec := range r.records {
		r.stopTimer(rec.timer)
	}

	r.emit("room_closed", ToRoom, "", map[string]interface{}{
		"room_id": r.ID,
		"reason":  reason,
	})

	for _, m := range r.membersAll() {
		r.dir.untrackMember(m, r.ID)
	}
	for _, p := range r.players {
		r.dir.unbindActive(p.Username, r.ID)
	}

	r.state = StateClosed
	r.markHalted()
	r.dir.removeRoom(r)

	roomID := r.ID
	bestEffort("room cleanup", roomID, func() error {
		return r.deps.Store.CleanupRoomData(roomID)
	})
	log.Printf("[ROOM] Room %s (%s) closed: %s", r.ID, r.DisplayName, reason)
}

// halt is the Fatal circuit breaker: broken invariant, room gone.
func (r *Room) halt(reason string) {
	log.Printf("[ROOM-FATAL] Room %s halting: %s", r.ID, reason)
	r.emit("forced_leave", ToRoom, "", map[string]interface{}{
		"room_id": r.ID,
		"reason":  "internal error",
	})
	for _, m := range r.membersAll() {
		r.dir.untrackMember(m, r.ID)
	}
	for _, p := range r.players {
		r.dir.unbindActive(p.Username, r.ID)
	}
	r.state = StateClosed
	r.markHalted()
	r.dir.removeRoom(r)
}

// checkInvariants backs the Fatal taxonomy entry: these can't fire in a
// correct engine, but if one does the room must not keep running.
func (r *Room) checkInvariants() {
	if len(r.players) > r.MaxPlayers {
		r.halt("active players exceed max_players")
		return
	}
	for username := range r.players {
		roles := 1
		if r.lobby[username] {
			roles++
		}
		if r.spectators[username] {
			roles++
		}
		if r.banned[username] {
			roles++
		}
		if roles > 1 {
			r.halt("identity " + username + " occupies multiple roles")
			return
		}
	}
}

// ---------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------

func (r *Room) checkPassword(password string) bool {
	if r.passwordHash == "" {
		return true
	}
	return bcrypt.CompareHashAndPassword([]byte(r.passwordHash), []byte(password)) == nil
}

func (r *Room) roleOf(username string) Role {
	switch {
	case r.players[username] != nil:
		return RolePlayer
	case r.lobby[username] || r.selected[username]:
		return RoleLobby
	case r.spectators[username]:
		return RoleSpectator
	}
	return RoleNone
}

func (r *Room) membersAll() []string {
	out := make([]string, 0, len(r.lobby)+len(r.selected)+len(r.players)+len(r.spectators))
	for u := range r.lobby {
		out = append(out, u)
	}
	for u := range r.selected {
		out = append(out, u)
	}
	for u := range r.players {
		out = append(out, u)
	}
	for u := range r.spectators {
		out = append(out, u)
	}
	return out
}

func (r *Room) recipients(aud Audience, user string) []string {
	switch aud {
	case ToUser:
		return []string{user}
	case ToPlayers:
		out := make([]string, 0, len(r.players))
		for u := range r.players {
			out = append(out, u)
		}
		return out
	case ToSpectators:
		out := make([]string, 0, len(r.spectators))
		for u := range r.spectators {
			out = append(out, u)
		}
		return out
	default:
		return r.membersAll()
	}
}

func (r *Room) emit(name string, aud Audience, user string, payload map[string]interface{}) {
	r.deps.Sink(r.ID, Event{
		Name:       name,
		Audience:   aud,
		User:       user,
		Recipients: r.recipients(aud, user),
		Payload:    payload,
	})
}

// broadcastUpdates forwards plugin updates to players and spectators.
func (r *Room) broadcastUpdates(updates []game.Update) {
	for _, u := range updates {
		recipients := append(r.recipients(ToPlayers, ""), r.recipients(ToSpectators, "")...)
		r.deps.Sink(r.ID, Event{
			Name:       u.Name,
			Audience:   ToRoom,
			Recipients: recipients,
			Payload:    u.Payload,
		})
	}
}

// rejectCommand surfaces an error to the acting identity only; the rest
// of the room never hears about it.
func (r *Room) rejectCommand(username string, err error) {
	kind := KindRuleViolation
	msg := err.Error()
	switch e := err.(type) {
	case *EngineError:
		kind = e.Kind
		msg = e.Message
	default:
		switch err {
		case game.ErrNotYourTurn, game.ErrInvalidMove, game.ErrAlreadyDecided:
			kind = KindRuleViolation
		}
	}
	r.emit("command_rejected", ToUser, username, map[string]interface{}{
		"kind":  string(kind),
		"error": msg,
	})
}

func (r *Room) saveSnapshot() {
	if r.gameState == nil {
		return
	}
	snapshot := r.rules.PublicState(r.gameState)
	bestEffort("round snapshot", r.ID, func() error {
		return r.deps.Store.SaveRoundSnapshot(r.ID, snapshot)
	})
}

func removeString(ss []string, s string) []string {
	out := ss[:0]
	for _, v := range ss {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}
