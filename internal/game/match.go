package game

import (
	"context"
	"log"
	"time"

	"github.com/okaras/spikearena-backend/internal"
	"github.com/okaras/spikearena-backend/internal/utils"
)

// =============================================================================
// MATCH LIFECYCLE
// =============================================================================
//
// waiting -> starting  second player seated; start timestamp + seed broadcast
// starting -> active   at the scheduled start timestamp
// active -> round_over a player's health reaches 0; opponent scores
// round_over -> active automatically after RoundRestartDelay
// active -> game_over  a score reaches WinningScore (restart timer never set)
// game_over -> waiting automatically after GameOverResetDelay; if both slots
//                      are still occupied a fresh match starts immediately
// any -> waiting       forced when occupancy drops below 2
//
// All delayed transitions run on timers derived from the room context, so
// room teardown cancels them atomically; a fired timer re-checks the phase
// under the room lock before acting.

// startMatch moves a full room from waiting to starting and announces the
// synchronized start to both players.
func (h *Hub) startMatch(room *internal.Room) {
	room.Mu.Lock()
	if room.State.Phase != internal.PhaseWaiting || room.PlayerCount() < internal.MaxPlayersPerRoom {
		room.Mu.Unlock()
		return
	}

	startAt := time.Now().Add(internal.StartDelay)

	room.State = internal.NewMatchState()
	room.State.Phase = internal.PhaseStarting
	room.SyncSeed = utils.SyncSeed(time.Now())
	room.Touch()

	snapshot := internal.EncodeSnapshot(room.State)
	seed := room.SyncSeed
	occupants := room.Occupants()
	room.TimerCancel = h.scheduleAfter(room, internal.StartDelay, h.activate)
	room.Mu.Unlock()

	log.Printf("[startMatch] room %s starting at %d (seed %d)", room.Id, startAt.UnixMilli(), seed)

	broadcastToRoom(occupants, internal.Message[internal.GameStartData]{
		Type: "gameStart",
		Data: internal.GameStartData{
			StartTimestamp: startAt.UnixMilli(),
			SyncSeed:       seed,
			InitialState:   snapshot,
		},
	})
}

// activate flips starting -> active at the scheduled start timestamp.
func (h *Hub) activate(room *internal.Room) {
	room.Mu.Lock()
	defer room.Mu.Unlock()
	if room.State.Phase != internal.PhaseStarting {
		return
	}
	room.State.Phase = internal.PhaseActive
	room.TimerCancel = nil
	room.Touch()
	log.Printf("[activate] room %s simulation active", room.Id)
}

// HandlePlayerInput records the reporting player's latest position.
// Last-write-wins per player: only the sender's own slot is touched, and
// only while the simulation is running.
func (h *Hub) HandlePlayerInput(player *internal.Player, input internal.PlayerInputData) {
	room := player.Room
	if room == nil {
		return
	}

	room.Mu.Lock()
	defer room.Mu.Unlock()
	if room.State.Phase != internal.PhaseActive {
		return
	}
	switch player.Number {
	case 1:
		room.State.Player1 = input.Position
	case 2:
		room.State.Player2 = input.Position
	default:
		return
	}
	room.Touch()
}

// HandleCollisionReport adjudicates a client-reported spike collision.
// The report carries raw geometry only; damage is recomputed here against
// the authoritative position and health of the named player, then gated
// by that player's hit cooldown.
func (h *Hub) HandleCollisionReport(player *internal.Player, report internal.CollisionReportData) {
	room := player.Room
	if room == nil {
		return
	}

	room.Mu.Lock()
	if room.State.Phase != internal.PhaseActive {
		room.Mu.Unlock()
		return
	}

	var target *internal.Player
	var pos internal.Vec
	var health float64
	switch report.Player {
	case "player1":
		target, pos, health = room.Slots[0], room.State.Player1, room.State.Player1Health
	case "player2":
		target, pos, health = room.Slots[1], room.State.Player2, room.State.Player2Health
	}
	if target == nil {
		room.Mu.Unlock()
		return
	}

	damage := ResolveDamage(pos, report.CollisionPoint, report.SpikeAngle, health)
	result, lastHit := GateHit(damage, target.LastHitTime, time.Now())
	target.LastHitTime = lastHit
	if !result.Applied {
		room.Mu.Unlock()
		return
	}

	switch report.Player {
	case "player1":
		room.State.Player1Health = clampHealth(room.State.Player1Health - result.Damage)
	case "player2":
		room.State.Player2Health = clampHealth(room.State.Player2Health - result.Damage)
	}
	room.Touch()

	occupants := room.Occupants()
	collision := internal.Message[internal.CollisionData]{
		Type: "collisionOccurred",
		Data: internal.CollisionData{
			Player:   report.Player,
			Damage:   result.Damage,
			Position: report.CollisionPoint,
		},
	}
	score, transitioned := h.checkMatchStateLocked(room)
	room.Mu.Unlock()

	broadcastToRoom(occupants, collision)
	if transitioned {
		broadcastToRoom(occupants, score)
	}
}

// checkMatchStateLocked applies the round/game transition rules after a
// health mutation. Callers hold room.Mu and broadcast the returned score
// update after unlocking.
//
// Both KO conditions are evaluated in one pass, player 1's first: a
// simultaneous double-KO awards a point to both players, and if both
// scores reach the threshold in the same update the winner is the side
// whose point was awarded first (player 2, since player 1's KO is
// evaluated first).
func (h *Hub) checkMatchStateLocked(room *internal.Room) (internal.Message[internal.ScoreUpdateData], bool) {
	st := &room.State
	if st.Phase != internal.PhaseActive {
		return internal.Message[internal.ScoreUpdateData]{}, false
	}

	roundOver := false
	if st.Player1Health <= 0 {
		st.Player1Health = 0
		st.Player2Score++
		roundOver = true
		if st.Player2Score >= internal.WinningScore && !st.GameOver {
			st.GameOver = true
			st.Winner = "player2"
		}
	}
	if st.Player2Health <= 0 {
		st.Player2Health = 0
		st.Player1Score++
		roundOver = true
		if st.Player1Score >= internal.WinningScore && !st.GameOver {
			st.GameOver = true
			st.Winner = "player1"
		}
	}
	if !roundOver {
		return internal.Message[internal.ScoreUpdateData]{}, false
	}

	st.RoundOver = true
	st.RoundEndedAt = time.Now().UnixMilli()
	if st.GameOver {
		st.Phase = internal.PhaseGameOver
		room.TimerCancel = h.scheduleAfter(room, internal.GameOverResetDelay, h.resetMatch)
		log.Printf("[checkMatchState] room %s game over, winner %s (%d-%d)",
			room.Id, st.Winner, st.Player1Score, st.Player2Score)
	} else {
		st.Phase = internal.PhaseRoundOver
		room.TimerCancel = h.scheduleAfter(room, internal.RoundRestartDelay, h.restartRound)
		log.Printf("[checkMatchState] room %s round over (%d-%d)",
			room.Id, st.Player1Score, st.Player2Score)
	}
	room.Touch()

	return internal.Message[internal.ScoreUpdateData]{
		Type: "scoreUpdate",
		Data: internal.ScoreUpdateData{
			Player1Score: st.Player1Score,
			Player2Score: st.Player2Score,
			RoundOver:    st.RoundOver,
			GameOver:     st.GameOver,
			Winner:       st.Winner,
		},
	}, true
}

// restartRound flips round_over back to active: full health, opening
// layout, round flag cleared.
func (h *Hub) restartRound(room *internal.Room) {
	room.Mu.Lock()
	if room.State.Phase != internal.PhaseRoundOver {
		room.Mu.Unlock()
		return
	}
	st := &room.State
	st.Player1Health = internal.InitialHealth
	st.Player2Health = internal.InitialHealth
	st.Player1 = internal.OpeningPosition(1)
	st.Player2 = internal.OpeningPosition(2)
	st.RoundOver = false
	st.RoundEndedAt = 0
	st.Phase = internal.PhaseActive
	room.TimerCancel = nil
	room.Touch()
	occupants := room.Occupants()
	room.Mu.Unlock()

	log.Printf("[restartRound] room %s new round", room.Id)
	broadcastToRoom(occupants, internal.Message[struct{}]{Type: "newRound"})
}

// resetMatch flips game_over back to waiting after the post-game delay,
// then loops the room straight into a fresh match if both players stayed.
func (h *Hub) resetMatch(room *internal.Room) {
	room.Mu.Lock()
	if room.State.Phase != internal.PhaseGameOver {
		room.Mu.Unlock()
		return
	}
	h.resetToWaitingLocked(room)
	room.TimerCancel = nil
	occupants := room.Occupants()
	room.Mu.Unlock()

	log.Printf("[resetMatch] room %s reset after game over", room.Id)
	broadcastToRoom(occupants, internal.Message[struct{}]{Type: "gameReset"})

	if len(occupants) == internal.MaxPlayersPerRoom {
		h.startMatch(room)
	}
}

// scheduleAfter runs fn once after d unless the returned cancel fires or
// the room is torn down first. The fn re-checks phase under the room lock,
// so a late fire against a reset room is a no-op rather than a ghost
// mutation. The goroutine cancels its own context on exit so a normally
// fired timer deregisters from the room context instead of riding it for
// the room's remaining life.
func (h *Hub) scheduleAfter(room *internal.Room, d time.Duration, fn func(*internal.Room)) context.CancelFunc {
	ctx, cancel := context.WithCancel(room.Context)
	timer := time.NewTimer(d)
	go func() {
		defer cancel()
		defer timer.Stop()
		select {
		case <-timer.C:
			fn(room)
		case <-ctx.Done():
		}
	}()
	return cancel
}

func clampHealth(h float64) float64 {
	if h < 0 {
		return 0
	}
	if h > internal.InitialHealth {
		return internal.InitialHealth
	}
	return h
}
