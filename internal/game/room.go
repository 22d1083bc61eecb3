package game

import (
	"log"

	"github.com/okaras/spikearena-backend/internal"
)

// JoinRoom seats a player in a room and returns the assigned player
// number. A player already seated elsewhere implicitly leaves that room
// first. Seating the second player triggers the match start. Player
// numbers are slot-stable: a leaver frees its slot and the next joiner
// takes the lowest free one, so the remaining player keeps its number.
func (h *Hub) JoinRoom(roomId string, player *internal.Player) (int, error) {
	room, ok := h.GetRoom(roomId)
	if !ok {
		return 0, ErrRoomNotFound
	}

	if player.Room != nil && player.Room != room {
		h.LeaveRoom(player)
	}

	room.Mu.Lock()

	// The room may have been torn down between the registry lookup and
	// taking its lock; seating anyone now would strand them in a room
	// with no broadcast loop.
	if room.Context.Err() != nil {
		room.Mu.Unlock()
		return 0, ErrRoomNotFound
	}

	slot := -1
	for i, p := range room.Slots {
		if p == nil {
			slot = i
			break
		}
	}
	if slot == -1 {
		room.Mu.Unlock()
		return 0, ErrRoomFull
	}

	room.Slots[slot] = player
	player.Room = room
	player.Number = slot + 1

	totalPlayers := room.PlayerCount()
	roster := make([]internal.RoomPlayerInfo, 0, totalPlayers)
	for _, p := range room.Occupants() {
		roster = append(roster, internal.RoomPlayerInfo{
			Id:       p.Id,
			Username: p.Name(),
			JoinedAt: p.JoinedAt.UnixMilli(),
		})
	}
	occupants := room.Occupants()
	room.Mu.Unlock()

	log.Printf("[JoinRoom] player %s (%s) seated in room %s as player %d (%d/%d)",
		player.Id, player.Name(), room.Id, slot+1, totalPlayers, internal.MaxPlayersPerRoom)

	if err := player.SafeWriteJSON(internal.Message[internal.JoinedRoomData]{
		Type: "joinedRoom",
		Data: internal.JoinedRoomData{
			RoomId:       room.Id,
			RoomName:     room.Name,
			PlayerNumber: slot + 1,
			TotalPlayers: totalPlayers,
			Players:      roster,
		},
	}); err != nil {
		log.Printf("[JoinRoom] joinedRoom write to %s failed: %v", player.Id, err)
	}

	joined := internal.Message[internal.PlayerJoinedData]{
		Type: "playerJoined",
		Data: internal.PlayerJoinedData{
			PlayerId:     player.Id,
			Username:     player.Name(),
			PlayerNumber: slot + 1,
			TotalPlayers: totalPlayers,
		},
	}
	for _, p := range occupants {
		if err := p.SafeWriteJSON(joined); err != nil {
			log.Printf("[JoinRoom] playerJoined write to %s failed: %v", p.Id, err)
		}
	}

	if totalPlayers == internal.MaxPlayersPerRoom {
		h.startMatch(room)
	}

	return slot + 1, nil
}

// LeaveRoom removes a player from its current room, if any. The last
// occupant leaving destroys the room; with one occupant left, a running
// match is forced back to waiting since a match never continues with
// fewer than two players.
func (h *Hub) LeaveRoom(player *internal.Player) {
	room := player.Room
	if room == nil {
		return
	}

	room.Mu.Lock()

	freedSlot := -1
	for i, p := range room.Slots {
		if p == player {
			room.Slots[i] = nil
			freedSlot = i
			break
		}
	}
	if freedSlot == -1 {
		room.Mu.Unlock()
		player.Room = nil
		return
	}

	player.Room = nil
	player.Number = 0

	remaining := room.Occupants()
	wasRunning := room.State.Phase != internal.PhaseWaiting

	if len(remaining) > 0 && wasRunning {
		h.resetToWaitingLocked(room)
	}
	room.Mu.Unlock()

	log.Printf("[LeaveRoom] player %s left room %s (%d remaining)",
		player.Id, room.Id, len(remaining))

	if len(remaining) == 0 {
		h.destroyRoom(room)
		return
	}

	left := internal.Message[internal.PlayerLeftData]{
		Type: "playerLeft",
		Data: internal.PlayerLeftData{
			PlayerId:     player.Id,
			Username:     player.Name(),
			PlayerNumber: freedSlot + 1,
			TotalPlayers: len(remaining),
		},
	}
	for _, p := range remaining {
		if err := p.SafeWriteJSON(left); err != nil {
			log.Printf("[LeaveRoom] playerLeft write to %s failed: %v", p.Id, err)
		}
	}

	if wasRunning {
		// Remaining occupants must discard match progress.
		broadcastToRoom(remaining, internal.Message[struct{}]{Type: "gameReset"})
	}
}

// resetToWaitingLocked cancels any pending phase timer and resets the
// match to a fresh waiting state. Callers hold room.Mu.
func (h *Hub) resetToWaitingLocked(room *internal.Room) {
	if room.TimerCancel != nil {
		room.TimerCancel()
		room.TimerCancel = nil
	}
	room.State = internal.NewMatchState()
	room.Touch()
}

func broadcastToRoom(players []*internal.Player, msg any) {
	for _, p := range players {
		if err := p.SafeWriteJSON(msg); err != nil {
			log.Printf("[broadcastToRoom] write to %s failed: %v", p.Id, err)
		}
	}
}
