package game

import (
	"log"
	"time"

	"github.com/okaras/spikearena-backend/internal"
)

// runBroadcastLoop pushes the authoritative snapshot to every occupant of
// one room at a fixed rate. Runs for the life of the room; destroyed with
// it through the room context. A tick is skipped when the room is empty,
// the match has not started, or nothing changed since the last send, so an
// idle room costs no bandwidth.
func (h *Hub) runBroadcastLoop(room *internal.Room) {
	ticker := time.NewTicker(time.Second / time.Duration(h.broadcastHz))
	defer ticker.Stop()

	for {
		select {
		case <-room.Context.Done():
			return
		case <-ticker.C:
			room.Mu.Lock()
			if room.State.Phase == internal.PhaseWaiting ||
				room.PlayerCount() == 0 ||
				room.Seq == room.LastSentSeq {
				room.Mu.Unlock()
				continue
			}
			snapshot := internal.EncodeSnapshot(room.State)
			room.LastSentSeq = room.Seq
			occupants := room.Occupants()
			room.Mu.Unlock()

			msg := internal.Message[internal.Snapshot]{Type: "gameUpdate", Data: snapshot}
			for _, p := range occupants {
				if err := p.SafeWriteJSON(msg); err != nil {
					log.Printf("[runBroadcastLoop] write to %s failed: %v", p.Id, err)
				}
			}
		}
	}
}
