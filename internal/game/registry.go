package game

import (
	"context"
	"errors"
	"log"
	"sync"
	"unicode/utf8"

	"github.com/okaras/spikearena-backend/internal"
	"github.com/okaras/spikearena-backend/internal/utils"
)

var (
	ErrInvalidName  = errors.New("invalid name")
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomFull     = errors.New("room full")
)

// Hub owns the process-wide shared state: the room registry and the set of
// live connections. Per-room state is guarded by each Room's own mutex;
// the hub lock only covers the maps.
type Hub struct {
	mu          sync.RWMutex
	rooms       map[string]*internal.Room
	conns       map[string]*internal.Player
	broadcastHz int
}

func NewHub(broadcastHz int) *Hub {
	if broadcastHz <= 0 {
		broadcastHz = internal.BroadcastHz
	}
	return &Hub{
		rooms:       make(map[string]*internal.Room),
		conns:       make(map[string]*internal.Player),
		broadcastHz: broadcastHz,
	}
}

// Register adds a live connection to the hub. Called once per transport
// connect, before the read loop starts.
func (h *Hub) Register(player *internal.Player) {
	h.mu.Lock()
	h.conns[player.Id] = player
	h.mu.Unlock()
	log.Printf("[Register] connection %s registered", player.Id)
}

// SetUsername binds a display name to a connection. Names shorter than
// two characters are rejected with ErrInvalidName and nothing is stored;
// a valid name overwrites any previous one.
func (h *Hub) SetUsername(player *internal.Player, name string) error {
	if utf8.RuneCountInString(name) < internal.MinNameLength {
		return ErrInvalidName
	}
	player.SetName(name)
	log.Printf("[SetUsername] %s -> %q", player.Id, name)
	return nil
}

// CreateRoom allocates a room with a fresh MatchState and auto-joins the
// creator. Room names need not be unique; only the id is. Returns the
// room and the creator's player number.
func (h *Hub) CreateRoom(name string, creator *internal.Player) (*internal.Room, int, error) {
	if name == "" {
		return nil, 0, ErrInvalidName
	}

	ctx, cancel := context.WithCancel(context.Background())
	room := &internal.Room{
		Id:      "room_" + utils.GenerateID(),
		Name:    name,
		State:   internal.NewMatchState(),
		Context: ctx,
		Cancel:  cancel,
	}

	h.mu.Lock()
	h.rooms[room.Id] = room
	h.mu.Unlock()

	go h.runBroadcastLoop(room)

	log.Printf("[CreateRoom] created room %s (%q) by %s", room.Id, name, creator.Id)

	number, err := h.JoinRoom(room.Id, creator)
	if err != nil {
		// Creator could not be seated (can only be a race with teardown);
		// tear the empty room back down.
		h.destroyRoom(room)
		return nil, 0, err
	}

	h.broadcastAll(internal.Message[internal.RoomInfo]{
		Type: "roomCreated",
		Data: internal.RoomInfo{
			Id:          room.Id,
			Name:        room.Name,
			PlayerCount: 1,
			MaxPlayers:  internal.MaxPlayersPerRoom,
		},
	})

	return room, number, nil
}

// GetRoom looks up a room by id.
func (h *Hub) GetRoom(roomId string) (*internal.Room, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	room, ok := h.rooms[roomId]
	return room, ok
}

// ListRooms returns the lobby view of every live room.
func (h *Hub) ListRooms() []internal.RoomInfo {
	h.mu.RLock()
	rooms := make([]*internal.Room, 0, len(h.rooms))
	for _, room := range h.rooms {
		rooms = append(rooms, room)
	}
	h.mu.RUnlock()

	out := make([]internal.RoomInfo, 0, len(rooms))
	for _, room := range rooms {
		room.Mu.RLock()
		out = append(out, internal.RoomInfo{
			Id:          room.Id,
			Name:        room.Name,
			PlayerCount: room.PlayerCount(),
			MaxPlayers:  internal.MaxPlayersPerRoom,
		})
		room.Mu.RUnlock()
	}
	return out
}

// Disconnect handles ungraceful connection loss: identical to an explicit
// leave, then the connection and its display name are forgotten.
func (h *Hub) Disconnect(player *internal.Player) {
	h.LeaveRoom(player)

	h.mu.Lock()
	delete(h.conns, player.Id)
	h.mu.Unlock()
	log.Printf("[Disconnect] connection %s removed", player.Id)
}

// destroyRoom cancels the room's context (stopping its broadcast loop and
// any pending phase timer) and removes it from the registry. Safe to call
// twice; the second call is a no-op. Occupancy is re-checked under the
// room lock: a join landing between the last leave and this call keeps
// the room alive. Removal and cancellation happen under both locks, so a
// joiner holding a stale reference always observes the cancelled context.
func (h *Hub) destroyRoom(room *internal.Room) {
	h.mu.Lock()
	if _, present := h.rooms[room.Id]; !present {
		h.mu.Unlock()
		return
	}

	room.Mu.Lock()
	if room.PlayerCount() > 0 {
		room.Mu.Unlock()
		h.mu.Unlock()
		return
	}
	delete(h.rooms, room.Id)
	if room.TimerCancel != nil {
		room.TimerCancel()
		room.TimerCancel = nil
	}
	room.Cancel()
	room.Mu.Unlock()
	h.mu.Unlock()

	log.Printf("[destroyRoom] room %s destroyed", room.Id)

	h.broadcastAll(internal.Message[string]{Type: "roomClosed", Data: room.Id})
}

// broadcastAll sends a message to every live connection, roomed or not.
// Used for lobby-wide events (roomCreated, roomClosed).
func (h *Hub) broadcastAll(msg any) {
	h.mu.RLock()
	conns := make([]*internal.Player, 0, len(h.conns))
	for _, p := range h.conns {
		conns = append(conns, p)
	}
	h.mu.RUnlock()

	for _, p := range conns {
		if err := p.SafeWriteJSON(msg); err != nil {
			log.Printf("[broadcastAll] write to %s failed: %v", p.Id, err)
		}
	}
}
