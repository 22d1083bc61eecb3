package game

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okaras/spikearena-backend/internal"
	"github.com/okaras/spikearena-backend/internal/utils"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleWebSocket upgrades the HTTP connection and starts the per-connection
// read loop. An optional username query param pre-sets the display name.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("[HandleWebSocket] upgrade failed:", err)
		return
	}

	player := &internal.Player{
		Id:       utils.GenerateID(),
		Conn:     conn,
		JoinedAt: time.Now(),
	}
	if username := r.URL.Query().Get("username"); username != "" {
		if err := h.SetUsername(player, username); err != nil {
			log.Printf("[HandleWebSocket] ignoring invalid username %q for %s", username, player.Id)
		}
	}

	h.Register(player)
	go h.handleMessages(player)
}

// handleMessages processes inbound messages for one connection until it
// drops. A malformed message is logged and skipped; it never takes down
// the connection, let alone the process.
func (h *Hub) handleMessages(player *internal.Player) {
	defer func() {
		player.Conn.Close()
		h.Disconnect(player)
	}()

	log.Printf("[handleMessages] started for connection %s", player.Id)

	for {
		var msg internal.Message[json.RawMessage]
		if err := player.Conn.ReadJSON(&msg); err != nil {
			log.Printf("[handleMessages] read error for %s: %v", player.Id, err)
			return
		}

		switch msg.Type {
		case "setUsername":
			var name string
			if err := json.Unmarshal(msg.Data, &name); err != nil {
				log.Printf("[handleMessages] bad setUsername payload from %s: %v", player.Id, err)
				continue
			}
			h.handleSetUsername(player, name)

		case "getRooms":
			if err := player.SafeWriteJSON(internal.Message[[]internal.RoomInfo]{
				Type: "roomList",
				Data: h.ListRooms(),
			}); err != nil {
				log.Printf("[handleMessages] roomList write to %s failed: %v", player.Id, err)
			}

		case "createRoom":
			var data internal.CreateRoomData
			if err := json.Unmarshal(msg.Data, &data); err != nil {
				log.Printf("[handleMessages] bad createRoom payload from %s: %v", player.Id, err)
				continue
			}
			h.handleCreateRoom(player, data)

		case "joinRoom":
			var data internal.JoinRoomData
			if err := json.Unmarshal(msg.Data, &data); err != nil {
				log.Printf("[handleMessages] bad joinRoom payload from %s: %v", player.Id, err)
				continue
			}
			h.handleJoinRoom(player, data)

		case "leaveRoom":
			h.LeaveRoom(player)

		case "playerInput":
			var data internal.PlayerInputData
			if err := json.Unmarshal(msg.Data, &data); err != nil {
				continue
			}
			h.HandlePlayerInput(player, data)

		case "reportCollision":
			var data internal.CollisionReportData
			if err := json.Unmarshal(msg.Data, &data); err != nil {
				continue
			}
			h.HandleCollisionReport(player, data)

		default:
			log.Printf("[handleMessages] unknown message type %q from %s", msg.Type, player.Id)
		}
	}
}

func (h *Hub) handleSetUsername(player *internal.Player, name string) {
	ack := internal.UsernameSetData{Success: true, Username: name}
	if err := h.SetUsername(player, name); err != nil {
		ack = internal.UsernameSetData{Success: false, Error: "username must be at least 2 characters"}
	}
	if err := player.SafeWriteJSON(internal.Message[internal.UsernameSetData]{
		Type: "usernameSet",
		Data: ack,
	}); err != nil {
		log.Printf("[handleSetUsername] ack write to %s failed: %v", player.Id, err)
	}
}

func (h *Hub) handleCreateRoom(player *internal.Player, data internal.CreateRoomData) {
	if data.Username != "" {
		if err := h.SetUsername(player, data.Username); err != nil {
			log.Printf("[handleCreateRoom] ignoring invalid username from %s", player.Id)
		}
	}
	if _, _, err := h.CreateRoom(data.RoomName, player); err != nil {
		h.sendErrorMessage(player, errorText(err))
	}
}

func (h *Hub) handleJoinRoom(player *internal.Player, data internal.JoinRoomData) {
	if data.Username != "" {
		if err := h.SetUsername(player, data.Username); err != nil {
			log.Printf("[handleJoinRoom] ignoring invalid username from %s", player.Id)
		}
	}
	if _, err := h.JoinRoom(data.RoomId, player); err != nil {
		h.sendErrorMessage(player, errorText(err))
	}
}

// sendErrorMessage delivers a user-visible error event to one connection.
// Validation failures stay local to the misbehaving connection.
func (h *Hub) sendErrorMessage(player *internal.Player, text string) {
	if err := player.SafeWriteJSON(internal.Message[string]{Type: "error", Data: text}); err != nil {
		log.Printf("[sendErrorMessage] write to %s failed: %v", player.Id, err)
	}
}

func errorText(err error) string {
	switch {
	case errors.Is(err, ErrRoomNotFound):
		return "room does not exist"
	case errors.Is(err, ErrRoomFull):
		return "room is full"
	case errors.Is(err, ErrInvalidName):
		return "invalid name"
	default:
		return "internal error"
	}
}
