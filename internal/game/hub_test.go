package game

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/okaras/spikearena-backend/internal"
)

// fakeConn records every WriteJSON payload so tests can assert on the
// message stream without a real websocket.
type fakeConn struct {
	mu     sync.Mutex
	sent   [][]byte
	closed bool
}

func (c *fakeConn) ReadJSON(v any) error { return io.EOF }

func (c *fakeConn) WriteJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.sent = append(c.sent, b)
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

// types returns the Type field of every message written so far.
func (c *fakeConn) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.sent))
	for _, b := range c.sent {
		var env struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(b, &env); err != nil {
			continue
		}
		out = append(out, env.Type)
	}
	return out
}

func (c *fakeConn) hasType(want string) bool {
	for _, ty := range c.types() {
		if ty == want {
			return true
		}
	}
	return false
}

// lastOfType decodes the data field of the newest message with the given
// type into out, reporting whether one was found.
func (c *fakeConn) lastOfType(ty string, out any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.sent) - 1; i >= 0; i-- {
		var env struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(c.sent[i], &env); err != nil || env.Type != ty {
			continue
		}
		if out != nil {
			if err := json.Unmarshal(env.Data, out); err != nil {
				return false
			}
		}
		return true
	}
	return false
}

func newTestPlayer(id string) (*internal.Player, *fakeConn) {
	conn := &fakeConn{}
	p := &internal.Player{
		Id:       id,
		Conn:     conn,
		JoinedAt: time.Now(),
	}
	p.SetName("user-" + id)
	return p, conn
}

func TestSetUsernameValidation(t *testing.T) {
	h := NewHub(0)
	p, _ := newTestPlayer("a")
	h.Register(p)

	if err := h.SetUsername(p, "x"); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("one-rune name: err = %v, want ErrInvalidName", err)
	}
	if err := h.SetUsername(p, "ab"); err != nil {
		t.Fatalf("two-rune name rejected: %v", err)
	}
	if p.Name() != "ab" {
		t.Fatalf("username = %q, want %q", p.Name(), "ab")
	}
	// Rune count, not byte count.
	if err := h.SetUsername(p, "日本"); err != nil {
		t.Fatalf("two-rune multibyte name rejected: %v", err)
	}
}

func TestCreateRoomSeatsCreator(t *testing.T) {
	h := NewHub(0)
	p, conn := newTestPlayer("a")
	h.Register(p)

	room, number, err := h.CreateRoom("arena", p)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if number != 1 {
		t.Fatalf("creator seated as player %d, want 1", number)
	}
	if p.Room != room {
		t.Fatalf("creator not bound to the room")
	}
	if !conn.hasType("joinedRoom") {
		t.Fatalf("creator never received joinedRoom, got %v", conn.types())
	}
	if !conn.hasType("roomCreated") {
		t.Fatalf("creator never received roomCreated, got %v", conn.types())
	}

	room.Mu.RLock()
	defer room.Mu.RUnlock()
	if room.State.Phase != internal.PhaseWaiting {
		t.Fatalf("single-occupant room phase = %q, want waiting", room.State.Phase)
	}
}

func TestJoinRoomFull(t *testing.T) {
	h := NewHub(0)
	p1, _ := newTestPlayer("a")
	p2, _ := newTestPlayer("b")
	p3, _ := newTestPlayer("c")
	for _, p := range []*internal.Player{p1, p2, p3} {
		h.Register(p)
	}

	room, _, err := h.CreateRoom("arena", p1)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if _, err := h.JoinRoom(room.Id, p2); err != nil {
		t.Fatalf("second join: %v", err)
	}
	if _, err := h.JoinRoom(room.Id, p3); !errors.Is(err, ErrRoomFull) {
		t.Fatalf("third join: err = %v, want ErrRoomFull", err)
	}
	if p3.Room != nil {
		t.Fatalf("rejected joiner ended up bound to the room")
	}
}

func TestJoinRoomNotFound(t *testing.T) {
	h := NewHub(0)
	p, _ := newTestPlayer("a")
	h.Register(p)
	if _, err := h.JoinRoom("room_missing", p); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("err = %v, want ErrRoomNotFound", err)
	}
}

func TestPlayerNumbersAreSlotStable(t *testing.T) {
	h := NewHub(0)
	p1, _ := newTestPlayer("a")
	p2, _ := newTestPlayer("b")
	p3, _ := newTestPlayer("c")
	for _, p := range []*internal.Player{p1, p2, p3} {
		h.Register(p)
	}

	room, _, err := h.CreateRoom("arena", p1)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if n, _ := h.JoinRoom(room.Id, p2); n != 2 {
		t.Fatalf("second joiner seated as player %d, want 2", n)
	}

	// Player 1 leaves; player 2 keeps its number and the next joiner
	// takes the freed slot 1.
	h.LeaveRoom(p1)
	if p2.Number != 2 {
		t.Fatalf("remaining player renumbered to %d", p2.Number)
	}
	if n, err := h.JoinRoom(room.Id, p3); err != nil || n != 1 {
		t.Fatalf("rejoin after leave: number=%d err=%v, want 1", n, err)
	}
}

func TestLeaveDuringMatchResetsToWaiting(t *testing.T) {
	h := NewHub(0)
	p1, _ := newTestPlayer("a")
	p2, conn2 := newTestPlayer("b")
	h.Register(p1)
	h.Register(p2)

	room, _, err := h.CreateRoom("arena", p1)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if _, err := h.JoinRoom(room.Id, p2); err != nil {
		t.Fatalf("join: %v", err)
	}

	room.Mu.RLock()
	phase := room.State.Phase
	room.Mu.RUnlock()
	if phase != internal.PhaseStarting {
		t.Fatalf("full room phase = %q, want starting", phase)
	}

	h.LeaveRoom(p1)

	room.Mu.RLock()
	phase = room.State.Phase
	health := room.State.Player1Health
	room.Mu.RUnlock()
	if phase != internal.PhaseWaiting {
		t.Fatalf("phase after leaver = %q, want waiting", phase)
	}
	if health != internal.InitialHealth {
		t.Fatalf("state not reset: health %v", health)
	}
	if !conn2.hasType("playerLeft") {
		t.Fatalf("remaining player missing playerLeft, got %v", conn2.types())
	}
	if !conn2.hasType("gameReset") {
		t.Fatalf("remaining player missing gameReset, got %v", conn2.types())
	}
}

func TestLastLeaverDestroysRoom(t *testing.T) {
	h := NewHub(0)
	p, _ := newTestPlayer("a")
	h.Register(p)

	room, _, err := h.CreateRoom("arena", p)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	h.LeaveRoom(p)

	if _, ok := h.GetRoom(room.Id); ok {
		t.Fatalf("room still listed after last occupant left")
	}
	select {
	case <-room.Context.Done():
	default:
		t.Fatalf("room context not cancelled on destruction")
	}
}

func TestJoinLeavesPreviousRoom(t *testing.T) {
	h := NewHub(0)
	p1, _ := newTestPlayer("a")
	p2, _ := newTestPlayer("b")
	h.Register(p1)
	h.Register(p2)

	first, _, err := h.CreateRoom("first", p1)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	second, _, err := h.CreateRoom("second", p2)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	if _, err := h.JoinRoom(second.Id, p1); err != nil {
		t.Fatalf("cross-room join: %v", err)
	}
	if p1.Room != second {
		t.Fatalf("player not moved to the new room")
	}
	// first is now empty and gone.
	if _, ok := h.GetRoom(first.Id); ok {
		t.Fatalf("abandoned room still listed")
	}
}

func TestListRooms(t *testing.T) {
	h := NewHub(0)
	p, _ := newTestPlayer("a")
	h.Register(p)

	if got := h.ListRooms(); len(got) != 0 {
		t.Fatalf("fresh hub lists %d rooms", len(got))
	}
	room, _, err := h.CreateRoom("arena", p)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	rooms := h.ListRooms()
	if len(rooms) != 1 {
		t.Fatalf("listed %d rooms, want 1", len(rooms))
	}
	if rooms[0].Id != room.Id || rooms[0].PlayerCount != 1 {
		t.Fatalf("room info = %+v", rooms[0])
	}
}

func TestRenameConcurrentWithJoin(t *testing.T) {
	h := NewHub(0)
	p1, _ := newTestPlayer("a")
	p2, _ := newTestPlayer("b")
	h.Register(p1)
	h.Register(p2)

	room, _, err := h.CreateRoom("arena", p1)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	// Renames race the roster build inside the join; the race detector
	// flags any unguarded access to the name.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			if err := h.SetUsername(p1, fmt.Sprintf("renamed-%03d", i)); err != nil {
				t.Errorf("SetUsername: %v", err)
				return
			}
		}
	}()

	if _, err := h.JoinRoom(room.Id, p2); err != nil {
		t.Fatalf("join during rename: %v", err)
	}
	<-done

	if p1.Name() != "renamed-199" {
		t.Fatalf("final name = %q", p1.Name())
	}
}

func TestDestroyRoomKeepsReoccupiedRoom(t *testing.T) {
	h := NewHub(0)
	p, _ := newTestPlayer("a")
	h.Register(p)

	room, _, err := h.CreateRoom("arena", p)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	// A join that lands between the last leave and the teardown must win:
	// with an occupant seated, teardown is a no-op.
	h.destroyRoom(room)

	if _, ok := h.GetRoom(room.Id); !ok {
		t.Fatalf("occupied room removed from the registry")
	}
	if room.Context.Err() != nil {
		t.Fatalf("occupied room's context cancelled")
	}
}

func TestJoinRejectsTornDownRoom(t *testing.T) {
	h := NewHub(0)
	p1, _ := newTestPlayer("a")
	p2, _ := newTestPlayer("b")
	h.Register(p1)
	h.Register(p2)

	room, _, err := h.CreateRoom("arena", p1)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	// A joiner can hold a room reference fetched just before teardown;
	// seating must still be refused once the context is cancelled.
	h.LeaveRoom(p1)
	h.mu.Lock()
	h.rooms[room.Id] = room // stale registry view, as seen mid-race
	h.mu.Unlock()

	if _, err := h.JoinRoom(room.Id, p2); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("join into torn-down room: err = %v, want ErrRoomNotFound", err)
	}
	if p2.Room != nil {
		t.Fatalf("joiner seated in a torn-down room")
	}
}

func TestDisconnectForgetsPlayer(t *testing.T) {
	h := NewHub(0)
	p1, _ := newTestPlayer("a")
	p2, conn2 := newTestPlayer("b")
	h.Register(p1)
	h.Register(p2)

	room, _, err := h.CreateRoom("arena", p1)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if _, err := h.JoinRoom(room.Id, p2); err != nil {
		t.Fatalf("join: %v", err)
	}

	h.Disconnect(p1)
	if p1.Room != nil {
		t.Fatalf("disconnected player still bound to a room")
	}
	if !conn2.hasType("playerLeft") {
		t.Fatalf("remaining player missing playerLeft, got %v", conn2.types())
	}
}
