package internal

import (
	"context"
	"sync"
	"time"
)

const (
	MaxPlayersPerRoom = 2
	MinNameLength     = 2

	InitialHealth = 100.0
	WinningScore  = 3

	BaseDamage   = 10.0
	TipThreshold = 0.7
	HitCooldown  = 500 * time.Millisecond

	StartDelay         = 500 * time.Millisecond
	RoundRestartDelay  = 2000 * time.Millisecond
	GameOverResetDelay = 5000 * time.Millisecond

	BroadcastHz = 30
)

// Arena geometry. Both clients run the same fixed-size arena, so the
// server can hand out opening positions without knowing canvas sizes.
const (
	ArenaCenterX = 400.0
	ArenaCenterY = 300.0
	ArenaRadius  = 250.0
)

type GamePhase string

const (
	PhaseWaiting   GamePhase = "waiting"
	PhaseStarting  GamePhase = "starting"
	PhaseActive    GamePhase = "active"
	PhaseRoundOver GamePhase = "round_over"
	PhaseGameOver  GamePhase = "game_over"
)

type Vec struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// MatchState is the authoritative snapshot for one room. All mutations
// happen under Room.Mu; UpdatedAt is bumped on every mutation and doubles
// as the wire timestamp clients use for staleness checks.
type MatchState struct {
	Player1       Vec       `json:"player1"`
	Player2       Vec       `json:"player2"`
	Player1Health float64   `json:"player1Health"`
	Player2Health float64   `json:"player2Health"`
	Player1Score  int       `json:"player1Score"`
	Player2Score  int       `json:"player2Score"`
	Phase         GamePhase `json:"phase"`
	RoundOver     bool      `json:"roundOver"`
	GameOver      bool      `json:"gameOver"`
	Winner        string    `json:"winner,omitempty"` // "player1" or "player2"
	UpdatedAt     int64     `json:"updatedAt"`        // epoch ms
	RoundEndedAt  int64     `json:"roundEndedAt,omitempty"`
}

// NewMatchState returns the defaults for a fresh room: full health, zero
// score, not over, players on the opening layout.
func NewMatchState() MatchState {
	return MatchState{
		Player1:       OpeningPosition(1),
		Player2:       OpeningPosition(2),
		Player1Health: InitialHealth,
		Player2Health: InitialHealth,
		Phase:         PhaseWaiting,
		UpdatedAt:     time.Now().UnixMilli(),
	}
}

// OpeningPosition returns the fixed round-start layout: player 1
// left-of-center, player 2 mirrored on the right.
func OpeningPosition(playerNumber int) Vec {
	offset := ArenaRadius * 0.3
	if playerNumber == 1 {
		return Vec{X: ArenaCenterX - offset, Y: ArenaCenterY}
	}
	return Vec{X: ArenaCenterX + offset, Y: ArenaCenterY}
}

// Conn is the transport a Player holds. *websocket.Conn satisfies it;
// tests substitute fakes.
type Conn interface {
	ReadJSON(v any) error
	WriteJSON(v any) error
	Close() error
}

type Player struct {
	Id       string    `json:"id"`
	Conn     Conn      `json:"-"`
	Room     *Room     `json:"-"` // avoid circular reference in JSON
	Number   int       `json:"playerNumber"` // 1 or 2, 0 while not seated
	JoinedAt time.Time `json:"joinedAt"`

	// Damage gate, guarded by Room.Mu while seated.
	LastHitTime time.Time `json:"-"`

	// Display name. Renames arrive on the player's own read loop while
	// roster builds read the name under a room lock, so it carries its
	// own mutex rather than borrowing either of those.
	nameMu   sync.Mutex
	username string

	writeMu sync.Mutex
}

// SetName replaces the display name.
func (p *Player) SetName(name string) {
	p.nameMu.Lock()
	p.username = name
	p.nameMu.Unlock()
}

// Name returns the current display name.
func (p *Player) Name() string {
	p.nameMu.Lock()
	defer p.nameMu.Unlock()
	return p.username
}

// SafeWriteJSON serializes writes to the underlying connection; gorilla
// allows at most one concurrent writer.
func (p *Player) SafeWriteJSON(v any) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return p.Conn.WriteJSON(v)
}

type Room struct {
	Id   string `json:"id"`
	Name string `json:"name"`

	// Slot index is player number minus 1. A leaver frees its slot and
	// the next joiner takes the lowest free one, so numbers stay stable
	// for whoever remains.
	Slots [MaxPlayersPerRoom]*Player `json:"-"`

	State MatchState `json:"state"`

	// Seq counts authoritative mutations; the broadcast loop skips ticks
	// where it hasn't moved since the last send.
	Seq         uint64 `json:"-"`
	LastSentSeq uint64 `json:"-"`

	SyncSeed int64 `json:"-"`

	Mu sync.RWMutex `json:"-"`

	// Context for cleanup; cancelled exactly once on room destruction,
	// stopping the broadcast loop and any pending phase timer.
	Context context.Context    `json:"-"`
	Cancel  context.CancelFunc `json:"-"`

	// Cancels the pending start/round-restart/game-reset timer, if any.
	TimerCancel context.CancelFunc `json:"-"`
}

// Touch records an authoritative mutation. Callers hold Mu.
func (r *Room) Touch() {
	r.Seq++
	r.State.UpdatedAt = time.Now().UnixMilli()
}

// Occupants returns the seated players in slot order. Callers hold Mu.
func (r *Room) Occupants() []*Player {
	out := make([]*Player, 0, MaxPlayersPerRoom)
	for _, p := range r.Slots {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

// PlayerCount returns seated-player count. Callers hold Mu.
func (r *Room) PlayerCount() int {
	n := 0
	for _, p := range r.Slots {
		if p != nil {
			n++
		}
	}
	return n
}

type Response struct {
	StatusCode    int   `json:"status_code"`
	RespStartTime int64 `json:"resp_time_start_ms"`
	RespEndTime   int64 `json:"resp_time_end_ms"`
	NetRespTime   int64 `json:"net_resp_time_ms"`
	Data          any   `json:"data"`
}
