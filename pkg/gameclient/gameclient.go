// Package gameclient holds the client half of the state-synchronization
// engine: a locally predicted match state advanced every frame through an
// injected physics simulator, reconciled against authoritative server
// snapshots by timestamp. It owns no rendering and no physics math; those
// stay behind the Renderer and Simulator seams.
package gameclient

import (
	"sync"
	"time"

	"github.com/okaras/spikearena-backend/internal"
)

// InputFlags is the raw directional intent sampled from the local player.
type InputFlags struct {
	Up    bool `json:"up"`
	Down  bool `json:"down"`
	Left  bool `json:"left"`
	Right bool `json:"right"`
}

// Simulator advances the predicted state by one frame for the local
// player. Implementations wrap the actual physics engine.
type Simulator interface {
	Step(state *internal.MatchState, input InputFlags, playerNumber int)
}

// Predictor keeps the locally predicted MatchState between server
// snapshots. Created at match start from the server's initial snapshot;
// discarded when the match ends.
type Predictor struct {
	mu           sync.Mutex
	playerNumber int
	state        internal.MatchState
	input        InputFlags
	lastApplied  int64
	sim          Simulator
}

// NewPredictor seeds the predicted state from the gameStart snapshot.
func NewPredictor(playerNumber int, initial internal.Snapshot, sim Simulator) (*Predictor, error) {
	state, err := initial.Decode()
	if err != nil {
		return nil, err
	}
	return &Predictor{
		playerNumber: playerNumber,
		state:        state,
		lastApplied:  initial.T,
		sim:          sim,
	}, nil
}

// SetInput records the local input flags used by subsequent Advance calls.
func (p *Predictor) SetInput(f InputFlags) {
	p.mu.Lock()
	p.input = f
	p.mu.Unlock()
}

// Advance steps the predicted state one frame through the simulator.
// Called from the render loop between network updates.
func (p *Predictor) Advance() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state.RoundOver || p.state.GameOver {
		return
	}
	p.sim.Step(&p.state, p.input, p.playerNumber)
}

// ApplySnapshot merges an authoritative snapshot into the predicted
// state. A snapshot whose timestamp is not strictly newer than the last
// applied one is stale (out-of-order delivery) and dropped; a newer one
// overwrites position, health, score and the over flags wholesale, with
// no interpolation.
func (p *Predictor) ApplySnapshot(s internal.Snapshot) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !s.NewerThan(p.lastApplied) {
		return false, nil
	}
	state, err := s.Decode()
	if err != nil {
		return false, err
	}
	p.state = state
	p.lastApplied = s.T
	return true, nil
}

// State returns a copy of the current predicted state.
func (p *Predictor) State() internal.MatchState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// LastApplied returns the timestamp of the newest applied snapshot.
func (p *Predictor) LastApplied() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastApplied
}

// OwnPosition returns the predicted position of the local player, the
// value reported to the server by the input sender.
func (p *Predictor) OwnPosition() internal.Vec {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playerNumber == 1 {
		return p.state.Player1
	}
	return p.state.Player2
}

// InputSender rate-limits outgoing position reports. The render loop can
// offer a position every frame; sends happen at most once per interval.
type InputSender struct {
	mu       sync.Mutex
	interval time.Duration
	lastSend time.Time
	send     func(internal.Vec)
	now      func() time.Time
}

// DefaultSendInterval is 20 Hz, the observed client report rate.
const DefaultSendInterval = 50 * time.Millisecond

func NewInputSender(interval time.Duration, send func(internal.Vec)) *InputSender {
	if interval <= 0 {
		interval = DefaultSendInterval
	}
	return &InputSender{
		interval: interval,
		send:     send,
		now:      time.Now,
	}
}

// Offer submits the current position; it is forwarded only if the send
// interval has elapsed since the last forwarded report. Returns whether
// the position was sent.
func (s *InputSender) Offer(pos internal.Vec) bool {
	s.mu.Lock()
	now := s.now()
	if now.Sub(s.lastSend) < s.interval {
		s.mu.Unlock()
		return false
	}
	s.lastSend = now
	send := s.send
	s.mu.Unlock()

	send(pos)
	return true
}
