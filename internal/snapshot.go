package internal

import (
	"fmt"
	"strconv"
	"strings"
)

// Snapshot is the compact wire form of MatchState used by the periodic
// gameUpdate broadcast. Per-player position and health are packed into a
// single "x|y|health" string, which keeps the 30 Hz payload well under the
// equivalent nested-JSON size.
type Snapshot struct {
	P1           string `json:"p1"`
	P2           string `json:"p2"`
	Player1Score int    `json:"player1Score"`
	Player2Score int    `json:"player2Score"`
	RoundOver    bool   `json:"roundOver"`
	GameOver     bool   `json:"gameOver"`
	Winner       string `json:"winner,omitempty"`
	T            int64  `json:"t"` // send timestamp, epoch ms
}

func packPlayer(pos Vec, health float64) string {
	return strconv.FormatFloat(pos.X, 'f', 2, 64) + "|" +
		strconv.FormatFloat(pos.Y, 'f', 2, 64) + "|" +
		strconv.FormatFloat(health, 'f', 2, 64)
}

func unpackPlayer(s string) (Vec, float64, error) {
	parts := strings.Split(s, "|")
	if len(parts) != 3 {
		return Vec{}, 0, fmt.Errorf("malformed player field %q", s)
	}
	vals := make([]float64, 3)
	for i, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return Vec{}, 0, fmt.Errorf("malformed player field %q: %w", s, err)
		}
		vals[i] = v
	}
	return Vec{X: vals[0], Y: vals[1]}, vals[2], nil
}

// EncodeSnapshot packs the authoritative state for the wire.
func EncodeSnapshot(st MatchState) Snapshot {
	return Snapshot{
		P1:           packPlayer(st.Player1, st.Player1Health),
		P2:           packPlayer(st.Player2, st.Player2Health),
		Player1Score: st.Player1Score,
		Player2Score: st.Player2Score,
		RoundOver:    st.RoundOver,
		GameOver:     st.GameOver,
		Winner:       st.Winner,
		T:            st.UpdatedAt,
	}
}

// Decode expands a wire snapshot back into a MatchState. Phase is not on
// the wire; receivers derive what they need from the over flags.
func (s Snapshot) Decode() (MatchState, error) {
	p1, h1, err := unpackPlayer(s.P1)
	if err != nil {
		return MatchState{}, err
	}
	p2, h2, err := unpackPlayer(s.P2)
	if err != nil {
		return MatchState{}, err
	}
	return MatchState{
		Player1:       p1,
		Player2:       p2,
		Player1Health: h1,
		Player2Health: h2,
		Player1Score:  s.Player1Score,
		Player2Score:  s.Player2Score,
		RoundOver:     s.RoundOver,
		GameOver:      s.GameOver,
		Winner:        s.Winner,
		UpdatedAt:     s.T,
	}, nil
}

// NewerThan reports whether this snapshot is strictly newer than the given
// last-applied timestamp. Equal or older snapshots are stale and must be
// dropped by receivers.
func (s Snapshot) NewerThan(lastApplied int64) bool {
	return s.T > lastApplied
}
