package internal

type Message[T any] struct {
	Type string `json:"type"`
	Data T      `json:"data"`
}

// Client -> server payloads.

type CreateRoomData struct {
	RoomName string `json:"roomName"`
	Username string `json:"username,omitempty"`
}

type JoinRoomData struct {
	RoomId   string `json:"roomId"`
	Username string `json:"username,omitempty"`
}

type PlayerInputData struct {
	Position Vec `json:"position"`
}

// CollisionReportData carries raw collision geometry; the server
// recomputes damage from it and owns the resulting health change.
type CollisionReportData struct {
	Player         string  `json:"player"` // "player1" or "player2"
	SpikePosition  Vec     `json:"spikePosition"`
	SpikeAngle     float64 `json:"spikeAngle"`
	CollisionPoint Vec     `json:"collisionPoint"`
}

// Server -> client payloads.

type UsernameSetData struct {
	Success  bool   `json:"success"`
	Username string `json:"username,omitempty"`
	Error    string `json:"error,omitempty"`
}

type RoomInfo struct {
	Id          string `json:"id"`
	Name        string `json:"name"`
	PlayerCount int    `json:"playerCount"`
	MaxPlayers  int    `json:"maxPlayers"`
}

type RoomPlayerInfo struct {
	Id       string `json:"id"`
	Username string `json:"username"`
	JoinedAt int64  `json:"joinedAt"`
}

type JoinedRoomData struct {
	RoomId       string           `json:"roomId"`
	RoomName     string           `json:"roomName"`
	PlayerNumber int              `json:"playerNumber"`
	TotalPlayers int              `json:"totalPlayers"`
	Players      []RoomPlayerInfo `json:"players"`
}

type PlayerJoinedData struct {
	PlayerId     string `json:"playerId"`
	Username     string `json:"username"`
	PlayerNumber int    `json:"playerNumber"`
	TotalPlayers int    `json:"totalPlayers"`
}

type PlayerLeftData struct {
	PlayerId     string `json:"playerId"`
	Username     string `json:"username"`
	PlayerNumber int    `json:"playerNumber"`
	TotalPlayers int    `json:"totalPlayers"`
}

type GameStartData struct {
	StartTimestamp int64    `json:"timestamp"` // epoch ms; clients self-delay to it
	SyncSeed       int64    `json:"timeSeed"`
	InitialState   Snapshot `json:"initialState"`
}

type CollisionData struct {
	Player   string  `json:"player"`
	Damage   float64 `json:"damage"`
	Position Vec     `json:"position"`
}

type ScoreUpdateData struct {
	Player1Score int    `json:"player1Score"`
	Player2Score int    `json:"player2Score"`
	RoundOver    bool   `json:"roundOver"`
	GameOver     bool   `json:"gameOver"`
	Winner       string `json:"winner,omitempty"`
}
