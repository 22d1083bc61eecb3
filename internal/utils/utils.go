package utils

import (
	"time"

	"github.com/google/uuid"
)

// GenerateID returns a unique identifier for connections and rooms.
func GenerateID() string {
	return uuid.NewString()
}

// SyncSeed derives the shared seed clients use for display-only
// deterministic randomness (synchronized initial impulses). Unix seconds,
// so both clients of a match resolve the same value from the start message.
func SyncSeed(now time.Time) int64 {
	return now.Unix()
}
