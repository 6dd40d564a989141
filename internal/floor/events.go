package floor

import "time"

// StatusChange is emitted after a status transition commits.
type StatusChange struct {
	Kind      EntityKind `json:"kind"`
	ID        string     `json:"id"`
	From      string     `json:"from"`
	To        string     `json:"to"`
	ChangedAt time.Time  `json:"changed_at"`
}
