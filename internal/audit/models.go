package audit

import "time"

// Action names a tree mutation worth recording.
type Action string

const (
	ActionNodeDeleted  Action = "node_deleted"
	ActionNodeRestored Action = "node_restored"
	ActionNodesSynced  Action = "nodes_synced"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so sinks can fan out.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Action    Action    `json:"action"`
	ActorID   int64     `json:"actor_id"`
	NodeID    int64     `json:"node_id"`
	ParentID  *int64    `json:"parent_id,omitempty"`
	Count     int       `json:"count,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
}
