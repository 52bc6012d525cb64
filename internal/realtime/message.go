package realtime

// Events fanned out to connected UIs. Channel is the session id.
const (
	SSEEventMemorySaved      = "memory.saved"
	SSEEventMemoryBroadcast  = "memory.broadcast"
	SSEEventConflictResolved = "memory.conflict_resolved"
	SSEEventArtifactAdded    = "memory.artifact_added"
)

type SSEMessage struct {
	Channel string         `json:"channel"`
	Event   string         `json:"event"`
	Data    map[string]any `json:"data,omitempty"`
}
