package memory

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

const ProtocolVersion = 1

// Retrieval modes. The mode changes per-collection limits only, never the
// shape of the envelope.
const (
	ModeFull    = "full"
	ModeSummary = "summary"
	ModeDelta   = "delta"
)

var sessionIDRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{2,127}$`)

// ValidateSessionID enforces the slug format shared with the UI: 3-128 chars
// of letters, numbers, '_' or '-'.
func ValidateSessionID(raw string) (string, error) {
	candidate := strings.TrimSpace(raw)
	if !sessionIDRe.MatchString(candidate) {
		return "", fmt.Errorf("invalid session_id: use 3-128 chars of letters, numbers, '_' or '-'")
	}
	return candidate, nil
}

// Envelope is the wire contract for all memory traffic between the UI, the
// relay and the store.
type Envelope struct {
	ProtocolVersion int            `json:"protocol_version"`
	TenantID        string         `json:"tenant_id,omitempty"`
	SessionID       string         `json:"session_id"`
	Actor           string         `json:"actor,omitempty"`
	DomainTags      []string       `json:"domain_tags,omitempty"`
	ModelCaps       map[string]any `json:"model_caps,omitempty"`
	ContextVersion  int64          `json:"context_version"`
	Compression     string         `json:"compression,omitempty"`
	Payload         Payload        `json:"payload"`
}

type Payload struct {
	ContextEntries []ContextEntryItem  `json:"context_entries,omitempty"`
	MemoryNodes    []MemoryNodeItem    `json:"memory_nodes,omitempty"`
	PlanUpdates    []PlanUpdate        `json:"plan_updates,omitempty"`
	MediaArtifacts []MediaArtifactItem `json:"media_artifacts,omitempty"`
	Events         []AuditEventItem    `json:"events,omitempty"`
}

type ContextEntryItem struct {
	ID        uuid.UUID       `json:"id,omitempty"`
	Seq       int64           `json:"seq,omitempty"`
	Role      string          `json:"role"`
	Speaker   string          `json:"speaker,omitempty"`
	Provider  string          `json:"provider,omitempty"`
	Model     string          `json:"model,omitempty"`
	Content   string          `json:"content"`
	Scope     string          `json:"scope,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at,omitempty"`
}

type MemoryNodeItem struct {
	ID         uuid.UUID       `json:"id,omitempty"`
	Kind       string          `json:"kind"`
	Content    string          `json:"content"`
	Importance float64         `json:"importance,omitempty"`
	Scope      string          `json:"scope,omitempty"`
	DecayAt    *time.Time      `json:"decay_at,omitempty"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
	CreatedAt  time.Time       `json:"created_at,omitempty"`
}

type PlanUpdate struct {
	ID     uuid.UUID      `json:"id,omitempty"`
	Title  string         `json:"title,omitempty"`
	Status string         `json:"status"`
	Steps  []PlanStepItem `json:"steps,omitempty"`
}

type PlanStepItem struct {
	ID       uuid.UUID `json:"id,omitempty"`
	Position int       `json:"position"`
	Title    string    `json:"title,omitempty"`
	Status   string    `json:"status"`
}

type MediaArtifactItem struct {
	ID        uuid.UUID       `json:"id,omitempty"`
	Kind      string          `json:"kind"`
	URI       string          `json:"uri"`
	MessageID *uuid.UUID      `json:"message_id,omitempty"`
	Scope     string          `json:"scope,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at,omitempty"`
}

type AuditEventItem struct {
	ID             uuid.UUID       `json:"id,omitempty"`
	Actor          string          `json:"actor,omitempty"`
	Action         string          `json:"action"`
	Counts         json.RawMessage `json:"counts,omitempty"`
	ContextVersion int64           `json:"context_version,omitempty"`
	CreatedAt      time.Time       `json:"created_at,omitempty"`
}

// Validate checks the envelope before any storage or provider work happens.
// A failure here is always a client error.
func (e *Envelope) Validate() error {
	if e == nil {
		return fmt.Errorf("missing envelope")
	}
	safeID, err := ValidateSessionID(e.SessionID)
	if err != nil {
		return err
	}
	e.SessionID = safeID
	if e.ContextVersion < 0 {
		return fmt.Errorf("context_version must not be negative")
	}
	for i := range e.Payload.ContextEntries {
		role := strings.TrimSpace(e.Payload.ContextEntries[i].Role)
		switch role {
		case "system", "user", "assistant", "tool":
		default:
			return fmt.Errorf("context_entries[%d]: unknown role %q", i, role)
		}
	}
	return nil
}

// SaveResult reports the outcome of one save/broadcast/resolve operation.
type SaveResult struct {
	SessionID      string         `json:"session_id"`
	ContextVersion int64          `json:"context_version"`
	Counts         map[string]int `json:"counts"`
}

// RetrieveRequest selects a bounded session snapshot. Safe marks the caller
// as a safe-mode actor, which is the only way local-safe entries are visible.
type RetrieveRequest struct {
	SessionID   string `json:"session_id"`
	TenantID    string `json:"tenant_id,omitempty"`
	Actor       string `json:"actor,omitempty"`
	Mode        string `json:"mode,omitempty"`
	Safe        bool   `json:"safe,omitempty"`
	TokenBudget int    `json:"token_budget,omitempty"`
}

// Limits bounds each payload collection for one retrieval mode.
type Limits struct {
	Entries   int
	Nodes     int
	Events    int
	Artifacts int
}

// LimitsForMode maps a retrieval mode to its per-collection limits. Summary
// trims aggressively, full is the most generous, delta sits between.
func LimitsForMode(mode string) Limits {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case ModeSummary:
		return Limits{Entries: 30, Nodes: 20, Events: 10, Artifacts: 10}
	case ModeDelta:
		return Limits{Entries: 60, Nodes: 40, Events: 30, Artifacts: 25}
	default:
		return Limits{Entries: 200, Nodes: 100, Events: 100, Artifacts: 100}
	}
}

// ConflictRequest asks the store to arbitrate between two observed versions.
type ConflictRequest struct {
	SessionID     string `json:"session_id"`
	Actor         string `json:"actor,omitempty"`
	LocalVersion  int64  `json:"local_version"`
	RemoteVersion int64  `json:"remote_version"`
	Resolution    string `json:"resolution,omitempty"` // merge|local|remote
}

type ConflictResult struct {
	SessionID      string `json:"session_id"`
	ContextVersion int64  `json:"context_version"`
	Resolution     string `json:"resolution"`
}
