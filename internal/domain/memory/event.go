package memory

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	AuditActionSave            = "save"
	AuditActionBroadcast       = "broadcast"
	AuditActionResolveConflict = "resolve_conflict"
)

// AuditEvent is the append-only trace of write volume against a session.
// Rows are never updated or deleted.
type AuditEvent struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SessionID string    `gorm:"type:text;not null;index" json:"session_id"`

	Actor  string `gorm:"type:text;not null;default:''" json:"actor"`
	Action string `gorm:"type:text;not null;index" json:"action"`

	// Counts summarizes how many items of each payload kind were written,
	// including explicit zeros.
	Counts datatypes.JSON `gorm:"type:jsonb;not null;default:'{}'" json:"counts"`

	ContextVersion int64 `gorm:"not null;default:0" json:"context_version"`

	CreatedAt time.Time `gorm:"not null;default:now();index" json:"created_at"`
}

func (AuditEvent) TableName() string { return "scribe_audit_event" }
