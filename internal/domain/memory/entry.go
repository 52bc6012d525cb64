package memory

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ScopeGlobal    = "global"
	ScopeLocalSafe = "local-safe"
)

// ContextEntry is one persisted conversation message. Entries are immutable
// in normal flow; upserts with an explicit id exist only so a retried save
// cannot create duplicates.
type ContextEntry struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SessionID string    `gorm:"type:text;not null;index;index:idx_context_entry_session_seq,unique,priority:1" json:"session_id"`

	Seq int64 `gorm:"column:seq;not null;index:idx_context_entry_session_seq,unique,priority:2" json:"seq"`

	Role    string `gorm:"type:text;not null;index" json:"role"` // system|user|assistant|tool
	Speaker string `gorm:"type:text;not null;default:''" json:"speaker"`

	Provider string `gorm:"type:text;not null;default:''" json:"provider,omitempty"`
	Model    string `gorm:"type:text;not null;default:''" json:"model,omitempty"`

	Content string `gorm:"type:text;not null;default:''" json:"content"`

	// Scope partitions global from safe-mode-only memory. Storage is
	// scope-agnostic; filtering happens at retrieval time.
	Scope string `gorm:"type:text;not null;default:'global';index" json:"scope"`

	Metadata datatypes.JSON `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (ContextEntry) TableName() string { return "scribe_context_entry" }
