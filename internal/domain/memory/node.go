package memory

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	NodeKindFact       = "fact"
	NodeKindPreference = "preference"
	NodeKindWorkflow   = "workflow"
	NodeKindError      = "error"
	NodeKindSummary    = "summary"
)

// MemoryNode is a typed durable fact attached to a session.
type MemoryNode struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SessionID string    `gorm:"type:text;not null;index" json:"session_id"`

	Kind       string  `gorm:"type:text;not null;index" json:"kind"`
	Content    string  `gorm:"type:text;not null;default:''" json:"content"`
	Importance float64 `gorm:"not null;default:0.5" json:"importance"`

	Scope string `gorm:"type:text;not null;default:'global';index" json:"scope"`

	// DecayAt marks when the node stops being relevant; retrieval ignores
	// expired nodes but nothing deletes them.
	DecayAt *time.Time `gorm:"index" json:"decay_at,omitempty"`

	Metadata datatypes.JSON `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (MemoryNode) TableName() string { return "scribe_memory_node" }
