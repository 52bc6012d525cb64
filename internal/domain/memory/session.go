package memory

import (
	"time"

	"gorm.io/datatypes"
)

// Session is the root aggregate for one shared conversation. Session ids are
// client-chosen slugs (validated at the edge), so the primary key is text
// rather than a generated uuid.
type Session struct {
	ID       string `gorm:"type:text;primaryKey" json:"id"`
	TenantID string `gorm:"type:text;not null;default:'';index" json:"tenant_id"`

	// ContextVersion is the monotonic counter guarding concurrent writers.
	// Every mutating save recomputes it as max(stored, requested)+1 inside
	// the same transaction that applies the mutation.
	ContextVersion int64 `gorm:"not null;default:0" json:"context_version"`

	LastActor      string         `gorm:"type:text;not null;default:''" json:"last_actor"`
	LastDomainTags datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'" json:"last_domain_tags"`
	Metadata       datatypes.JSON `gorm:"type:jsonb;not null;default:'{}'" json:"metadata"`

	CreatedAt time.Time `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now();index" json:"updated_at"`
}

func (Session) TableName() string { return "scribe_session" }
