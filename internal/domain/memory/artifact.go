package memory

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ArtifactKindAudio    = "audio"
	ArtifactKindVideo    = "video"
	ArtifactKindImage    = "image"
	ArtifactKindDocument = "document"
)

// MediaArtifact is a typed blob reference produced by an external collaborator
// (voice, avatar, extraction). The service never interprets the payload behind
// the URI; it only records it.
type MediaArtifact struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SessionID string    `gorm:"type:text;not null;index" json:"session_id"`

	Kind string `gorm:"type:text;not null;index" json:"kind"`
	URI  string `gorm:"type:text;not null;default:''" json:"uri"`

	// MessageID links the artifact to the context entry that produced it.
	MessageID *uuid.UUID `gorm:"type:uuid;index" json:"message_id,omitempty"`

	Scope    string         `gorm:"type:text;not null;default:'global';index" json:"scope"`
	Metadata datatypes.JSON `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (MediaArtifact) TableName() string { return "scribe_media_artifact" }
