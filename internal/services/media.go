package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/scribe-backend/internal/domain"
	"github.com/yungbote/scribe-backend/internal/pkg/dbctx"
	"github.com/yungbote/scribe-backend/internal/platform/envutil"
	"github.com/yungbote/scribe-backend/internal/platform/logger"
)

// MediaService records artifacts produced by external collaborators (voice,
// avatar, extraction). Payloads behind the URIs are opaque to this service.
type MediaService interface {
	AttachArtifact(dbc dbctx.Context, sessionID string, item types.MediaArtifactItem) (*types.SaveResult, error)
	SynthesizeVoice(dbc dbctx.Context, sessionID string, text string, messageID *uuid.UUID) (*types.SaveResult, error)
}

type mediaService struct {
	db     *gorm.DB
	log    *logger.Logger
	memory MemoryService

	voiceURL   string
	httpClient *http.Client
}

func NewMediaService(db *gorm.DB, baseLog *logger.Logger, memorySvc MemoryService) MediaService {
	return &mediaService{
		db:         db,
		log:        baseLog.With("service", "MediaService"),
		memory:     memorySvc,
		voiceURL:   envutil.String("VOICE_SERVICE_URL", ""),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (s *mediaService) AttachArtifact(dbc dbctx.Context, sessionID string, item types.MediaArtifactItem) (*types.SaveResult, error) {
	return s.memory.Save(dbc, &types.Envelope{
		ProtocolVersion: types.ProtocolVersion,
		SessionID:       sessionID,
		Actor:           "media",
		Payload: types.Payload{
			MediaArtifacts: []types.MediaArtifactItem{item},
		},
	})
}

// SynthesizeVoice calls the voice collaborator and records the returned audio
// URI as an artifact. The audio itself never passes through this process.
func (s *mediaService) SynthesizeVoice(dbc dbctx.Context, sessionID string, text string, messageID *uuid.UUID) (*types.SaveResult, error) {
	if s.voiceURL == "" {
		return nil, fmt.Errorf("voice service not configured")
	}
	body, err := json.Marshal(map[string]any{"text": text, "session_id": sessionID})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(dbc.Ctx, http.MethodPost, s.voiceURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("voice service call failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("voice service error (%d): %s", resp.StatusCode, string(raw))
	}

	var parsed struct {
		URI string `json:"uri"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("voice service decode: %w", err)
	}
	if parsed.URI == "" {
		return nil, fmt.Errorf("voice service returned no uri")
	}

	return s.AttachArtifact(dbc, sessionID, types.MediaArtifactItem{
		Kind:      "audio",
		URI:       parsed.URI,
		MessageID: messageID,
	})
}
