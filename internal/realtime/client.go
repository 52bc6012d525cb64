package realtime

import (
	"github.com/google/uuid"

	"github.com/yungbote/scribe-backend/internal/platform/logger"
)

type SSEClient struct {
	ID       uuid.UUID
	Actor    string
	Channels map[string]bool
	Outbound chan SSEMessage
	done     chan struct{}
	Logger   *logger.Logger
}
