package app

import (
	httpMW "github.com/yungbote/scribe-backend/internal/http/middleware"
	"github.com/yungbote/scribe-backend/internal/platform/logger"
)

type Middleware struct {
	ServiceAuth *httpMW.ServiceAuthMiddleware
}

func wireMiddleware(log *logger.Logger) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		ServiceAuth: httpMW.NewServiceAuthMiddleware(log),
	}
}
