package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/scribe-backend/internal/data/db"
	"github.com/yungbote/scribe-backend/internal/observability"
	"github.com/yungbote/scribe-backend/internal/platform/envutil"
	"github.com/yungbote/scribe-backend/internal/platform/logger"
	"github.com/yungbote/scribe-backend/internal/providers"
	"github.com/yungbote/scribe-backend/internal/realtime"
	"github.com/yungbote/scribe-backend/internal/realtime/bus"
	"github.com/yungbote/scribe-backend/internal/telemetry"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Repos    Repos
	Services Services
	Registry *providers.Registry
	Recorder *telemetry.Recorder
	SSEHub   *realtime.SSEHub

	sseBus       bus.Bus
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func New() (*App, error) {
	cfg := LoadConfig()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")

	otelShutdown := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: "scribe-backend",
		Environment: cfg.Environment,
		Version:     cfg.Version,
	})

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.Migrate(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	theDB := pg.DB()

	ssehub := realtime.NewSSEHub(log)

	// The redis bus is optional; single-process deployments run hub-only.
	var sseBus bus.Bus
	if envutil.String("REDIS_ADDR", "") != "" {
		sseBus, err = bus.NewRedisBus(log)
		if err != nil {
			log.Warn("redis SSE bus unavailable, falling back to in-process hub", "error", err)
			sseBus = nil
		}
	}

	catalog, err := providers.LoadCatalog(cfg.ModelsConfigPath)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("load model catalog: %w", err)
	}
	registry := providers.NewRegistryFromEnv(log, catalog)
	log.Info("Providers configured", "providers", registry.Configured())

	recorder := telemetry.NewRecorder(cfg.TelemetryCapacity)

	reposet := wireRepos(theDB, log)
	serviceset := wireServices(theDB, log, reposet, registry, recorder, ssehub, sseBus)
	handlerset := wireHandlers(log, serviceset, registry, recorder, ssehub)
	middleware := wireMiddleware(log)
	router := wireRouter(log, handlerset, middleware)

	return &App{
		Log:          log,
		DB:           theDB,
		Router:       router,
		Cfg:          cfg,
		Repos:        reposet,
		Services:     serviceset,
		Registry:     registry,
		Recorder:     recorder,
		SSEHub:       ssehub,
		sseBus:       sseBus,
		otelShutdown: otelShutdown,
	}, nil
}

// Start begins background work: forwarding bus messages into the local hub.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if a.sseBus != nil {
		if err := a.sseBus.StartForwarder(ctx, a.SSEHub.Broadcast); err != nil {
			a.Log.Warn("sse bus forwarder failed to start", "error", err)
		}
	}
}

// Run serves until the process receives an interrupt, then drains in-flight
// requests before returning.
func (a *App) Run(addr string) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:    addr,
		Handler: a.Router,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.sseBus != nil {
		_ = a.sseBus.Close()
	}
	if a.otelShutdown != nil {
		_ = a.otelShutdown(context.Background())
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
