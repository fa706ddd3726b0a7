package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/templui/doin/internal/aggregate"
	"github.com/templui/doin/internal/auth"
	"github.com/templui/doin/internal/clock"
	"github.com/templui/doin/internal/companion"
	"github.com/templui/doin/internal/config"
	"github.com/templui/doin/internal/db"
	"github.com/templui/doin/internal/gateway"
	"github.com/templui/doin/internal/middleware"
	"github.com/templui/doin/internal/notify"
	"github.com/templui/doin/internal/repository"
	"github.com/templui/doin/internal/service"
	"github.com/templui/doin/internal/storage"
)

type App struct {
	Cfg          *config.Config
	DB           *sqlx.DB
	Registry     *prometheus.Registry
	Client       *gateway.Client
	Gateway      *gateway.Gateway
	Resolver     companion.ProfileResolver
	Tokens       *auth.TokenService
	EventService *service.EventService
	Joiner       *service.Joiner
	Limiter      *middleware.RateLimiter
	Redis        *redis.Client
	Milestones   *notify.MilestoneTracker
	Jobs         *Jobs
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// Initialize database
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Run database migrations
	err = db.RunMigrations(ctx, database.DB, cfg.DBDriver)
	if err != nil {
		_ = db.Close(database)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := gateway.NewMetrics(registry)

	// Remote store
	client := gateway.NewClient(gateway.ClientConfig{
		BaseURL:   cfg.APIURL,
		AuthToken: cfg.APIToken,
		Timeout:   cfg.APITimeout,
	}, metrics)
	gw := gateway.New(client)

	var resolver companion.ProfileResolver
	if cfg.TwitterEnabled() {
		resolver = gateway.NewTwitterResolver(gateway.TwitterConfig{
			BaseURL:      cfg.TwitterAPIURL,
			TokenURL:     cfg.TwitterTokenURL,
			ClientID:     cfg.TwitterClientID,
			ClientSecret: cfg.TwitterClientSecret,
		}, metrics)
	} else {
		resolver = gateway.NewBackendResolver(client)
	}

	// Repositories
	cacheRepository := repository.NewCacheRepository(database)
	pendingRepository := repository.NewPendingRepository(database)

	opts := service.EventOptions{
		Thresholds: aggregate.MomentumThresholds{
			Hot24h: cfg.HotThreshold24h,
			Hot1h:  cfg.HotThreshold1h,
		},
		Location:     cfg.Location(),
		QueueOffline: cfg.OfflineQueue,
	}

	// Milestones (optional)
	var (
		rdb     *redis.Client
		tracker *notify.MilestoneTracker
	)
	if cfg.RedisEnabled() {
		rdb = notify.NewRedisClient(notify.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		tracker = notify.NewMilestoneTracker(rdb)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := tracker.Ping(pingCtx); err != nil {
			slog.Warn("redis unreachable, milestones will retry on next load", "addr", cfg.RedisAddr, "error", err)
		}
		cancel()
		opts.Milestones = tracker
	}

	// Report storage (optional)
	if cfg.StorageEnabled() {
		reports, err := storage.New(ctx, cfg)
		if err != nil {
			_ = db.Close(database)
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		opts.Storage = reports
	}

	// Services
	eventService := service.NewEventService(client, gw, cacheRepository, pendingRepository, clock.System(), opts)
	joiner := service.NewJoiner(eventService, resolver)

	var tokens *auth.TokenService
	if cfg.JWTSecret != "" {
		tokens = auth.NewTokenService(cfg.JWTSecret, cfg.JWTExpiry)
	} else {
		slog.Warn("JWT_SECRET not set, serving anonymous requests only")
	}

	app := &App{
		Cfg:          cfg,
		DB:           database,
		Registry:     registry,
		Client:       client,
		Gateway:      gw,
		Resolver:     resolver,
		Tokens:       tokens,
		EventService: eventService,
		Joiner:       joiner,
		Limiter:      middleware.NewRateLimiter(10, time.Minute),
		Redis:        rdb,
		Milestones:   tracker,
	}
	app.Jobs = NewJobs(app)
	return app, nil
}

func (a *App) Close() error {
	if a.Jobs != nil {
		a.Jobs.Stop()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			slog.Warn("failed to close redis", "error", err)
		}
	}
	if a.DB != nil {
		return db.Close(a.DB)
	}
	return nil
}
