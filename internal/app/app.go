package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/poolside-labs/squares-pool/internal/config"
	"github.com/poolside-labs/squares-pool/internal/domain/audit"
	"github.com/poolside-labs/squares-pool/internal/infrastructure/auditlog"
	"github.com/poolside-labs/squares-pool/internal/infrastructure/notify"
	"github.com/poolside-labs/squares-pool/internal/infrastructure/store/memory"
	"github.com/poolside-labs/squares-pool/internal/infrastructure/store/postgres"
	"github.com/poolside-labs/squares-pool/internal/interfaces/httpapi"
	idgen "github.com/poolside-labs/squares-pool/internal/platform/id"
	"github.com/poolside-labs/squares-pool/internal/platform/logging"
	"github.com/poolside-labs/squares-pool/internal/platform/random"
	"github.com/poolside-labs/squares-pool/internal/usecase"
)

// App owns every long-lived component: the HTTP server, the entity store,
// the event broker, and the auto-lock scheduler. Start spawns the
// background loops; Close tears everything down in reverse order.
type App struct {
	Server *http.Server

	cfg           config.Config
	logger        *logging.Logger
	broker        *notify.MemoryBroker
	redisClient   *redis.Client
	redisNotifier *notify.RedisNotifier
	scheduler     *usecase.AutoLockScheduler
	db            *sqlx.DB
}

func New(ctx context.Context, cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.HTTPAddr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	broker, err := notify.NewMemoryBroker(logger)
	if err != nil {
		return nil, fmt.Errorf("build event broker: %w", err)
	}

	var (
		store    usecase.EntityStore
		recorder audit.Recorder
		auditLog audit.Log
		db       *sqlx.DB
	)
	switch cfg.StoreKind {
	case config.StorePostgres:
		db, err = postgres.Open(ctx, cfg.DBURL)
		if err != nil {
			broker.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		store = postgres.NewStore(db)
		cached := auditlog.NewCachedLog(auditlog.NewPostgresLog(db), auditlog.DefaultCacheTTL)
		recorder, auditLog = cached, cached
	default:
		memStore := memory.NewStore()
		if cfg.AppEnv == config.EnvDev {
			memStore.Seed(nil, memory.SeedUsers())
		}
		store = memStore
		memLog := auditlog.NewMemoryLog(cfg.AuditLogCapacity)
		recorder, auditLog = memLog, memLog
	}

	var (
		notifier      usecase.Notifier = broker
		redisClient   *redis.Client
		redisNotifier *notify.RedisNotifier
	)
	if cfg.RedisEnabled {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		channel := cfg.RedisChannel
		if channel == "" {
			channel = notify.DefaultChannel
		}
		redisNotifier = notify.NewRedisNotifier(redisClient, channel, logger)
		notifier = redisNotifier
	}

	rng, err := random.New()
	if err != nil {
		closeQuietly(broker, redisClient, db)
		return nil, fmt.Errorf("build random generator: %w", err)
	}
	idGen := idgen.NewRandomGenerator()

	poolSvc := usecase.NewPoolService(store, notifier, recorder, idGen, logger)
	userSvc := usecase.NewUserService(store, recorder, idGen, logger)
	reservationSvc := usecase.NewReservationService(store, notifier, recorder, idGen, rng, logger)
	lockSvc := usecase.NewLockService(store, notifier, recorder, idGen, rng, logger)
	settlementSvc := usecase.NewSettlementService(store, notifier, recorder, idGen, logger)
	auditSvc := usecase.NewAuditService(auditLog, logger)

	scheduler := usecase.NewAutoLockScheduler(store, lockSvc, recorder, idGen, logger, cfg.AutoLockInterval)

	handler := httpapi.NewHandler(poolSvc, userSvc, reservationSvc, lockSvc, settlementSvc, auditSvc, broker, logger)
	router := httpapi.NewRouter(handler, logger, cfg.SwaggerEnabled, cfg.CORSAllowedOrigins)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return &App{
		Server:        server,
		cfg:           cfg,
		logger:        logger,
		broker:        broker,
		redisClient:   redisClient,
		redisNotifier: redisNotifier,
		scheduler:     scheduler,
		db:            db,
	}, nil
}

// Start launches the background loops. It does not start the HTTP server;
// the caller owns ListenAndServe so it can manage shutdown ordering.
func (a *App) Start(ctx context.Context) {
	if a.cfg.AutoLockEnabled {
		go a.scheduler.Run(ctx)
	}
	if a.redisNotifier != nil {
		go func() {
			if err := a.redisNotifier.Subscribe(ctx, a.broker); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.ErrorContext(ctx, "redis subscription ended", "error", err)
			}
		}()
	}
}

// Health reports readiness of the storage substrate.
func (a *App) Health(ctx context.Context) error {
	if a.db != nil {
		return a.db.PingContext(ctx)
	}
	return nil
}

func (a *App) Close() {
	a.broker.Close()
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("close redis client", "error", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("close postgres", "error", err)
		}
	}
}

func closeQuietly(broker *notify.MemoryBroker, redisClient *redis.Client, db *sqlx.DB) {
	if broker != nil {
		broker.Close()
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if db != nil {
		_ = db.Close()
	}
}
