package main

import (
	"context"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
	goRedis "github.com/redis/go-redis/v9"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/fastygo/pets/api/handler"
	"github.com/fastygo/pets/domain"
	"github.com/fastygo/pets/internal/config"
	"github.com/fastygo/pets/internal/infrastructure/broker"
	"github.com/fastygo/pets/internal/infrastructure/buffer"
	"github.com/fastygo/pets/internal/infrastructure/eventbus"
	"github.com/fastygo/pets/internal/infrastructure/monitor"
	pgInfra "github.com/fastygo/pets/internal/infrastructure/postgres"
	redisInfra "github.com/fastygo/pets/internal/infrastructure/redis"
	"github.com/fastygo/pets/internal/infrastructure/security"
	"github.com/fastygo/pets/internal/middleware"
	"github.com/fastygo/pets/internal/router"
	"github.com/fastygo/pets/internal/services"
	"github.com/fastygo/pets/internal/services/lifecycle"
	"github.com/fastygo/pets/pkg/httpcontext"
	"github.com/fastygo/pets/pkg/logger"
	"github.com/fastygo/pets/repository"
	"github.com/fastygo/pets/repository/memory"
	"github.com/fastygo/pets/repository/postgres"
	redisRepo "github.com/fastygo/pets/repository/redis"
	"github.com/fastygo/pets/usecase"
	authUC "github.com/fastygo/pets/usecase/auth"
	petUC "github.com/fastygo/pets/usecase/pet"
	petUserUC "github.com/fastygo/pets/usecase/petuser"
)

type repositories struct {
	users    repository.UserRepository
	pets     repository.PetRepository
	petUsers repository.PetUserRepository
	sessions repository.SessionRepository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	manager.Listen()
	appCtx := manager.Context()

	var (
		pool        *pgxpool.Pool
		redisClient *goRedis.Client
	)
	if cfg.Storage.Driver == config.StoragePostgres {
		if err := pgInfra.RunMigrations(cfg.Database, cfg.Migrations, zapLogger); err != nil {
			zapLogger.Fatal("migrations failed", zap.Error(err))
		}
		pool, err = pgInfra.NewPool(appCtx, cfg.Database, zapLogger)
		if err != nil {
			zapLogger.Fatal("postgres connection failed", zap.Error(err))
		}
		manager.Register("postgres", func(ctx context.Context) error {
			pool.Close()
			return nil
		})
	}
	if cfg.NeedsRedis() {
		redisClient, err = redisInfra.NewClient(cfg.Redis, zapLogger)
		if err != nil {
			zapLogger.Fatal("redis connection failed", zap.Error(err))
		}
		manager.Register("redis", func(ctx context.Context) error {
			return redisClient.Close()
		})
	}

	repos := newRepositories(cfg, pool, redisClient)

	events, err := newBroker(cfg, redisClient, zapLogger)
	if err != nil {
		zapLogger.Fatal("broker connection failed", zap.Error(err), zap.String("driver", cfg.Broker.Driver))
	}
	var outbox *buffer.Store
	if cfg.Outbox.Enabled {
		outbox, err = buffer.Open(cfg.Outbox.Path, "outbox")
		if err != nil {
			zapLogger.Fatal("failed to open outbox store", zap.Error(err))
		}
	}
	registerEventing(manager, events, outbox)

	mon := monitor.New(monitor.Targets{
		Postgres: pool,
		Redis:    redisClient,
		Broker:   events,
		Outbox:   outbox,
	}, 0, zapLogger)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	var bus usecase.EventBus = eventbus.NewTopicBus(events, cfg.Broker.RoutingPrefix, zapLogger)
	if outbox != nil {
		bus = services.NewOutboxBus(events, outbox, cfg.Broker.RoutingPrefix, zapLogger)
		relay := services.NewOutboxRelay(outbox, events, mon, zapLogger, services.RelayConfig{
			Interval:            cfg.Outbox.SyncInterval,
			BatchSize:           cfg.Outbox.BatchSize,
			MaxRetries:          cfg.Outbox.MaxRetry,
			DeadLetterRetention: cfg.Outbox.DeadLetterTTL,
		})
		relay.Start()
		manager.Register("outbox_relay", func(ctx context.Context) error {
			relay.Stop(ctx)
			return nil
		})
	}

	tokens, err := security.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer)
	if err != nil {
		zapLogger.Fatal("jwt setup failed", zap.Error(err))
	}

	authUseCase := authUC.New(authUC.Deps{
		Users:    repos.users,
		Sessions: repos.sessions,
		Hasher:   security.NewBcryptHasher(cfg.Auth.BcryptCost),
		Tokens:   tokens,
		Bus:      bus,
		TokenTTL: cfg.Auth.TokenTTL,
		Logger:   zapLogger,
	})
	petUserUseCase := petUserUC.New(repos.petUsers, bus, zapLogger)
	petUseCase := petUC.New(repos.pets, repos.petUsers, bus, zapLogger)

	userCreated := eventbus.BindingPattern(cfg.Broker.RoutingPrefix, domain.EventUserCreated)
	bindings := []struct {
		queue    string
		listener usecase.DomainEventListener
	}{
		{cfg.Broker.QueueUserCreatedLog, authUC.NewLogOnUserCreated(zapLogger)},
		{cfg.Broker.QueueUserCreatedPets, petUserUC.NewOnUserCreated(petUserUseCase, zapLogger)},
	}
	for _, b := range bindings {
		if err := events.Subscribe(b.queue, userCreated, eventbus.Consume(b.listener)); err != nil {
			zapLogger.Fatal("queue binding failed", zap.String("queue", b.queue), zap.Error(err))
		}
		zapLogger.Info("queue bound", zap.String("queue", b.queue), zap.String("pattern", userCreated))
	}

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Users:  apiHandler.NewUserHandler(authUseCase, ctxAdapter, zapLogger),
		Pets:   apiHandler.NewPetHandler(petUseCase, ctxAdapter, zapLogger),
		Health: apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
	}

	authMiddleware := middleware.JWTAuth(tokens, authUseCase, zapLogger)
	r := router.New(handlers, authMiddleware)

	server := &fasthttp.Server{
		Handler:      r.Handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Concurrency:  cfg.HTTP.MaxConn,
		Name:         cfg.AppName,
	}

	manager.Go("http_server", func() error {
		zapLogger.Info("server started",
			zap.String("address", cfg.Address()),
			zap.String("storage", cfg.Storage.Driver),
			zap.String("broker", cfg.Broker.Driver),
			zap.Bool("outbox", cfg.Outbox.Enabled),
		)
		return server.ListenAndServe(cfg.Address())
	})
	manager.Register("http_server", func(ctx context.Context) error {
		return server.ShutdownWithContext(ctx)
	})

	if err := manager.Wait(); err != nil {
		zapLogger.Error("component failure, shutting down", zap.Error(err))
	}
	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}

// registerEventing closes the broker before the outbox: hooks run in reverse,
// and in-flight deliveries may still publish through the outbox.
func registerEventing(manager *lifecycle.Manager, events broker.Broker, outbox *buffer.Store) {
	if outbox != nil {
		manager.Register("outbox", func(ctx context.Context) error {
			return outbox.Close()
		})
	}
	manager.Register("broker", func(ctx context.Context) error {
		return events.Close()
	})
}

func newRepositories(cfg *config.Config, pool *pgxpool.Pool, redisClient *goRedis.Client) repositories {
	if cfg.Storage.Driver == config.StorageMemory {
		return repositories{
			users:    memory.NewUserRepository(),
			pets:     memory.NewPetRepository(),
			petUsers: memory.NewPetUserRepository(),
			sessions: memory.NewSessionRepository(cfg.Auth.TokenTTL),
		}
	}
	return repositories{
		users:    postgres.NewUserRepository(pool),
		pets:     postgres.NewPetRepository(pool),
		petUsers: postgres.NewPetUserRepository(pool),
		sessions: redisRepo.NewSessionRepository(redisClient, cfg.Auth.TokenTTL),
	}
}

func newBroker(cfg *config.Config, redisClient *goRedis.Client, zapLogger *zap.Logger) (broker.Broker, error) {
	switch cfg.Broker.Driver {
	case config.BrokerNATS:
		nb, err := broker.NewNATSBroker(broker.NATSConfig{
			URL:  cfg.Broker.URL,
			Name: cfg.AppName,
		}, zapLogger)
		if err != nil {
			return nil, err
		}
		return nb, nil
	case config.BrokerRedis:
		return broker.NewRedisBroker(redisClient, zapLogger), nil
	default:
		return broker.NewExchange(cfg.Broker.Exchange, cfg.Broker.QueueSize, zapLogger), nil
	}
}
