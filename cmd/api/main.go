package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/opsboard/internal/api/http"
	"github.com/spec-kit/opsboard/internal/api/http/handlers"
	"github.com/spec-kit/opsboard/internal/auth"
	"github.com/spec-kit/opsboard/internal/config"
	"github.com/spec-kit/opsboard/internal/events"
	"github.com/spec-kit/opsboard/internal/lifecycle"
	"github.com/spec-kit/opsboard/internal/observability"
	"github.com/spec-kit/opsboard/internal/persistence"
	"github.com/spec-kit/opsboard/internal/repository"
	"github.com/spec-kit/opsboard/internal/repository/memory"
	"github.com/spec-kit/opsboard/internal/seed"
	"github.com/spec-kit/opsboard/internal/service"
	"github.com/spec-kit/opsboard/internal/worker"
)

type repositories struct {
	tx       repository.TxManager
	users    repository.UserRepository
	requests repository.RequestRepository
	events   repository.RequestEventRepository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	repos := buildRepositories(ctx, cfg, pg, logger)
	metrics := observability.NewMetrics()

	var revoker auth.TokenRevoker = auth.NewMemoryTokenRevoker()
	if client := redis.Handle(); client != nil {
		revoker = auth.NewRedisTokenRevoker(client, cfg.Board.CachePrefix)
	}
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL())

	dispatcher := events.NewInMemoryDispatcher()
	var (
		outbound events.Publisher
		queue    *worker.PublishQueue
	)
	if rabbit := events.NewRabbitPublisher(cfg.Broker, logger); rabbit != nil {
		queue = worker.NewPublishQueue(rabbit, cfg.Broker.BufferSize, logger)
		outbound = queue
	}
	workerCtx, stopWorker := context.WithCancel(ctx)
	workerDone := worker.StartNotificationWorker(workerCtx,
		service.NewNotificationService(dispatcher, outbound, logger), queue)

	boardService := service.NewBoardService(repos.requests, redis.Handle(), cfg.Board.CacheTTL(), cfg.Board.CachePrefix, logger)
	requestService := service.NewRequestService(service.RequestDependencies{
		TxManager:   repos.tx,
		RequestRepo: repos.requests,
		EventRepo:   repos.events,
		UserRepo:    repos.users,
		Engine:      lifecycle.NewEngine(),
		OwnerPolicy: cfg.Requests.OwnerPolicy,
		Dispatcher:  dispatcher,
		Board:       boardService,
		Metrics:     metrics,
		Logger:      logger,
	})
	authService := service.NewAuthService(service.AuthDependencies{
		UserRepo:     repos.users,
		TokenManager: tokens,
		Revoker:      revoker,
		Logger:       logger,
	})
	authMiddleware := auth.NewAuthMiddleware(tokens, revoker, repos.users, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		BodyLimit:    1 << 20,
		ReadTimeout:  cfg.App.RequestTimeout(),
		WriteTimeout: cfg.App.RequestTimeout(),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, httptransport.MiddlewareConfig{
		Timeout:      cfg.App.RequestTimeout(),
		AllowOrigins: cfg.CORS.AllowOrigins,
	})

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics),
		Auth:           handlers.NewAuthHandler(authService),
		Requests:       handlers.NewRequestsHandler(requestService),
		Board:          handlers.NewBoardHandler(boardService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
	stopWorker()
	<-workerDone
}

// buildRepositories picks Postgres when a DSN is configured and otherwise an
// in-memory store preloaded with the default accounts.
func buildRepositories(ctx context.Context, cfg *config.Config, pg *persistence.Postgres, logger *zap.Logger) repositories {
	if pg.Enabled() {
		pool := pg.PoolHandle()
		return repositories{
			tx:       repository.NewTxManager(pool),
			users:    repository.NewUserRepository(pool),
			requests: repository.NewRequestRepository(pool),
			events:   repository.NewRequestEventRepository(pool),
		}
	}

	store := memory.NewStore()
	if _, err := seed.Users(ctx, store.Users(), seed.DefaultAccounts, seed.DefaultPassword, cfg.Auth.BcryptCost); err != nil {
		logger.Fatal("failed to seed in-memory users", zap.Error(err))
	}
	logger.Warn("running on the in-memory store; data is lost on restart",
		zap.Int("seeded_users", len(seed.DefaultAccounts)))
	return repositories{
		tx:       store.TxManager(),
		users:    store.Users(),
		requests: store.Requests(),
		events:   store.Events(),
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
