package main

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/agenttrace/agenttrace/api/internal/config"
	"github.com/agenttrace/agenttrace/api/internal/handler"
	"github.com/agenttrace/agenttrace/api/internal/middleware"
	"github.com/agenttrace/agenttrace/api/internal/pkg/database"
	chrepo "github.com/agenttrace/agenttrace/api/internal/repository/clickhouse"
	pgrepo "github.com/agenttrace/agenttrace/api/internal/repository/postgres"
	"github.com/agenttrace/agenttrace/api/internal/service"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	Logger *zap.Logger

	// Database connections
	Postgres   *database.PostgresDB
	ClickHouse *database.ClickHouseDB
	Redis      *redis.Client
	Minio      *minio.Client

	// Repositories
	TraceRepo       *chrepo.TraceRepository
	ObservationRepo *chrepo.ObservationRepository
	ScoreRepo       *chrepo.ScoreRepository
	SessionRepo     *chrepo.SessionRepository
	UserRepo        *pgrepo.UserRepository
	OrgRepo         *pgrepo.OrgRepository
	ProjectRepo     *pgrepo.ProjectRepository
	APIKeyRepo      *pgrepo.APIKeyRepository
	PromptRepo      *pgrepo.PromptRepository
	MediaRepo       *pgrepo.MediaRepository

	// Services
	QueryService     *service.QueryService
	IngestionService *service.IngestionService
	ScoreService     *service.ScoreService
	PromptService    *service.PromptService
	AuthService      *service.AuthService
	OrgService       *service.OrgService
	ProjectService   *service.ProjectService
	CostService      *service.CostService
	MediaService     *service.MediaService

	// Handlers
	HealthHandler        *handler.HealthHandler
	IngestionHandler      *handler.IngestionHandler
	TracesHandler         *handler.TracesHandler
	ScoresHandler         *handler.ScoresHandler
	PromptsHandler        *handler.PromptsHandler
	APIKeysHandler        *handler.APIKeysHandler
	ProjectsHandler       *handler.ProjectsHandler
	OrganizationsHandler  *handler.OrganizationsHandler
	AuthHandler           *handler.AuthHandler
	DocsHandler           *handler.DocsHandler
	MediaHandler          *handler.MediaHandler

	// Middleware
	AuthMiddleware      *middleware.AuthMiddleware
	RateLimitMiddleware *middleware.RateLimitMiddleware

	// Asynq client, used to queue dead-lettered ingestion events for replay
	// by the worker binary.
	AsynqClient *asynq.Client
}

// initDependencies initializes all dependencies
func initDependencies(cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	ctx := context.Background()

	// Initialize PostgreSQL using database wrapper
	pgDB, err := database.NewPostgres(ctx, cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	deps.Postgres = pgDB

	// Initialize ClickHouse using database wrapper
	chDB, err := database.NewClickHouse(ctx, cfg.ClickHouse)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ClickHouse: %w", err)
	}
	deps.ClickHouse = chDB

	// Initialize Redis
	redisClient, err := initRedis(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Redis: %w", err)
	}
	deps.Redis = redisClient

	// Initialize MinIO
	minioClient, err := initMinio(cfg)
	if err != nil {
		logger.Warn("failed to initialize MinIO, media storage will be unavailable", zap.Error(err))
	}
	deps.Minio = minioClient

	// Initialize repositories
	deps.TraceRepo = chrepo.NewTraceRepository(chDB, logger)
	deps.ObservationRepo = chrepo.NewObservationRepository(chDB, logger)
	deps.ScoreRepo = chrepo.NewScoreRepository(chDB, logger)
	deps.SessionRepo = chrepo.NewSessionRepository(chDB)
	deps.UserRepo = pgrepo.NewUserRepository(pgDB)
	deps.OrgRepo = pgrepo.NewOrgRepositoryWithCache(pgDB, deps.Redis)
	deps.ProjectRepo = pgrepo.NewProjectRepository(pgDB)
	deps.APIKeyRepo = pgrepo.NewAPIKeyRepositoryWithCache(pgDB, deps.Redis)
	deps.PromptRepo = pgrepo.NewPromptRepository(pgDB)
	deps.MediaRepo = pgrepo.NewMediaRepository(pgDB)

	// Initialize Asynq client, used to enqueue dead-lettered ingestion events
	deps.AsynqClient = asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Initialize services
	deps.CostService = service.NewCostService(logger)
	if err := deps.CostService.LoadPricingOverrides("./config/pricing.yaml"); err != nil {
		logger.Warn("pricing overrides not applied", zap.Error(err))
	}
	deps.QueryService = service.NewQueryService(
		deps.TraceRepo,
		deps.ObservationRepo,
		deps.ScoreRepo,
		deps.SessionRepo,
	)
	deps.ScoreService = service.NewScoreService(
		deps.ScoreRepo,
		deps.TraceRepo,
		deps.ObservationRepo,
	)
	deps.IngestionService = service.NewIngestionService(
		logger,
		deps.TraceRepo,
		deps.ObservationRepo,
		deps.SessionRepo,
		deps.CostService,
	)
	deps.PromptService = service.NewPromptService(
		deps.PromptRepo,
	)
	deps.AuthService = service.NewAuthService(
		cfg,
		deps.UserRepo,
		deps.APIKeyRepo,
		deps.OrgRepo,
		deps.ProjectRepo,
		logger,
	)
	deps.OrgService = service.NewOrgService(
		deps.OrgRepo,
	)
	deps.ProjectService = service.NewProjectService(
		deps.ProjectRepo,
		deps.OrgRepo,
	)
	if deps.Minio != nil {
		deps.MediaService = service.NewMediaService(
			deps.MediaRepo,
			deps.Minio,
			cfg.MinIO,
			logger,
		)
	}

	// Initialize handlers
	deps.HealthHandler = handler.NewHealthHandler(
		pgDB.Pool,
		chDB.Conn,
		redisClient,
		"0.1.0",
	)
	deps.IngestionHandler = handler.NewIngestionHandler(
		deps.IngestionService,
		deps.ScoreService,
		deps.ProjectService,
		deps.AsynqClient,
		logger,
	)
	deps.TracesHandler = handler.NewTracesHandler(
		deps.QueryService,
		logger,
	)
	deps.ScoresHandler = handler.NewScoresHandler(
		deps.ScoreService,
		logger,
	)
	deps.PromptsHandler = handler.NewPromptsHandler(
		deps.PromptService,
		logger,
	)
	deps.APIKeysHandler = handler.NewAPIKeysHandler(
		deps.AuthService,
		logger,
	)
	deps.ProjectsHandler = handler.NewProjectsHandler(
		deps.ProjectService,
		logger,
	)
	deps.OrganizationsHandler = handler.NewOrganizationsHandler(
		deps.OrgService,
		logger,
	)
	deps.AuthHandler = handler.NewAuthHandler(
		deps.AuthService,
		logger,
	)
	deps.DocsHandler = handler.NewDocsHandler()
	if deps.MediaService != nil {
		deps.MediaHandler = handler.NewMediaHandler(
			deps.MediaService,
			logger,
		)
	}

	// Initialize middleware
	deps.AuthMiddleware = middleware.NewAuthMiddleware(deps.AuthService)
	deps.RateLimitMiddleware = middleware.NewRateLimitMiddleware(redisClient)

	return deps, nil
}

// Close closes all dependencies
func (d *Dependencies) Close() {
	if d.Postgres != nil {
		d.Postgres.Close()
	}
	if d.ClickHouse != nil {
		_ = d.ClickHouse.Close()
	}
	if d.Redis != nil {
		d.Redis.Close()
	}
	if d.AsynqClient != nil {
		d.AsynqClient.Close()
	}
}

// initRedis initializes Redis client
func initRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}

// initMinio initializes MinIO client
func initMinio(cfg *config.Config) (*minio.Client, error) {
	if cfg.MinIO.Endpoint == "" {
		return nil, nil // MinIO not configured
	}

	client, err := minio.New(cfg.MinIO.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, ""),
		Secure: cfg.MinIO.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, cfg.MinIO.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinIO.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return client, nil
}
