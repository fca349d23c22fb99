package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/agenttrace/agenttrace/api/internal/config"
	"github.com/agenttrace/agenttrace/api/internal/pkg/database"
	chrepo "github.com/agenttrace/agenttrace/api/internal/repository/clickhouse"
	pgrepo "github.com/agenttrace/agenttrace/api/internal/repository/postgres"
	"github.com/agenttrace/agenttrace/api/internal/service"
	"github.com/agenttrace/agenttrace/api/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	var logger *zap.Logger
	if cfg.Server.Env == "production" {
		logger, _ = zap.NewProduction()
	} else {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()

	logger.Info("starting worker service")

	deps, cleanup, err := initWorkerDependencies(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize dependencies", zap.Error(err))
	}
	defer cleanup()

	workerServer, err := worker.NewServer(logger, cfg, deps)
	if err != nil {
		logger.Fatal("failed to create worker server", zap.Error(err))
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- workerServer.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("shutting down worker...")
		workerServer.Stop()
	case err := <-errCh:
		if err != nil {
			logger.Error("worker server error", zap.Error(err))
		}
	}

	logger.Info("worker stopped")
}

// initWorkerDependencies initializes dependencies for the background worker:
// cost recomputation, dead-letter replay, and retention cleanup.
func initWorkerDependencies(cfg *config.Config, logger *zap.Logger) (*worker.WorkerDependencies, func(), error) {
	ctx := context.Background()

	pgDB, err := database.NewPostgres(ctx, cfg.Postgres)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}

	chDB, err := database.NewClickHouse(ctx, cfg.ClickHouse)
	if err != nil {
		pgDB.Close()
		return nil, nil, fmt.Errorf("failed to initialize ClickHouse: %w", err)
	}

	traceRepo := chrepo.NewTraceRepository(chDB, logger)
	observationRepo := chrepo.NewObservationRepository(chDB, logger)
	scoreRepo := chrepo.NewScoreRepository(chDB, logger)
	sessionRepo := chrepo.NewSessionRepository(chDB)
	projectRepo := pgrepo.NewProjectRepository(pgDB)
	orgRepo := pgrepo.NewOrgRepository(pgDB)

	costService := service.NewCostService(logger)
	queryService := service.NewQueryService(traceRepo, observationRepo, scoreRepo, sessionRepo)
	ingestionService := service.NewIngestionService(logger, traceRepo, observationRepo, sessionRepo, costService)
	scoreService := service.NewScoreService(scoreRepo, traceRepo, observationRepo)
	projectService := service.NewProjectService(projectRepo, orgRepo)

	deps := &worker.WorkerDependencies{
		CostService:      costService,
		ScoreService:     scoreService,
		QueryService:     queryService,
		IngestionService: ingestionService,
		ProjectService:   projectService,
		TraceRepo:        traceRepo,
		ObservationRepo:  observationRepo,
		ScoreRepo:        scoreRepo,
	}

	cleanup := func() {
		pgDB.Close()
		chDB.Close()
	}

	return deps, cleanup, nil
}
