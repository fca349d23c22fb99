package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/agenttrace/agenttrace/api/internal/config"
	chrepo "github.com/agenttrace/agenttrace/api/internal/repository/clickhouse"
	"github.com/agenttrace/agenttrace/api/internal/service"
)

// Server is the worker server
type Server struct {
	logger     *zap.Logger
	config     *config.Config
	server     *asynq.Server
	mux        *asynq.ServeMux
	scheduler  *asynq.Scheduler
	client     *asynq.Client
}

// TypeScheduleCleanup is the task type for the daily fan-out that enqueues
// a per-project retention cleanup task plus an orphan cleanup task.
const TypeScheduleCleanup = "cleanup:schedule"

// WorkerDependencies holds dependencies for workers
type WorkerDependencies struct {
	CostService      *service.CostService
	ScoreService     *service.ScoreService
	QueryService     *service.QueryService
	IngestionService *service.IngestionService
	ProjectService   *service.ProjectService
	// Repositories for cleanup worker
	TraceRepo       *chrepo.TraceRepository
	ObservationRepo *chrepo.ObservationRepository
	ScoreRepo       *chrepo.ScoreRepository
}

// NewServer creates a new worker server
func NewServer(
	logger *zap.Logger,
	cfg *config.Config,
	deps *WorkerDependencies,
) (*Server, error) {
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	// Create asynq server
	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: cfg.Worker.Concurrency,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("task processing failed",
					zap.String("type", task.Type()),
					zap.Error(err),
				)
			}),
			Logger: &asynqLogger{logger: logger},
		},
	)

	// Create workers
	costWorker := NewCostWorker(
		logger,
		deps.CostService,
		deps.QueryService,
		deps.IngestionService,
	)

	deadLetterWorker := NewDeadLetterWorker(logger, deps.IngestionService)

	cleanupWorker := NewCleanupWorker(
		logger,
		deps.TraceRepo,
		deps.ObservationRepo,
		deps.ScoreRepo,
		deps.ProjectService,
	)

	// Create mux and register handlers
	mux := asynq.NewServeMux()

	// Cost workers
	mux.HandleFunc(TypeCostCalculation, costWorker.ProcessTask)
	mux.HandleFunc(TypeBatchCostCalculation, costWorker.ProcessBatchCostTask)
	mux.HandleFunc(TypeDailyAggregation, costWorker.ProcessDailyAggregationTask)

	// Dead-letter replay
	mux.HandleFunc(TypeDeadLetterReplay, deadLetterWorker.ProcessTask)

	// Cleanup workers
	mux.HandleFunc(TypeDataCleanup, cleanupWorker.ProcessTask)
	mux.HandleFunc(TypeProjectCleanup, cleanupWorker.ProcessProjectCleanupTask)
	mux.HandleFunc(TypeOrphanCleanup, cleanupWorker.ProcessOrphanCleanupTask)

	// Create client for enqueuing tasks
	client := asynq.NewClient(redisOpt)

	mux.HandleFunc(TypeScheduleCleanup, func(ctx context.Context, _ *asynq.Task) error {
		return ScheduleCleanupTasks(ctx, client, deps.ProjectService, &ScheduledCleanupConfig{
			DefaultRetentionDays: cfg.Worker.DefaultRetentionDays,
			CleanupHour:          3,
		})
	})

	// Create scheduler for periodic tasks
	scheduler := asynq.NewScheduler(redisOpt, nil)

	return &Server{
		logger:    logger,
		config:    cfg,
		server:    server,
		mux:       mux,
		scheduler: scheduler,
		client:    client,
	}, nil
}

// Start starts the worker server
func (s *Server) Start() error {
	// Register scheduled tasks
	if err := s.registerScheduledTasks(); err != nil {
		return fmt.Errorf("failed to register scheduled tasks: %w", err)
	}

	// Start scheduler
	go func() {
		if err := s.scheduler.Run(); err != nil {
			s.logger.Error("scheduler stopped", zap.Error(err))
		}
	}()

	// Start server
	s.logger.Info("starting worker server",
		zap.Int("concurrency", s.config.Worker.Concurrency),
	)

	return s.server.Run(s.mux)
}

// Stop stops the worker server
func (s *Server) Stop() {
	s.server.Shutdown()
	s.scheduler.Shutdown()
	s.client.Close()
}

// Client returns the asynq client for enqueuing tasks
func (s *Server) Client() *asynq.Client {
	return s.client
}

// registerScheduledTasks registers periodic tasks with the scheduler
func (s *Server) registerScheduledTasks() error {
	// Daily retention + orphan cleanup fan-out at 3 AM UTC
	_, err := s.scheduler.Register(
		"0 3 * * *", // Cron expression
		asynq.NewTask(TypeScheduleCleanup, nil),
		asynq.Queue("low"),
	)
	if err != nil {
		return fmt.Errorf("failed to register cleanup schedule task: %w", err)
	}

	// Daily cost aggregation at 1 AM UTC
	_, err = s.scheduler.Register(
		"0 1 * * *",
		asynq.NewTask(TypeDailyAggregation, []byte(`{}`)),
		asynq.Queue("low"),
	)
	if err != nil {
		return fmt.Errorf("failed to register daily aggregation task: %w", err)
	}

	return nil
}

// asynqLogger adapts zap.Logger to asynq.Logger
type asynqLogger struct {
	logger *zap.Logger
}

func (l *asynqLogger) Debug(args ...interface{}) {
	l.logger.Debug(fmt.Sprint(args...))
}

func (l *asynqLogger) Info(args ...interface{}) {
	l.logger.Info(fmt.Sprint(args...))
}

func (l *asynqLogger) Warn(args ...interface{}) {
	l.logger.Warn(fmt.Sprint(args...))
}

func (l *asynqLogger) Error(args ...interface{}) {
	l.logger.Error(fmt.Sprint(args...))
}

func (l *asynqLogger) Fatal(args ...interface{}) {
	l.logger.Fatal(fmt.Sprint(args...))
}

// EnqueueCostCalculation enqueues a cost calculation task
func EnqueueCostCalculation(client *asynq.Client, payload *CostCalculationPayload) error {
	task, err := NewCostCalculationTask(payload)
	if err != nil {
		return err
	}
	_, err = client.Enqueue(task, asynq.Queue("default"))
	return err
}

// EnqueueDataCleanup enqueues a data cleanup task
func EnqueueDataCleanup(client *asynq.Client, payload *DataCleanupPayload) error {
	task, err := NewDataCleanupTask(payload)
	if err != nil {
		return err
	}
	// Use ProcessIn to delay cleanup tasks
	_, err = client.Enqueue(task, asynq.Queue("low"), asynq.ProcessIn(time.Hour))
	return err
}
