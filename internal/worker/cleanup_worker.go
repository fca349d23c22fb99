package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	chrepo "github.com/agenttrace/agenttrace/api/internal/repository/clickhouse"
	"github.com/agenttrace/agenttrace/api/internal/service"
)

const (
	// TypeDataCleanup is the task type for data cleanup
	TypeDataCleanup = "cleanup:data"
	// TypeProjectCleanup is the task type for project cleanup
	TypeProjectCleanup = "cleanup:project"
	// TypeOrphanCleanup is the task type for orphan data cleanup
	TypeOrphanCleanup = "cleanup:orphans"
)

// DataCleanupPayload is the payload for data cleanup tasks
type DataCleanupPayload struct {
	ProjectID     uuid.UUID `json:"project_id"`
	RetentionDays int       `json:"retention_days"`
	DryRun        bool      `json:"dry_run"`
}

// NewDataCleanupTask creates a data cleanup task
func NewDataCleanupTask(payload *DataCleanupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal data cleanup payload: %w", err)
	}
	return asynq.NewTask(TypeDataCleanup, data, asynq.MaxRetry(3), asynq.Timeout(1*time.Hour)), nil
}

// ProjectCleanupPayload is the payload for project cleanup tasks
type ProjectCleanupPayload struct {
	ProjectID uuid.UUID `json:"project_id"`
}

// NewProjectCleanupTask creates a project cleanup task
func NewProjectCleanupTask(payload *ProjectCleanupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal project cleanup payload: %w", err)
	}
	return asynq.NewTask(TypeProjectCleanup, data, asynq.MaxRetry(3), asynq.Timeout(30*time.Minute)), nil
}

// OrphanCleanupPayload is the payload for orphan cleanup tasks
type OrphanCleanupPayload struct {
	DryRun bool `json:"dry_run"`
}

// NewOrphanCleanupTask creates an orphan cleanup task
func NewOrphanCleanupTask(payload *OrphanCleanupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal orphan cleanup payload: %w", err)
	}
	return asynq.NewTask(TypeOrphanCleanup, data, asynq.MaxRetry(3), asynq.Timeout(1*time.Hour)), nil
}

// CleanupWorker handles retention and orphan cleanup tasks against the
// analytical store (ClickHouse traces/observations/scores).
type CleanupWorker struct {
	logger          *zap.Logger
	traceRepo       *chrepo.TraceRepository
	observationRepo *chrepo.ObservationRepository
	scoreRepo       *chrepo.ScoreRepository
	projectService  *service.ProjectService
}

// NewCleanupWorker creates a new cleanup worker
func NewCleanupWorker(
	logger *zap.Logger,
	traceRepo *chrepo.TraceRepository,
	observationRepo *chrepo.ObservationRepository,
	scoreRepo *chrepo.ScoreRepository,
	projectService *service.ProjectService,
) *CleanupWorker {
	return &CleanupWorker{
		logger:          logger,
		traceRepo:       traceRepo,
		observationRepo: observationRepo,
		scoreRepo:       scoreRepo,
		projectService:  projectService,
	}
}

// ProcessTask processes a data cleanup task: deletes traces, observations
// and scores older than the project's retention window.
func (w *CleanupWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload DataCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal data cleanup payload: %w", err)
	}

	w.logger.Info("processing data cleanup",
		zap.String("project_id", payload.ProjectID.String()),
		zap.Int("retention_days", payload.RetentionDays),
		zap.Bool("dry_run", payload.DryRun),
	)

	cutoff := time.Now().AddDate(0, 0, -payload.RetentionDays)

	traceCount, err := w.traceRepo.CountBeforeCutoff(ctx, payload.ProjectID, cutoff)
	if err != nil {
		return fmt.Errorf("failed to count traces: %w", err)
	}
	obsCount, err := w.observationRepo.CountBeforeCutoff(ctx, payload.ProjectID, cutoff)
	if err != nil {
		return fmt.Errorf("failed to count observations: %w", err)
	}
	scoreCount, err := w.scoreRepo.CountBeforeCutoff(ctx, payload.ProjectID, cutoff)
	if err != nil {
		return fmt.Errorf("failed to count scores: %w", err)
	}

	w.logger.Info("found records to clean up",
		zap.String("project_id", payload.ProjectID.String()),
		zap.Int64("trace_count", traceCount),
		zap.Int64("observation_count", obsCount),
		zap.Int64("score_count", scoreCount),
		zap.Time("cutoff", cutoff),
	)

	if payload.DryRun {
		w.logger.Info("dry run - skipping actual deletion")
		return nil
	}

	// Delete children before parents so a crash mid-task never leaves a
	// trace/observation visible without its retained scores pointing nowhere.
	deletedScores, err := w.scoreRepo.DeleteBeforeCutoff(ctx, payload.ProjectID, cutoff)
	if err != nil {
		return fmt.Errorf("failed to delete scores: %w", err)
	}
	deletedObs, err := w.observationRepo.DeleteBeforeCutoff(ctx, payload.ProjectID, cutoff)
	if err != nil {
		return fmt.Errorf("failed to delete observations: %w", err)
	}
	deletedTraces, err := w.traceRepo.DeleteBeforeCutoff(ctx, payload.ProjectID, cutoff)
	if err != nil {
		return fmt.Errorf("failed to delete traces: %w", err)
	}

	w.logger.Info("data cleanup completed",
		zap.String("project_id", payload.ProjectID.String()),
		zap.Int64("deleted_traces", deletedTraces),
		zap.Int64("deleted_observations", deletedObs),
		zap.Int64("deleted_scores", deletedScores),
	)

	return nil
}

// ProcessProjectCleanupTask processes a project cleanup task (delete all project data)
func (w *CleanupWorker) ProcessProjectCleanupTask(ctx context.Context, t *asynq.Task) error {
	var payload ProjectCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal project cleanup payload: %w", err)
	}

	w.logger.Info("processing project cleanup",
		zap.String("project_id", payload.ProjectID.String()),
	)

	if err := w.scoreRepo.DeleteByProjectID(ctx, payload.ProjectID); err != nil {
		return fmt.Errorf("failed to delete project scores: %w", err)
	}
	if err := w.observationRepo.DeleteByProjectID(ctx, payload.ProjectID); err != nil {
		return fmt.Errorf("failed to delete project observations: %w", err)
	}
	if err := w.traceRepo.DeleteByProjectID(ctx, payload.ProjectID); err != nil {
		return fmt.Errorf("failed to delete project traces: %w", err)
	}

	w.logger.Info("project cleanup completed",
		zap.String("project_id", payload.ProjectID.String()),
	)

	return nil
}

// ProcessOrphanCleanupTask processes an orphan cleanup task
func (w *CleanupWorker) ProcessOrphanCleanupTask(ctx context.Context, t *asynq.Task) error {
	var payload OrphanCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal orphan cleanup payload: %w", err)
	}

	w.logger.Info("processing orphan cleanup",
		zap.Bool("dry_run", payload.DryRun),
	)

	orphanObservations, err := w.observationRepo.CountOrphans(ctx)
	if err != nil {
		return fmt.Errorf("failed to find orphan observations: %w", err)
	}

	orphanScores, err := w.scoreRepo.CountOrphans(ctx)
	if err != nil {
		return fmt.Errorf("failed to find orphan scores: %w", err)
	}

	w.logger.Info("found orphan records",
		zap.Int64("orphan_observations", orphanObservations),
		zap.Int64("orphan_scores", orphanScores),
	)

	if payload.DryRun {
		w.logger.Info("dry run - skipping actual deletion")
		return nil
	}

	if _, err := w.scoreRepo.DeleteOrphans(ctx); err != nil {
		return fmt.Errorf("failed to delete orphan scores: %w", err)
	}
	if _, err := w.observationRepo.DeleteOrphans(ctx); err != nil {
		return fmt.Errorf("failed to delete orphan observations: %w", err)
	}

	w.logger.Info("orphan cleanup completed")

	return nil
}

// ScheduledCleanupConfig holds configuration for scheduled cleanup
type ScheduledCleanupConfig struct {
	DefaultRetentionDays int
	CleanupHour          int // Hour of day to run cleanup (0-23)
	BatchSize            int // Projects enqueued per ScheduleCleanupTasks call; defaults to 100
}

// ScheduleCleanupTasks enqueues a data-cleanup task per project (using the
// project's own RetentionDays, falling back to config.DefaultRetentionDays
// when unset) plus a single orphan cleanup task.
func ScheduleCleanupTasks(
	ctx context.Context,
	client *asynq.Client,
	projectService *service.ProjectService,
	config *ScheduledCleanupConfig,
) error {
	batchSize := config.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	offset := 0
	for {
		projects, err := projectService.ListAll(ctx, batchSize, offset)
		if err != nil {
			return fmt.Errorf("failed to list projects: %w", err)
		}
		if len(projects) == 0 {
			break
		}

		for _, project := range projects {
			retentionDays := project.RetentionDays
			if retentionDays <= 0 {
				retentionDays = config.DefaultRetentionDays
			}

			task, err := NewDataCleanupTask(&DataCleanupPayload{
				ProjectID:     project.ID,
				RetentionDays: retentionDays,
				DryRun:        false,
			})
			if err != nil {
				return err
			}
			if _, err := client.Enqueue(task, asynq.Queue("low")); err != nil {
				return fmt.Errorf("failed to enqueue cleanup for project %s: %w", project.ID, err)
			}
		}

		if len(projects) < batchSize {
			break
		}
		offset += batchSize
	}

	orphanTask, err := NewOrphanCleanupTask(&OrphanCleanupPayload{
		DryRun: false,
	})
	if err != nil {
		return err
	}

	_, err = client.Enqueue(orphanTask, asynq.Queue("low"))
	return err
}
