package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/agenttrace/agenttrace/api/internal/service"
)

// TypeDeadLetterReplay is the task type for replaying a single dead-lettered
// ingestion event after its in-request retry budget was exhausted.
const TypeDeadLetterReplay = "ingestion:deadletter-replay"

// DeadLetterPayload carries everything needed to re-run a single event
// through the ingestion pipeline outside the request/response cycle.
type DeadLetterPayload struct {
	ProjectID  string          `json:"project_id"`
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	Body       json.RawMessage `json:"body"`
	LastError  string          `json:"last_error"`
	Attempts   int             `json:"attempts"`
}

// NewDeadLetterReplayTask creates a replay task for a single dead-lettered event.
func NewDeadLetterReplayTask(payload *DeadLetterPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal dead-letter payload: %w", err)
	}
	return asynq.NewTask(TypeDeadLetterReplay, data, asynq.MaxRetry(1), asynq.Timeout(2*time.Minute)), nil
}

// DeadLetterWorker drains the dead-letter queue, re-running events whose
// in-request retry budget (three attempts, exponential backoff) was
// exhausted during synchronous ingestion.
type DeadLetterWorker struct {
	logger           *zap.Logger
	ingestionService *service.IngestionService
}

// NewDeadLetterWorker creates a new dead-letter replay worker.
func NewDeadLetterWorker(logger *zap.Logger, ingestionService *service.IngestionService) *DeadLetterWorker {
	return &DeadLetterWorker{
		logger:           logger.Named("deadletter_worker"),
		ingestionService: ingestionService,
	}
}

// ProcessTask replays one dead-lettered event. A second failure is logged
// and surfaced to the operator rather than retried indefinitely.
func (w *DeadLetterWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload DeadLetterPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal dead-letter payload: %w", err)
	}

	w.logger.Info("replaying dead-lettered event",
		zap.String("project_id", payload.ProjectID),
		zap.String("event_id", payload.EventID),
		zap.String("event_type", payload.EventType),
		zap.Int("prior_attempts", payload.Attempts),
		zap.String("last_error", payload.LastError),
	)

	result := w.ingestionService.ReplayEvent(ctx, payload.ProjectID, payload.EventID, payload.EventType, payload.Body)
	if result.Status != "success" {
		w.logger.Error("dead-letter replay failed again",
			zap.String("event_id", payload.EventID),
			zap.String("status", result.Status),
			zap.String("message", result.Message),
		)
		return fmt.Errorf("replay failed: %s", result.Message)
	}

	w.logger.Info("dead-letter replay succeeded", zap.String("event_id", payload.EventID))
	return nil
}

// EnqueueDeadLetterReplay enqueues a single dead-lettered event for later replay.
func EnqueueDeadLetterReplay(client *asynq.Client, payload *DeadLetterPayload) error {
	task, err := NewDeadLetterReplayTask(payload)
	if err != nil {
		return err
	}
	_, err = client.Enqueue(task, asynq.Queue("low"))
	return err
}
