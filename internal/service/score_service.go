package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/agenttrace/agenttrace/api/internal/domain"
	apperrors "github.com/agenttrace/agenttrace/api/internal/pkg/errors"
	"github.com/agenttrace/agenttrace/api/internal/pkg/retry"
)

// ScoreRepository defines score repository operations
type ScoreRepository interface {
	Create(ctx context.Context, score *domain.Score) error
	CreateBatch(ctx context.Context, scores []*domain.Score) error
	GetByID(ctx context.Context, projectID uuid.UUID, scoreID string) (*domain.Score, error)
	GetByTraceID(ctx context.Context, projectID uuid.UUID, traceID string) ([]domain.Score, error)
	GetByObservationID(ctx context.Context, projectID uuid.UUID, observationID string) ([]domain.Score, error)
	List(ctx context.Context, filter *domain.ScoreFilter, limit, offset int) (*domain.ScoreList, error)
	Update(ctx context.Context, score *domain.Score) error
	Delete(ctx context.Context, projectID, scoreID uuid.UUID) error
	GetStats(ctx context.Context, projectID uuid.UUID, name string) (*domain.ScoreStats, error)
	GetDistinctNames(ctx context.Context, projectID uuid.UUID) ([]string, error)
}

// ScoreService handles score operations
type ScoreService struct {
	scoreRepo       ScoreRepository
	traceRepo       TraceRepository
	observationRepo ObservationRepository
}

// NewScoreService creates a new score service
func NewScoreService(
	scoreRepo ScoreRepository,
	traceRepo TraceRepository,
	observationRepo ObservationRepository,
) *ScoreService {
	return &ScoreService{
		scoreRepo:       scoreRepo,
		traceRepo:       traceRepo,
		observationRepo: observationRepo,
	}
}

// buildScore translates a validated ScoreInput into a domain.Score, applying
// source/data-type defaults. It does not persist anything.
func buildScore(projectID uuid.UUID, input *domain.ScoreInput, now time.Time) *domain.Score {
	var comment string
	if input.Comment != nil {
		comment = *input.Comment
	}

	score := &domain.Score{
		ID:            uuid.New(),
		ProjectID:     projectID,
		TraceID:       input.TraceID,
		SessionID:     input.SessionID,
		DatasetRunID:  input.DatasetRunID,
		ObservationID: input.ObservationID,
		Name:          input.Name,
		Value:         input.Value,
		StringValue:   input.StringValue,
		DataType:      input.DataType,
		Source:        input.Source,
		Comment:       comment,
		QueueID:       input.QueueID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if score.Source == "" {
		score.Source = domain.ScoreSourceAPI
	}

	if score.DataType == "" {
		switch {
		case input.Value != nil:
			score.DataType = domain.ScoreDataTypeNumeric
		case input.StringValue != nil && (*input.StringValue == "true" || *input.StringValue == "false"):
			score.DataType = domain.ScoreDataTypeBoolean
		case input.StringValue != nil:
			score.DataType = domain.ScoreDataTypeCategorical
		}
	}

	return score
}

// validateTarget enforces the one-of{traceId, sessionId, datasetRunId} target
// invariant a score must satisfy.
func validateTarget(input *domain.ScoreInput) error {
	if n := input.TargetCount(); n != 1 {
		return apperrors.Validation("score must reference exactly one of traceId, sessionId, datasetRunId")
	}
	return nil
}

// Create creates a new score
func (s *ScoreService) Create(ctx context.Context, projectID uuid.UUID, input *domain.ScoreInput) (*domain.Score, error) {
	if err := validateTarget(input); err != nil {
		return nil, err
	}

	if input.DataType != "" && !domain.ValidateScore(input.DataType, input.Value, input.StringValue, nil) {
		return nil, apperrors.Validation("invalid score value for data type")
	}

	if input.TraceID != nil {
		if _, err := s.traceRepo.GetByID(ctx, projectID, *input.TraceID); err != nil {
			return nil, fmt.Errorf("failed to get trace: %w", err)
		}
	}

	if input.ObservationID != nil {
		if _, err := s.observationRepo.GetByID(ctx, projectID, *input.ObservationID); err != nil {
			return nil, fmt.Errorf("failed to get observation: %w", err)
		}
	}

	score := buildScore(projectID, input, time.Now())

	if err := retry.Do(ctx, retry.DefaultPolicy(), func(ctx context.Context) error {
		return s.scoreRepo.Create(ctx, score)
	}); err != nil {
		return nil, fmt.Errorf("failed to create score: %w", err)
	}

	return score, nil
}

// CreateBatch creates multiple scores. An individual score failing its
// target/value validation does not stop the rest of the batch from being
// collected; it is reported as an error for that item's caller to surface.
func (s *ScoreService) CreateBatch(ctx context.Context, projectID uuid.UUID, inputs []*domain.ScoreInput) ([]*domain.Score, error) {
	now := time.Now()
	scores := make([]*domain.Score, 0, len(inputs))

	for _, input := range inputs {
		if err := validateTarget(input); err != nil {
			return nil, fmt.Errorf("invalid score %q: %w", input.Name, err)
		}
		if input.DataType != "" && !domain.ValidateScore(input.DataType, input.Value, input.StringValue, nil) {
			return nil, apperrors.Validation(fmt.Sprintf("invalid score %q: invalid value for data type", input.Name))
		}
		scores = append(scores, buildScore(projectID, input, now))
	}

	if err := s.scoreRepo.CreateBatch(ctx, scores); err != nil {
		return nil, fmt.Errorf("failed to create scores: %w", err)
	}

	return scores, nil
}

// Get retrieves a score by ID
func (s *ScoreService) Get(ctx context.Context, projectID uuid.UUID, scoreID string) (*domain.Score, error) {
	return s.scoreRepo.GetByID(ctx, projectID, scoreID)
}

// List retrieves scores with filtering
func (s *ScoreService) List(ctx context.Context, filter *domain.ScoreFilter, limit, offset int) (*domain.ScoreList, error) {
	return s.scoreRepo.List(ctx, filter, limit, offset)
}

// GetByTraceID retrieves scores for a trace
func (s *ScoreService) GetByTraceID(ctx context.Context, projectID uuid.UUID, traceID string) ([]domain.Score, error) {
	return s.scoreRepo.GetByTraceID(ctx, projectID, traceID)
}

// GetByObservationID retrieves scores for an observation
func (s *ScoreService) GetByObservationID(ctx context.Context, projectID uuid.UUID, observationID string) ([]domain.Score, error) {
	return s.scoreRepo.GetByObservationID(ctx, projectID, observationID)
}

// Update updates an existing score's value/comment. The target and data type
// are immutable once created.
func (s *ScoreService) Update(ctx context.Context, projectID uuid.UUID, scoreID string, input *domain.ScoreInput) (*domain.Score, error) {
	score, err := s.scoreRepo.GetByID(ctx, projectID, scoreID)
	if err != nil {
		return nil, err
	}

	if input.Value != nil {
		score.Value = input.Value
	}
	if input.StringValue != nil {
		score.StringValue = input.StringValue
	}
	if input.Comment != nil {
		score.Comment = *input.Comment
	}
	if !domain.ValidateScore(score.DataType, score.Value, score.StringValue, nil) {
		return nil, apperrors.Validation("invalid score value for data type")
	}
	score.UpdatedAt = time.Now()

	if err := s.scoreRepo.Update(ctx, score); err != nil {
		return nil, fmt.Errorf("failed to update score: %w", err)
	}

	return score, nil
}

// Delete deletes a score
func (s *ScoreService) Delete(ctx context.Context, projectID uuid.UUID, scoreID string) error {
	score, err := s.scoreRepo.GetByID(ctx, projectID, scoreID)
	if err != nil {
		return err
	}

	return s.scoreRepo.Delete(ctx, projectID, score.ID)
}

// GetStats retrieves statistics for a score name
func (s *ScoreService) GetStats(ctx context.Context, projectID uuid.UUID, name string) (*domain.ScoreStats, error) {
	return s.scoreRepo.GetStats(ctx, projectID, name)
}

// GetScoreNames retrieves distinct score names for a project
func (s *ScoreService) GetScoreNames(ctx context.Context, projectID uuid.UUID) ([]string, error) {
	return s.scoreRepo.GetDistinctNames(ctx, projectID)
}

// SubmitFeedback submits user feedback on a trace as a numeric score.
func (s *ScoreService) SubmitFeedback(ctx context.Context, projectID uuid.UUID, traceID string, feedback *FeedbackInput) (*domain.Score, error) {
	input := &domain.ScoreInput{
		TraceID:  &traceID,
		Name:     feedback.Name,
		Value:    feedback.Value,
		Source:   domain.ScoreSourceAnnotation,
		Comment:  feedback.Comment,
		DataType: feedback.DataType,
	}

	if input.Name == "" {
		input.Name = "user-feedback"
	}

	if input.DataType == "" {
		input.DataType = domain.ScoreDataTypeNumeric
	}

	return s.Create(ctx, projectID, input)
}

// FeedbackInput represents user feedback input
type FeedbackInput struct {
	Name     string               `json:"name"`
	Value    *float64             `json:"value"`
	DataType domain.ScoreDataType `json:"dataType"`
	Comment  *string              `json:"comment"`
}
