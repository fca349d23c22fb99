package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agenttrace/agenttrace/api/internal/domain"
	"github.com/agenttrace/agenttrace/api/internal/pkg/id"
	"github.com/agenttrace/agenttrace/api/internal/pkg/querybuilder"
	"github.com/agenttrace/agenttrace/api/internal/pkg/retry"
)

// TraceRepository defines the interface for trace persistence operations.
// Implementations may use ClickHouse, PostgreSQL, or other storage backends.
// All methods must be safe for concurrent use.
type TraceRepository interface {
	// Create persists a new trace to storage.
	Create(ctx context.Context, trace *domain.Trace) error
	// CreateBatch persists multiple traces in a single operation for efficiency.
	CreateBatch(ctx context.Context, traces []*domain.Trace) error
	// GetByID retrieves a trace by its project-scoped ID.
	GetByID(ctx context.Context, projectID uuid.UUID, traceID string) (*domain.Trace, error)
	// Update modifies an existing trace's mutable fields.
	Update(ctx context.Context, trace *domain.Trace) error
	// UpdateCosts updates the aggregated cost fields for a trace.
	UpdateCosts(ctx context.Context, projectID uuid.UUID, traceID string, inputCost, outputCost, totalCost float64) error
	// List returns traces matching the filter with pagination.
	List(ctx context.Context, filter *domain.TraceFilter, limit, offset int) (*domain.TraceList, error)
	// SetBookmark marks or unmarks a trace as bookmarked.
	SetBookmark(ctx context.Context, projectID uuid.UUID, traceID string, bookmarked bool) error
	// GetBySessionID retrieves all traces belonging to a session.
	GetBySessionID(ctx context.Context, projectID uuid.UUID, sessionID string) ([]domain.Trace, error)
	// Delete removes a trace by ID.
	// Note: This is a heavy operation in ClickHouse (ALTER TABLE DELETE).
	Delete(ctx context.Context, projectID uuid.UUID, traceID string) error
	// Aggregate compiles and executes a dimension/measure rollup over traces
	// matching filter, returning one row per distinct combination of
	// dimensions with columns named per querybuilder's convention.
	Aggregate(ctx context.Context, filter *domain.TraceFilter, dimensions []string, measures []querybuilder.MeasureAgg) ([]map[string]interface{}, error)
}

// ObservationRepository defines the interface for observation persistence operations.
// Observations include spans (generic operations) and generations (LLM calls).
// All methods must be safe for concurrent use.
type ObservationRepository interface {
	// Create persists a new observation to storage.
	Create(ctx context.Context, obs *domain.Observation) error
	// CreateBatch persists multiple observations in a single operation for efficiency.
	CreateBatch(ctx context.Context, observations []*domain.Observation) error
	// GetByID retrieves an observation by its project-scoped ID.
	GetByID(ctx context.Context, projectID uuid.UUID, observationID string) (*domain.Observation, error)
	// GetByTraceID retrieves all observations belonging to a trace.
	GetByTraceID(ctx context.Context, projectID uuid.UUID, traceID string) ([]domain.Observation, error)
	// Update modifies an existing observation's mutable fields.
	Update(ctx context.Context, obs *domain.Observation) error
	// UpdateCosts updates the cost fields for an observation.
	UpdateCosts(ctx context.Context, projectID uuid.UUID, observationID string, inputCost, outputCost, totalCost float64) error
	// List returns observations matching the filter with pagination.
	List(ctx context.Context, filter *domain.ObservationFilter, limit, offset int) ([]domain.Observation, int64, error)
	// GetGenerationsWithoutCost retrieves generations that need cost calculation.
	GetGenerationsWithoutCost(ctx context.Context, projectID uuid.UUID, limit int) ([]domain.Observation, error)
	// GetTree retrieves observations nested into a forest of root-level trees.
	GetTree(ctx context.Context, projectID uuid.UUID, traceID string) (*domain.ObservationForest, error)
	// Aggregate compiles and executes a dimension/measure rollup over
	// observations matching filter.
	Aggregate(ctx context.Context, filter *domain.ObservationFilter, dimensions []string, measures []querybuilder.MeasureAgg) ([]map[string]interface{}, error)
}

// SessionRepository defines the interface for session persistence operations.
// Sessions group related traces together (e.g., a user conversation).
type SessionRepository interface {
	// Upsert creates or updates a session, typically called when traces reference it.
	Upsert(ctx context.Context, session *domain.Session) error
	// GetByID retrieves a session by its project-scoped ID.
	GetByID(ctx context.Context, projectID uuid.UUID, sessionID string) (*domain.Session, error)
	// List returns sessions matching the filter with pagination.
	List(ctx context.Context, filter *domain.SessionFilter, limit, offset int) (*domain.SessionList, error)
}

// IngestionService handles trace, observation, and score ingestion from SDKs
// and APIs.
//
// This is the core service for receiving telemetry data from instrumented applications.
// It processes incoming traces, spans, and LLM generations, persisting them to storage
// while handling:
//   - ID generation for entities without explicit IDs
//   - Environment normalization and metadata deep-merge on update
//   - Session upsert on first trace reference
//   - Timestamp normalization and duration calculation
//   - Cost calculation for LLM generations (via CostService)
//
// The service is safe for concurrent use and designed for high-throughput ingestion.
type IngestionService struct {
	traceRepo       TraceRepository
	observationRepo ObservationRepository
	sessionRepo     SessionRepository
	costService     *CostService
	logger          *zap.Logger
}

// NewIngestionService creates a new IngestionService with the provided dependencies.
//
// sessionRepo and costService may be nil: session upsert and cost calculation
// are then skipped rather than failing ingestion.
func NewIngestionService(
	logger *zap.Logger,
	traceRepo TraceRepository,
	observationRepo ObservationRepository,
	sessionRepo SessionRepository,
	costService *CostService,
) *IngestionService {
	return &IngestionService{
		logger:          logger.Named("ingestion"),
		traceRepo:       traceRepo,
		observationRepo: observationRepo,
		sessionRepo:     sessionRepo,
		costService:     costService,
	}
}

// normalizeEnvironment returns env if it is a well-formed environment label,
// otherwise domain.DefaultEnvironment.
func normalizeEnvironment(env string) string {
	if env == "" {
		return domain.DefaultEnvironment
	}
	if !domain.IsValidEnvironment(env) {
		return domain.DefaultEnvironment
	}
	return env
}

// deriveUsage fills in any of InputTokens/OutputTokens/TotalTokens usage
// left zero by the SDK, estimating them from the raw input/output payload
// via the cost service's per-provider tokenizer approximation. Per-field:
// usageDetails.total always wins when present (handled by Normalize), so
// this only touches fields Normalize left at zero.
func deriveUsage(costService *CostService, model string, usage domain.UsageDetails, inputStr, outputStr string) domain.UsageDetails {
	if costService == nil || model == "" {
		return usage
	}
	if usage.InputTokens == 0 && inputStr != "" {
		usage.InputTokens = uint64(costService.CountTokens(model, inputStr))
	}
	if usage.OutputTokens == 0 && outputStr != "" {
		usage.OutputTokens = uint64(costService.CountTokens(model, outputStr))
	}
	if usage.TotalTokens == 0 {
		usage.TotalTokens = usage.InputTokens + usage.OutputTokens
	}
	return usage
}

// upsertSession records that sessionID was referenced by a trace in
// environment/projectID, creating the session row on first reference.
// Failures are logged, not propagated: a session-bookkeeping error must
// never fail trace ingestion.
func (s *IngestionService) upsertSession(ctx context.Context, projectID uuid.UUID, environment, sessionID, userID string, at time.Time) {
	if s.sessionRepo == nil || sessionID == "" {
		return
	}
	session := &domain.Session{
		ID:          sessionID,
		ProjectID:   projectID,
		Environment: environment,
		UserID:      userID,
	}
	if err := s.sessionRepo.Upsert(ctx, session); err != nil {
		s.logger.Error("failed to upsert session",
			zap.String("session_id", sessionID),
			zap.String("project_id", projectID.String()),
			zap.Error(err),
		)
	}
}

// IngestTrace ingests a single trace into the system.
//
// A trace represents a complete execution flow (e.g., an API request, agent task).
// This method handles:
//   - Generating a trace ID if not provided in input
//   - Normalizing the environment label
//   - Marshaling metadata to JSON for storage
//   - Setting timestamps (uses input.StartTime, falls back to input.Timestamp, then now)
//   - Persisting the trace to storage
//   - Upserting the referenced session, if any
func (s *IngestionService) IngestTrace(ctx context.Context, projectID uuid.UUID, input *domain.TraceInput) (*domain.Trace, error) {
	now := time.Now()

	traceID := input.ID
	if traceID == "" {
		traceID = id.NewTraceID()
	}

	var metadata string
	if input.Metadata != nil {
		metadataBytes, err := json.Marshal(input.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal metadata: %w", err)
		}
		metadata = string(metadataBytes)
	}

	startTime := now
	if input.StartTime != nil {
		startTime = *input.StartTime
	} else if input.Timestamp != nil {
		startTime = *input.Timestamp
	}

	environment := normalizeEnvironment(input.Environment)

	trace := &domain.Trace{
		ID:          traceID,
		ProjectID:   projectID,
		Environment: environment,
		Name:        input.Name,
		UserID:      input.UserID,
		SessionID:   input.SessionID,
		Metadata:    metadata,
		Tags:        input.Tags,
		Release:     input.Release,
		Version:     input.Version,
		Public:      input.Public,
		StartTime:   startTime,
		EndTime:     input.EndTime,
		Level:       input.Level,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if trace.Level == "" {
		trace.Level = domain.LevelDefault
	}

	if err := retry.Do(ctx, retry.DefaultPolicy(), func(ctx context.Context) error {
		return s.traceRepo.Create(ctx, trace)
	}); err != nil {
		return nil, fmt.Errorf("failed to create trace: %w", err)
	}

	s.upsertSession(ctx, projectID, environment, trace.SessionID, trace.UserID, now)

	return trace, nil
}

// IngestObservation ingests a single observation (span or event).
//
// An observation represents a unit of work within a trace. This method is typically
// used for spans (generic operations like function calls, API requests) rather than
// LLM generations (use IngestGeneration for those to get cost calculation).
//
// Note: For LLM calls, prefer IngestGeneration which handles cost calculation
// and LLM-specific fields like model, usage, and model parameters.
func (s *IngestionService) IngestObservation(ctx context.Context, projectID uuid.UUID, input *domain.ObservationInput) (*domain.Observation, error) {
	now := time.Now()

	var obsID string
	if input.ID != nil && *input.ID != "" {
		obsID = *input.ID
	} else {
		obsID = id.NewSpanID()
	}

	var traceID string
	if input.TraceID != nil {
		traceID = *input.TraceID
	}

	var metadata string
	if input.Metadata != nil {
		metadataBytes, err := json.Marshal(input.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal metadata: %w", err)
		}
		metadata = string(metadataBytes)
	}

	var inputStr, outputStr string
	if input.Input != nil {
		inputBytes, err := json.Marshal(input.Input)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal input: %w", err)
		}
		inputStr = string(inputBytes)
	}
	if input.Output != nil {
		outputBytes, err := json.Marshal(input.Output)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal output: %w", err)
		}
		outputStr = string(outputBytes)
	}

	startTime := now
	if input.StartTime != nil {
		startTime = *input.StartTime
	}

	var obsType domain.ObservationType
	if input.Type != nil {
		obsType = *input.Type
	} else {
		obsType = domain.ObservationTypeSpan
	}

	var name string
	if input.Name != nil {
		name = *input.Name
	}

	var level domain.Level
	if input.Level != nil {
		level = *input.Level
	} else {
		level = domain.LevelDefault
	}

	var statusMessage string
	if input.StatusMessage != nil {
		statusMessage = *input.StatusMessage
	}

	var version string
	if input.Version != nil {
		version = *input.Version
	}

	var environment string
	if input.Environment != nil {
		environment = normalizeEnvironment(*input.Environment)
	} else {
		environment = domain.DefaultEnvironment
	}

	obs := &domain.Observation{
		ID:                  obsID,
		TraceID:             traceID,
		ProjectID:           projectID,
		Environment:         environment,
		ParentObservationID: input.ParentObservationID,
		Type:                obsType,
		Name:                name,
		StartTime:           startTime,
		EndTime:             input.EndTime,
		CompletionStartTime: input.CompletionStartTime,
		Metadata:            metadata,
		Level:               level,
		StatusMessage:       statusMessage,
		Version:             version,
		Input:               inputStr,
		Output:              outputStr,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if obs.EndTime != nil {
		obs.DurationMs = float64(obs.EndTime.Sub(obs.StartTime).Milliseconds())
	}

	if err := retry.Do(ctx, retry.DefaultPolicy(), func(ctx context.Context) error {
		return s.observationRepo.Create(ctx, obs)
	}); err != nil {
		return nil, fmt.Errorf("failed to create observation: %w", err)
	}

	return obs, nil
}

// IngestGeneration ingests an LLM generation (model call) observation.
//
// This is the primary method for recording LLM API calls. It extends basic observation
// handling with LLM-specific features:
//   - Token usage normalization from various provider formats
//   - Cost calculation using configured pricing (via CostService)
//   - Model parameter storage for reproducibility
//   - Duration calculation from start/end times
//   - Prompt name tracking for prompt management integration
//
// Side Effects:
//   - Updates trace costs asynchronously via goroutine
func (s *IngestionService) IngestGeneration(ctx context.Context, projectID uuid.UUID, input *domain.GenerationInput) (*domain.Observation, error) {
	now := time.Now()

	var obsID string
	if input.ID != nil && *input.ID != "" {
		obsID = *input.ID
	} else {
		obsID = id.NewSpanID()
	}

	var traceID string
	if input.TraceID != nil {
		traceID = *input.TraceID
	}

	var metadata string
	if input.Metadata != nil {
		metadataBytes, err := json.Marshal(input.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal metadata: %w", err)
		}
		metadata = string(metadataBytes)
	}

	var inputStr, outputStr string
	if input.Input != nil {
		inputBytes, err := json.Marshal(input.Input)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal input: %w", err)
		}
		inputStr = string(inputBytes)
	}
	if input.Output != nil {
		outputBytes, err := json.Marshal(input.Output)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal output: %w", err)
		}
		outputStr = string(outputBytes)
	}

	var modelParams string
	if input.ModelParameters != nil {
		paramsBytes, err := json.Marshal(input.ModelParameters)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal model parameters: %w", err)
		}
		modelParams = string(paramsBytes)
	}

	startTime := now
	if input.StartTime != nil {
		startTime = *input.StartTime
	}

	var durationMs float64
	if input.EndTime != nil {
		durationMs = float64(input.EndTime.Sub(startTime).Milliseconds())
	}

	var usageDetails domain.UsageDetails
	if input.Usage != nil {
		usageDetails = input.Usage.Normalize()
	}
	usageDetails = deriveUsage(s.costService, input.Model, usageDetails, inputStr, outputStr)

	var name string
	if input.Name != nil {
		name = *input.Name
	}

	var level domain.Level
	if input.Level != nil {
		level = *input.Level
	} else {
		level = domain.LevelDefault
	}

	var statusMessage string
	if input.StatusMessage != nil {
		statusMessage = *input.StatusMessage
	}

	var version string
	if input.Version != nil {
		version = *input.Version
	}

	var environment string
	if input.Environment != nil {
		environment = normalizeEnvironment(*input.Environment)
	} else {
		environment = domain.DefaultEnvironment
	}

	obs := &domain.Observation{
		ID:                  obsID,
		TraceID:             traceID,
		ProjectID:           projectID,
		Environment:         environment,
		ParentObservationID: input.ParentObservationID,
		Type:                domain.ObservationTypeGeneration,
		Name:                name,
		StartTime:           startTime,
		EndTime:             input.EndTime,
		CompletionStartTime: input.CompletionStartTime,
		Metadata:            metadata,
		Level:               level,
		StatusMessage:       statusMessage,
		Version:             version,
		Input:               inputStr,
		Output:              outputStr,
		Model:               input.Model,
		ModelParameters:     modelParams,
		UsageDetails:        usageDetails,
		PromptName:          input.PromptName,
		DurationMs:          durationMs,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if usageDetails.TotalTokens > 0 && input.Model != "" && s.costService != nil {
		cost, err := s.costService.CalculateCost(ctx, projectID, input.Model, int64(usageDetails.InputTokens), int64(usageDetails.OutputTokens))
		if err == nil && cost != nil {
			obs.CostDetails = *cost
		}
	}

	if err := retry.Do(ctx, retry.DefaultPolicy(), func(ctx context.Context) error {
		return s.observationRepo.Create(ctx, obs)
	}); err != nil {
		return nil, fmt.Errorf("failed to create generation: %w", err)
	}

	if obs.CostDetails.TotalCost > 0 {
		go func() {
			if err := s.updateTraceCosts(context.Background(), projectID, traceID); err != nil {
				s.logger.Error("failed to update trace costs",
					zap.String("trace_id", traceID),
					zap.String("observation_id", obsID),
					zap.String("project_id", projectID.String()),
					zap.Error(err),
				)
			}
		}()
	}

	return obs, nil
}

// IngestBatch ingests multiple traces and observations in a single operation.
//
// This method is optimized for high-throughput ingestion scenarios where SDKs
// buffer telemetry and send it periodically. It processes:
//   - Multiple traces in a single batch insert
//   - Multiple observations (spans) in a single batch insert
//   - Multiple generations with cost calculation in a single batch insert
//
// Unlike the individual Ingest* methods, batch ingestion does not update trace
// costs or upsert sessions synchronously, and silently ignores JSON marshaling
// errors on individual items so a single malformed item cannot sink the batch.
func (s *IngestionService) IngestBatch(ctx context.Context, projectID uuid.UUID, batch *domain.IngestionBatch) error {
	now := time.Now()

	traces := make([]*domain.Trace, 0, len(batch.Traces))
	for _, input := range batch.Traces {
		traceID := input.ID
		if traceID == "" {
			traceID = id.NewTraceID()
		}

		var metadata string
		if input.Metadata != nil {
			metadataBytes, _ := json.Marshal(input.Metadata)
			metadata = string(metadataBytes)
		}

		startTime := now
		if input.StartTime != nil {
			startTime = *input.StartTime
		} else if input.Timestamp != nil {
			startTime = *input.Timestamp
		}

		level := input.Level
		if level == "" {
			level = domain.LevelDefault
		}

		traces = append(traces, &domain.Trace{
			ID:          traceID,
			ProjectID:   projectID,
			Environment: normalizeEnvironment(input.Environment),
			Name:        input.Name,
			UserID:      input.UserID,
			SessionID:   input.SessionID,
			Metadata:    metadata,
			Tags:        input.Tags,
			Release:     input.Release,
			Version:     input.Version,
			Public:      input.Public,
			StartTime:   startTime,
			EndTime:     input.EndTime,
			Level:       level,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}

	if len(traces) > 0 {
		if err := s.traceRepo.CreateBatch(ctx, traces); err != nil {
			return fmt.Errorf("failed to batch create traces: %w", err)
		}
		for _, trace := range traces {
			s.upsertSession(ctx, projectID, trace.Environment, trace.SessionID, trace.UserID, now)
		}
	}

	observations := make([]*domain.Observation, 0, len(batch.Observations)+len(batch.Generations))

	for _, input := range batch.Observations {
		var obsID string
		if input.ID != nil && *input.ID != "" {
			obsID = *input.ID
		} else {
			obsID = id.NewSpanID()
		}

		var traceID string
		if input.TraceID != nil {
			traceID = *input.TraceID
		}

		var metadata, inputStr, outputStr string
		if input.Metadata != nil {
			metadataBytes, _ := json.Marshal(input.Metadata)
			metadata = string(metadataBytes)
		}
		if input.Input != nil {
			inputBytes, _ := json.Marshal(input.Input)
			inputStr = string(inputBytes)
		}
		if input.Output != nil {
			outputBytes, _ := json.Marshal(input.Output)
			outputStr = string(outputBytes)
		}

		startTime := now
		if input.StartTime != nil {
			startTime = *input.StartTime
		}

		var obsType domain.ObservationType
		if input.Type != nil {
			obsType = *input.Type
		} else {
			obsType = domain.ObservationTypeSpan
		}

		var name string
		if input.Name != nil {
			name = *input.Name
		}

		var level domain.Level
		if input.Level != nil {
			level = *input.Level
		} else {
			level = domain.LevelDefault
		}

		var statusMessage string
		if input.StatusMessage != nil {
			statusMessage = *input.StatusMessage
		}

		var version string
		if input.Version != nil {
			version = *input.Version
		}

		var environment string
		if input.Environment != nil {
			environment = normalizeEnvironment(*input.Environment)
		} else {
			environment = domain.DefaultEnvironment
		}

		endTime := input.EndTime
		var durationMs float64
		if endTime != nil {
			durationMs = float64(endTime.Sub(startTime).Milliseconds())
		}

		observations = append(observations, &domain.Observation{
			ID:                  obsID,
			TraceID:             traceID,
			ProjectID:           projectID,
			Environment:         environment,
			ParentObservationID: input.ParentObservationID,
			Type:                obsType,
			Name:                name,
			StartTime:           startTime,
			EndTime:             endTime,
			DurationMs:          durationMs,
			Metadata:            metadata,
			Level:               level,
			StatusMessage:       statusMessage,
			Version:             version,
			Input:               inputStr,
			Output:              outputStr,
			CreatedAt:           now,
			UpdatedAt:           now,
		})
	}

	for _, input := range batch.Generations {
		var obsID string
		if input.ID != nil && *input.ID != "" {
			obsID = *input.ID
		} else {
			obsID = id.NewSpanID()
		}

		var traceID string
		if input.TraceID != nil {
			traceID = *input.TraceID
		}

		var metadata, inputStr, outputStr, modelParams string
		if input.Metadata != nil {
			metadataBytes, _ := json.Marshal(input.Metadata)
			metadata = string(metadataBytes)
		}
		if input.Input != nil {
			inputBytes, _ := json.Marshal(input.Input)
			inputStr = string(inputBytes)
		}
		if input.Output != nil {
			outputBytes, _ := json.Marshal(input.Output)
			outputStr = string(outputBytes)
		}
		if input.ModelParameters != nil {
			paramsBytes, _ := json.Marshal(input.ModelParameters)
			modelParams = string(paramsBytes)
		}

		startTime := now
		if input.StartTime != nil {
			startTime = *input.StartTime
		}

		var durationMs float64
		if input.EndTime != nil {
			durationMs = float64(input.EndTime.Sub(startTime).Milliseconds())
		}

		var usageDetails domain.UsageDetails
		if input.Usage != nil {
			usageDetails = input.Usage.Normalize()
		}
		usageDetails = deriveUsage(s.costService, input.Model, usageDetails, inputStr, outputStr)

		var name string
		if input.Name != nil {
			name = *input.Name
		}

		var level domain.Level
		if input.Level != nil {
			level = *input.Level
		} else {
			level = domain.LevelDefault
		}

		var statusMessage string
		if input.StatusMessage != nil {
			statusMessage = *input.StatusMessage
		}

		var version string
		if input.Version != nil {
			version = *input.Version
		}

		var environment string
		if input.Environment != nil {
			environment = normalizeEnvironment(*input.Environment)
		} else {
			environment = domain.DefaultEnvironment
		}

		obs := &domain.Observation{
			ID:                  obsID,
			TraceID:             traceID,
			ProjectID:           projectID,
			Environment:         environment,
			ParentObservationID: input.ParentObservationID,
			Type:                domain.ObservationTypeGeneration,
			Name:                name,
			StartTime:           startTime,
			EndTime:             input.EndTime,
			DurationMs:          durationMs,
			Metadata:            metadata,
			Level:               level,
			StatusMessage:       statusMessage,
			Version:             version,
			Input:               inputStr,
			Output:              outputStr,
			Model:               input.Model,
			ModelParameters:     modelParams,
			UsageDetails:        usageDetails,
			PromptName:          input.PromptName,
			CreatedAt:           now,
			UpdatedAt:           now,
		}

		if usageDetails.TotalTokens > 0 && input.Model != "" && s.costService != nil {
			cost, err := s.costService.CalculateCost(ctx, projectID, input.Model, int64(usageDetails.InputTokens), int64(usageDetails.OutputTokens))
			if err == nil && cost != nil {
				obs.CostDetails = *cost
			}
		}

		observations = append(observations, obs)
	}

	if len(observations) > 0 {
		if err := s.observationRepo.CreateBatch(ctx, observations); err != nil {
			return fmt.Errorf("failed to batch create observations: %w", err)
		}
	}

	return nil
}

// UpdateTrace updates an existing trace with new field values.
//
// This method supports partial updates using the three-state optional
// convention: a nil pointer on the input means "leave unchanged". Metadata
// is deep-merged with the existing value rather than replaced outright.
//
// Updatable fields: Name, UserID, SessionID, Metadata, Tags, Release, Version,
// Public, Input, Output, Level, StatusMessage, EndTime, Bookmarked.
// Non-updatable fields: ID, ProjectID, Environment, StartTime, CreatedAt.
func (s *IngestionService) UpdateTrace(ctx context.Context, projectID uuid.UUID, traceID string, input *domain.TraceUpdateInput) (*domain.Trace, error) {
	trace, err := s.traceRepo.GetByID(ctx, projectID, traceID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		trace.Name = *input.Name
	}
	if input.UserID != nil {
		trace.UserID = *input.UserID
	}
	if input.SessionID != nil {
		trace.SessionID = *input.SessionID
	}
	if input.Release != nil {
		trace.Release = *input.Release
	}
	if input.Version != nil {
		trace.Version = *input.Version
	}
	if input.Tags != nil {
		trace.Tags = input.Tags
	}
	if input.Public != nil {
		trace.Public = *input.Public
	}
	if input.Level != nil {
		trace.Level = *input.Level
	}
	if input.StatusMessage != nil {
		trace.StatusMessage = *input.StatusMessage
	}
	if input.EndTime != nil {
		trace.EndTime = input.EndTime
		trace.DurationMs = float64(input.EndTime.Sub(trace.StartTime).Milliseconds())
	}
	if input.Bookmarked != nil {
		trace.Bookmarked = *input.Bookmarked
	}
	if input.Input != nil {
		inputBytes, err := json.Marshal(input.Input)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal input: %w", err)
		}
		trace.Input = string(inputBytes)
	}
	if input.Output != nil {
		outputBytes, err := json.Marshal(input.Output)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal output: %w", err)
		}
		trace.Output = string(outputBytes)
	}
	if input.Metadata != nil {
		merged, err := domain.MergeMetadata(trace.Metadata, input.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to merge metadata: %w", err)
		}
		trace.Metadata = merged
	}

	trace.UpdatedAt = time.Now()

	if err := s.traceRepo.Update(ctx, trace); err != nil {
		return nil, fmt.Errorf("failed to update trace: %w", err)
	}

	if input.SessionID != nil {
		s.upsertSession(ctx, projectID, trace.Environment, trace.SessionID, trace.UserID, trace.UpdatedAt)
	}

	return trace, nil
}

// UpdateObservation updates an existing observation with new field values.
//
// This method supports partial updates via the three-state optional
// convention: a nil pointer on the input means "leave unchanged". Metadata is
// deep-merged with the existing value. When EndTime is updated, DurationMs is
// automatically recalculated from StartTime.
func (s *IngestionService) UpdateObservation(ctx context.Context, projectID uuid.UUID, obsID string, input *domain.ObservationInput) (*domain.Observation, error) {
	obs, err := s.observationRepo.GetByID(ctx, projectID, obsID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil && *input.Name != "" {
		obs.Name = *input.Name
	}
	if input.EndTime != nil {
		obs.EndTime = input.EndTime
		obs.DurationMs = float64(input.EndTime.Sub(obs.StartTime).Milliseconds())
	}
	if input.CompletionStartTime != nil {
		obs.CompletionStartTime = input.CompletionStartTime
	}
	if input.Level != nil {
		obs.Level = *input.Level
	}
	if input.StatusMessage != nil && *input.StatusMessage != "" {
		obs.StatusMessage = *input.StatusMessage
	}
	if input.Model != nil {
		obs.Model = *input.Model
	}
	if input.Output != nil {
		outputBytes, err := json.Marshal(input.Output)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal output: %w", err)
		}
		obs.Output = string(outputBytes)
	}
	if input.Metadata != nil {
		merged, err := domain.MergeMetadata(obs.Metadata, input.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to merge metadata: %w", err)
		}
		obs.Metadata = merged
	}
	if input.Usage != nil {
		var usageInput domain.UsageDetailsInput
		raw, err := json.Marshal(input.Usage)
		if err == nil && json.Unmarshal(raw, &usageInput) == nil {
			obs.UsageDetails = deriveUsage(s.costService, obs.Model, usageInput.Normalize(), obs.Input, obs.Output)
			if obs.UsageDetails.TotalTokens > 0 && obs.Model != "" && s.costService != nil {
				if cost, err := s.costService.CalculateCost(ctx, projectID, obs.Model, int64(obs.UsageDetails.InputTokens), int64(obs.UsageDetails.OutputTokens)); err == nil && cost != nil {
					obs.CostDetails = *cost
				}
			}
		}
	}

	obs.UpdatedAt = time.Now()

	if err := s.observationRepo.Update(ctx, obs); err != nil {
		return nil, fmt.Errorf("failed to update observation: %w", err)
	}

	if obs.CostDetails.TotalCost > 0 {
		go func() {
			if err := s.updateTraceCosts(context.Background(), projectID, obs.TraceID); err != nil {
				s.logger.Error("failed to update trace costs",
					zap.String("trace_id", obs.TraceID),
					zap.String("observation_id", obs.ID),
					zap.String("project_id", projectID.String()),
					zap.Error(err),
				)
			}
		}()
	}

	return obs, nil
}

// updateTraceCosts recalculates and updates the aggregated costs for a trace.
//
// This method fetches all observations for a trace and sums their costs to
// update the trace's aggregate cost fields. Called asynchronously after
// ingesting a generation with costs.
func (s *IngestionService) updateTraceCosts(ctx context.Context, projectID uuid.UUID, traceID string) error {
	observations, err := s.observationRepo.GetByTraceID(ctx, projectID, traceID)
	if err != nil {
		return err
	}

	var inputCost, outputCost, totalCost float64
	for _, obs := range observations {
		inputCost += obs.CostDetails.InputCost
		outputCost += obs.CostDetails.OutputCost
		totalCost += obs.CostDetails.TotalCost
	}

	return s.traceRepo.UpdateCosts(ctx, projectID, traceID, inputCost, outputCost, totalCost)
}

// IngestionBatchInput represents a batch of telemetry items for bulk ingestion.
//
// SDKs typically buffer telemetry locally and send batches periodically to
// reduce network overhead. This struct mirrors the domain.IngestionBatch but
// uses input types for deserialization from API requests.
type IngestionBatchInput struct {
	// Traces to create (parent containers for observations)
	Traces []*domain.TraceInput `json:"traces"`
	// Observations to create (spans, events, generic operations)
	Observations []*domain.ObservationInput `json:"observations"`
	// Generations to create (LLM calls with model/usage/cost tracking)
	Generations []*domain.GenerationInput `json:"generations"`
}

// ReplayResult reports the outcome of replaying a previously dead-lettered
// ingestion event.
type ReplayResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// ReplayEvent re-attempts processing of a single ingestion event that
// exhausted its retries and was routed to the dead-letter log. eventType
// follows the batch envelope's discriminator (trace-create, span-create,
// generation-create, event-create, score-create); any other type is rejected
// without being retried further.
func (s *IngestionService) ReplayEvent(ctx context.Context, projectID uuid.UUID, eventID, eventType string, body json.RawMessage) (*ReplayResult, error) {
	switch eventType {
	case "trace-create":
		var input domain.TraceInput
		if err := json.Unmarshal(body, &input); err != nil {
			return &ReplayResult{Status: "rejected", Message: err.Error()}, nil
		}
		if _, err := s.IngestTrace(ctx, projectID, &input); err != nil {
			return nil, err
		}
	case "span-create", "event-create":
		var input domain.ObservationInput
		if err := json.Unmarshal(body, &input); err != nil {
			return &ReplayResult{Status: "rejected", Message: err.Error()}, nil
		}
		if _, err := s.IngestObservation(ctx, projectID, &input); err != nil {
			return nil, err
		}
	case "generation-create":
		var input domain.GenerationInput
		if err := json.Unmarshal(body, &input); err != nil {
			return &ReplayResult{Status: "rejected", Message: err.Error()}, nil
		}
		if _, err := s.IngestGeneration(ctx, projectID, &input); err != nil {
			return nil, err
		}
	default:
		return &ReplayResult{Status: "rejected", Message: fmt.Sprintf("unsupported event type %q for replay", eventType)}, nil
	}

	s.logger.Info("replayed dead-lettered event",
		zap.String("event_id", eventID),
		zap.String("event_type", eventType),
		zap.String("project_id", projectID.String()),
	)
	return &ReplayResult{Status: "success"}, nil
}
