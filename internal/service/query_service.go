package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/agenttrace/agenttrace/api/internal/domain"
	"github.com/agenttrace/agenttrace/api/internal/pkg/querybuilder"
)

// QueryService handles trace and observation queries
type QueryService struct {
	traceRepo       TraceRepository
	observationRepo ObservationRepository
	scoreRepo       ScoreRepository
	sessionRepo     SessionRepository
}

// NewQueryService creates a new query service
func NewQueryService(
	traceRepo TraceRepository,
	observationRepo ObservationRepository,
	scoreRepo ScoreRepository,
	sessionRepo SessionRepository,
) *QueryService {
	return &QueryService{
		traceRepo:       traceRepo,
		observationRepo: observationRepo,
		scoreRepo:       scoreRepo,
		sessionRepo:     sessionRepo,
	}
}

// GetTrace retrieves a trace by ID with observations and scores
func (s *QueryService) GetTrace(ctx context.Context, projectID uuid.UUID, traceID string) (*domain.Trace, error) {
	trace, err := s.traceRepo.GetByID(ctx, projectID, traceID)
	if err != nil {
		return nil, err
	}

	// Load observations
	observations, err := s.observationRepo.GetByTraceID(ctx, projectID, traceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get observations: %w", err)
	}
	trace.Observations = observations

	// Load scores
	scores, err := s.scoreRepo.GetByTraceID(ctx, projectID, traceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get scores: %w", err)
	}
	trace.Scores = scores

	return trace, nil
}

// ListTraces retrieves traces with filtering and pagination
func (s *QueryService) ListTraces(ctx context.Context, filter *domain.TraceFilter, limit, offset int) (*domain.TraceList, error) {
	return s.traceRepo.List(ctx, filter, limit, offset)
}

// GetObservation retrieves an observation by ID
func (s *QueryService) GetObservation(ctx context.Context, projectID uuid.UUID, observationID string) (*domain.Observation, error) {
	return s.observationRepo.GetByID(ctx, projectID, observationID)
}

// ListObservations retrieves observations with filtering
func (s *QueryService) ListObservations(ctx context.Context, filter *domain.ObservationFilter, limit, offset int) ([]domain.Observation, int64, error) {
	return s.observationRepo.List(ctx, filter, limit, offset)
}

// GetObservationsByTraceID retrieves all observations for a trace
func (s *QueryService) GetObservationsByTraceID(ctx context.Context, projectID uuid.UUID, traceID string) ([]domain.Observation, error) {
	return s.observationRepo.GetByTraceID(ctx, projectID, traceID)
}

// GetObservationTree retrieves the full forest of observation trees for a
// trace, preserving every root rather than just the first.
func (s *QueryService) GetObservationTree(ctx context.Context, projectID uuid.UUID, traceID string) (*domain.ObservationForest, error) {
	return s.observationRepo.GetTree(ctx, projectID, traceID)
}

// GetGraphSteps assigns a per-observation step number for the agent-graph
// view of a trace, consulting explicit graph metadata, legacy LangGraph
// metadata, and finally the observation type taxonomy, in that order.
func (s *QueryService) GetGraphSteps(ctx context.Context, projectID uuid.UUID, traceID string) ([]domain.GraphStep, error) {
	observations, err := s.observationRepo.GetByTraceID(ctx, projectID, traceID)
	if err != nil {
		return nil, err
	}
	return domain.AssignGraphSteps(observations), nil
}

// GetSessionTraces retrieves traces for a session
func (s *QueryService) GetSessionTraces(ctx context.Context, projectID uuid.UUID, sessionID string) ([]domain.Trace, error) {
	return s.traceRepo.GetBySessionID(ctx, projectID, sessionID)
}

// ListSessions retrieves sessions with filtering and pagination
func (s *QueryService) ListSessions(ctx context.Context, filter *domain.SessionFilter, limit, offset int) (*domain.SessionList, error) {
	return s.sessionRepo.List(ctx, filter, limit, offset)
}

// GetSession retrieves a session by ID with aggregated metrics
func (s *QueryService) GetSession(ctx context.Context, projectID uuid.UUID, sessionID string) (*domain.Session, error) {
	session, err := s.sessionRepo.GetByID(ctx, projectID, sessionID)
	if err != nil {
		return nil, err
	}

	// Optionally load traces for the session
	traces, err := s.traceRepo.GetBySessionID(ctx, projectID, sessionID)
	if err == nil {
		session.Traces = traces
	}

	return session, nil
}

// SetBookmark sets the bookmark status of a trace
func (s *QueryService) SetBookmark(ctx context.Context, projectID uuid.UUID, traceID string, bookmarked bool) error {
	return s.traceRepo.SetBookmark(ctx, projectID, traceID, bookmarked)
}

// UpdateTrace updates a trace with the given input
func (s *QueryService) UpdateTrace(ctx context.Context, projectID uuid.UUID, traceID string, input *domain.TraceUpdateInput) (*domain.Trace, error) {
	// Get existing trace
	trace, err := s.traceRepo.GetByID(ctx, projectID, traceID)
	if err != nil {
		return nil, err
	}

	// Apply updates
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
		if trace.StartTime.Before(*input.EndTime) {
			trace.DurationMs = float64(input.EndTime.Sub(trace.StartTime).Milliseconds())
		}
	}
	if input.Bookmarked != nil {
		trace.Bookmarked = *input.Bookmarked
	}
	if input.Metadata != nil {
		merged, err := domain.MergeMetadata(trace.Metadata, input.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to merge metadata: %w", err)
		}
		trace.Metadata = merged
	}

	// Update in repository
	if err := s.traceRepo.Update(ctx, trace); err != nil {
		return nil, fmt.Errorf("failed to update trace: %w", err)
	}

	return trace, nil
}

// GetTraceStats calculates statistics for traces matching a filter via a
// single SQL-level rollup (no dimensions, one row), rather than fetching
// rows and summing them in process.
func (s *QueryService) GetTraceStats(ctx context.Context, filter *domain.TraceFilter) (*TraceStats, error) {
	rows, err := s.traceRepo.Aggregate(ctx, filter, nil, []querybuilder.MeasureAgg{
		{Name: "count", Agg: querybuilder.AggCount},
		{Name: "durationMs", Agg: querybuilder.AggAvg},
		{Name: "totalCost", Agg: querybuilder.AggSum},
		{Name: "totalTokens", Agg: querybuilder.AggSum},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate trace stats: %w", err)
	}
	if len(rows) == 0 {
		return &TraceStats{}, nil
	}
	row := rows[0]

	stats := &TraceStats{
		TotalCount:  toInt64(row["count_count"]),
		AvgDuration: toFloat64(row["durationMs_avg"]),
		TotalCost:   toFloat64(row["totalCost_sum"]),
		TotalTokens: uint64(toInt64(row["totalTokens_sum"])),
	}

	errorFilter := *filter
	errorLevel := domain.LevelError
	errorFilter.Level = &errorLevel
	errorRows, err := s.traceRepo.Aggregate(ctx, &errorFilter, nil, []querybuilder.MeasureAgg{
		{Name: "count", Agg: querybuilder.AggCount},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate trace error count: %w", err)
	}
	if len(errorRows) > 0 {
		stats.ErrorCount = toInt64(errorRows[0]["count_count"])
	}
	if stats.TotalCount > 0 {
		stats.ErrorRate = float64(stats.ErrorCount) / float64(stats.TotalCount) * 100
	}

	return stats, nil
}

// toInt64 and toFloat64 normalize the dynamically-typed aggregate scan
// results (ClickHouse numeric types surface as the driver's reported Go
// type, which varies by column) into the fixed numeric types stats structs
// expose over the API.
func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case uint64:
		return int64(n)
	case int32:
		return int64(n)
	case uint32:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}

func toFloat64(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int64:
		return float64(n)
	case uint64:
		return float64(n)
	default:
		return 0
	}
}

// TraceStats represents aggregated trace statistics
type TraceStats struct {
	TotalCount  int64   `json:"totalCount"`
	AvgDuration float64 `json:"avgDuration"`
	TotalCost   float64 `json:"totalCost"`
	TotalTokens uint64  `json:"totalTokens"`
	ErrorCount  int64   `json:"errorCount"`
	ErrorRate   float64 `json:"errorRate"`
}

// GetGenerationStats calculates per-model statistics for generations via a
// single rollup grouped by model (AggregateQueryBuilder with the "model"
// dimension), instead of fetching up to 10,000 rows and bucketing them in
// process.
func (s *QueryService) GetGenerationStats(ctx context.Context, projectID uuid.UUID, model *string) (*GenerationStats, error) {
	genType := domain.ObservationTypeGeneration
	filter := &domain.ObservationFilter{
		ProjectID: projectID,
		Type:      &genType,
	}
	if model != nil {
		filter.Model = model
	}

	rows, err := s.observationRepo.Aggregate(ctx, filter, []string{"model"}, []querybuilder.MeasureAgg{
		{Name: "count", Agg: querybuilder.AggCount},
		{Name: "durationMs", Agg: querybuilder.AggAvg},
		{Name: "inputTokens", Agg: querybuilder.AggSum},
		{Name: "outputTokens", Agg: querybuilder.AggSum},
		{Name: "totalCost", Agg: querybuilder.AggSum},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate generation stats: %w", err)
	}

	stats := &GenerationStats{ByModel: make(map[string]*ModelStats)}

	for _, row := range rows {
		modelName, _ := row["model"].(string)
		if modelName == "" {
			continue
		}

		count := toInt64(row["model_count_count"])
		avgLatency := toFloat64(row["model_durationMs_avg"])
		modelStats := &ModelStats{
			Model:             modelName,
			Count:             count,
			AvgLatency:        avgLatency,
			TotalLatency:      avgLatency * float64(count),
			TotalInputTokens:  toInt64(row["model_inputTokens_sum"]),
			TotalOutputTokens: toInt64(row["model_outputTokens_sum"]),
			TotalCost:         toFloat64(row["model_totalCost_sum"]),
		}
		stats.ByModel[modelName] = modelStats
		stats.TotalCount += count
	}

	return stats, nil
}

// GenerationStats represents aggregated generation statistics
type GenerationStats struct {
	TotalCount int64                 `json:"totalCount"`
	ByModel    map[string]*ModelStats `json:"byModel"`
}

// ModelStats represents statistics for a specific model
type ModelStats struct {
	Model             string  `json:"model"`
	Count             int64   `json:"count"`
	TotalLatency      float64 `json:"totalLatency"`
	AvgLatency        float64 `json:"avgLatency"`
	TotalInputTokens  int64   `json:"totalInputTokens"`
	TotalOutputTokens int64   `json:"totalOutputTokens"`
	TotalCost         float64 `json:"totalCost"`
}
