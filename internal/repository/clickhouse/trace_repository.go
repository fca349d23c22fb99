package clickhouse

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agenttrace/agenttrace/api/internal/domain"
	"github.com/agenttrace/agenttrace/api/internal/pkg/database"
	"github.com/agenttrace/agenttrace/api/internal/pkg/querybuilder"
)

// TraceRepository handles trace data operations in ClickHouse
type TraceRepository struct {
	db      *database.ClickHouseDB
	logger  *zap.Logger
	catalog *querybuilder.Catalog
}

// NewTraceRepository creates a new trace repository
func NewTraceRepository(db *database.ClickHouseDB, logger *zap.Logger) *TraceRepository {
	return &TraceRepository{
		db:      db,
		logger:  logger.Named("trace_repository"),
		catalog: traceCatalog(),
	}
}

// traceCatalog describes the traces table's queryable surface for the
// declarative query builder: which columns can be filtered/grouped on
// (Fields) and which expressions can be rolled up (Measures).
func traceCatalog() *querybuilder.Catalog {
	return &querybuilder.Catalog{
		Table: "traces FINAL",
		Fields: map[string]querybuilder.Field{
			"traceId":      {Column: "id", Type: querybuilder.TypeString, Groupable: true},
			"name":         {Column: "name", Type: querybuilder.TypeString, Groupable: true},
			"userId":       {Column: "user_id", Type: querybuilder.TypeString, Groupable: true},
			"sessionId":    {Column: "session_id", Type: querybuilder.TypeString, Groupable: true},
			"release":      {Column: "release", Type: querybuilder.TypeString, Groupable: true},
			"version":      {Column: "version", Type: querybuilder.TypeString, Groupable: true},
			"level":        {Column: "level", Type: querybuilder.TypeString, Groupable: true},
			"tags":         {Column: "tags", Type: querybuilder.TypeString, Groupable: false},
			"bookmarked":   {Column: "bookmarked", Type: querybuilder.TypeBoolean, Groupable: true},
			"startTime":    {Column: "start_time", Type: querybuilder.TypeDatetime, Groupable: false},
			"durationMs":   {Column: "duration_ms", Type: querybuilder.TypeNumber, Groupable: false},
			"totalCost":    {Column: "total_cost", Type: querybuilder.TypeNumber, Groupable: false},
			"totalTokens":  {Column: "total_tokens", Type: querybuilder.TypeNumber, Groupable: false},
			"gitCommitSha": {Column: "git_commit_sha", Type: querybuilder.TypeString, Groupable: true},
			"gitBranch":    {Column: "git_branch", Type: querybuilder.TypeString, Groupable: true},
			"gitRepoUrl":   {Column: "git_repo_url", Type: querybuilder.TypeString, Groupable: true},
		},
		Measures: map[string]querybuilder.Measure{
			"count":       {Expr: "id", Type: querybuilder.TypeString, Allows: []querybuilder.Aggregation{querybuilder.AggCount}},
			"totalCost":   {Expr: "total_cost", Type: querybuilder.TypeNumber, Allows: []querybuilder.Aggregation{querybuilder.AggSum, querybuilder.AggAvg, querybuilder.AggMin, querybuilder.AggMax}},
			"totalTokens": {Expr: "total_tokens", Type: querybuilder.TypeNumber, Allows: []querybuilder.Aggregation{querybuilder.AggSum, querybuilder.AggAvg}},
			"durationMs":  {Expr: "duration_ms", Type: querybuilder.TypeNumber, Allows: []querybuilder.Aggregation{querybuilder.AggAvg, querybuilder.AggMin, querybuilder.AggMax}},
			"errorCount":  {Expr: "if(level = 'ERROR', 1, 0)", Type: querybuilder.TypeNumber, Allows: []querybuilder.Aggregation{querybuilder.AggSum}},
		},
	}
}

// filtersFromTraceFilter translates the handler-facing domain.TraceFilter
// into the catalog-validated Filter model so List and Aggregate share a
// single predicate-compilation path instead of each hand-rolling SQL.
func filtersFromTraceFilter(filter *domain.TraceFilter) []querybuilder.Filter {
	var filters []querybuilder.Filter

	if filter.UserID != nil {
		filters = append(filters, querybuilder.Filter{Column: "userId", Operator: querybuilder.OpEquals, Value: *filter.UserID})
	}
	if filter.SessionID != nil {
		filters = append(filters, querybuilder.Filter{Column: "sessionId", Operator: querybuilder.OpEquals, Value: *filter.SessionID})
	}
	if filter.Name != nil {
		filters = append(filters, querybuilder.Filter{Column: "name", Operator: querybuilder.OpContains, Value: *filter.Name})
	}
	if filter.Release != nil {
		filters = append(filters, querybuilder.Filter{Column: "release", Operator: querybuilder.OpEquals, Value: *filter.Release})
	}
	if filter.Level != nil {
		filters = append(filters, querybuilder.Filter{Column: "level", Operator: querybuilder.OpEquals, Value: string(*filter.Level)})
	}
	if filter.Bookmarked != nil {
		filters = append(filters, querybuilder.Filter{Column: "bookmarked", Operator: querybuilder.OpEquals, Value: *filter.Bookmarked})
	}
	if filter.HasError != nil && *filter.HasError {
		filters = append(filters, querybuilder.Filter{Column: "level", Operator: querybuilder.OpEquals, Value: "ERROR"})
	}
	if filter.GitCommitSha != nil {
		filters = append(filters, querybuilder.Filter{Column: "gitCommitSha", Operator: querybuilder.OpEquals, Value: *filter.GitCommitSha})
	}
	if filter.GitBranch != nil {
		filters = append(filters, querybuilder.Filter{Column: "gitBranch", Operator: querybuilder.OpEquals, Value: *filter.GitBranch})
	}
	if filter.GitRepoURL != nil {
		filters = append(filters, querybuilder.Filter{Column: "gitRepoUrl", Operator: querybuilder.OpEquals, Value: *filter.GitRepoURL})
	}
	if filter.FromTime != nil {
		filters = append(filters, querybuilder.Filter{Column: "startTime", Operator: querybuilder.OpGreater, Value: *filter.FromTime})
	}
	if filter.ToTime != nil {
		filters = append(filters, querybuilder.Filter{Column: "startTime", Operator: querybuilder.OpLess, Value: *filter.ToTime})
	}
	if filter.MinCost != nil {
		filters = append(filters, querybuilder.Filter{Column: "totalCost", Operator: querybuilder.OpGreater, Value: *filter.MinCost})
	}
	if filter.MaxCost != nil {
		filters = append(filters, querybuilder.Filter{Column: "totalCost", Operator: querybuilder.OpLess, Value: *filter.MaxCost})
	}
	if filter.MinDuration != nil {
		filters = append(filters, querybuilder.Filter{Column: "durationMs", Operator: querybuilder.OpGreater, Value: *filter.MinDuration})
	}
	if filter.MaxDuration != nil {
		filters = append(filters, querybuilder.Filter{Column: "durationMs", Operator: querybuilder.OpLess, Value: *filter.MaxDuration})
	}
	if len(filter.Tags) > 0 {
		filters = append(filters, querybuilder.Filter{Column: "tags", Operator: querybuilder.OpAnyOf, Value: filter.Tags})
	}

	return filters
}

// Aggregate compiles and runs a measure/dimension rollup over traces via the
// declarative query builder, routing the result rows back as plain maps
// keyed by querybuilder's "{dimension}_{measure}_{agg}" column naming.
func (r *TraceRepository) Aggregate(ctx context.Context, filter *domain.TraceFilter, dimensions []string, measures []querybuilder.MeasureAgg) ([]map[string]interface{}, error) {
	compiled, err := querybuilder.AggregateQueryBuilder(r.catalog, filter.ProjectID, dimensions, measures, filtersFromTraceFilter(filter))
	if err != nil {
		return nil, fmt.Errorf("failed to compile trace aggregate: %w", err)
	}

	rows, err := runAggregateQuery(ctx, r.db, compiled)
	if err != nil {
		r.logger.Error("failed to run trace aggregate",
			zap.String("project_id", filter.ProjectID.String()),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to run trace aggregate: %w", err)
	}
	return rows, nil
}

// Create inserts a new trace
func (r *TraceRepository) Create(ctx context.Context, trace *domain.Trace) error {
	r.logger.Debug("creating trace",
		zap.String("trace_id", trace.ID),
		zap.String("project_id", trace.ProjectID.String()),
	)

	query := `
		INSERT INTO traces (
			id, project_id, name, user_id, session_id, release, version,
			tags, metadata, public, bookmarked, start_time, end_time,
			input, output, level, status_message, total_cost, input_cost,
			output_cost, total_tokens, input_tokens, output_tokens,
			git_commit_sha, git_branch, git_repo_url, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := r.db.Exec(ctx, query,
		trace.ID,
		trace.ProjectID,
		trace.Name,
		trace.UserID,
		trace.SessionID,
		trace.Release,
		trace.Version,
		trace.Tags,
		trace.Metadata,
		trace.Public,
		trace.Bookmarked,
		trace.StartTime,
		trace.EndTime,
		trace.Input,
		trace.Output,
		string(trace.Level),
		trace.StatusMessage,
		trace.TotalCost,
		trace.InputCost,
		trace.OutputCost,
		trace.TotalTokens,
		trace.InputTokens,
		trace.OutputTokens,
		trace.GitCommitSha,
		trace.GitBranch,
		trace.GitRepoURL,
		trace.CreatedAt,
		trace.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("failed to create trace",
			zap.String("trace_id", trace.ID),
			zap.String("project_id", trace.ProjectID.String()),
			zap.Error(err),
		)
	}
	return err
}

// CreateBatch inserts multiple traces
func (r *TraceRepository) CreateBatch(ctx context.Context, traces []*domain.Trace) error {
	if len(traces) == 0 {
		r.logger.Debug("skipping empty batch insert")
		return nil
	}

	r.logger.Debug("creating traces batch", zap.Int("count", len(traces)))

	batch, err := r.db.PrepareBatch(ctx, `
		INSERT INTO traces (
			id, project_id, name, user_id, session_id, release, version,
			tags, metadata, public, bookmarked, start_time, end_time,
			input, output, level, status_message, total_cost, input_cost,
			output_cost, total_tokens, input_tokens, output_tokens,
			git_commit_sha, git_branch, git_repo_url, created_at, updated_at
		)
	`)
	if err != nil {
		r.logger.Error("failed to prepare batch", zap.Error(err))
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	for _, trace := range traces {
		if err := batch.Append(
			trace.ID,
			trace.ProjectID,
			trace.Name,
			trace.UserID,
			trace.SessionID,
			trace.Release,
			trace.Version,
			trace.Tags,
			trace.Metadata,
			trace.Public,
			trace.Bookmarked,
			trace.StartTime,
			trace.EndTime,
			trace.Input,
			trace.Output,
			string(trace.Level),
			trace.StatusMessage,
			trace.TotalCost,
			trace.InputCost,
			trace.OutputCost,
			trace.TotalTokens,
			trace.InputTokens,
			trace.OutputTokens,
			trace.GitCommitSha,
			trace.GitBranch,
			trace.GitRepoURL,
			trace.CreatedAt,
			trace.UpdatedAt,
		); err != nil {
			r.logger.Error("failed to append to batch",
				zap.String("trace_id", trace.ID),
				zap.Error(err),
			)
			return fmt.Errorf("failed to append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		r.logger.Error("failed to send batch", zap.Int("count", len(traces)), zap.Error(err))
		return err
	}
	return nil
}

// GetByID retrieves a trace by ID
func (r *TraceRepository) GetByID(ctx context.Context, projectID uuid.UUID, traceID string) (*domain.Trace, error) {
	r.logger.Debug("getting trace by ID",
		zap.String("trace_id", traceID),
		zap.String("project_id", projectID.String()),
	)

	var trace domain.Trace

	query := `
		SELECT
			id, project_id, name, user_id, session_id, release, version,
			tags, metadata, public, bookmarked, start_time, end_time, duration_ms,
			input, output, level, status_message, total_cost, input_cost,
			output_cost, total_tokens, input_tokens, output_tokens,
			git_commit_sha, git_branch, git_repo_url, created_at, updated_at
		FROM traces FINAL
		WHERE project_id = ? AND id = ?
		LIMIT 1
	`

	row := r.db.QueryRow(ctx, query, projectID, traceID)
	err := row.Scan(
		&trace.ID,
		&trace.ProjectID,
		&trace.Name,
		&trace.UserID,
		&trace.SessionID,
		&trace.Release,
		&trace.Version,
		&trace.Tags,
		&trace.Metadata,
		&trace.Public,
		&trace.Bookmarked,
		&trace.StartTime,
		&trace.EndTime,
		&trace.DurationMs,
		&trace.Input,
		&trace.Output,
		&trace.Level,
		&trace.StatusMessage,
		&trace.TotalCost,
		&trace.InputCost,
		&trace.OutputCost,
		&trace.TotalTokens,
		&trace.InputTokens,
		&trace.OutputTokens,
		&trace.GitCommitSha,
		&trace.GitBranch,
		&trace.GitRepoURL,
		&trace.CreatedAt,
		&trace.UpdatedAt,
	)
	if err != nil {
		r.logger.Warn("trace not found or error",
			zap.String("trace_id", traceID),
			zap.String("project_id", projectID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	return &trace, nil
}

// List retrieves traces with filtering and pagination. Scalar predicates are
// compiled through the same catalog-validated Filter model Aggregate uses,
// so the two entry points never drift on what "release = ?" or "tags any of
// ?" compiles to.
func (r *TraceRepository) List(ctx context.Context, filter *domain.TraceFilter, limit, offset int) (*domain.TraceList, error) {
	conditions := []string{"project_id = ?"}
	args := []interface{}{filter.ProjectID}

	filterConditions, filterArgs, err := querybuilder.CompileFilters(r.catalog, filtersFromTraceFilter(filter))
	if err != nil {
		return nil, err
	}
	conditions = append(conditions, filterConditions...)
	args = append(args, filterArgs...)

	if len(filter.IDs) > 0 {
		placeholders := make([]string, len(filter.IDs))
		for i := range filter.IDs {
			placeholders[i] = "?"
			args = append(args, filter.IDs[i])
		}
		conditions = append(conditions, fmt.Sprintf("id IN (%s)", strings.Join(placeholders, ",")))
	}

	whereClause := strings.Join(conditions, " AND ")

	// Get total count
	countQuery := fmt.Sprintf("SELECT count() FROM traces FINAL WHERE %s", whereClause)
	var totalCount int64
	row := r.db.QueryRow(ctx, countQuery, args...)
	if err := row.Scan(&totalCount); err != nil {
		return nil, fmt.Errorf("failed to count traces: %w", err)
	}

	// Get traces
	query := fmt.Sprintf(`
		SELECT
			id, project_id, name, user_id, session_id, release, version,
			tags, metadata, public, bookmarked, start_time, end_time, duration_ms,
			input, output, level, status_message, total_cost, input_cost,
			output_cost, total_tokens, input_tokens, output_tokens,
			git_commit_sha, git_branch, git_repo_url, created_at, updated_at
		FROM traces FINAL
		WHERE %s
		ORDER BY start_time DESC, id DESC
		LIMIT ? OFFSET ?
	`, whereClause)

	args = append(args, limit+1, offset)

	var traces []domain.Trace
	if err := r.db.Select(ctx, &traces, query, args...); err != nil {
		return nil, fmt.Errorf("failed to select traces: %w", err)
	}

	hasMore := len(traces) > limit
	if hasMore {
		traces = traces[:limit]
	}

	return &domain.TraceList{
		Traces:     traces,
		TotalCount: totalCount,
		HasMore:    hasMore,
	}, nil
}

// Update updates a trace
func (r *TraceRepository) Update(ctx context.Context, trace *domain.Trace) error {
	trace.UpdatedAt = time.Now()
	return r.Create(ctx, trace) // ReplacingMergeTree handles updates
}

// UpdateCosts updates trace costs
func (r *TraceRepository) UpdateCosts(ctx context.Context, projectID uuid.UUID, traceID string, inputCost, outputCost, totalCost float64) error {
	query := `
		INSERT INTO traces (
			id, project_id, total_cost, input_cost, output_cost, updated_at
		)
		SELECT
			id, project_id, ?, ?, ?, now64(3)
		FROM traces FINAL
		WHERE id = ? AND project_id = ?
	`

	return r.db.Exec(ctx, query,
		totalCost, inputCost, outputCost,
		traceID, projectID,
	)
}

// SetBookmark sets the bookmark status of a trace
func (r *TraceRepository) SetBookmark(ctx context.Context, projectID uuid.UUID, traceID string, bookmarked bool) error {
	query := `
		INSERT INTO traces (id, project_id, bookmarked, updated_at)
		SELECT id, project_id, ?, now64(3)
		FROM traces FINAL
		WHERE id = ? AND project_id = ?
	`

	return r.db.Exec(ctx, query, bookmarked, traceID, projectID)
}

// Delete deletes a trace by ID
// Note: ClickHouse ALTER TABLE DELETE is a heavy operation, use with caution
func (r *TraceRepository) Delete(ctx context.Context, projectID uuid.UUID, traceID string) error {
	r.logger.Info("deleting trace",
		zap.String("trace_id", traceID),
		zap.String("project_id", projectID.String()),
	)

	query := `ALTER TABLE traces DELETE WHERE project_id = ? AND id = ?`
	if err := r.db.Exec(ctx, query, projectID, traceID); err != nil {
		r.logger.Error("failed to delete trace",
			zap.String("trace_id", traceID),
			zap.String("project_id", projectID.String()),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// GetBySessionID retrieves all traces for a session
func (r *TraceRepository) GetBySessionID(ctx context.Context, projectID uuid.UUID, sessionID string) ([]domain.Trace, error) {
	query := `
		SELECT
			id, project_id, name, user_id, session_id, release, version,
			tags, metadata, public, bookmarked, start_time, end_time, duration_ms,
			input, output, level, status_message, total_cost, input_cost,
			output_cost, total_tokens, input_tokens, output_tokens,
			git_commit_sha, git_branch, git_repo_url, created_at, updated_at
		FROM traces FINAL
		WHERE project_id = ? AND session_id = ?
		ORDER BY start_time ASC
	`

	var traces []domain.Trace
	if err := r.db.Select(ctx, &traces, query, projectID, sessionID); err != nil {
		return nil, err
	}

	return traces, nil
}

// CountBeforeCutoff counts traces created before the cutoff date for a project
func (r *TraceRepository) CountBeforeCutoff(ctx context.Context, projectID uuid.UUID, cutoff time.Time) (int64, error) {
	query := `
		SELECT count()
		FROM traces FINAL
		WHERE project_id = ? AND created_at < ?
	`

	var count int64
	row := r.db.QueryRow(ctx, query, projectID, cutoff)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count traces: %w", err)
	}

	return count, nil
}

// DeleteBeforeCutoff deletes traces created before the cutoff date for a project
// Note: ClickHouse ALTER TABLE DELETE is a heavy operation, use with caution
func (r *TraceRepository) DeleteBeforeCutoff(ctx context.Context, projectID uuid.UUID, cutoff time.Time) (int64, error) {
	r.logger.Info("deleting traces before cutoff",
		zap.String("project_id", projectID.String()),
		zap.Time("cutoff", cutoff),
	)

	// First count how many we'll delete
	count, err := r.CountBeforeCutoff(ctx, projectID, cutoff)
	if err != nil {
		return 0, err
	}

	if count == 0 {
		r.logger.Debug("no traces to delete before cutoff",
			zap.String("project_id", projectID.String()),
			zap.Time("cutoff", cutoff),
		)
		return 0, nil
	}

	// ClickHouse uses ALTER TABLE DELETE for mutations
	query := `ALTER TABLE traces DELETE WHERE project_id = ? AND created_at < ?`
	if err := r.db.Exec(ctx, query, projectID, cutoff); err != nil {
		r.logger.Error("failed to delete traces before cutoff",
			zap.String("project_id", projectID.String()),
			zap.Time("cutoff", cutoff),
			zap.Int64("count", count),
			zap.Error(err),
		)
		return 0, fmt.Errorf("failed to delete traces: %w", err)
	}

	r.logger.Info("deleted traces before cutoff",
		zap.String("project_id", projectID.String()),
		zap.Time("cutoff", cutoff),
		zap.Int64("count", count),
	)
	return count, nil
}

// DeleteByProjectID deletes all traces for a project
// Note: ClickHouse ALTER TABLE DELETE is a heavy operation, use with caution
func (r *TraceRepository) DeleteByProjectID(ctx context.Context, projectID uuid.UUID) error {
	r.logger.Info("deleting all traces for project",
		zap.String("project_id", projectID.String()),
	)

	query := `ALTER TABLE traces DELETE WHERE project_id = ?`
	if err := r.db.Exec(ctx, query, projectID); err != nil {
		r.logger.Error("failed to delete all traces for project",
			zap.String("project_id", projectID.String()),
			zap.Error(err),
		)
		return err
	}
	return nil
}
