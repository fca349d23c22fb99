package domain

import (
	"time"

	"github.com/google/uuid"
)

// Score represents an evaluation score attached to exactly one of a trace,
// a session, or a dataset run (exactly one target), optionally
// narrowed to a single observation within that trace.
type Score struct {
	ID            uuid.UUID     `json:"id" ch:"id"`
	ProjectID     uuid.UUID     `json:"projectId" ch:"project_id"`
	TraceID       *string       `json:"traceId,omitempty" ch:"trace_id"`
	SessionID     *string       `json:"sessionId,omitempty" ch:"session_id"`
	DatasetRunID  *string       `json:"datasetRunId,omitempty" ch:"dataset_run_id"`
	ObservationID *string       `json:"observationId,omitempty" ch:"observation_id"`
	Name          string        `json:"name" ch:"name"`
	Source        ScoreSource   `json:"source" ch:"source"`
	DataType      ScoreDataType `json:"dataType" ch:"data_type"`
	Value         *float64      `json:"value,omitempty" ch:"value"`
	StringValue   *string       `json:"stringValue,omitempty" ch:"string_value"`
	Comment       string        `json:"comment,omitempty" ch:"comment"`
	ConfigID      *uuid.UUID    `json:"configId,omitempty" ch:"config_id"`
	AuthorUserID  *uuid.UUID    `json:"authorUserId,omitempty" ch:"author_user_id"`
	QueueID       *string       `json:"queueId,omitempty" ch:"queue_id"`
	CreatedAt     time.Time     `json:"createdAt" ch:"created_at"`
	UpdatedAt     time.Time     `json:"updatedAt" ch:"updated_at"`
}

// Target reports which of trace/session/dataset-run this score is attached
// to, and the id. Exactly one is ever set; ScoreInput validation enforces it.
func (s *Score) Target() (kind string, id string) {
	switch {
	case s.TraceID != nil:
		return "trace", *s.TraceID
	case s.SessionID != nil:
		return "session", *s.SessionID
	case s.DatasetRunID != nil:
		return "datasetRun", *s.DatasetRunID
	}
	return "", ""
}

// ScoreInput represents input for creating a score. Exactly one of
// TraceID/SessionID/DatasetRunID must be set.
type ScoreInput struct {
	TraceID       *string       `json:"traceId,omitempty"`
	SessionID     *string       `json:"sessionId,omitempty"`
	DatasetRunID  *string       `json:"datasetRunId,omitempty"`
	ObservationID *string       `json:"observationId,omitempty"`
	Name          string        `json:"name" validate:"required"`
	Source        ScoreSource   `json:"source,omitempty"`
	DataType      ScoreDataType `json:"dataType,omitempty"`
	Value         *float64      `json:"value,omitempty"`
	StringValue   *string       `json:"stringValue,omitempty"`
	Comment       *string       `json:"comment,omitempty"`
	ConfigID      *string       `json:"configId,omitempty"`
	QueueID       *string       `json:"queueId,omitempty"`
}

// TargetCount reports how many of trace/session/dataset-run target fields are set.
func (i *ScoreInput) TargetCount() int {
	n := 0
	if i.TraceID != nil {
		n++
	}
	if i.SessionID != nil {
		n++
	}
	if i.DatasetRunID != nil {
		n++
	}
	return n
}

// ScoreFilter represents filter options for querying scores
type ScoreFilter struct {
	ProjectID     uuid.UUID
	TraceID       *string
	SessionID     *string
	ObservationID *string
	Name          *string
	Source        *ScoreSource
	DataType      *ScoreDataType
	ConfigID      *uuid.UUID
	FromTime      *time.Time
	ToTime        *time.Time
}

// ScoreList represents a paginated list of scores
type ScoreList struct {
	Scores     []Score `json:"scores"`
	TotalCount int64   `json:"totalCount"`
	HasMore    bool    `json:"hasMore"`
}

// ScoreStats represents statistics for scores
type ScoreStats struct {
	Name        string   `json:"name"`
	Count       int64    `json:"count"`
	AvgValue    *float64 `json:"avgValue,omitempty"`
	MinValue    *float64 `json:"minValue,omitempty"`
	MaxValue    *float64 `json:"maxValue,omitempty"`
	MedianValue *float64 `json:"medianValue,omitempty"`
}

// ScoreConfig represents a score configuration constraining allowed values
// for a named score (categories for CATEGORICAL, range for NUMERIC).
type ScoreConfig struct {
	ID          uuid.UUID     `json:"id"`
	ProjectID   uuid.UUID     `json:"projectId"`
	Name        string        `json:"name"`
	DataType    ScoreDataType `json:"dataType"`
	Categories  []string      `json:"categories,omitempty"`
	Description string        `json:"description,omitempty"`
	MinValue    *float64      `json:"minValue,omitempty"`
	MaxValue    *float64      `json:"maxValue,omitempty"`
	IsArchived  bool          `json:"isArchived"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// ScoreConfigInput represents input for creating a score config
type ScoreConfigInput struct {
	Name        string        `json:"name" validate:"required"`
	DataType    ScoreDataType `json:"dataType" validate:"required"`
	Categories  []string      `json:"categories,omitempty"`
	Description *string       `json:"description,omitempty"`
	MinValue    *float64      `json:"minValue,omitempty"`
	MaxValue    *float64      `json:"maxValue,omitempty"`
}

// ValidateScore validates a score value against its data type's invariants:
//   - NUMERIC requires a numeric value and no string value
//   - BOOLEAN requires value in {0, 1} and a matching string label ("true"/"false")
//   - CATEGORICAL requires a string value drawn from the configured categories
func ValidateScore(dataType ScoreDataType, value *float64, stringValue *string, categories []string) bool {
	switch dataType {
	case ScoreDataTypeNumeric:
		return value != nil && stringValue == nil
	case ScoreDataTypeBoolean:
		if value == nil || stringValue == nil {
			return false
		}
		if *value != 0 && *value != 1 {
			return false
		}
		expected := "false"
		if *value == 1 {
			expected = "true"
		}
		return *stringValue == expected
	case ScoreDataTypeCategorical:
		if stringValue == nil {
			return false
		}
		for _, cat := range categories {
			if cat == *stringValue {
				return true
			}
		}
		return false
	}
	return false
}
