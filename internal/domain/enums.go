package domain

import "regexp"

// Level represents the severity level of a trace or observation.
type Level string

const (
	LevelDebug   Level = "DEBUG"
	LevelDefault Level = "DEFAULT"
	LevelWarning Level = "WARNING"
	LevelError   Level = "ERROR"
)

// IsValid checks if the level is valid
func (l Level) IsValid() bool {
	switch l {
	case LevelDebug, LevelDefault, LevelWarning, LevelError:
		return true
	}
	return false
}

// ObservationType represents the kind of unit of work an observation records.
type ObservationType string

const (
	ObservationTypeEvent      ObservationType = "EVENT"
	ObservationTypeSpan       ObservationType = "SPAN"
	ObservationTypeGeneration ObservationType = "GENERATION"
	ObservationTypeAgent      ObservationType = "AGENT"
	ObservationTypeTool       ObservationType = "TOOL"
	ObservationTypeChain      ObservationType = "CHAIN"
	ObservationTypeRetriever  ObservationType = "RETRIEVER"
	ObservationTypeEvaluator  ObservationType = "EVALUATOR"
	ObservationTypeEmbedding  ObservationType = "EMBEDDING"
	ObservationTypeGuardrail  ObservationType = "GUARDRAIL"
)

// IsValid checks if the observation type is valid
func (t ObservationType) IsValid() bool {
	switch t {
	case ObservationTypeEvent, ObservationTypeSpan, ObservationTypeGeneration,
		ObservationTypeAgent, ObservationTypeTool, ObservationTypeChain,
		ObservationTypeRetriever, ObservationTypeEvaluator, ObservationTypeEmbedding,
		ObservationTypeGuardrail:
		return true
	}
	return false
}

// IsGenerationLike reports whether the observation type is expected to carry
// usage/cost details (GENERATION and EMBEDDING produce model usage).
func (t ObservationType) IsGenerationLike() bool {
	return t == ObservationTypeGeneration || t == ObservationTypeEmbedding
}

// ScoreSource represents who produced a score.
type ScoreSource string

const (
	ScoreSourceAPI        ScoreSource = "API"
	ScoreSourceEval       ScoreSource = "EVAL"
	ScoreSourceAnnotation ScoreSource = "ANNOTATION"
)

// IsValid checks if the score source is valid
func (s ScoreSource) IsValid() bool {
	switch s {
	case ScoreSourceAPI, ScoreSourceEval, ScoreSourceAnnotation:
		return true
	}
	return false
}

// ScoreDataType represents the data type of a score value.
type ScoreDataType string

const (
	ScoreDataTypeNumeric     ScoreDataType = "NUMERIC"
	ScoreDataTypeBoolean     ScoreDataType = "BOOLEAN"
	ScoreDataTypeCategorical ScoreDataType = "CATEGORICAL"
)

// IsValid checks if the score data type is valid
func (t ScoreDataType) IsValid() bool {
	switch t {
	case ScoreDataTypeNumeric, ScoreDataTypeBoolean, ScoreDataTypeCategorical:
		return true
	}
	return false
}

// PromptType represents the body shape of a prompt version.
type PromptType string

const (
	PromptTypeText PromptType = "text"
	PromptTypeChat PromptType = "chat"
)

// IsValid checks if the prompt type is valid
func (t PromptType) IsValid() bool {
	switch t {
	case PromptTypeText, PromptTypeChat:
		return true
	}
	return false
}

// OrgRole represents the role of a user in an organization.
type OrgRole string

const (
	OrgRoleOwner  OrgRole = "owner"
	OrgRoleAdmin  OrgRole = "admin"
	OrgRoleMember OrgRole = "member"
	OrgRoleViewer OrgRole = "viewer"
)

// IsValid checks if the org role is valid
func (r OrgRole) IsValid() bool {
	switch r {
	case OrgRoleOwner, OrgRoleAdmin, OrgRoleMember, OrgRoleViewer:
		return true
	}
	return false
}

// CanManageMembers checks if the role can manage members
func (r OrgRole) CanManageMembers() bool {
	return r == OrgRoleOwner || r == OrgRoleAdmin
}

// CanManageProject checks if the role can manage projects
func (r OrgRole) CanManageProject() bool {
	return r == OrgRoleOwner || r == OrgRoleAdmin
}

// CanWrite checks if the role can write data
func (r OrgRole) CanWrite() bool {
	return r != OrgRoleViewer
}

// CanRead checks if the role can read data
func (r OrgRole) CanRead() bool {
	return true
}

var orgRoleLevel = map[OrgRole]int{
	OrgRoleViewer: 1,
	OrgRoleMember: 2,
	OrgRoleAdmin:  3,
	OrgRoleOwner:  4,
}

// AtLeast reports whether r meets or exceeds required in the
// viewer < member < admin < owner role hierarchy.
func (r OrgRole) AtLeast(required OrgRole) bool {
	return orgRoleLevel[r] >= orgRoleLevel[required]
}

// SortOrder represents the sort order for queries
type SortOrder string

const (
	SortOrderAsc  SortOrder = "ASC"
	SortOrderDesc SortOrder = "DESC"
)

// IsValid checks if the sort order is valid
func (o SortOrder) IsValid() bool {
	switch o {
	case SortOrderAsc, SortOrderDesc:
		return true
	}
	return false
}

// AccessLevel represents what an authenticated caller may do within its scope.
type AccessLevel string

const (
	AccessLevelAll        AccessLevel = "all"
	AccessLevelScoresOnly AccessLevel = "scores-only"
	AccessLevelNone       AccessLevel = "none"
)

// IsValid checks if the access level is valid
func (a AccessLevel) IsValid() bool {
	switch a {
	case AccessLevelAll, AccessLevelScoresOnly, AccessLevelNone:
		return true
	}
	return false
}

// APIKeyScope distinguishes an API key anchored to a single project from one
// anchored to an organization (granting access to every project within it).
type APIKeyScope string

const (
	APIKeyScopeProject      APIKeyScope = "PROJECT"
	APIKeyScopeOrganization APIKeyScope = "ORGANIZATION"
)

// IsValid checks if the API key scope is valid
func (s APIKeyScope) IsValid() bool {
	switch s {
	case APIKeyScopeProject, APIKeyScopeOrganization:
		return true
	}
	return false
}

// environmentRegex enforces the ^[a-z0-9_-]{1,40}$ environment label format.
var environmentRegex = regexp.MustCompile(`^[a-z0-9_-]{1,40}$`)

// DefaultEnvironment is used when an ingested event omits environment.
const DefaultEnvironment = "default"

// IsValidEnvironment reports whether s is a well-formed environment label.
func IsValidEnvironment(s string) bool {
	return environmentRegex.MatchString(s)
}
