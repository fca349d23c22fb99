package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Observation represents a single span, generation, tool call, or other unit
// of work nested within a trace.
type Observation struct {
	ID                  string          `json:"id" ch:"id"`
	TraceID             string          `json:"traceId" ch:"trace_id"`
	ProjectID           uuid.UUID       `json:"projectId" ch:"project_id"`
	Environment         string          `json:"environment" ch:"environment"`
	ParentObservationID *string         `json:"parentObservationId,omitempty" ch:"parent_observation_id"`
	Type                ObservationType `json:"type" ch:"type"`
	Name                string          `json:"name" ch:"name"`
	Level               Level           `json:"level" ch:"level"`
	StatusMessage       string          `json:"statusMessage,omitempty" ch:"status_message"`
	Metadata            string          `json:"metadata,omitempty" ch:"metadata"`
	StartTime           time.Time       `json:"startTime" ch:"start_time"`
	EndTime             *time.Time      `json:"endTime,omitempty" ch:"end_time"`
	CompletionStartTime *time.Time      `json:"completionStartTime,omitempty" ch:"completion_start_time"`
	DurationMs          float64         `json:"durationMs" ch:"duration_ms"`
	TimeToFirstTokenMs  float64         `json:"timeToFirstTokenMs" ch:"time_to_first_token_ms"`
	Input               string          `json:"input,omitempty" ch:"input"`
	Output              string          `json:"output,omitempty" ch:"output"`

	// Generation-specific fields
	Model           string `json:"model,omitempty" ch:"model"`
	ModelParameters string `json:"modelParameters,omitempty" ch:"model_parameters"`

	// Token usage and cost. Internally typed for efficient columnar storage;
	// on the wire both marshal/unmarshal as a flat
	// map<string, number> so SDKs can report arbitrary usage/cost keys
	// (e.g. a provider-specific "reasoning_tokens") without a schema change.
	UsageDetails UsageDetails `json:"usageDetails" ch:"-"`
	CostDetails  CostDetails  `json:"costDetails" ch:"-"`

	// Prompt tracking
	PromptID      *uuid.UUID `json:"promptId,omitempty" ch:"prompt_id"`
	PromptVersion *uint32    `json:"promptVersion,omitempty" ch:"prompt_version"`
	PromptName    *string    `json:"promptName,omitempty" ch:"prompt_name"`

	// Version
	Version string `json:"version,omitempty" ch:"version"`

	// Timestamps
	CreatedAt time.Time `json:"createdAt" ch:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" ch:"updated_at"`

	// Related data (populated by the trace reader)
	Children []Observation `json:"children,omitempty" ch:"-"`
	Scores   []Score       `json:"scores,omitempty" ch:"-"`
}

// UsageDetails holds token usage counts. The well-known keys are input,
// output, total, cacheReadTokens, cacheCreationTokens; any other key an SDK
// reports is preserved in Extra and round-trips through the map wire format.
type UsageDetails struct {
	InputTokens         uint64
	OutputTokens        uint64
	TotalTokens         uint64
	CacheReadTokens     uint64
	CacheCreationTokens uint64
	Extra               map[string]float64
}

// MarshalJSON renders usage details as a flat map<string, number>.
func (u UsageDetails) MarshalJSON() ([]byte, error) {
	m := make(map[string]float64, len(u.Extra)+5)
	for k, v := range u.Extra {
		m[k] = v
	}
	if u.InputTokens != 0 {
		m["input"] = float64(u.InputTokens)
	}
	if u.OutputTokens != 0 {
		m["output"] = float64(u.OutputTokens)
	}
	if u.TotalTokens != 0 {
		m["total"] = float64(u.TotalTokens)
	}
	if u.CacheReadTokens != 0 {
		m["cacheReadTokens"] = float64(u.CacheReadTokens)
	}
	if u.CacheCreationTokens != 0 {
		m["cacheCreationTokens"] = float64(u.CacheCreationTokens)
	}
	return json.Marshal(m)
}

// UnmarshalJSON parses a flat map<string, number>, pulling the well-known
// keys into their typed fields and keeping everything else in Extra.
// Non-finite values (NaN/Inf) are dropped.
func (u *UsageDetails) UnmarshalJSON(data []byte) error {
	var m map[string]float64
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*u = UsageDetails{Extra: map[string]float64{}}
	for k, v := range m {
		if isNonFinite(v) {
			continue
		}
		switch k {
		case "input", "inputTokens", "promptTokens":
			u.InputTokens = uint64(v)
		case "output", "outputTokens", "completionTokens":
			u.OutputTokens = uint64(v)
		case "total", "totalTokens":
			u.TotalTokens = uint64(v)
		case "cacheReadTokens":
			u.CacheReadTokens = uint64(v)
		case "cacheCreationTokens":
			u.CacheCreationTokens = uint64(v)
		default:
			u.Extra[k] = v
		}
	}
	if u.TotalTokens == 0 {
		u.TotalTokens = u.InputTokens + u.OutputTokens
	}
	return nil
}

func isNonFinite(f float64) bool {
	return f != f || f > 1.7976931348623157e+308 || f < -1.7976931348623157e+308
}

// CostDetails holds derived cost figures in the project's billing currency.
type CostDetails struct {
	InputCost  float64
	OutputCost float64
	TotalCost  float64
	Currency   string
	Extra      map[string]float64
}

// MarshalJSON renders cost details as a flat map<string, number>.
func (c CostDetails) MarshalJSON() ([]byte, error) {
	m := make(map[string]float64, len(c.Extra)+3)
	for k, v := range c.Extra {
		m[k] = v
	}
	if c.InputCost != 0 {
		m["input"] = c.InputCost
	}
	if c.OutputCost != 0 {
		m["output"] = c.OutputCost
	}
	if c.TotalCost != 0 {
		m["total"] = c.TotalCost
	}
	return json.Marshal(m)
}

// UnmarshalJSON parses a flat map<string, number> into CostDetails.
func (c *CostDetails) UnmarshalJSON(data []byte) error {
	var m map[string]float64
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*c = CostDetails{Extra: map[string]float64{}}
	for k, v := range m {
		if isNonFinite(v) {
			continue
		}
		switch k {
		case "input", "inputCost":
			c.InputCost = v
		case "output", "outputCost":
			c.OutputCost = v
		case "total", "totalCost":
			c.TotalCost = v
		default:
			c.Extra[k] = v
		}
	}
	if c.TotalCost == 0 {
		c.TotalCost = c.InputCost + c.OutputCost
	}
	return nil
}

// ObservationInput represents input for creating/updating an observation
type ObservationInput struct {
	ID                  *string          `json:"id,omitempty"`
	TraceID             *string          `json:"traceId,omitempty"`
	Environment         *string          `json:"environment,omitempty" validate:"omitempty,max=40"`
	ParentObservationID *string          `json:"parentObservationId,omitempty"`
	Type                *ObservationType `json:"type,omitempty"`
	Name                *string          `json:"name,omitempty"`
	Level               *Level           `json:"level,omitempty"`
	StatusMessage       *string          `json:"statusMessage,omitempty"`
	Metadata            any              `json:"metadata,omitempty"`
	StartTime           *time.Time       `json:"startTime,omitempty"`
	EndTime             *time.Time       `json:"endTime,omitempty"`
	CompletionStartTime *time.Time       `json:"completionStartTime,omitempty"`
	Input               any              `json:"input,omitempty"`
	Output              any              `json:"output,omitempty"`

	// Generation-specific
	Model           *string `json:"model,omitempty"`
	ModelParameters any     `json:"modelParameters,omitempty"`
	Usage           any     `json:"usage,omitempty"`

	// Prompt tracking: resolved name+version pair
	PromptID      *string `json:"promptId,omitempty"`
	PromptVersion *int    `json:"promptVersion,omitempty"`
	PromptName    *string `json:"promptName,omitempty"`

	// Version
	Version *string `json:"version,omitempty"`
}

// GenerationInput represents input for creating a generation observation
type GenerationInput struct {
	ObservationInput

	// LLM-specific fields
	Model           string `json:"model"`
	ModelParameters any    `json:"modelParameters,omitempty"`

	// Request/Response
	Messages         any `json:"messages,omitempty"`
	Prompt           any `json:"prompt,omitempty"`
	Completion       any `json:"completion,omitempty"`
	CompletionTokens any `json:"completionTokens,omitempty"`
	PromptTokens     any `json:"promptTokens,omitempty"`
	TotalTokens      any `json:"totalTokens,omitempty"`

	// Usage object (alternative format)
	Usage *UsageDetailsInput `json:"usage,omitempty"`
}

// UsageDetailsInput represents input for usage details
type UsageDetailsInput struct {
	InputTokens         *int64 `json:"inputTokens,omitempty"`
	OutputTokens        *int64 `json:"outputTokens,omitempty"`
	TotalTokens         *int64 `json:"totalTokens,omitempty"`
	CacheReadTokens     *int64 `json:"cacheReadTokens,omitempty"`
	CacheCreationTokens *int64 `json:"cacheCreationTokens,omitempty"`

	// Alternative field names
	PromptTokens     *int64 `json:"promptTokens,omitempty"`
	CompletionTokens *int64 `json:"completionTokens,omitempty"`
}

// Normalize normalizes usage details input. Precedence: an explicit
// inputTokens/outputTokens wins over the promptTokens/completionTokens
// fallback names; totalTokens is used verbatim if given, else computed.
func (u *UsageDetailsInput) Normalize() UsageDetails {
	var details UsageDetails

	if u.InputTokens != nil {
		details.InputTokens = uint64(*u.InputTokens)
	} else if u.PromptTokens != nil {
		details.InputTokens = uint64(*u.PromptTokens)
	}

	if u.OutputTokens != nil {
		details.OutputTokens = uint64(*u.OutputTokens)
	} else if u.CompletionTokens != nil {
		details.OutputTokens = uint64(*u.CompletionTokens)
	}

	if u.TotalTokens != nil {
		details.TotalTokens = uint64(*u.TotalTokens)
	} else {
		details.TotalTokens = details.InputTokens + details.OutputTokens
	}

	if u.CacheReadTokens != nil {
		details.CacheReadTokens = uint64(*u.CacheReadTokens)
	}

	if u.CacheCreationTokens != nil {
		details.CacheCreationTokens = uint64(*u.CacheCreationTokens)
	}

	return details
}

// ObservationFilter represents filter options for querying observations
type ObservationFilter struct {
	ProjectID           uuid.UUID
	Environment         *string
	TraceID             *string
	ParentObservationID *string
	Type                *ObservationType
	Name                *string
	Model               *string
	Level               *Level
	FromTime            *time.Time
	ToTime              *time.Time
}

// ObservationTree represents a single observation node organized in a tree
// structure alongside its descendants.
type ObservationTree struct {
	Observation *Observation       `json:"observation"`
	Children    []*ObservationTree `json:"children,omitempty"`
}

// ObservationForest is the full nesting of a trace's observations: every
// root-level node (an observation with no parent, or whose parent is absent
// from the set), not just the first one. A trace legitimately has more than
// one root when it contains multiple top-level spans.
type ObservationForest struct {
	Roots []*ObservationTree `json:"roots"`
}

// BuildObservationTree nests a flat observation list by parentObservationId.
// An observation whose parent id is absent, empty, or not present in the
// batch is treated as a root.
func BuildObservationTree(observations []Observation) []*ObservationTree {
	nodeMap := make(map[string]*ObservationTree, len(observations))
	var roots []*ObservationTree

	for i := range observations {
		obs := &observations[i]
		nodeMap[obs.ID] = &ObservationTree{
			Observation: obs,
			Children:    []*ObservationTree{},
		}
	}

	for i := range observations {
		obs := &observations[i]
		node := nodeMap[obs.ID]

		if obs.ParentObservationID == nil || *obs.ParentObservationID == "" {
			roots = append(roots, node)
			continue
		}
		if parent, ok := nodeMap[*obs.ParentObservationID]; ok {
			parent.Children = append(parent.Children, node)
		} else {
			roots = append(roots, node)
		}
	}

	return roots
}

// GraphStep pairs an observation with its assigned step number in the
// agent-graph view of a trace.
type GraphStep struct {
	ID   string       `json:"id"`
	Node *Observation `json:"node"`
	Step int          `json:"step"`
}

var graphRelevantTypes = map[ObservationType]bool{
	ObservationTypeAgent:     true,
	ObservationTypeTool:      true,
	ObservationTypeChain:     true,
	ObservationTypeRetriever: true,
	ObservationTypeEmbedding: true,
}

// AssignGraphSteps computes a per-observation step number for the
// agent-graph view of a trace. Three signal sources are consulted in
// priority order, per trace (the whole set, not per observation): explicit
// graph_node_id/graph_parent_node_id metadata, legacy langgraph_node/
// langgraph_step metadata, and finally the observation type taxonomy. When
// none of the observations carry any graph signal, the result is empty.
func AssignGraphSteps(observations []Observation) []GraphStep {
	if explicit := assignFromExplicitGraphMetadata(observations); explicit != nil {
		return explicit
	}
	if legacy := assignFromLangGraphMetadata(observations); legacy != nil {
		return legacy
	}
	return assignFromTypeTaxonomy(observations)
}

type parsedMetadata map[string]interface{}

func parseObservationMetadata(obs *Observation) parsedMetadata {
	if obs.Metadata == "" {
		return nil
	}
	var m parsedMetadata
	if err := json.Unmarshal([]byte(obs.Metadata), &m); err != nil {
		return nil
	}
	return m
}

func metaString(m parsedMetadata, key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// assignFromExplicitGraphMetadata builds the step assignment from
// graph_node_id/graph_parent_node_id metadata, when at least one
// observation carries a graph_node_id.
func assignFromExplicitGraphMetadata(observations []Observation) []GraphStep {
	nodeIDToObsIdx := make(map[string]int)
	parentOf := make(map[string]string)
	found := false

	for i := range observations {
		meta := parseObservationMetadata(&observations[i])
		nodeID, ok := metaString(meta, "graph_node_id")
		if !ok {
			continue
		}
		found = true
		nodeIDToObsIdx[nodeID] = i
		if parentID, ok := metaString(meta, "graph_parent_node_id"); ok && parentID != "" {
			parentOf[nodeID] = parentID
		}
	}
	if !found {
		return nil
	}

	return bfsAssignSteps(observations, nodeIDToObsIdx, parentOf)
}

// assignFromLangGraphMetadata is the same shape as the explicit signal,
// keyed by the legacy langgraph_node/langgraph_step fields instead. Step
// numbers come directly from langgraph_step when present rather than BFS
// depth, since LangGraph already assigns a step counter per node.
func assignFromLangGraphMetadata(observations []Observation) []GraphStep {
	var steps []GraphStep
	found := false

	for i := range observations {
		obs := &observations[i]
		meta := parseObservationMetadata(obs)
		if _, ok := metaString(meta, "langgraph_node"); !ok {
			continue
		}
		found = true

		step := 0
		if raw, ok := meta["langgraph_step"]; ok {
			switch v := raw.(type) {
			case float64:
				step = int(v)
			case string:
				// best-effort: non-numeric values fall back to 0
				var parsed int
				if _, err := fmt.Sscanf(v, "%d", &parsed); err == nil {
					step = parsed
				}
			}
		}
		steps = append(steps, GraphStep{ID: obs.ID, Node: obs, Step: step})
	}

	if !found {
		return nil
	}
	return steps
}

// assignFromTypeTaxonomy falls back to the observation type taxonomy: when
// at least one observation is of a graph-relevant type, nodes are labelled
// by name and ordered by start time into sequential steps.
func assignFromTypeTaxonomy(observations []Observation) []GraphStep {
	relevant := make([]Observation, 0, len(observations))
	for i := range observations {
		if graphRelevantTypes[observations[i].Type] {
			relevant = append(relevant, observations[i])
		}
	}
	if len(relevant) == 0 {
		return nil
	}

	sort.Slice(relevant, func(i, j int) bool {
		return relevant[i].StartTime.Before(relevant[j].StartTime)
	})

	steps := make([]GraphStep, len(relevant))
	for i := range relevant {
		steps[i] = GraphStep{ID: relevant[i].ID, Node: &relevant[i], Step: i}
	}
	return steps
}

// bfsAssignSteps assigns steps by BFS from roots (nodes with no parent, or
// whose parent is not itself a graph node), visiting parents before
// children and each node at most once so cycles cannot loop forever.
func bfsAssignSteps(observations []Observation, nodeIDToObsIdx map[string]int, parentOf map[string]string) []GraphStep {
	childrenOf := make(map[string][]string)
	var roots []string

	for nodeID := range nodeIDToObsIdx {
		parentID, hasParent := parentOf[nodeID]
		if !hasParent {
			roots = append(roots, nodeID)
			continue
		}
		if _, parentExists := nodeIDToObsIdx[parentID]; !parentExists {
			roots = append(roots, nodeID)
			continue
		}
		childrenOf[parentID] = append(childrenOf[parentID], nodeID)
	}

	sort.Strings(roots)

	visited := make(map[string]bool, len(nodeIDToObsIdx))
	var steps []GraphStep
	step := 0
	queue := append([]string{}, roots...)

	for len(queue) > 0 {
		nodeID := queue[0]
		queue = queue[1:]

		if visited[nodeID] {
			continue
		}
		visited[nodeID] = true

		obsIdx, ok := nodeIDToObsIdx[nodeID]
		if !ok {
			continue
		}
		obs := &observations[obsIdx]
		steps = append(steps, GraphStep{ID: obs.ID, Node: obs, Step: step})
		step++

		children := append([]string{}, childrenOf[nodeID]...)
		sort.Strings(children)
		for _, child := range children {
			if !visited[child] {
				queue = append(queue, child)
			}
		}
	}

	return steps
}
