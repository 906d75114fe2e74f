package domain

import (
	"encoding/json"
	"fmt"
)

// Tool names the client knows about.
const (
	ToolCostBreakdown      = "get_cost_breakdown"
	ToolResourceSummary    = "list_resource_summary"
	ToolLambdaErrorMetrics = "get_lambda_error_metrics"
	ToolCreateActionPR     = "create_action_pr"
	ToolApplyDirectChange  = "apply_direct_change"
	ToolRunCode            = "run_code"
)

// AgentToolDefinition is a catalog entry.
type AgentToolDefinition struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// DefaultToolCatalog is used when the backend catalog is empty or unavailable.
var DefaultToolCatalog = []AgentToolDefinition{
	{Name: ToolCostBreakdown, Description: "Cost Breakdown"},
	{Name: ToolResourceSummary, Description: "Resource Summary"},
	{Name: ToolLambdaErrorMetrics, Description: "Lambda Error Metrics"},
	{Name: ToolCreateActionPR, Description: "Create Action PR"},
	{Name: ToolApplyDirectChange, Description: "Apply Direct Change"},
	{Name: ToolRunCode, Description: "Sandbox Code Execution"},
}

// ReadOnlyTools may be quick-run before a chat message without confirmation.
var ReadOnlyTools = []string{ToolCostBreakdown, ToolResourceSummary, ToolLambdaErrorMetrics}

// IsReadOnlyTool reports whether name is in ReadOnlyTools.
func IsReadOnlyTool(name string) bool {
	for _, t := range ReadOnlyTools {
		if t == name {
			return true
		}
	}
	return false
}

// ToolInvocation asks the backend to execute a tool before the model replies.
type ToolInvocation struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// ToolStatus is the outcome of one tool execution.
type ToolStatus string

const (
	ToolSuccess             ToolStatus = "success"
	ToolError               ToolStatus = "error"
	ToolPendingConfirmation ToolStatus = "pending_confirmation"
)

// ToolExecution is the record of one tool invocation returned with a chat result.
// Data varies by tool; use Payload for a typed view.
type ToolExecution struct {
	Tool   string          `json:"tool"`
	Status ToolStatus      `json:"status"`
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// ToolPayload is the typed view of ToolExecution.Data.
// Implementations: CodeRun, UnknownRun.
type ToolPayload interface {
	toolName() string
}

// CodeRun is the data of a run_code execution.
type CodeRun struct {
	Status      string   `json:"status,omitempty"`
	Logs        LogLines `json:"logs,omitempty"`
	CompletedAt string   `json:"completedAt,omitempty"`
	Description string   `json:"description,omitempty"`
}

func (CodeRun) toolName() string { return ToolRunCode }

// UnknownRun carries the data of any tool without a dedicated variant.
type UnknownRun struct {
	Tool string
	Data map[string]any
}

func (u UnknownRun) toolName() string { return u.Tool }

// Payload decodes Data into the variant for the tool.
func (t ToolExecution) Payload() (ToolPayload, error) {
	switch t.Tool {
	case ToolRunCode:
		var run CodeRun
		if len(t.Data) > 0 {
			if err := json.Unmarshal(t.Data, &run); err != nil {
				return nil, fmt.Errorf("decode run_code data: %w", err)
			}
		}
		return run, nil
	default:
		u := UnknownRun{Tool: t.Tool}
		if len(t.Data) > 0 {
			if err := json.Unmarshal(t.Data, &u.Data); err != nil {
				return nil, fmt.Errorf("decode %s data: %w", t.Tool, err)
			}
		}
		return u, nil
	}
}

// EffectiveStatus falls back to error/success when the backend omitted a status.
func (t ToolExecution) EffectiveStatus() ToolStatus {
	if t.Status != "" {
		return t.Status
	}
	if t.Error != "" {
		return ToolError
	}
	return ToolSuccess
}

// FindTool returns the first execution record for name.
func FindTool(runs []ToolExecution, name string) (ToolExecution, bool) {
	for _, r := range runs {
		if r.Tool == name {
			return r, true
		}
	}
	return ToolExecution{}, false
}

// LogLines accepts either a JSON string or an array of strings.
type LogLines []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *LogLines) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		if one == "" {
			*l = nil
		} else {
			*l = LogLines{one}
		}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("logs must be a string or list of strings: %w", err)
	}
	*l = many
	return nil
}
