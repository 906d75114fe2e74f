package domain

import "fmt"

// Risk grades a proposed action or a finding.
type Risk string

const (
	RiskLow    Risk = "LOW"
	RiskMedium Risk = "MEDIUM"
	RiskHigh   Risk = "HIGH"
)

// ProposedChange is one concrete patch inside a proposed action.
type ProposedChange struct {
	Type   string `json:"type"` // terraform_patch | config_patch | direct_change
	Target string `json:"target"`
	Patch  string `json:"patch"`
}

// ProposedAction is a remediation suggestion surfaced by a chat result.
type ProposedAction struct {
	ID                   string           `json:"id"`
	Kind                 string           `json:"kind"` // terraform_pr | config_pr | direct_change
	Title                string           `json:"title"`
	Rationale            string           `json:"rationale"`
	ImpactedResources    []string         `json:"impactedResources"`
	Changes              []ProposedChange `json:"changes"`
	Risk                 Risk             `json:"risk"`
	Rollback             string           `json:"rollback"`
	EstCostDeltaUSDMonth float64          `json:"estCostDeltaUsdMonth"`
}

// ActionMode selects how an approved action is executed.
type ActionMode string

const (
	ModePR     ActionMode = "PR"
	ModeDirect ActionMode = "DIRECT"
	ModeCode   ActionMode = "CODE"
)

// ParseActionMode accepts PR or DIRECT in any case.
func ParseActionMode(s string) (ActionMode, error) {
	switch s {
	case "PR", "pr":
		return ModePR, nil
	case "DIRECT", "direct":
		return ModeDirect, nil
	}
	return "", fmt.Errorf("action mode must be PR or DIRECT, got %q", s)
}

// ActionStatus is the state of an action in the log.
type ActionStatus string

const (
	ActionCreated   ActionStatus = "CREATED"
	ActionApplied   ActionStatus = "APPLIED"
	ActionFailed    ActionStatus = "FAILED"
	ActionCompleted ActionStatus = "COMPLETED"
)

// ActionRequest approves a proposed action.
type ActionRequest struct {
	AccountID string            `json:"accountId"`
	ActionID  string            `json:"actionId"`
	Mode      ActionMode        `json:"mode"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// ActionResponse is the backend's answer to an ActionRequest.
type ActionResponse struct {
	Status  ActionStatus   `json:"status"`
	Message string         `json:"message"`
	Details map[string]any `json:"details"`
}

// PRURL returns details.prUrl when it is a string.
func (r *ActionResponse) PRURL() string {
	if r == nil || r.Details == nil {
		return ""
	}
	if s, ok := r.Details["prUrl"].(string); ok {
		return s
	}
	return ""
}

// CloudAction is an entry of the per-account action log.
type CloudAction struct {
	AccountID string         `json:"account_id"`
	ActionID  string         `json:"action_id"`
	Mode      ActionMode     `json:"mode"`
	Status    ActionStatus   `json:"status"`
	Details   map[string]any `json:"details"`
	CreatedAt string         `json:"created_at,omitempty"`
	UpdatedAt string         `json:"updated_at,omitempty"`
}

// CloudFinding is a persisted finding for an account.
type CloudFinding struct {
	AccountID       string           `json:"account_id"`
	FindingID       string           `json:"finding_id"`
	AgentType       AgentType        `json:"agent_type"`
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	Severity        Risk             `json:"severity"`
	ProposedActions []ProposedAction `json:"proposed_actions"`
	CreatedAt       string           `json:"created_at,omitempty"`
	UpdatedAt       string           `json:"updated_at,omitempty"`
}
