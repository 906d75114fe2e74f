// Package domain contains core domain types for the agent studio.
package domain

import (
	"fmt"
	"slices"
	"time"
)

// AgentType names a built-in blueprint, or Custom for user-authored agents.
type AgentType string

const (
	AgentWellArchitected AgentType = "WellArchitectedAgent"
	AgentCost            AgentType = "CostAgent"
	AgentAIWorkflow      AgentType = "AIWorkflowAgent"
	AgentRetrieval       AgentType = "RetrievalAgent"
	AgentCustom          AgentType = "Custom"
)

// ParseAgentType validates a user-supplied agent type.
func ParseAgentType(s string) (AgentType, error) {
	switch t := AgentType(s); t {
	case AgentWellArchitected, AgentCost, AgentAIWorkflow, AgentRetrieval, AgentCustom:
		return t, nil
	}
	return "", fmt.Errorf("unknown agent type %q", s)
}

// Backend is the execution engine behind an agent.
type Backend string

const (
	BackendLangGraph Backend = "langgraph"
	BackendAgentCore Backend = "agentcore"
)

// AgentStatus is the lifecycle state of a custom agent definition.
type AgentStatus string

const (
	StatusDraft     AgentStatus = "draft"
	StatusPublished AgentStatus = "published"
)

// AgentDefinition is a custom agent as stored by the backend.
type AgentDefinition struct {
	AgentID               string      `json:"agentId" yaml:"agentId,omitempty"`
	Name                  string      `json:"name" yaml:"name"`
	Description           string      `json:"description" yaml:"description,omitempty"`
	BasePrompt            string      `json:"basePrompt" yaml:"basePrompt,omitempty"`
	AllowedTools          []string    `json:"allowedTools" yaml:"allowedTools,omitempty"`
	Backend               Backend     `json:"backend" yaml:"backend,omitempty"`
	DirectChangeAllowed   bool        `json:"directChangeAllowed" yaml:"directChangeAllowed,omitempty"`
	RequireApproval       bool        `json:"requireApproval" yaml:"requireApproval,omitempty"`
	Status                AgentStatus `json:"status" yaml:"status,omitempty"`
	Version               int         `json:"version" yaml:"version,omitempty"`
	CreatedAt             string      `json:"createdAt,omitempty" yaml:"createdAt,omitempty"`
	UpdatedAt             string      `json:"updatedAt,omitempty" yaml:"updatedAt,omitempty"`
	AgentcoreAgentID      *string     `json:"agentcoreAgentId,omitempty" yaml:"agentcoreAgentId,omitempty"`
	AgentcoreAgentAliasID *string     `json:"agentcoreAgentAliasId,omitempty" yaml:"agentcoreAgentAliasId,omitempty"`
	ModelEndpoint         *string     `json:"modelEndpoint,omitempty" yaml:"modelEndpoint,omitempty"`
	ModelProvider         *string     `json:"modelProvider,omitempty" yaml:"modelProvider,omitempty"`
	ModelVersion          *string     `json:"modelVersion,omitempty" yaml:"modelVersion,omitempty"`
	ModelStatus           *string     `json:"modelStatus,omitempty" yaml:"modelStatus,omitempty"`
	ModelArtifactURI      *string     `json:"modelArtifactUri,omitempty" yaml:"modelArtifactUri,omitempty"`
}

// AllowsTool reports whether the agent's allowlist contains name.
func (d *AgentDefinition) AllowsTool(name string) bool {
	return d != nil && slices.Contains(d.AllowedTools, name)
}

// LastModified returns updatedAt, falling back to createdAt. Unparseable values sort as zero.
func (d *AgentDefinition) LastModified() time.Time {
	for _, v := range []string{d.UpdatedAt, d.CreatedAt} {
		if v == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

// AgentDraft is the create/update payload for a custom agent.
type AgentDraft struct {
	AgentID               string   `json:"-" yaml:"agentId,omitempty"`
	Name                  string   `json:"name,omitempty" yaml:"name"`
	Description           string   `json:"description,omitempty" yaml:"description,omitempty"`
	BasePrompt            string   `json:"basePrompt,omitempty" yaml:"basePrompt,omitempty"`
	AllowedTools          []string `json:"allowedTools,omitempty" yaml:"allowedTools,omitempty"`
	Backend               Backend  `json:"backend,omitempty" yaml:"backend,omitempty"`
	DirectChangeAllowed   bool     `json:"directChangeAllowed" yaml:"directChangeAllowed,omitempty"`
	RequireApproval       bool     `json:"requireApproval" yaml:"requireApproval,omitempty"`
	AgentcoreAgentID      string   `json:"agentcoreAgentId,omitempty" yaml:"agentcoreAgentId,omitempty"`
	AgentcoreAgentAliasID string   `json:"agentcoreAgentAliasId,omitempty" yaml:"agentcoreAgentAliasId,omitempty"`
}

// AgentVersion is one published snapshot of a definition.
type AgentVersion struct {
	AgentID     string          `json:"agentId"`
	Version     int             `json:"version"`
	PublishedAt string          `json:"publishedAt,omitempty"`
	Definition  AgentDefinition `json:"definition"`
}

// AgentMemoryEntry is one server-held message in an agent's per-account memory.
type AgentMemoryEntry struct {
	AgentID   string         `json:"agentId"`
	AccountID string         `json:"accountId"`
	Role      Role           `json:"role"`
	Content   string         `json:"content"`
	CreatedAt string         `json:"createdAt,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Blueprint describes a built-in agent persona.
type Blueprint struct {
	Type        AgentType `json:"type"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Highlights  []string  `json:"highlights"`
}

// Blueprints is the static catalog of preset agents.
var Blueprints = []Blueprint{
	{
		Type:        AgentWellArchitected,
		Title:       "Well-Architected Advisor",
		Description: "Reliability and security heuristics blended with Bedrock reasoning to uncover observability and hardening gaps.",
		Highlights:  []string{"X-Ray coverage", "Public access scan", "Pillar-aligned guidance"},
	},
	{
		Type:        AgentCost,
		Title:       "FinOps Strategist",
		Description: "FinOps agent combining Cost Explorer signals and heuristics to surface savings, forecast impact, and ship IaC fixes.",
		Highlights:  []string{"Lifecycle gaps", "Idle compute", "Savings planner"},
	},
	{
		Type:        AgentAIWorkflow,
		Title:       "AI Workflow Designer",
		Description: "Maps manual processes into AI-assisted pipelines and scaffolds Bedrock-powered workflows for production teams.",
		Highlights:  []string{"Playbook drafting", "Prompt critique", "Serverless topology"},
	},
}

// FindBlueprint returns the blueprint for t, or nil.
func FindBlueprint(t AgentType) *Blueprint {
	for i := range Blueprints {
		if Blueprints[i].Type == t {
			return &Blueprints[i]
		}
	}
	return nil
}

// QuickPrompt is a canned chat message.
type QuickPrompt struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// QuickPrompts are the shortcut messages offered next to the chat input.
var QuickPrompts = []QuickPrompt{
	{
		Label: "Top WA gaps",
		Text:  "Summarize the three highest-risk Well-Architected gaps for this account and cite the services affected.",
	},
	{
		Label: "Cost opportunity",
		Text:  "Identify one concrete cost-optimization opportunity with estimated monthly savings and an outline of the change.",
	},
	{
		Label: "Ship a fix",
		Text:  "Propose a remediation plan with Terraform-ready detail I can approve immediately. Include rollback guidance.",
	},
}
