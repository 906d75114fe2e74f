package studio

import (
	"context"
	"slices"
	"sort"
	"strings"

	"github.com/ashureev/agent-studio/internal/domain"
)

// LoadCustomAgents refreshes the roster, newest first. When the roster is
// empty while Custom is active the studio falls back to the Well-Architected
// blueprint on langgraph; when the active agent vanished the first one is
// picked.
func (s *Studio) LoadCustomAgents(ctx context.Context) ([]domain.AgentDefinition, error) {
	defs, err := s.backend.ListAgents(ctx)
	if err != nil {
		return nil, err
	}
	sortAgents(defs)

	s.mu.Lock()
	s.customAgents = defs
	switch {
	case len(defs) == 0:
		s.customAgentID = ""
		if s.agentType == domain.AgentCustom {
			s.agentType = domain.AgentWellArchitected
			s.blueprintBE = domain.BackendLangGraph
			s.clearPanelsLocked()
		}
	case s.selectedCustomAgentLocked() == nil:
		s.customAgentID = defs[0].AgentID
		if s.agentType == domain.AgentCustom {
			s.clearPanelsLocked()
		}
	}
	s.mu.Unlock()

	s.publish(Event{Type: EventSelectionChanged, Key: s.ActiveKey()})
	return slices.Clone(defs), nil
}

func sortAgents(defs []domain.AgentDefinition) {
	sort.SliceStable(defs, func(i, j int) bool {
		return defs[i].LastModified().After(defs[j].LastModified())
	})
}

// CustomAgents returns the loaded roster.
func (s *Studio) CustomAgents() []domain.AgentDefinition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.customAgents)
}

// LoadTools fetches the tool catalog. An empty or failed fetch keeps the
// default catalog.
func (s *Studio) LoadTools(ctx context.Context) []domain.AgentToolDefinition {
	tools, err := s.backend.ListAgentTools(ctx)
	if err != nil {
		s.logger.Warn("failed to load tool catalog, using defaults", "error", err)
	}
	if err != nil || len(tools) == 0 {
		tools = slices.Clone(domain.DefaultToolCatalog)
	}
	s.mu.Lock()
	s.toolCatalog = tools
	s.mu.Unlock()
	return slices.Clone(tools)
}

// SaveAgent creates the agent when draft.AgentID is empty, updates it
// otherwise, and makes it the selected custom agent.
func (s *Studio) SaveAgent(ctx context.Context, draft domain.AgentDraft) (*domain.AgentDefinition, error) {
	draft.Name = strings.TrimSpace(draft.Name)
	if draft.Name == "" {
		return nil, ErrAgentNameRequired
	}
	if draft.Backend != "" && draft.Backend != domain.BackendLangGraph && draft.Backend != domain.BackendAgentCore {
		return nil, ErrInvalidBackend
	}
	if !s.setBusy(&s.busy.Saving, true) {
		return nil, ErrBusy
	}
	defer s.setBusy(&s.busy.Saving, false)

	var (
		saved *domain.AgentDefinition
		err   error
	)
	if draft.AgentID == "" {
		saved, err = s.backend.CreateAgent(ctx, draft)
	} else {
		saved, err = s.backend.UpdateAgent(ctx, draft.AgentID, draft)
	}
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.customAgentID = saved.AgentID
	s.mu.Unlock()
	if _, err := s.LoadCustomAgents(ctx); err != nil {
		s.logger.Warn("failed to reload custom agents", "error", err)
	}
	s.logger.Info("agent saved", "agent_id", saved.AgentID, "created", draft.AgentID == "")
	return saved, nil
}

// PublishAgent promotes the agent's draft to a new version.
func (s *Studio) PublishAgent(ctx context.Context, agentID string) (*domain.AgentDefinition, error) {
	if agentID == "" {
		return nil, ErrNoCustomAgent
	}
	if !s.setBusy(&s.busy.Saving, true) {
		return nil, ErrBusy
	}
	defer s.setBusy(&s.busy.Saving, false)

	def, err := s.backend.PublishAgent(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if _, err := s.LoadCustomAgents(ctx); err != nil {
		s.logger.Warn("failed to reload custom agents", "error", err)
	}
	return def, nil
}

// ListVersions returns the published versions of agentID.
func (s *Studio) ListVersions(ctx context.Context, agentID string) ([]domain.AgentVersion, error) {
	if agentID == "" {
		return nil, ErrNoCustomAgent
	}
	return s.backend.ListAgentVersions(ctx, agentID)
}

// LoadMemory fetches the active custom agent's memory for accountID.
func (s *Studio) LoadMemory(ctx context.Context, accountID string) ([]domain.AgentMemoryEntry, error) {
	s.mu.Lock()
	agent := s.activeCustomAgentLocked()
	if accountID == "" {
		accountID = s.accountID
	}
	s.mu.Unlock()
	if agent == nil {
		return nil, ErrNoCustomAgent
	}
	return s.loadMemory(ctx, agent.AgentID, accountID)
}

// loadMemory fetches memory for agentID. The panel is updated only while
// agentID is still the selected custom agent.
func (s *Studio) loadMemory(ctx context.Context, agentID, accountID string) ([]domain.AgentMemoryEntry, error) {
	if agentID == "" {
		return nil, ErrNoCustomAgent
	}
	if accountID == "" {
		return nil, ErrNoAccount
	}

	entries, err := s.backend.ListAgentMemory(ctx, agentID, accountID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	if s.agentType == domain.AgentCustom && s.customAgentID == agentID {
		s.memory = entries
		s.memoryAccountID = accountID
	}
	s.mu.Unlock()
	s.publish(Event{Type: EventPanelsUpdated})
	return entries, nil
}
