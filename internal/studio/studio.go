// Package studio orchestrates chat, tool, action and training flows for the
// agent studio on top of the backend API and the session thread store.
package studio

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ashureev/agent-studio/internal/convlog"
	"github.com/ashureev/agent-studio/internal/domain"
	"github.com/ashureev/agent-studio/internal/session"
)

// DefaultPollInterval is the training poll cadence.
const DefaultPollInterval = 10 * time.Second

// Options configures a Studio.
type Options struct {
	Backend         Backend
	Threads         *session.Store
	ConversationLog convlog.Logger
	Logger          *slog.Logger
	// DefaultBackend is used for blueprint agents. Defaults to langgraph.
	DefaultBackend domain.Backend
	// AccountID preselects an account.
	AccountID    string
	PollInterval time.Duration
	Now          func() time.Time
	NewID        func() string
}

// Busy mirrors the per-kind in-flight flags.
type Busy struct {
	Chatting           bool `json:"chatting"`
	RunningCode        bool `json:"runningCode"`
	LaunchingTraining  bool `json:"launchingTraining"`
	TriggeringAction   bool `json:"triggeringAction"`
	Saving             bool `json:"saving"`
	Syncing            bool `json:"syncing"`
	SubmittingFeedback bool `json:"submittingFeedback"`
}

// Studio owns selection, panels and busy flags. Safe for concurrent use;
// network calls are made without holding the lock.
type Studio struct {
	backend Backend
	threads *session.Store
	convlog convlog.Logger
	logger  *slog.Logger
	events  *broker
	poller  *TrainingPoller
	now     func() time.Time
	newID   func() string

	mu sync.Mutex

	accountID     string
	agentType     domain.AgentType
	customAgentID string
	blueprintBE   domain.Backend

	accounts     []domain.CloudAccount
	customAgents []domain.AgentDefinition
	toolCatalog  []domain.AgentToolDefinition

	toolRuns        []domain.ToolExecution
	proposedActions []domain.ProposedAction
	lastResponse    *domain.ChatResult
	lastError       string
	findings        []domain.CloudFinding
	actions         []domain.CloudAction
	memory          []domain.AgentMemoryEntry
	memoryAccountID string
	resourceCounts  map[string]int
	syncSummary     string

	trainingJobs  []domain.TrainingJob
	seenJobStatus map[string]domain.TrainingStatus

	busy Busy
}

// New creates a Studio. Backend and Threads are required.
func New(opts Options) *Studio {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cl := opts.ConversationLog
	if cl == nil {
		cl = convlog.Noop()
	}
	be := opts.DefaultBackend
	if be == "" {
		be = domain.BackendLangGraph
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	s := &Studio{
		backend:       opts.Backend,
		threads:       opts.Threads,
		convlog:       cl,
		logger:        logger,
		events:        newBroker(),
		now:           now,
		newID:         newID,
		accountID:     opts.AccountID,
		agentType:     domain.AgentWellArchitected,
		blueprintBE:   be,
		toolCatalog:   slices.Clone(domain.DefaultToolCatalog),
		seenJobStatus: make(map[string]domain.TrainingStatus),
	}
	s.poller = NewTrainingPoller(interval, s.pollOnce, s.HasActiveTrainingJobs, logger)
	return s
}

// Close stops background polling.
func (s *Studio) Close() {
	s.poller.Stop()
}

// Subscribe returns a channel of events and a cancel function.
func (s *Studio) Subscribe(buffer int) (<-chan Event, func()) {
	return s.events.subscribe(buffer)
}

func (s *Studio) publish(e Event) {
	if e.At.IsZero() {
		e.At = s.now()
	}
	s.events.publish(e)
}

// activeKeyLocked derives the visible thread key.
func (s *Studio) activeKeyLocked() string {
	if s.agentType == domain.AgentCustom && s.customAgentID != "" {
		return session.ThreadKey(s.agentType, s.customAgentID)
	}
	return session.ThreadKey(s.agentType, "")
}

// ActiveKey returns the key of the visible thread.
func (s *Studio) ActiveKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeKeyLocked()
}

// Thread returns the messages of the visible thread.
func (s *Studio) Thread() []domain.Message {
	return s.threads.Get(s.ActiveKey())
}

// ThreadKeys lists every non-empty thread.
func (s *Studio) ThreadKeys() []string {
	return s.threads.Keys()
}

// ThreadFor returns the messages stored under key.
func (s *Studio) ThreadFor(key string) []domain.Message {
	return s.threads.Get(key)
}

// selectedCustomAgentLocked resolves the active custom agent, or nil.
func (s *Studio) selectedCustomAgentLocked() *domain.AgentDefinition {
	if s.customAgentID == "" {
		return nil
	}
	for i := range s.customAgents {
		if s.customAgents[i].AgentID == s.customAgentID {
			a := s.customAgents[i]
			return &a
		}
	}
	return nil
}

// activeCustomAgentLocked returns the custom agent under test when the
// active agent type is Custom.
func (s *Studio) activeCustomAgentLocked() *domain.AgentDefinition {
	if s.agentType != domain.AgentCustom {
		return nil
	}
	return s.selectedCustomAgentLocked()
}

func (s *Studio) clearPanelsLocked() {
	s.toolRuns = nil
	s.proposedActions = nil
	s.lastResponse = nil
}

// SelectAccount makes accountID the account under test and refreshes its
// findings and action log best-effort.
func (s *Studio) SelectAccount(ctx context.Context, accountID string) error {
	if accountID == "" {
		return ErrNoAccount
	}
	s.mu.Lock()
	changed := s.accountID != accountID
	s.accountID = accountID
	s.mu.Unlock()

	if changed {
		s.publish(Event{Type: EventSelectionChanged})
	}
	s.refreshAccountPanels(ctx, accountID)
	return nil
}

// SelectAgentType switches to a blueprint, or to the custom agent roster.
func (s *Studio) SelectAgentType(t domain.AgentType) error {
	if _, err := domain.ParseAgentType(string(t)); err != nil {
		return err
	}
	s.mu.Lock()
	if t == domain.AgentCustom && s.customAgentID == "" && len(s.customAgents) > 0 {
		s.customAgentID = s.customAgents[0].AgentID
	}
	if s.agentType != t {
		s.agentType = t
		s.clearPanelsLocked()
	}
	s.mu.Unlock()

	s.publish(Event{Type: EventSelectionChanged, Key: s.ActiveKey()})
	return nil
}

// SelectCustomAgent activates a custom agent from the roster and loads its
// training jobs and memory best-effort.
func (s *Studio) SelectCustomAgent(ctx context.Context, agentID string) error {
	s.mu.Lock()
	found := false
	for _, a := range s.customAgents {
		if a.AgentID == agentID {
			found = true
			break
		}
	}
	if !found {
		s.mu.Unlock()
		return ErrUnknownAgent
	}
	if s.agentType != domain.AgentCustom || s.customAgentID != agentID {
		s.clearPanelsLocked()
		s.memory = nil
		s.trainingJobs = nil
	}
	s.agentType = domain.AgentCustom
	s.customAgentID = agentID
	accountID := s.accountID
	s.mu.Unlock()

	s.publish(Event{Type: EventSelectionChanged, Key: s.ActiveKey()})

	if err := s.RefreshTrainingJobs(ctx); err != nil {
		s.logger.Warn("failed to load training jobs", "agent_id", agentID, "error", err)
	}
	if accountID != "" {
		if _, err := s.LoadMemory(ctx, accountID); err != nil {
			s.logger.Warn("failed to load agent memory", "agent_id", agentID, "error", err)
		}
	}
	return nil
}

// SelectBackend sets the engine used for blueprint agents.
func (s *Studio) SelectBackend(b domain.Backend) error {
	if b != domain.BackendLangGraph && b != domain.BackendAgentCore {
		return ErrInvalidBackend
	}
	s.mu.Lock()
	s.blueprintBE = b
	s.mu.Unlock()
	s.publish(Event{Type: EventSelectionChanged})
	return nil
}

// ResetChat clears the visible thread and its panels.
func (s *Studio) ResetChat(ctx context.Context) {
	s.mu.Lock()
	key := s.activeKeyLocked()
	s.clearPanelsLocked()
	s.lastError = ""
	s.mu.Unlock()

	s.threads.Clear(ctx, key)
	s.publish(Event{Type: EventThreadCleared, Key: key})
}

// State is a point-in-time view of the studio.
type State struct {
	AccountID       string                       `json:"accountId"`
	AgentType       domain.AgentType             `json:"agentType"`
	CustomAgentID   string                       `json:"customAgentId,omitempty"`
	Backend         domain.Backend               `json:"backend"`
	ThreadKey       string                       `json:"threadKey"`
	Messages        []domain.StoredMessage       `json:"messages"`
	Accounts        []domain.CloudAccount        `json:"accounts"`
	CustomAgents    []domain.AgentDefinition     `json:"customAgents"`
	ToolCatalog     []domain.AgentToolDefinition `json:"toolCatalog"`
	ToolRuns        []domain.ToolExecution       `json:"toolRuns"`
	ProposedActions []domain.ProposedAction      `json:"proposedActions"`
	LastReply       string                       `json:"lastReply,omitempty"`
	LastError       string                       `json:"lastError,omitempty"`
	Findings        []domain.CloudFinding        `json:"findings"`
	Actions         []domain.CloudAction         `json:"actions"`
	Memory          []domain.AgentMemoryEntry    `json:"memory"`
	MemoryAccountID string                       `json:"memoryAccountId,omitempty"`
	TrainingJobs    []domain.TrainingJob         `json:"trainingJobs"`
	ResourceCounts  map[string]int               `json:"resourceCounts,omitempty"`
	SyncSummary     string                       `json:"syncSummary,omitempty"`
	Busy            Busy                         `json:"busy"`
}

// Snapshot returns the current state.
func (s *Studio) Snapshot() State {
	s.mu.Lock()
	st := State{
		AccountID:       s.accountID,
		AgentType:       s.agentType,
		CustomAgentID:   s.customAgentID,
		Backend:         s.resolveBackendLocked(),
		ThreadKey:       s.activeKeyLocked(),
		Accounts:        slices.Clone(s.accounts),
		CustomAgents:    slices.Clone(s.customAgents),
		ToolCatalog:     slices.Clone(s.toolCatalog),
		ToolRuns:        slices.Clone(s.toolRuns),
		ProposedActions: slices.Clone(s.proposedActions),
		LastError:       s.lastError,
		Findings:        slices.Clone(s.findings),
		Actions:         slices.Clone(s.actions),
		Memory:          slices.Clone(s.memory),
		MemoryAccountID: s.memoryAccountID,
		TrainingJobs:    slices.Clone(s.trainingJobs),
		SyncSummary:     s.syncSummary,
		Busy:            s.busy,
	}
	if s.lastResponse != nil {
		st.LastReply = s.lastResponse.Reply
	}
	if s.resourceCounts != nil {
		st.ResourceCounts = make(map[string]int, len(s.resourceCounts))
		for k, v := range s.resourceCounts {
			st.ResourceCounts[k] = v
		}
	}
	s.mu.Unlock()

	for _, m := range s.threads.Get(st.ThreadKey) {
		st.Messages = append(st.Messages, m.ToStored())
	}
	return st
}

// resolveBackendLocked is the custom agent's backend, else the blueprint backend.
func (s *Studio) resolveBackendLocked() domain.Backend {
	if agent := s.activeCustomAgentLocked(); agent != nil && agent.Backend != "" {
		return agent.Backend
	}
	return s.blueprintBE
}

// setBusy flips one busy flag. It returns false when the flag was already set.
func (s *Studio) setBusy(flag *bool, v bool) bool {
	s.mu.Lock()
	if v && *flag {
		s.mu.Unlock()
		return false
	}
	*flag = v
	s.mu.Unlock()
	s.publish(Event{Type: EventBusyChanged})
	return true
}

func (s *Studio) newMessage(role domain.Role, content string, runs []domain.ToolExecution) domain.Message {
	return domain.Message{
		ID:        s.newID(),
		Role:      role,
		Content:   content,
		Timestamp: s.now(),
		ToolRuns:  runs,
	}
}

// appendMessage writes msg to key, publishes it and records it in the
// conversation log.
func (s *Studio) appendMessage(ctx context.Context, key, accountID, agentID string, msg domain.Message) {
	s.threads.Append(ctx, key, msg)
	stored := msg.ToStored()
	s.publish(Event{Type: EventMessageAppended, Key: key, Message: &stored})

	ev := convlog.Event{
		ThreadKey:  key,
		AccountID:  accountID,
		AgentID:    agentID,
		Channel:    "studio",
		ContentRaw: msg.Content,
	}
	switch msg.Role {
	case domain.RoleUser:
		ev.Direction, ev.EventType = "outbound", convlog.EventUserMessage
	case domain.RoleAssistant:
		ev.Direction, ev.EventType = "inbound", convlog.EventAssistantMessage
	default:
		ev.Direction, ev.EventType = "local", convlog.EventSystemNotice
	}
	if len(msg.ToolRuns) > 0 {
		tools := make([]string, 0, len(msg.ToolRuns))
		for _, r := range msg.ToolRuns {
			tools = append(tools, r.Tool)
		}
		ev.Meta = map[string]any{"tools": tools}
	}
	s.convlog.Log(ev)
}

// appendNotice appends a locally synthesized system message.
func (s *Studio) appendNotice(ctx context.Context, key, content string, runs []domain.ToolExecution) {
	s.mu.Lock()
	accountID := s.accountID
	s.mu.Unlock()
	agentID, _ := strings.CutPrefix(key, "custom:")
	if agentID == key {
		agentID = ""
	}
	s.appendMessage(ctx, key, accountID, agentID, s.newMessage(domain.RoleSystem, content, runs))
}
