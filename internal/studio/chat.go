package studio

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/ashureev/agent-studio/internal/convlog"
	"github.com/ashureev/agent-studio/internal/domain"
)

// Fixed chat texts.
const (
	EmptyReplyText     = "Agent returned an empty response."
	DefaultCodeMessage = "Execute the provided code snippet in the sandbox."
	SandboxConfirm     = "The sandbox will execute this snippet with your project credentials. Continue?"
	codeEntrypoint     = "agent-studio-code"
	codeRequestedBy    = "agent-studio"
	defaultLanguage    = "python"
)

// ChatOptions tunes one chat send.
type ChatOptions struct {
	// Tools are read-only tool names to run server-side before the model replies.
	Tools []string
}

// ChatReply is a chat result together with the thread it was written to.
type ChatReply struct {
	ThreadKey string
	*domain.ChatResult
}

// target is the agent a request is dispatched to, resolved under the lock.
type target struct {
	key       string
	accountID string
	agentType domain.AgentType
	backend   domain.Backend
	agent     *domain.AgentDefinition
}

func (t target) agentID() string {
	if t.agent == nil {
		return ""
	}
	return t.agent.AgentID
}

// resolveTargetLocked checks the account and custom agent preconditions.
func (s *Studio) resolveTargetLocked() (target, error) {
	if s.accountID == "" {
		return target{}, ErrNoAccount
	}
	t := target{
		key:       s.activeKeyLocked(),
		accountID: s.accountID,
		agentType: s.agentType,
		backend:   s.resolveBackendLocked(),
	}
	if s.agentType == domain.AgentCustom {
		t.agent = s.selectedCustomAgentLocked()
		if t.agent == nil {
			return target{}, ErrNoCustomAgent
		}
	}
	return t, nil
}

// filterTools keeps the order of names and rejects anything not quick-runnable.
func filterTools(names []string, agent *domain.AgentDefinition) ([]string, error) {
	out := make([]string, 0, len(names))
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" || slices.Contains(out, name) {
			continue
		}
		if !domain.IsReadOnlyTool(name) {
			return nil, fmt.Errorf("%w: %s", ErrToolNotAvailable, name)
		}
		if agent != nil && !agent.AllowsTool(name) {
			return nil, fmt.Errorf("%w: %s", ErrToolNotAvailable, name)
		}
		out = append(out, name)
	}
	return out, nil
}

// SendChat runs one chat round-trip against the active agent. The user
// message is appended optimistically and rolled back if the call fails.
func (s *Studio) SendChat(ctx context.Context, text string, opts ChatOptions) (*ChatReply, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, ErrEmptyMessage
	}

	s.mu.Lock()
	t, err := s.resolveTargetLocked()
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	tools, err := filterTools(opts.Tools, t.agent)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if s.busy.Chatting {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	s.busy.Chatting = true
	s.lastError = ""
	if s.activeKeyLocked() == t.key {
		s.toolRuns = nil
	}
	s.mu.Unlock()
	s.publish(Event{Type: EventBusyChanged})
	defer s.setBusy(&s.busy.Chatting, false)

	snapshot := s.threads.Get(t.key)
	userMsg := s.newMessage(domain.RoleUser, trimmed, nil)
	s.appendMessage(ctx, t.key, t.accountID, t.agentID(), userMsg)

	payload := domain.ChatPayload{
		AccountID:    t.accountID,
		AgentType:    t.agentType,
		Message:      trimmed,
		Conversation: domain.Conversation(snapshot),
		Backend:      t.backend,
		AgentID:      t.agentID(),
	}
	chatCtx := map[string]any{}
	if t.agent != nil {
		chatCtx["agentId"] = t.agent.AgentID
	}
	if len(tools) > 0 {
		payload.ToolInvocations = make([]domain.ToolInvocation, 0, len(tools))
		for _, name := range tools {
			payload.ToolInvocations = append(payload.ToolInvocations, domain.ToolInvocation{Name: name, Args: map[string]any{}})
		}
		chatCtx["selectedTools"] = tools
	}
	if len(chatCtx) > 0 {
		payload.Context = chatCtx
	}

	s.logger.Info("agent chat request",
		"thread_key", t.key,
		"account_id", t.accountID,
		"agent_type", t.agentType,
		"backend", t.backend,
		"tools", tools,
		"message_length", len(trimmed))

	result, err := s.backend.AgentChat(ctx, payload)
	if err != nil {
		s.rollbackChat(ctx, t, userMsg.ID, err)
		return nil, err
	}

	reply := result.Reply
	if reply == "" {
		reply = EmptyReplyText
	}
	s.appendMessage(ctx, t.key, t.accountID, t.agentID(), s.newMessage(domain.RoleAssistant, reply, result.Tools))
	s.applyResult(t.key, result)

	if t.agent != nil {
		if _, err := s.loadMemory(ctx, t.agent.AgentID, t.accountID); err != nil {
			s.logger.Warn("failed to refresh agent memory", "agent_id", t.agent.AgentID, "error", err)
		}
	}
	if err := s.refreshFindings(ctx, t.accountID); err != nil {
		s.logger.Warn("failed to refresh findings", "account_id", t.accountID, "error", err)
	}
	return &ChatReply{ThreadKey: t.key, ChatResult: result}, nil
}

// rollbackChat removes the optimistic user message. Entries appended to the
// thread while the request was in flight are kept.
func (s *Studio) rollbackChat(ctx context.Context, t target, userMsgID string, cause error) {
	s.threads.Remove(ctx, t.key, userMsgID)

	s.mu.Lock()
	s.lastError = cause.Error()
	s.mu.Unlock()

	s.logger.Warn("agent chat failed, thread rolled back",
		"thread_key", t.key,
		"error", cause)
	s.convlog.Log(convlog.Event{
		ThreadKey:  t.key,
		AccountID:  t.accountID,
		AgentID:    t.agentID(),
		Channel:    "studio",
		Direction:  "inbound",
		EventType:  convlog.EventChatFailed,
		ContentRaw: cause.Error(),
	})
	s.publish(Event{Type: EventThreadRestored, Key: t.key, Error: cause.Error()})
}

// applyResult updates the visible panels when key is still the active thread.
// A reply for a thread the operator has switched away from is kept in the
// thread only.
func (s *Studio) applyResult(key string, result *domain.ChatResult) {
	s.mu.Lock()
	if s.activeKeyLocked() != key {
		s.mu.Unlock()
		s.logger.Debug("discarding panel update for inactive thread", "thread_key", key)
		return
	}
	s.toolRuns = slices.Clone(result.Tools)
	s.proposedActions = slices.Clone(result.ProposedActions)
	s.lastResponse = result
	s.mu.Unlock()
	s.publish(Event{Type: EventPanelsUpdated, Key: key})
}

// QuickPrompt sends one of the canned prompts by index.
func (s *Studio) QuickPrompt(ctx context.Context, index int) (*ChatReply, error) {
	if index < 0 || index >= len(domain.QuickPrompts) {
		return nil, ErrUnknownQuickPrompt
	}
	return s.SendChat(ctx, domain.QuickPrompts[index].Text, ChatOptions{})
}

// CodeRequest is a sandbox execution request.
type CodeRequest struct {
	Code        string `json:"code"`
	Language    string `json:"language,omitempty"`
	Description string `json:"description,omitempty"`
}

// ConfirmFunc asks the operator to approve prompt.
type ConfirmFunc func(prompt string) bool

// CodeRunResult is the outcome of RunCode.
type CodeRunResult struct {
	Status domain.ToolStatus      `json:"status"`
	Run    domain.CodeRun         `json:"run"`
	Error  string                 `json:"error,omitempty"`
	Reply  string                 `json:"reply,omitempty"`
	Notice string                 `json:"notice,omitempty"`
	Tools  []domain.ToolExecution `json:"tools,omitempty"`
}

// RunCode executes a snippet through the run_code tool of the active custom
// agent. Nothing is appended optimistically; a system notice records the
// outcome on success.
func (s *Studio) RunCode(ctx context.Context, req CodeRequest, confirm ConfirmFunc) (*CodeRunResult, error) {
	s.mu.Lock()
	agent := s.activeCustomAgentLocked()
	if agent == nil || !agent.AllowsTool(domain.ToolRunCode) {
		s.mu.Unlock()
		return nil, ErrCodeExecutionDisabled
	}
	t, err := s.resolveTargetLocked()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Code) == "" {
		return nil, ErrEmptyCode
	}
	if confirm == nil || !confirm(SandboxConfirm) {
		return nil, ErrNotConfirmed
	}
	if !s.setBusy(&s.busy.RunningCode, true) {
		return nil, ErrBusy
	}
	defer s.setBusy(&s.busy.RunningCode, false)

	language := req.Language
	if language == "" {
		language = defaultLanguage
	}
	message := strings.TrimSpace(req.Description)
	if message == "" {
		message = DefaultCodeMessage
	}
	payload := domain.ChatPayload{
		AccountID:    t.accountID,
		AgentType:    t.agentType,
		Message:      message,
		Conversation: domain.Conversation(s.threads.Get(t.key)),
		Context:      map[string]any{"entrypoint": codeEntrypoint, "agentId": t.agentID()},
		ToolInvocations: []domain.ToolInvocation{{
			Name: domain.ToolRunCode,
			Args: map[string]any{
				"code":         req.Code,
				"language":     language,
				"description":  req.Description,
				"requested_by": codeRequestedBy,
			},
		}},
		Backend: t.backend,
		AgentID: t.agentID(),
	}

	s.logger.Info("sandbox execution request",
		"thread_key", t.key,
		"account_id", t.accountID,
		"language", language,
		"code_length", len(req.Code))

	result, err := s.backend.AgentChat(ctx, payload)
	if err != nil {
		s.mu.Lock()
		s.lastError = err.Error()
		s.mu.Unlock()
		s.logger.Warn("sandbox execution failed", "thread_key", t.key, "error", err)
		return nil, err
	}

	out := &CodeRunResult{Status: domain.ToolSuccess, Reply: result.Reply, Tools: result.Tools}
	run, found := domain.FindTool(result.Tools, domain.ToolRunCode)
	if found {
		out.Status = run.EffectiveStatus()
		out.Error = run.Error
		if p, err := run.Payload(); err != nil {
			s.logger.Warn("unreadable run_code data", "error", err)
		} else if cr, ok := p.(domain.CodeRun); ok {
			out.Run = cr
		}
	}

	switch {
	case t.backend == domain.BackendAgentCore:
		out.Notice = "Agentcore sandbox execution completed."
		s.appendNotice(ctx, t.key, out.Notice, result.Tools)
	case found && out.Status == domain.ToolError:
		reason := run.Error
		if reason == "" {
			reason = "see telemetry for details."
		}
		out.Notice = "Sandbox run failed: " + reason
		s.appendNotice(ctx, t.key, out.Notice, []domain.ToolExecution{run})
	case found:
		out.Notice = "Sandbox run completed successfully."
		s.appendNotice(ctx, t.key, out.Notice, []domain.ToolExecution{run})
	}

	s.applyResult(t.key, result)
	if _, err := s.loadMemory(ctx, t.agentID(), t.accountID); err != nil {
		s.logger.Warn("failed to refresh agent memory", "agent_id", t.agentID(), "error", err)
	}
	if err := s.refreshActions(ctx, t.accountID); err != nil {
		s.logger.Warn("failed to refresh actions", "account_id", t.accountID, "error", err)
	}
	return out, nil
}
