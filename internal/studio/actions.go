package studio

import (
	"context"
	"fmt"
	"strings"

	"github.com/ashureev/agent-studio/internal/domain"
)

// IngestSource tags ingests started from the studio.
const IngestSource = "agent-studio"

// ActionOutcome is a successful action trigger.
type ActionOutcome struct {
	ActionID string              `json:"actionId"`
	Mode     domain.ActionMode   `json:"mode"`
	Status   domain.ActionStatus `json:"status"`
	Message  string              `json:"message"`
	PRURL    string              `json:"prUrl,omitempty"`
}

// TriggerAction approves actionID in PR or DIRECT mode for the selected
// account. The action log is refreshed afterwards either way.
func (s *Studio) TriggerAction(ctx context.Context, actionID string, mode domain.ActionMode) (*ActionOutcome, error) {
	actionID = strings.TrimSpace(actionID)
	if actionID == "" {
		return nil, ErrEmptyActionID
	}
	if mode != domain.ModePR && mode != domain.ModeDirect {
		return nil, ErrInvalidActionMode
	}
	s.mu.Lock()
	accountID := s.accountID
	s.mu.Unlock()
	if accountID == "" {
		return nil, ErrNoAccount
	}
	if !s.setBusy(&s.busy.TriggeringAction, true) {
		return nil, ErrBusy
	}
	defer s.setBusy(&s.busy.TriggeringAction, false)

	resp, err := s.backend.TriggerAgentAction(ctx, domain.ActionRequest{
		AccountID: accountID,
		ActionID:  actionID,
		Mode:      mode,
	})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := s.refreshActions(ctx, accountID); err != nil {
			s.logger.Warn("failed to refresh actions", "account_id", accountID, "error", err)
		}
	}()

	if resp.Status == domain.ActionFailed {
		msg := resp.Message
		if msg == "" {
			msg = "action failed"
		}
		return nil, &ActionFailedError{ActionID: actionID, Mode: string(mode), Message: msg}
	}

	out := &ActionOutcome{
		ActionID: actionID,
		Mode:     mode,
		Status:   resp.Status,
		Message:  resp.Message,
	}
	if mode == domain.ModePR {
		out.PRURL = resp.PRURL()
		if out.PRURL != "" {
			s.mu.Lock()
			s.syncSummary = "Latest PR -> " + out.PRURL
			s.mu.Unlock()
		}
	}
	s.logger.Info("action triggered",
		"account_id", accountID,
		"action_id", actionID,
		"mode", mode,
		"status", resp.Status)
	return out, nil
}

// ProposedActions returns the actions suggested by the latest reply.
func (s *Studio) ProposedActions() []domain.ProposedAction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ProposedAction(nil), s.proposedActions...)
}

// LoadAccounts fetches accounts and selects the first one when none is selected.
func (s *Studio) LoadAccounts(ctx context.Context) ([]domain.CloudAccount, error) {
	accounts, err := s.backend.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.accounts = accounts
	selected := ""
	if s.accountID == "" && len(accounts) > 0 {
		s.accountID = accounts[0].AccountID
		selected = s.accountID
	}
	s.mu.Unlock()

	s.publish(Event{Type: EventSelectionChanged})
	if selected != "" {
		s.refreshAccountPanels(ctx, selected)
	}
	return accounts, nil
}

// IngestSummary describes a completed ingest.
type IngestSummary struct {
	AccountID      string         `json:"accountId"`
	SnapshotS3URI  string         `json:"snapshotS3Uri"`
	ResourceCounts map[string]int `json:"resourceCounts"`
	TotalResources int            `json:"totalResources"`
	Summary        string         `json:"summary"`
}

// Ingest snapshots accountID (or the selected account when blank), then
// selects it and refreshes accounts, findings and actions.
func (s *Studio) Ingest(ctx context.Context, accountID string) (*IngestSummary, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		s.mu.Lock()
		accountID = s.accountID
		s.mu.Unlock()
	}
	if accountID == "" {
		return nil, ErrNoAccount
	}
	if !s.setBusy(&s.busy.Syncing, true) {
		return nil, ErrBusy
	}
	defer s.setBusy(&s.busy.Syncing, false)

	resp, err := s.backend.IngestAccount(ctx, domain.IngestRequest{
		AccountID: accountID,
		Metadata:  map[string]string{"source": IngestSource},
	})
	if err != nil {
		return nil, err
	}

	total := 0
	for _, n := range resp.ResourceCounts {
		total += n
	}
	out := &IngestSummary{
		AccountID:      accountID,
		SnapshotS3URI:  resp.SnapshotS3URI,
		ResourceCounts: resp.ResourceCounts,
		TotalResources: total,
		Summary: fmt.Sprintf("Snapshot stored -> %s. %d resources captured across %d services.",
			resp.SnapshotS3URI, total, len(resp.ResourceCounts)),
	}

	s.mu.Lock()
	s.resourceCounts = resp.ResourceCounts
	s.syncSummary = out.Summary
	s.mu.Unlock()

	if _, err := s.LoadAccounts(ctx); err != nil {
		s.logger.Warn("failed to reload accounts", "error", err)
	}
	if err := s.SelectAccount(ctx, accountID); err != nil {
		return nil, err
	}
	s.logger.Info("ingest complete", "account_id", accountID, "resources", total)
	return out, nil
}

// RefreshFindings reloads findings for the selected account.
func (s *Studio) RefreshFindings(ctx context.Context) error {
	s.mu.Lock()
	accountID := s.accountID
	s.mu.Unlock()
	if accountID == "" {
		return ErrNoAccount
	}
	return s.refreshFindings(ctx, accountID)
}

// RefreshActions reloads the action log for the selected account.
func (s *Studio) RefreshActions(ctx context.Context) error {
	s.mu.Lock()
	accountID := s.accountID
	s.mu.Unlock()
	if accountID == "" {
		return ErrNoAccount
	}
	return s.refreshActions(ctx, accountID)
}

func (s *Studio) refreshAccountPanels(ctx context.Context, accountID string) {
	if err := s.refreshFindings(ctx, accountID); err != nil {
		s.logger.Warn("failed to fetch findings", "account_id", accountID, "error", err)
	}
	if err := s.refreshActions(ctx, accountID); err != nil {
		s.logger.Warn("failed to fetch actions", "account_id", accountID, "error", err)
	}
}

func (s *Studio) refreshFindings(ctx context.Context, accountID string) error {
	findings, err := s.backend.ListFindings(ctx, accountID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	if s.accountID == accountID {
		s.findings = findings
	}
	s.mu.Unlock()
	s.publish(Event{Type: EventPanelsUpdated})
	return nil
}

func (s *Studio) refreshActions(ctx context.Context, accountID string) error {
	actions, err := s.backend.ListActions(ctx, accountID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	if s.accountID == accountID {
		s.actions = actions
	}
	s.mu.Unlock()
	s.publish(Event{Type: EventPanelsUpdated})
	return nil
}
