package studio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ashureev/agent-studio/internal/domain"
	"github.com/ashureev/agent-studio/internal/session"
	"github.com/ashureev/agent-studio/internal/store"
)

var errBackendDown = errors.New("backend unavailable")

// fakeBackend records calls and returns canned data. Hooks override the
// default responses.
type fakeBackend struct {
	mu sync.Mutex

	chatFn     func(domain.ChatPayload) (*domain.ChatResult, error)
	jobsFn     func(agentID string) ([]domain.TrainingJob, error)
	actionResp *domain.ActionResponse

	agents   []domain.AgentDefinition
	accounts []domain.CloudAccount
	tools    []domain.AgentToolDefinition
	ingest   *domain.IngestResponse

	chats      []domain.ChatPayload
	actionReqs []domain.ActionRequest
	trainReqs  []domain.TrainingRequest
	feedback   []domain.FeedbackExample
	created    []domain.AgentDraft
	memoryFor  []string

	listActionsCalls atomic.Int32
	listJobsCalls    atomic.Int32
}

func (f *fakeBackend) AgentChat(_ context.Context, p domain.ChatPayload) (*domain.ChatResult, error) {
	f.mu.Lock()
	f.chats = append(f.chats, p)
	fn := f.chatFn
	f.mu.Unlock()
	if fn != nil {
		return fn(p)
	}
	return &domain.ChatResult{Reply: "ok"}, nil
}

func (f *fakeBackend) lastChat() domain.ChatPayload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.chats[len(f.chats)-1]
}

func (f *fakeBackend) memoryCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.memoryFor...)
}

func (f *fakeBackend) chatCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.chats)
}

func (f *fakeBackend) TriggerAgentAction(_ context.Context, req domain.ActionRequest) (*domain.ActionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actionReqs = append(f.actionReqs, req)
	if f.actionResp != nil {
		return f.actionResp, nil
	}
	return &domain.ActionResponse{Status: domain.ActionApplied, Message: "done"}, nil
}

func (f *fakeBackend) ListAgents(context.Context) ([]domain.AgentDefinition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.AgentDefinition(nil), f.agents...), nil
}

func (f *fakeBackend) CreateAgent(_ context.Context, d domain.AgentDraft) (*domain.AgentDefinition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, d)
	def := domain.AgentDefinition{
		AgentID:      fmt.Sprintf("agent-%d", len(f.created)),
		Name:         d.Name,
		AllowedTools: d.AllowedTools,
		Backend:      d.Backend,
		Status:       domain.StatusDraft,
		UpdatedAt:    time.Now().UTC().Format(time.RFC3339Nano),
	}
	f.agents = append(f.agents, def)
	return &def, nil
}

func (f *fakeBackend) UpdateAgent(_ context.Context, id string, d domain.AgentDraft) (*domain.AgentDefinition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.agents {
		if f.agents[i].AgentID == id {
			f.agents[i].Name = d.Name
			def := f.agents[i]
			return &def, nil
		}
	}
	return nil, errors.New("agent not found")
}

func (f *fakeBackend) PublishAgent(_ context.Context, id string) (*domain.AgentDefinition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.agents {
		if f.agents[i].AgentID == id {
			f.agents[i].Status = domain.StatusPublished
			f.agents[i].Version++
			def := f.agents[i]
			return &def, nil
		}
	}
	return nil, errors.New("agent not found")
}

func (f *fakeBackend) ListAgentVersions(_ context.Context, id string) ([]domain.AgentVersion, error) {
	return []domain.AgentVersion{{AgentID: id, Version: 1}}, nil
}

func (f *fakeBackend) ListAgentMemory(_ context.Context, agentID, accountID string) ([]domain.AgentMemoryEntry, error) {
	f.mu.Lock()
	f.memoryFor = append(f.memoryFor, agentID)
	f.mu.Unlock()
	return []domain.AgentMemoryEntry{{AgentID: agentID, AccountID: accountID, Role: domain.RoleUser, Content: "hi"}}, nil
}

func (f *fakeBackend) ListAgentTools(context.Context) ([]domain.AgentToolDefinition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tools, nil
}

func (f *fakeBackend) ListTrainingJobs(_ context.Context, agentID string) ([]domain.TrainingJob, error) {
	f.listJobsCalls.Add(1)
	f.mu.Lock()
	fn := f.jobsFn
	f.mu.Unlock()
	if fn != nil {
		return fn(agentID)
	}
	return []domain.TrainingJob{}, nil
}

func (f *fakeBackend) StartTraining(_ context.Context, agentID string, req domain.TrainingRequest) (*domain.TrainingJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trainReqs = append(f.trainReqs, req)
	return &domain.TrainingJob{
		JobID:       "job-1",
		AgentID:     agentID,
		Status:      domain.TrainingQueued,
		Provider:    req.Provider,
		BaseModelID: req.BaseModelID,
	}, nil
}

func (f *fakeBackend) SubmitFeedback(_ context.Context, _ string, ex domain.FeedbackExample) (*domain.SaveFeedbackResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.feedback = append(f.feedback, ex)
	return &domain.SaveFeedbackResponse{Status: "stored", S3Key: "feedback/1.json"}, nil
}

func (f *fakeBackend) ListAccounts(context.Context) ([]domain.CloudAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.accounts, nil
}

func (f *fakeBackend) ListFindings(_ context.Context, accountID string) ([]domain.CloudFinding, error) {
	return []domain.CloudFinding{}, nil
}

func (f *fakeBackend) ListActions(_ context.Context, accountID string) ([]domain.CloudAction, error) {
	f.listActionsCalls.Add(1)
	return []domain.CloudAction{}, nil
}

func (f *fakeBackend) IngestAccount(_ context.Context, req domain.IngestRequest) (*domain.IngestResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ingest != nil {
		return f.ingest, nil
	}
	return &domain.IngestResponse{}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestStudio wires a Studio to fb with an in-memory thread store and a
// deterministic clock and id source.
func newTestStudio(t *testing.T, fb *fakeBackend, opts ...func(*Options)) *Studio {
	t.Helper()
	var seq atomic.Int64
	o := Options{
		Backend:      fb,
		Threads:      session.NewStore(store.NewMemory(), testLogger()),
		Logger:       testLogger(),
		AccountID:    "111122223333",
		PollInterval: time.Hour,
		Now:          func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) },
		NewID:        func() string { return fmt.Sprintf("msg-%d", seq.Add(1)) },
	}
	for _, fn := range opts {
		fn(&o)
	}
	s := New(o)
	t.Cleanup(s.Close)
	return s
}

func customAgent(id string, tools ...string) domain.AgentDefinition {
	return domain.AgentDefinition{
		AgentID:      id,
		Name:         "agent " + id,
		AllowedTools: tools,
		Backend:      domain.BackendLangGraph,
		Status:       domain.StatusDraft,
	}
}

// selectCustom loads fb's roster and activates id.
func selectCustom(t *testing.T, s *Studio, id string) {
	t.Helper()
	ctx := context.Background()
	if _, err := s.LoadCustomAgents(ctx); err != nil {
		t.Fatalf("LoadCustomAgents: %v", err)
	}
	if err := s.SelectCustomAgent(ctx, id); err != nil {
		t.Fatalf("SelectCustomAgent: %v", err)
	}
}
