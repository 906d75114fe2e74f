package studio

import (
	"context"

	"github.com/ashureev/agent-studio/internal/domain"
)

// Backend is the subset of the API client the studio drives.
// *apiclient.Client satisfies it.
type Backend interface {
	AgentChat(ctx context.Context, payload domain.ChatPayload) (*domain.ChatResult, error)
	TriggerAgentAction(ctx context.Context, req domain.ActionRequest) (*domain.ActionResponse, error)

	ListAgents(ctx context.Context) ([]domain.AgentDefinition, error)
	CreateAgent(ctx context.Context, draft domain.AgentDraft) (*domain.AgentDefinition, error)
	UpdateAgent(ctx context.Context, agentID string, draft domain.AgentDraft) (*domain.AgentDefinition, error)
	PublishAgent(ctx context.Context, agentID string) (*domain.AgentDefinition, error)
	ListAgentVersions(ctx context.Context, agentID string) ([]domain.AgentVersion, error)
	ListAgentMemory(ctx context.Context, agentID, accountID string) ([]domain.AgentMemoryEntry, error)
	ListAgentTools(ctx context.Context) ([]domain.AgentToolDefinition, error)

	ListTrainingJobs(ctx context.Context, agentID string) ([]domain.TrainingJob, error)
	StartTraining(ctx context.Context, agentID string, req domain.TrainingRequest) (*domain.TrainingJob, error)
	SubmitFeedback(ctx context.Context, agentID string, example domain.FeedbackExample) (*domain.SaveFeedbackResponse, error)

	ListAccounts(ctx context.Context) ([]domain.CloudAccount, error)
	ListFindings(ctx context.Context, accountID string) ([]domain.CloudFinding, error)
	ListActions(ctx context.Context, accountID string) ([]domain.CloudAction, error)
	IngestAccount(ctx context.Context, req domain.IngestRequest) (*domain.IngestResponse, error)
}
