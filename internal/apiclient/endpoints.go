package apiclient

import (
	"context"
	"errors"

	"github.com/ashureev/agent-studio/internal/domain"
)

// AgentChat sends one chat turn.
func (c *Client) AgentChat(ctx context.Context, payload domain.ChatPayload) (*domain.ChatResult, error) {
	env, err := c.post(ctx, "/agent/chat", payload)
	if err != nil {
		return nil, err
	}
	return decodeRequired[domain.ChatResult](env, "agent returned no response")
}

// TriggerAgentAction approves a proposed action.
func (c *Client) TriggerAgentAction(ctx context.Context, req domain.ActionRequest) (*domain.ActionResponse, error) {
	env, err := c.post(ctx, "/agent/action", req)
	if err != nil {
		return nil, err
	}
	return decodeRequired[domain.ActionResponse](env, "action returned no response")
}

// ListAgents returns all custom agent definitions.
func (c *Client) ListAgents(ctx context.Context) ([]domain.AgentDefinition, error) {
	env, err := c.get(ctx, "/agents")
	if err != nil {
		return nil, err
	}
	return decodeList[domain.AgentDefinition](env)
}

// CreateAgent creates a custom agent definition.
func (c *Client) CreateAgent(ctx context.Context, draft domain.AgentDraft) (*domain.AgentDefinition, error) {
	env, err := c.post(ctx, "/agents", draft)
	if err != nil {
		return nil, err
	}
	return decodeRequired[domain.AgentDefinition](env, "failed to create agent")
}

// GetAgent fetches one definition.
func (c *Client) GetAgent(ctx context.Context, agentID string) (*domain.AgentDefinition, error) {
	env, err := c.get(ctx, "/agents/"+pathID(agentID))
	if err != nil {
		return nil, err
	}
	return decodeRequired[domain.AgentDefinition](env, "agent not found")
}

// UpdateAgent replaces the mutable fields of a definition.
func (c *Client) UpdateAgent(ctx context.Context, agentID string, draft domain.AgentDraft) (*domain.AgentDefinition, error) {
	env, err := c.put(ctx, "/agents/"+pathID(agentID), draft)
	if err != nil {
		return nil, err
	}
	return decodeRequired[domain.AgentDefinition](env, "failed to update agent")
}

// PublishAgent promotes the draft to a new published version.
func (c *Client) PublishAgent(ctx context.Context, agentID string) (*domain.AgentDefinition, error) {
	env, err := c.post(ctx, "/agents/"+pathID(agentID)+"/publish", nil)
	if err != nil {
		return nil, err
	}
	return decodeRequired[domain.AgentDefinition](env, "failed to publish agent")
}

// ListAgentVersions returns the published versions of an agent.
func (c *Client) ListAgentVersions(ctx context.Context, agentID string) ([]domain.AgentVersion, error) {
	env, err := c.get(ctx, "/agents/"+pathID(agentID)+"/versions")
	if err != nil {
		return nil, err
	}
	return decodeList[domain.AgentVersion](env)
}

// ListAgentMemory returns the agent's memory log for one account.
func (c *Client) ListAgentMemory(ctx context.Context, agentID, accountID string) ([]domain.AgentMemoryEntry, error) {
	env, err := c.get(ctx, withQuery("/agents/"+pathID(agentID)+"/memory", "accountId", accountID))
	if err != nil {
		return nil, err
	}
	return decodeList[domain.AgentMemoryEntry](env)
}

// ListAgentTools returns the backend tool catalog.
func (c *Client) ListAgentTools(ctx context.Context) ([]domain.AgentToolDefinition, error) {
	env, err := c.get(ctx, "/agents/tools")
	if err != nil {
		return nil, err
	}
	return decodeList[domain.AgentToolDefinition](env)
}

type trainingJobList struct {
	Jobs []domain.TrainingJob `json:"jobs"`
}

type trainingJobEnvelope struct {
	Job *domain.TrainingJob `json:"job"`
}

// ListTrainingJobs returns the training jobs of an agent.
func (c *Client) ListTrainingJobs(ctx context.Context, agentID string) ([]domain.TrainingJob, error) {
	env, err := c.get(ctx, "/agents/"+pathID(agentID)+"/train")
	if err != nil {
		return nil, err
	}
	var list trainingJobList
	if err := env.Decode(&list); err != nil {
		return nil, err
	}
	if list.Jobs == nil {
		return []domain.TrainingJob{}, nil
	}
	return list.Jobs, nil
}

// StartTraining launches a training job.
func (c *Client) StartTraining(ctx context.Context, agentID string, req domain.TrainingRequest) (*domain.TrainingJob, error) {
	env, err := c.post(ctx, "/agents/"+pathID(agentID)+"/train", req)
	if err != nil {
		return nil, err
	}
	wrapped, err := decodeRequired[trainingJobEnvelope](env, "training job did not return a payload")
	if err != nil {
		return nil, err
	}
	if wrapped.Job == nil {
		return nil, errors.New("training job did not return a payload")
	}
	return wrapped.Job, nil
}

// SubmitFeedback stores an input/output example for later training.
func (c *Client) SubmitFeedback(ctx context.Context, agentID string, example domain.FeedbackExample) (*domain.SaveFeedbackResponse, error) {
	env, err := c.post(ctx, "/agents/"+pathID(agentID)+"/wa-feedback", example)
	if err != nil {
		return nil, err
	}
	return decodeRequired[domain.SaveFeedbackResponse](env, "failed to save feedback example")
}

// ListAccounts returns the connected accounts.
func (c *Client) ListAccounts(ctx context.Context) ([]domain.CloudAccount, error) {
	env, err := c.get(ctx, "/accounts")
	if err != nil {
		return nil, err
	}
	return decodeList[domain.CloudAccount](env)
}

// ListFindings returns persisted findings for an account.
func (c *Client) ListFindings(ctx context.Context, accountID string) ([]domain.CloudFinding, error) {
	env, err := c.get(ctx, withQuery("/findings", "accountId", accountID))
	if err != nil {
		return nil, err
	}
	return decodeList[domain.CloudFinding](env)
}

// ListActions returns the action log for an account.
func (c *Client) ListActions(ctx context.Context, accountID string) ([]domain.CloudAction, error) {
	env, err := c.get(ctx, withQuery("/actions", "accountId", accountID))
	if err != nil {
		return nil, err
	}
	return decodeList[domain.CloudAction](env)
}

// IngestAccount captures a resource snapshot.
func (c *Client) IngestAccount(ctx context.Context, req domain.IngestRequest) (*domain.IngestResponse, error) {
	env, err := c.post(ctx, "/ingest", req)
	if err != nil {
		return nil, err
	}
	return decodeRequired[domain.IngestResponse](env, "ingest returned no snapshot")
}

// SubscriptionStatus returns the billing state for a user.
func (c *Client) SubscriptionStatus(ctx context.Context, userID string) (*domain.SubscriptionStatus, error) {
	env, err := c.get(ctx, withQuery("/subscription/status", "userId", userID))
	if err != nil {
		return nil, err
	}
	return decodeRequired[domain.SubscriptionStatus](env, "subscription status unavailable")
}

// CreateCheckoutSession starts a billing checkout for a price.
func (c *Client) CreateCheckoutSession(ctx context.Context, priceID string) (*domain.CheckoutSession, error) {
	env, err := c.post(ctx, "/stripe/checkout", map[string]string{"priceId": priceID})
	if err != nil {
		return nil, err
	}
	return decodeRequired[domain.CheckoutSession](env, "checkout session unavailable")
}
