package domain

// ChatPayload is the request body of the chat endpoint.
type ChatPayload struct {
	AccountID       string                `json:"accountId"`
	AgentType       AgentType             `json:"agentType"`
	Message         string                `json:"message"`
	Context         map[string]any        `json:"context,omitempty"`
	Conversation    []ConversationMessage `json:"conversation"`
	ToolInvocations []ToolInvocation      `json:"toolInvocations,omitempty"`
	Backend         Backend               `json:"backend,omitempty"`
	AgentID         string                `json:"agentId,omitempty"`
}

// ChatResult is the backend's reply to a chat request.
type ChatResult struct {
	Reply           string           `json:"reply"`
	Findings        []map[string]any `json:"findings"`
	ProposedActions []ProposedAction `json:"proposedActions"`
	Tools           []ToolExecution  `json:"tools"`
}
