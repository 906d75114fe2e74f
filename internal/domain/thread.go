package domain

import (
	"time"
)

// Role identifies the author of a conversation entry.
type Role string

const (
	// RoleUser marks operator-authored messages.
	RoleUser Role = "user"
	// RoleAssistant marks agent replies relayed from the backend.
	RoleAssistant Role = "assistant"
	// RoleSystem marks notices synthesized locally (training completion, sandbox runs).
	RoleSystem Role = "system"
)

// Message is one entry of a conversation thread.
type Message struct {
	ID        string
	Role      Role
	Content   string
	Timestamp time.Time
	ToolRuns  []ToolExecution
}

// StoredMessage is a serialized thread entry. Timestamps travel as RFC 3339 strings.
type StoredMessage struct {
	ID        string          `json:"id"`
	Role      string          `json:"role"`
	Content   string          `json:"content"`
	Timestamp string          `json:"timestamp"`
	ToolRuns  []ToolExecution `json:"toolRuns,omitempty"`
}

// ConversationMessage is the {role, content} pair the chat endpoint accepts as history.
type ConversationMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ToStored converts a message to its wire form.
func (m Message) ToStored() StoredMessage {
	return StoredMessage{
		ID:        m.ID,
		Role:      string(m.Role),
		Content:   m.Content,
		Timestamp: m.Timestamp.UTC().Format(time.RFC3339Nano),
		ToolRuns:  m.ToolRuns,
	}
}

// FromStored reconstitutes a message. An unparseable timestamp becomes the zero time.
func FromStored(s StoredMessage) Message {
	ts, err := time.Parse(time.RFC3339Nano, s.Timestamp)
	if err != nil {
		ts = time.Time{}
	}
	return Message{
		ID:        s.ID,
		Role:      Role(s.Role),
		Content:   s.Content,
		Timestamp: ts,
		ToolRuns:  s.ToolRuns,
	}
}

// Conversation projects thread entries into chat history. The backend only
// accepts user and assistant turns, so local notices are sent as assistant.
func Conversation(messages []Message) []ConversationMessage {
	out := make([]ConversationMessage, 0, len(messages))
	for _, m := range messages {
		role := m.Role
		if role != RoleUser {
			role = RoleAssistant
		}
		out = append(out, ConversationMessage{Role: role, Content: m.Content})
	}
	return out
}
