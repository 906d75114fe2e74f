package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestToolExecutionPayloadRunCode(t *testing.T) {
	t.Parallel()

	var rec ToolExecution
	raw := `{"tool":"run_code","status":"success","data":{"status":"COMPLETED","logs":["a","b"],"completedAt":"2024-05-01T10:00:00Z"}}`
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	p, err := rec.Payload()
	if err != nil {
		t.Fatalf("Payload: %v", err)
	}
	run, ok := p.(CodeRun)
	if !ok {
		t.Fatalf("expected CodeRun, got %T", p)
	}
	if len(run.Logs) != 2 || run.Status != "COMPLETED" {
		t.Errorf("unexpected run: %+v", run)
	}
}

func TestLogLinesAcceptsString(t *testing.T) {
	t.Parallel()

	var run CodeRun
	if err := json.Unmarshal([]byte(`{"logs":"single line"}`), &run); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(run.Logs) != 1 || run.Logs[0] != "single line" {
		t.Errorf("expected one log line, got %v", run.Logs)
	}
}

func TestToolExecutionPayloadUnknown(t *testing.T) {
	t.Parallel()

	rec := ToolExecution{Tool: ToolCostBreakdown, Data: json.RawMessage(`{"total":12.5}`)}
	p, err := rec.Payload()
	if err != nil {
		t.Fatalf("Payload: %v", err)
	}
	u, ok := p.(UnknownRun)
	if !ok {
		t.Fatalf("expected UnknownRun, got %T", p)
	}
	if u.Data["total"] != 12.5 {
		t.Errorf("unexpected data: %v", u.Data)
	}
}

func TestEffectiveStatus(t *testing.T) {
	t.Parallel()

	if got := (ToolExecution{Error: "x"}).EffectiveStatus(); got != ToolError {
		t.Errorf("expected error status, got %q", got)
	}
	if got := (ToolExecution{}).EffectiveStatus(); got != ToolSuccess {
		t.Errorf("expected success status, got %q", got)
	}
	if got := (ToolExecution{Status: ToolPendingConfirmation}).EffectiveStatus(); got != ToolPendingConfirmation {
		t.Errorf("expected explicit status, got %q", got)
	}
}

func TestStoredMessageTimestamp(t *testing.T) {
	t.Parallel()

	ts := time.Date(2024, 5, 1, 10, 0, 0, 123, time.UTC)
	m := Message{ID: "m1", Role: RoleUser, Content: "hi", Timestamp: ts}
	back := FromStored(m.ToStored())
	if !back.Timestamp.Equal(ts) {
		t.Errorf("timestamp mismatch: %v vs %v", back.Timestamp, ts)
	}

	bad := FromStored(StoredMessage{ID: "m2", Role: "user", Timestamp: "yesterday"})
	if !bad.Timestamp.IsZero() {
		t.Errorf("expected zero time for bad timestamp, got %v", bad.Timestamp)
	}
}

func TestLastModifiedFallsBackToCreatedAt(t *testing.T) {
	t.Parallel()

	d := AgentDefinition{CreatedAt: "2024-01-02T00:00:00Z"}
	if d.LastModified().Year() != 2024 {
		t.Errorf("expected createdAt fallback, got %v", d.LastModified())
	}
	d.UpdatedAt = "2024-03-04T00:00:00Z"
	if d.LastModified().Month() != time.March {
		t.Errorf("expected updatedAt, got %v", d.LastModified())
	}
}

func TestTrainingRequestDefaults(t *testing.T) {
	t.Parallel()

	r := TrainingRequest{}.WithDefaults()
	if r.Provider != DefaultTrainingProvider || r.BaseModelID != DefaultBaseModelID {
		t.Errorf("defaults not applied: %+v", r)
	}
}

func TestConversationSendsNoticesAsAssistant(t *testing.T) {
	t.Parallel()

	got := Conversation([]Message{
		{ID: "1", Role: RoleUser, Content: "run it"},
		{ID: "2", Role: RoleSystem, Content: "Sandbox run completed successfully."},
		{ID: "3", Role: RoleAssistant, Content: "Done."},
	})
	want := []ConversationMessage{
		{Role: RoleUser, Content: "run it"},
		{Role: RoleAssistant, Content: "Sandbox run completed successfully."},
		{Role: RoleAssistant, Content: "Done."},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d entries, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}
