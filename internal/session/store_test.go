package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/agent-studio/internal/domain"
	"github.com/ashureev/agent-studio/internal/store"
)

func msg(id string, role domain.Role, content string) domain.Message {
	return domain.Message{ID: id, Role: role, Content: content, Timestamp: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func TestThreadKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "custom:abc", ThreadKey(domain.AgentCustom, "abc"))
	assert.Equal(t, "custom:abc", ThreadKey(domain.AgentCost, "abc"))
	assert.Equal(t, "blueprint:CostAgent", ThreadKey(domain.AgentCost, ""))
}

func TestAppendLandsOnCapturedKey(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewStore(nil, nil)

	captured := ThreadKey(domain.AgentCost, "")
	// Active selection switches before the late write.
	active := ThreadKey(domain.AgentWellArchitected, "")
	s.Append(ctx, active, msg("0", domain.RoleUser, "other thread"))

	s.Append(ctx, captured, msg("1", domain.RoleAssistant, "late reply"))

	assert.Len(t, s.Get(captured), 1)
	assert.Len(t, s.Get(active), 1)
	assert.Equal(t, "late reply", s.Get(captured)[0].Content)
}

func TestGetReturnsCopy(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewStore(nil, nil)
	s.Append(ctx, "k", msg("1", domain.RoleUser, "hi"))

	got := s.Get("k")
	got[0].Content = "mutated"
	assert.Equal(t, "hi", s.Get("k")[0].Content)
}

func TestRestoreAndClear(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewStore(nil, nil)
	s.Append(ctx, "k", msg("1", domain.RoleUser, "a"))
	snap := s.Get("k")
	s.Append(ctx, "k", msg("2", domain.RoleUser, "b"))

	s.Restore(ctx, "k", snap)
	assert.Equal(t, 1, s.Len("k"))

	s.Clear(ctx, "k")
	assert.Equal(t, 0, s.Len("k"))
	assert.Empty(t, s.Keys())
}

func TestRemoveKeepsLaterEntries(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := store.NewMemory()
	s := NewStore(repo, nil)

	s.Append(ctx, "custom:a1", msg("u1", domain.RoleUser, "question"))
	s.Append(ctx, "custom:a1", msg("n1", domain.RoleSystem, "Training job j1 completed."))

	assert.False(t, s.Remove(ctx, "custom:a1", "missing"))
	assert.True(t, s.Remove(ctx, "custom:a1", "u1"))
	got := s.Get("custom:a1")
	require.Len(t, got, 1)
	assert.Equal(t, "n1", got[0].ID)

	reloaded := NewStore(repo, nil)
	reloaded.Load(ctx)
	assert.Len(t, reloaded.Get("custom:a1"), 1)

	assert.True(t, s.Remove(ctx, "custom:a1", "n1"))
	assert.Empty(t, s.Keys())
}

func TestPersistenceRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := store.NewMemory()

	s := NewStore(repo, nil)
	s.Append(ctx, "blueprint:CostAgent", msg("1", domain.RoleUser, "hi"))
	s.Append(ctx, "custom:a1", msg("2", domain.RoleAssistant, "hello"))

	reloaded := NewStore(repo, nil)
	reloaded.Load(ctx)

	assert.Equal(t, []string{"blueprint:CostAgent", "custom:a1"}, reloaded.Keys())
	got := reloaded.Get("custom:a1")
	require.Len(t, got, 1)
	assert.Equal(t, domain.RoleAssistant, got[0].Role)
	assert.True(t, got[0].Timestamp.Equal(msg("", "", "").Timestamp))
}

func TestLoadCorruptPayloadDegradesToEmpty(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := store.NewMemory()
	require.NoError(t, repo.Put(ctx, StorageKey, []byte("{broken")))

	s := NewStore(repo, nil)
	s.Append(ctx, "k", msg("1", domain.RoleUser, "pre-load"))
	s.Load(ctx)

	assert.Empty(t, s.Keys())
}

func TestLoadMissingPayload(t *testing.T) {
	t.Parallel()
	s := NewStore(store.NewMemory(), nil)
	s.Load(context.Background())
	assert.Empty(t, s.Keys())
}

func TestClosedRepositoryDoesNotFailWrites(t *testing.T) {
	t.Parallel()
	repo := store.NewMemory()
	require.NoError(t, repo.Close())

	s := NewStore(repo, nil)
	s.Append(context.Background(), "k", msg("1", domain.RoleUser, "still kept"))
	assert.Equal(t, 1, s.Len("k"))
}
