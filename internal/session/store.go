// Package session keeps conversation threads keyed by the agent under test
// and persists them through a store.Repository.
package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"slices"
	"sort"
	"sync"

	"github.com/ashureev/agent-studio/internal/domain"
	"github.com/ashureev/agent-studio/internal/store"
)

// StorageKey is the fixed key the thread map is persisted under.
const StorageKey = "cloudops-agent-threads-v1"

// ThreadKey derives the orchestration key for a conversation.
func ThreadKey(agentType domain.AgentType, customAgentID string) string {
	if customAgentID != "" {
		return "custom:" + customAgentID
	}
	return "blueprint:" + string(agentType)
}

// Store owns the key -> thread map. All writes take an explicit key.
type Store struct {
	writeMu sync.Mutex // orders persists so the last write on disk is the latest map
	mu      sync.RWMutex
	threads map[string][]domain.Message
	repo    store.Repository
	logger  *slog.Logger
}

// NewStore creates an empty store. repo may be nil for a non-persistent store.
func NewStore(repo store.Repository, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		threads: make(map[string][]domain.Message),
		repo:    repo,
		logger:  logger,
	}
}

// Load replaces the in-memory map with the persisted one. A missing or
// corrupt payload leaves an empty map and is logged, never returned.
func (s *Store) Load(ctx context.Context) {
	threads := make(map[string][]domain.Message)
	defer func() {
		s.mu.Lock()
		s.threads = threads
		s.mu.Unlock()
	}()

	if s.repo == nil {
		return
	}
	raw, err := s.repo.Get(ctx, StorageKey)
	if err != nil {
		s.logger.Warn("failed to read persisted threads", "error", err)
		return
	}
	if len(raw) == 0 {
		return
	}

	var stored map[string][]domain.StoredMessage
	if err := json.Unmarshal(raw, &stored); err != nil {
		s.logger.Warn("discarding corrupt persisted threads", "error", err)
		return
	}
	for key, msgs := range stored {
		thread := make([]domain.Message, 0, len(msgs))
		for _, m := range msgs {
			thread = append(thread, domain.FromStored(m))
		}
		threads[key] = thread
	}
	s.logger.Debug("loaded persisted threads", "threads", len(threads))
}

// Get returns a copy of the thread for key.
func (s *Store) Get(key string) []domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.threads[key])
}

// Len returns the number of messages in the thread for key.
func (s *Store) Len(key string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.threads[key])
}

// Keys returns every key holding a non-empty thread, sorted.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.threads))
	for k, v := range s.threads {
		if len(v) > 0 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Append adds msg to the thread for key and persists.
func (s *Store) Append(ctx context.Context, key string, msg domain.Message) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.threads[key] = append(s.threads[key], msg)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()
	s.persist(ctx, snapshot)
}

// Restore replaces the thread for key with a previously taken snapshot.
func (s *Store) Restore(ctx context.Context, key string, snapshot []domain.Message) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if len(snapshot) == 0 {
		delete(s.threads, key)
	} else {
		s.threads[key] = slices.Clone(snapshot)
	}
	all := s.snapshotLocked()
	s.mu.Unlock()
	s.persist(ctx, all)
}

// Remove deletes the message with id from the thread for key. It reports
// whether a message was removed.
func (s *Store) Remove(ctx context.Context, key, id string) bool {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	thread := s.threads[key]
	idx := slices.IndexFunc(thread, func(m domain.Message) bool { return m.ID == id })
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	thread = slices.Delete(slices.Clone(thread), idx, idx+1)
	if len(thread) == 0 {
		delete(s.threads, key)
	} else {
		s.threads[key] = thread
	}
	all := s.snapshotLocked()
	s.mu.Unlock()
	s.persist(ctx, all)
	return true
}

// Clear removes the thread for key.
func (s *Store) Clear(ctx context.Context, key string) {
	s.Restore(ctx, key, nil)
}

func (s *Store) snapshotLocked() map[string][]domain.StoredMessage {
	out := make(map[string][]domain.StoredMessage, len(s.threads))
	for key, msgs := range s.threads {
		stored := make([]domain.StoredMessage, 0, len(msgs))
		for _, m := range msgs {
			stored = append(stored, m.ToStored())
		}
		out[key] = stored
	}
	return out
}

func (s *Store) persist(ctx context.Context, snapshot map[string][]domain.StoredMessage) {
	if s.repo == nil {
		return
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		s.logger.Warn("failed to encode threads", "error", err)
		return
	}
	if err := s.repo.Put(context.WithoutCancel(ctx), StorageKey, data); err != nil {
		s.logger.Warn("failed to persist threads", "error", err)
	}
}
