package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ashureev/agent-studio/internal/config"
)

func repositories(t *testing.T) map[string]Repository {
	t.Helper()
	dir := t.TempDir()

	sqliteStore, err := NewSQLite(filepath.Join(dir, "db", "studio.db"))
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	fileStore, err := NewFile(filepath.Join(dir, "state", "threads.json"))
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	repos := map[string]Repository{
		"sqlite": sqliteStore,
		"file":   fileStore,
		"memory": NewMemory(),
	}
	t.Cleanup(func() {
		for _, r := range repos {
			_ = r.Close()
		}
	})
	return repos
}

func TestRepositoryPutGetDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			got, err := repo.Get(ctx, "missing")
			if err != nil || got != nil {
				t.Fatalf("expected nil for missing key, got %q err=%v", got, err)
			}

			if err := repo.Put(ctx, "k", []byte(`{"a":1}`)); err != nil {
				t.Fatalf("Put: %v", err)
			}
			if err := repo.Put(ctx, "k", []byte(`{"a":2}`)); err != nil {
				t.Fatalf("Put overwrite: %v", err)
			}
			got, err = repo.Get(ctx, "k")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if string(got) != `{"a":2}` {
				t.Errorf("expected last write to win, got %q", got)
			}

			if err := repo.Delete(ctx, "k"); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if err := repo.Delete(ctx, "k"); err != nil {
				t.Fatalf("Delete missing: %v", err)
			}
			got, _ = repo.Get(ctx, "k")
			if got != nil {
				t.Errorf("expected key removed, got %q", got)
			}

			if err := repo.Ping(ctx); err != nil {
				t.Errorf("Ping: %v", err)
			}
		})
	}
}

func TestRepositoryKeepsNonJSONValues(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			if err := repo.Put(ctx, "raw", []byte("{not json")); err != nil {
				t.Fatalf("Put: %v", err)
			}
			got, err := repo.Get(ctx, "raw")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if string(got) != "{not json" {
				t.Errorf("expected raw value back, got %q", got)
			}
		})
	}
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "studio.db")

	s, err := NewSQLite(path)
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	if err := s.Put(ctx, "cloudops-agent-threads-v1", []byte(`{}`)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s, err = NewSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	got, err := s.Get(ctx, "cloudops-agent-threads-v1")
	if err != nil || string(got) != `{}` {
		t.Fatalf("expected persisted value, got %q err=%v", got, err)
	}
}

func TestFileStoreCorruptFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "threads.json")
	if err := os.WriteFile(path, []byte("garbage"), 0o600); err != nil {
		t.Fatal(err)
	}
	s, err := NewFile(path)
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	if _, err := s.Get(context.Background(), "k"); !errors.Is(err, ErrCorruptState) {
		t.Fatalf("expected ErrCorruptState, got %v", err)
	}
}

func TestFileStoreRecoversFromCorruptFileOnWrite(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "threads.json")
	if err := os.WriteFile(path, []byte("garbage"), 0o600); err != nil {
		t.Fatal(err)
	}
	s, err := NewFile(path)
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}

	if err := s.Put(ctx, "cloudops-agent-threads-v1", []byte(`{"blueprint:CostAgent":[]}`)); err != nil {
		t.Fatalf("Put after corrupt file: %v", err)
	}
	got, err := s.Get(ctx, "cloudops-agent-threads-v1")
	if err != nil || string(got) != `{"blueprint:CostAgent":[]}` {
		t.Fatalf("expected fresh document, got %q err=%v", got, err)
	}
	aside, err := os.ReadFile(path + ".corrupt")
	if err != nil || string(aside) != "garbage" {
		t.Fatalf("expected corrupt file kept aside, got %q err=%v", aside, err)
	}

	if err := os.WriteFile(path, []byte("{broken"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "cloudops-agent-threads-v1"); err != nil {
		t.Fatalf("Delete after corrupt file: %v", err)
	}
	if got, err := s.Get(ctx, "cloudops-agent-threads-v1"); err != nil || got != nil {
		t.Fatalf("expected empty store after recovery, got %q err=%v", got, err)
	}
}

func TestMemoryStoreClosed(t *testing.T) {
	t.Parallel()
	s := NewMemory()
	_ = s.Close()
	if err := s.Put(context.Background(), "k", nil); err != ErrClosed {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestOpenSelectsBackend(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	repo, err := Open(&config.Config{ThreadStore: config.ThreadStoreFile, ThreadsFile: filepath.Join(dir, "t.json")})
	if err != nil {
		t.Fatalf("Open file: %v", err)
	}
	if _, ok := repo.(*FileStore); !ok {
		t.Errorf("expected *FileStore, got %T", repo)
	}

	if _, err := Open(&config.Config{ThreadStore: "redis"}); err == nil {
		t.Error("expected error for unknown store")
	}
}
