package store

import (
	"fmt"

	"github.com/ashureev/agent-studio/internal/config"
)

// Open builds the repository selected by cfg.ThreadStore.
func Open(cfg *config.Config) (Repository, error) {
	switch cfg.ThreadStore {
	case config.ThreadStoreSQLite:
		return NewSQLite(cfg.DBPath)
	case config.ThreadStoreFile:
		return NewFile(cfg.ThreadsFile)
	case config.ThreadStoreMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown thread store %q", cfg.ThreadStore)
	}
}
