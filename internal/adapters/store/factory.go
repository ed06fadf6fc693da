package store

import (
	"context"
	"fmt"

	"github.com/hugo-lorenzo-mato/aos-replay/internal/config"
	"github.com/hugo-lorenzo-mato/aos-replay/internal/core"
	"github.com/hugo-lorenzo-mato/aos-replay/internal/logging"
)

// New creates the ArtifactStore selected by cfg.Backend at
// cfg.ResolvedPath().
func New(cfg config.StoreConfig, logger *logging.Logger) (core.ArtifactStore, error) {
	switch cfg.NormalizedBackend() {
	case config.StoreBackendFile:
		return NewFileStore(cfg.ResolvedPath(), logger), nil
	case config.StoreBackendSQLite:
		return NewSQLiteStore(cfg.ResolvedPath(), logger)
	default:
		return nil, core.ErrInvalidArgument("INVALID_STORE_BACKEND",
			fmt.Sprintf("unknown store backend %q", cfg.Backend))
	}
}

// SchemaLoader is implemented by stores that keep the event log schema
// alongside each run.
type SchemaLoader interface {
	LoadSchema(ctx context.Context, runID string) ([]byte, error)
}

// Closeable is an optional interface for stores that need cleanup.
type Closeable interface {
	Close() error
}

// Close closes a store if it implements Closeable.
func Close(s core.ArtifactStore) error {
	if closeable, ok := s.(Closeable); ok {
		return closeable.Close()
	}
	return nil
}
