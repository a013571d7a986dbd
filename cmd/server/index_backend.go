package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"tilegen.ai/internal/generator"
	"tilegen.ai/internal/persistence/indexdb"
	"tilegen.ai/internal/preset"
)

type runtimeIndex interface {
	generator.RunSink
	Close() error
	UpsertPreset(p preset.Preset) error
	RecentRuns(ctx context.Context, limit int) ([]indexdb.RunRow, error)
}

func openRuntimeIndex(dataDir string, disableDB bool) (runtimeIndex, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("TG_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		return indexdb.OpenSQLite(filepath.Join(dataDir, "index", "runs.sqlite"))
	default:
		return nil, fmt.Errorf("unsupported TG_INDEX_BACKEND: %s", backend)
	}
}
