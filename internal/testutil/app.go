// Shared test setup utilities: an App wired onto temp directories, and a
// full API server for integration tests.

package testutil

import (
	"path/filepath"
	"testing"

	"github.com/tbeaumont/podkeep/internal/api"
	"github.com/tbeaumont/podkeep/internal/config"
	"github.com/tbeaumont/podkeep/internal/core"
	"github.com/tbeaumont/podkeep/internal/store"
)

// SetupTestApp builds a core.App over temp directories and starts its
// download workers.
func SetupTestApp(t *testing.T) *core.App {
	t.Helper()

	cfg := &config.Config{}
	cfg.Port = 0
	cfg.Downloads.Path = t.TempDir()
	cfg.Downloads.Concurrency = 3
	cfg.Downloads.UserAgent = "test-agent"
	cfg.Storage.Path = filepath.Join(t.TempDir(), "podkeep.json")

	st, err := store.Open(cfg.Storage.Path)
	if err != nil {
		t.Fatalf("Failed to open test store: %v", err)
	}

	app := core.NewWithDeps(cfg, st)
	app.Downloader().Start()
	t.Cleanup(app.Close)
	return app
}

// SetupTestServer initializes a full core.App and api.Server for integration testing.
func SetupTestServer(t *testing.T) (*api.Server, *core.App) {
	t.Helper()
	app := SetupTestApp(t)
	return api.NewServer(app), app
}
