package core

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/tbeaumont/podkeep/internal/cleanup"
	"github.com/tbeaumont/podkeep/internal/config"
	"github.com/tbeaumont/podkeep/internal/device"
	"github.com/tbeaumont/podkeep/internal/downloader"
	"github.com/tbeaumont/podkeep/internal/events"
	"github.com/tbeaumont/podkeep/internal/jobs"
	"github.com/tbeaumont/podkeep/internal/models"
	"github.com/tbeaumont/podkeep/internal/store"
	"github.com/tbeaumont/podkeep/internal/websocket"
)

// App holds the core components of the application that are shared
// between the server and the CLI.
type App struct {
	cfg         *config.Config
	store       store.Storage
	bus         *events.Bus
	wsHub       *websocket.Hub
	jobManager  *jobs.JobManager
	coordinator *downloader.Coordinator
	version     string
}

// New sets up and returns a new App instance. It handles loading the
// configuration and opening the episode store.
func New(version string) (*App, error) {
	// Load configuration from config.yml
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	st, err := store.Open(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	app := NewWithDeps(cfg, st)
	app.version = version
	log.Println("Core application setup complete.")
	return app, nil
}

// NewWithDeps wires an App around an existing config and store. Tests use it
// to substitute their own Storage.
func NewWithDeps(cfg *config.Config, st store.Storage) *App {
	app := &App{
		cfg:   cfg,
		store: st,
		bus:   events.NewBus(),
		wsHub: websocket.NewHub(),
	}
	app.jobManager = jobs.NewManager(app)
	app.jobManager.Register("cleanup", cleanup.Job)
	app.jobManager.Register("device-sync", device.Job)
	app.coordinator = downloader.New(
		st, app.bus, cfg.Downloads.Path, cfg.Downloads.UserAgent, cfg.Downloads.Concurrency)

	go app.wsHub.Run()
	go app.relayProgress()
	return app
}

func (a *App) Config() *config.Config              { return a.cfg }
func (a *App) Store() store.Storage                { return a.store }
func (a *App) Bus() *events.Bus                    { return a.bus }
func (a *App) WsHub() *websocket.Hub               { return a.wsHub }
func (a *App) JobManager() *jobs.JobManager        { return a.jobManager }
func (a *App) Downloader() *downloader.Coordinator { return a.coordinator }
func (a *App) Version() string                     { return a.version }

// relayProgress bridges the in-process event bus onto the websocket hub so
// remote UI clients see the same stream local consumers do.
func (a *App) relayProgress() {
	sub := a.bus.Subscribe(256)
	for p := range sub.C() {
		a.wsHub.BroadcastJSON(toUpdate(p))
	}
}

func toUpdate(p models.DownloadProgress) models.ProgressUpdate {
	percent := 0.0
	if p.ContentLength > 0 {
		percent = float64(p.BytesDownloaded) / float64(p.ContentLength) * 100
	}
	msg := fmt.Sprintf("Downloaded %d bytes", p.BytesDownloaded)
	if p.ContentLength > 0 {
		msg = fmt.Sprintf("Downloaded %d of %d bytes", p.BytesDownloaded, p.ContentLength)
	}
	if p.Error != "" {
		msg = p.Error
	}
	return models.ProgressUpdate{
		JobID:    "downloader",
		Message:  msg,
		Progress: percent,
		ItemID:   p.EpisodeID,
		Status:   p.State.String(),
		Done:     p.Terminal(),
	}
}

// Close gracefully stops the download workers.
func (a *App) Close() {
	if a.coordinator != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.coordinator.Shutdown(ctx); err != nil {
			log.Printf("Downloader shutdown: %v", err)
		}
	}
}
