package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tbeaumont/podkeep/internal/api"
	"github.com/tbeaumont/podkeep/internal/core"
	"github.com/tbeaumont/podkeep/internal/jobs"
	"github.com/tbeaumont/podkeep/internal/library"
)

var version = "dev"

func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Initialize the core application components
	app, err := core.New(version)
	if err != nil {
		log.Fatalf("Fatal error during application setup: %v", err)
	}
	defer app.Close()

	// Start the download worker pool
	app.Downloader().Start()

	// Watch the downloads tree so records stay honest when files are
	// removed behind our back.
	watcher := library.NewWatcherService(app.Config().Downloads.Path, app.Store())
	if err := watcher.Start(); err != nil {
		log.Printf("Warning: could not start downloads watcher: %v", err)
	} else {
		defer watcher.Stop()
	}

	// Apply the configured retention once on startup, then daily.
	if app.Config().Downloads.CleanupAfterDays > 0 {
		if err := app.JobManager().RunJob("cleanup", app); err != nil {
			log.Printf("Warning: startup cleanup could not start: %v", err)
		}
	}
	jobs.StartJobs(app)

	// Setup the API server
	server := api.NewServer(app)
	addr := fmt.Sprintf(":%d", app.Config().Port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: server.Router(),
	}

	// --- Graceful Shutdown ---
	// Start the server in a goroutine so it doesn't block.
	go func() {
		log.Printf("Starting web server on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not start server: %v", err)
		}
	}()

	// Wait for an interrupt signal.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Create a context with a timeout to allow existing connections to finish.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Attempt a graceful shutdown.
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting.")
}
