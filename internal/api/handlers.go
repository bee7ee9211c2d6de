package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tbeaumont/podkeep/internal/cleanup"
	"github.com/tbeaumont/podkeep/internal/device"
	"github.com/tbeaumont/podkeep/internal/downloader"
	"github.com/tbeaumont/podkeep/internal/jobs"
	"github.com/tbeaumont/podkeep/internal/models"
	"github.com/tbeaumont/podkeep/internal/store"
)

func (s *Server) handleGetVersion(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, map[string]string{"version": s.app.Version()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.AllPodcasts(); err != nil {
		RespondWithError(w, http.StatusServiceUnavailable, "Store unavailable")
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListPodcasts(w http.ResponseWriter, r *http.Request) {
	podcasts, err := s.store.AllPodcasts()
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to list podcasts")
		return
	}
	RespondWithJSON(w, http.StatusOK, podcasts)
}

func (s *Server) handleListEpisodes(w http.ResponseWriter, r *http.Request) {
	podcastID := chi.URLParam(r, "podcastID")
	if _, err := s.store.GetPodcast(podcastID); err != nil {
		RespondWithError(w, http.StatusNotFound, "Podcast not found")
		return
	}
	episodes, err := s.store.ListEpisodes(podcastID)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to list episodes")
		return
	}
	RespondWithJSON(w, http.StatusOK, episodes)
}

// DownloadRequestPayload is the expected structure for queueing a download.
type DownloadRequestPayload struct {
	EpisodeID string `json:"episode_id"`
}

func (s *Server) handleEnqueueDownload(w http.ResponseWriter, r *http.Request) {
	var payload DownloadRequestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if payload.EpisodeID == "" {
		RespondWithError(w, http.StatusBadRequest, "episode_id is required")
		return
	}

	handle, err := s.app.Downloader().Enqueue(payload.EpisodeID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		RespondWithError(w, http.StatusNotFound, "Episode not found")
		return
	case errors.Is(err, downloader.ErrAlreadyQueued):
		RespondWithError(w, http.StatusConflict, "Episode is already queued or downloading")
		return
	case errors.Is(err, downloader.ErrQueueFull):
		RespondWithError(w, http.StatusServiceUnavailable, "Download queue is full")
		return
	case err != nil:
		RespondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to queue download: %v", err))
		return
	}
	RespondWithJSON(w, http.StatusAccepted, handle)
}

func (s *Server) handleListDownloads(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, s.app.Downloader().Tasks())
}

func (s *Server) handleCancelDownload(w http.ResponseWriter, r *http.Request) {
	episodeID := chi.URLParam(r, "episodeID")
	if !s.app.Downloader().Cancel(episodeID) {
		RespondWithError(w, http.StatusNotFound, "No queued or running download for that episode")
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]string{"status": "cancelling"})
}

// CleanupPayload selects what to delete. Bulk requires an explicit flag; the
// confirmation flow is the caller's responsibility.
type CleanupPayload struct {
	Bulk          bool `json:"bulk"`
	OlderThanDays int  `json:"older_than_days"`
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	var payload CleanupPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if !payload.Bulk && payload.OlderThanDays <= 0 {
		RespondWithError(w, http.StatusBadRequest, "Provide bulk=true or older_than_days > 0")
		return
	}

	policy := models.CleanupPolicy{Bulk: payload.Bulk}
	if payload.OlderThanDays > 0 {
		policy.MaxAge = time.Duration(payload.OlderThanDays) * 24 * time.Hour
	}

	// Hold the single-flight slot so an ad-hoc cleanup never overlaps a
	// sync or a scheduled job on the same downloads tree.
	var report *models.CleanupReport
	err := s.app.JobManager().RunNow("cleanup", func() error {
		var err error
		report, err = cleanup.New(s.store).Clean(policy)
		return err
	})
	switch {
	case errors.Is(err, jobs.ErrBusy):
		RespondWithError(w, http.StatusConflict, "Another maintenance operation is running")
		return
	case err != nil:
		RespondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Cleanup failed: %v", err))
		return
	}
	RespondWithJSON(w, http.StatusOK, report)
}

// SyncPayload describes one device sync request. Path falls back to the
// configured sync.device_path.
type SyncPayload struct {
	Path          string `json:"path"`
	DryRun        bool   `json:"dry_run"`
	DeleteOrphans bool   `json:"delete_orphans"`
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	var payload SyncPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	target := payload.Path
	if target == "" {
		target = s.app.Config().Sync.DevicePath
	}
	if target == "" {
		RespondWithError(w, http.StatusBadRequest, "No sync path given and sync.device_path is not configured")
		return
	}

	var result *models.SyncResult
	err := s.app.JobManager().RunNow("device-sync", func() error {
		var err error
		result, err = device.New(s.store).Sync(r.Context(), target, device.Options{
			DryRun:        payload.DryRun,
			DeleteOrphans: payload.DeleteOrphans,
		})
		return err
	})
	switch {
	case errors.Is(err, jobs.ErrBusy):
		RespondWithError(w, http.StatusConflict, "Another maintenance operation is running")
		return
	case err != nil:
		RespondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Sync failed: %v", err))
		return
	}
	RespondWithJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetJobsStatus(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, s.app.JobManager().GetStatus())
}

func (s *Server) handleRunJob(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := s.app.JobManager().RunJob(payload.Name, s.app); err != nil {
		RespondWithError(w, http.StatusConflict, err.Error())
		return
	}
	RespondWithJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}
