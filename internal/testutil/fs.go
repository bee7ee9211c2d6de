package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tbeaumont/podkeep/internal/models"
	"github.com/tbeaumont/podkeep/internal/store"
)

// WriteAudioFile creates a file with the given content and returns its path.
func WriteAudioFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
	return path
}

// SeedEpisode stores a podcast and one of its episodes, optionally already
// downloaded to an on-disk file under downloadsDir.
func SeedEpisode(t *testing.T, st store.Storage, downloadsDir, episodeID, enclosureURL string, downloaded bool) *models.Episode {
	t.Helper()
	if err := st.SavePodcast(&models.Podcast{ID: "pod-1", Title: "Test Show", AddedAt: time.Now()}); err != nil {
		t.Fatalf("Failed to save podcast: %v", err)
	}
	ep := &models.Episode{
		ID:           episodeID,
		PodcastID:    "pod-1",
		Title:        "Episode " + episodeID,
		EnclosureURL: enclosureURL,
		PublishedAt:  time.Now(),
	}
	if downloaded {
		path := WriteAudioFile(t, filepath.Join(downloadsDir, "Test Show"), "Episode "+episodeID+".mp3", "audio for "+episodeID)
		now := time.Now()
		info, err := os.Stat(path)
		if err != nil {
			t.Fatal(err)
		}
		ep.Downloaded = true
		ep.DownloadPath = path
		ep.DownloadSize = info.Size()
		ep.DownloadedAt = &now
	}
	if err := st.SaveEpisode(ep); err != nil {
		t.Fatalf("Failed to save episode: %v", err)
	}
	return ep
}
