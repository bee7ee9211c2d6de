package store_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tbeaumont/podkeep/internal/models"
	"github.com/tbeaumont/podkeep/internal/store"
)

func newTestStore(t *testing.T) (*store.JSONStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "podkeep.json")
	s, err := store.Open(path)
	if err != nil {
		t.Fatalf("Open() returned an error: %v", err)
	}
	return s, path
}

func TestEpisodeRoundTrip(t *testing.T) {
	s, path := newTestStore(t)

	now := time.Now().Truncate(time.Second)
	ep := &models.Episode{
		ID:           "ep-1",
		PodcastID:    "pod-1",
		Title:        "Episode One",
		EnclosureURL: "https://example.com/ep1.mp3",
		PublishedAt:  now,
	}
	if err := s.SaveEpisode(ep); err != nil {
		t.Fatalf("SaveEpisode failed: %v", err)
	}

	got, err := s.GetEpisode("ep-1")
	if err != nil {
		t.Fatalf("GetEpisode failed: %v", err)
	}
	if got.Title != "Episode One" || got.PodcastID != "pod-1" {
		t.Errorf("unexpected episode: %+v", got)
	}

	// Reopen from disk and verify the record survived.
	s2, err := store.Open(path)
	if err != nil {
		t.Fatalf("reopening store failed: %v", err)
	}
	got, err = s2.GetEpisode("ep-1")
	if err != nil {
		t.Fatalf("GetEpisode after reopen failed: %v", err)
	}
	if !got.PublishedAt.Equal(now) {
		t.Errorf("PublishedAt not preserved: got %v, want %v", got.PublishedAt, now)
	}
}

func TestGetEpisodeNotFound(t *testing.T) {
	s, _ := newTestStore(t)
	if _, err := s.GetEpisode("missing"); err != store.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListEpisodesFiltersByPodcast(t *testing.T) {
	s, _ := newTestStore(t)

	base := time.Now()
	for i, podID := range []string{"pod-a", "pod-a", "pod-b"} {
		ep := &models.Episode{
			ID:          "ep-" + string(rune('1'+i)),
			PodcastID:   podID,
			PublishedAt: base.Add(time.Duration(i) * time.Hour),
		}
		if err := s.SaveEpisode(ep); err != nil {
			t.Fatalf("SaveEpisode failed: %v", err)
		}
	}

	eps, err := s.ListEpisodes("pod-a")
	if err != nil {
		t.Fatalf("ListEpisodes failed: %v", err)
	}
	if len(eps) != 2 {
		t.Fatalf("expected 2 episodes for pod-a, got %d", len(eps))
	}
	// Newest first.
	if eps[0].ID != "ep-2" {
		t.Errorf("expected newest episode first, got %s", eps[0].ID)
	}
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	s, _ := newTestStore(t)

	if err := s.SaveEpisode(&models.Episode{ID: "ep-1", Title: "original"}); err != nil {
		t.Fatalf("SaveEpisode failed: %v", err)
	}
	got, _ := s.GetEpisode("ep-1")
	got.Title = "mutated"

	again, _ := s.GetEpisode("ep-1")
	if again.Title != "original" {
		t.Error("mutating a returned episode leaked into the store")
	}
}

func TestPersistIsAtomic(t *testing.T) {
	s, path := newTestStore(t)

	if err := s.SaveEpisode(&models.Episode{ID: "ep-1"}); err != nil {
		t.Fatalf("SaveEpisode failed: %v", err)
	}
	// No temp file should survive a completed save.
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("store temp file left behind: %v", err)
	}
}

func TestOpenRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "podkeep.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Open(path); err == nil {
		t.Error("expected an error opening a corrupt store file")
	}
}

func TestPlaylistRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)

	pl := &models.Playlist{
		ID:   "pl-1",
		Name: "Morning Commute",
		Items: []models.PlaylistItem{
			{EpisodeID: "ep-1", Position: 1},
			{EpisodeID: "ep-2", Position: 2},
		},
	}
	if err := s.SavePlaylist(pl); err != nil {
		t.Fatalf("SavePlaylist failed: %v", err)
	}

	lists, err := s.AllPlaylists()
	if err != nil {
		t.Fatalf("AllPlaylists failed: %v", err)
	}
	if len(lists) != 1 || len(lists[0].Items) != 2 {
		t.Fatalf("unexpected playlists: %+v", lists)
	}
}
