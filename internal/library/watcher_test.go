package library

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tbeaumont/podkeep/internal/models"
	"github.com/tbeaumont/podkeep/internal/store"
)

func TestWatcherClearsFlagOnExternalDeletion(t *testing.T) {
	root := t.TempDir()
	st, err := store.Open(filepath.Join(t.TempDir(), "podkeep.json"))
	if err != nil {
		t.Fatal(err)
	}

	audioPath := filepath.Join(root, "Some Show", "ep1.mp3")
	if err := os.MkdirAll(filepath.Dir(audioPath), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(audioPath, []byte("audio bytes"), 0644); err != nil {
		t.Fatal(err)
	}

	now := time.Now()
	ep := &models.Episode{
		ID:           "ep-1",
		PodcastID:    "pod-1",
		Title:        "ep1",
		Downloaded:   true,
		DownloadPath: audioPath,
		DownloadSize: 11,
		DownloadedAt: &now,
	}
	if err := st.SaveEpisode(ep); err != nil {
		t.Fatal(err)
	}

	w := NewWatcherService(root, st)
	w.debounceDelay = 50 * time.Millisecond
	if err := w.Start(); err != nil {
		t.Fatalf("watcher failed to start: %v", err)
	}
	defer w.Stop()

	if err := os.Remove(audioPath); err != nil {
		t.Fatal(err)
	}

	// Wait for the debounced reconcile to run.
	deadline := time.After(3 * time.Second)
	for {
		got, err := st.GetEpisode("ep-1")
		if err != nil {
			t.Fatal(err)
		}
		if !got.Downloaded {
			if got.DownloadPath != "" || got.DownloadedAt != nil {
				t.Errorf("download fields not cleared: %+v", got)
			}
			return
		}
		select {
		case <-deadline:
			t.Fatal("watcher did not clear the Downloaded flag in time")
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func TestWatcherIgnoresUnrelatedRemovals(t *testing.T) {
	root := t.TempDir()
	st, err := store.Open(filepath.Join(t.TempDir(), "podkeep.json"))
	if err != nil {
		t.Fatal(err)
	}

	audioPath := filepath.Join(root, "ep1.mp3")
	otherPath := filepath.Join(root, "notes.txt")
	for _, p := range []string{audioPath, otherPath} {
		if err := os.WriteFile(p, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	ep := &models.Episode{ID: "ep-1", Downloaded: true, DownloadPath: audioPath}
	if err := st.SaveEpisode(ep); err != nil {
		t.Fatal(err)
	}

	w := NewWatcherService(root, st)
	w.debounceDelay = 50 * time.Millisecond
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.Remove(otherPath); err != nil {
		t.Fatal(err)
	}

	time.Sleep(300 * time.Millisecond)
	got, err := st.GetEpisode("ep-1")
	if err != nil {
		t.Fatal(err)
	}
	if !got.Downloaded {
		t.Error("unrelated removal cleared the Downloaded flag")
	}
}
