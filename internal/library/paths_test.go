package library

import (
	"path/filepath"
	"testing"

	"github.com/tbeaumont/podkeep/internal/models"
)

func TestEpisodeExt(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://cdn.example.com/ep1.mp3", ".mp3"},
		{"https://cdn.example.com/ep1.M4A?token=abc", ".m4a"},
		{"https://cdn.example.com/ep1.ogg", ".ogg"},
		{"https://cdn.example.com/stream", ".mp3"},
		{"https://cdn.example.com/page.html", ".mp3"},
		{"://not a url", ".mp3"},
	}
	for _, tc := range cases {
		if got := EpisodeExt(tc.url); got != tc.want {
			t.Errorf("EpisodeExt(%q) = %q, want %q", tc.url, got, tc.want)
		}
	}
}

func TestEpisodePath(t *testing.T) {
	pod := &models.Podcast{ID: "pod-1", Title: "Planet: Money?"}
	ep := &models.Episode{
		ID:           "ep-1",
		Title:        "Why / How",
		EnclosureURL: "https://cdn.example.com/e.mp3",
	}

	got := EpisodePath("/data/downloads", pod, ep)
	want := filepath.Join("/data/downloads", "Planet- Money", "Why - How.mp3")
	if got != want {
		t.Errorf("EpisodePath = %q, want %q", got, want)
	}
}

func TestPlaylistRelPath(t *testing.T) {
	pl := &models.Playlist{ID: "pl-1", Name: "Commute"}
	ep := &models.Episode{Title: "Episode One", EnclosureURL: "https://x/e.m4a"}

	got := PlaylistRelPath(pl, 7, ep)
	want := filepath.Join("Playlists", "Commute", "audio", "007-Episode One.m4a")
	if got != want {
		t.Errorf("PlaylistRelPath = %q, want %q", got, want)
	}
}
