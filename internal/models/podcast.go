package models

import "time"

// Podcast is a subscribed feed. Feed fetching and parsing live outside this
// service; we only need enough metadata to lay files out on disk.
type Podcast struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	FeedURL     string    `json:"feed_url"`
	Description string    `json:"description,omitempty"`
	AddedAt     time.Time `json:"added_at"`
}

// Episode is a single entry of a podcast feed. The Downloaded* fields are
// owned by the download engine; everything else comes from the feed.
type Episode struct {
	ID           string     `json:"id"`
	PodcastID    string     `json:"podcast_id"`
	Title        string     `json:"title"`
	EnclosureURL string     `json:"enclosure_url"`
	PublishedAt  time.Time  `json:"published_at"`
	Downloaded   bool       `json:"downloaded"`
	DownloadPath string     `json:"download_path,omitempty"`
	DownloadSize int64      `json:"download_size,omitempty"`
	DownloadedAt *time.Time `json:"downloaded_at,omitempty"` // Nullable, set when the transfer completed
}

// Playlist is an ordered selection of episodes. Position is 1-based and
// determines the NNN- prefix used on a sync device.
type Playlist struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Items     []PlaylistItem `json:"items"`
	CreatedAt time.Time      `json:"created_at"`
}

type PlaylistItem struct {
	EpisodeID string `json:"episode_id"`
	Position  int    `json:"position"`
}
