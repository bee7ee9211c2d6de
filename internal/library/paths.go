// Helpers for the on-disk layout of downloaded audio:
//
//	downloads/<podcast-name>/<sanitized-episode-name>.<ext>
//
// and the corresponding layout under a sync device root.

package library

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/tbeaumont/podkeep/internal/models"
	"github.com/tbeaumont/podkeep/internal/util"
)

const defaultExt = ".mp3"

// PodcastsDir and PlaylistsDir are the two managed subtrees under a sync
// device root. Nothing outside them is ever touched on the device.
const (
	PodcastsDir  = "Podcasts"
	PlaylistsDir = "Playlists"
)

// EpisodeExt extracts the audio file extension from an enclosure URL,
// falling back to .mp3 when the URL carries none.
func EpisodeExt(enclosureURL string) string {
	u, err := url.Parse(enclosureURL)
	if err != nil {
		return defaultExt
	}
	ext := strings.ToLower(path.Ext(u.Path))
	switch ext {
	case ".mp3", ".m4a", ".m4b", ".aac", ".ogg", ".opus", ".flac", ".wav":
		return ext
	}
	return defaultExt
}

// EpisodeFilename is the sanitized file name an episode is stored under.
func EpisodeFilename(ep *models.Episode) string {
	return util.SanitizeName(ep.Title) + EpisodeExt(ep.EnclosureURL)
}

// EpisodePath is the final local path for an episode's audio, rooted at the
// configured downloads directory.
func EpisodePath(downloadsRoot string, podcast *models.Podcast, ep *models.Episode) string {
	return filepath.Join(downloadsRoot, util.SanitizeName(podcast.Title), EpisodeFilename(ep))
}

// PodcastRelPath is the episode's path relative to a sync device root.
func PodcastRelPath(podcast *models.Podcast, ep *models.Episode) string {
	return filepath.Join(PodcastsDir, util.SanitizeName(podcast.Title), EpisodeFilename(ep))
}

// PlaylistRelPath is the path of a playlist track relative to a sync device
// root. Position determines the NNN- prefix so players that sort by name
// play the list in order.
func PlaylistRelPath(pl *models.Playlist, position int, ep *models.Episode) string {
	name := fmt.Sprintf("%03d-%s", position, EpisodeFilename(ep))
	return filepath.Join(PlaylistsDir, util.SanitizeName(pl.Name), "audio", name)
}
