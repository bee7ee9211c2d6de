// The data access layer. Callers hold the Storage interface, never the
// concrete JSON store, so tests can substitute their own implementation.

package store

import (
	"errors"

	"github.com/tbeaumont/podkeep/internal/models"
)

var ErrNotFound = errors.New("store: not found")

// Storage is the persistence contract the engine depends on. The
// implementation serializes its own writes; callers never hold it locked
// across I/O-bound work.
type Storage interface {
	SavePodcast(p *models.Podcast) error
	GetPodcast(id string) (*models.Podcast, error)
	AllPodcasts() ([]*models.Podcast, error)

	SaveEpisode(e *models.Episode) error
	GetEpisode(id string) (*models.Episode, error)
	ListEpisodes(podcastID string) ([]*models.Episode, error)
	AllEpisodes() ([]*models.Episode, error)

	SavePlaylist(pl *models.Playlist) error
	AllPlaylists() ([]*models.Playlist, error)
}
