package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/tbeaumont/podkeep/internal/models"
)

// document is the on-disk shape of the store: one keyed JSON document
// holding every record.
type document struct {
	Podcasts  map[string]*models.Podcast  `json:"podcasts"`
	Episodes  map[string]*models.Episode  `json:"episodes"`
	Playlists map[string]*models.Playlist `json:"playlists"`
}

// JSONStore is the concrete Storage backed by a single JSON file. The whole
// document is held in memory; every mutation rewrites the file atomically
// (write to .tmp, then rename).
type JSONStore struct {
	mu   sync.RWMutex
	path string
	doc  document
}

var _ Storage = (*JSONStore)(nil)

// Open loads the document at path, creating an empty store if the file does
// not exist yet.
func Open(path string) (*JSONStore, error) {
	s := &JSONStore{
		path: path,
		doc: document{
			Podcasts:  make(map[string]*models.Podcast),
			Episodes:  make(map[string]*models.Episode),
			Playlists: make(map[string]*models.Playlist),
		},
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read store file: %w", err)
	}
	if err := json.Unmarshal(data, &s.doc); err != nil {
		return nil, fmt.Errorf("failed to parse store file %s: %w", path, err)
	}
	// Maps may be nil after unmarshaling an older or partial document.
	if s.doc.Podcasts == nil {
		s.doc.Podcasts = make(map[string]*models.Podcast)
	}
	if s.doc.Episodes == nil {
		s.doc.Episodes = make(map[string]*models.Episode)
	}
	if s.doc.Playlists == nil {
		s.doc.Playlists = make(map[string]*models.Playlist)
	}
	return s, nil
}

// Close flushes the document to disk one last time. Mutations already
// persist as they happen, so this mostly guards against a corrupted file
// from an earlier failed write.
func (s *JSONStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persist()
}

// persist writes the current document atomically. Callers must hold mu.
func (s *JSONStore) persist() error {
	data, err := json.MarshalIndent(&s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal store: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write store file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace store file: %w", err)
	}
	return nil
}

func (s *JSONStore) SavePodcast(p *models.Podcast) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.doc.Podcasts[p.ID] = &cp
	return s.persist()
}

func (s *JSONStore) GetPodcast(id string) (*models.Podcast, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.doc.Podcasts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *JSONStore) AllPodcasts() ([]*models.Podcast, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Podcast, 0, len(s.doc.Podcasts))
	for _, p := range s.doc.Podcasts {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func (s *JSONStore) SaveEpisode(e *models.Episode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *e
	s.doc.Episodes[e.ID] = &cp
	return s.persist()
}

func (s *JSONStore) GetEpisode(id string) (*models.Episode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.doc.Episodes[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *JSONStore) ListEpisodes(podcastID string) ([]*models.Episode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Episode
	for _, e := range s.doc.Episodes {
		if e.PodcastID == podcastID {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PublishedAt.After(out[j].PublishedAt) })
	return out, nil
}

func (s *JSONStore) AllEpisodes() ([]*models.Episode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Episode, 0, len(s.doc.Episodes))
	for _, e := range s.doc.Episodes {
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PublishedAt.After(out[j].PublishedAt) })
	return out, nil
}

func (s *JSONStore) SavePlaylist(pl *models.Playlist) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *pl
	cp.Items = append([]models.PlaylistItem(nil), pl.Items...)
	s.doc.Playlists[pl.ID] = &cp
	return s.persist()
}

func (s *JSONStore) AllPlaylists() ([]*models.Playlist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Playlist, 0, len(s.doc.Playlists))
	for _, pl := range s.doc.Playlists {
		cp := *pl
		cp.Items = append([]models.PlaylistItem(nil), pl.Items...)
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
