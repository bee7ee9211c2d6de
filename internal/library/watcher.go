// This file implements a file system watcher for the downloads directory.
// It uses OS-level file system events to notice when downloaded audio is
// deleted out-of-band (file manager, another program) and reconciles the
// episode records so the store never claims a file that is gone.

package library

import (
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tbeaumont/podkeep/internal/store"
)

// WatcherService watches the downloads directory and clears the Downloaded
// flag of episodes whose files disappear.
type WatcherService struct {
	root          string
	store         store.Storage
	watcher       *fsnotify.Watcher
	removedPaths  map[string]bool
	mu            sync.Mutex
	debounceTimer *time.Timer
	debounceDelay time.Duration
	stopChan      chan struct{}
}

// NewWatcherService creates a new file system watcher over the downloads
// root.
func NewWatcherService(root string, st store.Storage) *WatcherService {
	return &WatcherService{
		root:          root,
		store:         st,
		removedPaths:  make(map[string]bool),
		debounceDelay: 2 * time.Second, // Wait 2 seconds after last change before reconciling
		stopChan:      make(chan struct{}),
	}
}

// Start begins watching the downloads directory for changes.
func (w *WatcherService) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.watcher = watcher

	if err := os.MkdirAll(w.root, 0755); err != nil {
		watcher.Close()
		return err
	}

	// Watch the downloads root recursively. Files are watched via their
	// parent directory.
	err = filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		watcher.Close()
		return err
	}

	log.Printf("File watcher started for downloads: %s", w.root)

	go w.processEvents()
	return nil
}

// Stop stops the file watcher service.
func (w *WatcherService) Stop() error {
	close(w.stopChan)
	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}

func (w *WatcherService) processEvents() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("File watcher error: %v", err)

		case <-w.stopChan:
			return
		}
	}
}

func (w *WatcherService) handleEvent(event fsnotify.Event) {
	// New directories must be added to the watch list so episode folders
	// created after startup are covered.
	if event.Op&fsnotify.Create == fsnotify.Create {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			w.watcher.Add(event.Name)
		}
		return
	}

	if event.Op&fsnotify.Remove != fsnotify.Remove && event.Op&fsnotify.Rename != fsnotify.Rename {
		return
	}
	// Renames of our own temp files during an atomic write fire Rename
	// events for the .tmp name; those never match a recorded download path,
	// so reconcile skips them.
	w.mu.Lock()
	w.removedPaths[event.Name] = true
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounceDelay, w.reconcile)
	w.mu.Unlock()
}

// reconcile flips the Downloaded flag for every episode whose file went
// missing.
func (w *WatcherService) reconcile() {
	w.mu.Lock()
	if len(w.removedPaths) == 0 {
		w.mu.Unlock()
		return
	}
	removed := make(map[string]bool, len(w.removedPaths))
	for p := range w.removedPaths {
		removed[p] = true
	}
	w.removedPaths = make(map[string]bool)
	w.mu.Unlock()

	episodes, err := w.store.AllEpisodes()
	if err != nil {
		log.Printf("Watcher reconcile could not list episodes: %v", err)
		return
	}

	for _, ep := range episodes {
		if !ep.Downloaded || ep.DownloadPath == "" || !removed[ep.DownloadPath] {
			continue
		}
		// The event may be stale if the file was recreated meanwhile.
		if _, err := os.Stat(ep.DownloadPath); err == nil {
			continue
		}
		ep.Downloaded = false
		ep.DownloadPath = ""
		ep.DownloadSize = 0
		ep.DownloadedAt = nil
		if err := w.store.SaveEpisode(ep); err != nil {
			log.Printf("Watcher could not update episode %s: %v", ep.ID, err)
			continue
		}
		log.Printf("Downloaded file removed externally, cleared flag for episode %s", ep.ID)
	}
}
