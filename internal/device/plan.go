// Plan computation for device sync. Equality is metadata-based: a file is
// already present when the same relative path exists on the target with the
// same byte size. Portable players live on FAT32/exFAT where hashing the
// whole card on every sync is not workable.

package device

import (
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/tbeaumont/podkeep/internal/library"
	"github.com/tbeaumont/podkeep/internal/models"
)

type localFile struct {
	sourcePath string
	size       int64
}

// Plan enumerates the managed files on both sides and decides, per file,
// whether to copy, skip, or delete. It reads the filesystem but never
// writes.
func (e *Engine) Plan(targetRoot string, deleteOrphans bool) (*models.SyncPlan, error) {
	local, err := e.localFiles()
	if err != nil {
		return nil, err
	}

	plan := &models.SyncPlan{TargetRoot: targetRoot}

	relPaths := make([]string, 0, len(local))
	for rel := range local {
		relPaths = append(relPaths, rel)
	}
	sort.Strings(relPaths)

	for _, rel := range relPaths {
		lf := local[rel]
		targetPath := filepath.Join(targetRoot, rel)
		info, err := os.Stat(targetPath)
		switch {
		case os.IsNotExist(err):
			plan.Actions = append(plan.Actions, models.SyncAction{
				Op: models.SyncCopy, RelPath: rel, SourcePath: lf.sourcePath,
				Size: lf.size, Reason: "missing on target",
			})
		case err != nil:
			plan.Actions = append(plan.Actions, models.SyncAction{
				Op: models.SyncCopy, RelPath: rel, SourcePath: lf.sourcePath,
				Size: lf.size, Reason: "target unreadable",
			})
		case info.Size() != lf.size:
			plan.Actions = append(plan.Actions, models.SyncAction{
				Op: models.SyncCopy, RelPath: rel, SourcePath: lf.sourcePath,
				Size: lf.size, Reason: "size mismatch",
			})
		default:
			plan.Actions = append(plan.Actions, models.SyncAction{
				Op: models.SyncSkip, RelPath: rel, Size: lf.size, Reason: "size match",
			})
		}
	}

	if deleteOrphans {
		orphans, err := targetOrphans(targetRoot, local)
		if err != nil {
			return nil, err
		}
		plan.Actions = append(plan.Actions, orphans...)
	}
	return plan, nil
}

// localFiles maps every managed relative path to its local source. Episodes
// land under Podcasts/, playlist tracks under Playlists/<name>/audio/ with
// an ordering prefix.
func (e *Engine) localFiles() (map[string]localFile, error) {
	out := make(map[string]localFile)

	episodes, err := e.store.AllEpisodes()
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*models.Episode, len(episodes))
	for _, ep := range episodes {
		byID[ep.ID] = ep
		if !ep.Downloaded || ep.DownloadPath == "" {
			continue
		}
		info, err := os.Stat(ep.DownloadPath)
		if err != nil {
			// The record is stale; the watcher will reconcile it.
			log.Printf("Sync: skipping episode %s, local file missing: %s", ep.ID, ep.DownloadPath)
			continue
		}
		pod, err := e.store.GetPodcast(ep.PodcastID)
		if err != nil {
			log.Printf("Sync: skipping episode %s, unknown podcast %s", ep.ID, ep.PodcastID)
			continue
		}
		rel := library.PodcastRelPath(pod, ep)
		out[rel] = localFile{sourcePath: ep.DownloadPath, size: info.Size()}
	}

	playlists, err := e.store.AllPlaylists()
	if err != nil {
		return nil, err
	}
	for _, pl := range playlists {
		for _, item := range pl.Items {
			ep, ok := byID[item.EpisodeID]
			if !ok || !ep.Downloaded || ep.DownloadPath == "" {
				continue
			}
			info, err := os.Stat(ep.DownloadPath)
			if err != nil {
				continue
			}
			rel := library.PlaylistRelPath(pl, item.Position, ep)
			out[rel] = localFile{sourcePath: ep.DownloadPath, size: info.Size()}
		}
	}
	return out, nil
}

// targetOrphans walks the managed subtrees on the device and marks files
// with no local counterpart for deletion. Anything outside Podcasts/ and
// Playlists/*/audio/ is invisible to the sync.
func targetOrphans(targetRoot string, local map[string]localFile) ([]models.SyncAction, error) {
	var roots []string
	roots = append(roots, filepath.Join(targetRoot, library.PodcastsDir))

	playlistsDir := filepath.Join(targetRoot, library.PlaylistsDir)
	entries, err := os.ReadDir(playlistsDir)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			roots = append(roots, filepath.Join(playlistsDir, entry.Name(), "audio"))
		}
	}

	var orphans []models.SyncAction
	for _, root := range roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if os.IsNotExist(err) {
				return filepath.SkipDir
			}
			if err != nil || d.IsDir() {
				return err
			}
			rel, err := filepath.Rel(targetRoot, path)
			if err != nil {
				return err
			}
			if _, ok := local[rel]; !ok {
				orphans = append(orphans, models.SyncAction{
					Op: models.SyncDelete, RelPath: rel, Reason: "orphan",
				})
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Slice(orphans, func(i, j int) bool { return orphans[i].RelPath < orphans[j].RelPath })
	return orphans, nil
}
