// The device sync engine mirrors the managed subset of downloaded audio onto
// an external target (USB drive, MP3 player). A dry run computes exactly the
// plan a real run would apply, without touching the filesystem.

package device

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tbeaumont/podkeep/internal/models"
	"github.com/tbeaumont/podkeep/internal/store"
)

// copyParallelism bounds concurrent copies; device targets are usually slow
// flash media, more writers just thrash.
const copyParallelism = 4

type Options struct {
	DryRun        bool
	DeleteOrphans bool
}

type Engine struct {
	store store.Storage
}

func New(st store.Storage) *Engine {
	return &Engine{store: st}
}

// Sync computes the plan for targetRoot and, unless opts.DryRun is set,
// applies it. Per-file failures are recorded in the result and never abort
// the remaining actions; only an unusable target root fails the whole run.
func (e *Engine) Sync(ctx context.Context, targetRoot string, opts Options) (*models.SyncResult, error) {
	if targetRoot == "" {
		return nil, fmt.Errorf("sync target path is empty")
	}

	plan, err := e.Plan(targetRoot, opts.DeleteOrphans)
	if err != nil {
		return nil, fmt.Errorf("could not compute sync plan: %w", err)
	}

	result := &models.SyncResult{DryRun: opts.DryRun}
	if opts.DryRun {
		for _, a := range plan.Actions {
			switch a.Op {
			case models.SyncCopy:
				result.Copied++
			case models.SyncSkip:
				result.Skipped++
			case models.SyncDelete:
				result.Deleted++
			}
		}
		return result, nil
	}

	if err := os.MkdirAll(targetRoot, 0755); err != nil {
		return nil, fmt.Errorf("sync target not writable: %w", err)
	}

	var mu sync.Mutex
	record := func(format string, args ...any) {
		mu.Lock()
		result.Errors = append(result.Errors, fmt.Sprintf(format, args...))
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(copyParallelism)
	for _, a := range plan.Actions {
		switch a.Op {
		case models.SyncSkip:
			result.Skipped++
		case models.SyncCopy:
			action := a
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				dst := filepath.Join(targetRoot, action.RelPath)
				if err := copyFile(action.SourcePath, dst); err != nil {
					record("copy %s: %v", action.RelPath, err)
					return nil
				}
				mu.Lock()
				result.Copied++
				mu.Unlock()
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Deletions run after copies so an interrupted sync leaves extra files
	// rather than missing ones.
	for _, a := range plan.Actions {
		if a.Op != models.SyncDelete {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := os.Remove(filepath.Join(targetRoot, a.RelPath)); err != nil {
			record("delete %s: %v", a.RelPath, err)
			continue
		}
		result.Deleted++
	}

	log.Printf("Device sync finished: copied %d, skipped %d, deleted %d, errors %d",
		result.Copied, result.Skipped, result.Deleted, len(result.Errors))
	return result, nil
}

// copyFile writes src to dst atomically: stream into dst.tmp, then rename.
// A reader on the device never observes a half-written file under its final
// name.
func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp := dst + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
