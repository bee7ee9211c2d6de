// The download coordinator. It owns the set of in-flight tasks, bounds how
// many run at once, and publishes every state transition on the event bus.
// Workers claim queued episodes in FIFO order; nothing is ever reordered or
// preempted.

package downloader

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tbeaumont/podkeep/internal/events"
	"github.com/tbeaumont/podkeep/internal/library"
	"github.com/tbeaumont/podkeep/internal/models"
	"github.com/tbeaumont/podkeep/internal/store"
)

const (
	queueCapacity    = 1024
	maxRedirects     = 10
	connectTimeout   = 15 * time.Second
	headerTimeout    = 30 * time.Second
	transferTimeout  = 2 * time.Hour // overall budget for one episode
	progressInterval = 500 * time.Millisecond
	chunkSize        = 32 * 1024
)

// TaskHandle identifies an accepted download request.
type TaskHandle struct {
	TaskID          string `json:"task_id"`
	EpisodeID       string `json:"episode_id"`
	DestinationPath string `json:"destination_path"`
}

type task struct {
	model  models.DownloadTask
	ctx    context.Context
	cancel context.CancelFunc
}

// Coordinator accepts download requests and dispatches them to a bounded
// worker pool.
type Coordinator struct {
	store       store.Storage
	bus         *events.Bus
	root        string
	userAgent   string
	concurrency int
	client      *http.Client

	mu       sync.Mutex
	tasks    map[string]*task // in-flight, keyed by episode ID
	queue    chan string      // FIFO of queued episode IDs
	quit     chan struct{}
	shutdown bool
	wg       sync.WaitGroup
}

// New creates a Coordinator. concurrency is clamped to 1..10; call Start to
// launch the worker pool.
func New(st store.Storage, bus *events.Bus, downloadsRoot, userAgent string, concurrency int) *Coordinator {
	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > 10 {
		concurrency = 10
	}
	return &Coordinator{
		store:       st,
		bus:         bus,
		root:        downloadsRoot,
		userAgent:   userAgent,
		concurrency: concurrency,
		client:      newHTTPClient(),
		tasks:       make(map[string]*task),
		queue:       make(chan string, queueCapacity),
		quit:        make(chan struct{}),
	}
}

func newHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   connectTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: headerTimeout,
			IdleConnTimeout:       90 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}
}

// Start launches the worker pool.
func (c *Coordinator) Start() {
	for i := 1; i <= c.concurrency; i++ {
		c.wg.Add(1)
		go c.worker(i)
	}
}

// Enqueue looks the episode up, derives its destination path, and queues a
// download. A second request for an episode already queued or running
// returns ErrAlreadyQueued.
func (c *Coordinator) Enqueue(episodeID string) (*TaskHandle, error) {
	ep, err := c.store.GetEpisode(episodeID)
	if err != nil {
		return nil, fmt.Errorf("episode %s: %w", episodeID, err)
	}
	if ep.EnclosureURL == "" {
		return nil, fmt.Errorf("episode %s has no enclosure URL", episodeID)
	}
	pod, err := c.store.GetPodcast(ep.PodcastID)
	if err != nil {
		return nil, fmt.Errorf("podcast %s: %w", ep.PodcastID, err)
	}

	dest := library.EpisodePath(c.root, pod, ep)
	ctx, cancel := context.WithCancel(context.Background())
	t := &task{
		model: models.DownloadTask{
			ID:              uuid.NewString(),
			EpisodeID:       ep.ID,
			SourceURL:       ep.EnclosureURL,
			DestinationPath: dest,
			State:           models.StateQueued,
			ContentLength:   -1,
			CreatedAt:       time.Now(),
		},
		ctx:    ctx,
		cancel: cancel,
	}

	c.mu.Lock()
	if c.shutdown {
		c.mu.Unlock()
		cancel()
		return nil, ErrShuttingDown
	}
	if _, exists := c.tasks[ep.ID]; exists {
		c.mu.Unlock()
		cancel()
		return nil, ErrAlreadyQueued
	}
	select {
	case c.queue <- ep.ID:
	default:
		c.mu.Unlock()
		cancel()
		return nil, ErrQueueFull
	}
	c.tasks[ep.ID] = t
	snapshot := c.snapshotLocked(t)
	c.mu.Unlock()

	c.bus.Publish(snapshot)
	return &TaskHandle{TaskID: t.model.ID, EpisodeID: ep.ID, DestinationPath: dest}, nil
}

// Cancel stops a queued or running download. Queued tasks are removed before
// any worker claims them; running tasks are signalled cooperatively and
// report Cancelled once the worker observes the signal.
func (c *Coordinator) Cancel(episodeID string) bool {
	c.mu.Lock()
	t, ok := c.tasks[episodeID]
	if !ok {
		c.mu.Unlock()
		return false
	}
	if t.model.State == models.StateQueued {
		t.model.State = models.StateCancelled
		delete(c.tasks, episodeID)
		snapshot := c.snapshotLocked(t)
		c.mu.Unlock()
		t.cancel()
		c.bus.Publish(snapshot)
		return true
	}
	c.mu.Unlock()
	t.cancel()
	return true
}

// Tasks returns a snapshot of every in-flight task.
func (c *Coordinator) Tasks() []models.DownloadTask {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.DownloadTask, 0, len(c.tasks))
	for _, t := range c.tasks {
		out = append(out, t.model)
	}
	return out
}

// Shutdown stops accepting work, cancels running downloads, and waits for
// the workers to drain or ctx to expire.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	if c.shutdown {
		c.mu.Unlock()
		return nil
	}
	c.shutdown = true
	for _, t := range c.tasks {
		t.cancel()
	}
	c.mu.Unlock()
	close(c.quit)

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) worker(id int) {
	defer c.wg.Done()
	for {
		select {
		case <-c.quit:
			return
		case episodeID := <-c.queue:
			c.mu.Lock()
			t, ok := c.tasks[episodeID]
			if !ok || t.model.State != models.StateQueued {
				// Cancelled while queued; already reported.
				c.mu.Unlock()
				continue
			}
			t.model.State = models.StateRunning
			snapshot := c.snapshotLocked(t)
			c.mu.Unlock()
			c.bus.Publish(snapshot)

			dlErr := c.runTask(t)

			c.mu.Lock()
			switch {
			case dlErr == nil:
				t.model.State = models.StateCompleted
			case dlErr.Kind == KindCancelled:
				t.model.State = models.StateCancelled
			default:
				t.model.State = models.StateFailed
				t.model.Error = dlErr.Error()
			}
			snapshot = c.snapshotLocked(t)
			delete(c.tasks, episodeID)
			c.mu.Unlock()
			t.cancel()
			c.bus.Publish(snapshot)
		}
	}
}

// progress records new byte counts on the task and publishes a snapshot.
func (c *Coordinator) progress(t *task, bytes, total int64) {
	c.mu.Lock()
	t.model.BytesDownloaded = bytes
	t.model.ContentLength = total
	snapshot := c.snapshotLocked(t)
	c.mu.Unlock()
	c.bus.Publish(snapshot)
}

// snapshotLocked builds an immutable progress snapshot. Callers hold c.mu.
func (c *Coordinator) snapshotLocked(t *task) models.DownloadProgress {
	return models.DownloadProgress{
		EpisodeID:       t.model.EpisodeID,
		State:           t.model.State,
		BytesDownloaded: t.model.BytesDownloaded,
		ContentLength:   t.model.ContentLength,
		Error:           t.model.Error,
		Timestamp:       time.Now(),
	}
}
