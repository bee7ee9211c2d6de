// An in-process broadcast bus carrying download progress from workers to
// whoever renders it. Publishing never blocks: each subscriber owns a bounded
// queue that sheds the oldest progress snapshot when full. Terminal events
// are exempt from shedding, so a slow consumer still learns how every
// download ended.

package events

import (
	"sync"

	"github.com/tbeaumont/podkeep/internal/models"
)

type Bus struct {
	mu   sync.Mutex
	subs map[*Subscriber]struct{}
}

func NewBus() *Bus {
	return &Bus{subs: make(map[*Subscriber]struct{})}
}

// Subscribe registers a new consumer. limit bounds how many non-terminal
// snapshots may be buffered before the oldest is shed.
func (b *Bus) Subscribe(limit int) *Subscriber {
	if limit < 1 {
		limit = 1
	}
	s := &Subscriber{
		limit:  limit,
		out:    make(chan models.DownloadProgress),
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go s.pump()

	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()
	return s
}

// Unsubscribe detaches the consumer and closes its event channel.
func (b *Bus) Unsubscribe(s *Subscriber) {
	b.mu.Lock()
	_, ok := b.subs[s]
	delete(b.subs, s)
	b.mu.Unlock()
	if ok {
		s.stop()
	}
}

// Publish fans the snapshot out to every subscriber without ever blocking
// the caller.
func (b *Bus) Publish(p models.DownloadProgress) {
	b.mu.Lock()
	subs := make([]*Subscriber, 0, len(b.subs))
	for s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.Unlock()

	for _, s := range subs {
		s.enqueue(p)
	}
}

// Subscriber drains events from the bus. Read from C until it is closed.
type Subscriber struct {
	mu       sync.Mutex
	queue    []models.DownloadProgress
	limit    int
	out      chan models.DownloadProgress
	notify   chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// C is the channel events are delivered on.
func (s *Subscriber) C() <-chan models.DownloadProgress { return s.out }

func (s *Subscriber) stop() {
	s.stopOnce.Do(func() { close(s.done) })
}

func (s *Subscriber) enqueue(p models.DownloadProgress) {
	s.mu.Lock()
	if len(s.queue) >= s.limit && !p.Terminal() {
		// Shed the oldest non-terminal snapshot to make room. If the
		// queue is all terminal events, drop the incoming snapshot
		// instead; the next one supersedes it anyway.
		shed := false
		for i, q := range s.queue {
			if !q.Terminal() {
				s.queue = append(s.queue[:i], s.queue[i+1:]...)
				shed = true
				break
			}
		}
		if !shed {
			s.mu.Unlock()
			return
		}
	}
	s.queue = append(s.queue, p)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *Subscriber) pump() {
	defer close(s.out)
	for {
		select {
		case <-s.done:
			return
		case <-s.notify:
		}
		for {
			s.mu.Lock()
			if len(s.queue) == 0 {
				s.mu.Unlock()
				break
			}
			p := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()

			select {
			case s.out <- p:
			case <-s.done:
				return
			}
		}
	}
}
