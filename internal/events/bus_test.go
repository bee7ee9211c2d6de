package events

import (
	"testing"
	"time"

	"github.com/tbeaumont/podkeep/internal/models"
)

func snapshot(episodeID string, state models.DownloadState, bytes int64) models.DownloadProgress {
	return models.DownloadProgress{
		EpisodeID:       episodeID,
		State:           state,
		BytesDownloaded: bytes,
		ContentLength:   -1,
		Timestamp:       time.Now(),
	}
}

func TestBusDeliversToSubscriber(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(8)
	defer bus.Unsubscribe(sub)

	bus.Publish(snapshot("ep-1", models.StateRunning, 100))

	select {
	case p := <-sub.C():
		if p.EpisodeID != "ep-1" || p.BytesDownloaded != 100 {
			t.Errorf("unexpected event: %+v", p)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive event in time")
	}
}

func TestPublishNeverBlocksWithoutConsumer(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(2)
	defer bus.Unsubscribe(sub)

	// Nobody reads sub.C(). A flood of snapshots must not stall the
	// publisher.
	doneCh := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			bus.Publish(snapshot("ep-1", models.StateRunning, int64(i)))
		}
		close(doneCh)
	}()

	select {
	case <-doneCh:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow consumer")
	}
}

func TestTerminalEventsSurviveShedding(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(1)
	defer bus.Unsubscribe(sub)

	// Overflow the queue with progress, then finish three downloads.
	for i := 0; i < 50; i++ {
		bus.Publish(snapshot("ep-1", models.StateRunning, int64(i)))
	}
	for _, id := range []string{"ep-1", "ep-2", "ep-3"} {
		bus.Publish(snapshot(id, models.StateCompleted, 50))
	}

	got := make(map[string]bool)
	deadline := time.After(2 * time.Second)
	for len(got) < 3 {
		select {
		case p := <-sub.C():
			if p.State == models.StateCompleted {
				got[p.EpisodeID] = true
			}
		case <-deadline:
			t.Fatalf("missing terminal events, received %v", got)
		}
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(4)
	bus.Unsubscribe(sub)

	select {
	case _, ok := <-sub.C():
		if ok {
			t.Error("expected closed channel after Unsubscribe")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after Unsubscribe")
	}

	// Publishing after unsubscribe must not panic or block.
	bus.Publish(snapshot("ep-1", models.StateRunning, 1))
}

func TestMultipleSubscribersEachReceive(t *testing.T) {
	bus := NewBus()
	a := bus.Subscribe(8)
	b := bus.Subscribe(8)
	defer bus.Unsubscribe(a)
	defer bus.Unsubscribe(b)

	bus.Publish(snapshot("ep-1", models.StateCompleted, 10))

	for _, sub := range []*Subscriber{a, b} {
		select {
		case p := <-sub.C():
			if p.EpisodeID != "ep-1" {
				t.Errorf("unexpected event: %+v", p)
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive broadcast")
		}
	}
}
