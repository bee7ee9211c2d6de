package jobs_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tbeaumont/podkeep/internal/config"
	"github.com/tbeaumont/podkeep/internal/jobs"
	"github.com/tbeaumont/podkeep/internal/store"
	"github.com/tbeaumont/podkeep/internal/websocket"
)

type fakeJobContext struct {
	cfg    *config.Config
	st     store.Storage
	ws     *websocket.Hub
	jobMgr *jobs.JobManager
}

func (f *fakeJobContext) Config() *config.Config       { return f.cfg }
func (f *fakeJobContext) Store() store.Storage         { return f.st }
func (f *fakeJobContext) WsHub() *websocket.Hub        { return f.ws }
func (f *fakeJobContext) JobManager() *jobs.JobManager { return f.jobMgr }

func newContext() *fakeJobContext {
	return &fakeJobContext{cfg: &config.Config{}, ws: websocket.NewHub()}
}

func TestManager_NewManager(t *testing.T) {
	ctx := newContext()
	mgr := jobs.NewManager(ctx)
	assert.NotNil(t, mgr)
	assert.Empty(t, mgr.GetStatus())
}

func TestManager_RegisterAndGetStatus(t *testing.T) {
	ctx := newContext()
	mgr := jobs.NewManager(ctx)
	mgr.Register("jobA", func(ctx jobs.JobContext) {})
	mgr.Register("jobB", func(ctx jobs.JobContext) {})
	statuses := mgr.GetStatus()
	assert.Len(t, statuses, 2)
	var foundA, foundB bool
	for _, s := range statuses {
		if s.Name == "jobA" {
			foundA = true
		}
		if s.Name == "jobB" {
			foundB = true
		}
	}
	assert.True(t, foundA && foundB)
}

func TestManager_RunJob_SuccessAndStatus(t *testing.T) {
	ctx := newContext()
	mgr := jobs.NewManager(ctx)
	ctx.jobMgr = mgr
	done := make(chan struct{})
	mgr.Register("jobX", func(ctx jobs.JobContext) { close(done) })
	err := mgr.RunJob("jobX", ctx)
	assert.NoError(t, err)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job did not run")
	}
	time.Sleep(50 * time.Millisecond)
	statuses := mgr.GetStatus()
	assert.Equal(t, "success", statuses[0].Status)
}

func TestManager_RunJob_AlreadyRunning(t *testing.T) {
	ctx := newContext()
	mgr := jobs.NewManager(ctx)
	ctx.jobMgr = mgr
	block := make(chan struct{})
	mgr.Register("jobY", func(ctx jobs.JobContext) { <-block })
	_ = mgr.RunJob("jobY", ctx)
	err := mgr.RunJob("jobY", ctx)
	assert.ErrorIs(t, err, jobs.ErrBusy)
	close(block)
}

func TestManager_RunNow_SingleFlight(t *testing.T) {
	ctx := newContext()
	mgr := jobs.NewManager(ctx)
	ctx.jobMgr = mgr

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- mgr.RunNow("device-sync", func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	assert.ErrorIs(t, mgr.RunNow("cleanup", func() error { return nil }), jobs.ErrBusy)
	mgr.Register("jobZ", func(ctx jobs.JobContext) {})
	assert.ErrorIs(t, mgr.RunJob("jobZ", ctx), jobs.ErrBusy)

	close(release)
	assert.NoError(t, <-done)

	// The slot is free again once the synchronous run returns.
	assert.NoError(t, mgr.RunNow("cleanup", func() error { return nil }))
}

func TestManager_RunNow_BlockedByRunningJob(t *testing.T) {
	ctx := newContext()
	mgr := jobs.NewManager(ctx)
	ctx.jobMgr = mgr

	block := make(chan struct{})
	mgr.Register("jobW", func(ctx jobs.JobContext) { <-block })
	assert.NoError(t, mgr.RunJob("jobW", ctx))

	assert.ErrorIs(t, mgr.RunNow("cleanup", func() error { return nil }), jobs.ErrBusy)
	close(block)
}

func TestManager_GetStatusReturnsCopies(t *testing.T) {
	ctx := newContext()
	mgr := jobs.NewManager(ctx)
	mgr.Register("jobQ", func(ctx jobs.JobContext) {})

	mgr.GetStatus()[0].Status = "mangled"
	assert.Equal(t, "idle", mgr.GetStatus()[0].Status)
}

func TestManager_RunJob_NotFound(t *testing.T) {
	ctx := newContext()
	mgr := jobs.NewManager(ctx)
	err := mgr.RunJob("nojob", ctx)
	assert.Error(t, err)
}

func TestManager_RunJob_Panic(t *testing.T) {
	ctx := newContext()
	mgr := jobs.NewManager(ctx)
	ctx.jobMgr = mgr
	mgr.Register("panicJob", func(ctx jobs.JobContext) { panic("fail") })
	err := mgr.RunJob("panicJob", ctx)
	assert.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	statuses := mgr.GetStatus()
	assert.Equal(t, "failed", statuses[0].Status)
	assert.Contains(t, statuses[0].Message, "panicked")
}

func TestManager_SingleJobAtATime(t *testing.T) {
	ctx := newContext()
	mgr := jobs.NewManager(ctx)
	ctx.jobMgr = mgr
	var mu sync.Mutex
	var count int
	block := make(chan struct{})
	mgr.Register("jobC", func(ctx jobs.JobContext) {
		mu.Lock()
		count++
		mu.Unlock()
		<-block
	})
	var started int
	for i := 0; i < 5; i++ {
		if err := mgr.RunJob("jobC", ctx); err == nil {
			started++
		}
	}
	close(block)
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, started, "only one invocation may be accepted while running")
	assert.Equal(t, 1, count)
}
