package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"narravid/config"
	"narravid/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockJobRunner records the jobs it was asked to run.
type mockJobRunner struct {
	mu   sync.Mutex
	runs []string
	fn   func(ctx context.Context, job *store.Job)
}

func (m *mockJobRunner) Run(ctx context.Context, job *store.Job) {
	m.mu.Lock()
	m.runs = append(m.runs, job.ID)
	m.mu.Unlock()
	if m.fn != nil {
		m.fn(ctx, job)
	}
}

func (m *mockJobRunner) runCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.runs)
}

func runnerConfig() *config.Config {
	return &config.Config{
		MaxConcurrency:      1,
		RunTimeout:          10 * time.Second,
		OutputLocalLifetime: time.Hour,
	}
}

func newTestRunner(fs *fakeStore, jr JobRunner) *Runner {
	r := NewRunner(runnerConfig(), fs, &stubLister{}, jr)
	r.resourceCheck = func() error { return nil }
	r.admissionDelay = time.Millisecond
	return r
}

type stubLister struct{}

func (s *stubLister) List(limit int) ([]*store.Job, error) { return nil, nil }

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestRunner_ProcessesEnqueuedJob(t *testing.T) {
	fs := newFakeStore()
	fs.add(&store.Job{ID: "job-1", Status: store.StatusPending})
	jr := &mockJobRunner{}
	r := newTestRunner(fs, jr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)

	require.NoError(t, r.Enqueue("job-1"))
	waitFor(t, func() bool { return jr.runCount() == 1 })
}

func TestRunner_SkipsUnknownAndTerminalJobs(t *testing.T) {
	fs := newFakeStore()
	fs.add(&store.Job{ID: "done", Status: store.StatusCompleted})
	jr := &mockJobRunner{}
	r := newTestRunner(fs, jr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)

	require.NoError(t, r.Enqueue("missing"))
	require.NoError(t, r.Enqueue("done"))

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, jr.runCount())
}

func TestRunner_ConcurrencyLimit(t *testing.T) {
	fs := newFakeStore()
	fs.add(&store.Job{ID: "a", Status: store.StatusPending})
	fs.add(&store.Job{ID: "b", Status: store.StatusPending})

	release := make(chan struct{})
	var mu sync.Mutex
	running := 0
	maxRunning := 0
	jr := &mockJobRunner{fn: func(ctx context.Context, job *store.Job) {
		mu.Lock()
		running++
		if running > maxRunning {
			maxRunning = running
		}
		mu.Unlock()
		<-release
		mu.Lock()
		running--
		mu.Unlock()
	}}
	r := newTestRunner(fs, jr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)

	require.NoError(t, r.Enqueue("a"))
	require.NoError(t, r.Enqueue("b"))

	waitFor(t, func() bool { return jr.runCount() >= 1 })
	time.Sleep(50 * time.Millisecond)
	close(release)
	waitFor(t, func() bool { return jr.runCount() == 2 })

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, maxRunning)
}

func TestRunner_FailsJobWhenResourcesStayExhausted(t *testing.T) {
	fs := newFakeStore()
	fs.add(&store.Job{ID: "job-1", Status: store.StatusPending})
	jr := &mockJobRunner{}
	r := newTestRunner(fs, jr)
	r.resourceCheck = func() error { return errors.New("not enough free memory") }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)

	require.NoError(t, r.Enqueue("job-1"))
	waitFor(t, func() bool {
		j, err := fs.Get("job-1")
		return err == nil && j.Status == store.StatusFailed
	})

	j, _ := fs.Get("job-1")
	assert.Contains(t, j.ErrorMessage, "insufficient system resources")
	assert.Equal(t, 0, jr.runCount())
}
