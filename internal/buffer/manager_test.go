package buffer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jumpcut/jumpcut-engine/internal/edl"
)

type fakeHandle struct {
	mu       sync.Mutex
	released int
}

func (h *fakeHandle) Release() {
	h.mu.Lock()
	h.released++
	h.mu.Unlock()
}

func (h *fakeHandle) releaseCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.released
}

// fakeLoader fails each clip index the scripted number of times, then
// succeeds. It records every handle it hands out.
type fakeLoader struct {
	mu      sync.Mutex
	fails   map[int]int
	handles []*fakeHandle
	loads   int
}

func (f *fakeLoader) Load(ctx context.Context, clip edl.Clip) (MediaHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	if f.fails[clip.Index] > 0 {
		f.fails[clip.Index]--
		return nil, errors.New("media unavailable")
	}
	h := &fakeHandle{}
	f.handles = append(f.handles, h)
	return h, nil
}

func (f *fakeLoader) loadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loads
}

func bufferClips(n int) []edl.Clip {
	clips := make([]edl.Clip, n)
	for i := range clips {
		clips[i] = edl.Clip{Index: i, DecisionID: string(rune('a' + i)), Duration: 1}
	}
	return clips
}

func newTestManager(t *testing.T, n int, loader Loader) *Manager {
	t.Helper()
	m := NewManager(Config{AheadWindow: 3, BehindRetention: 2, Loader: loader})
	m.SetClips(bufferClips(n))
	return m
}

func awaitResult(t *testing.T, m *Manager) LoadResult {
	t.Helper()
	select {
	case res := <-m.Completions():
		return res
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a load result")
		return LoadResult{}
	}
}

// drainWindow completes every pending load until the expected count is done.
func drainWindow(t *testing.T, m *Manager, count int) {
	t.Helper()
	for i := 0; i < count; i++ {
		if err := m.Complete(awaitResult(t, m)); err != nil {
			t.Fatalf("unexpected load error: %v", err)
		}
	}
}

func TestEnsureBuffered_LoadsWindow(t *testing.T) {
	loader := &fakeLoader{}
	m := newTestManager(t, 10, loader)

	m.EnsureBuffered(2)

	// Clips 2..5 must leave NotLoaded immediately.
	for i := 2; i <= 5; i++ {
		if m.State(i) == StateNotLoaded {
			t.Errorf("clip %d still not_loaded after EnsureBuffered", i)
		}
	}
	if m.State(1) != StateNotLoaded || m.State(6) != StateNotLoaded {
		t.Error("clips outside the ahead window were loaded")
	}

	drainWindow(t, m, 4)
	for i := 2; i <= 5; i++ {
		if !m.Ready(i) {
			t.Errorf("clip %d not ready after completion, state=%s", i, m.State(i))
		}
		if m.Handle(i) == nil {
			t.Errorf("clip %d ready but has no handle", i)
		}
	}
}

func TestEnsureBuffered_WindowClampedAtEnds(t *testing.T) {
	loader := &fakeLoader{}
	m := newTestManager(t, 3, loader)

	m.EnsureBuffered(-5)
	drainWindow(t, m, 3)
	if got := len(m.BufferedIndexes()); got != 3 {
		t.Errorf("buffered %d clips, want all 3", got)
	}

	// Re-requesting an already resident window starts nothing new.
	before := loader.loadCount()
	m.EnsureBuffered(0)
	if loader.loadCount() != before {
		t.Errorf("EnsureBuffered reloaded resident clips: %d loads, want %d", loader.loadCount(), before)
	}
}

func TestComplete_RetriesOnceThenSucceeds(t *testing.T) {
	loader := &fakeLoader{fails: map[int]int{0: 1}}
	m := newTestManager(t, 1, loader)

	m.EnsureBuffered(0)

	// First result is the scripted failure; Complete retries silently.
	if err := m.Complete(awaitResult(t, m)); err != nil {
		t.Fatalf("first failure surfaced an error: %v", err)
	}
	if m.State(0) == StateFailed {
		t.Fatal("clip marked failed before retry finished")
	}

	if err := m.Complete(awaitResult(t, m)); err != nil {
		t.Fatalf("retry result error: %v", err)
	}
	if !m.Ready(0) {
		t.Errorf("clip state = %s after successful retry, want ready", m.State(0))
	}
	if loader.loadCount() != 2 {
		t.Errorf("load attempts = %d, want 2", loader.loadCount())
	}
}

func TestComplete_PermanentFailureAfterRetry(t *testing.T) {
	loader := &fakeLoader{fails: map[int]int{0: 10}}
	m := newTestManager(t, 1, loader)

	m.EnsureBuffered(0)

	if err := m.Complete(awaitResult(t, m)); err != nil {
		t.Fatalf("first failure surfaced an error: %v", err)
	}
	err := m.Complete(awaitResult(t, m))
	if err == nil {
		t.Fatal("second failure did not surface a ClipLoadError")
	}
	if err.Index != 0 || err.Attempts != 2 {
		t.Errorf("ClipLoadError = {Index:%d Attempts:%d}, want {0 2}", err.Index, err.Attempts)
	}
	if m.State(0) != StateFailed {
		t.Errorf("clip state = %s, want failed", m.State(0))
	}
	if loader.loadCount() != 2 {
		t.Errorf("load attempts = %d, want exactly 2", loader.loadCount())
	}
}

func TestSetClips_InvalidatesInFlightLoads(t *testing.T) {
	loader := &fakeLoader{}
	m := newTestManager(t, 5, loader)

	m.EnsureBuffered(0)
	m.SetClips(bufferClips(5))

	// A stale result either arrives tagged with the old generation, where
	// Complete drops it, or is dropped at the source once its load context
	// is cancelled. Either way no clip may become ready and every handle
	// the loader gave out must be freed.
	for quiet := false; !quiet; {
		select {
		case res := <-m.Completions():
			if err := m.Complete(res); err != nil {
				t.Fatalf("stale result surfaced an error: %v", err)
			}
		case <-time.After(200 * time.Millisecond):
			quiet = true
		}
	}
	if got := len(m.BufferedIndexes()); got != 0 {
		t.Errorf("stale results marked %d clips ready", got)
	}
	for i, h := range loader.handles {
		if h.releaseCount() == 0 {
			t.Errorf("stale handle %d never released", i)
		}
	}
}

func TestSetClips_ClearsFailureMarks(t *testing.T) {
	loader := &fakeLoader{fails: map[int]int{0: 2}}
	m := newTestManager(t, 1, loader)

	m.EnsureBuffered(0)
	m.Complete(awaitResult(t, m))
	m.Complete(awaitResult(t, m))
	if m.State(0) != StateFailed {
		t.Fatalf("setup: clip state = %s, want failed", m.State(0))
	}

	m.SetClips(bufferClips(1))
	if m.State(0) != StateNotLoaded {
		t.Errorf("state after SetClips = %s, want not_loaded", m.State(0))
	}

	m.EnsureBuffered(0)
	if err := m.Complete(awaitResult(t, m)); err != nil {
		t.Fatalf("reload after SetClips failed: %v", err)
	}
	if !m.Ready(0) {
		t.Error("clip not ready after failure marks were cleared")
	}
}

func TestEvictStale(t *testing.T) {
	loader := &fakeLoader{}
	m := newTestManager(t, 12, loader)

	m.EnsureBuffered(0)
	drainWindow(t, m, 4)

	// Cursor jumps to 8: everything below 8-2 must be released.
	m.EnsureBuffered(8)
	drainWindow(t, m, 4)
	m.EvictStale(8)

	for i := 0; i <= 3; i++ {
		if m.State(i) != StateNotLoaded {
			t.Errorf("clip %d state = %s after eviction, want not_loaded", i, m.State(i))
		}
	}
	for i := 8; i <= 11; i++ {
		if !m.Ready(i) {
			t.Errorf("clip %d inside window evicted", i)
		}
	}
	for i := 0; i < 4; i++ {
		if loader.handles[i].releaseCount() == 0 {
			t.Errorf("evicted handle %d never released", i)
		}
	}
}

func TestClose_ReleasesEverything(t *testing.T) {
	loader := &fakeLoader{}
	m := newTestManager(t, 4, loader)

	m.EnsureBuffered(0)
	drainWindow(t, m, 4)
	m.Close()

	for _, h := range loader.handles {
		if h.releaseCount() == 0 {
			t.Error("handle not released on Close")
		}
	}
}

func TestLoaderContextCancelledOnEvict(t *testing.T) {
	started := make(chan struct{})
	cancelled := make(chan struct{})
	loader := loaderFunc(func(ctx context.Context, clip edl.Clip) (MediaHandle, error) {
		close(started)
		<-ctx.Done()
		close(cancelled)
		return nil, ctx.Err()
	})

	m := NewManager(Config{AheadWindow: 0, BehindRetention: 0, Loader: loader})
	m.SetClips(bufferClips(2))
	m.EnsureBuffered(0)
	<-started

	m.EvictStale(1)

	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("in-flight load not cancelled by eviction")
	}
}

func TestClose_InFlightCompletionExitsAndReleases(t *testing.T) {
	proceed := make(chan struct{})
	released := make(chan struct{})
	loader := loaderFunc(func(ctx context.Context, clip edl.Clip) (MediaHandle, error) {
		// Ignore cancellation and hand back a handle anyway, like a
		// decoder that cannot abort mid-open.
		<-proceed
		return signalHandle{released}, nil
	})

	m := NewManager(Config{AheadWindow: 0, BehindRetention: 0, Loader: loader})
	m.SetClips(bufferClips(1))
	m.EnsureBuffered(0)

	m.Close()
	close(proceed)

	// Nobody drains completions after Close; the load goroutine must still
	// exit, dropping its result and freeing the handle.
	select {
	case <-released:
	case <-time.After(2 * time.Second):
		t.Fatal("handle from a post-Close completion never released")
	}
}

type signalHandle struct {
	released chan struct{}
}

func (h signalHandle) Release() {
	close(h.released)
}

type loaderFunc func(ctx context.Context, clip edl.Clip) (MediaHandle, error)

func (f loaderFunc) Load(ctx context.Context, clip edl.Clip) (MediaHandle, error) {
	return f(ctx, clip)
}
