package media

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jumpcut/jumpcut-engine/internal/edl"
)

func TestFileLoader_Load(t *testing.T) {
	server, mediaDir, _ := newTestServer(t)
	content := bytes.Repeat([]byte("x"), 1024)
	writeFile(t, filepath.Join(mediaDir, "talk.mp4"), content)

	loader := NewFileLoader(server, nil, nil)
	h, err := loader.Load(context.Background(), edl.Clip{
		Index: 0, DecisionID: "d1", MediaRef: "talk.mp4", StartTime: 0, EndTime: 2,
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	defer h.Release()

	handle, ok := h.(*Handle)
	if !ok {
		t.Fatalf("Load() returned %T, want *Handle", h)
	}
	if handle.Size != int64(len(content)) {
		t.Errorf("Size = %d, want %d", handle.Size, len(content))
	}
	if handle.Offset != 0 {
		t.Errorf("Offset without durationFn = %d, want 0", handle.Offset)
	}
}

func TestFileLoader_OffsetFromDuration(t *testing.T) {
	server, mediaDir, _ := newTestServer(t)
	writeFile(t, filepath.Join(mediaDir, "talk.mp4"), bytes.Repeat([]byte("y"), 1000))

	durationFn := func(path string) (float64, error) { return 100.0, nil }
	loader := NewFileLoader(server, durationFn, nil)

	h, err := loader.Load(context.Background(), edl.Clip{
		Index: 1, DecisionID: "d2", MediaRef: "talk.mp4", StartTime: 50, EndTime: 52,
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	defer h.Release()

	// 50s into a 100s file of 1000 bytes lands halfway.
	if got := h.(*Handle).Offset; got != 500 {
		t.Errorf("Offset = %d, want 500", got)
	}
}

func TestFileLoader_MissingSource(t *testing.T) {
	server, _, _ := newTestServer(t)
	loader := NewFileLoader(server, nil, nil)

	if _, err := loader.Load(context.Background(), edl.Clip{MediaRef: "gone.mp4"}); err == nil {
		t.Fatal("Load() succeeded for a missing source")
	}
	if _, err := loader.Load(context.Background(), edl.Clip{MediaRef: "../escape.mp4"}); err == nil {
		t.Fatal("Load() accepted a traversal ref")
	}
}

func TestFileLoader_CancelledContext(t *testing.T) {
	server, mediaDir, _ := newTestServer(t)
	writeFile(t, filepath.Join(mediaDir, "talk.mp4"), []byte("data"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	loader := NewFileLoader(server, nil, nil)
	if _, err := loader.Load(ctx, edl.Clip{MediaRef: "talk.mp4"}); err != context.Canceled {
		t.Fatalf("Load() error = %v, want context.Canceled", err)
	}
}

func TestHandle_ReleaseIdempotent(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "clip")
	if err != nil {
		t.Fatal(err)
	}
	h := &Handle{Path: f.Name(), file: f}
	h.Release()
	h.Release()
}
