package media

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestServer(t *testing.T) (*Server, string, string) {
	t.Helper()
	mediaDir := t.TempDir()
	manifestDir := t.TempDir()
	return NewServer(mediaDir, manifestDir, nil), mediaDir, manifestDir
}

func writeFile(t *testing.T, path string, content []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestSourcePath_RejectsTraversal(t *testing.T) {
	s, _, _ := newTestServer(t)

	for _, ref := range []string{"..", "../etc/passwd", "a/../../b", "nested/../../x"} {
		if _, err := s.SourcePath(ref); err == nil {
			t.Errorf("SourcePath(%q) accepted a traversal ref", ref)
		}
	}
	if _, err := s.SourcePath(""); err == nil {
		t.Error("SourcePath accepted an empty ref")
	}
	if _, err := s.SourcePath("sub/talk.mp4"); err != nil {
		t.Errorf("SourcePath rejected a clean nested ref: %v", err)
	}
}

func TestServeSource_FullFile(t *testing.T) {
	s, mediaDir, _ := newTestServer(t)
	content := []byte("0123456789abcdef")
	writeFile(t, filepath.Join(mediaDir, "talk.mp4"), content)

	req := httptest.NewRequest(http.MethodGet, "/media/source?ref=talk.mp4", nil)
	rec := httptest.NewRecorder()
	if err := s.ServeSource(rec, req, "talk.mp4"); err != nil {
		t.Fatalf("ServeSource() error = %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Header().Get("Accept-Ranges") != "bytes" {
		t.Error("missing Accept-Ranges header")
	}
	if got := rec.Body.String(); got != string(content) {
		t.Errorf("body = %q", got)
	}
}

func TestServeSource_PartialContent(t *testing.T) {
	s, mediaDir, _ := newTestServer(t)
	writeFile(t, filepath.Join(mediaDir, "talk.mp4"), []byte("0123456789"))

	req := httptest.NewRequest(http.MethodGet, "/media/source?ref=talk.mp4", nil)
	req.Header.Set("Range", "bytes=2-5")
	rec := httptest.NewRecorder()
	if err := s.ServeSource(rec, req, "talk.mp4"); err != nil {
		t.Fatalf("ServeSource() error = %v", err)
	}

	if rec.Code != http.StatusPartialContent {
		t.Fatalf("status = %d, want 206", rec.Code)
	}
	if got := rec.Header().Get("Content-Range"); got != "bytes 2-5/10" {
		t.Errorf("Content-Range = %q", got)
	}
	if got := rec.Body.String(); got != "2345" {
		t.Errorf("body = %q, want %q", got, "2345")
	}
}

func TestServeSource_UnsatisfiableRange(t *testing.T) {
	s, mediaDir, _ := newTestServer(t)
	writeFile(t, filepath.Join(mediaDir, "talk.mp4"), []byte("0123456789"))

	req := httptest.NewRequest(http.MethodGet, "/media/source?ref=talk.mp4", nil)
	req.Header.Set("Range", "bytes=100-")
	rec := httptest.NewRecorder()
	if err := s.ServeSource(rec, req, "talk.mp4"); err != nil {
		t.Fatalf("ServeSource() error = %v", err)
	}

	if rec.Code != http.StatusRequestedRangeNotSatisfiable {
		t.Fatalf("status = %d, want 416", rec.Code)
	}
	if got := rec.Header().Get("Content-Range"); got != "bytes */10" {
		t.Errorf("Content-Range = %q", got)
	}
}

func TestServeSource_Missing(t *testing.T) {
	s, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/media/source?ref=nope.mp4", nil)
	rec := httptest.NewRecorder()
	if err := s.ServeSource(rec, req, "nope.mp4"); err != nil {
		t.Fatalf("ServeSource() error = %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestServeManifestArtifact(t *testing.T) {
	s, _, manifestDir := newTestServer(t)
	writeFile(t, filepath.Join(manifestDir, "abc123", "manifest.m3u8"), []byte("#EXTM3U\n"))

	req := httptest.NewRequest(http.MethodGet, "/manifests/abc123/manifest.m3u8", nil)
	rec := httptest.NewRecorder()
	if err := s.ServeManifestArtifact(rec, req, "abc123", "manifest.m3u8"); err != nil {
		t.Fatalf("ServeManifestArtifact() error = %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.HasPrefix(rec.Body.String(), "#EXTM3U") {
		t.Errorf("body = %q", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	if err := s.ServeManifestArtifact(rec, req, "../secrets", "manifest.m3u8"); err != nil {
		t.Fatalf("ServeManifestArtifact() error = %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("traversal hash status = %d, want 400", rec.Code)
	}
}
