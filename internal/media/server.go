package media

import (
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Server maps source refs and manifest artifacts to files on disk and serves
// them with Accept-Ranges so a browser video element can stream either path.
type Server struct {
	mediaDir    string
	manifestDir string
	logger      *slog.Logger
}

func NewServer(mediaDir, manifestDir string, logger *slog.Logger) *Server {
	return &Server{mediaDir: mediaDir, manifestDir: manifestDir, logger: logger}
}

// SourcePath resolves a source ref to a file path under the media directory.
// Refs containing traversal elements are rejected.
func (s *Server) SourcePath(sourceRef string) (string, error) {
	if sourceRef == "" {
		return "", fmt.Errorf("empty source ref")
	}
	for _, part := range strings.Split(filepath.ToSlash(sourceRef), "/") {
		if part == ".." {
			return "", fmt.Errorf("source ref cannot contain path traversal")
		}
	}
	return filepath.Join(s.mediaDir, filepath.FromSlash(sourceRef)), nil
}

// ServeSource streams the media file for a source ref.
func (s *Server) ServeSource(w http.ResponseWriter, r *http.Request, sourceRef string) error {
	path, err := s.SourcePath(sourceRef)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil
	}
	return s.serveFile(w, r, path)
}

// ServeManifestArtifact streams one file of a built unified manifest
// (manifest.m3u8, init.mp4, seg-*.m4s) from the manifest cache directory.
func (s *Server) ServeManifestArtifact(w http.ResponseWriter, r *http.Request, edlHash, name string) error {
	if strings.Contains(edlHash, "/") || strings.Contains(name, "/") || name == ".." || edlHash == ".." {
		http.Error(w, "invalid artifact path", http.StatusBadRequest)
		return nil
	}
	return s.serveFile(w, r, filepath.Join(s.manifestDir, edlHash, name))
}

func (s *Server) serveFile(w http.ResponseWriter, r *http.Request, filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			http.Error(w, "file not found", http.StatusNotFound)
			return nil
		}
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	size := stat.Size()
	contentType := mime.TypeByExtension(filepath.Ext(filePath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Type", contentType)

	rangeHeader := r.Header.Get("Range")
	parsedRange, err := ParseRange(rangeHeader, size)

	if err == ErrUnsatisfiable {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		http.Error(w, "Range Not Satisfiable", http.StatusRequestedRangeNotSatisfiable)
		return nil
	}

	if err != nil && err != ErrInvalidRange {
		return err
	}

	if parsedRange == nil {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", size))
		w.WriteHeader(http.StatusOK)
		io.Copy(w, file)
		return nil
	}

	w.Header().Set("Content-Length", fmt.Sprintf("%d", parsedRange.ContentLength()))
	w.Header().Set("Content-Range", parsedRange.ContentRange(size))
	w.WriteHeader(http.StatusPartialContent)

	if _, err := file.Seek(parsedRange.Start, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}

	io.CopyN(w, file, parsedRange.ContentLength())
	return nil
}
