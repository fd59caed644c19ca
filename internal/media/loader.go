package media

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jumpcut/jumpcut-engine/internal/buffer"
	"github.com/jumpcut/jumpcut-engine/internal/edl"
	"github.com/jumpcut/jumpcut-engine/internal/logging"
)

// warmBytes is how much of the clip's region is read ahead to pull it into
// the page cache.
const warmBytes = 256 * 1024

// Handle is a loaded clip resource: an open descriptor positioned at the
// clip's approximate byte offset.
type Handle struct {
	Path   string
	Size   int64
	Offset int64

	file *os.File
}

// Release closes the underlying descriptor.
func (h *Handle) Release() {
	if h.file != nil {
		h.file.Close()
		h.file = nil
	}
}

// FileLoader loads clips from local source files. The byte offset for a clip
// is estimated from its time range against the file size; the warm read just
// needs to be near the right region, the UI player does its own precise
// seeking over the range endpoint.
type FileLoader struct {
	server        *Server
	sourceSeconds func(path string) (float64, error)
	logger        *slog.Logger
}

// NewFileLoader builds a loader resolving refs through the media server.
// durationFn reports a source file's duration; pass nil to fall back to
// offset zero (whole-file warm from the start).
func NewFileLoader(server *Server, durationFn func(path string) (float64, error), logger *slog.Logger) *FileLoader {
	return &FileLoader{server: server, sourceSeconds: durationFn, logger: logger}
}

// Load opens the clip's source file, seeks near the clip's region and reads
// ahead to warm it. The returned handle owns the descriptor.
func (l *FileLoader) Load(ctx context.Context, clip edl.Clip) (buffer.MediaHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := l.server.SourcePath(clip.MediaRef)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source for clip %d: %w", clip.Index, err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("stat source for clip %d: %w", clip.Index, err)
	}

	offset := l.estimateOffset(path, stat.Size(), clip.StartTime)
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		file.Close()
		return nil, fmt.Errorf("seek source for clip %d: %w", clip.Index, err)
	}

	buf := make([]byte, warmBytes)
	for read := 0; read < warmBytes; {
		if err := ctx.Err(); err != nil {
			file.Close()
			return nil, err
		}
		n, err := file.Read(buf[read:])
		read += n
		if err == io.EOF {
			break
		}
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("warm read for clip %d: %w", clip.Index, err)
		}
	}

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		file.Close()
		return nil, err
	}

	if l.logger != nil {
		l.logger.Debug("clip warmed",
			"clip_index", clip.Index,
			"path", logging.SanitizePath(path),
			"offset", offset,
		)
	}

	return &Handle{Path: path, Size: stat.Size(), Offset: offset, file: file}, nil
}

func (l *FileLoader) estimateOffset(path string, size int64, startSeconds float64) int64 {
	if l.sourceSeconds == nil || startSeconds <= 0 {
		return 0
	}
	total, err := l.sourceSeconds(path)
	if err != nil || total <= 0 {
		return 0
	}
	frac := startSeconds / total
	if frac >= 1 {
		frac = 1
	}
	offset := int64(frac * float64(size))
	if offset >= size {
		offset = size - 1
	}
	if offset < 0 {
		offset = 0
	}
	return offset
}
