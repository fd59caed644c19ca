package media

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

const probeTimeout = 10 * time.Second

// FFProbe reads container-level duration from local source files by
// shelling out to ffprobe. When the binary is not on PATH the loader
// falls back to file-size heuristics, so playback still works, just
// with coarser seek offsets.
type FFProbe struct {
	binary string
	logger *slog.Logger
}

func NewFFProbe(logger *slog.Logger) *FFProbe {
	path, err := exec.LookPath("ffprobe")
	if err != nil {
		if logger != nil {
			logger.Warn("ffprobe not found on PATH, duration probing disabled")
		}
		return &FFProbe{logger: logger}
	}
	return &FFProbe{binary: path, logger: logger}
}

// Available reports whether a usable ffprobe binary was found.
func (p *FFProbe) Available() bool {
	return p.binary != ""
}

// Duration returns the source duration in seconds.
func (p *FFProbe) Duration(path string) (float64, error) {
	if p.binary == "" {
		return 0, fmt.Errorf("ffprobe unavailable")
	}

	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, p.binary,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	return parseProbeDuration(string(out))
}

func parseProbeDuration(out string) (float64, error) {
	trimmed := strings.TrimSpace(out)
	if trimmed == "" || trimmed == "N/A" {
		return 0, fmt.Errorf("ffprobe reported no duration")
	}
	seconds, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable ffprobe duration %q: %w", trimmed, err)
	}
	if seconds < 0 {
		return 0, fmt.Errorf("negative ffprobe duration %f", seconds)
	}
	return seconds, nil
}
