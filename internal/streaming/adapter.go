package streaming

import (
	"context"
	"log/slog"
	"time"

	"github.com/jumpcut/jumpcut-engine/internal/edl"
)

// ResolveRequest identifies one EDL version to evaluate.
type ResolveRequest struct {
	EDLHash string
	Clips   []edl.Clip
}

// Decision is the adapter's verdict for one EDL version.
type Decision struct {
	Unified     bool
	EDLHash     string
	ManifestURL string
}

// Config holds the adapter's tunables.
type Config struct {
	Client       BuilderClient
	Enabled      bool
	PollInterval time.Duration
	BuildTimeout time.Duration
	Logger       *slog.Logger
}

// Adapter decides once per EDL version whether unified-stream playback is
// available, polling the builder until ready, failed, or timeout. Every
// non-ready outcome is a transparent fallback to sequential mode.
type Adapter struct {
	cfg Config
}

// NewAdapter creates an adapter with defaults filled in.
func NewAdapter(cfg Config) *Adapter {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.BuildTimeout <= 0 {
		cfg.BuildTimeout = 30 * time.Second
	}
	return &Adapter{cfg: cfg}
}

// Enabled reports whether the unified-stream path is configured at all.
func (a *Adapter) Enabled() bool {
	return a.cfg.Enabled && a.cfg.Client != nil
}

// Resolve blocks until the builder reports a terminal answer for the hash or
// the timeout elapses. It never returns an error for a fallback-sized problem;
// the caller just gets Unified == false. Run it off the session loop.
func (a *Adapter) Resolve(ctx context.Context, status ResolveRequest) Decision {
	fallback := Decision{Unified: false, EDLHash: status.EDLHash}
	if !a.Enabled() {
		return fallback
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.BuildTimeout)
	defer cancel()

	requested := false
	ticker := time.NewTicker(a.cfg.PollInterval)
	defer ticker.Stop()

	for {
		st, err := a.cfg.Client.Status(ctx, status.EDLHash)
		if err != nil {
			if a.cfg.Logger != nil {
				a.cfg.Logger.Warn("manifest status check failed, falling back to sequential", "edl_hash", status.EDLHash, "error", err)
			}
			return fallback
		}

		switch st.State {
		case BuildReady:
			if a.cfg.Logger != nil {
				a.cfg.Logger.Info("unified manifest ready", "edl_hash", status.EDLHash)
			}
			return Decision{Unified: true, EDLHash: status.EDLHash, ManifestURL: st.ManifestURL}

		case BuildFailed:
			if a.cfg.Logger != nil {
				a.cfg.Logger.Warn("unified manifest build failed, falling back to sequential", "edl_hash", status.EDLHash, "error", st.Error)
			}
			return fallback

		case BuildNotBuilt:
			if requested {
				return fallback
			}
			if err := a.cfg.Client.RequestBuild(ctx, status.EDLHash, status.Clips); err != nil {
				if a.cfg.Logger != nil {
					a.cfg.Logger.Warn("manifest build request failed, falling back to sequential", "edl_hash", status.EDLHash, "error", err)
				}
				return fallback
			}
			requested = true

		case BuildBuilding:
			if a.cfg.Logger != nil {
				a.cfg.Logger.Debug("manifest building", "edl_hash", status.EDLHash, "progress", st.Progress)
			}
		}

		select {
		case <-ctx.Done():
			if a.cfg.Logger != nil {
				a.cfg.Logger.Warn("manifest build timed out, falling back to sequential", "edl_hash", status.EDLHash)
			}
			return fallback
		case <-ticker.C:
		}
	}
}
