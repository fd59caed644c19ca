// Package streaming selects between sequential per-clip playback and a
// server-built unified manifest stream, keyed by the hash of the current EDL
// ordering. The manifest builder itself is an external service; this package
// only asks it for status and falls back when the answer is not "ready".
package streaming

import "fmt"

// BuildState enumerates the manifest builder's answer for one EDL hash.
type BuildState string

const (
	BuildNotBuilt BuildState = "not-built"
	BuildBuilding BuildState = "building"
	BuildReady    BuildState = "ready"
	BuildFailed   BuildState = "failed"
)

// BuildStatus is the builder's typed answer. Exactly the fields matching State
// are meaningful: Progress while building, ManifestURL when ready, Error when
// failed. Consumers switch over State exhaustively.
type BuildStatus struct {
	State       BuildState `json:"status"`
	EDLHash     string     `json:"edl_hash"`
	Progress    float64    `json:"progress,omitempty"`
	ManifestURL string     `json:"manifest_url,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// Valid reports whether the state is one the adapter knows how to handle.
func (s BuildStatus) Valid() bool {
	switch s.State {
	case BuildNotBuilt, BuildBuilding, BuildReady, BuildFailed:
		return true
	}
	return false
}

// ManifestBuildError reports a failed or timed-out unified manifest build. The
// adapter swallows it into a silent fallback; it only reaches the caller when
// the fallback path is unusable too.
type ManifestBuildError struct {
	EDLHash string
	Reason  string
}

func (e *ManifestBuildError) Error() string {
	return fmt.Sprintf("manifest build for %s: %s", e.EDLHash, e.Reason)
}
