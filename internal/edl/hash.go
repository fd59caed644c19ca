package edl

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
)

// OrderingHash returns a stable content hash of the included, ordered ranges.
// Two lists whose playback output would be identical hash the same, so the
// hash keys server-built unified manifests.
func (l *List) OrderingHash() string {
	h := sha1.New()
	for _, d := range l.PlaybackList() {
		h.Write([]byte(d.SourceRef))
		fmt.Fprintf(h, "%.3f,%.3f;", d.StartTime, d.EndTime)
	}
	return hex.EncodeToString(h.Sum(nil))
}
