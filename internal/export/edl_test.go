package export

import (
	"strings"
	"testing"

	"github.com/jumpcut/jumpcut-engine/internal/edl"
)

func TestGenerateCMX3600_SingleClip(t *testing.T) {
	clips := []edl.Clip{{
		Index:      0,
		DecisionID: "intro",
		SourceRef:  "talk.mp4",
		StartTime:  0,
		EndTime:    2,
		Duration:   2,
	}}

	out := GenerateCMX3600(clips, "Project One", 30.0)

	if !strings.Contains(out, "TITLE: Project One") {
		t.Fatalf("missing title in EDL: %q", out)
	}
	if !strings.Contains(out, "FCM: NON-DROP FRAME") {
		t.Fatalf("missing non-drop-frame FCM: %q", out)
	}
	if !strings.Contains(out, "001  AX       V     C        00:00:00:00 00:00:02:00 00:00:00:00 00:00:02:00") {
		t.Fatalf("missing event line: %q", out)
	}
	if !strings.Contains(out, "* FROM CLIP NAME:  intro") {
		t.Fatalf("missing clip name comment: %q", out)
	}
	if !strings.Contains(out, "* SOURCE FILE:  talk.mp4") {
		t.Fatalf("missing source file comment: %q", out)
	}
}

func TestGenerateCMX3600_RecordTimesAreCumulative(t *testing.T) {
	clips := []edl.Clip{
		{Index: 0, DecisionID: "a", SourceRef: "talk.mp4", StartTime: 10, EndTime: 12, Duration: 2},
		{Index: 1, DecisionID: "b", SourceRef: "talk.mp4", StartTime: 30, EndTime: 33, Duration: 3},
	}

	out := GenerateCMX3600(clips, "Two Cuts", 25.0)

	// Source times come from the clip ranges, record times from the running
	// total along the edited timeline.
	if !strings.Contains(out, "001  AX       V     C        00:00:10:00 00:00:12:00 00:00:00:00 00:00:02:00") {
		t.Errorf("first event line wrong:\n%s", out)
	}
	if !strings.Contains(out, "002  AX       V     C        00:00:30:00 00:00:33:00 00:00:02:00 00:00:05:00") {
		t.Errorf("second event line wrong:\n%s", out)
	}
}

func TestGenerateCMX3600_DropFrameRates(t *testing.T) {
	clips := []edl.Clip{{Index: 0, DecisionID: "a", SourceRef: "x.mp4", EndTime: 1, Duration: 1}}

	if out := GenerateCMX3600(clips, "t", 29.97); !strings.Contains(out, "FCM: DROP FRAME") {
		t.Error("29.97fps not marked drop frame")
	}
	if out := GenerateCMX3600(clips, "t", 59.94); !strings.Contains(out, "FCM: DROP FRAME") {
		t.Error("59.94fps not marked drop frame")
	}
	if out := GenerateCMX3600(clips, "t", 24); !strings.Contains(out, "FCM: NON-DROP FRAME") {
		t.Error("24fps marked drop frame")
	}
}

func TestGenerateCMX3600_EmptyClipList(t *testing.T) {
	out := GenerateCMX3600(nil, "Empty", 30.0)
	if !strings.Contains(out, "TITLE: Empty") {
		t.Fatalf("empty EDL missing title: %q", out)
	}
	if strings.Contains(out, "001") {
		t.Errorf("empty EDL contains an event: %q", out)
	}
}

func TestGenerateCMX3600_FractionalSeconds(t *testing.T) {
	clips := []edl.Clip{{
		Index: 0, DecisionID: "a", SourceRef: "x.mp4",
		StartTime: 1.5, EndTime: 3.25, Duration: 1.75,
	}}

	out := GenerateCMX3600(clips, "Frames", 24.0)

	// 1.5s at 24fps = frame 36 = 00:00:01:12; 3.25s = frame 78 = 00:00:03:06.
	if !strings.Contains(out, "00:00:01:12 00:00:03:06") {
		t.Errorf("fractional source timecodes wrong:\n%s", out)
	}
}

func TestSecondsToTimecode(t *testing.T) {
	tests := []struct {
		seconds float64
		fps     int
		want    string
	}{
		{0, 30, "00:00:00:00"},
		{1, 30, "00:00:01:00"},
		{1.5, 30, "00:00:01:15"},
		{61, 30, "00:01:01:00"},
		{3661.2, 30, "01:01:01:06"},
	}
	for _, tt := range tests {
		if got := secondsToTimecode(tt.seconds, tt.fps); got != tt.want {
			t.Errorf("secondsToTimecode(%f, %d) = %s, want %s", tt.seconds, tt.fps, got, tt.want)
		}
	}
}
