// Package export renders the current edit as a CMX3600 text EDL for handoff
// to an NLE. This is a description of the edit, not a re-encode.
package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/jumpcut/jumpcut-engine/internal/edl"
)

const clipNameMaxLen = 60

// GenerateCMX3600 renders the playback clips as a CMX3600 EDL. Record times
// are cumulative along the edited timeline; source times come from each clip's
// range in the source video.
func GenerateCMX3600(clips []edl.Clip, title string, frameRate float64) string {
	fps := int(math.Round(frameRate))
	if fps <= 0 {
		fps = 30
	}

	isDropFrame := math.Abs(frameRate-29.97) < 0.01 || math.Abs(frameRate-59.94) < 0.01

	lines := []string{fmt.Sprintf("TITLE: %s", SanitizeName(title, clipNameMaxLen))}
	if isDropFrame {
		lines = append(lines, "FCM: DROP FRAME")
	} else {
		lines = append(lines, "FCM: NON-DROP FRAME")
	}
	lines = append(lines, "")

	var recordOffset float64
	for i, clip := range clips {
		srcIn := secondsToTimecode(clip.StartTime, fps)
		srcOut := secondsToTimecode(clip.EndTime, fps)
		recIn := secondsToTimecode(recordOffset, fps)
		recOut := secondsToTimecode(recordOffset+clip.Duration, fps)

		lines = append(lines,
			fmt.Sprintf("%03d  %-8s %-5s C        %s %s %s %s", i+1, "AX", "V", srcIn, srcOut, recIn, recOut),
			fmt.Sprintf("* FROM CLIP NAME:  %s", clipName(clip)),
			fmt.Sprintf("* SOURCE FILE:  %s", clip.SourceRef),
		)

		recordOffset += clip.Duration
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

func clipName(clip edl.Clip) string {
	name := SanitizeName(clip.DecisionID, clipNameMaxLen)
	if name == "" {
		name = fmt.Sprintf("clip_%03d", clip.Index+1)
	}
	return name
}

func secondsToTimecode(seconds float64, fps int) string {
	totalFrames := int(math.Round(seconds * float64(fps)))
	frames := totalFrames % fps
	totalSeconds := totalFrames / fps
	secs := totalSeconds % 60
	totalMinutes := totalSeconds / 60
	minutes := totalMinutes % 60
	hours := totalMinutes / 60
	return fmt.Sprintf("%02d:%02d:%02d:%02d", hours, minutes, secs, frames)
}
