package tutor

import (
	"fmt"
	"strings"
)

// WindowRadius is how many seconds on each side of the requested timestamp
// are considered relevant.
const WindowRadius = 10

// NoContentText is returned as Window.Text when no segment could be found.
const NoContentText = "Tidak ada konten di timestamp ini"

// WindowAt returns the transcript segments around timestamp (in seconds).
//
// A segment is selected when it starts inside [ts-10, ts+10] (clamped at 0),
// ends inside it, or spans all of it. If nothing is selected, the single
// segment whose start or end is nearest to ts is used instead; ties go to
// the earliest segment. Timestamps past the end of the video are accepted.
func WindowAt(v Video, timestamp int) Window {
	segments := windowSegments(v.Transcript, timestamp)
	if len(segments) == 0 {
		if seg, ok := nearestSegment(v.Transcript, timestamp); ok {
			segments = []Segment{seg}
		}
	}
	return Window{Segments: segments, Text: RenderSegments(segments)}
}

func windowSegments(transcript []Segment, timestamp int) []Segment {
	startRange := max(0, timestamp-WindowRadius)
	endRange := timestamp + WindowRadius

	out := []Segment{}
	for _, seg := range transcript {
		startsInside := seg.Start >= startRange && seg.Start <= endRange
		endsInside := seg.End >= startRange && seg.End <= endRange
		spans := seg.Start <= startRange && seg.End >= endRange
		if startsInside || endsInside || spans {
			out = append(out, seg)
		}
	}
	return out
}

func nearestSegment(transcript []Segment, timestamp int) (Segment, bool) {
	var (
		best    Segment
		bestD   int
		matched bool
	)
	for _, seg := range transcript {
		d := min(abs(seg.Start-timestamp), abs(seg.End-timestamp))
		if !matched || d < bestD {
			best, bestD, matched = seg, d, true
		}
	}
	return best, matched
}

// RenderSegments formats segments as "[m:ss-m:ss] text" lines, each
// newline-terminated. It returns NoContentText for an empty slice.
func RenderSegments(segments []Segment) string {
	if len(segments) == 0 {
		return NoContentText
	}
	var b strings.Builder
	for _, seg := range segments {
		b.WriteString(fmt.Sprintf("[%s-%s] %s\n", FormatClock(seg.Start), FormatClock(seg.End), seg.Text))
	}
	return b.String()
}

// FormatClock renders seconds as m:ss with unpadded minutes.
// Negative inputs are clamped to zero.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
