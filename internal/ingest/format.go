package ingest

import (
	"fmt"
	"math"
	"path"
	"strings"
	"unicode"

	"video-tutor/internal/tutor"
)

// FormatDuration renders seconds as H:MM:SS, or M:SS under an hour.
func FormatDuration(seconds float64) string {
	total := int(math.Max(0, seconds))
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// FormatETA renders seconds as zero-padded HH:MM:SS.
func FormatETA(seconds float64) string {
	total := int(math.Max(0, seconds))
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// FormatVTTTimestamp renders seconds as a WebVTT cue time, HH:MM:SS.mmm.
func FormatVTTTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	h := int(seconds / 3600)
	m := int(math.Mod(seconds, 3600) / 60)
	s := math.Mod(seconds, 60)
	return fmt.Sprintf("%02d:%02d:%06.3f", h, m, s)
}

// GenerateVTT renders segments as a WebVTT document with numbered cues.
func GenerateVTT(segments []tutor.RecordSegment) string {
	lines := []string{"WEBVTT", ""}
	for i, seg := range segments {
		lines = append(lines,
			fmt.Sprint(i+1),
			FormatVTTTimestamp(seg.Start)+" --> "+FormatVTTTimestamp(seg.End),
			seg.Text,
			"",
		)
	}
	return strings.Join(lines, "\n")
}

func fileStem(key string) string {
	base := path.Base(key)
	return strings.TrimSuffix(base, path.Ext(base))
}

// TitleFromFilename turns "hukum_newton-1.mp4" into "Hukum Newton 1".
func TitleFromFilename(key string) string {
	name := strings.NewReplacer("_", " ", "-", " ").Replace(fileStem(key))
	return titleCase(name)
}

// titleCase upper-cases the first letter of every run of letters and
// lower-cases the rest, so "2nd law" becomes "2Nd Law".
func titleCase(s string) string {
	var b strings.Builder
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
			continue
		}
		b.WriteRune(r)
		prevLetter = false
	}
	return b.String()
}

// KeywordsFromFilename splits the file name on separators and keeps the
// lowercase words longer than two characters.
func KeywordsFromFilename(key string) []string {
	name := strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(strings.ToLower(fileStem(key)))
	words := []string{}
	for _, w := range strings.Fields(name) {
		if len([]rune(w)) > 2 {
			words = append(words, w)
		}
	}
	return words
}
