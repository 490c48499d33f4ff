package tutor

import (
	"encoding/base64"
	"os"
	"path/filepath"
)

// Catalog is the immutable, in-memory set of videos available to a session.
// It has no mutation methods, so it is safe to share between goroutines and
// sessions without locking.
type Catalog struct {
	videos []Video
	byID   map[VideoID]int
}

// NewCatalog builds a Catalog from videos, keeping their order. Absent topics,
// keywords and transcripts are normalized to empty slices here so that search
// and windowing can assume total fields. If an id appears more than once,
// lookups resolve to its first occurrence.
func NewCatalog(videos []Video) *Catalog {
	c := &Catalog{
		videos: make([]Video, 0, len(videos)),
		byID:   make(map[VideoID]int, len(videos)),
	}
	for _, v := range videos {
		v = normalizeVideo(v)
		if _, exists := c.byID[v.ID]; !exists {
			c.byID[v.ID] = len(c.videos)
		}
		c.videos = append(c.videos, v)
	}
	return c
}

// Len returns the number of videos in the catalog.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.videos)
}

// Video returns the video with the given id.
func (c *Catalog) Video(id VideoID) (Video, bool) {
	if c == nil {
		return Video{}, false
	}
	i, ok := c.byID[id]
	if !ok {
		return Video{}, false
	}
	return c.videos[i], true
}

// Videos returns the catalog entries in catalog order. The slice is a copy;
// the videos it holds share their inner slices with the catalog and must be
// treated as read-only.
func (c *Catalog) Videos() []Video {
	if c == nil {
		return nil
	}
	out := make([]Video, len(c.videos))
	copy(out, c.videos)
	return out
}

func normalizeVideo(v Video) Video {
	v.Topics = cloneStrings(v.Topics)
	v.Keywords = cloneStrings(v.Keywords)
	if v.Transcript == nil {
		v.Transcript = []Segment{}
	} else {
		v.Transcript = append([]Segment(nil), v.Transcript...)
	}
	return v
}

func cloneStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return append([]string(nil), in...)
}

// SubtitleResolver maps a record's subtitle file reference to an embeddable
// subtitle URL. It returns "" when the subtitle is unavailable.
type SubtitleResolver func(subtitleFile string) string

// DataDirSubtitles returns a SubtitleResolver that reads VTT files relative to
// dataDir and inlines them as base64 data URIs, so players need no extra
// request to load them.
func DataDirSubtitles(dataDir string) SubtitleResolver {
	return func(subtitleFile string) string {
		if subtitleFile == "" {
			return ""
		}
		b, err := os.ReadFile(filepath.Join(dataDir, filepath.FromSlash(subtitleFile)))
		if err != nil {
			return ""
		}
		return "data:text/vtt;base64," + base64.StdEncoding.EncodeToString(b)
	}
}

// Video converts an ingestion record into a catalog Video. Segment bounds are
// truncated to whole seconds.
func (r Record) Video(subtitles SubtitleResolver) Video {
	v := Video{
		ID:                VideoID(r.ID),
		Title:             r.Title,
		Description:       r.Description,
		Topics:            r.Topics,
		Keywords:          r.Keywords,
		DurationSeconds:   r.Duration,
		DurationFormatted: r.DurationFormatted,
		URL:               r.URL,
		Transcript:        make([]Segment, 0, len(r.Transcript)),
	}
	if subtitles != nil {
		v.SubtitleURL = subtitles(r.SubtitleFile)
	}
	for _, seg := range r.Transcript {
		v.Transcript = append(v.Transcript, Segment{
			Start: int(seg.Start),
			End:   int(seg.End),
			Text:  seg.Text,
		})
	}
	return v
}

// CatalogFromDocument builds a Catalog from an ingestion document.
func CatalogFromDocument(doc *Document, subtitles SubtitleResolver) *Catalog {
	if doc == nil {
		return NewCatalog(nil)
	}
	videos := make([]Video, 0, len(doc.Videos))
	for _, r := range doc.Videos {
		videos = append(videos, r.Video(subtitles))
	}
	return NewCatalog(videos)
}
