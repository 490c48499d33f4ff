package tutor

import "time"

// VideoID uniquely identifies a video in the catalog (e.g. "video_001").
type VideoID string

// Segment is one timestamped line of transcript text. Start and End are whole
// seconds; End >= Start is expected but not enforced.
type Segment struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Text  string `json:"text"`
}

// Video is a single catalog entry. Videos are never mutated once a Catalog
// has been built from them.
type Video struct {
	ID                VideoID   `json:"id"`
	Title             string    `json:"title"`
	Description       string    `json:"description,omitempty"`
	Topics            []string  `json:"topics"`
	Keywords          []string  `json:"keywords"`
	DurationSeconds   float64   `json:"duration_seconds"`
	DurationFormatted string    `json:"duration"`
	URL               string    `json:"url"`
	SubtitleURL       string    `json:"subtitle_url,omitempty"`
	Transcript        []Segment `json:"transcript"`
}

// SearchResult is a Video annotated with its relevance score for one query.
type SearchResult struct {
	Video
	Score int `json:"score"`
}

// Window is the transcript content around a playback timestamp.
// Text is NoContentText when no segment was found.
type Window struct {
	Segments []Segment `json:"segments"`
	Text     string    `json:"text"`
}

// Found reports whether the window holds at least one segment.
func (w Window) Found() bool { return len(w.Segments) > 0 }

// Metadata describes how and when a catalog document was produced.
// LastUpdated is kept as written (ISO 8601, possibly without a zone).
type Metadata struct {
	TotalVideos     int    `json:"total_videos"`
	LastUpdated     string `json:"last_updated"`
	MinioBucket     string `json:"minio_bucket,omitempty"`
	MinioVideosPath string `json:"minio_videos_path,omitempty"`
	MinioEndpoint   string `json:"minio_endpoint,omitempty"`
}

// Timestamp formats t the way catalog documents record times.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// Document is the catalog file format written by the ingestion job and served
// by GET /catalog: {"videos": [...], "metadata": {...}}.
type Document struct {
	Videos   []Record `json:"videos"`
	Metadata Metadata `json:"metadata"`
}

// Record is a video as produced by ingestion. Times are fractional seconds;
// SubtitleFile is relative to the data directory.
type Record struct {
	ID                string          `json:"id"`
	Title             string          `json:"title"`
	Description       string          `json:"description,omitempty"`
	Filename          string          `json:"filename,omitempty"`
	URL               string          `json:"url"`
	Duration          float64         `json:"duration"`
	DurationFormatted string          `json:"duration_formatted"`
	Topics            []string        `json:"topics"`
	Keywords          []string        `json:"keywords"`
	Transcript        []RecordSegment `json:"transcript"`
	TranscriptText    string          `json:"transcript_text,omitempty"`
	SubtitleFile      string          `json:"subtitle_file,omitempty"`
	Language          string          `json:"language,omitempty"`
	CreatedAt         string          `json:"created_at,omitempty"`
	TranscribedAt     string          `json:"transcribed_at,omitempty"`
}

// RecordSegment is a transcript segment with fractional-second bounds.
type RecordSegment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}
