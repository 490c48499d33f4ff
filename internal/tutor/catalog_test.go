package tutor

import (
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestNewCatalog_normalizes(t *testing.T) {
	c := NewCatalog([]Video{{ID: "v", Title: "Tanpa Topik"}})
	v, ok := c.Video("v")
	if !ok {
		t.Fatal("video v not found")
	}
	if v.Topics == nil || v.Keywords == nil || v.Transcript == nil {
		t.Errorf("expected empty slices, got topics=%v keywords=%v transcript=%v", v.Topics, v.Keywords, v.Transcript)
	}
}

func TestNewCatalog_copies_input(t *testing.T) {
	topics := []string{"gaya"}
	c := NewCatalog([]Video{{ID: "v", Topics: topics}})
	topics[0] = "diubah"

	v, _ := c.Video("v")
	if v.Topics[0] != "gaya" {
		t.Errorf("catalog shares caller's slice: topics[0] = %q", v.Topics[0])
	}
}

func TestCatalog_duplicate_id_first_wins(t *testing.T) {
	c := NewCatalog([]Video{
		{ID: "v", Title: "Pertama"},
		{ID: "w", Title: "Lain"},
		{ID: "v", Title: "Kedua"},
	})
	if c.Len() != 3 {
		t.Errorf("Len = %d, want 3", c.Len())
	}
	v, _ := c.Video("v")
	if v.Title != "Pertama" {
		t.Errorf("lookup resolved to %q, want first occurrence", v.Title)
	}
}

func TestCatalog_Videos_order_and_copy(t *testing.T) {
	c := newtonCatalog()
	list := c.Videos()
	if len(list) != 3 || list[0].ID != "video_001" || list[2].ID != "video_003" {
		t.Fatalf("unexpected order: %v", list)
	}
	list[0] = Video{ID: "x"}
	if again := c.Videos(); again[0].ID != "video_001" {
		t.Errorf("Videos() exposed internal slice")
	}
}

func TestCatalog_nil(t *testing.T) {
	var c *Catalog
	if c.Len() != 0 {
		t.Error("nil catalog Len != 0")
	}
	if _, ok := c.Video("v"); ok {
		t.Error("nil catalog found a video")
	}
	if c.Videos() != nil {
		t.Error("nil catalog Videos != nil")
	}
}

func TestRecord_Video(t *testing.T) {
	dir := t.TempDir()
	vtt := []byte("WEBVTT\n\n1\n00:00:00.000 --> 00:00:04.500\nHalo\n")
	if err := os.MkdirAll(filepath.Join(dir, "subtitles"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "subtitles", "video_001.vtt"), vtt, 0o644); err != nil {
		t.Fatal(err)
	}

	r := Record{
		ID:                "video_001",
		Title:             "Hukum Newton",
		URL:               "http://minio/videos/a.mp4",
		Duration:          125.7,
		DurationFormatted: "2:05",
		Topics:            []string{"gaya"},
		Transcript: []RecordSegment{
			{Text: "Halo", Start: 0.4, End: 4.5},
			{Text: "Gaya", Start: 4.5, End: 9.99},
		},
		SubtitleFile: "subtitles/video_001.vtt",
	}

	v := r.Video(DataDirSubtitles(dir))
	if v.ID != "video_001" || v.DurationSeconds != 125.7 || v.DurationFormatted != "2:05" {
		t.Errorf("unexpected video fields: %+v", v)
	}
	want := []Segment{{Start: 0, End: 4, Text: "Halo"}, {Start: 4, End: 9, Text: "Gaya"}}
	for i, seg := range v.Transcript {
		if seg != want[i] {
			t.Errorf("segment %d = %+v, want %+v", i, seg, want[i])
		}
	}
	if v.SubtitleURL != "data:text/vtt;base64,"+base64.StdEncoding.EncodeToString(vtt) {
		t.Errorf("subtitle url = %q", v.SubtitleURL)
	}

	r.SubtitleFile = "subtitles/missing.vtt"
	if got := r.Video(DataDirSubtitles(dir)).SubtitleURL; got != "" {
		t.Errorf("missing subtitle should resolve to empty, got %q", got)
	}
	if got := r.Video(nil).SubtitleURL; got != "" {
		t.Errorf("nil resolver should leave subtitle empty, got %q", got)
	}
}

func TestService_VideoContentAt(t *testing.T) {
	svc := NewService(NewCatalog([]Video{twoSegmentVideo()}))

	w, err := svc.VideoContentAt("video_001", 45)
	if err != nil {
		t.Fatalf("VideoContentAt: %v", err)
	}
	if w.Text != "[0:40-0:50] b\n" {
		t.Errorf("text = %q", w.Text)
	}

	// Negative timestamps read from the start.
	w, _ = svc.VideoContentAt("video_001", -20)
	if len(w.Segments) != 1 || w.Segments[0].Text != "a" {
		t.Errorf("negative timestamp: got %+v", w.Segments)
	}

	_, err = svc.VideoContentAt("missing", 0)
	if !errors.Is(err, ErrVideoNotFound) {
		t.Errorf("expected ErrVideoNotFound, got %v", err)
	}
}

func TestService_SearchVideos(t *testing.T) {
	svc := NewService(newtonCatalog())
	got := svc.SearchVideos("newton")
	if len(got) != 1 || got[0].ID != "video_001" {
		t.Errorf("unexpected results: %v", ids(got))
	}
	if _, err := svc.Video("nope"); !errors.Is(err, ErrVideoNotFound) {
		t.Errorf("expected ErrVideoNotFound, got %v", err)
	}
}

func TestService_Document(t *testing.T) {
	doc := &Document{
		Videos:   []Record{{ID: "video_001", Title: "A", Transcript: []RecordSegment{{Text: "x", Start: 1.5, End: 3}}}},
		Metadata: Metadata{TotalVideos: 1, LastUpdated: "2024-01-15T10:30:00.123456"},
	}
	svc := NewServiceFromDocument(doc, nil)
	if svc.Document() != doc {
		t.Error("Document() should return the source document unchanged")
	}
	if svc.Catalog().Len() != 1 {
		t.Errorf("catalog len = %d", svc.Catalog().Len())
	}

	derived := NewService(newtonCatalog()).Document()
	if derived.Metadata.TotalVideos != 3 || len(derived.Videos) != 3 {
		t.Errorf("derived document: %+v", derived.Metadata)
	}
	if derived.Metadata.LastUpdated == "" {
		t.Error("derived document has no last_updated")
	}

	if NewService(nil).Catalog().Len() != 0 {
		t.Error("nil catalog service should be empty")
	}
}
