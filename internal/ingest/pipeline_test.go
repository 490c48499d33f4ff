package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"video-tutor/internal/platform/logger"
	"video-tutor/internal/tutor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	objects []Object
	listErr error
	failing map[string]bool
}

func (s *fakeStore) List(_ context.Context, prefix string) ([]Object, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []Object
	for _, o := range s.objects {
		if strings.HasPrefix(o.Key, prefix) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *fakeStore) Download(_ context.Context, key string, w io.Writer) error {
	if s.failing[key] {
		return errors.New("download failed")
	}
	_, err := io.WriteString(w, "media:"+key)
	return err
}

func (s *fakeStore) URL(key string) string { return "http://minio.local/videos/" + key }

// fakeTranscriber reads back the bytes fakeStore wrote, proving the file was
// downloaded before transcription.
type fakeTranscriber struct {
	mu    sync.Mutex
	paths []string
}

func (f *fakeTranscriber) Transcribe(_ context.Context, path string) (*Transcript, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.paths = append(f.paths, path)
	f.mu.Unlock()

	key := strings.TrimPrefix(string(b), "media:")
	return &Transcript{
		Segments: []tutor.RecordSegment{
			{Text: "Pembuka " + key, Start: 0, End: 4.5},
			{Text: "Materi inti", Start: 4.5, End: 65.2},
		},
		Text:     "Pembuka " + key + " Materi inti",
		Duration: 65.2,
		Language: "id",
	}, nil
}

type fakeExtractor struct {
	fail map[string]bool
}

func (f fakeExtractor) Extract(_ context.Context, key, transcript string) (VideoMetadata, error) {
	if f.fail[key] {
		return VideoMetadata{}, errors.New("model unavailable")
	}
	return VideoMetadata{
		Title:       "Judul " + fileStem(key),
		Description: transcript,
		Topics:      []string{"gaya", "gerak"},
		Keywords:    []string{"newton"},
	}, nil
}

func newTestPipeline(t *testing.T, store ObjectStore, ex MetadataExtractor, cfg Config) (*Pipeline, *fakeTranscriber) {
	t.Helper()
	if cfg.Bucket == "" {
		cfg.Bucket = "videos"
	}
	if cfg.DataDir == "" {
		cfg.DataDir = t.TempDir()
	}
	tr := &fakeTranscriber{}
	p, err := NewPipeline(store, tr, ex, cfg, logger.Discard())
	require.NoError(t, err)
	p.now = func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) }
	return p, tr
}

func TestNewPipeline_InvalidConfig(t *testing.T) {
	_, err := NewPipeline(&fakeStore{}, &fakeTranscriber{}, fakeExtractor{}, Config{DataDir: t.TempDir()}, logger.Discard())
	require.Error(t, err)

	_, err = NewPipeline(&fakeStore{}, &fakeTranscriber{}, fakeExtractor{}, Config{Bucket: "b", DataDir: "d", MaxVideos: -1}, logger.Discard())
	require.Error(t, err)
}

func TestPipeline_Run(t *testing.T) {
	modified := time.Date(2024, 4, 2, 8, 30, 0, 0, time.UTC)
	store := &fakeStore{objects: []Object{
		{Key: "fisika/hukum_newton.mp4", Size: 300, LastModified: modified},
		{Key: "fisika/notes.txt", Size: 1},
		{Key: "fisika/energi-kinetik.MP4", Size: 100},
		{Key: "kimia/atom.mp4", Size: 50},
		{Key: "fisika/gelombang.mp4", Size: 900},
	}}
	dataDir := t.TempDir()
	p, tr := newTestPipeline(t, store, fakeExtractor{}, Config{
		Prefix:      "fisika",
		Endpoint:    "minio.local",
		MaxVideos:   2,
		Concurrency: 2,
		DataDir:     dataDir,
	})

	doc, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, doc.Videos, 2)

	// Smallest first, ids in that order.
	first, second := doc.Videos[0], doc.Videos[1]
	assert.Equal(t, "video_001", first.ID)
	assert.Equal(t, "fisika/energi-kinetik.MP4", first.Filename)
	assert.Equal(t, "video_002", second.ID)
	assert.Equal(t, "fisika/hukum_newton.mp4", second.Filename)

	assert.Equal(t, "Judul hukum_newton", second.Title)
	assert.Equal(t, "http://minio.local/videos/fisika/hukum_newton.mp4", second.URL)
	assert.Equal(t, 65.2, second.Duration)
	assert.Equal(t, "1:05", second.DurationFormatted)
	assert.Equal(t, []string{"gaya", "gerak"}, second.Topics)
	assert.Equal(t, "id", second.Language)
	assert.Equal(t, "subtitles/video_002.vtt", second.SubtitleFile)
	assert.Equal(t, "2024-04-02T08:30:00Z", second.CreatedAt)
	assert.Equal(t, "2024-05-01T10:00:00Z", second.TranscribedAt)
	assert.Empty(t, first.CreatedAt)
	require.Len(t, second.Transcript, 2)

	assert.Equal(t, tutor.Metadata{
		TotalVideos:     2,
		LastUpdated:     "2024-05-01T10:00:00Z",
		MinioBucket:     "videos",
		MinioVideosPath: "fisika",
		MinioEndpoint:   "minio.local",
	}, doc.Metadata)

	vtt, err := os.ReadFile(filepath.Join(dataDir, "subtitles", "video_002.vtt"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(vtt), "WEBVTT\n\n1\n00:00:00.000 --> 00:00:04.500\n"))

	// Temp downloads are cleaned up.
	require.Len(t, tr.paths, 2)
	for _, path := range tr.paths {
		_, err := os.Stat(path)
		assert.True(t, os.IsNotExist(err), "temp file %s left behind", path)
	}
}

func TestPipeline_Run_SkipsFailures(t *testing.T) {
	store := &fakeStore{
		objects: []Object{
			{Key: "a.mp4", Size: 1},
			{Key: "b.mp4", Size: 2},
			{Key: "c.mp4", Size: 3},
		},
		failing: map[string]bool{"b.mp4": true},
	}
	p, _ := newTestPipeline(t, store, fakeExtractor{fail: map[string]bool{"c.mp4": true}}, Config{})

	doc, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, doc.Videos, 2)
	assert.Equal(t, 2, doc.Metadata.TotalVideos)

	assert.Equal(t, "video_001", doc.Videos[0].ID)
	// b.mp4 failed; c.mp4 keeps its listing position.
	assert.Equal(t, "video_003", doc.Videos[1].ID)
	assert.Equal(t, "C", doc.Videos[1].Title)
	assert.Equal(t, "Video pembelajaran: C", doc.Videos[1].Description)
	assert.Equal(t, []string{}, doc.Videos[1].Keywords)
}

func TestPipeline_Run_NoVideos(t *testing.T) {
	p, _ := newTestPipeline(t, &fakeStore{objects: []Object{{Key: "readme.md"}}}, fakeExtractor{}, Config{})
	_, err := p.Run(context.Background())
	assert.ErrorIs(t, err, ErrNoVideos)

	failing := &fakeStore{
		objects: []Object{{Key: "a.mp4"}},
		failing: map[string]bool{"a.mp4": true},
	}
	p, _ = newTestPipeline(t, failing, fakeExtractor{}, Config{})
	_, err = p.Run(context.Background())
	assert.ErrorIs(t, err, ErrNoVideos)
}

func TestPipeline_Run_ListError(t *testing.T) {
	listErr := errors.New("bucket missing")
	p, _ := newTestPipeline(t, &fakeStore{listErr: listErr}, fakeExtractor{}, Config{})
	_, err := p.Run(context.Background())
	assert.ErrorIs(t, err, listErr)
}

func TestPipeline_Run_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := &fakeStore{
		objects: []Object{{Key: "a.mp4"}},
		failing: map[string]bool{"a.mp4": true},
	}
	p, _ := newTestPipeline(t, store, fakeExtractor{}, Config{})
	_, err := p.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWriteDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "videos.json")
	doc := &tutor.Document{
		Videos: []tutor.Record{{
			ID:       "video_001",
			Title:    "Gaya & Gerak",
			URL:      "http://x/v.mp4",
			Topics:   []string{"gaya"},
			Keywords: []string{},
		}},
		Metadata: tutor.Metadata{TotalVideos: 1, LastUpdated: "2024-05-01T10:00:00Z"},
	}

	require.NoError(t, WriteDocument(path, doc))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"title": "Gaya & Gerak"`)

	var got tutor.Document
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "video_001", got.Videos[0].ID)

	// Overwrite leaves no temp files next to the document.
	require.NoError(t, WriteDocument(path, doc))
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestProgress_CountsSkippedVideos(t *testing.T) {
	start := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	prog := &progress{total: 4, start: start}

	st := prog.done(false, start.Add(10*time.Second))
	assert.Equal(t, 1, st.finished)
	assert.Equal(t, 1, st.failed)
	assert.Equal(t, 30*time.Second, st.eta)

	st = prog.done(true, start.Add(20*time.Second))
	assert.Equal(t, 2, st.finished)
	assert.Equal(t, 20*time.Second, st.elapsed)
	assert.Equal(t, 20*time.Second, st.eta)

	prog.done(false, start.Add(30*time.Second))
	st = prog.done(true, start.Add(40*time.Second))
	assert.Equal(t, 4, st.finished)
	assert.Equal(t, 2, st.failed)
	assert.Zero(t, st.eta)
}
