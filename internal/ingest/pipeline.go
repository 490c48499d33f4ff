// Package ingest builds the video catalog offline: it lists source videos in
// object storage, transcribes them, derives searchable metadata, writes
// WebVTT subtitles, and produces the catalog document the server loads.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"video-tutor/internal/platform/config"
	"video-tutor/internal/tutor"

	"golang.org/x/sync/errgroup"
)

// ErrNoVideos is returned when there is nothing to put in the catalog.
var ErrNoVideos = errors.New("no videos")

// SubtitlesDir is where subtitles are written, relative to the data directory.
const SubtitlesDir = "subtitles"

// Config controls a pipeline run.
type Config struct {
	Bucket      string `validate:"required"`
	Prefix      string
	Endpoint    string
	MaxVideos   int    `validate:"gte=0"`
	Concurrency int    `validate:"gte=1,lte=16"`
	DataDir     string `validate:"required"`
}

// Pipeline turns stored videos into catalog records.
type Pipeline struct {
	store       ObjectStore
	transcriber Transcriber
	extractor   MetadataExtractor
	cfg         Config
	log         *slog.Logger
	now         func() time.Time
}

// NewPipeline validates cfg and returns a Pipeline.
func NewPipeline(store ObjectStore, tr Transcriber, ex MetadataExtractor, cfg Config, log *slog.Logger) (*Pipeline, error) {
	if cfg.Concurrency == 0 {
		cfg.Concurrency = 1
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("ingest: invalid config: %w", err)
	}
	return &Pipeline{
		store:       store,
		transcriber: tr,
		extractor:   ex,
		cfg:         cfg,
		log:         log,
		now:         time.Now,
	}, nil
}

// progress tracks finished videos for ETA logging. Skipped videos count as
// finished; only the remaining ones feed the estimate.
type progress struct {
	mu       sync.Mutex
	total    int
	finished int
	failed   int
	start    time.Time
}

type progressStep struct {
	finished int
	failed   int
	elapsed  time.Duration
	eta      time.Duration
}

func (p *progress) done(ok bool, now time.Time) progressStep {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.finished++
	if !ok {
		p.failed++
	}
	st := progressStep{finished: p.finished, failed: p.failed, elapsed: now.Sub(p.start)}
	avg := st.elapsed / time.Duration(p.finished)
	st.eta = avg * time.Duration(p.total-p.finished)
	return st
}

// Run processes every selected video and returns the catalog document.
// Videos that fail are logged and left out; ids still follow listing order,
// so a skipped video leaves a gap rather than renumbering the rest.
func (p *Pipeline) Run(ctx context.Context) (*tutor.Document, error) {
	prefix := NormalizePrefix(p.cfg.Prefix)
	objects, err := p.store.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	videos := SelectVideos(objects, p.cfg.MaxVideos)
	if len(videos) == 0 {
		return nil, fmt.Errorf("ingest: no .mp4 objects in %s/%s: %w", p.cfg.Bucket, prefix, ErrNoVideos)
	}
	p.log.Info("videos selected",
		slog.Int("count", len(videos)),
		slog.Int("limit", p.cfg.MaxVideos),
		slog.String("bucket", p.cfg.Bucket),
		slog.String("prefix", prefix))

	if err := os.MkdirAll(filepath.Join(p.cfg.DataDir, SubtitlesDir), 0o755); err != nil {
		return nil, fmt.Errorf("ingest: create subtitles dir: %w", err)
	}

	records := make([]*tutor.Record, len(videos))
	prog := &progress{total: len(videos), start: time.Now()}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)
	for i, obj := range videos {
		id := fmt.Sprintf("video_%03d", i+1)
		g.Go(func() error {
			started := time.Now()
			rec, err := p.processVideo(gctx, id, obj)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				p.log.Warn("video skipped",
					slog.String("video_id", id),
					slog.String("key", obj.Key),
					slog.String("error", err.Error()))
			}
			records[i] = rec

			st := prog.done(err == nil, time.Now())
			p.log.Info("progress",
				slog.String("video_id", id),
				slog.String("took", FormatETA(time.Since(started).Seconds())),
				slog.String("elapsed", FormatETA(st.elapsed.Seconds())),
				slog.String("eta", FormatETA(st.eta.Seconds())),
				slog.Int("processed", st.finished),
				slog.Int("skipped", st.failed),
				slog.Int("total", len(videos)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}

	doc := &tutor.Document{Videos: []tutor.Record{}}
	topics, keywords := 0, 0
	for _, rec := range records {
		if rec == nil {
			continue
		}
		doc.Videos = append(doc.Videos, *rec)
		topics += len(rec.Topics)
		keywords += len(rec.Keywords)
	}
	if len(doc.Videos) == 0 {
		return nil, fmt.Errorf("ingest: none of %d videos processed: %w", len(videos), ErrNoVideos)
	}
	doc.Metadata = tutor.Metadata{
		TotalVideos:     len(doc.Videos),
		LastUpdated:     tutor.Timestamp(p.now()),
		MinioBucket:     p.cfg.Bucket,
		MinioVideosPath: p.cfg.Prefix,
		MinioEndpoint:   p.cfg.Endpoint,
	}

	p.log.Info("ingestion finished",
		slog.Int("processed", len(doc.Videos)),
		slog.Int("selected", len(videos)),
		slog.Int("topics", topics),
		slog.Int("keywords", keywords))
	return doc, nil
}

func (p *Pipeline) processVideo(ctx context.Context, id string, obj Object) (*tutor.Record, error) {
	log := p.log.With(slog.String("video_id", id), slog.String("key", obj.Key))

	tmp, err := os.CreateTemp("", "ingest-*"+path.Ext(obj.Key))
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	err = p.store.Download(ctx, obj.Key, tmp)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, err
	}
	log.Debug("downloaded", slog.Int64("bytes", obj.Size))

	tr, err := p.transcriber.Transcribe(ctx, tmp.Name())
	if err != nil {
		return nil, err
	}

	subtitleFile := path.Join(SubtitlesDir, id+".vtt")
	vtt := GenerateVTT(tr.Segments)
	if err := os.WriteFile(filepath.Join(p.cfg.DataDir, filepath.FromSlash(subtitleFile)), []byte(vtt), 0o644); err != nil {
		return nil, fmt.Errorf("write subtitle: %w", err)
	}

	md, err := p.extractor.Extract(ctx, obj.Key, tr.Text)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Warn("metadata extraction failed, using fallback", slog.String("error", err.Error()))
		md = FallbackMetadata(obj.Key)
	}
	if md.Keywords == nil {
		md.Keywords = []string{}
	}
	log.Info("metadata extracted", slog.Int("topics", len(md.Topics)), slog.Int("keywords", len(md.Keywords)))

	rec := &tutor.Record{
		ID:                id,
		Title:             md.Title,
		Description:       md.Description,
		Filename:          obj.Key,
		URL:               p.store.URL(obj.Key),
		Duration:          tr.Duration,
		DurationFormatted: FormatDuration(tr.Duration),
		Topics:            md.Topics,
		Keywords:          md.Keywords,
		Transcript:        tr.Segments,
		TranscriptText:    tr.Text,
		SubtitleFile:      subtitleFile,
		Language:          tr.Language,
		TranscribedAt:     tutor.Timestamp(p.now()),
	}
	if !obj.LastModified.IsZero() {
		rec.CreatedAt = tutor.Timestamp(obj.LastModified)
	}
	return rec, nil
}

// WriteDocument writes doc as indented JSON to path, replacing it atomically.
func WriteDocument(path string, doc *tutor.Document) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("ingest: encode document: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ingest: create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".videos-*.json")
	if err != nil {
		return fmt.Errorf("ingest: temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("ingest: write document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("ingest: write document: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("ingest: replace %s: %w", path, err)
	}
	return nil
}
