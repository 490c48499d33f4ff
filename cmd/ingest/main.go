// Command ingest builds the video catalog from a MinIO bucket: it transcribes
// every video, extracts searchable metadata, writes subtitles, and saves the
// catalog document (and optionally an SQLite copy).
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"video-tutor/internal/ingest"
	"video-tutor/internal/platform/config"
	"video-tutor/internal/platform/logger"
	"video-tutor/internal/tutor"
)

func main() {
	_ = config.Load()

	log := logger.New(config.GetEnv("LOG_LEVEL", "info"), config.GetEnv("LOG_FORMAT", "text"))

	storeCfg := ingest.StoreConfig{
		Endpoint:  config.GetEnv("MINIO_ENDPOINT", "play.min.io"),
		AccessKey: config.GetEnv("MINIO_ACCESS_KEY", ""),
		SecretKey: config.GetEnv("MINIO_SECRET_KEY", ""),
		Bucket:    config.GetEnv("MINIO_BUCKET", "physics-videos"),
		Region:    config.GetEnv("MINIO_REGION", "us-east-1"),
		Secure:    config.GetEnvBool("MINIO_SECURE", true),
	}
	if err := config.Validate(storeCfg); err != nil {
		log.Error("invalid MinIO configuration", "error", err)
		os.Exit(1)
	}

	apiKey := config.GetEnv("OPENAI_API_KEY", "")
	if apiKey == "" {
		log.Error("OPENAI_API_KEY is required")
		os.Exit(1)
	}

	dataDir := config.GetEnv("DATA_DIR", "data")
	videosFile := config.GetEnv("VIDEOS_FILE", filepath.Join(dataDir, "videos.json"))
	catalogDB := config.GetEnv("CATALOG_SQLITE", "")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := ingest.NewS3Store(ctx, storeCfg)
	if err != nil {
		log.Error("object store", "error", err)
		os.Exit(1)
	}

	transcriber := ingest.NewOpenAITranscriber(apiKey,
		config.GetEnv("TRANSCRIBE_MODEL", "whisper-1"),
		config.GetEnv("TRANSCRIBE_LANGUAGE", "id"))
	extractor := ingest.NewOpenAIExtractor(apiKey, config.GetEnv("METADATA_MODEL", "gpt-5-nano-2025-08-07"))

	pipeline, err := ingest.NewPipeline(store, transcriber, extractor, ingest.Config{
		Bucket:      storeCfg.Bucket,
		Prefix:      config.GetEnv("MINIO_VIDEOS_PATH", ""),
		Endpoint:    storeCfg.Endpoint,
		MaxVideos:   config.GetEnvInt("MAX_VIDEOS", 0),
		Concurrency: config.GetEnvInt("INGEST_CONCURRENCY", 1),
		DataDir:     dataDir,
	}, log)
	if err != nil {
		log.Error("pipeline", "error", err)
		os.Exit(1)
	}

	start := time.Now()
	doc, err := pipeline.Run(ctx)
	if err != nil {
		log.Error("ingestion failed", "error", err)
		os.Exit(1)
	}

	if err := ingest.WriteDocument(videosFile, doc); err != nil {
		log.Error("write catalog", "error", err)
		os.Exit(1)
	}
	log.Info("catalog written", "path", videosFile, "videos", len(doc.Videos))

	if catalogDB != "" {
		if err := saveSQLite(ctx, catalogDB, doc); err != nil {
			log.Error("save catalog database", "path", catalogDB, "error", err)
			os.Exit(1)
		}
		log.Info("catalog database updated", "path", catalogDB)
	}

	log.Info("done", "took", ingest.FormatETA(time.Since(start).Seconds()))
}

func saveSQLite(ctx context.Context, path string, doc *tutor.Document) error {
	db, err := tutor.OpenSQLiteStore(path)
	if err != nil {
		return err
	}
	defer db.Close()
	return db.Save(ctx, doc)
}
