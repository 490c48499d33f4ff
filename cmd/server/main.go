package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"video-tutor/internal/mcpserver"
	"video-tutor/internal/platform/config"
	"video-tutor/internal/platform/logger"
	"video-tutor/internal/platform/metrics"
	"video-tutor/internal/realtime"
	"video-tutor/internal/session"
	"video-tutor/internal/tutor"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = config.Load()

	port := config.GetEnv("PORT", "8080")
	logLevel := config.GetEnv("LOG_LEVEL", "info")
	logFormat := config.GetEnv("LOG_FORMAT", "json")
	dataDir := config.GetEnv("DATA_DIR", "data")
	videosFile := config.GetEnv("VIDEOS_FILE", "data/videos.json")
	catalogURL := config.GetEnv("VIDEO_DATA_API_URL", "")
	catalogDB := config.GetEnv("CATALOG_SQLITE", "")
	fetchTimeout := config.GetEnvDuration("CATALOG_FETCH_TIMEOUT", tutor.DefaultFetchTimeout)
	apiKey := config.GetEnv("OPENAI_API_KEY", "")
	assistantFile := config.GetEnv("ASSISTANT_CONFIG", "assistant.yaml")
	origins := config.GetEnvList("CORS_ALLOWED_ORIGINS", []string{"*"})
	maxIdle := config.GetEnvDuration("SESSION_MAX_IDLE", 30*time.Minute)

	log := logger.New(logLevel, logFormat)

	assistant, err := config.LoadAssistant(assistantFile)
	if err != nil {
		log.Error("load assistant config", "path", assistantFile, "error", err)
		os.Exit(1)
	}

	// Catalog: API, then SQLite, then the local file, then empty.
	var sources []tutor.Source
	if catalogURL != "" {
		sources = append(sources, tutor.NewHTTPSource(catalogURL, fetchTimeout))
	}
	if catalogDB != "" {
		db, err := tutor.OpenSQLiteStore(catalogDB)
		if err != nil {
			log.Warn("open catalog database", "path", catalogDB, "error", err)
		} else {
			defer db.Close()
			sources = append(sources, db)
		}
	}
	sources = append(sources, tutor.FileSource{Path: videosFile})

	loadCtx, cancelLoad := context.WithTimeout(context.Background(), fetchTimeout+5*time.Second)
	doc, _ := tutor.FallbackSource{Sources: sources, Log: log}.Load(loadCtx)
	cancelLoad()

	svc := tutor.NewServiceFromDocument(doc, tutor.DataDirSubtitles(dataDir))
	met := metrics.New()
	met.SetCatalogVideos(svc.Catalog().Len())

	mgr := session.NewManager(svc, log, met)
	var minter session.KeyMinter
	if apiKey != "" {
		minter = realtime.New(apiKey, realtime.WithModel(assistant.Model))
	} else {
		log.Warn("OPENAI_API_KEY not set, sessions are created without client secrets")
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met, "/metrics"))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Mcp-Session-Id"},
		ExposedHeaders: []string{"Mcp-Session-Id"},
		MaxAge:         300,
	}))

	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		met.Handler(func() { met.SetActiveSessions(mgr.Count()) }).ServeHTTP(w, r)
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	tutor.NewHandler(svc, log, met).Routes(r)
	session.NewHandler(mgr, minter, assistant, log).Routes(r)
	r.Handle("/mcp", mcpserver.New(svc, log, met).Handler())

	addr := ":" + port
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("server starting",
		"port", port,
		"videos", svc.Catalog().Len(),
		"model", assistant.Model,
		"voice", assistant.Voice,
		"log_level", logLevel,
	)

	pruneCtx, stopPrune := context.WithCancel(context.Background())
	go pruneSessions(pruneCtx, mgr, maxIdle)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, draining connections")
	stopPrune()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}

// pruneSessions drops idle sessions until ctx is done.
func pruneSessions(ctx context.Context, mgr *session.Manager, maxIdle time.Duration) {
	if maxIdle <= 0 {
		return
	}
	t := time.NewTicker(maxIdle / 2)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			mgr.Prune(maxIdle)
		}
	}
}
