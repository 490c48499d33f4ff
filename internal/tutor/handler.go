package tutor

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"video-tutor/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
)

// Handler exposes catalog endpoints using go-chi.
type Handler struct {
	svc     *Service
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewHandler returns a Handler that uses the given Service, Logger, and optional Metrics.
// Metrics may be nil to disable metric recording (e.g. in tests).
func NewHandler(svc *Service, log *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{svc: svc, log: log, metrics: m}
}

// Routes mounts the catalog endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/catalog", h.GetCatalog)
	r.Get("/search", h.Search)
	r.Route("/videos", func(r chi.Router) {
		r.Get("/", h.ListVideos)
		r.Get("/{video_id}", h.GetVideo)
		r.Get("/{video_id}/content", h.GetContent)
	})
}

type videoSummary struct {
	ID       VideoID  `json:"id"`
	Title    string   `json:"title"`
	Topics   []string `json:"topics"`
	Duration string   `json:"duration"`
	URL      string   `json:"url"`
	Segments int      `json:"segments"`
}

type searchHit struct {
	ID     VideoID  `json:"id"`
	Title  string   `json:"title"`
	Topics []string `json:"topics"`
	URL    string   `json:"url"`
	Score  int      `json:"score"`
}

type searchResponse struct {
	Query   string      `json:"query"`
	Results []searchHit `json:"results"`
}

type contentResponse struct {
	VideoID    VideoID   `json:"video_id"`
	VideoTitle string    `json:"video_title"`
	Timestamp  int       `json:"timestamp"`
	Found      bool      `json:"found"`
	Segments   []Segment `json:"segments"`
	Text       string    `json:"text"`
}

// GetCatalog handles GET /catalog. It serves the ingestion document so this
// service can itself be used as a catalog API by other instances.
func (h *Handler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Document())
}

// ListVideos handles GET /videos.
func (h *Handler) ListVideos(w http.ResponseWriter, r *http.Request) {
	videos := h.svc.Catalog().Videos()
	out := make([]videoSummary, 0, len(videos))
	for _, v := range videos {
		out = append(out, videoSummary{
			ID:       v.ID,
			Title:    v.Title,
			Topics:   v.Topics,
			Duration: v.DurationFormatted,
			URL:      v.URL,
			Segments: len(v.Transcript),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// GetVideo handles GET /videos/{video_id}.
func (h *Handler) GetVideo(w http.ResponseWriter, r *http.Request) {
	id := VideoID(chi.URLParam(r, "video_id"))
	if id == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	v, err := h.svc.Video(id)
	if err != nil {
		h.writeError(w, err, slog.String("video_id", string(id)))
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// GetContent handles GET /videos/{video_id}/content?t=45.
// A missing t means the start of the video.
func (h *Handler) GetContent(w http.ResponseWriter, r *http.Request) {
	id := VideoID(chi.URLParam(r, "video_id"))
	if id == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	ts := 0
	if raw := r.URL.Query().Get("t"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.log.Debug("invalid timestamp", slog.String("t", raw))
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		ts = n
	}

	win, err := h.svc.VideoContentAt(id, ts)
	if err != nil {
		h.writeError(w, err, slog.String("video_id", string(id)), slog.Int("timestamp", ts))
		return
	}
	v, _ := h.svc.Video(id)
	writeJSON(w, http.StatusOK, contentResponse{
		VideoID:    id,
		VideoTitle: v.Title,
		Timestamp:  ts,
		Found:      win.Found(),
		Segments:   win.Segments,
		Text:       win.Text,
	})
}

// Search handles GET /search?q=gaya+gesek.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	results := h.svc.SearchVideos(q)

	hits := make([]searchHit, 0, len(results))
	for _, res := range results {
		hits = append(hits, searchHit{
			ID:     res.ID,
			Title:  res.Title,
			Topics: res.Topics,
			URL:    res.URL,
			Score:  res.Score,
		})
	}
	if h.metrics != nil {
		h.metrics.ObserveSearch(len(hits) > 0)
	}
	h.log.Debug("search", slog.String("query", q), slog.Int("results", len(hits)))
	writeJSON(w, http.StatusOK, searchResponse{Query: q, Results: hits})
}

func (h *Handler) writeError(w http.ResponseWriter, err error, attrs ...any) {
	switch {
	case errors.Is(err, ErrVideoNotFound):
		h.log.Debug("video not found", attrs...)
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	default:
		h.log.Error("catalog request failed", append(attrs, slog.String("error", err.Error()))...)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
