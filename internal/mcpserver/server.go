// Package mcpserver exposes the video catalog as MCP tools so agents other
// than the voice assistant can search videos and read transcripts.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"video-tutor/internal/platform/metrics"
	"video-tutor/internal/toolcall"
	"video-tutor/internal/tutor"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	implName    = "video-tutor"
	implVersion = "0.1.0"

	// NameListVideos lists the catalog; the other tool names are shared
	// with the realtime assistant.
	NameListVideos = "list_videos"

	defaultSearchLimit = 5
)

// Server wraps an *mcp.Server with the catalog tools registered.
type Server struct {
	svc     *tutor.Service
	log     *slog.Logger
	metrics *metrics.Metrics
	srv     *mcp.Server
}

// New builds the MCP server over svc. Metrics may be nil.
func New(svc *tutor.Service, log *slog.Logger, m *metrics.Metrics) *Server {
	s := &Server{
		svc:     svc,
		log:     log,
		metrics: m,
		srv:     mcp.NewServer(&mcp.Implementation{Name: implName, Version: implVersion}, nil),
	}
	s.registerSearch()
	s.registerContent()
	s.registerList()
	return s
}

// MCP returns the underlying server, e.g. to run it over stdio.
func (s *Server) MCP() *mcp.Server { return s.srv }

// Handler serves the tools over the streamable HTTP transport.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return s.srv }, nil)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	sch := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		sch["required"] = required
	}
	return sch
}

// addTool registers a handler that returns a JSON-encodable value. Errors
// become tool errors, never protocol errors.
func (s *Server) addTool(tool *mcp.Tool, fn func(ctx context.Context, args json.RawMessage) (any, error)) {
	s.srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		resp, err := fn(ctx, req.Params.Arguments)
		outcome := metrics.OutcomeOK
		switch {
		case errors.Is(err, tutor.ErrVideoNotFound):
			outcome = metrics.OutcomeNotFound
		case err != nil:
			outcome = metrics.OutcomeError
		}
		if s.metrics != nil {
			s.metrics.ObserveToolCall("mcp_"+tool.Name, outcome)
		}

		if err != nil {
			s.log.Debug("mcp tool failed", slog.String("tool", tool.Name), slog.String("error", err.Error()))
			var res mcp.CallToolResult
			res.SetError(err)
			return &res, nil
		}

		data, err := json.Marshal(resp)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(fmt.Errorf("marshal: %w", err))
			return &res, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		}, nil
	})
}

func decode(args json.RawMessage, v any) error {
	if len(args) == 0 {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// --- search_video ---

type searchReq struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type searchHit struct {
	ID     tutor.VideoID `json:"id"`
	Title  string        `json:"title"`
	Topics []string      `json:"topics"`
	URL    string        `json:"url"`
	Score  int           `json:"score"`
}

func (s *Server) registerSearch() {
	tool := &mcp.Tool{
		Name:        toolcall.NameSearchVideo,
		Description: "Search the physics video library by topic or keyword. Returns videos ranked by relevance, best first.",
		InputSchema: inputSchema(map[string]any{
			"query": map[string]any{"type": "string", "description": "Topic or keywords"},
			"limit": map[string]any{"type": "integer", "description": "Maximum results (default 5)", "minimum": 1},
		}, []string{"query"}),
	}

	s.addTool(tool, func(_ context.Context, args json.RawMessage) (any, error) {
		var r searchReq
		if err := decode(args, &r); err != nil {
			return nil, err
		}
		limit := r.Limit
		if limit <= 0 {
			limit = defaultSearchLimit
		}

		results := s.svc.SearchVideos(r.Query)
		if s.metrics != nil {
			s.metrics.ObserveSearch(len(results) > 0)
		}
		if len(results) > limit {
			results = results[:limit]
		}
		hits := make([]searchHit, 0, len(results))
		for _, res := range results {
			hits = append(hits, searchHit{ID: res.ID, Title: res.Title, Topics: res.Topics, URL: res.URL, Score: res.Score})
		}
		return map[string]any{"query": r.Query, "results": hits}, nil
	})
}

// --- get_video_content ---

type contentReq struct {
	VideoID   tutor.VideoID    `json:"video_id"`
	Timestamp toolcall.Seconds `json:"timestamp"`
}

func (s *Server) registerContent() {
	tool := &mcp.Tool{
		Name:        toolcall.NameGetVideoContent,
		Description: "Get the transcript around a timestamp (±10 seconds) of a video, falling back to the nearest segment.",
		InputSchema: inputSchema(map[string]any{
			"video_id":  map[string]any{"type": "string", "description": "Video id, e.g. video_001"},
			"timestamp": map[string]any{"type": "integer", "description": "Seconds from the start", "minimum": 0},
		}, []string{"video_id", "timestamp"}),
	}

	s.addTool(tool, func(_ context.Context, args json.RawMessage) (any, error) {
		var r contentReq
		if err := decode(args, &r); err != nil {
			return nil, err
		}
		win, err := s.svc.VideoContentAt(r.VideoID, r.Timestamp.Int())
		if err != nil {
			return nil, fmt.Errorf("%w: %s", err, r.VideoID)
		}
		return map[string]any{
			"video_id":  r.VideoID,
			"timestamp": r.Timestamp.Int(),
			"found":     win.Found(),
			"segments":  win.Segments,
			"text":      win.Text,
		}, nil
	})
}

// --- list_videos ---

type listedVideo struct {
	ID       tutor.VideoID `json:"id"`
	Title    string        `json:"title"`
	Topics   []string      `json:"topics"`
	Duration string        `json:"duration"`
}

func (s *Server) registerList() {
	tool := &mcp.Tool{
		Name:        NameListVideos,
		Description: "List every video in the library with its topics and duration.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	s.addTool(tool, func(_ context.Context, _ json.RawMessage) (any, error) {
		videos := s.svc.Catalog().Videos()
		out := make([]listedVideo, 0, len(videos))
		for _, v := range videos {
			out = append(out, listedVideo{ID: v.ID, Title: v.Title, Topics: v.Topics, Duration: v.DurationFormatted})
		}
		return map[string]any{"videos": out}, nil
	})
}
