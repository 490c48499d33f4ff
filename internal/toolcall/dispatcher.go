package toolcall

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"video-tutor/internal/platform/metrics"
	"video-tutor/internal/tutor"
)

// CommandKind is the kind of player command.
type CommandKind string

const (
	// CommandShow loads a video and starts it at Timestamp.
	CommandShow CommandKind = "show"
	// CommandSeek moves the already loaded video to Timestamp.
	CommandSeek CommandKind = "seek"
)

// Command is an effect for the presentation layer. Video is set for
// CommandShow only.
type Command struct {
	Kind      CommandKind  `json:"kind"`
	Video     *tutor.Video `json:"video,omitempty"`
	Timestamp int          `json:"timestamp"`
}

// Player applies commands. It is the presentation collaborator: it renders
// and seeks but makes no decisions.
type Player interface {
	Apply(ctx context.Context, cmd Command)
}

// PlayerFunc adapts a function to Player.
type PlayerFunc func(ctx context.Context, cmd Command)

// Apply implements Player.
func (f PlayerFunc) Apply(ctx context.Context, cmd Command) { f(ctx, cmd) }

// Result is the outcome of one dispatched call. Output is the JSON document
// returned to the model; Command is nil when the player should not change.
type Result struct {
	CallID  string   `json:"call_id"`
	Output  string   `json:"output"`
	Command *Command `json:"command,omitempty"`
}

// Dispatcher runs tool calls for one conversation. It tracks which video is
// loaded in that conversation's player; the catalog itself stays read-only.
type Dispatcher struct {
	svc     *tutor.Service
	player  Player
	log     *slog.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	current tutor.VideoID
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithPlayer sends every produced command to p as well as returning it.
func WithPlayer(p Player) Option {
	return func(d *Dispatcher) { d.player = p }
}

// WithMetrics records tool call outcomes in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// NewDispatcher returns a Dispatcher over svc.
func NewDispatcher(svc *tutor.Service, log *slog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{svc: svc, log: log}
	for _, o := range opts {
		o(d)
	}
	return d
}

// CurrentVideo returns the id of the video loaded in the player, if any.
func (d *Dispatcher) CurrentVideo() tutor.VideoID {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

// Dispatch parses and runs call. Tool-level failures (no match, unknown
// video) are reported inside Output with "success": false; an error is
// returned only for an unknown tool name.
func (d *Dispatcher) Dispatch(ctx context.Context, call Call) (Result, error) {
	req, argsOK, err := Parse(call.Name, call.Arguments)
	if err != nil {
		d.observe(call.Name, metrics.OutcomeError)
		return Result{CallID: call.CallID}, err
	}
	if !argsOK {
		d.log.Warn("malformed tool arguments, using defaults",
			slog.String("tool", call.Name),
			slog.String("call_id", call.CallID),
			slog.String("arguments", call.Arguments))
	}
	d.log.Debug("tool call",
		slog.String("tool", call.Name),
		slog.String("call_id", call.CallID))

	var (
		out     any
		cmd     *Command
		outcome string
	)
	switch r := req.(type) {
	case SearchVideo:
		out, cmd, outcome = d.searchVideo(r)
	case NavigateVideo:
		out, cmd, outcome = d.navigateVideo(r)
	case GetVideoContent:
		out, cmd, outcome = d.getVideoContent(r)
	default:
		panic(fmt.Sprintf("toolcall: unhandled request type %T", req))
	}
	d.observe(call.Name, outcome)

	data, err := json.Marshal(out)
	if err != nil {
		return Result{CallID: call.CallID}, fmt.Errorf("toolcall: encode output: %w", err)
	}

	if cmd != nil && d.player != nil {
		d.player.Apply(ctx, *cmd)
	}
	return Result{CallID: call.CallID, Output: string(data), Command: cmd}, nil
}

// Handle adapts Dispatch to transports that only need the output string.
// Unknown tools become a failure output rather than an error.
func (d *Dispatcher) Handle(ctx context.Context, call Call) string {
	res, err := d.Dispatch(ctx, call)
	if err != nil {
		return ErrorOutput(call, err)
	}
	return res.Output
}

// ErrorOutput renders a Dispatch error as a failed tool output.
func ErrorOutput(call Call, err error) string {
	msg := err.Error()
	if errors.Is(err, ErrUnknownTool) {
		msg = "Fungsi tidak dikenal: " + call.Name
	}
	data, _ := json.Marshal(output{Success: false, Message: msg})
	return string(data)
}

// output is shared by search, navigation and failures. Fields are omitted
// when unused by the tool that produced them.
type output struct {
	Success bool          `json:"success"`
	VideoID tutor.VideoID `json:"video_id,omitempty"`
	Title   string        `json:"title,omitempty"`
	Topics  []string      `json:"topics,omitempty"`
	Score   int           `json:"score,omitempty"`
	Message string        `json:"message"`
}

// contentOutput always carries segments, even when the window is empty.
type contentOutput struct {
	Success    bool            `json:"success"`
	VideoID    tutor.VideoID   `json:"video_id"`
	VideoTitle string          `json:"video_title"`
	Timestamp  int             `json:"timestamp"`
	Content    string          `json:"content"`
	Segments   []tutor.Segment `json:"segments"`
	Message    string          `json:"message"`
}

const topicsPreviewLimit = 5

func (d *Dispatcher) searchVideo(r SearchVideo) (output, *Command, string) {
	results := d.svc.SearchVideos(r.Query)
	if d.metrics != nil {
		d.metrics.ObserveSearch(len(results) > 0)
	}
	if len(results) == 0 {
		return output{
			Success: false,
			Message: "Tidak menemukan video yang relevan untuk: " + r.Query + ". Coba kata kunci lain.",
		}, nil, metrics.OutcomeEmpty
	}

	best := results[0]
	d.log.Info("best match",
		slog.String("query", r.Query),
		slog.String("video_id", string(best.ID)),
		slog.String("title", best.Title),
		slog.Int("score", best.Score))

	d.setCurrent(best.ID)
	preview := topicsPreview(best.Topics, topicsPreviewLimit)
	video := best.Video
	return output{
			Success: true,
			VideoID: best.ID,
			Title:   best.Title,
			Topics:  best.Topics,
			Score:   best.Score,
			Message: "Menemukan video: " + best.Title + ". Video ini membahas tentang: " + preview,
		},
		&Command{Kind: CommandShow, Video: &video, Timestamp: 0},
		metrics.OutcomeFound
}

func (d *Dispatcher) navigateVideo(r NavigateVideo) (output, *Command, string) {
	ts := r.Timestamp.Int()
	current := d.CurrentVideo()
	msg := fmt.Sprintf("Video berpindah ke detik %d", ts)

	if r.VideoID != "" && r.VideoID != current {
		v, err := d.svc.Video(r.VideoID)
		if err != nil {
			return output{Success: false, Message: "Video tidak ditemukan"}, nil, metrics.OutcomeNotFound
		}
		d.setCurrent(v.ID)
		return output{Success: true, Message: msg}, &Command{Kind: CommandShow, Video: &v, Timestamp: ts}, metrics.OutcomeOK
	}

	if current == "" {
		// Nothing is loaded, so there is nothing to seek.
		return output{Success: true, Message: msg}, nil, metrics.OutcomeOK
	}
	return output{Success: true, Message: msg}, &Command{Kind: CommandSeek, Timestamp: ts}, metrics.OutcomeOK
}

func (d *Dispatcher) getVideoContent(r GetVideoContent) (any, *Command, string) {
	ts := r.Timestamp.Int()
	current := d.CurrentVideo()
	id := r.VideoID
	if id == "" {
		id = current
	}

	v, err := d.svc.Video(id)
	if err != nil {
		return output{Success: false, Message: "Video tidak ditemukan"}, nil, metrics.OutcomeNotFound
	}
	win := tutor.WindowAt(v, ts)

	cmd := &Command{Kind: CommandSeek, Timestamp: ts}
	if v.ID != current {
		d.setCurrent(v.ID)
		cmd = &Command{Kind: CommandShow, Video: &v, Timestamp: ts}
	}

	segments := win.Segments
	if segments == nil {
		segments = []tutor.Segment{}
	}
	// The message carries only real transcript text; the sentinel stays in content.
	var text string
	if win.Found() {
		text = win.Text
	}
	return contentOutput{
		Success:    true,
		VideoID:    v.ID,
		VideoTitle: v.Title,
		Timestamp:  ts,
		Content:    win.Text,
		Segments:   segments,
		Message:    fmt.Sprintf("Konten video di detik %d: %s", ts, text),
	}, cmd, metrics.OutcomeOK
}

func (d *Dispatcher) setCurrent(id tutor.VideoID) {
	d.mu.Lock()
	d.current = id
	d.mu.Unlock()
}

func (d *Dispatcher) observe(tool, outcome string) {
	if d.metrics != nil {
		d.metrics.ObserveToolCall(tool, outcome)
	}
}

func topicsPreview(topics []string, n int) string {
	if len(topics) > n {
		topics = topics[:n]
	}
	return strings.Join(topics, ", ")
}
