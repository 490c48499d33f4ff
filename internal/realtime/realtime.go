// Package realtime connects the tutor to the OpenAI Realtime API.
//
// A Session holds one WebSocket conversation. Tool invocations from the model
// are handed to a registered handler and its output is sent back as a
// function_call_output item followed by response.create. Transcripts of user
// speech and assistant replies, status changes and errors are surfaced on
// channels and callbacks.
package realtime

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"video-tutor/internal/toolcall"

	"github.com/coder/websocket"
)

const (
	defaultModel   = "gpt-4o-realtime-preview-2024-12-17"
	defaultBaseURL = "wss://api.openai.com/v1/realtime"
	defaultAPIURL  = "https://api.openai.com/v1/"
)

// Option configures a Client.
type Option func(*Client)

// WithModel sets the realtime model.
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithBaseURL overrides the WebSocket endpoint. Used in tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithAPIURL overrides the REST endpoint used for ephemeral keys.
func WithAPIURL(u string) Option {
	return func(c *Client) { c.apiURL = u }
}

// WithHTTPClient sets the HTTP client used for the WebSocket handshake.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// Client opens realtime sessions.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	apiURL     string
	httpClient *http.Client
}

// New returns a Client authenticating with apiKey.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		model:   defaultModel,
		baseURL: defaultBaseURL,
		apiURL:  defaultAPIURL,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Model returns the model sessions are opened with.
func (c *Client) Model() string { return c.model }

// SessionConfig is sent in the initial session.update.
type SessionConfig struct {
	Instructions       string
	Voice              string
	TranscriptionModel string
	Tools              []toolcall.Definition
	// TextOnly disables audio output; used by the console.
	TextOnly bool
}

// Connect dials the realtime endpoint and configures the session. The
// returned Session is already reading events.
func (c *Client) Connect(ctx context.Context, cfg SessionConfig) (*Session, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("realtime: parse base url: %w", err)
	}
	q := u.Query()
	q.Set("model", c.model)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.Dial(ctx, u.String(), &websocket.DialOptions{
		HTTPClient: c.httpClient,
		HTTPHeader: http.Header{
			"Authorization": []string{"Bearer " + c.apiKey},
			"OpenAI-Beta":   []string{"realtime=v1"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("realtime: dial: %w", err)
	}
	// Tool outputs can carry whole transcripts.
	conn.SetReadLimit(1 << 20)

	s := newSession(conn)
	if err := s.writeJSON(sessionUpdateMessage{Type: "session.update", Session: newSessionParams(cfg)}); err != nil {
		s.cancel()
		conn.Close(websocket.StatusInternalError, "session update failed")
		return nil, fmt.Errorf("realtime: session update: %w", err)
	}

	go s.receiveLoop()
	return s, nil
}

// ── outgoing ──────────────────────────────────────────────────────────────────

type sessionUpdateMessage struct {
	Type    string        `json:"type"`
	Session sessionParams `json:"session"`
}

type sessionParams struct {
	Modalities              []string                 `json:"modalities,omitempty"`
	Voice                   string                   `json:"voice,omitempty"`
	Instructions            string                   `json:"instructions,omitempty"`
	Tools                   []tool                   `json:"tools,omitempty"`
	InputAudioFormat        string                   `json:"input_audio_format,omitempty"`
	OutputAudioFormat       string                   `json:"output_audio_format,omitempty"`
	InputAudioTranscription *inputAudioTranscription `json:"input_audio_transcription,omitempty"`
	TurnDetection           *turnDetection           `json:"turn_detection,omitempty"`
}

type tool struct {
	Type        string         `json:"type"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type inputAudioTranscription struct {
	Model string `json:"model"`
}

type turnDetection struct {
	Type string `json:"type"`
}

func newSessionParams(cfg SessionConfig) sessionParams {
	p := sessionParams{
		Voice:        cfg.Voice,
		Instructions: cfg.Instructions,
		Tools:        toTools(cfg.Tools),
	}
	if cfg.TextOnly {
		p.Modalities = []string{"text"}
		return p
	}
	p.Modalities = []string{"audio", "text"}
	p.InputAudioFormat = "pcm16"
	p.OutputAudioFormat = "pcm16"
	p.TurnDetection = &turnDetection{Type: "server_vad"}
	if cfg.TranscriptionModel != "" {
		p.InputAudioTranscription = &inputAudioTranscription{Model: cfg.TranscriptionModel}
	}
	return p
}

func toTools(defs []toolcall.Definition) []tool {
	if len(defs) == 0 {
		return nil
	}
	out := make([]tool, len(defs))
	for i, d := range defs {
		out[i] = tool{Type: "function", Name: d.Name, Description: d.Description, Parameters: d.Parameters}
	}
	return out
}

type appendAudioMessage struct {
	Type  string `json:"type"`
	Audio string `json:"audio"`
}

type createItemMessage struct {
	Type string `json:"type"`
	Item item   `json:"item"`
}

type item struct {
	Type    string        `json:"type"`
	Role    string        `json:"role,omitempty"`
	Content []contentPart `json:"content,omitempty"`
	CallID  string        `json:"call_id,omitempty"`
	Output  string        `json:"output,omitempty"`
}

type contentPart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// ── incoming ──────────────────────────────────────────────────────────────────

type serverEvent struct {
	Type string `json:"type"`

	Delta      string `json:"delta,omitempty"`
	Transcript string `json:"transcript,omitempty"`
	Text       string `json:"text,omitempty"`

	// response.function_call_arguments.done
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
	CallID    string `json:"call_id,omitempty"`

	Error *errorDetail `json:"error,omitempty"`
}

type errorDetail struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}
