package realtime

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"video-tutor/internal/toolcall"

	"github.com/coder/websocket"
)

// ErrClosed is returned by send methods after Close.
var ErrClosed = errors.New("realtime: session closed")

// Role identifies who spoke a transcript entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Transcript is one finished utterance.
type Transcript struct {
	Role Role
	Text string
	Time time.Time
}

// Status is a coarse conversation state change.
type Status string

const (
	StatusSpeechStarted Status = "speech_started"
	StatusSpeechStopped Status = "speech_stopped"
	StatusResponseDone  Status = "response_done"
)

// ToolHandler runs one tool call and returns its JSON output.
type ToolHandler func(ctx context.Context, call toolcall.Call) string

// Session is one live realtime conversation. Transcripts and Audio must be
// drained by the caller; the receive loop blocks on them.
type Session struct {
	conn        *websocket.Conn
	audioCh     chan []byte
	transcripts chan Transcript

	mu            sync.Mutex
	toolHandler   ToolHandler
	statusHandler func(Status)
	errorHandler  func(error)
	errVal        error
	closed        bool
	audioText     string
	replyText     string

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	done      chan struct{}
}

func newSession(conn *websocket.Conn) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		conn:        conn,
		audioCh:     make(chan []byte, 64),
		transcripts: make(chan Transcript, 16),
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
	}
}

func (s *Session) writeJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("realtime: marshal: %w", err)
	}
	return s.conn.Write(s.ctx, websocket.MessageText, data)
}

// receiveLoop owns audioCh and transcripts and closes both on exit.
func (s *Session) receiveLoop() {
	defer close(s.done)
	defer s.closeChannels()

	for {
		_, data, err := s.conn.Read(s.ctx)
		if err != nil {
			if s.ctx.Err() == nil {
				s.setErr(err)
			}
			return
		}

		var evt serverEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			continue
		}
		s.handleEvent(&evt)
	}
}

func (s *Session) handleEvent(evt *serverEvent) {
	switch evt.Type {
	case "response.audio.delta":
		if evt.Delta == "" {
			return
		}
		pcm, err := base64.StdEncoding.DecodeString(evt.Delta)
		if err != nil || len(pcm) == 0 {
			return
		}
		select {
		case s.audioCh <- pcm:
		case <-s.ctx.Done():
		}

	case "response.audio_transcript.delta":
		s.mu.Lock()
		s.audioText += evt.Delta
		s.mu.Unlock()

	case "response.audio_transcript.done":
		s.mu.Lock()
		text := s.audioText
		s.audioText = ""
		s.mu.Unlock()
		if evt.Transcript != "" {
			text = evt.Transcript
		}
		s.emitTranscript(RoleAssistant, text)

	case "response.text.delta":
		s.mu.Lock()
		s.replyText += evt.Delta
		s.mu.Unlock()

	case "response.text.done":
		s.mu.Lock()
		text := s.replyText
		s.replyText = ""
		s.mu.Unlock()
		if evt.Text != "" {
			text = evt.Text
		}
		s.emitTranscript(RoleAssistant, text)

	case "conversation.item.input_audio_transcription.completed":
		s.emitTranscript(RoleUser, evt.Transcript)

	case "response.function_call_arguments.done":
		s.handleFunctionCall(evt)

	case "input_audio_buffer.speech_started":
		s.emitStatus(StatusSpeechStarted)
	case "input_audio_buffer.speech_stopped":
		s.emitStatus(StatusSpeechStopped)
	case "response.done":
		s.emitStatus(StatusResponseDone)

	case "error":
		s.handleError(evt)
	}
}

func (s *Session) emitTranscript(role Role, text string) {
	if text == "" {
		return
	}
	select {
	case s.transcripts <- Transcript{Role: role, Text: text, Time: time.Now()}:
	case <-s.ctx.Done():
	}
}

func (s *Session) emitStatus(st Status) {
	s.mu.Lock()
	h := s.statusHandler
	s.mu.Unlock()
	if h != nil {
		h(st)
	}
}

func (s *Session) handleError(evt *serverEvent) {
	s.mu.Lock()
	h := s.errorHandler
	s.mu.Unlock()
	if h == nil {
		return
	}

	msg := "unknown error"
	if evt.Error != nil && evt.Error.Message != "" {
		msg = evt.Error.Message
	}
	h(fmt.Errorf("realtime: %s", msg))
}

func (s *Session) handleFunctionCall(evt *serverEvent) {
	s.mu.Lock()
	h := s.toolHandler
	s.mu.Unlock()
	if h == nil {
		return
	}

	output := h(s.ctx, toolcall.Call{Name: evt.Name, Arguments: evt.Arguments, CallID: evt.CallID})

	err := s.writeJSON(createItemMessage{
		Type: "conversation.item.create",
		Item: item{Type: "function_call_output", CallID: evt.CallID, Output: output},
	})
	if err != nil {
		s.reportWriteErr(fmt.Errorf("realtime: send output for %s: %w", evt.CallID, err))
		return
	}
	if err := s.writeJSON(map[string]string{"type": "response.create"}); err != nil {
		s.reportWriteErr(fmt.Errorf("realtime: request response for %s: %w", evt.CallID, err))
	}
}

// reportWriteErr records a failed send and passes it to the error handler.
// Failures after Close are expected and dropped.
func (s *Session) reportWriteErr(err error) {
	if s.ctx.Err() != nil {
		return
	}
	s.setErr(err)
	s.mu.Lock()
	h := s.errorHandler
	s.mu.Unlock()
	if h != nil {
		h(err)
	}
}

func (s *Session) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.errVal == nil {
		s.errVal = err
	}
}

func (s *Session) closeChannels() {
	s.closeOnce.Do(func() {
		close(s.audioCh)
		close(s.transcripts)
	})
}

func (s *Session) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// OnToolCall registers the handler for model tool invocations. Calls that
// arrive with no handler registered are ignored.
func (s *Session) OnToolCall(h ToolHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toolHandler = h
}

// OnStatus registers a callback for speech and response state changes.
func (s *Session) OnStatus(h func(Status)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statusHandler = h
}

// OnError registers a callback for error events sent by the server and for
// tool outputs that could not be sent.
func (s *Session) OnError(h func(error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errorHandler = h
}

// Transcripts delivers finished user and assistant utterances. It is closed
// when the session ends.
func (s *Session) Transcripts() <-chan Transcript { return s.transcripts }

// Audio delivers PCM16 audio produced by the model.
func (s *Session) Audio() <-chan []byte { return s.audioCh }

// Done is closed once the receive loop has exited.
func (s *Session) Done() <-chan struct{} { return s.done }

// Err returns the error that ended the session, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errVal
}

// Greet makes the assistant speak first by injecting text as a user item and
// requesting a response.
func (s *Session) Greet(text string) error {
	return s.SendText(text)
}

// SendText adds a user text message and asks the model to respond.
func (s *Session) SendText(text string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	err := s.writeJSON(createItemMessage{
		Type: "conversation.item.create",
		Item: item{
			Type:    "message",
			Role:    "user",
			Content: []contentPart{{Type: "input_text", Text: text}},
		},
	})
	if err != nil {
		return err
	}
	return s.writeJSON(map[string]string{"type": "response.create"})
}

// SendAudio appends a PCM16 chunk to the input buffer.
func (s *Session) SendAudio(chunk []byte) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.writeJSON(appendAudioMessage{
		Type:  "input_audio_buffer.append",
		Audio: base64.StdEncoding.EncodeToString(chunk),
	})
}

// Close ends the session. Idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.conn.Close(websocket.StatusNormalClosure, "session closed")
	return nil
}
