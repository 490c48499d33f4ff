// Package toolcall turns tool invocations from the realtime model into typed
// requests, runs them against the catalog service, and produces the tool
// output plus the player command the front end should apply.
//
// The set of tools is closed: [Parse] yields exactly one of [SearchVideo],
// [NavigateVideo] or [GetVideoContent], and the [Dispatcher] switches over
// them exhaustively.
package toolcall

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"video-tutor/internal/tutor"
)

// Tool names as exposed to the model.
const (
	NameSearchVideo     = "search_video"
	NameNavigateVideo   = "navigate_video"
	NameGetVideoContent = "get_video_content"
)

// ErrUnknownTool is returned by Parse for a name outside the closed tool set.
var ErrUnknownTool = errors.New("unknown tool")

// Call is one tool invocation as delivered by the transport layer. CallID
// correlates the eventual output with the invocation.
type Call struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
	CallID    string `json:"call_id"`
}

// Request is a parsed tool invocation. The unexported method seals the set
// of implementations to this package.
type Request interface {
	ToolName() string
	isRequest()
}

// SearchVideo asks for the best video about a topic.
type SearchVideo struct {
	Query string `json:"query"`
}

// NavigateVideo asks the player to jump to a timestamp, switching videos
// when VideoID names a different one.
type NavigateVideo struct {
	VideoID   tutor.VideoID `json:"video_id,omitempty"`
	Timestamp Seconds       `json:"timestamp"`
}

// GetVideoContent asks what is said around a timestamp. An empty VideoID
// means the video currently playing.
type GetVideoContent struct {
	VideoID   tutor.VideoID `json:"video_id,omitempty"`
	Timestamp Seconds       `json:"timestamp"`
}

func (SearchVideo) ToolName() string     { return NameSearchVideo }
func (NavigateVideo) ToolName() string   { return NameNavigateVideo }
func (GetVideoContent) ToolName() string { return NameGetVideoContent }

func (SearchVideo) isRequest()     {}
func (NavigateVideo) isRequest()   {}
func (GetVideoContent) isRequest() {}

// Parse decodes a tool invocation. Malformed or missing arguments decode to
// the zero value of the request (empty query, timestamp 0) and are reported
// through the returned bool so callers can log them; only an unknown name is
// an error.
func Parse(name, args string) (req Request, argsOK bool, err error) {
	switch name {
	case NameSearchVideo:
		var r SearchVideo
		ok := decodeArgs(args, &r)
		return r, ok, nil
	case NameNavigateVideo:
		var r NavigateVideo
		ok := decodeArgs(args, &r)
		return r, ok, nil
	case NameGetVideoContent:
		var r GetVideoContent
		ok := decodeArgs(args, &r)
		return r, ok, nil
	default:
		return nil, false, fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}
}

// decodeArgs fills v from args. On failure v is reset to its zero value.
func decodeArgs[T any](args string, v *T) bool {
	if strings.TrimSpace(args) == "" {
		return true
	}
	if err := json.Unmarshal([]byte(args), v); err != nil {
		var zero T
		*v = zero
		return false
	}
	return true
}

// Seconds is a non-negative whole-second timestamp. It decodes from a JSON
// number (fractions are truncated), a numeric string, or null.
type Seconds int

// UnmarshalJSON implements json.Unmarshaler.
func (s *Seconds) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		*s = 0
		return nil
	}
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = strings.TrimSpace(unquoted)
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("toolcall: invalid timestamp %s", b)
	}
	if f < 0 {
		f = 0
	}
	*s = Seconds(int(f))
	return nil
}

// Int returns s as an int.
func (s Seconds) Int() int { return int(s) }
