package session

import (
	"context"
	"sync"
	"time"

	"video-tutor/internal/toolcall"
	"video-tutor/internal/tutor"
)

// ID identifies a tutoring session (a UUID string).
type ID string

// Session is one browser conversation. It owns the tool dispatcher that
// remembers which video the student is watching and keeps the commands sent
// to that student's player.
type Session struct {
	ID        ID
	CreatedAt time.Time

	dispatcher *toolcall.Dispatcher

	mu         sync.Mutex
	lastActive time.Time
	commands   []toolcall.Command
}

// MaxCommands is how many player commands a session keeps. Older ones are
// dropped first.
const MaxCommands = 50

// Apply implements toolcall.Player by recording cmd for the front end.
func (s *Session) Apply(_ context.Context, cmd toolcall.Command) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.commands) >= MaxCommands {
		n := copy(s.commands, s.commands[len(s.commands)-MaxCommands+1:])
		s.commands = s.commands[:n]
	}
	s.commands = append(s.commands, cmd)
}

// Commands returns a copy of the retained commands, oldest first.
func (s *Session) Commands() []toolcall.Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]toolcall.Command, len(s.commands))
	copy(out, s.commands)
	return out
}

// CurrentVideo returns the video loaded in this session's player.
func (s *Session) CurrentVideo() tutor.VideoID {
	return s.dispatcher.CurrentVideo()
}

// LastActive returns when the session last handled a tool call.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Dispatch runs one tool call in this session.
func (s *Session) Dispatch(ctx context.Context, call toolcall.Call) (toolcall.Result, error) {
	s.touch()
	return s.dispatcher.Dispatch(ctx, call)
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastActive = time.Now().UTC()
	s.mu.Unlock()
}
