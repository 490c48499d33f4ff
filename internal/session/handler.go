package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"video-tutor/internal/platform/config"
	"video-tutor/internal/realtime"
	"video-tutor/internal/toolcall"

	"github.com/go-chi/chi/v5"
)

// KeyMinter issues browser credentials for a realtime session.
type KeyMinter interface {
	MintEphemeralKey(ctx context.Context, cfg realtime.SessionConfig) (realtime.EphemeralKey, error)
}

// Handler exposes session endpoints using go-chi.
type Handler struct {
	mgr       *Manager
	minter    KeyMinter
	assistant config.Assistant
	log       *slog.Logger
}

// NewHandler returns a Handler. A nil minter disables ephemeral keys; the
// session is still created so tool calls can be relayed.
func NewHandler(mgr *Manager, minter KeyMinter, assistant config.Assistant, log *slog.Logger) *Handler {
	return &Handler{mgr: mgr, minter: minter, assistant: assistant, log: log}
}

// Routes mounts the session endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.CreateSession)
		r.Route("/{session_id}", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Delete("/", h.DeleteSession)
			r.Post("/tool-calls", h.ToolCall)
		})
	})
}

type clientSecret struct {
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
}

type createResponse struct {
	SessionID    ID                    `json:"session_id"`
	Model        string                `json:"model"`
	Voice        string                `json:"voice"`
	Instructions string                `json:"instructions"`
	Greeting     string                `json:"greeting"`
	Tools        []toolcall.Definition `json:"tools"`
	ClientSecret *clientSecret         `json:"client_secret,omitempty"`
}

type sessionResponse struct {
	SessionID    ID                 `json:"session_id"`
	CreatedAt    time.Time          `json:"created_at"`
	LastActive   time.Time          `json:"last_active"`
	CurrentVideo string             `json:"current_video,omitempty"`
	Commands     []toolcall.Command `json:"commands"`
}

// toolCallRequest is the browser relaying a response.function_call_arguments.done event.
type toolCallRequest struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
	CallID    string `json:"call_id"`
}

type toolCallResponse struct {
	CallID  string            `json:"call_id"`
	Output  string            `json:"output"`
	Command *toolcall.Command `json:"command,omitempty"`
}

// CreateSession handles POST /sessions.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	s := h.mgr.Create()
	resp := createResponse{
		SessionID:    s.ID,
		Model:        h.assistant.Model,
		Voice:        h.assistant.Voice,
		Instructions: h.assistant.Instructions,
		Greeting:     h.assistant.Greeting,
		Tools:        toolcall.Definitions(),
	}

	if h.minter != nil {
		key, err := h.minter.MintEphemeralKey(r.Context(), realtime.SessionConfig{
			Instructions:       h.assistant.Instructions,
			Voice:              h.assistant.Voice,
			TranscriptionModel: h.assistant.TranscriptionModel,
			Tools:              resp.Tools,
		})
		if err != nil {
			_ = h.mgr.Delete(s.ID)
			h.log.Error("mint ephemeral key", slog.String("error", err.Error()))
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": "realtime session unavailable"})
			return
		}
		resp.ClientSecret = &clientSecret{Value: key.Value, ExpiresAt: key.ExpiresAt}
		if key.Model != "" {
			resp.Model = key.Model
		}
	}

	writeJSON(w, http.StatusCreated, resp)
}

// GetSession handles GET /sessions/{session_id}.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	id := ID(chi.URLParam(r, "session_id"))
	s, err := h.mgr.Get(id)
	if err != nil {
		h.writeError(w, err, id)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		SessionID:    s.ID,
		CreatedAt:    s.CreatedAt,
		LastActive:   s.LastActive(),
		CurrentVideo: string(s.CurrentVideo()),
		Commands:     s.Commands(),
	})
}

// DeleteSession handles DELETE /sessions/{session_id}.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := ID(chi.URLParam(r, "session_id"))
	if err := h.mgr.Delete(id); err != nil {
		h.writeError(w, err, id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToolCall handles POST /sessions/{session_id}/tool-calls. Unknown tools are
// answered with a failed tool output so the browser can still reply to the model.
func (h *Handler) ToolCall(w http.ResponseWriter, r *http.Request) {
	id := ID(chi.URLParam(r, "session_id"))
	s, err := h.mgr.Get(id)
	if err != nil {
		h.writeError(w, err, id)
		return
	}

	var body toolCallRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.log.Debug("invalid tool call body", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if body.Name == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	call := toolcall.Call{Name: body.Name, Arguments: body.Arguments, CallID: body.CallID}
	res, err := s.Dispatch(r.Context(), call)
	if err != nil {
		h.log.Warn("tool call failed",
			slog.String("session_id", string(id)),
			slog.String("tool", body.Name),
			slog.String("error", err.Error()))
		writeJSON(w, http.StatusOK, toolCallResponse{CallID: body.CallID, Output: toolcall.ErrorOutput(call, err)})
		return
	}
	writeJSON(w, http.StatusOK, toolCallResponse{CallID: res.CallID, Output: res.Output, Command: res.Command})
}

func (h *Handler) writeError(w http.ResponseWriter, err error, id ID) {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	default:
		h.log.Error("session request failed", slog.String("session_id", string(id)), slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
