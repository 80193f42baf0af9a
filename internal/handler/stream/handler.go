package stream

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/sky-inn/backend/internal/analysis/emotion"
	"github.com/zhouzirui/sky-inn/backend/internal/handler/httperr"
	"github.com/zhouzirui/sky-inn/backend/internal/service/conversation"
	"github.com/zhouzirui/sky-inn/backend/pkg/utils"
)

// Handler runs a turn and reports it as a Server-Sent Events stream.
type Handler struct {
	conv   *conversation.Service
	logger *zap.Logger
}

// New creates a stream handler.
func New(conv *conversation.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{conv: conv, logger: logger.Named("stream")}
}

// RegisterRoutes mounts GET /chats/{chatID}/stream.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/chats/{chatID}/stream", h.handleStream)
}

// StreamResponse is one SSE frame.
type StreamResponse struct {
	Event    string        `json:"event"`
	ChatID   int64         `json:"chatId"`
	Content  string        `json:"content,omitempty"`
	Emotion  *EmotionFrame `json:"emotion,omitempty"`
	Finished bool          `json:"finished,omitempty"`
}

// EmotionFrame carries the turn's affect.
type EmotionFrame struct {
	Tag     emotion.Tag `json:"tag"`
	Empathy int         `json:"empathy"`
	Source  string      `json:"source"`
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	chatID, ok := httperr.IDParam(r, "chatID")
	if !ok {
		utils.RespondError(w, http.StatusBadRequest, "invalid chat id")
		return
	}
	userID, ok := httperr.ParseID(r.URL.Query().Get("userId"))
	if !ok {
		utils.RespondError(w, http.StatusBadRequest, "userId query parameter is required")
		return
	}
	message := r.URL.Query().Get("message")
	if strings.TrimSpace(message) == "" {
		utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	result, err := h.conv.Reply(r.Context(), conversation.Turn{ChatID: chatID, UserID: userID, Text: message})
	if err != nil {
		httperr.Respond(w, h.logger, err)
		return
	}

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	frames := []StreamResponse{
		{Event: "start", ChatID: chatID, Content: h.conv.Persona().Name},
		{Event: "message", ChatID: chatID, Content: result.Reply},
		{Event: "emotion", ChatID: chatID, Emotion: &EmotionFrame{Tag: result.Emotion, Empathy: result.Empathy, Source: result.Source}},
		{Event: "end", ChatID: chatID, Finished: true},
	}
	for _, frame := range frames {
		if err := utils.SendSSEEvent(w, flusher, frame.Event, frame); err != nil {
			h.logger.Warn("client went away", zap.Int64("chat_id", chatID), zap.Error(err))
			return
		}
	}
	h.logger.Debug("stream completed", zap.Int64("chat_id", chatID), zap.String("source", result.Source))
}
