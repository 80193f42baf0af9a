package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/sky-inn/backend/internal/handler/httperr"
	"github.com/zhouzirui/sky-inn/backend/internal/model/chat"
	chatservice "github.com/zhouzirui/sky-inn/backend/internal/service/chat"
	"github.com/zhouzirui/sky-inn/backend/internal/service/conversation"
	"github.com/zhouzirui/sky-inn/backend/pkg/utils"
)

// Handler serves users, chats and turns over REST.
type Handler struct {
	store  chatservice.Store
	conv   *conversation.Service
	logger *zap.Logger
}

// New creates the chat handler.
func New(store chatservice.Store, conv *conversation.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, conv: conv, logger: logger.Named("chat")}
}

// RegisterRoutes mounts the chat routes on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/users", h.handleAddUser)
	r.Get("/users/{userID}/chats", h.handleListChats)
	r.Post("/chats", h.handleCreateChat)
	r.Route("/chats/{chatID}", func(r chi.Router) {
		r.Get("/", h.handleGetChat)
		r.Get("/messages", h.handleHistory)
		r.Post("/messages", h.handleSendMessage)
		r.Post("/forget", h.handleForget)
		r.Post("/remember", h.handleRemember)
		r.Get("/context", h.handleContext)
	})
}

type userPayload struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Gender    string `json:"gender"`
}

func (h *Handler) handleAddUser(w http.ResponseWriter, r *http.Request) {
	var payload userPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.ID <= 0 {
		utils.RespondError(w, http.StatusBadRequest, "id must be a positive integer")
		return
	}

	user := chat.User{
		ID:        payload.ID,
		Username:  payload.Username,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Gender:    payload.Gender,
	}
	if err := h.store.AddUser(r.Context(), user); err != nil {
		httperr.Respond(w, h.logger, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, user)
}

func (h *Handler) handleCreateChat(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		UserID   int64  `json:"userId"`
		Title    string `json:"title"`
		Scenario string `json:"scenario"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.UserID <= 0 {
		utils.RespondError(w, http.StatusBadRequest, "userId is required")
		return
	}

	created, err := h.store.CreateChat(r.Context(), payload.UserID, payload.Title, payload.Scenario)
	if err != nil {
		httperr.Respond(w, h.logger, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, map[string]any{
		"chat":     created,
		"greeting": h.conv.Greeting(),
	})
}

func (h *Handler) handleListChats(w http.ResponseWriter, r *http.Request) {
	userID, ok := httperr.IDParam(r, "userID")
	if !ok {
		utils.RespondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	chats, err := h.store.ListChats(r.Context(), userID)
	if err != nil {
		httperr.Respond(w, h.logger, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, chats)
}

func (h *Handler) handleGetChat(w http.ResponseWriter, r *http.Request) {
	chatID, ok := chatIDParam(w, r)
	if !ok {
		return
	}

	found, err := h.store.GetChat(r.Context(), chatID)
	if err != nil {
		httperr.Respond(w, h.logger, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, found)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	chatID, ok := chatIDParam(w, r)
	if !ok {
		return
	}

	includeIgnored := false
	if raw := r.URL.Query().Get("includeIgnored"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, "includeIgnored must be a boolean")
			return
		}
		includeIgnored = parsed
	}

	messages, err := h.conv.History(r.Context(), chatID, includeIgnored)
	if err != nil {
		httperr.Respond(w, h.logger, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, messages)
}

func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	chatID, ok := chatIDParam(w, r)
	if !ok {
		return
	}

	var payload struct {
		UserID int64  `json:"userId"`
		Text   string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.UserID <= 0 {
		utils.RespondError(w, http.StatusBadRequest, "userId is required")
		return
	}
	if strings.TrimSpace(payload.Text) == "" {
		utils.RespondError(w, http.StatusBadRequest, "text is required")
		return
	}

	result, err := h.conv.Reply(r.Context(), conversation.Turn{ChatID: chatID, UserID: payload.UserID, Text: payload.Text})
	if err != nil {
		httperr.Respond(w, h.logger, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) handleForget(w http.ResponseWriter, r *http.Request) {
	h.handleMemory(w, r, h.conv.Forget)
}

func (h *Handler) handleRemember(w http.ResponseWriter, r *http.Request) {
	h.handleMemory(w, r, h.conv.Remember)
}

type memoryFunc func(ctx context.Context, chatID int64, text string) (bool, error)

func (h *Handler) handleMemory(w http.ResponseWriter, r *http.Request, apply memoryFunc) {
	chatID, ok := chatIDParam(w, r)
	if !ok {
		return
	}

	var payload struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Text == "" {
		utils.RespondError(w, http.StatusBadRequest, "text is required")
		return
	}

	changed, err := apply(r.Context(), chatID, payload.Text)
	if err != nil {
		httperr.Respond(w, h.logger, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]bool{"changed": changed})
}

func (h *Handler) handleContext(w http.ResponseWriter, r *http.Request) {
	chatID, ok := chatIDParam(w, r)
	if !ok {
		return
	}

	text, err := h.conv.Context(r.Context(), chatID)
	if err != nil {
		httperr.Respond(w, h.logger, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"chatId": chatID, "context": text})
}

func chatIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	chatID, ok := httperr.IDParam(r, "chatID")
	if !ok {
		utils.RespondError(w, http.StatusBadRequest, "invalid chat id")
	}
	return chatID, ok
}
