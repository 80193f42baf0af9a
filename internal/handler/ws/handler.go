// Package ws exposes chat turns over a WebSocket.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zhouzirui/sky-inn/backend/internal/handler/httperr"
	chatservice "github.com/zhouzirui/sky-inn/backend/internal/service/chat"
	"github.com/zhouzirui/sky-inn/backend/internal/service/conversation"
	"github.com/zhouzirui/sky-inn/backend/pkg/utils"
)

const (
	readTimeout  = 60 * time.Second
	writeTimeout = 10 * time.Second
	pingInterval = 25 * time.Second
)

// Message types.
const (
	TypeText     = "text"
	TypeForget   = "forget"
	TypeRemember = "remember"
	TypeGreeting = "greeting"
	TypeReply    = "reply"
	TypeAck      = "ack"
	TypeError    = "error"
)

// Handler upgrades GET /ws/{chatID}?userId= and runs one turn per text frame.
type Handler struct {
	store    chatservice.Store
	conv     *conversation.Service
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// New creates the websocket handler.
func New(store chatservice.Store, conv *conversation.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		store:  store,
		conv:   conv,
		logger: logger.Named("ws"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts the socket route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{chatID}", h.handleWebSocket)
}

// Inbound is a client frame.
type Inbound struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Outbound is a server frame.
type Outbound struct {
	Type      string               `json:"type"`
	ChatID    int64                `json:"chatId"`
	Text      string               `json:"text,omitempty"`
	Result    *conversation.Result `json:"result,omitempty"`
	Action    string               `json:"action,omitempty"`
	Changed   *bool                `json:"changed,omitempty"`
	Error     string               `json:"error,omitempty"`
	Timestamp int64                `json:"timestamp"`
}

type connection struct {
	id     string
	chatID int64
	userID int64
	conn   *websocket.Conn
	mu     sync.Mutex
	log    *zap.Logger
}

func (c *connection) send(msg Outbound) error {
	msg.ChatID = c.chatID
	msg.Timestamp = time.Now().UnixMilli()

	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(msg)
}

func (c *connection) sendError(text string) {
	if err := c.send(Outbound{Type: TypeError, Error: text}); err != nil {
		c.log.Debug("failed to send error frame", zap.Error(err))
	}
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
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
	if _, err := h.store.GetChat(r.Context(), chatID); err != nil {
		httperr.Respond(w, h.logger, err)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", zap.Error(err))
		return
	}
	defer ws.Close()

	c := &connection{id: uuid.NewString(), chatID: chatID, userID: userID, conn: ws}
	c.log = h.logger.With(zap.String("conn_id", c.id), zap.Int64("chat_id", chatID))
	c.log.Info("connection opened")
	defer c.log.Info("connection closed")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	_ = ws.SetReadDeadline(time.Now().Add(readTimeout))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(readTimeout))
	})
	go h.pingLoop(ctx, c)

	if err := c.send(Outbound{Type: TypeGreeting, Text: h.conv.Greeting()}); err != nil {
		return
	}

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("read error", zap.Error(err))
			}
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(readTimeout))

		var msg Inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			c.sendError("invalid message payload")
			continue
		}
		h.handleMessage(ctx, c, msg)
	}
}

func (h *Handler) handleMessage(ctx context.Context, c *connection, msg Inbound) {
	switch msg.Type {
	case TypeText:
		result, err := h.conv.Reply(ctx, conversation.Turn{ChatID: c.chatID, UserID: c.userID, Text: msg.Text})
		if err != nil {
			c.sendError(h.describe(c, err))
			return
		}
		_ = c.send(Outbound{Type: TypeReply, Text: result.Reply, Result: &result})
	case TypeForget, TypeRemember:
		if msg.Text == "" {
			c.sendError("text is required")
			return
		}
		apply := h.conv.Forget
		if msg.Type == TypeRemember {
			apply = h.conv.Remember
		}
		changed, err := apply(ctx, c.chatID, msg.Text)
		if err != nil {
			c.sendError(h.describe(c, err))
			return
		}
		_ = c.send(Outbound{Type: TypeAck, Action: msg.Type, Changed: &changed})
	default:
		c.sendError("unsupported message type: " + msg.Type)
	}
}

func (h *Handler) describe(c *connection, err error) string {
	switch {
	case errors.Is(err, chatservice.ErrNotFound), errors.Is(err, conversation.ErrEmptyMessage):
		return err.Error()
	default:
		c.log.Error("turn failed", zap.Error(err))
		return "internal error"
	}
}

func (h *Handler) pingLoop(ctx context.Context, c *connection) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
			c.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
