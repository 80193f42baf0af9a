// Package httperr maps service errors onto HTTP responses.
package httperr

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	chatservice "github.com/zhouzirui/sky-inn/backend/internal/service/chat"
	"github.com/zhouzirui/sky-inn/backend/internal/service/conversation"
	"github.com/zhouzirui/sky-inn/backend/pkg/utils"
)

// Status returns the HTTP status for err: 404 for missing users or chats,
// 400 for rejected input, 500 otherwise.
func Status(err error) int {
	switch {
	case errors.Is(err, chatservice.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, conversation.ErrEmptyMessage):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Respond writes err as a JSON error. Server-side failures are logged and
// their details kept out of the body.
func Respond(w http.ResponseWriter, logger *zap.Logger, err error) {
	status := Status(err)
	if status >= http.StatusInternalServerError {
		if logger != nil {
			logger.Error("request failed", zap.Error(err))
		}
		utils.RespondError(w, status, "internal error")
		return
	}
	utils.RespondError(w, status, err.Error())
}

// IDParam parses a positive int64 URL parameter.
func IDParam(r *http.Request, name string) (int64, bool) {
	return ParseID(chi.URLParam(r, name))
}

// ParseID parses a positive int64 identifier.
func ParseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
