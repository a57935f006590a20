package handlers

import (
	"encoding/json"
	"net/http"

	middleware "github.com/coursehub-api/coursehub/internal/api/middlewares"
	"github.com/coursehub-api/coursehub/internal/core/errs"
	"github.com/coursehub-api/coursehub/internal/services"
)

type ChatHandler struct {
	chat *services.ChatService
}

func NewChatHandler(chat *services.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

// SendMessage runs one chat turn against the course's knowledge base.
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req services.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errs.BadRequest("invalid body"))
		return
	}

	resp, err := h.chat.SendMessage(r.Context(), middleware.UserID(r.Context()), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
