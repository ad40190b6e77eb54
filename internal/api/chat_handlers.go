package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"gwi.com/shop-assistant/internal/apperr"
	"gwi.com/shop-assistant/internal/core"
)

type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

type ClearChatRequest struct {
	SessionID string `json:"session_id"`
}

// decodeBody decodes a JSON body into v. An absent body leaves v untouched.
func decodeBody(r *http.Request, v interface{}) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return apperr.Validation("Invalid request body: %v", err)
	}
	return nil
}

func (h *APIHandler) ChatHandler(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if r.Body == nil || r.Body == http.NoBody {
		h.writeError(w, r, apperr.Validation("No JSON data provided"))
		return
	}
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	reply, err := h.chat.ProcessMessage(r.Context(), core.ChatRequest{Message: req.Message, SessionID: req.SessionID})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		*core.ChatReply
	}{true, reply})
}

func (h *APIHandler) ChatHistoryHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := newQueryParams(r).String("session_id")
	messages, err := h.chat.History(r.Context(), sessionID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"session_id":    sessionID,
		"message_count": len(messages),
		"messages":      messages,
	})
}

func (h *APIHandler) ClearChatHandler(w http.ResponseWriter, r *http.Request) {
	var req ClearChatRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	deleted, err := h.chat.Clear(r.Context(), req.SessionID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"message":       fmt.Sprintf("Cleared %d messages", deleted),
		"session_id":    req.SessionID,
		"deleted_count": deleted,
	})
}
