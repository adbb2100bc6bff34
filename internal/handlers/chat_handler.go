// File: internal/handlers/chat_handler.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/ksamadi/omnichat/internal/middleware"
	"github.com/ksamadi/omnichat/internal/services/chat"
)

// ChatHandler serves the streaming turn endpoints and the token
// estimate.
type ChatHandler struct {
	streaming *chat.StreamingService
	logger    chat.Logger
}

func NewChatHandler(streaming *chat.StreamingService, logger chat.Logger) *ChatHandler {
	return &ChatHandler{streaming: streaming, logger: logger}
}

// Chat handles GET /api/chat: a stateful or tool-augmented streaming
// turn, depending on the group's configuration.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	h.streamTurn(w, r, h.streaming.StreamTurn)
}

// ChatCompletion handles GET /api/chatCompletion: a stateless
// streaming turn for memory-disabled groups.
func (h *ChatHandler) ChatCompletion(w http.ResponseWriter, r *http.Request) {
	h.streamTurn(w, r, h.streaming.StreamCompletionTurn)
}

// ChatTool handles GET /api/chatTool: a turn with an explicitly forced
// tool mode.
func (h *ChatHandler) ChatTool(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("tool") == "" {
		writeError(w, "tool is required", http.StatusBadRequest)
		return
	}
	h.streamTurn(w, r, h.streaming.StreamTurn)
}

func (h *ChatHandler) streamTurn(
	w http.ResponseWriter,
	r *http.Request,
	run func(ctx context.Context, userID uint, req *chat.TurnRequest, onDelta func(string) error) (*chat.TurnResult, error),
) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	req, err := parseTurnRequest(r)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	result, err := run(r.Context(), userID, req, sse.sendContent)
	if err != nil {
		h.logger.Error("stream turn failed", "user_id", userID, "error", err.Error())
		sse.sendError(userMessage(err))
		if result == nil {
			return
		}
	}
	if result != nil {
		sse.sendDone(result.MessageID)
	}
}

// ChatGroupName handles GET /api/chatGroupName: a short streamed
// title-generation turn that renames the conversation.
func (h *ChatHandler) ChatGroupName(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	groupID, err := queryUint(r, "chatGroupId")
	if err != nil {
		writeError(w, "Invalid chatGroupId", http.StatusBadRequest)
		return
	}
	prompt := r.URL.Query().Get("prompt")
	if prompt == "" {
		writeError(w, "prompt is required", http.StatusBadRequest)
		return
	}

	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	if _, err := h.streaming.StreamGroupName(r.Context(), userID, groupID, prompt, sse.sendContent); err != nil {
		h.logger.Error("group name turn failed", "user_id", userID, "error", err.Error())
		sse.sendError(userMessage(err))
		return
	}
	_ = sse.sendRaw("[DONE]")
}

// Tokens handles POST /api/tokens: a non-streaming pre-flight estimate
// of the completion token count.
func (h *ChatHandler) Tokens(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		Text        string `json:"text"`
		Model       string `json:"model"`
		ChatGroupID uint   `json:"chatGroupId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	count, err := h.streaming.PredictTokens(r.Context(), userID, req.ChatGroupID, req.Model, req.Text)
	if err != nil {
		writeError(w, userMessage(err), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"completionTokens": count})
}

func parseTurnRequest(r *http.Request) (*chat.TurnRequest, error) {
	q := r.URL.Query()

	groupID, err := queryUint(r, "chatGroupId")
	if err != nil {
		return nil, errors.New("invalid chatGroupId")
	}

	req := &chat.TurnRequest{
		ChatGroupID: groupID,
		Prompt:      q.Get("prompt"),
		Model:       q.Get("model"),
	}

	// Presence matters: an empty assistant or tool parameter clears the
	// field, while an absent one keeps the previous turn's value.
	if q.Has("assistant") {
		assistant := q.Get("assistant")
		req.Assistant = &assistant
	}
	if q.Has("tool") {
		tool := q.Get("tool")
		req.Tool = &tool
	}

	if raw := q.Get("messageId"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return nil, errors.New("invalid messageId")
		}
		req.MessageID = uint(id)
	}
	return req, nil
}

func queryUint(r *http.Request, key string) (uint, error) {
	id, err := strconv.ParseUint(r.URL.Query().Get(key), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

// userMessage maps service errors to client-safe text.
func userMessage(err error) string {
	var chatErr *chat.ChatError
	if errors.As(err, &chatErr) {
		return chatErr.Message
	}
	return "Something went wrong"
}

func statusFor(err error) int {
	var chatErr *chat.ChatError
	if errors.As(err, &chatErr) {
		switch chatErr.Type {
		case chat.ErrTypeValidation:
			return http.StatusBadRequest
		case chat.ErrTypeUnauthorized:
			return http.StatusForbidden
		case chat.ErrTypeNotFound:
			return http.StatusNotFound
		}
	}
	return http.StatusInternalServerError
}
