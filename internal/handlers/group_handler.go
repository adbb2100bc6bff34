// File: internal/handlers/group_handler.go
package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/yuin/goldmark"

	"github.com/ksamadi/omnichat/internal/domain"
	"github.com/ksamadi/omnichat/internal/middleware"
	"github.com/ksamadi/omnichat/internal/services/chat"
)

const maxAttachmentBytes = 20 << 20

// GroupHandler serves conversation lifecycle endpoints.
type GroupHandler struct {
	groups   *chat.GroupService
	markdown goldmark.Markdown
	logger   chat.Logger
}

func NewGroupHandler(groups *chat.GroupService, logger chat.Logger) *GroupHandler {
	return &GroupHandler{
		groups:   groups,
		markdown: goldmark.New(),
		logger:   logger,
	}
}

// ListGroups handles GET /api/chatGroups.
func (h *GroupHandler) ListGroups(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	groups, err := h.groups.ListGroups(r.Context(), userID)
	if err != nil {
		writeError(w, "Could not retrieve chat groups", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

// CreateGroup handles POST /api/chatGroups.
func (h *GroupHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		Name   string `json:"name"`
		Memory bool   `json:"memory"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	group, err := h.groups.CreateGroup(r.Context(), userID, req.Name, req.Memory)
	if err != nil {
		writeError(w, "Could not create chat group", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, group)
}

// GetMessages handles GET /api/chatGroups/{id}/messages. With
// ?render=html the assistant replies are rendered from markdown.
func (h *GroupHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	groupID, err := pathUint(r, "id")
	if err != nil {
		writeError(w, "Invalid chat group ID", http.StatusBadRequest)
		return
	}

	messages, err := h.groups.GetMessages(r.Context(), userID, groupID)
	if err != nil {
		writeError(w, userMessage(err), statusFor(err))
		return
	}

	if r.URL.Query().Get("render") == "html" {
		messages = h.renderMessages(messages)
	}
	writeJSON(w, http.StatusOK, messages)
}

func (h *GroupHandler) renderMessages(messages []domain.Message) []domain.Message {
	for i := range messages {
		var buf bytes.Buffer
		if err := h.markdown.Convert([]byte(messages[i].AIMessage), &buf); err != nil {
			h.logger.Warn("markdown rendering failed", "message_id", messages[i].ID, "error", err.Error())
			continue
		}
		messages[i].AIMessage = buf.String()
	}
	return messages
}

// DeleteGroup handles DELETE /api/chatGroups/{id}. The response carries
// the id of the fallback group the user is moved to.
func (h *GroupHandler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	groupID, err := pathUint(r, "id")
	if err != nil {
		writeError(w, "Invalid chat group ID", http.StatusBadRequest)
		return
	}

	fallbackID, err := h.groups.DeleteGroup(r.Context(), userID, groupID)
	if err != nil {
		writeError(w, userMessage(err), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint{"fallbackId": fallbackID})
}

// AttachFile handles POST /api/chatGroups/{id}/attachment with a
// multipart "file" field. The attachment is single-use: the next turn
// consumes it.
func (h *GroupHandler) AttachFile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	groupID, err := pathUint(r, "id")
	if err != nil {
		writeError(w, "Invalid chat group ID", http.StatusBadRequest)
		return
	}

	if err := r.ParseMultipartForm(maxAttachmentBytes); err != nil {
		writeError(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxAttachmentBytes+1))
	if err != nil {
		writeError(w, "Could not read file", http.StatusBadRequest)
		return
	}
	if len(data) > maxAttachmentBytes {
		writeError(w, "File too large", http.StatusRequestEntityTooLarge)
		return
	}

	group, err := h.groups.AttachFile(r.Context(), userID, groupID, header.Filename, data)
	if err != nil {
		writeError(w, userMessage(err), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, group)
}

func pathUint(r *http.Request, key string) (uint, error) {
	id, err := strconv.ParseUint(mux.Vars(r)[key], 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
