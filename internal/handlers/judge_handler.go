// File: internal/handlers/judge_handler.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ksamadi/omnichat/internal/middleware"
	"github.com/ksamadi/omnichat/internal/services/judge"
)

// JudgeHandler serves the evaluation endpoints.
type JudgeHandler struct {
	judge  *judge.Service
	logger judge.Logger
}

func NewJudgeHandler(service *judge.Service, logger judge.Logger) *JudgeHandler {
	return &JudgeHandler{judge: service, logger: logger}
}

// Judge handles POST /api/judge: evaluate one message. Re-judging is a
// no-op reported as already judged.
func (h *JudgeHandler) Judge(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		ID uint `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	scores, err := h.judge.JudgeMessage(r.Context(), userID, req.ID)
	if errors.Is(err, judge.ErrAlreadyJudged) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "already judged"})
		return
	}
	if err != nil {
		h.logger.Error("judge failed", "message_id", req.ID, "error", err.Error())
		writeError(w, judgeMessage(err), judgeStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, scores)
}

// JudgeMass handles POST /api/judgeMass: evaluate every unjudged
// message across the user's conversations.
func (h *JudgeHandler) JudgeMass(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	report, err := h.judge.JudgeAll(r.Context(), userID)
	if err != nil {
		h.logger.Error("mass judge failed", "user_id", userID, "error", err.Error())
		// A partial report is still useful to the client.
		if report != nil {
			writeJSON(w, http.StatusOK, report)
			return
		}
		writeError(w, "Batch evaluation failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func judgeMessage(err error) string {
	var judgeErr *judge.JudgeError
	if errors.As(err, &judgeErr) {
		return judgeErr.Message
	}
	return "Evaluation failed"
}

func judgeStatus(err error) int {
	var judgeErr *judge.JudgeError
	if errors.As(err, &judgeErr) {
		switch judgeErr.Type {
		case judge.ErrTypeValidation:
			return http.StatusBadRequest
		case judge.ErrTypeNotFound:
			return http.StatusNotFound
		}
	}
	return http.StatusInternalServerError
}
