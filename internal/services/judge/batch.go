// File: internal/services/judge/batch.go
package judge

import (
	"context"
	"errors"

	"golang.org/x/time/rate"
)

// BatchReport summarizes one batch evaluation pass.
type BatchReport struct {
	Total   int `json:"total"`
	Judged  int `json:"judged"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// JudgeAll evaluates every unjudged message across all of the user's
// conversations, pacing calls with a fixed delay to respect upstream
// rate limits. Per-message failures are counted and do not stop the
// batch.
func (s *Service) JudgeAll(ctx context.Context, userID uint) (*BatchReport, error) {
	messages, err := s.messageRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, &JudgeError{Type: ErrTypePersistence, Operation: "judge_all", Message: "failed to load messages", Cause: err}
	}

	report := &BatchReport{Total: len(messages)}
	limiter := rate.NewLimiter(rate.Every(s.config.CallDelay), 1)

	for _, msg := range messages {
		if msg.Judged() || msg.AIMessage == "" {
			report.Skipped++
			continue
		}

		if err := limiter.Wait(ctx); err != nil {
			return report, &JudgeError{Type: ErrTypeValidation, Operation: "judge_all", Message: "batch aborted", Cause: err}
		}

		if _, err := s.JudgeMessage(ctx, userID, msg.ID); err != nil {
			if errors.Is(err, ErrAlreadyJudged) {
				report.Skipped++
				continue
			}
			s.logger.Warn("batch evaluation failed for message", "message_id", msg.ID, "error", err.Error())
			report.Failed++
			continue
		}
		report.Judged++
	}

	s.logger.Info("batch evaluation finished",
		"user_id", userID,
		"total", report.Total,
		"judged", report.Judged,
		"skipped", report.Skipped,
		"failed", report.Failed)
	return report, nil
}
