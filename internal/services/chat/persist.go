// File: internal/services/chat/persist.go
package chat

import (
	"context"

	"github.com/ksamadi/omnichat/internal/domain"
)

// persistTurn commits the accumulated result of one turn: exactly one
// message record, the group's updated configuration, and the single-use
// attachment consumption. It runs on its own context so a disconnected
// client cannot abort the save.
func (s *StreamingService) persistTurn(group *domain.ChatGroup, req *TurnRequest, acc *accumulator, toolUsed, cancelled bool) (*TurnResult, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.SaveTimeout)
	defer cancel()

	msg, err := s.persistMessage(ctx, group, req, acc, toolUsed)
	if err != nil {
		// Never drop the accumulated answer silently.
		s.logger.Error("failed to persist message",
			"session_id", acc.sessionID,
			"chat_group_id", group.ID,
			"response_length", len(acc.text()),
			"error", err.Error())
		return nil, err
	}

	s.finalizeGroup(ctx, group)

	return &TurnResult{
		MessageID:        msg.ID,
		AIMessage:        msg.AIMessage,
		PromptTokens:     msg.PromptTokens,
		CompletionTokens: msg.CompletionTokens,
		Cancelled:        cancelled,
	}, nil
}

func (s *StreamingService) persistMessage(ctx context.Context, group *domain.ChatGroup, req *TurnRequest, acc *accumulator, toolUsed bool) (*domain.Message, error) {
	if req.MessageID != 0 {
		return s.replayMessage(ctx, group, req, acc, toolUsed)
	}

	msg := &domain.Message{
		ChatGroupID:      group.ID,
		UserMessage:      req.Prompt,
		AIMessage:        acc.text(),
		PromptTokens:     acc.promptTokens,
		CompletionTokens: acc.completionTokens,
		Model:            s.runModel(group),
		FileName:         group.FileName,
		ToolUse:          toolUsed,
	}
	created, err := s.messageRepo.Create(ctx, msg)
	if err != nil {
		return nil, NewPersistenceError("save_message", "failed to create message", err)
	}
	return created, nil
}

// replayMessage overwrites an existing message in place. Identity and
// conversation position are unchanged; prior judge scores are cleared
// because the edit invalidates the old evaluation.
func (s *StreamingService) replayMessage(ctx context.Context, group *domain.ChatGroup, req *TurnRequest, acc *accumulator, toolUsed bool) (*domain.Message, error) {
	msg, err := s.messageRepo.FindByID(ctx, req.MessageID)
	if err != nil {
		return nil, &ChatError{Type: ErrTypeNotFound, Operation: "edit_replay", Message: "message not found", Cause: err}
	}
	if msg.ChatGroupID != group.ID {
		return nil, NewUnauthorizedError(group.UserID, group.ID)
	}

	msg.UserMessage = req.Prompt
	msg.AIMessage = acc.text()
	msg.PromptTokens = acc.promptTokens
	msg.CompletionTokens = acc.completionTokens
	msg.Model = s.runModel(group)
	msg.ToolUse = toolUsed
	msg.ClearScores()

	if err := s.messageRepo.Update(ctx, msg); err != nil {
		return nil, NewPersistenceError("edit_replay", "failed to update message", err)
	}
	return msg, nil
}

// finalizeGroup saves the group's post-turn state: model and persona
// changes, the bumped updatedAt, and the consumed attachment. Failures
// here are logged, not surfaced; the message itself is already safe.
func (s *StreamingService) finalizeGroup(ctx context.Context, group *domain.ChatGroup) {
	var fileID, vectorStoreID string
	hadAttachment := group.HasAttachment()
	if hadAttachment {
		fileID, vectorStoreID = s.consumeAttachment(group)
	}

	if err := s.chatGroupRepo.Update(ctx, group); err != nil {
		s.logger.Error("failed to save group state", "chat_group_id", group.ID, "error", err.Error())
		return
	}

	if hadAttachment {
		go s.releaseAttachment(group.ID, fileID, vectorStoreID)
	}
}

// releaseAttachment deletes the consumed upstream file handles, best
// effort.
func (s *StreamingService) releaseAttachment(groupID uint, fileID, vectorStoreID string) {
	ctx, cancel := context.WithTimeout(context.Background(), cancelTimeout)
	defer cancel()

	if err := s.provider.RemoveAttachment(ctx, fileID, vectorStoreID); err != nil {
		s.logger.Warn("failed to release attachment",
			"chat_group_id", groupID, "file_id", fileID, "error", err.Error())
		return
	}
	s.logger.Debug("attachment released", "chat_group_id", groupID, "file_id", fileID)
}
