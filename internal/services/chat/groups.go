// File: internal/services/chat/groups.go
package chat

import (
	"context"

	"github.com/ksamadi/omnichat/internal/domain"
	"github.com/ksamadi/omnichat/internal/repository/chatgroup"
	"github.com/ksamadi/omnichat/internal/repository/message"
	"github.com/ksamadi/omnichat/internal/services/ai"
)

const defaultGroupName = "New Chat"

// GroupService manages conversation lifecycle outside the streamed
// turn: listing, creation, deletion with fallback, and single-use file
// attachments.
type GroupService struct {
	config        *Config
	chatGroupRepo chatgroup.ChatGroupRepository
	messageRepo   message.MessageRepository
	provider      ai.ConversationProvider
	logger        Logger
}

func NewGroupService(
	config *Config,
	chatGroupRepo chatgroup.ChatGroupRepository,
	messageRepo message.MessageRepository,
	provider ai.ConversationProvider,
	logger Logger,
) *GroupService {
	return &GroupService{
		config:        config,
		chatGroupRepo: chatGroupRepo,
		messageRepo:   messageRepo,
		provider:      provider,
		logger:        logger,
	}
}

// CreateGroup creates a conversation. Memory is fixed here for the
// group's lifetime; provider-side handles are provisioned lazily on the
// first thread-backed turn.
func (s *GroupService) CreateGroup(ctx context.Context, userID uint, name string, memory bool) (*domain.ChatGroup, error) {
	if name == "" {
		name = defaultGroupName
	}
	group := &domain.ChatGroup{
		UserID: userID,
		Name:   name,
		Model:  s.config.DefaultModel,
		Memory: memory,
	}
	created, err := s.chatGroupRepo.Create(ctx, group)
	if err != nil {
		return nil, NewPersistenceError("create_group", "failed to create chat group", err)
	}
	s.logger.Info("chat group created", "user_id", userID, "chat_group_id", created.ID, "memory", memory)
	return created, nil
}

func (s *GroupService) ListGroups(ctx context.Context, userID uint) ([]domain.ChatGroup, error) {
	groups, err := s.chatGroupRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, NewPersistenceError("list_groups", "failed to list chat groups", err)
	}
	return groups, nil
}

func (s *GroupService) GetGroup(ctx context.Context, userID, groupID uint) (*domain.ChatGroup, error) {
	group, err := s.chatGroupRepo.FindByID(ctx, groupID)
	if err != nil || group.UserID != userID {
		return nil, NewUnauthorizedError(userID, groupID)
	}
	return group, nil
}

// GetMessages returns the group's messages oldest first.
func (s *GroupService) GetMessages(ctx context.Context, userID, groupID uint) ([]domain.Message, error) {
	if _, err := s.GetGroup(ctx, userID, groupID); err != nil {
		return nil, err
	}
	messages, err := s.messageRepo.FindByGroupID(ctx, groupID)
	if err != nil {
		return nil, NewPersistenceError("get_messages", "failed to load messages", err)
	}
	return messages, nil
}

// DeleteGroup removes a conversation and its messages, then hands the
// user over to another group: the most recent remaining one, or a fresh
// one created synchronously when the deleted group was the last. The
// returned id is the fallback group.
func (s *GroupService) DeleteGroup(ctx context.Context, userID, groupID uint) (uint, error) {
	group, err := s.GetGroup(ctx, userID, groupID)
	if err != nil {
		return 0, err
	}

	if group.HasAttachment() {
		if rerr := s.provider.RemoveAttachment(ctx, group.FileID, group.VectorStoreID); rerr != nil {
			s.logger.Warn("failed to release attachment on delete",
				"chat_group_id", groupID, "error", rerr.Error())
		}
	}

	if err := s.messageRepo.DeleteByGroupID(ctx, groupID); err != nil {
		return 0, NewPersistenceError("delete_group", "failed to delete messages", err)
	}
	if err := s.chatGroupRepo.Delete(ctx, groupID, userID); err != nil {
		return 0, NewPersistenceError("delete_group", "failed to delete chat group", err)
	}
	s.logger.Info("chat group deleted", "user_id", userID, "chat_group_id", groupID)

	remaining, err := s.chatGroupRepo.CountByUserID(ctx, userID)
	if err != nil {
		return 0, NewPersistenceError("delete_group", "failed to count chat groups", err)
	}
	if remaining > 0 {
		recent, err := s.chatGroupRepo.FindMostRecent(ctx, userID)
		if err != nil {
			return 0, NewPersistenceError("delete_group", "failed to find fallback group", err)
		}
		return recent.ID, nil
	}

	fallback, err := s.CreateGroup(ctx, userID, defaultGroupName, group.Memory)
	if err != nil {
		return 0, err
	}
	return fallback.ID, nil
}

// AttachFile uploads a single-use attachment for the group's next turn.
// A previously attached, unconsumed file is released first.
func (s *GroupService) AttachFile(ctx context.Context, userID, groupID uint, fileName string, data []byte) (*domain.ChatGroup, error) {
	if fileName == "" || len(data) == 0 {
		return nil, NewValidationError("attach_file", "file name and content are required")
	}

	group, err := s.GetGroup(ctx, userID, groupID)
	if err != nil {
		return nil, err
	}
	if !group.Memory {
		return nil, NewValidationError("attach_file", "attachments require a memory-enabled group")
	}

	if group.HasAttachment() {
		if rerr := s.provider.RemoveAttachment(ctx, group.FileID, group.VectorStoreID); rerr != nil {
			s.logger.Warn("failed to release previous attachment",
				"chat_group_id", groupID, "error", rerr.Error())
		}
	}

	fileID, vectorStoreID, err := s.provider.UploadAttachment(ctx, fileName, data)
	if err != nil {
		return nil, NewProviderError("attach_file", "failed to upload attachment", err)
	}

	group.FileID = fileID
	group.VectorStoreID = vectorStoreID
	group.FileName = fileName
	if err := s.chatGroupRepo.Update(ctx, group); err != nil {
		return nil, NewPersistenceError("attach_file", "failed to save attachment handles", err)
	}

	s.logger.Info("attachment uploaded",
		"user_id", userID, "chat_group_id", groupID, "file_name", fileName)
	return group, nil
}
