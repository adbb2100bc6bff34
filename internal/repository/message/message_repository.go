// File: internal/repository/message/message_repository.go
package message

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/ksamadi/omnichat/internal/domain"
	"gorm.io/gorm"
)

var ErrMessageNotFound = errors.New("message not found")

type gormMessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &gormMessageRepository{db: db}
}

func (r *gormMessageRepository) Create(ctx context.Context, message *domain.Message) (*domain.Message, error) {
	if err := validateMessage(message); err != nil {
		return nil, err
	}

	if err := r.db.WithContext(ctx).Create(message).Error; err != nil {
		log.Printf("[MessageRepository] Database error during creation for group ID %d: %v", message.ChatGroupID, err)
		return nil, errors.New("database error creating message")
	}
	return message, nil
}

func (r *gormMessageRepository) FindByID(ctx context.Context, messageID uint) (*domain.Message, error) {
	if messageID == 0 {
		return nil, errors.New("invalid message ID")
	}

	var message domain.Message
	err := r.db.WithContext(ctx).First(&message, messageID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		log.Printf("[MessageRepository] FindByID database error: %v", err)
		return nil, errors.New("database query failed")
	}
	return &message, nil
}

func (r *gormMessageRepository) FindByGroupID(ctx context.Context, groupID uint) ([]domain.Message, error) {
	if groupID == 0 {
		return nil, errors.New("invalid chat group ID")
	}

	var messages []domain.Message
	err := r.db.WithContext(ctx).
		Where("chat_group_id = ?", groupID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	if err != nil {
		log.Printf("[MessageRepository] Database error finding messages for group ID %d: %v", groupID, err)
		return nil, errors.New("database error fetching messages")
	}
	return messages, nil
}

func (r *gormMessageRepository) FindByUserID(ctx context.Context, userID uint) ([]domain.Message, error) {
	if userID == 0 {
		return nil, errors.New("invalid user ID")
	}

	var messages []domain.Message
	err := r.db.WithContext(ctx).
		Joins("JOIN chat_groups ON chat_groups.id = messages.chat_group_id").
		Where("chat_groups.user_id = ?", userID).
		Order("messages.created_at ASC, messages.id ASC").
		Find(&messages).Error
	if err != nil {
		log.Printf("[MessageRepository] Database error finding messages for user ID %d: %v", userID, err)
		return nil, errors.New("database error fetching user messages")
	}
	return messages, nil
}

func (r *gormMessageRepository) Update(ctx context.Context, message *domain.Message) error {
	if message == nil || message.ID == 0 {
		return errors.New("invalid message ID")
	}

	result := r.db.WithContext(ctx).Save(message)
	if result.Error != nil {
		log.Printf("[MessageRepository] Database error updating message ID %d: %v", message.ID, result.Error)
		return errors.New("database error updating message")
	}
	if result.RowsAffected == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// DeleteByGroupID removes every message of a group, used when the owning
// group is deleted.
func (r *gormMessageRepository) DeleteByGroupID(ctx context.Context, groupID uint) error {
	if groupID == 0 {
		return errors.New("invalid chat group ID")
	}

	result := r.db.WithContext(ctx).Where("chat_group_id = ?", groupID).Delete(&domain.Message{})
	if result.Error != nil {
		log.Printf("[MessageRepository] Database error deleting messages for group ID %d: %v", groupID, result.Error)
		return errors.New("database error deleting messages by group ID")
	}
	return nil
}

func (r *gormMessageRepository) CountByGroupID(ctx context.Context, groupID uint) (int64, error) {
	if groupID == 0 {
		return 0, errors.New("invalid chat group ID")
	}

	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Message{}).Where("chat_group_id = ?", groupID).Count(&count).Error
	if err != nil {
		log.Printf("[MessageRepository] Database error counting messages for group ID %d: %v", groupID, err)
		return 0, errors.New("database error counting messages")
	}
	return count, nil
}

func validateMessage(message *domain.Message) error {
	if message == nil {
		return errors.New("message cannot be nil")
	}
	if message.ChatGroupID == 0 {
		return errors.New("chat group ID is required")
	}
	if strings.TrimSpace(message.UserMessage) == "" {
		return errors.New("user message cannot be empty")
	}
	return nil
}
