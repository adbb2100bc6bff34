// File: internal/repository/chatgroup/chatgroup_repository.go
package chatgroup

import (
	"context"
	"errors"
	"log"

	"github.com/ksamadi/omnichat/internal/domain"
	"gorm.io/gorm"
)

var ErrChatGroupNotFound = errors.New("chat group not found")
var ErrUnauthorizedAccess = errors.New("unauthorized access to chat group")

type gormChatGroupRepository struct {
	db *gorm.DB
}

func NewChatGroupRepository(db *gorm.DB) ChatGroupRepository {
	return &gormChatGroupRepository{db: db}
}

func (r *gormChatGroupRepository) Create(ctx context.Context, group *domain.ChatGroup) (*domain.ChatGroup, error) {
	if group == nil || group.UserID == 0 {
		return nil, errors.New("invalid chat group")
	}

	if err := r.db.WithContext(ctx).Create(group).Error; err != nil {
		log.Printf("[ChatGroupRepository] Database error during creation for user ID %d: %v", group.UserID, err)
		return nil, errors.New("database error creating chat group")
	}
	return group, nil
}

func (r *gormChatGroupRepository) FindByID(ctx context.Context, id uint) (*domain.ChatGroup, error) {
	if id == 0 {
		return nil, errors.New("invalid chat group ID")
	}

	var group domain.ChatGroup
	err := r.db.WithContext(ctx).First(&group, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChatGroupNotFound
		}
		log.Printf("[ChatGroupRepository] FindByID database error: %v", err)
		return nil, errors.New("database query failed")
	}
	return &group, nil
}

func (r *gormChatGroupRepository) FindByUserID(ctx context.Context, userID uint) ([]domain.ChatGroup, error) {
	if userID == 0 {
		return nil, errors.New("invalid user ID")
	}

	var groups []domain.ChatGroup
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC, id DESC").
		Find(&groups).Error
	if err != nil {
		log.Printf("[ChatGroupRepository] Database error finding groups for user ID %d: %v", userID, err)
		return nil, errors.New("database error fetching chat groups")
	}
	return groups, nil
}

// FindMostRecent returns the group with the newest UpdatedAt, used to pick
// the active conversation after a delete.
func (r *gormChatGroupRepository) FindMostRecent(ctx context.Context, userID uint) (*domain.ChatGroup, error) {
	if userID == 0 {
		return nil, errors.New("invalid user ID")
	}

	var group domain.ChatGroup
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC, id DESC").
		First(&group).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChatGroupNotFound
		}
		log.Printf("[ChatGroupRepository] FindMostRecent database error: %v", err)
		return nil, errors.New("database query failed")
	}
	return &group, nil
}

func (r *gormChatGroupRepository) Update(ctx context.Context, group *domain.ChatGroup) error {
	if group == nil || group.ID == 0 {
		return errors.New("invalid chat group")
	}

	if err := r.db.WithContext(ctx).Save(group).Error; err != nil {
		log.Printf("[ChatGroupRepository] Database error updating group ID %d: %v", group.ID, err)
		return errors.New("database error updating chat group")
	}
	return nil
}

func (r *gormChatGroupRepository) Delete(ctx context.Context, groupID, userID uint) error {
	if groupID == 0 || userID == 0 {
		return errors.New("invalid chat group ID or user ID")
	}

	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", groupID, userID).
		Delete(&domain.ChatGroup{})
	if result.Error != nil {
		log.Printf("[ChatGroupRepository] Database error deleting group ID %d for user ID %d: %v", groupID, userID, result.Error)
		return errors.New("database error deleting chat group")
	}
	if result.RowsAffected == 0 {
		return ErrUnauthorizedAccess
	}
	return nil
}

func (r *gormChatGroupRepository) CountByUserID(ctx context.Context, userID uint) (int64, error) {
	if userID == 0 {
		return 0, errors.New("invalid user ID")
	}

	var count int64
	err := r.db.WithContext(ctx).Model(&domain.ChatGroup{}).Where("user_id = ?", userID).Count(&count).Error
	if err != nil {
		log.Printf("[ChatGroupRepository] Database error counting groups for user ID %d: %v", userID, err)
		return 0, errors.New("database error counting chat groups")
	}
	return count, nil
}
