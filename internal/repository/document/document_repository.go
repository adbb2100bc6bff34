// File: internal/repository/document/document_repository.go
package document

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/ksamadi/omnichat/internal/domain"
	"gorm.io/gorm"
)

var ErrDocumentNotFound = errors.New("document not found")
var ErrDuplicateTitle = errors.New("document with this title already exists")

type gormDocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &gormDocumentRepository{db: db}
}

func (r *gormDocumentRepository) Create(ctx context.Context, doc *domain.Document) (*domain.Document, error) {
	if doc == nil || doc.UserID == 0 || strings.TrimSpace(doc.Title) == "" {
		return nil, errors.New("invalid document")
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Document{}).
		Where("user_id = ? AND title = ?", doc.UserID, doc.Title).
		Count(&count).Error; err == nil && count > 0 {
		return nil, ErrDuplicateTitle
	}

	if err := r.db.WithContext(ctx).Create(doc).Error; err != nil {
		if isDuplicateErr(err) {
			return nil, ErrDuplicateTitle
		}
		log.Printf("[DocumentRepository] Database error during creation for user ID %d: %v", doc.UserID, err)
		return nil, errors.New("database error creating document")
	}
	return doc, nil
}

// isDuplicateErr reports a unique index violation. The pre-insert
// lookup cannot catch a concurrent insert, so constraint errors from
// Create are mapped as well.
func isDuplicateErr(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "UNIQUE constraint")
}

func (r *gormDocumentRepository) FindByTitle(ctx context.Context, userID uint, title string) (*domain.Document, error) {
	if userID == 0 || strings.TrimSpace(title) == "" {
		return nil, errors.New("invalid document lookup")
	}

	var doc domain.Document
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND title = ?", userID, title).
		First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		log.Printf("[DocumentRepository] FindByTitle database error: %v", err)
		return nil, errors.New("database query failed")
	}
	return &doc, nil
}

func (r *gormDocumentRepository) Update(ctx context.Context, doc *domain.Document) error {
	if doc == nil || doc.ID == 0 {
		return errors.New("invalid document")
	}

	if err := r.db.WithContext(ctx).Save(doc).Error; err != nil {
		log.Printf("[DocumentRepository] Database error updating document ID %d: %v", doc.ID, err)
		return errors.New("database error updating document")
	}
	return nil
}
