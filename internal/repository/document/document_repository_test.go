// File: internal/repository/document/document_repository_test.go
package document

import (
	"context"
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ksamadi/omnichat/internal/domain"
)

func newRepo(t *testing.T) DocumentRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Document{}))
	return NewDocumentRepository(db)
}

func TestCreateRejectsDuplicateTitlePerUser(t *testing.T) {
	repo := newRepo(t)

	_, err := repo.Create(context.Background(), &domain.Document{UserID: 1, Title: "notes", Content: "a"})
	require.NoError(t, err)

	_, err = repo.Create(context.Background(), &domain.Document{UserID: 1, Title: "notes", Content: "b"})
	require.ErrorIs(t, err, ErrDuplicateTitle)

	// Same title under another user is fine.
	_, err = repo.Create(context.Background(), &domain.Document{UserID: 2, Title: "notes", Content: "c"})
	require.NoError(t, err)
}

func TestIsDuplicateErrClassification(t *testing.T) {
	assert.True(t, isDuplicateErr(gorm.ErrDuplicatedKey))
	assert.True(t, isDuplicateErr(errors.New("UNIQUE constraint failed: documents.user_id, documents.title")))
	assert.False(t, isDuplicateErr(errors.New("disk I/O error")))
}
