// File: internal/services/tools/document_test.go
package tools

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ksamadi/omnichat/internal/domain"
	"github.com/ksamadi/omnichat/internal/repository/document"
)

func newDocumentStore(t *testing.T) *RepositoryDocumentStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Document{}))
	return NewRepositoryDocumentStore(document.NewDocumentRepository(db))
}

func TestDocumentCreateReadAppend(t *testing.T) {
	store := newDocumentStore(t)
	ctx := context.Background()

	_, err := store.Execute(ctx, 1, DocumentCreate, "Notes", "first line")
	require.NoError(t, err)

	content, err := store.Execute(ctx, 1, DocumentRead, "Notes", "")
	require.NoError(t, err)
	assert.Equal(t, "first line", content)

	_, err = store.Execute(ctx, 1, DocumentAppend, "Notes", "second line")
	require.NoError(t, err)

	content, err = store.Execute(ctx, 1, DocumentRead, "Notes", "")
	require.NoError(t, err)
	assert.Equal(t, "first line\nsecond line", content)
}

func TestDocumentCreateRejectsDuplicateTitlePerUser(t *testing.T) {
	store := newDocumentStore(t)
	ctx := context.Background()

	_, err := store.Execute(ctx, 1, DocumentCreate, "Notes", "mine")
	require.NoError(t, err)

	_, err = store.Execute(ctx, 1, DocumentCreate, "Notes", "again")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	// Another user may reuse the title.
	_, err = store.Execute(ctx, 2, DocumentCreate, "Notes", "theirs")
	require.NoError(t, err)

	content, err := store.Execute(ctx, 2, DocumentRead, "Notes", "")
	require.NoError(t, err)
	assert.Equal(t, "theirs", content)
}

func TestDocumentReadUnknownTitleFails(t *testing.T) {
	store := newDocumentStore(t)

	_, err := store.Execute(context.Background(), 1, DocumentRead, "Missing", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
