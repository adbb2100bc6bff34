// File: internal/services/chat/groups_test.go
package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksamadi/omnichat/internal/domain"
	"github.com/ksamadi/omnichat/internal/repository/chatgroup"
	"github.com/ksamadi/omnichat/internal/repository/message"
	"github.com/ksamadi/omnichat/internal/services"
)

type groupFixture struct {
	service   *GroupService
	groupRepo chatgroup.ChatGroupRepository
	msgRepo   message.MessageRepository
	provider  *fakeProvider
}

func newGroupFixture(t *testing.T) *groupFixture {
	t.Helper()
	db := newTestDB(t)
	groupRepo := chatgroup.NewChatGroupRepository(db)
	msgRepo := message.NewMessageRepository(db)
	provider := &fakeProvider{}

	service := NewGroupService(DefaultConfig(), groupRepo, msgRepo, provider, &services.NoOpLogger{})
	return &groupFixture{service: service, groupRepo: groupRepo, msgRepo: msgRepo, provider: provider}
}

func TestDeleteLastGroupCreatesFallback(t *testing.T) {
	f := newGroupFixture(t)
	ctx := context.Background()

	group, err := f.service.CreateGroup(ctx, 1, "only one", true)
	require.NoError(t, err)

	_, err = f.msgRepo.Create(ctx, &domain.Message{ChatGroupID: group.ID, UserMessage: "hi", AIMessage: "hello"})
	require.NoError(t, err)

	fallbackID, err := f.service.DeleteGroup(ctx, 1, group.ID)
	require.NoError(t, err)
	require.NotZero(t, fallbackID)
	assert.NotEqual(t, group.ID, fallbackID)

	fallback, err := f.groupRepo.FindByID(ctx, fallbackID)
	require.NoError(t, err)
	assert.Equal(t, uint(1), fallback.UserID)
	assert.Equal(t, "New Chat", fallback.Name)

	count, err := f.msgRepo.CountByGroupID(ctx, group.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestDeleteGroupFallsBackToMostRecent(t *testing.T) {
	f := newGroupFixture(t)
	ctx := context.Background()

	older, err := f.service.CreateGroup(ctx, 1, "older", true)
	require.NoError(t, err)
	doomed, err := f.service.CreateGroup(ctx, 1, "doomed", true)
	require.NoError(t, err)

	fallbackID, err := f.service.DeleteGroup(ctx, 1, doomed.ID)
	require.NoError(t, err)
	assert.Equal(t, older.ID, fallbackID)
}

func TestDeleteGroupRejectsForeignOwner(t *testing.T) {
	f := newGroupFixture(t)
	ctx := context.Background()

	group, err := f.service.CreateGroup(ctx, 2, "not yours", true)
	require.NoError(t, err)

	_, err = f.service.DeleteGroup(ctx, 1, group.ID)
	require.Error(t, err)

	var chatErr *ChatError
	require.ErrorAs(t, err, &chatErr)
	assert.Equal(t, ErrTypeUnauthorized, chatErr.Type)
}

func TestAttachFileRequiresMemoryGroup(t *testing.T) {
	f := newGroupFixture(t)
	ctx := context.Background()

	group, err := f.service.CreateGroup(ctx, 1, "stateless", false)
	require.NoError(t, err)

	_, err = f.service.AttachFile(ctx, 1, group.ID, "notes.pdf", []byte("content"))
	require.Error(t, err)

	var chatErr *ChatError
	require.ErrorAs(t, err, &chatErr)
	assert.Equal(t, ErrTypeValidation, chatErr.Type)
}

func TestAttachFileStoresHandlesAndReplacesPrevious(t *testing.T) {
	f := newGroupFixture(t)
	ctx := context.Background()

	group, err := f.service.CreateGroup(ctx, 1, "with memory", true)
	require.NoError(t, err)

	updated, err := f.service.AttachFile(ctx, 1, group.ID, "first.pdf", []byte("a"))
	require.NoError(t, err)
	assert.Equal(t, "file_test", updated.FileID)
	assert.Equal(t, "vs_test", updated.VectorStoreID)
	assert.Equal(t, "first.pdf", updated.FileName)

	// A second upload releases the unconsumed first attachment.
	_, err = f.service.AttachFile(ctx, 1, group.ID, "second.pdf", []byte("b"))
	require.NoError(t, err)
	assert.Len(t, f.provider.removedFiles(), 1)
}
