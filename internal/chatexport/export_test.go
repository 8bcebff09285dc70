package chatexport

import (
	"context"
	"testing"
	"time"

	"chatdesk-backend/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var exportDay = time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC)

func sampleMessages() []models.Message {
	return []models.Message{
		{Content: "How do I boil an egg?", CreatedAt: time.Date(2025, 3, 9, 10, 0, 5, 0, time.UTC)},
		{Content: "Put it in boiling water for 9 minutes.", IsAI: true, CreatedAt: time.Date(2025, 3, 9, 10, 0, 7, 0, time.UTC)},
	}
}

func TestFormat(t *testing.T) {
	got := Format("Egg help", sampleMessages(), exportDay, time.UTC)
	want := "Chat: Egg help\nDate: 2025-03-10\n\n" +
		"[10:00:05] User: How do I boil an egg?\n\n" +
		"[10:00:07] AI: Put it in boiling water for 9 minutes.\n\n"
	assert.Equal(t, want, got)
}

func TestFormatEmpty(t *testing.T) {
	assert.Equal(t, "Chat: New Chat\nDate: 2025-03-10\n\n", Format("New Chat", nil, exportDay, time.UTC))
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "my-first---chat-2025-03-10.txt", Filename("My First - Chat", exportDay, time.UTC))
	assert.Equal(t, "tabs-and-newlines-2025-03-10.txt", Filename("Tabs\tand \n newlines", exportDay, time.UTC))
	assert.Equal(t, "chat-2025-03-10.txt", Filename("   ", exportDay, time.UTC))
	assert.Equal(t, "a-b-c-2025-03-10.txt", Filename(`a/b\\c`, exportDay, time.UTC))
	assert.Equal(t, "..-etc-passwd-2025-03-10.txt", Filename("../etc/passwd", exportDay, time.UTC))
}

type MockUploader struct {
	mock.Mock
}

func (m *MockUploader) Upload(ctx context.Context, object, contentType string, data []byte) error {
	args := m.Called(ctx, object, contentType, data)
	return args.Error(0)
}

func TestArchive(t *testing.T) {
	uploader := new(MockUploader)
	a := NewArchiver(uploader, "exports-bucket")
	require.NotNil(t, a)
	a.loc = time.UTC
	a.now = func() time.Time { return exportDay }

	chat := &models.Chat{ID: uuid.New(), UserID: uuid.New(), Title: "Egg help"}
	object := "exports/" + chat.UserID.String() + "/" + chat.ID.String() + "/egg-help-2025-03-10.txt"
	uploader.On("Upload", mock.Anything, object, "text/plain; charset=utf-8", mock.Anything).Return(nil).Once()

	path, err := a.Archive(context.Background(), chat, sampleMessages())
	require.NoError(t, err)
	assert.Equal(t, "gs://exports-bucket/"+object, path)
	uploader.AssertExpectations(t)
}

func TestArchiveNotConfigured(t *testing.T) {
	var a *Archiver = NewArchiver(nil, "")
	_, err := a.Archive(context.Background(), &models.Chat{}, nil)
	assert.ErrorIs(t, err, ErrArchiveNotConfigured)
}
