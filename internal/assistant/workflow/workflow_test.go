package workflow

import (
	"context"
	"errors"
	"testing"

	"chatdesk-backend/internal/libraries"
	llmHandlers "chatdesk-backend/internal/llm_handlers"
	"chatdesk-backend/internal/models"
	"chatdesk-backend/internal/repo"
	"chatdesk-backend/internal/repo/repotest"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockResponder struct {
	mock.Mock
}

func (m *MockResponder) ProcessRequest(ctx context.Context, chatHistory []llmHandlers.Message, model string) (string, error) {
	args := m.Called(ctx, chatHistory, model)
	return args.String(0), args.Error(1)
}

type fixture struct {
	wf        *Workflow
	chats     repo.ChatRepoInterface
	messages  repo.MessageRepoInterface
	responder *MockResponder
	broker    *libraries.Broker
	owner     *models.Principal
}

func newFixture(t *testing.T) *fixture {
	db := repotest.OpenDB(t)
	broker := libraries.NewBroker()
	t.Cleanup(broker.Close)
	notifier := repo.NewNotifier(db, broker)

	profiles := repo.NewProfileRepository(db, notifier)
	profile := &models.Profile{Email: "ada@example.com", FullName: "Ada"}
	require.NoError(t, profiles.CreateProfile(profile))

	chats := repo.NewChatRepository(db, notifier)
	messages := repo.NewMessageRepository(db, notifier)
	responder := new(MockResponder)

	return &fixture{
		wf:        NewWorkflow(chats, messages, responder),
		chats:     chats,
		messages:  messages,
		responder: responder,
		broker:    broker,
		owner:     &models.Principal{ProfileID: &profile.ID},
	}
}

func TestCreateChatDefaultsTitle(t *testing.T) {
	f := newFixture(t)

	chat, err := f.wf.CreateChat(f.owner, CreateChatInput{})
	require.NoError(t, err)
	assert.Equal(t, models.DefaultChatTitle, chat.Title)
	assert.Equal(t, *f.owner.ProfileID, chat.UserID)

	id := uuid.New()
	chat, err = f.wf.CreateChat(f.owner, CreateChatInput{ID: id, Title: "Groceries"})
	require.NoError(t, err)
	assert.Equal(t, id, chat.ID)
	assert.Equal(t, "Groceries", chat.Title)
}

func TestCreateChatRequiresProfile(t *testing.T) {
	f := newFixture(t)
	adminID := uuid.New()
	_, err := f.wf.CreateChat(&models.Principal{AdminID: &adminID, IsAdmin: true}, CreateChatInput{})
	assert.ErrorIs(t, err, ErrNoProfile)
}

func TestSendMessageStoresExchangeAndTitlesChat(t *testing.T) {
	f := newFixture(t)
	chat, err := f.wf.CreateChat(f.owner, CreateChatInput{})
	require.NoError(t, err)

	f.responder.On("ProcessRequest", mock.Anything, mock.MatchedBy(func(h []llmHandlers.Message) bool {
		return len(h) == 1 && h[0].Role == llmHandlers.RoleUser && h[0].Content == "Plan a trip to Lisbon"
	}), "").Return("Sure, here is a plan.", nil).Once()

	clientID := uuid.New()
	exchange, err := f.wf.SendMessage(context.Background(), f.owner, SendInput{
		ChatID:    chat.ID,
		Content:   "  Plan a trip to Lisbon ",
		MessageID: clientID,
	})
	require.NoError(t, err)
	assert.Equal(t, clientID, exchange.UserMessage.ID)
	assert.Equal(t, "Plan a trip to Lisbon", exchange.UserMessage.Content)
	require.NotNil(t, exchange.BotMessage)
	assert.True(t, exchange.BotMessage.IsAI)
	assert.Equal(t, "Sure, here is a plan.", exchange.BotMessage.Content)
	assert.True(t, exchange.TitleUpdated)

	stored, err := f.chats.GetChat(chat.ID)
	require.NoError(t, err)
	assert.Equal(t, "Plan a trip to Lisbon", stored.Title)
	assert.True(t, stored.TitleLocked)

	msgs, err := f.messages.GetMessagesByChatId(chat.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.False(t, msgs[0].IsAI)
	assert.True(t, msgs[1].IsAI)
	f.responder.AssertExpectations(t)
}

func TestTitleIsSetOnlyOnce(t *testing.T) {
	f := newFixture(t)
	chat, err := f.wf.CreateChat(f.owner, CreateChatInput{})
	require.NoError(t, err)

	f.responder.On("ProcessRequest", mock.Anything, mock.Anything, mock.Anything).Return("ok", nil)

	_, err = f.wf.SendMessage(context.Background(), f.owner, SendInput{ChatID: chat.ID, Content: "first"})
	require.NoError(t, err)
	exchange, err := f.wf.SendMessage(context.Background(), f.owner, SendInput{ChatID: chat.ID, Content: "second"})
	require.NoError(t, err)
	assert.False(t, exchange.TitleUpdated)

	stored, err := f.chats.GetChat(chat.ID)
	require.NoError(t, err)
	assert.Equal(t, "first", stored.Title)
}

func TestSendMessageAssistantFailureKeepsUserMessage(t *testing.T) {
	f := newFixture(t)
	chat, err := f.wf.CreateChat(f.owner, CreateChatInput{})
	require.NoError(t, err)

	f.responder.On("ProcessRequest", mock.Anything, mock.Anything, "gpt-x").
		Return("", errors.New("upstream 500")).Once()

	exchange, err := f.wf.SendMessage(context.Background(), f.owner, SendInput{ChatID: chat.ID, Content: "hello", Model: "gpt-x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAssistantUnavailable)
	require.NotNil(t, exchange)
	assert.Nil(t, exchange.BotMessage)

	msgs, err := f.messages.GetMessagesByChatId(chat.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.Equal(t, "The assistant could not respond. Your message was saved.", PublicError(err))
}

func TestSendMessageRateLimitedIsDetectable(t *testing.T) {
	f := newFixture(t)
	chat, err := f.wf.CreateChat(f.owner, CreateChatInput{})
	require.NoError(t, err)

	f.responder.On("ProcessRequest", mock.Anything, mock.Anything, mock.Anything).
		Return("", llmHandlers.ErrRateLimited).Once()

	_, err = f.wf.SendMessage(context.Background(), f.owner, SendInput{ChatID: chat.ID, Content: "hi"})
	assert.ErrorIs(t, err, llmHandlers.ErrRateLimited)
	assert.ErrorIs(t, err, ErrAssistantUnavailable)
}

func TestSendMessageValidation(t *testing.T) {
	f := newFixture(t)
	chat, err := f.wf.CreateChat(f.owner, CreateChatInput{})
	require.NoError(t, err)

	_, err = f.wf.SendMessage(context.Background(), f.owner, SendInput{ChatID: chat.ID, Content: "   "})
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = f.wf.SendMessage(context.Background(), f.owner, SendInput{ChatID: uuid.New(), Content: "hi"})
	assert.ErrorIs(t, err, ErrChatNotFound)

	stranger := uuid.New()
	_, err = f.wf.SendMessage(context.Background(), &models.Principal{ProfileID: &stranger}, SendInput{ChatID: chat.ID, Content: "hi"})
	assert.ErrorIs(t, err, ErrForbidden)

	f.responder.AssertNotCalled(t, "ProcessRequest", mock.Anything, mock.Anything, mock.Anything)
}

func TestDeleteChatByOwnerAndAdmin(t *testing.T) {
	f := newFixture(t)
	first, err := f.wf.CreateChat(f.owner, CreateChatInput{})
	require.NoError(t, err)
	second, err := f.wf.CreateChat(f.owner, CreateChatInput{})
	require.NoError(t, err)

	stranger := uuid.New()
	assert.ErrorIs(t, f.wf.DeleteChat(&models.Principal{ProfileID: &stranger}, first.ID), ErrForbidden)

	require.NoError(t, f.wf.DeleteChat(f.owner, first.ID))
	require.NoError(t, f.wf.DeleteChat(&models.Principal{IsAdmin: true}, second.ID))

	chats, err := f.chats.GetChatsByUserId(*f.owner.ProfileID)
	require.NoError(t, err)
	assert.Empty(t, chats)
}

func TestSendMessagePublishesChanges(t *testing.T) {
	f := newFixture(t)
	chat, err := f.wf.CreateChat(f.owner, CreateChatInput{})
	require.NoError(t, err)

	sub := f.broker.Subscribe(libraries.TableMessages, &libraries.Filter{Column: "chat_id", Value: chat.ID.String()}, 8)
	f.responder.On("ProcessRequest", mock.Anything, mock.Anything, mock.Anything).Return("pong", nil)

	_, err = f.wf.SendMessage(context.Background(), f.owner, SendInput{ChatID: chat.ID, Content: "ping"})
	require.NoError(t, err)

	first := <-sub.C
	second := <-sub.C
	assert.Equal(t, libraries.EventInsert, first.Type)
	assert.Equal(t, libraries.EventInsert, second.Type)
	content, ok := second.Field("content")
	assert.True(t, ok)
	assert.Equal(t, "pong", content)
}
