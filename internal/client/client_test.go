package client

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"chatdesk-backend/internal/api"
	"chatdesk-backend/internal/api/routes"
	v1 "chatdesk-backend/internal/api/routes/v1"
	"chatdesk-backend/internal/assistant/workflow"
	"chatdesk-backend/internal/auth"
	"chatdesk-backend/internal/config"
	"chatdesk-backend/internal/dashboard"
	"chatdesk-backend/internal/libraries"
	llmHandlers "chatdesk-backend/internal/llm_handlers"
	"chatdesk-backend/internal/repo"
	"chatdesk-backend/internal/repo/repotest"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	adminUser     = "admin"
	adminPassword = "admin-secret"
	waitFor       = 2 * time.Second
	tick          = 10 * time.Millisecond
)

type stubResponder struct {
	reply string
	err   error
}

func (s stubResponder) ProcessRequest(ctx context.Context, chatHistory []llmHandlers.Message, model string) (string, error) {
	return s.reply, s.err
}

// startServer runs the full API on a loopback port
func startServer(t *testing.T, responder workflow.Responder) string {
	t.Helper()
	db := repotest.OpenDB(t)

	broker := libraries.NewBroker()
	hub := libraries.NewHub(broker)
	go hub.Run()

	notifier := repo.NewNotifier(db, broker)
	authService := auth.NewService(repo.NewProfileRepository(db, notifier), repo.NewSessionRepository(db), time.Hour)
	require.NoError(t, authService.EnsureAdmin(adminUser, adminPassword))

	dashboardService := dashboard.NewService(repo.NewStatsRepository(db), time.Local)
	deps := &v1.Deps{
		DB:        db,
		Notifier:  notifier,
		Hub:       hub,
		Auth:      authService,
		Workflow:  workflow.NewWorkflow(repo.NewChatRepository(db, notifier), repo.NewMessageRepository(db, notifier), responder),
		Dashboard: dashboardService,
		Refresher: dashboard.NewRefresher(dashboardService, broker, time.Minute),
	}

	app := api.NewServer(&config.Config{CORSOrigins: "*"})
	routes.Register(app, deps)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() {
		_ = app.Shutdown()
		hub.Stop()
		broker.Close()
	})
	return "http://" + ln.Addr().String()
}

func newUser(t *testing.T, baseURL, email string) (*Client, *auth.Result) {
	t.Helper()
	c, err := New(baseURL)
	require.NoError(t, err)
	result, err := c.Register(context.Background(), auth.RegisterInput{
		Email:           email,
		Password:        "secret1",
		ConfirmPassword: "secret1",
		FullName:        "Test User",
	})
	require.NoError(t, err)
	require.NotNil(t, result.Profile)
	return c, result
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New("ftp://example.com")
	assert.Error(t, err)
}

func TestAddSettingSkipsEmptyInput(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"key_name":"K","key_value":"V"}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL, WithToken("t"))
	require.NoError(t, err)

	_, err = c.AddSetting(context.Background(), "", "value")
	assert.ErrorIs(t, err, ErrEmptySetting)
	_, err = c.AddSetting(context.Background(), "KEY", "")
	assert.ErrorIs(t, err, ErrEmptySetting)
	_, err = c.AddSetting(context.Background(), " \t ", "value")
	assert.ErrorIs(t, err, ErrEmptySetting)
	assert.Equal(t, int32(0), atomic.LoadInt32(&requests))

	setting, err := c.AddSetting(context.Background(), "K", "V")
	require.NoError(t, err)
	assert.Equal(t, "K", setting.KeyName)
	assert.Equal(t, int32(1), atomic.LoadInt32(&requests))
}

func TestAPIErrorCarriesStatus(t *testing.T) {
	baseURL := startServer(t, stubResponder{reply: "ok"})
	c, err := New(baseURL)
	require.NoError(t, err)

	_, err = c.ListChats(context.Background())
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, StatusOf(err))

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Unauthorized", apiErr.Message)
}

func TestChatRoundTrip(t *testing.T) {
	baseURL := startServer(t, stubResponder{reply: "hi there"})
	c, _ := newUser(t, baseURL, "alice@example.com")
	ctx := context.Background()

	chat, err := c.CreateChat(ctx, uuid.Nil, "")
	require.NoError(t, err)

	exchange, err := c.PostMessage(ctx, chat.ID, "Plan my week", SendOptions{})
	require.NoError(t, err)
	assert.Equal(t, "hi there", exchange.BotMessage.Content)
	assert.True(t, exchange.TitleUpdated)

	got, err := c.GetChat(ctx, chat.ID)
	require.NoError(t, err)
	assert.Equal(t, "Plan my week", got.Title)

	text, name, err := c.Export(ctx, chat.ID)
	require.NoError(t, err)
	assert.Contains(t, text, "Chat: Plan my week\n")
	assert.Contains(t, text, "User: Plan my week")
	assert.Contains(t, text, "AI: hi there")
	assert.Contains(t, name, "plan-my-week-")

	_, err = c.Archive(ctx, chat.ID)
	assert.Equal(t, http.StatusServiceUnavailable, StatusOf(err))

	require.NoError(t, c.Logout(ctx))
	_, err = c.ListChats(ctx)
	assert.Equal(t, http.StatusUnauthorized, StatusOf(err))
}

func TestPostMessageKeepsUserMessageOnFailure(t *testing.T) {
	baseURL := startServer(t, stubResponder{err: errors.New("upstream down")})
	c, _ := newUser(t, baseURL, "bob@example.com")
	ctx := context.Background()

	chat, err := c.CreateChat(ctx, uuid.Nil, "Notes")
	require.NoError(t, err)

	exchange, err := c.PostMessage(ctx, chat.ID, "hello", SendOptions{})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadGateway, StatusOf(err))
	require.NotNil(t, exchange)
	assert.Equal(t, "hello", exchange.UserMessage.Content)
	assert.Nil(t, exchange.BotMessage)
}

func TestLiveChatsFollowTheFeed(t *testing.T) {
	baseURL := startServer(t, stubResponder{reply: "ok"})
	c, result := newUser(t, baseURL, "carol@example.com")
	ctx := context.Background()

	stream, err := c.Dial(ctx)
	require.NoError(t, err)
	defer stream.Close()

	chats, err := c.WatchChats(ctx, stream, result.Profile.ID)
	require.NoError(t, err)
	defer chats.Close()
	assert.Equal(t, 0, chats.Len())

	first, err := c.CreateChat(ctx, uuid.Nil, "first")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return chats.Len() == 1 }, waitFor, tick)
	assert.Equal(t, first.ID.String(), chats.Selected())

	second, err := c.NewChat(ctx, chats, "second")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return chats.Len() == 2 }, waitFor, tick)
	assert.Equal(t, second.ID.String(), chats.Items()[0].ID.String())
	assert.Equal(t, second.ID.String(), chats.Selected())

	require.NoError(t, c.DeleteChat(ctx, chats, second.ID))
	assert.Equal(t, 1, chats.Len())
	require.Eventually(t, func() bool { return chats.Pending() == 0 }, waitFor, tick)
	assert.Equal(t, first.ID.String(), chats.Selected())

	// someone else's chat never shows up
	other, _ := newUser(t, baseURL, "dave@example.com")
	_, err = other.CreateChat(ctx, uuid.Nil, "private")
	require.NoError(t, err)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, chats.Len())
}

func TestDeleteChatRollsBackOnFailure(t *testing.T) {
	baseURL := startServer(t, stubResponder{reply: "ok"})
	c, result := newUser(t, baseURL, "erin@example.com")
	ctx := context.Background()

	stream, err := c.Dial(ctx)
	require.NoError(t, err)
	defer stream.Close()

	chats, err := c.WatchChats(ctx, stream, result.Profile.ID)
	require.NoError(t, err)
	defer chats.Close()

	chat, err := c.CreateChat(ctx, uuid.Nil, "keep me")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return chats.Len() == 1 }, waitFor, tick)

	token := c.Token()
	c.SetToken("expired")
	err = c.DeleteChat(ctx, chats, chat.ID)
	assert.Equal(t, http.StatusUnauthorized, StatusOf(err))
	assert.Equal(t, 1, chats.Len())
	assert.Equal(t, 0, chats.Pending())

	c.SetToken(token)
	_, err = c.GetChat(ctx, chat.ID)
	assert.NoError(t, err)
}

func TestSendMessageOptimistic(t *testing.T) {
	baseURL := startServer(t, stubResponder{reply: "pong"})
	c, _ := newUser(t, baseURL, "frank@example.com")
	ctx := context.Background()

	stream, err := c.Dial(ctx)
	require.NoError(t, err)
	defer stream.Close()

	chat, err := c.CreateChat(ctx, uuid.Nil, "")
	require.NoError(t, err)
	messages, err := c.WatchMessages(ctx, stream, chat.ID)
	require.NoError(t, err)
	defer messages.Close()

	exchange, err := c.SendMessage(ctx, messages, chat.ID, "ping", SendOptions{})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return messages.Len() == 2 }, waitFor, tick)
	items := messages.Items()
	assert.Equal(t, exchange.UserMessage.ID, items[0].ID)
	assert.Equal(t, "pong", items[1].Content)
	assert.True(t, items[1].IsAI)
	assert.Equal(t, 0, messages.Pending())
}

func TestSendMessageFailureKeepsStoredMessage(t *testing.T) {
	baseURL := startServer(t, stubResponder{err: errors.New("no model")})
	c, _ := newUser(t, baseURL, "grace@example.com")
	ctx := context.Background()

	stream, err := c.Dial(ctx)
	require.NoError(t, err)
	defer stream.Close()

	chat, err := c.CreateChat(ctx, uuid.Nil, "")
	require.NoError(t, err)
	messages, err := c.WatchMessages(ctx, stream, chat.ID)
	require.NoError(t, err)
	defer messages.Close()

	id := uuid.New()
	_, err = c.SendMessage(ctx, messages, chat.ID, "anyone there?", SendOptions{MessageID: id})
	require.Error(t, err)

	assert.Equal(t, 0, messages.Pending())
	require.Equal(t, 1, messages.Len())
	assert.Equal(t, id, messages.Items()[0].ID)
	assert.False(t, messages.Items()[0].IsAI)
}

func TestSubscriptionDenied(t *testing.T) {
	baseURL := startServer(t, stubResponder{reply: "ok"})
	c, _ := newUser(t, baseURL, "heidi@example.com")
	ctx := context.Background()

	stream, err := c.Dial(ctx)
	require.NoError(t, err)
	defer stream.Close()

	_, err = c.WatchSettings(ctx, stream)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not allowed")

	_, err = stream.WatchDashboard()
	require.NoError(t, err)
	select {
	case ev := <-stream.Events():
		assert.Equal(t, libraries.WebSocketMessageTypeError, ev.Type)
		assert.Equal(t, "Admin session required", ev.Error())
	case <-time.After(waitFor):
		t.Fatal("no error frame for dashboard request")
	}
}

func TestAdminSettingsAndDashboard(t *testing.T) {
	baseURL := startServer(t, stubResponder{reply: "ok"})
	newUser(t, baseURL, "ivan@example.com")

	admin, err := New(baseURL)
	require.NoError(t, err)
	ctx := context.Background()
	result, err := admin.AdminLogin(ctx, adminUser, adminPassword)
	require.NoError(t, err)
	assert.True(t, result.IsAdmin)

	stream, err := admin.Dial(ctx)
	require.NoError(t, err)
	defer stream.Close()

	settings, err := admin.WatchSettings(ctx, stream)
	require.NoError(t, err)
	defer settings.Close()

	_, err = admin.AddSetting(ctx, "ZETA_KEY", "1")
	require.NoError(t, err)
	_, err = admin.AddSetting(ctx, "ALPHA_KEY", "2")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return settings.Len() == 2 }, waitFor, tick)
	assert.Equal(t, "ALPHA_KEY", settings.Items()[0].KeyName)

	stats, err := admin.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalUsers)

	snapshots, err := stream.WatchDashboard()
	require.NoError(t, err)
	select {
	case snap := <-snapshots:
		require.NotNil(t, snap.Stats)
		assert.Equal(t, int64(1), snap.Stats.TotalUsers)
		assert.Len(t, snap.Charts.ChatsByHour, 24)
	case <-time.After(waitFor):
		t.Fatal("no dashboard snapshot")
	}

	page, err := admin.Changes(ctx, 0, libraries.TableSettings, 10)
	require.NoError(t, err)
	assert.Len(t, page.Changes, 2)
	assert.Equal(t, page.Changes[1].Seq, page.Next)
}
