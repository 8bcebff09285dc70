package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"chatdesk-backend/internal/assistant/workflow"
	"chatdesk-backend/internal/chatexport"
	"chatdesk-backend/internal/libraries"
	llmHandlers "chatdesk-backend/internal/llm_handlers"
	"chatdesk-backend/internal/models"
	"chatdesk-backend/internal/repo"
	"chatdesk-backend/internal/repo/repotest"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type stubResponder struct {
	reply string
	err   error
}

func (s stubResponder) ProcessRequest(ctx context.Context, chatHistory []llmHandlers.Message, model string) (string, error) {
	return s.reply, s.err
}

// asPrincipal stands in for RequireAuth
func asPrincipal(p *models.Principal) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(libraries.LocalsPrincipal, p)
		return c.Next()
	}
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	var out map[string]interface{}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out)
	}
	return resp, out
}

func newProfile(t *testing.T, db *gorm.DB, email string) *models.Profile {
	p := &models.Profile{Email: email, FullName: "Test"}
	require.NoError(t, repo.NewProfileRepository(db, nil).CreateProfile(p))
	return p
}

func TestCreateSettingRejectsEmpty(t *testing.T) {
	db := repotest.OpenDB(t)
	settings := repo.NewSettingRepository(db, nil)
	h := NewSettingHandler(settings)

	app := fiber.New()
	app.Post("/settings", h.CreateSetting)
	app.Get("/settings", h.ListSettings)

	resp, _ := doJSON(t, app, http.MethodPost, "/settings", map[string]string{"key_name": "", "key_value": "x"})
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	resp, _ = doJSON(t, app, http.MethodPost, "/settings", map[string]string{"key_name": "API_KEY", "key_value": ""})
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)

	stored, err := settings.ListSettings()
	require.NoError(t, err)
	assert.Empty(t, stored)

	resp, body := doJSON(t, app, http.MethodPost, "/settings", map[string]string{"key_name": "API_KEY", "key_value": "secret"})
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, "API_KEY", body["key_name"])

	resp, _ = doJSON(t, app, http.MethodPost, "/settings", map[string]string{"key_name": "API_KEY", "key_value": "again"})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestSettingsListedByKey(t *testing.T) {
	db := repotest.OpenDB(t)
	settings := repo.NewSettingRepository(db, nil)
	require.NoError(t, settings.CreateSetting(&models.Setting{KeyName: "ZETA", KeyValue: "1"}))
	require.NoError(t, settings.CreateSetting(&models.Setting{KeyName: "ALPHA", KeyValue: "2"}))

	app := fiber.New()
	app.Get("/settings", NewSettingHandler(settings).ListSettings)

	resp, body := doJSON(t, app, http.MethodGet, "/settings", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	list := body["settings"].([]interface{})
	require.Len(t, list, 2)
	assert.Equal(t, "ALPHA", list[0].(map[string]interface{})["key_name"])
}

func newChatApp(t *testing.T, responder workflow.Responder) (*fiber.App, *gorm.DB, *models.Principal) {
	db := repotest.OpenDB(t)
	owner := newProfile(t, db, "owner@example.com")
	principal := &models.Principal{ProfileID: &owner.ID}

	chats := repo.NewChatRepository(db, nil)
	messages := repo.NewMessageRepository(db, nil)
	wf := workflow.NewWorkflow(chats, messages, responder)
	h := NewChatHandler(chats, wf)

	app := fiber.New()
	app.Use(asPrincipal(principal))
	app.Get("/chats", h.GetChats)
	app.Post("/chats", h.CreateChat)
	app.Delete("/chats/:chatId", h.DeleteChat)
	app.Get("/chats/:chatId/messages", h.GetMessages)
	app.Post("/chats/:chatId/messages", h.SendMessage)
	app.Get("/chats/:chatId/export", NewExportHandler(wf, nil).ExportChat)
	return app, db, principal
}

func TestSendMessageHappyPath(t *testing.T) {
	app, _, _ := newChatApp(t, stubResponder{reply: "hello back"})

	resp, chat := doJSON(t, app, http.MethodPost, "/chats", nil)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, models.DefaultChatTitle, chat["title"])
	chatID := chat["id"].(string)

	msgID := uuid.NewString()
	resp, body := doJSON(t, app, http.MethodPost, "/chats/"+chatID+"/messages", map[string]string{
		"content":    "hello",
		"message_id": msgID,
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, msgID, body["user_message"].(map[string]interface{})["id"])
	assert.Equal(t, "hello back", body["bot_message"].(map[string]interface{})["content"])
	assert.Equal(t, true, body["title_updated"])

	resp, body = doJSON(t, app, http.MethodGet, "/chats/"+chatID+"/messages", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, body["messages"], 2)
}

func TestExportHeaderSurvivesQuotedTitle(t *testing.T) {
	app, _, _ := newChatApp(t, stubResponder{reply: "ok"})

	_, chat := doJSON(t, app, http.MethodPost, "/chats", nil)
	chatID := chat["id"].(string)
	title := `say "hi"; x`
	resp, _ := doJSON(t, app, http.MethodPost, "/chats/"+chatID+"/messages", map[string]string{"content": title})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/chats/"+chatID+"/export", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	disposition, params, err := mime.ParseMediaType(resp.Header.Get(fiber.HeaderContentDisposition))
	require.NoError(t, err)
	assert.Equal(t, "attachment", disposition)
	assert.Equal(t, chatexport.Filename(title, time.Now(), time.Local), params["filename"])

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Chat: "+title)
}

func TestSendMessageAssistantFailure(t *testing.T) {
	app, _, _ := newChatApp(t, stubResponder{err: errors.New("boom")})

	_, chat := doJSON(t, app, http.MethodPost, "/chats", map[string]string{"title": "Keep"})
	chatID := chat["id"].(string)

	resp, body := doJSON(t, app, http.MethodPost, "/chats/"+chatID+"/messages", map[string]string{"content": "hi"})
	assert.Equal(t, fiber.StatusBadGateway, resp.StatusCode)
	assert.NotEmpty(t, body["error"])
	assert.Equal(t, "hi", body["user_message"].(map[string]interface{})["content"])

	_, body = doJSON(t, app, http.MethodGet, "/chats/"+chatID+"/messages", nil)
	assert.Len(t, body["messages"], 1)
}

func TestSendMessageErrors(t *testing.T) {
	app, _, _ := newChatApp(t, stubResponder{reply: "x"})

	resp, _ := doJSON(t, app, http.MethodPost, "/chats/not-a-uuid/messages", map[string]string{"content": "hi"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPost, "/chats/"+uuid.NewString()+"/messages", map[string]string{"content": "hi"})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	_, chat := doJSON(t, app, http.MethodPost, "/chats", nil)
	resp, _ = doJSON(t, app, http.MethodPost, "/chats/"+chat["id"].(string)+"/messages", map[string]string{"content": "  "})
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
}

func TestDeleteChatCascades(t *testing.T) {
	app, db, _ := newChatApp(t, stubResponder{reply: "ok"})

	_, chat := doJSON(t, app, http.MethodPost, "/chats", nil)
	chatID := chat["id"].(string)
	doJSON(t, app, http.MethodPost, "/chats/"+chatID+"/messages", map[string]string{"content": "hi"})

	resp, _ := doJSON(t, app, http.MethodDelete, "/chats/"+chatID, nil)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	var count int64
	require.NoError(t, db.Model(&models.Message{}).Where("chat_id = ?", chatID).Count(&count).Error)
	assert.Zero(t, count)

	resp, _ = doJSON(t, app, http.MethodDelete, "/chats/"+chatID, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestFeedGuard(t *testing.T) {
	db := repotest.OpenDB(t)
	owner := newProfile(t, db, "owner@example.com")
	other := newProfile(t, db, "other@example.com")
	chats := repo.NewChatRepository(db, nil)
	chat := &models.Chat{UserID: owner.ID}
	require.NoError(t, chats.CreateChat(chat))

	guard := NewFeedGuard(chats)
	ctx := context.Background()
	ownerP := &models.Principal{ProfileID: &owner.ID}
	otherP := &models.Principal{ProfileID: &other.ID}

	assert.NoError(t, guard.AuthorizeSubscription(ctx, ownerP, libraries.TableChats, &libraries.Filter{Column: "user_id", Value: owner.ID.String()}))
	assert.ErrorIs(t, guard.AuthorizeSubscription(ctx, otherP, libraries.TableChats, &libraries.Filter{Column: "user_id", Value: owner.ID.String()}), ErrSubscriptionDenied)
	assert.ErrorIs(t, guard.AuthorizeSubscription(ctx, ownerP, libraries.TableChats, nil), ErrSubscriptionDenied)

	assert.NoError(t, guard.AuthorizeSubscription(ctx, ownerP, libraries.TableMessages, &libraries.Filter{Column: "chat_id", Value: chat.ID.String()}))
	assert.ErrorIs(t, guard.AuthorizeSubscription(ctx, otherP, libraries.TableMessages, &libraries.Filter{Column: "chat_id", Value: chat.ID.String()}), ErrSubscriptionDenied)

	assert.ErrorIs(t, guard.AuthorizeSubscription(ctx, ownerP, libraries.TableSettings, nil), ErrSubscriptionDenied)
	assert.NoError(t, guard.AuthorizeSubscription(ctx, &models.Principal{IsAdmin: true}, libraries.TableSettings, nil))
	assert.ErrorIs(t, guard.AuthorizeSubscription(ctx, &models.Principal{IsAdmin: true}, "passwords", nil), ErrUnknownTable)
}

func TestAdminUserDetails(t *testing.T) {
	db := repotest.OpenDB(t)
	owner := newProfile(t, db, "owner@example.com")
	chats := repo.NewChatRepository(db, nil)
	messages := repo.NewMessageRepository(db, nil)
	chat := &models.Chat{UserID: owner.ID, Title: "Trip"}
	require.NoError(t, chats.CreateChat(chat))
	require.NoError(t, messages.CreateMessage(&models.Message{ChatID: chat.ID, Content: "a"}))
	require.NoError(t, messages.CreateMessage(&models.Message{ChatID: chat.ID, Content: "b", IsAI: true}))

	h := NewAdminHandler(repo.NewProfileRepository(db, nil), chats, messages)
	app := fiber.New()
	app.Get("/users/:userId", h.GetUser)
	app.Post("/users/:userId/toggle-admin", h.ToggleAdmin)
	app.Delete("/users/:userId", h.DeleteUser)

	resp, body := doJSON(t, app, http.MethodGet, "/users/"+owner.ID.String(), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	userChats := body["chats"].([]interface{})
	require.Len(t, userChats, 1)
	assert.Equal(t, float64(2), userChats[0].(map[string]interface{})["message_count"])

	resp, body = doJSON(t, app, http.MethodPost, "/users/"+owner.ID.String()+"/toggle-admin", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["is_admin"])

	resp, _ = doJSON(t, app, http.MethodDelete, "/users/"+owner.ID.String(), nil)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	var count int64
	require.NoError(t, db.Model(&models.Message{}).Count(&count).Error)
	assert.Zero(t, count)

	resp, _ = doJSON(t, app, http.MethodGet, "/users/"+owner.ID.String(), nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
