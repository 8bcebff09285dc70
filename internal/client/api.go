package client

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"chatdesk-backend/internal/assistant/workflow"
	"chatdesk-backend/internal/auth"
	"chatdesk-backend/internal/dashboard"
	"chatdesk-backend/internal/models"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrEmptySetting is returned without a request when a setting key or value is blank
var ErrEmptySetting = errors.New("setting key and value are required")

// Session is the caller as reported by /auth/me
type Session struct {
	IsAdmin bool            `json:"is_admin"`
	Profile *models.Profile `json:"profile,omitempty"`
}

type ChangesPage struct {
	Changes []models.ChangeLog `json:"changes"`
	Next    uint64             `json:"next"`
}

// auth

// Login stores the returned token on the client
func (c *Client) Login(ctx context.Context, email, password string) (*auth.Result, error) {
	return c.login(ctx, "/auth/login", map[string]string{"email": email, "password": password})
}

func (c *Client) AdminLogin(ctx context.Context, username, password string) (*auth.Result, error) {
	return c.login(ctx, "/auth/admin/login", map[string]string{"username": username, "password": password})
}

func (c *Client) Register(ctx context.Context, in auth.RegisterInput) (*auth.Result, error) {
	return c.login(ctx, "/auth/register", in)
}

func (c *Client) login(ctx context.Context, path string, in interface{}) (*auth.Result, error) {
	var result auth.Result
	if err := c.do(ctx, http.MethodPost, path, nil, in, &result); err != nil {
		return nil, err
	}
	c.token = result.Token
	return &result, nil
}

func (c *Client) Logout(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, nil); err != nil {
		return err
	}
	c.token = ""
	return nil
}

func (c *Client) Me(ctx context.Context) (*Session, error) {
	var session Session
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// chats

func (c *Client) ListChats(ctx context.Context) ([]models.Chat, error) {
	var resp struct {
		Chats []models.Chat `json:"chats"`
	}
	if err := c.do(ctx, http.MethodGet, "/chats", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Chats, nil
}

// CreateChat creates a chat. A nil id lets the server pick one.
func (c *Client) CreateChat(ctx context.Context, id uuid.UUID, title string) (*models.Chat, error) {
	var chat models.Chat
	in := workflow.CreateChatInput{ID: id, Title: title}
	if err := c.do(ctx, http.MethodPost, "/chats", nil, in, &chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

func (c *Client) GetChat(ctx context.Context, chatID uuid.UUID) (*models.Chat, error) {
	var chat models.Chat
	if err := c.do(ctx, http.MethodGet, "/chats/"+chatID.String(), nil, nil, &chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

func (c *Client) DeleteChatByID(ctx context.Context, chatID uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/chats/"+chatID.String(), nil, nil, nil)
}

func (c *Client) ListMessages(ctx context.Context, chatID uuid.UUID) ([]models.Message, error) {
	var resp struct {
		Messages []models.Message `json:"messages"`
	}
	if err := c.do(ctx, http.MethodGet, "/chats/"+chatID.String()+"/messages", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

type SendOptions struct {
	Model string
	// MessageID is the id the user message is stored under; nil lets the server pick
	MessageID uuid.UUID
}

// PostMessage sends a user message and waits for the reply. When the assistant fails
// the returned exchange still carries the stored user message alongside the error.
func (c *Client) PostMessage(ctx context.Context, chatID uuid.UUID, content string, opts SendOptions) (*workflow.Exchange, error) {
	in := map[string]string{"content": content}
	if opts.Model != "" {
		in["model"] = opts.Model
	}
	if opts.MessageID != uuid.Nil {
		in["message_id"] = opts.MessageID.String()
	}

	var exchange workflow.Exchange
	err := c.do(ctx, http.MethodPost, "/chats/"+chatID.String()+"/messages", nil, in, &exchange)
	if err == nil {
		return &exchange, nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		var partial workflow.Exchange
		if json.Unmarshal(apiErr.Body, &partial) == nil && partial.UserMessage != nil {
			return &partial, err
		}
	}
	return nil, err
}

// Export downloads the plain text transcript and its suggested file name
func (c *Client) Export(ctx context.Context, chatID uuid.UUID) (string, string, error) {
	path := "/chats/" + chatID.String() + "/export"
	resp, err := c.send(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", errors.Wrapf(err, "reading %s", path)
	}
	return string(body), attachmentName(resp.Header.Get("Content-Disposition")), nil
}

// Archive asks the server to store the transcript in its bucket and returns the object path
func (c *Client) Archive(ctx context.Context, chatID uuid.UUID) (string, error) {
	var resp struct {
		Path string `json:"path"`
	}
	if err := c.do(ctx, http.MethodPost, "/chats/"+chatID.String()+"/export/archive", nil, nil, &resp); err != nil {
		return "", err
	}
	return resp.Path, nil
}

// profile

func (c *Client) GetProfile(ctx context.Context) (*models.Profile, error) {
	var profile models.Profile
	if err := c.do(ctx, http.MethodGet, "/profile", nil, nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (c *Client) UpdateProfile(ctx context.Context, fullName string) (*models.Profile, error) {
	var profile models.Profile
	if err := c.do(ctx, http.MethodPatch, "/profile", nil, map[string]string{"full_name": fullName}, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// admin

func (c *Client) ListUsers(ctx context.Context) ([]models.Profile, error) {
	var resp struct {
		Users []models.Profile `json:"users"`
	}
	if err := c.do(ctx, http.MethodGet, "/admin/users", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

func (c *Client) GetUser(ctx context.Context, userID uuid.UUID) (*models.ProfileDetails, error) {
	var details models.ProfileDetails
	if err := c.do(ctx, http.MethodGet, "/admin/users/"+userID.String(), nil, nil, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

func (c *Client) ToggleAdmin(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	if err := c.do(ctx, http.MethodPost, "/admin/users/"+userID.String()+"/toggle-admin", nil, nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (c *Client) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/admin/users/"+userID.String(), nil, nil, nil)
}

func (c *Client) ListAllChats(ctx context.Context) ([]models.ChatSummary, error) {
	var resp struct {
		Chats []models.ChatSummary `json:"chats"`
	}
	if err := c.do(ctx, http.MethodGet, "/admin/chats", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Chats, nil
}

func (c *Client) ListSettings(ctx context.Context) ([]models.Setting, error) {
	var resp struct {
		Settings []models.Setting `json:"settings"`
	}
	if err := c.do(ctx, http.MethodGet, "/admin/settings", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Settings, nil
}

// AddSetting creates a setting. A blank key or value never reaches the server.
func (c *Client) AddSetting(ctx context.Context, key, value string) (*models.Setting, error) {
	key = strings.TrimSpace(key)
	if key == "" || value == "" {
		return nil, ErrEmptySetting
	}
	var setting models.Setting
	in := map[string]string{"key_name": key, "key_value": value}
	if err := c.do(ctx, http.MethodPost, "/admin/settings", nil, in, &setting); err != nil {
		return nil, err
	}
	return &setting, nil
}

func (c *Client) UpdateSetting(ctx context.Context, id uuid.UUID, value string) (*models.Setting, error) {
	if value == "" {
		return nil, ErrEmptySetting
	}
	var setting models.Setting
	if err := c.do(ctx, http.MethodPatch, "/admin/settings/"+id.String(), nil, map[string]string{"key_value": value}, &setting); err != nil {
		return nil, err
	}
	return &setting, nil
}

func (c *Client) DeleteSetting(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/admin/settings/"+id.String(), nil, nil, nil)
}

func (c *Client) Stats(ctx context.Context) (*dashboard.Stats, error) {
	var stats dashboard.Stats
	if err := c.do(ctx, http.MethodGet, "/admin/dashboard/stats", nil, nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *Client) Charts(ctx context.Context) (*dashboard.Charts, error) {
	var charts dashboard.Charts
	if err := c.do(ctx, http.MethodGet, "/admin/dashboard/charts", nil, nil, &charts); err != nil {
		return nil, err
	}
	return &charts, nil
}

// Changes pages through the change log. Pass the returned Next as since to continue.
func (c *Client) Changes(ctx context.Context, since uint64, table string, limit int) (*ChangesPage, error) {
	query := url.Values{}
	query.Set("since", strconv.FormatUint(since, 10))
	if table != "" {
		query.Set("table", table)
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var page ChangesPage
	if err := c.do(ctx, http.MethodGet, "/admin/changes", query, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func attachmentName(disposition string) string {
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return ""
	}
	return params["filename"]
}
