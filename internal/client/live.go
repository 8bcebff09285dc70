package client

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"chatdesk-backend/internal/libraries"
	"chatdesk-backend/internal/models"
	"chatdesk-backend/internal/reconciler"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Fetcher loads the authoritative list behind a live view
type Fetcher[T any] func(ctx context.Context) ([]T, error)

// Live keeps a reconciled list in sync with one change feed
type Live[T any] struct {
	*reconciler.Store[T]

	cfg   reconciler.Config[T]
	feed  *Feed
	fetch Fetcher[T]
	done  chan struct{}
	once  sync.Once
}

// Watch subscribes before fetching so no change between the two is lost; the reconciler
// absorbs any overlap.
func Watch[T any](ctx context.Context, stream *Stream, table string, filter *libraries.Filter, cfg reconciler.Config[T], fetch Fetcher[T]) (*Live[T], error) {
	feed, err := stream.Subscribe(ctx, table, filter)
	if err != nil {
		return nil, err
	}

	live := &Live[T]{
		Store: reconciler.NewStore(cfg),
		cfg:   cfg,
		feed:  feed,
		fetch: fetch,
		done:  make(chan struct{}),
	}

	buffered := make([]libraries.ChangeEvent, 0)
	items, err := fetch(ctx)
	if err != nil {
		_ = feed.Close()
		return nil, errors.Wrapf(err, "loading %s", table)
	}
	// events that raced the fetch are applied after it
	for drained := false; !drained; {
		select {
		case ev, ok := <-feed.C:
			if !ok {
				drained = true
				continue
			}
			buffered = append(buffered, ev)
		default:
			drained = true
		}
	}

	live.Dispatch(reconciler.Load(items))
	for _, ev := range buffered {
		live.apply(ev)
	}
	go live.run()
	return live, nil
}

func (l *Live[T]) run() {
	defer close(l.done)
	for ev := range l.feed.C {
		l.apply(ev)
	}
}

func (l *Live[T]) apply(ev libraries.ChangeEvent) {
	var item T
	if err := json.Unmarshal(ev.Row(), &item); err != nil {
		log.Printf("[client] undecodable %s row on %s: %v", ev.Type, ev.Table, err)
		return
	}
	switch ev.Type {
	case libraries.EventInsert:
		l.Dispatch(reconciler.Insert(item))
	case libraries.EventUpdate:
		l.Dispatch(reconciler.Update(item))
	case libraries.EventDelete:
		l.Dispatch(reconciler.Delete[T](l.cfg.Key(item)))
	}
}

// Refetch reloads the list and rolls back every optimistic change
func (l *Live[T]) Refetch(ctx context.Context) error {
	items, err := l.fetch(ctx)
	if err != nil {
		return err
	}
	l.Dispatch(reconciler.Rollback(items))
	return nil
}

// rollback restores the server view after a failed optimistic change.
// Without a fresh list the last confirmed rows are kept.
func (l *Live[T]) rollback(ctx context.Context) {
	if err := l.Refetch(ctx); err != nil {
		log.Printf("[client] refetch after failed change: %v", err)
		l.Dispatch(reconciler.RestoreConfirmed[T]())
	}
}

// Close ends the subscription; the view keeps its last state
func (l *Live[T]) Close() error {
	var err error
	l.once.Do(func() {
		err = l.feed.Close()
	})
	return err
}

// Done is closed once no more events will be applied
func (l *Live[T]) Done() <-chan struct{} {
	return l.done
}

// Chat and message views

func chatKey(c models.Chat) string       { return c.ID.String() }
func messageKey(m models.Message) string { return m.ID.String() }

// ChatListConfig orders chats newest first and keeps a selection, like the sidebar
var ChatListConfig = reconciler.Config[models.Chat]{
	Key:             chatKey,
	Less:            func(a, b models.Chat) bool { return a.CreatedAt.After(b.CreatedAt) },
	FallbackToFirst: true,
}

// MessageListConfig orders a conversation oldest first
var MessageListConfig = reconciler.Config[models.Message]{
	Key:  messageKey,
	Less: func(a, b models.Message) bool { return a.CreatedAt.Before(b.CreatedAt) },
}

// SettingListConfig orders settings by key
var SettingListConfig = reconciler.Config[models.Setting]{
	Key:  func(s models.Setting) string { return s.ID.String() },
	Less: func(a, b models.Setting) bool { return a.KeyName < b.KeyName },
}

// WatchChats is the caller's chat list
func (c *Client) WatchChats(ctx context.Context, stream *Stream, userID uuid.UUID) (*Live[models.Chat], error) {
	filter := &libraries.Filter{Column: "user_id", Value: userID.String()}
	return Watch(ctx, stream, libraries.TableChats, filter, ChatListConfig, c.ListChats)
}

// WatchMessages is one conversation
func (c *Client) WatchMessages(ctx context.Context, stream *Stream, chatID uuid.UUID) (*Live[models.Message], error) {
	filter := &libraries.Filter{Column: "chat_id", Value: chatID.String()}
	return Watch(ctx, stream, libraries.TableMessages, filter, MessageListConfig, func(ctx context.Context) ([]models.Message, error) {
		return c.ListMessages(ctx, chatID)
	})
}

// WatchSettings is the admin settings table
func (c *Client) WatchSettings(ctx context.Context, stream *Stream) (*Live[models.Setting], error) {
	return Watch(ctx, stream, libraries.TableSettings, nil, SettingListConfig, c.ListSettings)
}
