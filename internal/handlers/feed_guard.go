package handlers

import (
	"context"
	"errors"

	"chatdesk-backend/internal/libraries"
	"chatdesk-backend/internal/models"
	"chatdesk-backend/internal/repo"

	"github.com/google/uuid"
)

var (
	ErrUnknownTable       = errors.New("unknown table")
	ErrSubscriptionDenied = errors.New("not allowed to watch these rows")
)

// FeedGuard authorises change feed subscriptions. Admins may watch anything;
// users may watch their own chats and the messages of chats they own.
type FeedGuard struct {
	chatRepo repo.ChatRepoInterface
}

func NewFeedGuard(chatRepo repo.ChatRepoInterface) *FeedGuard {
	return &FeedGuard{chatRepo: chatRepo}
}

func (g *FeedGuard) AuthorizeSubscription(ctx context.Context, principal *models.Principal, table string, filter *libraries.Filter) error {
	switch table {
	case libraries.TableProfiles, libraries.TableChats, libraries.TableMessages, libraries.TableSettings:
	default:
		return ErrUnknownTable
	}
	if principal == nil {
		return ErrSubscriptionDenied
	}
	if principal.IsAdmin {
		return nil
	}
	if filter == nil || principal.ProfileID == nil {
		return ErrSubscriptionDenied
	}

	switch {
	case table == libraries.TableChats && filter.Column == "user_id":
		if filter.Value == principal.ProfileID.String() {
			return nil
		}
	case table == libraries.TableMessages && filter.Column == "chat_id":
		chatID, err := uuid.Parse(filter.Value)
		if err != nil {
			return ErrSubscriptionDenied
		}
		chat, err := g.chatRepo.GetChat(chatID)
		if err == nil && principal.Owns(chat.UserID) {
			return nil
		}
	}
	return ErrSubscriptionDenied
}
