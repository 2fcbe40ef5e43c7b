package service

import (
	"context"
	"time"

	"direct-messenger/model"
)

// UserStore is the part of the identity directory the service consumes.
type UserStore interface {
	UserByID(ctx context.Context, id uint) (*model.User, error)
	UserByEmail(ctx context.Context, email string) (*model.User, error)
	TouchLastSeen(ctx context.Context, id uint, at time.Time) error
}

// ConversationStore persists conversation rows. Lookups return model.ErrNotFound on a miss.
type ConversationStore interface {
	// ConversationByID returns the row with User1 and User2 preloaded.
	ConversationByID(ctx context.Context, id uint) (*model.Conversation, error)
	ConversationByPairingKey(ctx context.Context, key string) (*model.Conversation, error)
	// InsertConversation reports false, without error, when the pairing key is already taken.
	InsertConversation(ctx context.Context, c *model.Conversation) (bool, error)
	// UpdateConversationFlags is a single-row write touching only the non-nil flags.
	UpdateConversationFlags(ctx context.Context, id uint, flags model.FlagUpdate) error
	// ConversationsForUser returns the user's conversations, newest activity first.
	ConversationsForUser(ctx context.Context, userID uint, includeHidden bool) ([]*model.Conversation, error)
}

// MessageStore is the append-only message log.
type MessageStore interface {
	InsertMessage(ctx context.Context, m *model.Message) error
	// MessagesForConversation returns messages oldest first, ties broken by id.
	MessagesForConversation(ctx context.Context, conversationID uint, page model.Page) ([]*model.Message, error)
	// LastMessage returns nil, nil for an empty conversation.
	LastMessage(ctx context.Context, conversationID uint) (*model.Message, error)
	// MarkConversationRead stamps read_at on unread messages not sent by readerID,
	// then applies flags to the conversation row, in one transaction.
	MarkConversationRead(ctx context.Context, conversationID, readerID uint, at time.Time, flags model.FlagUpdate) (int64, error)
}

type Store interface {
	UserStore
	ConversationStore
	MessageStore
}
