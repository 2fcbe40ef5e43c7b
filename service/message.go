package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"direct-messenger/model"
)

// FileDescriptor is what the upload collaborator hands back for a stored file.
type FileDescriptor struct {
	URL      string
	Name     string
	MimeType string
}

type SendMessageInput struct {
	ConversationID uint
	SenderID       uint
	Content        string
	File           *FileDescriptor
}

// SendResult is the created message, enriched with its sender, and the conversation
// after the flag update.
type SendResult struct {
	Message      MessageView
	Conversation *model.Conversation
}

// SendMessage appends a message and flips the conversation flags for both sides.
// The flag write always comes after the insert.
func (s *Conversations) SendMessage(ctx context.Context, in SendMessageInput) (*SendResult, error) {
	hasContent := strings.TrimSpace(in.Content) != ""
	hasFile := in.File != nil && strings.TrimSpace(in.File.URL) != ""
	if !hasContent && !hasFile {
		return nil, newError(ErrInvalidArgument, "Message content or file is required.")
	}

	c, p, err := s.Authorize(ctx, in.ConversationID, in.SenderID)
	if err != nil {
		return nil, err
	}

	msg := &model.Message{
		ConversationID: c.ID,
		SenderID:       in.SenderID,
	}
	if hasContent {
		msg.Content = stringPtr(in.Content)
	}
	if hasFile {
		msg.FileURL = stringPtr(in.File.URL)
		msg.FileName = optionalString(in.File.Name)
		msg.FileType = optionalString(in.File.MimeType)
	}
	if err := s.store.InsertMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}

	if err := s.store.UpdateConversationFlags(ctx, c.ID, p.Send()); err != nil {
		return nil, fmt.Errorf("update conversation flags: %w", err)
	}

	sender, err := s.store.UserByID(ctx, in.SenderID)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return nil, fmt.Errorf("load sender: %w", err)
	}
	refreshed, err := s.store.ConversationByID(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("reload conversation: %w", err)
	}

	view := NewMessageView(msg)
	view.Sender = NewSenderView(sender)
	return &SendResult{Message: *view, Conversation: refreshed}, nil
}

// ListMessages returns the full history, oldest first.
func (s *Conversations) ListMessages(ctx context.Context, conversationID, userID uint) ([]MessageView, error) {
	return s.ListMessagesPage(ctx, conversationID, userID, model.Page{})
}

// ListMessagesPage returns at most page.Limit messages older than page.BeforeID,
// still oldest first.
func (s *Conversations) ListMessagesPage(ctx context.Context, conversationID, userID uint, page model.Page) ([]MessageView, error) {
	if page.Limit < 0 {
		return nil, newError(ErrInvalidArgument, "Limit must not be negative.")
	}
	c, _, err := s.Authorize(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}
	messages, err := s.store.MessagesForConversation(ctx, c.ID, page)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	views := make([]MessageView, 0, len(messages))
	for _, m := range messages {
		views = append(views, *NewMessageView(m))
	}
	return views, nil
}

func stringPtr(v string) *string {
	return &v
}

func optionalString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
