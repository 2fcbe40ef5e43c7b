package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"direct-messenger/model"
)

// PresenceLabeler labels a user id "online" or "offline".
type PresenceLabeler interface {
	Status(userID uint) string
}

type Option func(*Conversations)

// WithPresence adds a status label to every OtherUser in summaries.
func WithPresence(p PresenceLabeler) Option {
	return func(s *Conversations) {
		s.presence = p
	}
}

// WithClock overrides the time source used for read and last-seen stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Conversations) {
		s.now = now
	}
}

// Conversations holds every conversation and message rule. It is shared by the
// REST controllers and the realtime hub.
type Conversations struct {
	store    Store
	presence PresenceLabeler
	now      func() time.Time
}

func New(store Store, opts ...Option) *Conversations {
	s := &Conversations{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListConversations returns the caller's visible conversations, most recently updated first.
func (s *Conversations) ListConversations(ctx context.Context, userID uint) ([]ConversationSummary, error) {
	conversations, err := s.store.ConversationsForUser(ctx, userID, false)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	summaries := make([]ConversationSummary, 0, len(conversations))
	for _, c := range conversations {
		summary, err := s.Summary(ctx, c, userID)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// CreateOrRevive opens the conversation between the caller and the owner of email.
// An existing pair is un-hidden and marked read for the caller instead of duplicated.
func (s *Conversations) CreateOrRevive(ctx context.Context, callerID uint, email string) (*ConversationSummary, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, newError(ErrInvalidArgument, "Target email is required.")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, newError(ErrInvalidArgument, "Target email is malformed.")
	}

	target, err := s.store.UserByEmail(ctx, email)
	if errors.Is(err, model.ErrNotFound) {
		return nil, newError(ErrNotFound, "User not found.")
	}
	if err != nil {
		return nil, fmt.Errorf("lookup target user: %w", err)
	}
	if target.ID == callerID {
		return nil, newError(ErrInvalidArgument, "Cannot start a conversation with yourself.")
	}

	key := model.PairingKey(callerID, target.ID)
	conversation, err := s.store.ConversationByPairingKey(ctx, key)
	switch {
	case errors.Is(err, model.ErrNotFound):
		created, err := s.store.InsertConversation(ctx, model.NewConversation(callerID, target.ID))
		if err != nil {
			return nil, fmt.Errorf("create conversation: %w", err)
		}
		conversation, err = s.store.ConversationByPairingKey(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("load conversation: %w", err)
		}
		if !created {
			// lost the insert race to a concurrent request for the same pair
			if err := s.revive(ctx, conversation, callerID); err != nil {
				return nil, err
			}
		}
	case err != nil:
		return nil, fmt.Errorf("lookup conversation: %w", err)
	default:
		if err := s.revive(ctx, conversation, callerID); err != nil {
			return nil, err
		}
	}

	refreshed, err := s.store.ConversationByID(ctx, conversation.ID)
	if err != nil {
		return nil, fmt.Errorf("reload conversation: %w", err)
	}
	summary, err := s.Summary(ctx, refreshed, callerID)
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

func (s *Conversations) revive(ctx context.Context, c *model.Conversation, callerID uint) error {
	p := ParticipantRole(c, callerID)
	if err := s.store.UpdateConversationFlags(ctx, c.ID, p.Revive()); err != nil {
		return fmt.Errorf("revive conversation: %w", err)
	}
	return nil
}

// Authorize loads a conversation and checks that userID is one of its participants.
func (s *Conversations) Authorize(ctx context.Context, conversationID, userID uint) (*model.Conversation, Participant, error) {
	c, err := s.store.ConversationByID(ctx, conversationID)
	if errors.Is(err, model.ErrNotFound) {
		return nil, Participant{}, accessError(ErrNotFound)
	}
	if err != nil {
		return nil, Participant{}, fmt.Errorf("load conversation: %w", err)
	}
	p := ParticipantRole(c, userID)
	if !p.Allowed() {
		return nil, Participant{}, accessError(ErrForbidden)
	}
	return c, p, nil
}

// MarkRead marks the conversation read for userID and stamps every unread message
// from the other participant. Calling it again changes nothing.
func (s *Conversations) MarkRead(ctx context.Context, conversationID, userID uint) (*model.Conversation, error) {
	c, p, err := s.Authorize(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.MarkConversationRead(ctx, c.ID, userID, s.now(), p.MarkRead()); err != nil {
		return nil, fmt.Errorf("mark conversation read: %w", err)
	}
	refreshed, err := s.store.ConversationByID(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("reload conversation: %w", err)
	}
	return refreshed, nil
}

// SoftDelete hides the conversation for userID only.
func (s *Conversations) SoftDelete(ctx context.Context, conversationID, userID uint) error {
	c, p, err := s.Authorize(ctx, conversationID, userID)
	if err != nil {
		return err
	}
	if err := s.store.UpdateConversationFlags(ctx, c.ID, p.Hide()); err != nil {
		return fmt.Errorf("hide conversation: %w", err)
	}
	return nil
}

// Summary shapes c for viewerID.
func (s *Conversations) Summary(ctx context.Context, c *model.Conversation, viewerID uint) (ConversationSummary, error) {
	p := ParticipantRole(c, viewerID)

	other := p.OtherUser(c)
	if other == nil {
		u, err := s.store.UserByID(ctx, p.OtherID)
		if err != nil && !errors.Is(err, model.ErrNotFound) {
			return ConversationSummary{}, fmt.Errorf("load participant: %w", err)
		}
		other = u
	}
	otherView := NewUserView(other)
	if otherView != nil && s.presence != nil {
		otherView.Status = s.presence.Status(otherView.ID)
	}

	last, err := s.store.LastMessage(ctx, c.ID)
	if err != nil {
		return ConversationSummary{}, fmt.Errorf("load last message: %w", err)
	}

	return ConversationSummary{
		ID:             c.ID,
		User1ID:        c.User1ID,
		User2ID:        c.User2ID,
		IsReadByUser1:  c.IsReadByUser1,
		IsReadByUser2:  c.IsReadByUser2,
		DeletedByUser1: c.DeletedByUser1,
		DeletedByUser2: c.DeletedByUser2,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
		Unread:         p.Allowed() && !p.HasRead(c),
		OtherUser:      otherView,
		LastMessage:    NewMessageView(last),
	}, nil
}

// ParticipantSummaries returns the conversation shaped once for each participant.
func (s *Conversations) ParticipantSummaries(ctx context.Context, conversationID uint) ([]AddressedSummary, error) {
	c, err := s.store.ConversationByID(ctx, conversationID)
	if errors.Is(err, model.ErrNotFound) {
		return nil, accessError(ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	return s.Summaries(ctx, c)
}

// Summaries builds the summary of c as each participant sees it.
func (s *Conversations) Summaries(ctx context.Context, c *model.Conversation) ([]AddressedSummary, error) {
	out := make([]AddressedSummary, 0, 2)
	for _, userID := range []uint{c.User1ID, c.User2ID} {
		summary, err := s.Summary(ctx, c, userID)
		if err != nil {
			return nil, err
		}
		out = append(out, AddressedSummary{UserID: userID, Summary: summary})
	}
	return out, nil
}

// Watchers returns every user sharing at least one conversation with userID.
func (s *Conversations) Watchers(ctx context.Context, userID uint) ([]uint, error) {
	conversations, err := s.store.ConversationsForUser(ctx, userID, true)
	if err != nil {
		return nil, fmt.Errorf("list watchers: %w", err)
	}
	seen := make(map[uint]struct{}, len(conversations))
	watchers := make([]uint, 0, len(conversations))
	for _, c := range conversations {
		other := ParticipantRole(c, userID).OtherID
		if _, ok := seen[other]; ok || other == 0 {
			continue
		}
		seen[other] = struct{}{}
		watchers = append(watchers, other)
	}
	return watchers, nil
}

// RecordLastSeen persists the moment a user went offline.
func (s *Conversations) RecordLastSeen(ctx context.Context, userID uint, at time.Time) error {
	if err := s.store.TouchLastSeen(ctx, userID, at); err != nil {
		return fmt.Errorf("record last seen: %w", err)
	}
	return nil
}

// Now is the service clock.
func (s *Conversations) Now() time.Time {
	return s.now()
}
