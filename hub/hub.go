// Package hub fans conversation and presence changes out to push connections.
package hub

import (
	"context"
	"time"

	"direct-messenger/model"
	"direct-messenger/presence"
	"direct-messenger/service"

	"github.com/zishang520/engine.io/v2/log"
)

var hubLog = log.NewLog("messenger:hub")

// Service is the subset of the conversation service the hub drives.
type Service interface {
	ListConversations(ctx context.Context, userID uint) ([]service.ConversationSummary, error)
	Authorize(ctx context.Context, conversationID, userID uint) (*model.Conversation, service.Participant, error)
	MarkRead(ctx context.Context, conversationID, userID uint) (*model.Conversation, error)
	SendMessage(ctx context.Context, in service.SendMessageInput) (*service.SendResult, error)
	ParticipantSummaries(ctx context.Context, conversationID uint) ([]service.AddressedSummary, error)
	Summaries(ctx context.Context, c *model.Conversation) ([]service.AddressedSummary, error)
	Watchers(ctx context.Context, userID uint) ([]uint, error)
	RecordLastSeen(ctx context.Context, userID uint, at time.Time) error
	Now() time.Time
}

type Presence interface {
	Connect(userID uint) bool
	Disconnect(userID uint) bool
}

// Emitter delivers an event to every connection in a room.
type Emitter interface {
	Emit(room, event string, payload any) error
}

// Publisher mirrors domain events outside the process. Delivery is best-effort.
type Publisher interface {
	Publish(action string, payload any)
}

// Conn is one authenticated push connection.
type Conn interface {
	ID() string
	UserID() uint
	Join(room string)
	Leave(room string)
}

type Option func(*Hub)

func WithPublisher(p Publisher) Option {
	return func(h *Hub) {
		h.publisher = p
	}
}

type Hub struct {
	svc       Service
	presence  Presence
	emitter   Emitter
	publisher Publisher
}

func New(svc Service, registry Presence, emitter Emitter, opts ...Option) *Hub {
	h := &Hub{
		svc:      svc,
		presence: registry,
		emitter:  emitter,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Connect joins the personal room and announces the user if this is their first connection.
func (h *Hub) Connect(ctx context.Context, conn Conn) *Session {
	userID := conn.UserID()
	conn.Join(UserRoom(userID))

	if h.presence.Connect(userID) {
		hubLog.Debug("user %d online", userID)
		h.notifyStatus(ctx, userID, presence.StatusOnline, nil)
	}

	return &Session{hub: h, conn: conn, userID: userID}
}

// MessageSent delivers a new message to the open conversation room and a fresh
// summary to each participant.
func (h *Hub) MessageSent(ctx context.Context, res *service.SendResult) {
	conversationID := res.Message.ConversationID
	h.emit(ConversationRoom(conversationID), EventMessageReceive, res.Message)
	if res.Conversation != nil {
		addressed, err := h.svc.Summaries(ctx, res.Conversation)
		if err != nil {
			hubLog.Error("summaries for conversation %d: %v", conversationID, err)
		} else {
			h.emitSummaries(addressed)
		}
	} else {
		h.broadcastSummaries(ctx, conversationID)
	}
	h.publish(ActionMessageSent, res.Message)
}

// ConversationRead pushes the recomputed summary to both participants.
func (h *Hub) ConversationRead(ctx context.Context, conversationID, readerID uint) {
	h.broadcastSummaries(ctx, conversationID)
	h.publish(ActionConversationRead, map[string]uint{
		"conversationId": conversationID,
		"userId":         readerID,
	})
}

// ConversationOpened tells the caller's other connections about a created or revived conversation.
func (h *Hub) ConversationOpened(userID uint, summary *service.ConversationSummary) {
	h.emit(UserRoom(userID), EventConversationUpdated, summary)
	h.publish(ActionConversationOpened, map[string]uint{
		"conversationId": summary.ID,
		"userId":         userID,
	})
}

// ConversationHidden tells the caller's connections to drop a soft-deleted conversation.
func (h *Hub) ConversationHidden(userID, conversationID uint) {
	h.emit(UserRoom(userID), EventConversationDeleted, HiddenPayload{ID: conversationID})
	h.publish(ActionConversationHidden, map[string]uint{
		"conversationId": conversationID,
		"userId":         userID,
	})
}

func (h *Hub) broadcastSummaries(ctx context.Context, conversationID uint) {
	addressed, err := h.svc.ParticipantSummaries(ctx, conversationID)
	if err != nil {
		hubLog.Error("summaries for conversation %d: %v", conversationID, err)
		return
	}
	h.emitSummaries(addressed)
}

func (h *Hub) emitSummaries(addressed []service.AddressedSummary) {
	for _, a := range addressed {
		h.emit(UserRoom(a.UserID), EventConversationUpdated, a.Summary)
	}
}

// notifyStatus is best-effort: a failure never rolls back the presence change.
func (h *Hub) notifyStatus(ctx context.Context, userID uint, status string, lastSeen *time.Time) {
	payload := StatusPayload{UserID: userID, Status: status, LastSeen: lastSeen}
	defer h.publish(ActionUserStatus, payload)

	watchers, err := h.svc.Watchers(ctx, userID)
	if err != nil {
		hubLog.Error("watchers for user %d: %v", userID, err)
		return
	}
	for _, w := range watchers {
		h.emit(UserRoom(w), EventUserStatus, payload)
	}
}

func (h *Hub) disconnect(ctx context.Context, userID uint) {
	if !h.presence.Disconnect(userID) {
		return
	}

	at := h.svc.Now()
	hubLog.Debug("user %d offline", userID)
	if err := h.svc.RecordLastSeen(ctx, userID, at); err != nil {
		hubLog.Error("last seen for user %d: %v", userID, err)
	}
	h.notifyStatus(ctx, userID, presence.StatusOffline, &at)
}

func (h *Hub) emit(room, event string, payload any) {
	if err := h.emitter.Emit(room, event, payload); err != nil {
		hubLog.Error("emit %s to %s: %v", event, room, err)
	}
}

func (h *Hub) publish(action string, payload any) {
	if h.publisher != nil {
		h.publisher.Publish(action, payload)
	}
}
