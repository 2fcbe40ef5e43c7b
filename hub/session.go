package hub

import (
	"context"
	"sync"

	"direct-messenger/service"
)

// Session is the hub side of one connection. Close runs the disconnect path once.
type Session struct {
	hub       *Hub
	conn      Conn
	userID    uint
	closeOnce sync.Once
}

func (s *Session) UserID() uint {
	return s.userID
}

// Close releases the connection's presence. Repeated calls do nothing.
func (s *Session) Close(ctx context.Context) {
	s.closeOnce.Do(func() {
		s.hub.disconnect(ctx, s.userID)
	})
}

// JoinConversation subscribes the connection to the conversation room after a participancy check.
func (s *Session) JoinConversation(ctx context.Context, conversationID uint) (res AckResult) {
	defer recoverAck(&res)

	if _, _, err := s.hub.svc.Authorize(ctx, conversationID, s.userID); err != nil {
		return FailedAck(err)
	}
	s.conn.Join(ConversationRoom(conversationID))
	return ackOK()
}

func (s *Session) LeaveConversation(conversationID uint) {
	s.conn.Leave(ConversationRoom(conversationID))
}

func (s *Session) MarkRead(ctx context.Context, conversationID uint) (res AckResult) {
	defer recoverAck(&res)

	if _, err := s.hub.svc.MarkRead(ctx, conversationID, s.userID); err != nil {
		return FailedAck(err)
	}
	s.hub.ConversationRead(ctx, conversationID, s.userID)
	return ackOK()
}

func (s *Session) SendMessage(ctx context.Context, payload SendPayload) (res AckResult) {
	defer recoverAck(&res)

	sent, err := s.hub.svc.SendMessage(ctx, payload.input(s.userID))
	if err != nil {
		return FailedAck(err)
	}
	s.hub.MessageSent(ctx, sent)

	ack := ackOK()
	ack.Message = &sent.Message
	return ack
}

func (s *Session) ListConversations(ctx context.Context) (res AckResult) {
	defer recoverAck(&res)

	list, err := s.hub.svc.ListConversations(ctx, s.userID)
	if err != nil {
		return FailedAck(err)
	}
	ack := ackOK()
	ack.Conversations = list
	return ack
}

func recoverAck(res *AckResult) {
	if r := recover(); r != nil {
		hubLog.Error("handler panic: %v", r)
		*res = AckResult{Ok: false, Error: service.Message(nil)}
	}
}
