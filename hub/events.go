package hub

import (
	"math"
	"strconv"
	"strings"
	"time"

	"direct-messenger/service"
)

// Events accepted from a connection.
const (
	EventConversationJoin     = "conversation:join"
	EventConversationLeave    = "conversation:leave"
	EventConversationMarkRead = "conversation:markRead"
	EventConversationList     = "conversation:list"
	EventMessageSend          = "message:send"
)

// Events emitted to connections.
const (
	EventMessageReceive      = "message:receive"
	EventConversationUpdated = "conversation:updated"
	EventConversationDeleted = "conversation:deleted"
	EventUserStatus          = "user:status"
)

// Actions mirrored to the outbound event bus.
const (
	ActionMessageSent        = "message.sent"
	ActionConversationRead   = "conversation.read"
	ActionConversationOpened = "conversation.opened"
	ActionConversationHidden = "conversation.hidden"
	ActionUserStatus         = "user.status"
)

func UserRoom(userID uint) string {
	return "user:" + strconv.FormatUint(uint64(userID), 10)
}

func ConversationRoom(conversationID uint) string {
	return "conversation:" + strconv.FormatUint(uint64(conversationID), 10)
}

// AckResult answers every acknowledged request. Error holds the caller-facing text.
type AckResult struct {
	Ok            bool                          `json:"success"`
	Error         string                        `json:"error,omitempty"`
	Message       *service.MessageView          `json:"message,omitempty"`
	Conversations []service.ConversationSummary `json:"conversations,omitempty"`
}

func ackOK() AckResult {
	return AckResult{Ok: true}
}

// FailedAck reports err to the caller without closing anything.
func FailedAck(err error) AckResult {
	return AckResult{Ok: false, Error: service.Message(err)}
}

type StatusPayload struct {
	UserID   uint       `json:"userId"`
	Status   string     `json:"status"`
	LastSeen *time.Time `json:"lastSeen"`
}

type HiddenPayload struct {
	ID uint `json:"id"`
}

// SendPayload is the body of message:send.
type SendPayload struct {
	ConversationID uint
	Content        string
	FileURL        string
	FileName       string
	FileType       string
}

var (
	errBadID      = &service.Error{Kind: service.ErrInvalidArgument, Message: "Invalid conversation id."}
	errBadPayload = &service.Error{Kind: service.ErrInvalidArgument, Message: "Message payload must be an object."}
)

// ParseID accepts the JSON shapes a client may use for an id: a number or a numeric string.
func ParseID(v any) (uint, error) {
	switch id := v.(type) {
	case float64:
		if id <= 0 || id != math.Trunc(id) || id > math.MaxUint32 {
			return 0, errBadID
		}
		return uint(id), nil
	case int:
		if id <= 0 {
			return 0, errBadID
		}
		return uint(id), nil
	case int64:
		if id <= 0 {
			return 0, errBadID
		}
		return uint(id), nil
	case uint:
		if id == 0 {
			return 0, errBadID
		}
		return id, nil
	case string:
		n, err := strconv.ParseUint(strings.TrimSpace(id), 10, 64)
		if err != nil || n == 0 {
			return 0, errBadID
		}
		return uint(n), nil
	}
	return 0, errBadID
}

// ParseSendPayload reads the decoded message:send object.
func ParseSendPayload(v any) (SendPayload, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return SendPayload{}, errBadPayload
	}
	id, err := ParseID(m["conversationId"])
	if err != nil {
		return SendPayload{}, err
	}
	str := func(key string) string {
		s, _ := m[key].(string)
		return s
	}
	return SendPayload{
		ConversationID: id,
		Content:        str("content"),
		FileURL:        str("fileUrl"),
		FileName:       str("fileName"),
		FileType:       str("fileType"),
	}, nil
}

func (p SendPayload) input(senderID uint) service.SendMessageInput {
	in := service.SendMessageInput{
		ConversationID: p.ConversationID,
		SenderID:       senderID,
		Content:        p.Content,
	}
	if p.FileURL != "" {
		in.File = &service.FileDescriptor{
			URL:      p.FileURL,
			Name:     p.FileName,
			MimeType: p.FileType,
		}
	}
	return in
}
