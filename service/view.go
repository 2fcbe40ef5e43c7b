package service

import (
	"time"

	"direct-messenger/model"
)

const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

type UserView struct {
	ID          uint       `json:"id"`
	Username    string     `json:"username"`
	DisplayName string     `json:"displayName"`
	Email       string     `json:"email"`
	LastSeen    *time.Time `json:"lastSeen"`
	Status      string     `json:"status,omitempty"`
}

// SenderView is the profile attached to a freshly sent message.
type SenderView struct {
	ID            uint    `json:"id"`
	Username      string  `json:"username"`
	DisplayName   string  `json:"displayName"`
	Email         string  `json:"email"`
	Theme         string  `json:"theme"`
	BackgroundURL *string `json:"backgroundUrl"`
}

type MessageView struct {
	ID             uint        `json:"id"`
	SenderID       uint        `json:"senderId"`
	ConversationID uint        `json:"conversationId"`
	Content        *string     `json:"content"`
	FileURL        *string     `json:"fileUrl"`
	FileName       *string     `json:"fileName"`
	FileType       *string     `json:"fileType"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
	ReadAt         *time.Time  `json:"readAt"`
	Sender         *SenderView `json:"sender,omitempty"`
}

// ConversationSummary is participant-relative: OtherUser and Unread depend on the viewer.
type ConversationSummary struct {
	ID             uint         `json:"id"`
	User1ID        uint         `json:"user1Id"`
	User2ID        uint         `json:"user2Id"`
	IsReadByUser1  bool         `json:"isReadByUser1"`
	IsReadByUser2  bool         `json:"isReadByUser2"`
	DeletedByUser1 bool         `json:"deletedByUser1"`
	DeletedByUser2 bool         `json:"deletedByUser2"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
	Unread         bool         `json:"unread"`
	OtherUser      *UserView    `json:"otherUser"`
	LastMessage    *MessageView `json:"lastMessage"`
}

// AddressedSummary is a summary together with the user it was shaped for.
type AddressedSummary struct {
	UserID  uint
	Summary ConversationSummary
}

func NewUserView(u *model.User) *UserView {
	if u == nil {
		return nil
	}
	return &UserView{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Email:       u.Email,
		LastSeen:    u.LastSeen,
	}
}

func NewSenderView(u *model.User) *SenderView {
	if u == nil {
		return nil
	}
	return &SenderView{
		ID:            u.ID,
		Username:      u.Username,
		DisplayName:   u.DisplayName,
		Email:         u.Email,
		Theme:         u.Theme,
		BackgroundURL: u.BackgroundURL,
	}
}

func NewMessageView(m *model.Message) *MessageView {
	if m == nil {
		return nil
	}
	return &MessageView{
		ID:             m.ID,
		SenderID:       m.SenderID,
		ConversationID: m.ConversationID,
		Content:        m.Content,
		FileURL:        m.FileURL,
		FileName:       m.FileName,
		FileType:       m.FileType,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
		ReadAt:         m.ReadAt,
	}
}
