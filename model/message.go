package model

import "time"

// Message is append-only; ReadAt is the only field that ever changes, once.
type Message struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	ConversationID uint       `gorm:"not null;index:idx_messages_conversation_created,priority:1" json:"conversationId"`
	SenderID       uint       `gorm:"not null;index" json:"senderId"`
	Content        *string    `gorm:"type:text" json:"content"`
	FileURL        *string    `json:"fileUrl"`
	FileName       *string    `json:"fileName"`
	FileType       *string    `json:"fileType"`
	CreatedAt      time.Time  `gorm:"index:idx_messages_conversation_created,priority:2" json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
	ReadAt         *time.Time `json:"readAt"`

	Sender *User `gorm:"foreignKey:SenderID" json:"-"`
}

func (m *Message) HasFile() bool {
	return m.FileURL != nil && *m.FileURL != ""
}

func (m *Message) HasContent() bool {
	return m.Content != nil && *m.Content != ""
}
