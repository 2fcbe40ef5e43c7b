package service

import "direct-messenger/model"

// Side says which column pair of a conversation belongs to a user.
type Side int

const (
	SideNone Side = iota
	SideUser1
	SideUser2
)

// Participant is a user's view of one conversation: their side and the other id.
type Participant struct {
	Side    Side
	SelfID  uint
	OtherID uint
}

// ParticipantRole resolves userID against c. All per-side flag logic goes through the result.
func ParticipantRole(c *model.Conversation, userID uint) Participant {
	switch {
	case c == nil || userID == 0:
		return Participant{SelfID: userID}
	case c.User1ID == userID:
		return Participant{Side: SideUser1, SelfID: c.User1ID, OtherID: c.User2ID}
	case c.User2ID == userID:
		return Participant{Side: SideUser2, SelfID: c.User2ID, OtherID: c.User1ID}
	}
	return Participant{SelfID: userID}
}

func (p Participant) Allowed() bool {
	return p.Side != SideNone
}

func (p Participant) HasRead(c *model.Conversation) bool {
	if p.Side == SideUser1 {
		return c.IsReadByUser1
	}
	return c.IsReadByUser2
}

func (p Participant) Hidden(c *model.Conversation) bool {
	if p.Side == SideUser1 {
		return c.DeletedByUser1
	}
	return c.DeletedByUser2
}

// OtherUser returns the preloaded profile of the other participant, if any.
func (p Participant) OtherUser(c *model.Conversation) *model.User {
	if p.Side == SideUser1 {
		return c.User2
	}
	return c.User1
}

// MarkRead sets the caller's read flag.
func (p Participant) MarkRead() model.FlagUpdate {
	return p.self(boolPtr(true), nil)
}

// Hide sets the caller's delete flag.
func (p Participant) Hide() model.FlagUpdate {
	return p.self(nil, boolPtr(true))
}

// Revive un-hides the conversation for the caller and marks it read.
func (p Participant) Revive() model.FlagUpdate {
	return p.self(boolPtr(true), boolPtr(false))
}

// Send marks the sender read and the recipient unread, and un-hides it for the recipient.
// The sender's own delete flag is untouched.
func (p Participant) Send() model.FlagUpdate {
	f := p.self(boolPtr(true), nil)
	switch p.Side {
	case SideUser1:
		f.ReadByUser2, f.DeletedByUser2 = boolPtr(false), boolPtr(false)
	case SideUser2:
		f.ReadByUser1, f.DeletedByUser1 = boolPtr(false), boolPtr(false)
	}
	return f
}

func (p Participant) self(read, deleted *bool) model.FlagUpdate {
	switch p.Side {
	case SideUser1:
		return model.FlagUpdate{ReadByUser1: read, DeletedByUser1: deleted}
	case SideUser2:
		return model.FlagUpdate{ReadByUser2: read, DeletedByUser2: deleted}
	}
	return model.FlagUpdate{}
}

func boolPtr(v bool) *bool {
	return &v
}
