package model

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Conversation is the single row shared by both participants of a pair.
// Hiding is per side; the row itself is never deleted.
type Conversation struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	User1ID        uint      `gorm:"not null;index" json:"user1Id"`
	User2ID        uint      `gorm:"not null;index" json:"user2Id"`
	PairingKey     string    `gorm:"uniqueIndex;not null" json:"-"`
	IsReadByUser1  bool      `gorm:"not null" json:"isReadByUser1"`
	IsReadByUser2  bool      `gorm:"not null" json:"isReadByUser2"`
	DeletedByUser1 bool      `gorm:"not null" json:"deletedByUser1"`
	DeletedByUser2 bool      `gorm:"not null" json:"deletedByUser2"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`

	User1 *User `gorm:"foreignKey:User1ID" json:"-"`
	User2 *User `gorm:"foreignKey:User2ID" json:"-"`
}

// NewConversation starts a pair with nothing to read and nothing hidden.
func NewConversation(initiator, target uint) *Conversation {
	return &Conversation{
		User1ID:       initiator,
		User2ID:       target,
		PairingKey:    PairingKey(initiator, target),
		IsReadByUser1: true,
		IsReadByUser2: true,
	}
}

// PairingKey is the sorted, colon-joined pair of ids. Order of arguments is irrelevant.
func PairingKey(a, b uint) string {
	ids := []string{strconv.FormatUint(uint64(a), 10), strconv.FormatUint(uint64(b), 10)}
	sort.Strings(ids)
	return strings.Join(ids, ":")
}

func (c *Conversation) BeforeSave(tx *gorm.DB) error {
	// column-only updates issued through Model(&Conversation{}) carry no ids
	if c.User1ID == 0 && c.User2ID == 0 {
		return nil
	}
	if c.User1ID == c.User2ID {
		return ErrSelfConversation
	}
	c.PairingKey = PairingKey(c.User1ID, c.User2ID)
	return nil
}

// FlagUpdate is a partial write of the four per-side booleans. Nil fields are left alone.
type FlagUpdate struct {
	ReadByUser1    *bool
	ReadByUser2    *bool
	DeletedByUser1 *bool
	DeletedByUser2 *bool
}

func (f FlagUpdate) Empty() bool {
	return f.ReadByUser1 == nil && f.ReadByUser2 == nil && f.DeletedByUser1 == nil && f.DeletedByUser2 == nil
}

// Columns returns the update map keyed by column name.
func (f FlagUpdate) Columns() map[string]any {
	cols := make(map[string]any, 4)
	if f.ReadByUser1 != nil {
		cols["is_read_by_user1"] = *f.ReadByUser1
	}
	if f.ReadByUser2 != nil {
		cols["is_read_by_user2"] = *f.ReadByUser2
	}
	if f.DeletedByUser1 != nil {
		cols["deleted_by_user1"] = *f.DeletedByUser1
	}
	if f.DeletedByUser2 != nil {
		cols["deleted_by_user2"] = *f.DeletedByUser2
	}
	return cols
}

// Apply mirrors the update onto an in-memory row.
func (f FlagUpdate) Apply(c *Conversation) {
	if f.ReadByUser1 != nil {
		c.IsReadByUser1 = *f.ReadByUser1
	}
	if f.ReadByUser2 != nil {
		c.IsReadByUser2 = *f.ReadByUser2
	}
	if f.DeletedByUser1 != nil {
		c.DeletedByUser1 = *f.DeletedByUser1
	}
	if f.DeletedByUser2 != nil {
		c.DeletedByUser2 = *f.DeletedByUser2
	}
}
