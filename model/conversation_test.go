package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPairingKeyIsOrderIndependent(t *testing.T) {
	assert.Equal(t, PairingKey(9, 10), PairingKey(10, 9))
	assert.Equal(t, "10:9", PairingKey(9, 10))
}

func TestBeforeSaveRejectsSelfConversation(t *testing.T) {
	c := &Conversation{User1ID: 4, User2ID: 4}
	assert.ErrorIs(t, c.BeforeSave(nil), ErrSelfConversation)

	c = &Conversation{User1ID: 7, User2ID: 3}
	assert.NoError(t, c.BeforeSave(nil))
	assert.Equal(t, "3:7", c.PairingKey)

	// column-only updates have no ids to validate
	assert.NoError(t, (&Conversation{}).BeforeSave(nil))
}

func TestFlagUpdateColumnsAndApply(t *testing.T) {
	yes, no := true, false
	f := FlagUpdate{ReadByUser1: &yes, ReadByUser2: &no, DeletedByUser2: &no}

	assert.Equal(t, map[string]any{
		"is_read_by_user1": true,
		"is_read_by_user2": false,
		"deleted_by_user2": false,
	}, f.Columns())

	c := &Conversation{IsReadByUser2: true, DeletedByUser1: true, DeletedByUser2: true}
	f.Apply(c)
	assert.True(t, c.IsReadByUser1)
	assert.False(t, c.IsReadByUser2)
	assert.True(t, c.DeletedByUser1)
	assert.False(t, c.DeletedByUser2)
	assert.True(t, FlagUpdate{}.Empty())
}
