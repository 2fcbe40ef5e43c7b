package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"direct-messenger/database"
	"direct-messenger/database/testdb"
	"direct-messenger/model"
	"direct-messenger/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db    *gorm.DB
	svc   *service.Conversations
	alice *model.User
	bob   *model.User
	carol *model.User
}

type staticPresence map[uint]bool

func (p staticPresence) Status(userID uint) string {
	if p[userID] {
		return service.StatusOnline
	}
	return service.StatusOffline
}

func newFixture(t *testing.T, opts ...service.Option) *fixture {
	db := testdb.New(t)
	return &fixture{
		db:    db,
		svc:   service.New(database.NewStore(db), opts...),
		alice: testdb.User(t, db, "alice"),
		bob:   testdb.User(t, db, "bob"),
		carol: testdb.User(t, db, "carol"),
	}
}

func (f *fixture) open(t *testing.T, caller *model.User, target *model.User) *service.ConversationSummary {
	t.Helper()
	summary, err := f.svc.CreateOrRevive(context.Background(), caller.ID, target.Email)
	require.NoError(t, err)
	return summary
}

func (f *fixture) send(t *testing.T, conversationID uint, sender *model.User, content string) *service.SendResult {
	t.Helper()
	res, err := f.svc.SendMessage(context.Background(), service.SendMessageInput{
		ConversationID: conversationID,
		SenderID:       sender.ID,
		Content:        content,
	})
	require.NoError(t, err)
	return res
}

func (f *fixture) list(t *testing.T, user *model.User) []service.ConversationSummary {
	t.Helper()
	list, err := f.svc.ListConversations(context.Background(), user.ID)
	require.NoError(t, err)
	return list
}

func TestCreateOrReviveValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		email   string
		kind    error
		message string
	}{
		{"empty", "   ", service.ErrInvalidArgument, "Target email is required."},
		{"malformed", "not-an-email", service.ErrInvalidArgument, "Target email is malformed."},
		{"unknown", "ghost@example.com", service.ErrNotFound, "User not found."},
		{"self", "alice@example.com", service.ErrInvalidArgument, "Cannot start a conversation with yourself."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateOrRevive(ctx, f.alice.ID, tt.email)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)
			assert.Equal(t, tt.message, service.Message(err))
		})
	}
}

func TestCreateOrReviveIsIdempotentFromBothSides(t *testing.T) {
	f := newFixture(t)

	first := f.open(t, f.alice, f.bob)
	assert.Equal(t, f.alice.ID, first.User1ID)
	assert.Equal(t, f.bob.ID, first.User2ID)
	assert.True(t, first.IsReadByUser1)
	assert.True(t, first.IsReadByUser2)
	assert.False(t, first.Unread)
	require.NotNil(t, first.OtherUser)
	assert.Equal(t, "bob", first.OtherUser.Username)

	again := f.open(t, f.bob, f.alice)
	assert.Equal(t, first.ID, again.ID)
	require.NotNil(t, again.OtherUser)
	assert.Equal(t, "alice", again.OtherUser.Username)

	// mixed case email resolves to the same pair
	upper, err := f.svc.CreateOrRevive(context.Background(), f.alice.ID, "  BOB@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, first.ID, upper.ID)

	var count int64
	require.NoError(t, f.db.Model(&model.Conversation{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestCreateOrReviveConcurrentRace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const workers = 8
	ids := make([]uint, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			caller, target := f.alice, f.bob
			if i%2 == 1 {
				caller, target = f.bob, f.alice
			}
			summary, err := f.svc.CreateOrRevive(ctx, caller.ID, target.Email)
			errs[i] = err
			if err == nil {
				ids[i] = summary.ID
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}

	var count int64
	require.NoError(t, f.db.Model(&model.Conversation{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestSendFlipsFlags(t *testing.T) {
	f := newFixture(t)
	conv := f.open(t, f.alice, f.bob)

	res := f.send(t, conv.ID, f.alice, "hi")
	assert.True(t, res.Conversation.IsReadByUser1)
	assert.False(t, res.Conversation.IsReadByUser2)
	assert.False(t, res.Conversation.DeletedByUser2)

	require.NotNil(t, res.Message.Sender)
	assert.Equal(t, f.alice.ID, res.Message.Sender.ID)
	assert.Equal(t, "alice", res.Message.Sender.Username)
	require.NotNil(t, res.Message.Content)
	assert.Equal(t, "hi", *res.Message.Content)
	assert.Nil(t, res.Message.ReadAt)

	res = f.send(t, conv.ID, f.bob, "hey")
	assert.False(t, res.Conversation.IsReadByUser1)
	assert.True(t, res.Conversation.IsReadByUser2)
}

func TestSendValidation(t *testing.T) {
	f := newFixture(t)
	conv := f.open(t, f.alice, f.bob)
	ctx := context.Background()

	_, err := f.svc.SendMessage(ctx, service.SendMessageInput{ConversationID: conv.ID, SenderID: f.alice.ID, Content: "  "})
	assert.ErrorIs(t, err, service.ErrInvalidArgument)
	assert.Equal(t, "Message content or file is required.", service.Message(err))

	res, err := f.svc.SendMessage(ctx, service.SendMessageInput{
		ConversationID: conv.ID,
		SenderID:       f.alice.ID,
		File: &service.FileDescriptor{
			URL:      "/uploads/abc.pdf",
			Name:     "report.pdf",
			MimeType: "application/pdf",
		},
	})
	require.NoError(t, err)
	assert.Nil(t, res.Message.Content)
	require.NotNil(t, res.Message.FileURL)
	assert.Equal(t, "/uploads/abc.pdf", *res.Message.FileURL)
	require.NotNil(t, res.Message.FileType)
	assert.Equal(t, "application/pdf", *res.Message.FileType)
}

func TestAccessErrors(t *testing.T) {
	f := newFixture(t)
	conv := f.open(t, f.alice, f.bob)
	ctx := context.Background()

	_, err := f.svc.ListMessages(ctx, conv.ID, f.carol.ID)
	assert.ErrorIs(t, err, service.ErrForbidden)
	forbidden := service.Message(err)

	_, err = f.svc.ListMessages(ctx, conv.ID+1000, f.alice.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)
	assert.Equal(t, forbidden, service.Message(err), "missing and foreign conversations read the same")

	_, err = f.svc.SendMessage(ctx, service.SendMessageInput{ConversationID: conv.ID, SenderID: f.carol.ID, Content: "x"})
	assert.ErrorIs(t, err, service.ErrForbidden)

	_, err = f.svc.MarkRead(ctx, conv.ID, f.carol.ID)
	assert.ErrorIs(t, err, service.ErrForbidden)

	assert.ErrorIs(t, f.svc.SoftDelete(ctx, conv.ID, f.carol.ID), service.ErrForbidden)
	assert.ErrorIs(t, f.svc.SoftDelete(ctx, conv.ID+1000, f.alice.ID), service.ErrNotFound)

	_, err = f.svc.ListMessagesPage(ctx, conv.ID, f.alice.ID, model.Page{Limit: -1})
	assert.ErrorIs(t, err, service.ErrInvalidArgument)
}

func TestMarkReadIsIdempotent(t *testing.T) {
	clock := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	f := newFixture(t, service.WithClock(func() time.Time { return clock }))
	ctx := context.Background()

	conv := f.open(t, f.alice, f.bob)
	f.send(t, conv.ID, f.alice, "one")
	f.send(t, conv.ID, f.alice, "two")

	refreshed, err := f.svc.MarkRead(ctx, conv.ID, f.bob.ID)
	require.NoError(t, err)
	assert.True(t, refreshed.IsReadByUser2)

	firstStamp := clock
	clock = clock.Add(time.Hour)

	refreshed, err = f.svc.MarkRead(ctx, conv.ID, f.bob.ID)
	require.NoError(t, err)
	assert.True(t, refreshed.IsReadByUser2)

	msgs, err := f.svc.ListMessages(ctx, conv.ID, f.bob.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	for _, m := range msgs {
		require.NotNil(t, m.ReadAt)
		assert.True(t, m.ReadAt.Equal(firstStamp))
	}

	// alice reading her own messages stamps nothing
	_, err = f.svc.MarkRead(ctx, conv.ID, f.alice.ID)
	require.NoError(t, err)
}

func TestMessagesInterleavedOrder(t *testing.T) {
	f := newFixture(t)
	conv := f.open(t, f.alice, f.bob)

	want := []string{"a1", "b1", "a2", "b2", "a3"}
	for i, content := range want {
		sender := f.alice
		if i%2 == 1 {
			sender = f.bob
		}
		f.send(t, conv.ID, sender, content)
	}

	msgs, err := f.svc.ListMessages(context.Background(), conv.ID, f.bob.ID)
	require.NoError(t, err)
	require.Len(t, msgs, len(want))
	for i, m := range msgs {
		require.NotNil(t, m.Content)
		assert.Equal(t, want[i], *m.Content)
		if i > 0 {
			assert.Greater(t, m.ID, msgs[i-1].ID)
		}
	}

	page, err := f.svc.ListMessagesPage(context.Background(), conv.ID, f.bob.ID, model.Page{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "b2", *page[0].Content)
	assert.Equal(t, "a3", *page[1].Content)
}

func TestConcurrentSends(t *testing.T) {
	f := newFixture(t)
	conv := f.open(t, f.alice, f.bob)
	ctx := context.Background()

	const perSide = 10
	var wg sync.WaitGroup
	errs := make(chan error, perSide*2)
	for i := 0; i < perSide; i++ {
		for _, sender := range []*model.User{f.alice, f.bob} {
			wg.Add(1)
			go func(sender *model.User) {
				defer wg.Done()
				_, err := f.svc.SendMessage(ctx, service.SendMessageInput{
					ConversationID: conv.ID,
					SenderID:       sender.ID,
					Content:        "ping",
				})
				errs <- err
			}(sender)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	msgs, err := f.svc.ListMessages(ctx, conv.ID, f.alice.ID)
	require.NoError(t, err)
	assert.Len(t, msgs, perSide*2)

	// exactly one side can be unread after the last write
	list := f.list(t, f.alice)
	require.Len(t, list, 1)
	assert.NotEqual(t, list[0].IsReadByUser1, list[0].IsReadByUser2)
}

func TestSoftDeleteAndReappear(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	conv := f.open(t, f.alice, f.bob)
	f.send(t, conv.ID, f.alice, "hi")

	require.NoError(t, f.svc.SoftDelete(ctx, conv.ID, f.bob.ID))
	assert.Empty(t, f.list(t, f.bob))
	assert.Len(t, f.list(t, f.alice), 1, "hiding is per side")

	// deleting twice is harmless
	require.NoError(t, f.svc.SoftDelete(ctx, conv.ID, f.bob.ID))

	f.send(t, conv.ID, f.alice, "still there?")
	list := f.list(t, f.bob)
	require.Len(t, list, 1)
	assert.True(t, list[0].Unread)
	require.NotNil(t, list[0].LastMessage)
	assert.Equal(t, "still there?", *list[0].LastMessage.Content)
}

func TestReviveByCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	conv := f.open(t, f.alice, f.bob)
	f.send(t, conv.ID, f.bob, "hello")
	require.NoError(t, f.svc.SoftDelete(ctx, conv.ID, f.alice.ID))
	assert.Empty(t, f.list(t, f.alice))

	revived := f.open(t, f.alice, f.bob)
	assert.Equal(t, conv.ID, revived.ID)
	assert.False(t, revived.DeletedByUser1)
	assert.True(t, revived.IsReadByUser1)
	assert.False(t, revived.Unread)
	assert.Len(t, f.list(t, f.alice), 1)
}

// Alice opens a chat with Bob, writes, Bob reads and hides it, Alice writes again.
func TestAliceBobScenario(t *testing.T) {
	f := newFixture(t, service.WithPresence(staticPresence{}))
	ctx := context.Background()

	conv := f.open(t, f.alice, f.bob)
	f.send(t, conv.ID, f.alice, "hi bob")

	bobList := f.list(t, f.bob)
	require.Len(t, bobList, 1)
	assert.True(t, bobList[0].Unread)
	assert.Equal(t, service.StatusOffline, bobList[0].OtherUser.Status)

	_, err := f.svc.MarkRead(ctx, conv.ID, f.bob.ID)
	require.NoError(t, err)
	bobList = f.list(t, f.bob)
	require.Len(t, bobList, 1)
	assert.False(t, bobList[0].Unread)

	require.NoError(t, f.svc.SoftDelete(ctx, conv.ID, f.bob.ID))
	assert.Empty(t, f.list(t, f.bob))

	f.send(t, conv.ID, f.alice, "you there?")
	bobList = f.list(t, f.bob)
	require.Len(t, bobList, 1)
	assert.True(t, bobList[0].Unread)
	assert.False(t, bobList[0].DeletedByUser2)

	msgs, err := f.svc.ListMessages(ctx, conv.ID, f.bob.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.NotNil(t, msgs[0].ReadAt)
	assert.Nil(t, msgs[1].ReadAt)
}

func TestListConversationsNewestFirst(t *testing.T) {
	f := newFixture(t)

	ab := f.open(t, f.alice, f.bob)
	ac := f.open(t, f.alice, f.carol)
	f.send(t, ab.ID, f.bob, "latest")

	list := f.list(t, f.alice)
	require.Len(t, list, 2)
	assert.Equal(t, ab.ID, list[0].ID)
	assert.Equal(t, ac.ID, list[1].ID)
	assert.Nil(t, list[1].LastMessage)
}

func TestSummaryPresenceLabel(t *testing.T) {
	f := newFixture(t)
	f.svc = service.New(database.NewStore(f.db), service.WithPresence(staticPresence{f.bob.ID: true}))

	summary := f.open(t, f.alice, f.bob)
	require.NotNil(t, summary.OtherUser)
	assert.Equal(t, service.StatusOnline, summary.OtherUser.Status)
}

func TestParticipantSummariesAndWatchers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ab := f.open(t, f.alice, f.bob)
	f.open(t, f.carol, f.alice)
	f.send(t, ab.ID, f.alice, "yo")

	addressed, err := f.svc.ParticipantSummaries(ctx, ab.ID)
	require.NoError(t, err)
	require.Len(t, addressed, 2)
	assert.Equal(t, f.alice.ID, addressed[0].UserID)
	assert.False(t, addressed[0].Summary.Unread)
	assert.Equal(t, f.bob.ID, addressed[1].UserID)
	assert.True(t, addressed[1].Summary.Unread)

	_, err = f.svc.ParticipantSummaries(ctx, ab.ID+100)
	assert.ErrorIs(t, err, service.ErrNotFound)

	// hidden conversations still count
	require.NoError(t, f.svc.SoftDelete(ctx, ab.ID, f.alice.ID))
	watchers, err := f.svc.Watchers(ctx, f.alice.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{f.bob.ID, f.carol.ID}, watchers)
}

func TestRecordLastSeen(t *testing.T) {
	f := newFixture(t)
	at := time.Date(2024, 4, 4, 4, 4, 4, 0, time.UTC)

	require.NoError(t, f.svc.RecordLastSeen(context.Background(), f.alice.ID, at))

	var got model.User
	require.NoError(t, f.db.First(&got, f.alice.ID).Error)
	require.NotNil(t, got.LastSeen)
	assert.True(t, got.LastSeen.Equal(at))
}
