package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"direct-messenger/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the gorm-backed persistence layer for users, conversations and messages.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for callers that need raw access, such as health checks.
func (s *Store) DB() *gorm.DB {
	return s.db
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.ErrNotFound
	}
	return err
}

// Users

func (s *Store) UserByID(ctx context.Context, id uint) (*model.User, error) {
	user := new(model.User)
	if err := s.db.WithContext(ctx).First(user, id).Error; err != nil {
		return nil, translate(err)
	}
	return user, nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	user := new(model.User)
	if err := s.db.WithContext(ctx).Where(&model.User{Email: email}).First(user).Error; err != nil {
		return nil, translate(err)
	}
	return user, nil
}

func (s *Store) UserByUsername(ctx context.Context, username string) (*model.User, error) {
	user := new(model.User)
	if err := s.db.WithContext(ctx).Where(&model.User{Username: username}).First(user).Error; err != nil {
		return nil, translate(err)
	}
	return user, nil
}

func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *Store) SaveUser(ctx context.Context, user *model.User) error {
	if err := s.db.WithContext(ctx).Save(user).Error; err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

func (s *Store) TouchLastSeen(ctx context.Context, id uint, at time.Time) error {
	return s.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		UpdateColumn("last_seen", at).Error
}

// Conversations

func (s *Store) ConversationByID(ctx context.Context, id uint) (*model.Conversation, error) {
	conv := new(model.Conversation)
	err := s.db.WithContext(ctx).
		Preload("User1").
		Preload("User2").
		First(conv, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return conv, nil
}

func (s *Store) ConversationByPairingKey(ctx context.Context, key string) (*model.Conversation, error) {
	conv := new(model.Conversation)
	if err := s.db.WithContext(ctx).Where("pairing_key = ?", key).First(conv).Error; err != nil {
		return nil, translate(err)
	}
	return conv, nil
}

func (s *Store) InsertConversation(ctx context.Context, c *model.Conversation) (bool, error) {
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "pairing_key"}},
			DoNothing: true,
		}).
		Create(c)
	if res.Error != nil {
		return false, fmt.Errorf("insert conversation: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *Store) UpdateConversationFlags(ctx context.Context, id uint, flags model.FlagUpdate) error {
	if flags.Empty() {
		return nil
	}
	return updateFlags(s.db.WithContext(ctx), id, flags)
}

func updateFlags(tx *gorm.DB, id uint, flags model.FlagUpdate) error {
	res := tx.Model(&model.Conversation{}).Where("id = ?", id).Updates(flags.Columns())
	if res.Error != nil {
		return fmt.Errorf("update conversation flags: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (s *Store) ConversationsForUser(ctx context.Context, userID uint, includeHidden bool) ([]*model.Conversation, error) {
	q := s.db.WithContext(ctx).Preload("User1").Preload("User2")
	if includeHidden {
		q = q.Where("user1_id = ? OR user2_id = ?", userID, userID)
	} else {
		q = q.Where(
			"(user1_id = ? AND deleted_by_user1 = ?) OR (user2_id = ? AND deleted_by_user2 = ?)",
			userID, false, userID, false,
		)
	}

	var convs []*model.Conversation
	if err := q.Order("updated_at DESC").Order("id DESC").Find(&convs).Error; err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return convs, nil
}

// Messages

func (s *Store) InsertMessage(ctx context.Context, m *model.Message) error {
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (s *Store) MessagesForConversation(ctx context.Context, conversationID uint, page model.Page) ([]*model.Message, error) {
	q := s.db.WithContext(ctx).Where("conversation_id = ?", conversationID)
	if page.BeforeID > 0 {
		q = q.Where("id < ?", page.BeforeID)
	}

	var msgs []*model.Message
	if page.Limit <= 0 {
		if err := q.Order("created_at ASC").Order("id ASC").Find(&msgs).Error; err != nil {
			return nil, fmt.Errorf("list messages: %w", err)
		}
		return msgs, nil
	}

	// newest page first, then flipped back to chronological order
	if err := q.Order("created_at DESC").Order("id DESC").Limit(page.Limit).Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (s *Store) LastMessage(ctx context.Context, conversationID uint) (*model.Message, error) {
	var msgs []*model.Message
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(1).
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("last message: %w", err)
	}
	if len(msgs) == 0 {
		return nil, nil
	}
	return msgs[0], nil
}

func (s *Store) MarkConversationRead(ctx context.Context, conversationID, readerID uint, at time.Time, flags model.FlagUpdate) (int64, error) {
	var stamped int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Message{}).
			Where("conversation_id = ? AND sender_id <> ? AND read_at IS NULL", conversationID, readerID).
			UpdateColumn("read_at", at)
		if res.Error != nil {
			return fmt.Errorf("stamp read_at: %w", res.Error)
		}
		stamped = res.RowsAffected

		if flags.Empty() {
			return nil
		}
		return updateFlags(tx, conversationID, flags)
	})
	if err != nil {
		return 0, err
	}
	return stamped, nil
}
