package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/zhouzirui/sky-inn/backend/internal/model/chat"
)

// Store is the conversation memory used by the responder.
type Store interface {
	AddUser(ctx context.Context, user chat.User) error
	CreateChat(ctx context.Context, userID int64, title, scenario string) (chat.Chat, error)
	GetUser(ctx context.Context, userID int64) (chat.User, error)
	GetChat(ctx context.Context, chatID int64) (chat.Chat, error)
	ListChats(ctx context.Context, userID int64) ([]chat.Chat, error)
	AddMessage(ctx context.Context, message chat.Message) (chat.Message, error)
	GetChatHistory(ctx context.Context, chatID int64, includeIgnored bool) ([]chat.Message, error)
	IgnoreMessage(ctx context.Context, chatID int64, text string) (bool, error)
	UnignoreMessage(ctx context.Context, chatID int64, text string) (bool, error)
}

// GormStore implements Store on top of a gorm connection.
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormStore wraps an already migrated database handle.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// WithClock overrides the timestamp source for rows created without one.
func (s *GormStore) WithClock(now func() time.Time) *GormStore {
	s.now = now
	return s
}

// AddUser inserts the user or refreshes its display names.
func (s *GormStore) AddUser(ctx context.Context, user chat.User) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username", "first_name", "last_name"}),
	}).Create(&user).Error
	return wrapDBError(err, "add user", nil)
}

// CreateChat opens a new conversation for an existing user.
func (s *GormStore) CreateChat(ctx context.Context, userID int64, title, scenario string) (chat.Chat, error) {
	created := chat.Chat{
		UserID:    userID,
		Title:     strings.TrimSpace(title),
		Scenario:  strings.TrimSpace(scenario),
		CreatedAt: s.now(),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireUser(tx, userID); err != nil {
			return err
		}
		return tx.Create(&created).Error
	})
	if err != nil {
		return chat.Chat{}, wrapDBError(err, "create chat", nil)
	}
	return created, nil
}

// GetUser loads a user by id.
func (s *GormStore) GetUser(ctx context.Context, userID int64) (chat.User, error) {
	var found chat.User
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&found).Error
	if err != nil {
		return chat.User{}, wrapDBError(err, "get user", ErrUserNotFound)
	}
	return found, nil
}

// GetChat loads a conversation by id.
func (s *GormStore) GetChat(ctx context.Context, chatID int64) (chat.Chat, error) {
	var found chat.Chat
	err := s.db.WithContext(ctx).Where("chat_id = ?", chatID).First(&found).Error
	if err != nil {
		return chat.Chat{}, wrapDBError(err, "get chat", ErrChatNotFound)
	}
	return found, nil
}

// ListChats returns the user's conversations, newest first.
func (s *GormStore) ListChats(ctx context.Context, userID int64) ([]chat.Chat, error) {
	var chats []chat.Chat
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, chat_id DESC").
		Find(&chats).Error
	if err != nil {
		return nil, wrapDBError(err, "list chats", nil)
	}
	return chats, nil
}

// AddMessage appends a non-ignored turn to the chat.
func (s *GormStore) AddMessage(ctx context.Context, message chat.Message) (chat.Message, error) {
	message.ID = 0
	message.IsIgnored = false
	if message.CreatedAt.IsZero() {
		message.CreatedAt = s.now()
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireChat(tx, message.ChatID); err != nil {
			return err
		}
		if err := requireUser(tx, message.UserID); err != nil {
			return err
		}
		return tx.Create(&message).Error
	})
	if err != nil {
		return chat.Message{}, wrapDBError(err, "add message", nil)
	}
	return message, nil
}

// GetChatHistory returns the chat's messages in insertion order. Ignored rows
// are left out unless includeIgnored is set.
func (s *GormStore) GetChatHistory(ctx context.Context, chatID int64, includeIgnored bool) ([]chat.Message, error) {
	query := s.db.WithContext(ctx).Where("chat_id = ?", chatID)
	if !includeIgnored {
		query = query.Where("is_ignored = ?", false)
	}

	var messages []chat.Message
	if err := query.Order("id ASC").Find(&messages).Error; err != nil {
		return nil, wrapDBError(err, "get chat history", nil)
	}
	return messages, nil
}

// IgnoreMessage hides the most recent visible message with exactly this text.
func (s *GormStore) IgnoreMessage(ctx context.Context, chatID int64, text string) (bool, error) {
	return s.setIgnored(ctx, chatID, text, true)
}

// UnignoreMessage restores the most recent hidden message with exactly this text.
func (s *GormStore) UnignoreMessage(ctx context.Context, chatID int64, text string) (bool, error) {
	return s.setIgnored(ctx, chatID, text, false)
}

func (s *GormStore) setIgnored(ctx context.Context, chatID int64, text string, ignored bool) (bool, error) {
	changed := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var target chat.Message
		err := tx.Where("chat_id = ? AND message_text = ? AND is_ignored = ?", chatID, text, !ignored).
			Order("id DESC").
			Limit(1).
			Take(&target).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := tx.Model(&chat.Message{}).Where("id = ?", target.ID).Update("is_ignored", ignored).Error; err != nil {
			return err
		}
		changed = true
		return nil
	})
	op := "unignore message"
	if ignored {
		op = "ignore message"
	}
	if err != nil {
		return false, wrapDBError(err, op, nil)
	}
	return changed, nil
}

func requireUser(tx *gorm.DB, userID int64) error {
	var count int64
	if err := tx.Model(&chat.User{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrUserNotFound
	}
	return nil
}

func requireChat(tx *gorm.DB, chatID int64) error {
	var count int64
	if err := tx.Model(&chat.Chat{}).Where("chat_id = ?", chatID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrChatNotFound
	}
	return nil
}
