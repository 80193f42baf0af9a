package chat_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/sky-inn/backend/internal/dao"
	"github.com/zhouzirui/sky-inn/backend/internal/model/chat"
	chatservice "github.com/zhouzirui/sky-inn/backend/internal/service/chat"
)

func newStore(t *testing.T) *chatservice.GormStore {
	t.Helper()
	db, err := dao.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = dao.Close(db) })

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	return chatservice.NewGormStore(db).WithClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	})
}

func seedChat(t *testing.T, store *chatservice.GormStore) chat.Chat {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.AddUser(ctx, chat.User{ID: 12345, Username: "alice"}))
	created, err := store.CreateChat(ctx, 12345, "t", "")
	require.NoError(t, err)
	return created
}

func addText(t *testing.T, store *chatservice.GormStore, chatID int64, text string) chat.Message {
	t.Helper()
	msg, err := store.AddMessage(context.Background(), chat.Message{
		ChatID:       chatID,
		UserID:       12345,
		MessageText:  text,
		ResponseText: "ответ",
		EmotionTag:   "general",
		EmpathyLevel: 40,
	})
	require.NoError(t, err)
	return msg
}

func TestForgetAndRememberScenario(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddUser(ctx, chat.User{ID: 12345, Username: "alice"}))
	created, err := store.CreateChat(ctx, 12345, "t", "")
	require.NoError(t, err)
	require.EqualValues(t, 1, created.ID)

	_, err = store.AddMessage(ctx, chat.Message{
		ChatID:       created.ID,
		UserID:       12345,
		MessageText:  "Мне очень грустно",
		ResponseText: "…",
		EmotionTag:   "sadness",
		EmpathyLevel: 35,
	})
	require.NoError(t, err)

	history, err := store.GetChatHistory(ctx, created.ID, false)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, 35, history[0].EmpathyLevel)

	changed, err := store.IgnoreMessage(ctx, created.ID, "Мне очень грустно")
	require.NoError(t, err)
	require.True(t, changed)

	history, err = store.GetChatHistory(ctx, created.ID, false)
	require.NoError(t, err)
	require.Empty(t, history)

	all, err := store.GetChatHistory(ctx, created.ID, true)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.True(t, all[0].IsIgnored)

	changed, err = store.UnignoreMessage(ctx, created.ID, "Мне очень грустно")
	require.NoError(t, err)
	require.True(t, changed)

	history, err = store.GetChatHistory(ctx, created.ID, false)
	require.NoError(t, err)
	require.Len(t, history, 1)
}

func TestAddMessagePreservesFieldsAndOrder(t *testing.T) {
	store := newStore(t)
	created := seedChat(t, store)

	texts := []string{"Привет!", "Как дела?", "Расскажи о себе", "Забудь про вчерашний разговор"}
	for _, text := range texts {
		addText(t, store, created.ID, text)
	}

	history, err := store.GetChatHistory(context.Background(), created.ID, false)
	require.NoError(t, err)
	require.Len(t, history, len(texts))
	for i, msg := range history {
		require.Equal(t, texts[i], msg.MessageText)
		require.Equal(t, "ответ", msg.ResponseText)
		require.Equal(t, "general", msg.EmotionTag)
		require.Equal(t, 40, msg.EmpathyLevel)
		require.Equal(t, created.ID, msg.ChatID)
		require.EqualValues(t, 12345, msg.UserID)
		require.False(t, msg.IsIgnored)
	}
}

func TestHistoryFollowsInsertionOrderWhenClockStepsBack(t *testing.T) {
	store := newStore(t)
	created := seedChat(t, store)
	ctx := context.Background()

	late := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)
	stamps := []time.Time{late, late.Add(-time.Hour), late.In(time.FixedZone("MSK", 3*60*60)).Add(-2 * time.Hour)}
	texts := []string{"первое", "второе", "третье"}
	for i, text := range texts {
		_, err := store.AddMessage(ctx, chat.Message{ChatID: created.ID, UserID: 12345, MessageText: text, CreatedAt: stamps[i]})
		require.NoError(t, err)
	}

	history, err := store.GetChatHistory(ctx, created.ID, false)
	require.NoError(t, err)
	require.Len(t, history, len(texts))
	for i, msg := range history {
		require.Equal(t, texts[i], msg.MessageText)
	}

	_, err = store.AddMessage(ctx, chat.Message{ChatID: created.ID, UserID: 12345, MessageText: "первое", CreatedAt: late.Add(-24 * time.Hour)})
	require.NoError(t, err)
	changed, err := store.IgnoreMessage(ctx, created.ID, "первое")
	require.NoError(t, err)
	require.True(t, changed)

	all, err := store.GetChatHistory(ctx, created.ID, true)
	require.NoError(t, err)
	require.False(t, all[0].IsIgnored)
	require.True(t, all[3].IsIgnored)
}

func TestIgnoreTargetsMostRecentDuplicate(t *testing.T) {
	store := newStore(t)
	created := seedChat(t, store)
	ctx := context.Background()

	first := addText(t, store, created.ID, "повтор")
	addText(t, store, created.ID, "между")
	last := addText(t, store, created.ID, "повтор")

	changed, err := store.IgnoreMessage(ctx, created.ID, "повтор")
	require.NoError(t, err)
	require.True(t, changed)

	all, err := store.GetChatHistory(ctx, created.ID, true)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for _, msg := range all {
		switch msg.ID {
		case last.ID:
			require.True(t, msg.IsIgnored)
		case first.ID:
			require.False(t, msg.IsIgnored)
		}
	}

	visible, err := store.GetChatHistory(ctx, created.ID, false)
	require.NoError(t, err)
	require.Len(t, visible, 2)
	require.Equal(t, first.ID, visible[0].ID)
}

func TestIgnoreAndUnignoreAreNoOpsWithoutMatch(t *testing.T) {
	store := newStore(t)
	created := seedChat(t, store)
	ctx := context.Background()
	addText(t, store, created.ID, "один")

	changed, err := store.UnignoreMessage(ctx, created.ID, "один")
	require.NoError(t, err)
	require.False(t, changed, "unignoring a never-ignored message is a no-op")

	changed, err = store.IgnoreMessage(ctx, created.ID, "нет такого")
	require.NoError(t, err)
	require.False(t, changed)

	_, err = store.IgnoreMessage(ctx, created.ID, "один")
	require.NoError(t, err)
	changed, err = store.IgnoreMessage(ctx, created.ID, "один")
	require.NoError(t, err)
	require.False(t, changed, "ignoring an already-ignored message is a no-op")

	all, err := store.GetChatHistory(ctx, created.ID, true)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.True(t, all[0].IsIgnored)
}

func TestIgnoreDoesNotCrossChats(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	first := seedChat(t, store)
	second, err := store.CreateChat(ctx, 12345, "другой", "")
	require.NoError(t, err)

	addText(t, store, first.ID, "общее")
	addText(t, store, second.ID, "общее")

	_, err = store.IgnoreMessage(ctx, second.ID, "общее")
	require.NoError(t, err)

	history, err := store.GetChatHistory(ctx, first.ID, false)
	require.NoError(t, err)
	require.Len(t, history, 1)
}

func TestAddUserIsIdempotentUpsert(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddUser(ctx, chat.User{ID: 7, Username: "old", FirstName: "A", Gender: "female"}))
	require.NoError(t, store.AddUser(ctx, chat.User{ID: 7, Username: "new", FirstName: "B"}))

	created, err := store.CreateChat(ctx, 7, "t", "")
	require.NoError(t, err)
	require.EqualValues(t, 7, created.UserID)
}

func TestNotFoundErrors(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	_, err := store.CreateChat(ctx, 999, "t", "")
	require.ErrorIs(t, err, chatservice.ErrUserNotFound)
	require.ErrorIs(t, err, chatservice.ErrNotFound)

	_, err = store.AddMessage(ctx, chat.Message{ChatID: 42, UserID: 1, MessageText: "x"})
	require.ErrorIs(t, err, chatservice.ErrChatNotFound)

	_, err = store.GetUser(ctx, 999)
	require.ErrorIs(t, err, chatservice.ErrUserNotFound)

	_, err = store.GetChat(ctx, 42)
	require.ErrorIs(t, err, chatservice.ErrChatNotFound)

	var storageErr *chatservice.StorageError
	require.False(t, errors.As(err, &storageErr))
}

func TestListChatsNewestFirst(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	first := seedChat(t, store)
	second, err := store.CreateChat(ctx, 12345, "второй", "Вечер на кухне")
	require.NoError(t, err)

	chats, err := store.ListChats(ctx, 12345)
	require.NoError(t, err)
	require.Len(t, chats, 2)
	require.Equal(t, second.ID, chats[0].ID)
	require.Equal(t, first.ID, chats[1].ID)
	require.Equal(t, "Вечер на кухне", chats[0].Scenario)
}

func TestStorageErrorUnwraps(t *testing.T) {
	cause := errors.New("disk full")
	err := &chatservice.StorageError{Op: "add message", Err: cause}
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "add message")
}
