package chat

import "time"

// Message persists a single turn: the user's text and the reply given to it.
// IsIgnored is the only column that changes after insertion.
type Message struct {
	ID           int64     `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	ChatID       int64     `json:"chatId" gorm:"column:chat_id;not null;index:idx_messages_chat_ignored,priority:1"`
	UserID       int64     `json:"userId" gorm:"column:user_id;not null;index"`
	MessageText  string    `json:"messageText" gorm:"column:message_text;type:text"`
	ResponseText string    `json:"responseText" gorm:"column:response_text;type:text"`
	EmotionTag   string    `json:"emotionTag" gorm:"column:emotion_tag;size:100"`
	EmpathyLevel int       `json:"empathyLevel" gorm:"column:empathy_level"`
	CreatedAt    time.Time `json:"createdAt" gorm:"column:created_at"`
	IsIgnored    bool      `json:"isIgnored" gorm:"column:is_ignored;not null;default:false;index:idx_messages_chat_ignored,priority:2"`
}

func (Message) TableName() string {
	return "messages"
}

// Turn roles used when a stored message is flattened into dialogue context.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Exchange is one side of a stored message.
type Exchange struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Exchanges flattens messages into alternating user/assistant entries,
// skipping empty sides.
func Exchanges(messages []Message) []Exchange {
	out := make([]Exchange, 0, len(messages)*2)
	for _, msg := range messages {
		if msg.MessageText != "" {
			out = append(out, Exchange{Role: RoleUser, Text: msg.MessageText})
		}
		if msg.ResponseText != "" {
			out = append(out, Exchange{Role: RoleAssistant, Text: msg.ResponseText})
		}
	}
	return out
}
