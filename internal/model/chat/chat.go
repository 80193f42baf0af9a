package chat

import "time"

// Chat is a conversation owned by a single user.
type Chat struct {
	ID        int64     `json:"id" gorm:"column:chat_id;primaryKey;autoIncrement"`
	UserID    int64     `json:"userId" gorm:"column:user_id;not null;index"`
	Title     string    `json:"title" gorm:"column:title;size:200"`
	Scenario  string    `json:"scenario,omitempty" gorm:"column:scenario;type:text"`
	CreatedAt time.Time `json:"createdAt" gorm:"column:created_at"`
}

func (Chat) TableName() string {
	return "chats"
}
