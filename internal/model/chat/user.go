package chat

// User is a chat platform account. Only the display-name fields change after
// the first contact.
type User struct {
	ID        int64  `json:"id" gorm:"column:user_id;primaryKey;autoIncrement:false"`
	Username  string `json:"username" gorm:"column:username;size:100"`
	FirstName string `json:"firstName" gorm:"column:first_name;size:100"`
	LastName  string `json:"lastName" gorm:"column:last_name;size:100"`
	Gender    string `json:"gender,omitempty" gorm:"column:gender;size:20"`
}

func (User) TableName() string {
	return "users"
}
