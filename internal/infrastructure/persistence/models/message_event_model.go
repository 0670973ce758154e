package models

// MessageEventModel 数据库消息事件模型，一行即一条被记录的消息
type MessageEventModel struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	UserID    int64  `gorm:"not null;index:idx_messages_chat_user,priority:2"`
	Username  string `gorm:"type:text;not null"`
	ChatID    int64  `gorm:"not null;index:idx_messages_chat_user,priority:1"`
	Timestamp string `gorm:"column:timestamp;type:text;not null"` // UTC, TimestampLayout
}

// TableName 指定表名
func (MessageEventModel) TableName() string {
	return "messages"
}
