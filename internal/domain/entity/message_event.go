package entity

import (
	"strings"
	"time"
)

const (
	// UnknownUsername is stored when the platform supplies no handle for the author.
	UnknownUsername = "unknown"

	// AnonymousDisplayName is shown in reports in place of UnknownUsername.
	AnonymousDisplayName = "User"

	// CommandPrefix marks a message as a bot command; commands are never tracked.
	CommandPrefix = "/"
)

// MessageEvent 一条被记录的聊天消息（只追加，写入后不可变）
type MessageEvent struct {
	id        int64
	userID    int64
	username  string
	chatID    int64
	timestamp time.Time
}

// NewMessageEvent 创建待写入的消息事件（工厂方法）
// id 和 timestamp 由存储层在写入时分配。
func NewMessageEvent(userID, chatID int64, username string) (*MessageEvent, error) {
	if userID == 0 {
		return nil, ErrInvalidUserID
	}
	if chatID == 0 {
		return nil, ErrInvalidChatID
	}

	return &MessageEvent{
		userID:   userID,
		username: NormalizeUsername(username),
		chatID:   chatID,
	}, nil
}

// MarkStored records the id and write time assigned by the store.
// It may be called once; a stored event is immutable.
func (e *MessageEvent) MarkStored(id int64, at time.Time) error {
	if e.id != 0 {
		return ErrAlreadyStored
	}
	if id <= 0 {
		return ErrInvalidEventID
	}
	e.id = id
	e.timestamp = at.UTC()
	return nil
}

// ID 返回事件 ID，未写入时为 0
func (e *MessageEvent) ID() int64 {
	return e.id
}

// UserID 返回作者 ID
func (e *MessageEvent) UserID() int64 {
	return e.userID
}

// Username 返回作者句柄，缺失时为 UnknownUsername
func (e *MessageEvent) Username() string {
	return e.username
}

// ChatID 返回会话 ID
func (e *MessageEvent) ChatID() int64 {
	return e.chatID
}

// Timestamp 返回写入时间 (UTC)，未写入时为零值
func (e *MessageEvent) Timestamp() time.Time {
	return e.timestamp
}

// IsStored 是否已由存储层分配 ID
func (e *MessageEvent) IsStored() bool {
	return e.id != 0
}

// NormalizeUsername maps an absent handle to UnknownUsername and strips a leading "@".
func NormalizeUsername(handle string) string {
	handle = strings.TrimPrefix(strings.TrimSpace(handle), "@")
	if handle == "" {
		return UnknownUsername
	}
	return handle
}

// DisplayName renders a stored username for reports: "@handle", or
// AnonymousDisplayName for the sentinel.
func DisplayName(username string) string {
	if username == UnknownUsername || username == "" {
		return AnonymousDisplayName
	}
	return "@" + username
}
