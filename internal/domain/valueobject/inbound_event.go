package valueobject

// InboundEvent 来自消息平台的一条入站消息（值对象）
type InboundEvent struct {
	AuthorID     int64
	AuthorHandle string // 可为空
	ChatID       int64
	Text         string
	ChatTitle    string // 可为空 (私聊没有标题)
}

// StatsRequest 统计请求（由 /stats 命令或 HTTP API 触发）
type StatsRequest struct {
	ChatID    int64
	ChatTitle string
	TopN      int // <= 0 使用默认值
}
