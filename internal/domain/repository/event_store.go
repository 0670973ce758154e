package repository

import (
	"context"

	"github.com/ngoclaw/chatpulse/internal/domain/entity"
)

// EventStore 消息事件仓储接口（只追加，按 chat 隔离）
//
// Implementations wrap every engine failure in a STORE_UNAVAILABLE AppError and
// never retry. Each call acquires and releases its own connection.
type EventStore interface {
	// EnsureSchema 创建表结构（幂等，不丢失已有数据）
	EnsureSchema(ctx context.Context) error

	// Append 原子写入一条事件，分配 id 与 timestamp 并回写到 event
	Append(ctx context.Context, event *entity.MessageEvent) (int64, error)

	// QueryTopContributors 按作者计数，count 降序、user_id 升序，最多 limit 条
	QueryTopContributors(ctx context.Context, chatID int64, limit int) ([]entity.ContributorCount, error)

	// QueryHourlyHistogram 按 UTC 小时计数，小时升序，只返回非空小时
	QueryHourlyHistogram(ctx context.Context, chatID int64) ([]entity.HourCount, error)
}
