package persistence

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ngoclaw/chatpulse/internal/domain/entity"
	"github.com/ngoclaw/chatpulse/internal/domain/repository"
	domainErrors "github.com/ngoclaw/chatpulse/pkg/errors"
)

// MemoryEventStore 内存实现的事件仓储（用于 --memory 试运行/测试）
type MemoryEventStore struct {
	mu     sync.RWMutex
	events []*entity.MessageEvent
	now    func() time.Time
}

// NewMemoryEventStore 创建内存事件仓储
func NewMemoryEventStore() *MemoryEventStore {
	return &MemoryEventStore{
		now: func() time.Time { return time.Now().UTC() },
	}
}

var _ repository.EventStore = (*MemoryEventStore)(nil)

// SetClock 替换写入时间来源
func (s *MemoryEventStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// EnsureSchema 内存实现无需建表
func (s *MemoryEventStore) EnsureSchema(ctx context.Context) error {
	return ctx.Err()
}

// Append 追加消息事件
func (s *MemoryEventStore) Append(ctx context.Context, event *entity.MessageEvent) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, domainErrors.NewStoreUnavailableError("append message event", err)
	}
	if event == nil {
		return 0, domainErrors.NewInvalidInputError("nil message event")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := int64(len(s.events) + 1)
	if err := event.MarkStored(id, s.now().Truncate(time.Microsecond)); err != nil {
		return 0, domainErrors.NewInvalidInputError(err.Error())
	}
	s.events = append(s.events, event)
	return id, nil
}

// QueryTopContributors 统计发言最多的作者
func (s *MemoryEventStore) QueryTopContributors(ctx context.Context, chatID int64, limit int) ([]entity.ContributorCount, error) {
	if limit <= 0 {
		return nil, domainErrors.NewInvalidInputError(fmt.Sprintf("limit must be positive, got %d", limit))
	}
	if err := ctx.Err(); err != nil {
		return nil, domainErrors.NewStoreUnavailableError("query top contributors", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	byUser := make(map[int64]*entity.ContributorCount)
	for _, e := range s.events {
		if e.ChatID() != chatID {
			continue
		}
		c, ok := byUser[e.UserID()]
		if !ok {
			c = &entity.ContributorCount{UserID: e.UserID()}
			byUser[e.UserID()] = c
		}
		// events are in id order, so the last one seen is the most recent handle
		c.Username = e.Username()
		c.Count++
	}

	rows := make([]entity.ContributorCount, 0, len(byUser))
	for _, c := range byUser {
		rows = append(rows, *c)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].UserID < rows[j].UserID
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

// QueryHourlyHistogram 按 UTC 小时统计
func (s *MemoryEventStore) QueryHourlyHistogram(ctx context.Context, chatID int64) ([]entity.HourCount, error) {
	if err := ctx.Err(); err != nil {
		return nil, domainErrors.NewStoreUnavailableError("query hourly histogram", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var buckets [entity.HoursPerDay]int64
	for _, e := range s.events {
		if e.ChatID() == chatID {
			buckets[e.Timestamp().Hour()]++
		}
	}

	rows := make([]entity.HourCount, 0, entity.HoursPerDay)
	for h, c := range buckets {
		if c > 0 {
			rows = append(rows, entity.HourCount{Hour: h, Count: c})
		}
	}
	return rows, nil
}

// Ping 内存实现总是可用
func (s *MemoryEventStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Len 返回已记录的事件数
func (s *MemoryEventStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}
