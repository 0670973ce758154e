package service_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ngoclaw/chatpulse/internal/domain/entity"
)

// MockEventStore 模拟事件仓储，记录写入并按真实排序规则回答查询
type MockEventStore struct {
	mu       sync.Mutex
	events   []*entity.MessageEvent
	now      time.Time
	appendFn func(event *entity.MessageEvent) error
	queryErr error
	lastTopN int
}

func newMockEventStore(now time.Time) *MockEventStore {
	return &MockEventStore{now: now}
}

func (m *MockEventStore) EnsureSchema(ctx context.Context) error {
	return nil
}

func (m *MockEventStore) Append(ctx context.Context, event *entity.MessageEvent) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.appendFn != nil {
		if err := m.appendFn(event); err != nil {
			return 0, err
		}
	}
	id := int64(len(m.events) + 1)
	if err := event.MarkStored(id, m.now); err != nil {
		return 0, err
	}
	m.events = append(m.events, event)
	return id, nil
}

func (m *MockEventStore) QueryTopContributors(ctx context.Context, chatID int64, limit int) ([]entity.ContributorCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastTopN = limit
	if m.queryErr != nil {
		return nil, m.queryErr
	}

	byUser := map[int64]*entity.ContributorCount{}
	for _, e := range m.events {
		if e.ChatID() != chatID {
			continue
		}
		c, ok := byUser[e.UserID()]
		if !ok {
			c = &entity.ContributorCount{UserID: e.UserID()}
			byUser[e.UserID()] = c
		}
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

func (m *MockEventStore) QueryHourlyHistogram(ctx context.Context, chatID int64) ([]entity.HourCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.queryErr != nil {
		return nil, m.queryErr
	}

	var buckets [entity.HoursPerDay]int64
	for _, e := range m.events {
		if e.ChatID() == chatID {
			buckets[e.Timestamp().Hour()]++
		}
	}
	var rows []entity.HourCount
	for h, c := range buckets {
		if c > 0 {
			rows = append(rows, entity.HourCount{Hour: h, Count: c})
		}
	}
	return rows, nil
}

func (m *MockEventStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

func (m *MockEventStore) setNow(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t
}

// stubHistogramStore returns canned histogram rows.
type stubHistogramStore struct {
	MockEventStore
	rows []entity.HourCount
}

func (s *stubHistogramStore) QueryHourlyHistogram(ctx context.Context, chatID int64) ([]entity.HourCount, error) {
	return s.rows, nil
}
