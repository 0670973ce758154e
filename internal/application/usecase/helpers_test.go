package usecase_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ngoclaw/chatpulse/internal/domain/entity"
	"github.com/ngoclaw/chatpulse/internal/domain/valueobject"
	"github.com/ngoclaw/chatpulse/internal/infrastructure/persistence"
	domainErrors "github.com/ngoclaw/chatpulse/pkg/errors"
)

// recordingMetrics 记录用例上报的指标
type recordingMetrics struct {
	mu       sync.Mutex
	ingested int
	failed   int
	rejected map[string]int
	outcomes []string
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{rejected: map[string]int{}}
}

func (m *recordingMetrics) IncIngested() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ingested++
}

func (m *recordingMetrics) IncRejected(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejected[reason]++
}

func (m *recordingMetrics) IncIngestFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed++
}

func (m *recordingMetrics) ObserveStats(outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, outcome)
}

// fakeRenderer 返回固定字节
type fakeRenderer struct {
	calls int
	last  valueobject.ChartSeries
	err   error
}

func (r *fakeRenderer) Render(series valueobject.ChartSeries) ([]byte, error) {
	r.calls++
	r.last = series
	if r.err != nil {
		return nil, r.err
	}
	return []byte("png"), nil
}

// brokenStore fails every call like an unreachable database.
type brokenStore struct{}

var errDiskGone = errors.New("unable to open database file")

func (brokenStore) EnsureSchema(context.Context) error {
	return domainErrors.NewStoreUnavailableError("ensure schema", errDiskGone)
}

func (brokenStore) Append(context.Context, *entity.MessageEvent) (int64, error) {
	return 0, domainErrors.NewStoreUnavailableError("append message event", errDiskGone)
}

func (brokenStore) QueryTopContributors(context.Context, int64, int) ([]entity.ContributorCount, error) {
	return nil, domainErrors.NewStoreUnavailableError("query top contributors", errDiskGone)
}

func (brokenStore) QueryHourlyHistogram(context.Context, int64) ([]entity.HourCount, error) {
	return nil, domainErrors.NewStoreUnavailableError("query hourly histogram", errDiskGone)
}

func seededStore() *persistence.MemoryEventStore {
	store := persistence.NewMemoryEventStore()
	add := func(hour int, userID int64, handle string, n int) {
		store.SetClock(func() time.Time { return time.Date(2026, 5, 4, hour, 0, 0, 0, time.UTC) })
		for i := 0; i < n; i++ {
			ev, _ := entity.NewMessageEvent(userID, 42, handle)
			_, _ = store.Append(context.Background(), ev)
		}
	}
	add(10, 1, "A", 3)
	add(14, 2, "B", 1)
	return store
}
