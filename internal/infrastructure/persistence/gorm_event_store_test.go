package persistence

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ngoclaw/chatpulse/internal/domain/entity"
	"github.com/ngoclaw/chatpulse/internal/infrastructure/config"
	"github.com/ngoclaw/chatpulse/internal/infrastructure/persistence/models"
	domainErrors "github.com/ngoclaw/chatpulse/pkg/errors"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	cfg := &config.DatabaseConfig{
		Type:        "sqlite",
		DSN:         filepath.Join(t.TempDir(), "data", "engagement.db"),
		BusyTimeout: 5000,
	}
	db, err := NewDBConnection(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = CloseDB(db) })
	return db
}

func newTestStore(t *testing.T) (*GormEventStore, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)}
	store := NewGormEventStore(openTestDB(t), WithClock(clock.Now))
	require.NoError(t, store.EnsureSchema(context.Background()))
	return store, clock
}

func appendN(t *testing.T, store *GormEventStore, chatID, userID int64, handle string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		ev, err := entity.NewMessageEvent(userID, chatID, handle)
		require.NoError(t, err)
		_, err = store.Append(context.Background(), ev)
		require.NoError(t, err)
	}
}

func TestGormEventStore_EnsureSchemaIdempotent(t *testing.T) {
	store, _ := newTestStore(t)
	appendN(t, store, 42, 1, "alice", 2)

	for i := 0; i < 3; i++ {
		require.NoError(t, store.EnsureSchema(context.Background()))
	}

	var count int64
	require.NoError(t, store.db.Model(&models.MessageEventModel{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
	assert.True(t, store.db.Migrator().HasIndex(&models.MessageEventModel{}, "idx_messages_chat_user"))
}

func TestGormEventStore_EnsureSchemaOnFreshDatabase(t *testing.T) {
	store := NewGormEventStore(openTestDB(t))
	ctx := context.Background()

	require.NoError(t, store.EnsureSchema(ctx))
	require.NoError(t, store.EnsureSchema(ctx))

	appendN(t, store, 42, 1, "alice", 3)
	appendN(t, store, 42, 2, "bob", 1)

	require.NoError(t, store.EnsureSchema(ctx))

	top, err := store.QueryTopContributors(ctx, 42, 5)
	require.NoError(t, err)
	assert.Equal(t, []entity.ContributorCount{
		{UserID: 1, Username: "alice", Count: 3},
		{UserID: 2, Username: "bob", Count: 1},
	}, top)
}

func TestGormEventStore_AppendAssignsIDAndTimestamp(t *testing.T) {
	store, clock := newTestStore(t)
	at := time.Date(2026, 5, 4, 10, 30, 15, 123456789, time.UTC)
	clock.Set(at)

	ev, err := entity.NewMessageEvent(7, 42, "@alice")
	require.NoError(t, err)

	id, err := store.Append(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
	assert.Equal(t, id, ev.ID())
	assert.Equal(t, at.Truncate(time.Microsecond), ev.Timestamp())

	var row models.MessageEventModel
	require.NoError(t, store.db.First(&row, id).Error)
	assert.Equal(t, "2026-05-04T10:30:15.123456+00:00", row.Timestamp)
	assert.Equal(t, "alice", row.Username)
	assert.Equal(t, int64(42), row.ChatID)

	parsed, err := ParseTimestamp(row.Timestamp)
	require.NoError(t, err)
	assert.Equal(t, ev.Timestamp(), parsed)
}

func TestGormEventStore_AppendTwiceRejected(t *testing.T) {
	store, _ := newTestStore(t)
	ev, err := entity.NewMessageEvent(7, 42, "alice")
	require.NoError(t, err)

	_, err = store.Append(context.Background(), ev)
	require.NoError(t, err)
	_, err = store.Append(context.Background(), ev)
	assert.True(t, domainErrors.IsInvalidInput(err))
}

func TestGormEventStore_EndToEndScenario(t *testing.T) {
	store, clock := newTestStore(t)

	clock.Set(time.Date(2026, 5, 4, 10, 5, 0, 0, time.UTC))
	appendN(t, store, 42, 1, "A", 3)
	clock.Set(time.Date(2026, 5, 4, 14, 45, 0, 0, time.UTC))
	appendN(t, store, 42, 2, "B", 1)

	top, err := store.QueryTopContributors(context.Background(), 42, 5)
	require.NoError(t, err)
	assert.Equal(t, []entity.ContributorCount{
		{UserID: 1, Username: "A", Count: 3},
		{UserID: 2, Username: "B", Count: 1},
	}, top)

	hours, err := store.QueryHourlyHistogram(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, []entity.HourCount{{Hour: 10, Count: 3}, {Hour: 14, Count: 1}}, hours)
}

func TestGormEventStore_TieBreakAndLimit(t *testing.T) {
	store, _ := newTestStore(t)
	appendN(t, store, 42, 30, "c", 2)
	appendN(t, store, 42, 10, "a", 2)
	appendN(t, store, 42, 20, "b", 2)
	appendN(t, store, 42, 40, "d", 5)

	top, err := store.QueryTopContributors(context.Background(), 42, 3)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, []int64{40, 10, 20}, []int64{top[0].UserID, top[1].UserID, top[2].UserID})
}

func TestGormEventStore_MostRecentHandleWins(t *testing.T) {
	store, _ := newTestStore(t)
	appendN(t, store, 42, 1, "old_name", 2)
	appendN(t, store, 42, 1, "new_name", 1)

	top, err := store.QueryTopContributors(context.Background(), 42, 5)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "new_name", top[0].Username)
	assert.Equal(t, int64(3), top[0].Count)
}

func TestGormEventStore_ScopedByChat(t *testing.T) {
	store, clock := newTestStore(t)
	clock.Set(time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC))
	appendN(t, store, 100, 1, "alice", 4)
	clock.Set(time.Date(2026, 5, 4, 20, 0, 0, 0, time.UTC))
	appendN(t, store, 200, 2, "bob", 2)

	top, err := store.QueryTopContributors(context.Background(), 200, 5)
	require.NoError(t, err)
	assert.Equal(t, []entity.ContributorCount{{UserID: 2, Username: "bob", Count: 2}}, top)

	hours, err := store.QueryHourlyHistogram(context.Background(), 200)
	require.NoError(t, err)
	assert.Equal(t, []entity.HourCount{{Hour: 20, Count: 2}}, hours)
}

func TestGormEventStore_EmptyChat(t *testing.T) {
	store, _ := newTestStore(t)

	top, err := store.QueryTopContributors(context.Background(), 42, 5)
	require.NoError(t, err)
	assert.Empty(t, top)

	hours, err := store.QueryHourlyHistogram(context.Background(), 42)
	require.NoError(t, err)
	assert.Empty(t, hours)
}

func TestGormEventStore_InvalidLimit(t *testing.T) {
	store, _ := newTestStore(t)

	for _, limit := range []int{0, -3} {
		_, err := store.QueryTopContributors(context.Background(), 42, limit)
		assert.True(t, domainErrors.IsInvalidInput(err), "limit %d", limit)
	}
}

func TestGormEventStore_CancelledContext(t *testing.T) {
	store, _ := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ev, err := entity.NewMessageEvent(1, 42, "alice")
	require.NoError(t, err)
	_, err = store.Append(ctx, ev)
	assert.True(t, domainErrors.IsStoreUnavailable(err))
	assert.False(t, ev.IsStored())

	_, err = store.QueryHourlyHistogram(ctx, 42)
	assert.True(t, domainErrors.IsStoreUnavailable(err))
}

func TestGormEventStore_MissingTableIsUnavailable(t *testing.T) {
	store := NewGormEventStore(openTestDB(t))

	_, err := store.QueryTopContributors(context.Background(), 42, 5)
	assert.True(t, domainErrors.IsStoreUnavailable(err))
}

func TestGormEventStore_Ping(t *testing.T) {
	store, _ := newTestStore(t)
	assert.NoError(t, store.Ping(context.Background()))
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "a.db?_busy_timeout=5000", sqliteDSN("a.db", 5000))
	assert.Equal(t, "file:a.db?mode=rwc&_busy_timeout=100", sqliteDSN("file:a.db?mode=rwc", 100))
	assert.Equal(t, "a.db", sqliteDSN("a.db", 0))
	assert.Equal(t, "a.db?_busy_timeout=1", sqliteDSN("a.db?_busy_timeout=1", 5000))
}

func TestNewDBConnection_UnsupportedType(t *testing.T) {
	_, err := NewDBConnection(&config.DatabaseConfig{Type: "mysql", DSN: "x"}, nil)
	assert.Error(t, err)
}
