package persistence

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/ngoclaw/chatpulse/internal/domain/entity"
	"github.com/ngoclaw/chatpulse/internal/domain/repository"
	"github.com/ngoclaw/chatpulse/internal/infrastructure/persistence/models"
	domainErrors "github.com/ngoclaw/chatpulse/pkg/errors"
)

// TimestampLayout is the stored text form of a message timestamp.
// The hour of day always sits at characters 12-13.
const TimestampLayout = "2006-01-02T15:04:05.000000+00:00"

// FormatTimestamp 转为 UTC 存储格式
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp 解析存储格式
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.ParseInLocation(TimestampLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

// GormEventStore GORM 实现的事件仓储 (sqlite / postgres)
type GormEventStore struct {
	db  *gorm.DB
	now func() time.Time
}

// GormEventStoreOption 可选配置
type GormEventStoreOption func(*GormEventStore)

// WithClock overrides the write-time source, which defaults to the gorm NowFunc.
func WithClock(now func() time.Time) GormEventStoreOption {
	return func(s *GormEventStore) {
		s.now = now
	}
}

// NewGormEventStore 创建 GORM 事件仓储
func NewGormEventStore(db *gorm.DB, opts ...GormEventStoreOption) *GormEventStore {
	s := &GormEventStore{db: db, now: db.NowFunc}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ repository.EventStore = (*GormEventStore)(nil)

// EnsureSchema creates the messages table and its index when absent.
func (s *GormEventStore) EnsureSchema(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&models.MessageEventModel{}); err != nil {
		return domainErrors.NewStoreUnavailableError("ensure schema", err)
	}
	return nil
}

// Append 写入一条消息事件, 分配 id 与 UTC 时间戳
func (s *GormEventStore) Append(ctx context.Context, event *entity.MessageEvent) (int64, error) {
	if event == nil {
		return 0, domainErrors.NewInvalidInputError("nil message event")
	}
	if event.IsStored() {
		return 0, domainErrors.NewInvalidInputError(entity.ErrAlreadyStored.Error())
	}

	// 存储精度为微秒
	at := s.now().UTC().Truncate(time.Microsecond)
	model := &models.MessageEventModel{
		UserID:    event.UserID(),
		Username:  event.Username(),
		ChatID:    event.ChatID(),
		Timestamp: FormatTimestamp(at),
	}

	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		return 0, domainErrors.NewStoreUnavailableError("append message event", err)
	}
	if err := event.MarkStored(model.ID, at); err != nil {
		return 0, domainErrors.NewInternalErrorWithCause("mark message event stored", err)
	}
	return model.ID, nil
}

type contributorRow struct {
	UserID       int64
	MessageCount int64
	LastID       int64
}

type usernameRow struct {
	ID       int64
	Username string
}

// QueryTopContributors returns up to limit authors of chatID, most messages
// first, ties broken by ascending user id. Each author carries the handle of
// their most recent message.
func (s *GormEventStore) QueryTopContributors(ctx context.Context, chatID int64, limit int) ([]entity.ContributorCount, error) {
	if limit <= 0 {
		return nil, domainErrors.NewInvalidInputError(fmt.Sprintf("limit must be positive, got %d", limit))
	}

	var result []entity.ContributorCount
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []contributorRow
		if err := tx.Model(&models.MessageEventModel{}).
			Select("user_id, COUNT(*) AS message_count, MAX(id) AS last_id").
			Where("chat_id = ?", chatID).
			Group("user_id").
			Order("message_count DESC, user_id ASC").
			Limit(limit).
			Scan(&rows).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}

		ids := make([]int64, 0, len(rows))
		for _, r := range rows {
			ids = append(ids, r.LastID)
		}
		var names []usernameRow
		if err := tx.Model(&models.MessageEventModel{}).
			Select("id, username").
			Where("id IN ?", ids).
			Scan(&names).Error; err != nil {
			return err
		}
		byID := make(map[int64]string, len(names))
		for _, n := range names {
			byID[n.ID] = n.Username
		}

		result = make([]entity.ContributorCount, 0, len(rows))
		for _, r := range rows {
			username, ok := byID[r.LastID]
			if !ok {
				username = entity.UnknownUsername
			}
			result = append(result, entity.ContributorCount{
				UserID:   r.UserID,
				Username: username,
				Count:    r.MessageCount,
			})
		}
		return nil
	})
	if err != nil {
		return nil, domainErrors.NewStoreUnavailableError("query top contributors", err)
	}
	return result, nil
}

type hourRow struct {
	HourOfDay    int
	MessageCount int64
}

// QueryHourlyHistogram returns the non-empty UTC hour buckets of chatID in
// ascending hour order.
func (s *GormEventStore) QueryHourlyHistogram(ctx context.Context, chatID int64) ([]entity.HourCount, error) {
	var rows []hourRow
	err := s.db.WithContext(ctx).
		Model(&models.MessageEventModel{}).
		Select(`CAST(substr("timestamp", 12, 2) AS INTEGER) AS hour_of_day, COUNT(*) AS message_count`).
		Where("chat_id = ?", chatID).
		Group("hour_of_day").
		Order("hour_of_day ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, domainErrors.NewStoreUnavailableError("query hourly histogram", err)
	}

	out := make([]entity.HourCount, 0, len(rows))
	for _, r := range rows {
		out = append(out, entity.HourCount{Hour: r.HourOfDay, Count: r.MessageCount})
	}
	return out, nil
}

// Ping 检查数据库是否可达
func (s *GormEventStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return domainErrors.NewStoreUnavailableError("ping", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return domainErrors.NewStoreUnavailableError("ping", err)
	}
	return nil
}
