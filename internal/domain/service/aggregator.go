package service

import (
	"context"

	"github.com/samber/lo"

	"github.com/ngoclaw/chatpulse/internal/domain/entity"
	"github.com/ngoclaw/chatpulse/internal/domain/repository"
)

// DefaultTopN is the leaderboard size used when the caller does not pick one.
const DefaultTopN = 5

// Aggregator 单个 chat 的只读统计
type Aggregator struct {
	store repository.EventStore
}

// NewAggregator 创建统计器
func NewAggregator(store repository.EventStore) *Aggregator {
	return &Aggregator{store: store}
}

// BuildLeaderboard returns at most topN contributors of chatID in store order.
// An empty result means the chat has no history.
func (a *Aggregator) BuildLeaderboard(ctx context.Context, chatID int64, topN int) ([]entity.LeaderboardEntry, error) {
	if topN <= 0 {
		topN = DefaultTopN
	}

	rows, err := a.store.QueryTopContributors(ctx, chatID, topN)
	if err != nil {
		return nil, err
	}

	return lo.Map(rows, func(r entity.ContributorCount, _ int) entity.LeaderboardEntry {
		return entity.LeaderboardEntry{
			DisplayName: entity.DisplayName(r.Username),
			Count:       r.Count,
		}
	}), nil
}

// BuildHourlyProfile returns all 24 UTC hour buckets of chatID, zero-filled.
func (a *Aggregator) BuildHourlyProfile(ctx context.Context, chatID int64) (entity.HourlyProfile, error) {
	var profile entity.HourlyProfile

	rows, err := a.store.QueryHourlyHistogram(ctx, chatID)
	if err != nil {
		return profile, err
	}

	for _, r := range rows {
		if r.Hour < 0 || r.Hour >= entity.HoursPerDay || r.Count < 0 {
			continue
		}
		profile[r.Hour] = r.Count
	}
	return profile, nil
}
