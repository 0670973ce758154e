package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ngoclaw/chatpulse/internal/domain/entity"
	domainErrors "github.com/ngoclaw/chatpulse/pkg/errors"
)

func TestMemoryEventStore_MatchesStoreContract(t *testing.T) {
	store := NewMemoryEventStore()
	ctx := context.Background()
	require.NoError(t, store.EnsureSchema(ctx))

	add := func(at time.Time, chatID, userID int64, handle string, n int) {
		store.SetClock(func() time.Time { return at })
		for i := 0; i < n; i++ {
			ev, err := entity.NewMessageEvent(userID, chatID, handle)
			require.NoError(t, err)
			_, err = store.Append(ctx, ev)
			require.NoError(t, err)
		}
	}
	add(time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC), 42, 1, "A", 3)
	add(time.Date(2026, 5, 4, 14, 0, 0, 0, time.UTC), 42, 2, "B", 1)
	add(time.Date(2026, 5, 4, 14, 0, 0, 0, time.UTC), 42, 3, "", 1)
	add(time.Date(2026, 5, 4, 3, 0, 0, 0, time.UTC), 7, 9, "other", 6)

	top, err := store.QueryTopContributors(ctx, 42, 5)
	require.NoError(t, err)
	assert.Equal(t, []entity.ContributorCount{
		{UserID: 1, Username: "A", Count: 3},
		{UserID: 2, Username: "B", Count: 1},
		{UserID: 3, Username: entity.UnknownUsername, Count: 1},
	}, top)

	hours, err := store.QueryHourlyHistogram(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, []entity.HourCount{{Hour: 10, Count: 3}, {Hour: 14, Count: 2}}, hours)
	assert.Equal(t, 11, store.Len())
}

func TestMemoryEventStore_Errors(t *testing.T) {
	store := NewMemoryEventStore()

	_, err := store.QueryTopContributors(context.Background(), 42, 0)
	assert.True(t, domainErrors.IsInvalidInput(err))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ev, err := entity.NewMessageEvent(1, 42, "a")
	require.NoError(t, err)
	_, err = store.Append(ctx, ev)
	assert.True(t, domainErrors.IsStoreUnavailable(err))
	assert.Zero(t, store.Len())
}
