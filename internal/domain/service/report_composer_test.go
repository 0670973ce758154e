package service_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ngoclaw/chatpulse/internal/domain/entity"
	"github.com/ngoclaw/chatpulse/internal/domain/service"
)

func TestComposeLeaderboardText_NoData(t *testing.T) {
	assert.Equal(t, service.NoDataMessage, service.ComposeLeaderboardText("Gophers", nil))
	assert.Equal(t, service.NoDataMessage, service.ComposeLeaderboardText("", []entity.LeaderboardEntry{}))
}

func TestComposeLeaderboardText_Layout(t *testing.T) {
	text := service.ComposeLeaderboardText("Gophers", []entity.LeaderboardEntry{
		{DisplayName: "@alice", Count: 3},
		{DisplayName: "User", Count: 1},
	})

	want := "📊 **Activity Report: Gophers**\n\n" +
		"🔥 **Top Contributors:**\n" +
		"🥇 @alice: **3 messages**\n" +
		"🥈 User: **1 message**\n"
	assert.Equal(t, want, text)
}

func TestComposeLeaderboardText_DefaultTitle(t *testing.T) {
	text := service.ComposeLeaderboardText("  ", []entity.LeaderboardEntry{{DisplayName: "@a", Count: 2}})
	assert.True(t, strings.HasPrefix(text, "📊 **Activity Report: this group**"))
}

func TestComposeLeaderboardText_GlyphsThenNumerals(t *testing.T) {
	entries := make([]entity.LeaderboardEntry, 7)
	for i := range entries {
		entries[i] = entity.LeaderboardEntry{DisplayName: "@u", Count: int64(10 - i)}
	}

	lines := strings.Split(strings.TrimRight(service.ComposeLeaderboardText("g", entries), "\n"), "\n")
	body := lines[3:]
	require.Len(t, body, 7)

	for i, prefix := range []string{"🥇 ", "🥈 ", "🥉 ", "4️⃣ ", "5️⃣ ", "6. ", "7. "} {
		assert.True(t, strings.HasPrefix(body[i], prefix), "line %d = %q", i, body[i])
	}
}

func TestRankGlyph(t *testing.T) {
	assert.Equal(t, "🥇", service.RankGlyph(1))
	assert.Equal(t, "5️⃣", service.RankGlyph(5))
	assert.Equal(t, "6.", service.RankGlyph(6))
	assert.Equal(t, "0.", service.RankGlyph(0))
}

func TestComposeChartSeries(t *testing.T) {
	var profile entity.HourlyProfile
	profile[10] = 3
	profile[14] = 1

	series := service.ComposeChartSeries([]entity.LeaderboardEntry{
		{DisplayName: "@A", Count: 3},
		{DisplayName: "@B", Count: 1},
	}, profile)

	assert.Equal(t, []string{"@A", "@B"}, series.Labels)
	assert.Equal(t, []int64{3, 1}, series.Values)
	assert.InDeltaSlice(t, []float64{0.75, 0.25}, series.Shares, 1e-9)
	require.Len(t, series.HourlyValues, entity.HoursPerDay)
	assert.Equal(t, int64(3), series.HourlyValues[10])
	assert.Equal(t, int64(1), series.HourlyValues[14])
	assert.False(t, series.IsEmpty())
}

func TestComposeChartSeries_Empty(t *testing.T) {
	series := service.ComposeChartSeries(nil, entity.HourlyProfile{})

	assert.True(t, series.IsEmpty())
	assert.Empty(t, series.Shares)
	assert.Len(t, series.HourlyValues, entity.HoursPerDay)
}
