package service

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/ngoclaw/chatpulse/internal/domain/entity"
	"github.com/ngoclaw/chatpulse/internal/domain/valueobject"
)

const (
	// NoDataMessage replaces the report when a chat has no history.
	NoDataMessage = "No data yet! Send some messages first."

	// DefaultChatTitle names chats that have no title (private chats).
	DefaultChatTitle = "this group"
)

// rankGlyphs decorate ranks 1..5; later ranks fall back to "N.".
var rankGlyphs = []string{"🥇", "🥈", "🥉", "4️⃣", "5️⃣"}

// RankGlyph 返回名次标记
func RankGlyph(rank int) string {
	if rank >= 1 && rank <= len(rankGlyphs) {
		return rankGlyphs[rank-1]
	}
	return fmt.Sprintf("%d.", rank)
}

// ComposeLeaderboardText renders the Markdown leaderboard caption.
// Empty entries yield NoDataMessage instead of an empty body.
func ComposeLeaderboardText(title string, entries []entity.LeaderboardEntry) string {
	if len(entries) == 0 {
		return NoDataMessage
	}

	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultChatTitle
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 **Activity Report: %s**\n\n", title)
	sb.WriteString("🔥 **Top Contributors:**\n")
	for i, e := range entries {
		fmt.Fprintf(&sb, "%s %s: **%d %s**\n", RankGlyph(i+1), e.DisplayName, e.Count, pluralMessages(e.Count))
	}
	return sb.String()
}

// ComposeChartSeries packages the share-of-total and time-of-day series.
// Shares sum to 1 when entries are non-empty.
func ComposeChartSeries(entries []entity.LeaderboardEntry, profile entity.HourlyProfile) valueobject.ChartSeries {
	values := lo.Map(entries, func(e entity.LeaderboardEntry, _ int) int64 { return e.Count })
	total := lo.Sum(values)

	shares := make([]float64, len(values))
	if total > 0 {
		for i, v := range values {
			shares[i] = float64(v) / float64(total)
		}
	}

	return valueobject.ChartSeries{
		Labels:       lo.Map(entries, func(e entity.LeaderboardEntry, _ int) string { return e.DisplayName }),
		Values:       values,
		Shares:       shares,
		HourlyValues: profile.Slice(),
	}
}

func pluralMessages(n int64) string {
	if n == 1 {
		return "message"
	}
	return "messages"
}
