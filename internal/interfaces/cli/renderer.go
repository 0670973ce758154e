package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/ngoclaw/chatpulse/internal/application/usecase"
	"github.com/ngoclaw/chatpulse/internal/domain/entity"
)

// barGlyph 柱状图字符
const barGlyph = "█"

// Renderer renders stats reports for the terminal.
type Renderer struct {
	glamour *glamour.TermRenderer
	width   int
	plain   bool
}

// NewRenderer creates a renderer with the given terminal width.
// plain disables styling, for pipes and tests.
func NewRenderer(width int, plain bool) *Renderer {
	if width <= 0 {
		width = 80
	}
	r := &Renderer{width: width, plain: plain}
	if !plain {
		r.glamour, _ = glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(width-4),
		)
	}
	return r
}

// RenderMarkdown renders markdown text to styled terminal output
func (r *Renderer) RenderMarkdown(md string) string {
	if r.glamour == nil {
		return md
	}
	out, err := r.glamour.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimSpace(out)
}

// RenderReport renders the leaderboard followed by the hourly histogram.
func (r *Renderer) RenderReport(report *usecase.StatsReport) string {
	if report == nil {
		return ""
	}
	if report.Empty() {
		return r.style(lipgloss.NewStyle().Foreground(colorGray)).Render(report.Text)
	}

	var b strings.Builder
	b.WriteString(r.RenderMarkdown(report.Text))
	b.WriteString("\n\n")
	b.WriteString(r.RenderHourly(report.Hourly))
	if report.BusiestHour != nil {
		b.WriteString("\n\n")
		b.WriteString(r.style(lipgloss.NewStyle().Foreground(colorBar).Bold(true)).
			Render(fmt.Sprintf("Busiest hour: %02d:00 UTC", *report.BusiestHour)))
	}
	return b.String()
}

// RenderHourly draws one horizontal bar per UTC hour, scaled to the busiest hour.
func (r *Renderer) RenderHourly(hourly []int64) string {
	var peak int64
	for _, c := range hourly {
		if c > peak {
			peak = c
		}
	}

	titleStyle := r.style(lipgloss.NewStyle().Foreground(colorCyan).Bold(true))
	labelStyle := r.style(lipgloss.NewStyle().Foreground(colorGray))
	barStyle := r.style(lipgloss.NewStyle().Foreground(colorBar))
	peakStyle := r.style(lipgloss.NewStyle().Foreground(colorYellow).Bold(true))

	maxBar := r.width - 16
	if maxBar < 10 {
		maxBar = 10
	}

	lines := []string{titleStyle.Render("Busiest Hours (UTC)")}
	for h := 0; h < entity.HoursPerDay; h++ {
		var c int64
		if h < len(hourly) {
			c = hourly[h]
		}
		n := 0
		if peak > 0 {
			n = int(c * int64(maxBar) / peak)
		}
		if c > 0 && n == 0 {
			n = 1
		}
		bar := barStyle
		if c == peak && peak > 0 {
			bar = peakStyle
		}
		lines = append(lines, fmt.Sprintf("%s %s %d",
			labelStyle.Render(fmt.Sprintf("%02d:00", h)),
			bar.Render(strings.Repeat(barGlyph, n)),
			c,
		))
	}
	return strings.Join(lines, "\n")
}

func (r *Renderer) style(s lipgloss.Style) lipgloss.Style {
	if r.plain {
		return lipgloss.NewStyle()
	}
	return s
}
