package cli

import (
	"fmt"
	"runtime"

	"github.com/charmbracelet/lipgloss"
)

// Version is overridden at build time with -ldflags "-X .../cli.Version=..."
var Version = "0.1.0"

// brand colors
var (
	colorCyan   = lipgloss.Color("#00D7FF")
	colorGray   = lipgloss.Color("#6C6C6C")
	colorWhite  = lipgloss.Color("#FFFFFF")
	colorGreen  = lipgloss.Color("#00FF87")
	colorYellow = lipgloss.Color("#FFD75F")
	colorBar    = lipgloss.Color("#F0A041")
)

// BannerInfo carries the runtime settings shown at startup
type BannerInfo struct {
	Bot      string
	Store    string
	HTTPAddr string
}

// RenderBanner returns the styled startup banner
func RenderBanner(info BannerInfo) string {
	logoStyle := lipgloss.NewStyle().Foreground(colorCyan).Bold(true)
	labelStyle := lipgloss.NewStyle().Foreground(colorGray)
	valueStyle := lipgloss.NewStyle().Foreground(colorWhite)
	greenStyle := lipgloss.NewStyle().Foreground(colorGreen)

	httpAddr := info.HTTPAddr
	if httpAddr == "" {
		httpAddr = "disabled"
	}

	line := func(label, value string, style lipgloss.Style) string {
		return fmt.Sprintf("  %s %s", labelStyle.Render(fmt.Sprintf("%-5s", label)), style.Render(value))
	}

	return fmt.Sprintf("\n%s %s\n\n%s\n%s\n%s\n%s\n",
		logoStyle.Render(" ◇  c h a t p u l s e"),
		labelStyle.Render("v"+Version),
		line("Bot", "@"+info.Bot, greenStyle),
		line("Store", info.Store, valueStyle),
		line("HTTP", httpAddr, valueStyle),
		line("Env", runtime.GOOS+"/"+runtime.GOARCH, labelStyle),
	)
}

// VersionString 版本信息
func VersionString() string {
	return fmt.Sprintf("chatpulse %s (%s, %s/%s)", Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
