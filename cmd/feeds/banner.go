package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/pders01/feeds/internal/app"
)

// showBanner describes the running app. The source count comes from the
// aggregator, since a seed document may replace the configured sources.
func showBanner(w io.Writer, a *app.App) {
	cfg := a.Config
	colors := []lipgloss.Color{
		lipgloss.Color("#FF6B6B"),
		lipgloss.Color("#FFA86B"),
		lipgloss.Color("#95E1D3"),
		lipgloss.Color("#4ECDC4"),
	}

	lines := []string{
		"█▀▀ █▀▀ █▀▀ █▀▄ █▀▀",
		"█▀  █▀▀ █▀▀ █ █ ▀▀█",
		"▀   ▀▀▀ ▀▀▀ ▀▀  ▀▀▀",
	}

	var rendered []string
	for i, line := range lines {
		style := lipgloss.NewStyle().Foreground(colors[i%len(colors)]).Bold(true)
		rendered = append(rendered, style.Render(line))
	}

	mode := "live"
	if cfg.Feed.Offline {
		mode = "offline"
	}
	muted := lipgloss.NewStyle().Foreground(lipgloss.Color("#95E1D3"))
	rendered = append(rendered,
		"",
		muted.Render(fmt.Sprintf("%s · %d sources · %s feed", Version, len(a.Aggregator.Sources()), mode)),
		muted.Render("listening on "+cfg.Server.Addr),
	)

	box := lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(lipgloss.Color("#4ECDC4")).
		Padding(1, 3).
		MarginTop(1).
		MarginBottom(1)

	fmt.Fprintln(w, box.Render(lipgloss.JoinVertical(lipgloss.Center, rendered...)))
}
