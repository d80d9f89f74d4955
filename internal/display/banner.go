package display

import (
	_ "embed"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/term"
)

//go:embed banner.txt
var bannerRaw string

const tagline = "practice speaking English, one topic at a time"

// RenderBanner returns the banner centred for the current terminal.
func RenderBanner() string {
	return bannerFor(termWidth())
}

// bannerFor lays the art out for width columns. Terminals narrower than
// the art get a one-line title instead.
func bannerFor(width int) string {
	art := strings.TrimRight(bannerRaw, "\n")
	if lipgloss.Width(art) > width {
		return BannerStyle.Render("VoiceVibe - " + tagline)
	}
	block := lipgloss.JoinVertical(lipgloss.Center, art, "", tagline)
	return BannerStyle.Render(lipgloss.PlaceHorizontal(width, lipgloss.Center, block))
}

func termWidth() int {
	if w, _, err := term.GetSize(os.Stdout.Fd()); err == nil && w > 0 {
		return w
	}
	return 80
}
