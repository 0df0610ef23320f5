package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/waabox/sekideck/internal/domain"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00CEC9"))
	metaStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#636E72"))
	linkStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#74B9FF")).Underline(true)
	cursorStyle  = lipgloss.NewStyle().Bold(true)
	footerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#636E72"))
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#D63031"))

	toneStyles = map[domain.Tone]lipgloss.Style{
		domain.ToneSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("#00B894")),
		domain.ToneDanger:  lipgloss.NewStyle().Foreground(lipgloss.Color("#D63031")),
		domain.ToneWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("#FDCB6E")),
		domain.ToneActive:  lipgloss.NewStyle().Foreground(lipgloss.Color("#0984E3")),
		domain.ToneNeutral: lipgloss.NewStyle().Foreground(lipgloss.Color("#B2BEC3")),
	}

	stageBadges = map[domain.Stage]lipgloss.Style{
		domain.StageStaging:    lipgloss.NewStyle().Bold(true).Padding(0, 1).Background(lipgloss.Color("#FDCB6E")).Foreground(lipgloss.Color("#2D3436")),
		domain.StageProduction: lipgloss.NewStyle().Bold(true).Padding(0, 1).Background(lipgloss.Color("#6C5CE7")).Foreground(lipgloss.Color("#FFFFFF")),
	}
)

const separator = "────────────────────────────────────────────────────────────\n"

func toneStyle(t domain.Tone) lipgloss.Style {
	if s, ok := toneStyles[t]; ok {
		return s
	}
	return toneStyles[domain.ToneNeutral]
}

// stateIcon renders the icon of a state in its tone. States without an icon
// render as a neutral dot so rows stay aligned.
func stateIcon(icon string, tone domain.Tone) string {
	if icon == "" {
		icon = "·"
	}
	return toneStyle(tone).Render(icon)
}

func stageBadge(stage domain.Stage) string {
	label := "STAGING"
	if stage == domain.StageProduction {
		label = "PRODUCTION"
	}
	if s, ok := stageBadges[stage]; ok {
		return s.Render(label)
	}
	return label
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
