package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/aegis/internal/core/domain"
)

// Palette.
var (
	colourPrimary = lipgloss.Color("#7C3AED") // Purple
	colourMuted   = lipgloss.Color("#6C7086") // Medium gray
	colourSuccess = lipgloss.Color("#A6E3A1") // Green
	colourWarning = lipgloss.Color("#F9E2AF") // Yellow
	colourError   = lipgloss.Color("#F38BA8") // Red
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colourPrimary)
	mutedStyle   = lipgloss.NewStyle().Foreground(colourMuted)
	successStyle = lipgloss.NewStyle().Foreground(colourSuccess)
	warningStyle = lipgloss.NewStyle().Foreground(colourWarning)
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(colourError)
)

// riskBadge renders a risk level in its colour.
func riskBadge(level domain.RiskLevel) string {
	switch level {
	case domain.RiskLevelCritical:
		return errorStyle.Render(string(level))
	case domain.RiskLevelWarning:
		return warningStyle.Render(string(level))
	case domain.RiskLevelNormal:
		return successStyle.Render(string(level))
	default:
		return mutedStyle.Render("Unclassified")
	}
}

// severityBadge renders a flag severity in its colour.
func severityBadge(s domain.Severity) string {
	switch s {
	case domain.SeverityCritical, domain.SeverityHigh:
		return errorStyle.Render(string(s))
	case domain.SeverityMedium:
		return warningStyle.Render(string(s))
	default:
		return mutedStyle.Render(string(s))
	}
}

// stepBadge renders a pipeline step status.
func stepBadge(s domain.StepStatus) string {
	switch s {
	case domain.StepCompleted:
		return successStyle.Render(string(s))
	case domain.StepFailed:
		return errorStyle.Render(string(s))
	default:
		return mutedStyle.Render(string(s))
	}
}

// scoreBadge colours a consistency score.
func scoreBadge(score int) string {
	text := fmt.Sprintf("%d/100", score)
	switch {
	case score >= 80:
		return successStyle.Render(text)
	case score >= 50:
		return warningStyle.Render(text)
	default:
		return errorStyle.Render(text)
	}
}
