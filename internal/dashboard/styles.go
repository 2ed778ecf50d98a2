package dashboard

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/rxtech-lab/argo-scalper/internal/types"
)

// Style definitions.
var (
	// TitleStyle for the dashboard header.
	TitleStyle = lipgloss.NewStyle().Bold(true)

	// SectionStyle for section headings.
	SectionStyle = lipgloss.NewStyle().Bold(true).Underline(true)

	// HelpStyle for help text.
	HelpStyle = lipgloss.NewStyle().Faint(true)

	// ErrorStyle for error messages.
	ErrorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))

	// RunningStyle marks a healthy engine.
	RunningStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))

	// WarnStyle marks halted or degraded states.
	WarnStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("3"))
)

// FormatStatus renders the engine status with state-appropriate color.
func FormatStatus(status types.EngineStatus) string {
	switch status {
	case types.EngineStatusRunning:
		return RunningStyle.Render(string(status))
	case types.EngineStatusHalted, types.EngineStatusInitializing:
		return WarnStyle.Render(string(status))
	case types.EngineStatusEmergencyStopped, types.EngineStatusStopped:
		return ErrorStyle.Render(string(status))
	default:
		return string(status)
	}
}

// FormatSignedAmount formats an amount with a direction indicator relative
// to a baseline.
func FormatSignedAmount(current, baseline float64) string {
	amountStr := fmt.Sprintf("%.2f", current)

	if baseline == 0 {
		return amountStr
	}

	if current > baseline {
		return amountStr + " ▲"
	} else if current < baseline {
		return amountStr + " ▼"
	}

	return amountStr
}
