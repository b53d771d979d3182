package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// styleFunc is a single-string styling function.
type styleFunc func(string) string

// sf wraps a lipgloss.Style into a styleFunc.
func sf(s lipgloss.Style) styleFunc {
	return func(str string) string { return s.Render(str) }
}

func renderView(m Model) string {
	var b strings.Builder

	renderHeader(&b, m)
	renderProgressBar(&b, m)
	renderPhases(&b, m)
	renderWizard(&b, m)

	if len(m.Recoveries) > 0 {
		renderRecoveries(&b, m)
	}

	renderFooter(&b, m)

	return b.String()
}

func renderHeader(b *strings.Builder, m Model) {
	b.WriteString(titleStyle.Render(fmt.Sprintf("wiper: %s", m.Target)))

	status := " "
	switch {
	case m.Err != nil:
		status += failedStyle.Render(fmt.Sprintf("Error: %v", m.Err))
	case m.Done:
		status += readyStyle.Render("Complete")
	case m.CurrentStage != "":
		status += activeStyle.Render(currentSpinner(m.SpinnerFrame)+" ") + warningStyle.Render(string(m.CurrentStage))
	default:
		status += dimStyle.Render("Starting...")
	}
	b.WriteString(status)
	b.WriteString("\n")

	b.WriteString(subtitleStyle.Render(fmt.Sprintf("  fabric %s, controller %s", m.FabricName, m.Controller)))
	b.WriteString("\n")
}

func renderProgressBar(b *strings.Builder, m Model) {
	progress := calculateProgress(m)
	barWidth := 40
	if m.Width > 0 && m.Width < 80 {
		barWidth = m.Width - 30
		if barWidth < 10 {
			barWidth = 10
		}
	}
	filled := int(float64(barWidth) * progress)
	if filled > barWidth {
		filled = barWidth
	}

	bar := progressBarFull.Render(strings.Repeat("█", filled)) +
		progressBarEmpty.Render(strings.Repeat("░", barWidth-filled))

	pct := int(progress * 100)
	eta := ""
	if m.EstimatedRemaining > 0 {
		eta = fmt.Sprintf(" ETA %s", formatDuration(m.EstimatedRemaining))
	}
	if m.PerformanceScale != 0 && m.PerformanceScale != 1.0 {
		eta += fmt.Sprintf("  speed x%.2f", m.PerformanceScale)
	}

	fmt.Fprintf(b, "  %s %d%%%s\n", bar, pct, eta)
}

func renderPhases(b *strings.Builder, m Model) {
	b.WriteString(sectionStyle.Render("  Console"))
	b.WriteString("\n")

	for _, phase := range m.Phases {
		var icon string
		var style styleFunc
		switch {
		case phase.Failed:
			icon = crossMark
			style = sf(failedStyle)
		case phase.Done:
			icon = checkMark
			style = sf(readyStyle)
		case phase.Active:
			icon = currentSpinner(m.SpinnerFrame)
			style = sf(activeStyle)
		default:
			icon = pending
			style = sf(dimStyle)
		}
		fmt.Fprintf(b, "    %s %s\n", style(icon), style(phase.Name))
	}
}

func renderWizard(b *strings.Builder, m Model) {
	header := fmt.Sprintf("  Setup Wizard %d/%d", m.answeredCount(), len(m.Wizard))
	b.WriteString(sectionStyle.Render(header))
	b.WriteString("\n")

	for _, row := range m.Wizard {
		var icon string
		var style styleFunc
		switch {
		case row.Answered:
			icon = checkMark
			style = sf(readyStyle)
		case m.WizardActive:
			icon = spinner
			style = sf(dimStyle)
		default:
			icon = pending
			style = sf(dimStyle)
		}

		extra := ""
		if row.Answered {
			extra = sf(dimStyle)(row.Answer)
		}
		if row.Repeats > 0 {
			extra += sf(warningStyle)(fmt.Sprintf(" (asked again x%d)", row.Repeats))
		}

		fmt.Fprintf(b, "    %s %-22s %s\n", style(icon), style(row.Name), extra)
	}
}

func renderRecoveries(b *strings.Builder, m Model) {
	b.WriteString(sectionStyle.Render("  Recovery"))
	b.WriteString("\n")

	for _, message := range m.Recoveries {
		fmt.Fprintf(b, "    %s %s\n", warningStyle.Render(warnMark), dimStyle.Render(message))
	}
}

func renderFooter(b *strings.Builder, m Model) {
	elapsed := formatDuration(time.Since(m.StartTime))
	pulse := ""
	if !m.Done && m.Err == nil {
		pulse = "  |  " + currentSpinner(m.SpinnerFrame) + " provisioning"
	}
	b.WriteString(footerStyle.Render(fmt.Sprintf("  elapsed: %s%s  |  q: quit", elapsed, pulse)))
	b.WriteString("\n")
}

// Helper functions

func currentSpinner(frame int) string {
	if len(spinnerFrames) == 0 {
		return spinner
	}
	if frame < 0 {
		frame = -frame
	}
	return spinnerFrames[frame%len(spinnerFrames)]
}

// calculateProgress weights the fixed stages as 40% of the run and the
// wizard prompts as the remaining 60%.
func calculateProgress(m Model) float64 {
	if m.Done {
		return 1.0
	}

	done := 0
	for _, p := range m.Phases {
		if p.Done {
			done++
		}
	}
	progress := float64(done) / float64(len(m.Phases)) * 0.4

	if len(m.Wizard) > 0 {
		progress += float64(m.answeredCount()) / float64(len(m.Wizard)) * 0.6
	}

	if progress > 1.0 {
		progress = 1.0
	}
	return progress
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
