package tui

import (
	"fmt"
	"strings"
)

// Check is the result of one doctor probe.
type Check struct {
	Name    string
	Ok      bool
	Skipped bool
	Detail  string
}

// RenderChecks renders doctor results as a styled checklist. Doctor
// runs once and exits, so there is no event loop behind this view.
func RenderChecks(target string, checks []Check) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("wiper doctor: %s", target)))
	b.WriteString("\n")

	failures := 0
	for _, check := range checks {
		var icon string
		var style styleFunc
		switch {
		case check.Skipped:
			icon = pending
			style = sf(dimStyle)
		case check.Ok:
			icon = checkMark
			style = sf(readyStyle)
		default:
			icon = crossMark
			style = sf(failedStyle)
			failures++
		}

		detail := ""
		if check.Detail != "" {
			detail = " " + dimStyle.Render(check.Detail)
		}
		fmt.Fprintf(&b, "  %s %-24s%s\n", style(icon), style(check.Name), detail)
	}

	summary := "all checks passed"
	style := readyStyle
	if failures > 0 {
		summary = fmt.Sprintf("%d check(s) failed", failures)
		style = failedStyle
	}
	b.WriteString(footerStyle.Render("  " + style.Render(summary)))
	b.WriteString("\n")

	return b.String()
}
