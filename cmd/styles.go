package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/conneroisu/simplest/internal/build"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5B8DEF"))
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Width(12)
	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#AAAAAA"))
	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B"))
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
)

// summaryActions is the display order of the build summary.
var summaryActions = []build.Action{
	build.ActionTemplate,
	build.ActionWritten,
	build.ActionCopied,
	build.ActionUpToDate,
	build.ActionRemoved,
	build.ActionIgnored,
}

// renderSummary formats a finished build for the terminal.
func renderSummary(report *build.Report) string {
	counts := report.Counts()

	lines := []string{titleStyle.Render(fmt.Sprintf("Built in %s", report.Duration.Round(time.Millisecond)))}
	for _, action := range summaryActions {
		if counts[action] == 0 {
			continue
		}
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top,
			labelStyle.Render(string(action)),
			valueStyle.Render(fmt.Sprint(counts[action])),
		))
	}
	if len(lines) == 1 {
		lines = append(lines, valueStyle.Render("nothing to do"))
	}

	return boxStyle.Render(strings.Join(lines, "\n"))
}

func renderError(err error) string {
	return errorStyle.Render("Build failed: ") + err.Error()
}
