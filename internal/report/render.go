package report

import (
	"bag-reindex/internal/reindex"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

var (
	okStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("16")).
		Background(lipgloss.Color("42")).
		Padding(0, 1)
	warnStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("16")).
			Background(lipgloss.Color("220")).
			Padding(0, 1)
	failStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("231")).
			Background(lipgloss.Color("160")).
			Padding(0, 1)
)

// Render formats markdown for a terminal. The raw markdown is returned when
// the renderer cannot be built.
func Render(md, style string, wrap int) string {
	if wrap <= 0 {
		wrap = 100
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}

// Badge is a one-line colored outcome marker.
func Badge(state reindex.State, err error) string {
	switch {
	case err != nil:
		return failStyle.Render("FAILED") + " " + err.Error()
	case state == reindex.StatePersisted:
		return okStyle.Render("REINDEXED")
	case state == reindex.StateAborted:
		return warnStyle.Render("NOTHING TO DO") + " no segment files found"
	default:
		return warnStyle.Render(state.String())
	}
}
