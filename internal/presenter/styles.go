package presenter

import (
	"github.com/charmbracelet/lipgloss"

	"pm/internal/models"
)

// Terminal colors (ANSI 16-color indexes so they follow the user's theme).
var (
	colorSuccess = lipgloss.Color("2") // green
	colorError   = lipgloss.Color("1") // red
	colorWarn    = lipgloss.Color("3") // yellow
	colorInfo    = lipgloss.Color("4") // blue
	colorAccent  = lipgloss.Color("5") // magenta
	colorID      = lipgloss.Color("6") // cyan
	colorDim     = lipgloss.Color("8")
)

type styles struct {
	success lipgloss.Style
	failure lipgloss.Style
	warn    lipgloss.Style
	title   lipgloss.Style
	header  lipgloss.Style
	cell    lipgloss.Style
	id      lipgloss.Style
	project lipgloss.Style
	dim     lipgloss.Style
	label   lipgloss.Style
	border  lipgloss.Style
	panel   lipgloss.Style
	status  map[models.Status]lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	base := r.NewStyle()
	cell := base.Padding(0, 1)
	return styles{
		success: base.Foreground(colorSuccess),
		failure: base.Foreground(colorError),
		warn:    base.Foreground(colorWarn),
		title:   base.Bold(true),
		header:  cell.Bold(true).Foreground(colorAccent),
		cell:    cell,
		id:      cell.Foreground(colorID),
		project: cell.Foreground(colorSuccess),
		dim:     cell.Foreground(colorDim),
		label:   base.Bold(true),
		border:  base.Foreground(colorDim),
		panel:   base.Border(lipgloss.RoundedBorder()).BorderForeground(colorInfo).Padding(0, 1),
		status: map[models.Status]lipgloss.Style{
			models.StatusTodo:       base.Foreground(colorWarn),
			models.StatusInProgress: base.Foreground(colorInfo),
			models.StatusDone:       base.Foreground(colorSuccess),
		},
	}
}

// statusLabel colors a status by meaning: todo warns, in-progress informs,
// done succeeds.
func (s styles) statusLabel(status models.Status) string {
	if st, ok := s.status[status]; ok {
		return st.Render(string(status))
	}
	return string(status)
}
