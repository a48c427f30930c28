// Package presenter renders pm results: tables and detail panels for humans,
// tab-separated, JSON or YAML output for scripts, and marked status lines.
package presenter

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/x/term"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/termenv"
	"gopkg.in/yaml.v3"

	"pm/internal/models"
)

// Line markers. Every success line starts with SuccessMarker and every error
// line with ErrorMarker, independent of color support.
const (
	SuccessMarker = "✓"
	ErrorMarker   = "✗"
	ellipsis      = "…"
	placeholder   = "-"
)

// Format selects how listings and details are written.
type Format string

const (
	FormatTable Format = "table"
	FormatPlain Format = "plain"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// TimeMode selects absolute or relative timestamps.
type TimeMode string

const (
	TimeRelative TimeMode = "relative"
	TimeAbsolute TimeMode = "absolute"
)

const (
	defaultWidth  = 100
	minTitleWidth = 10
)

// Options configures a Presenter. Zero values pick sensible defaults.
type Options struct {
	Out      io.Writer
	Err      io.Writer
	Format   Format
	TimeMode TimeMode
	// Color is auto, always or never.
	Color string
	// Width is the display width; 0 detects it from the terminal.
	Width    int
	Now      func() time.Time
	Location *time.Location
}

// Presenter writes results to the terminal.
type Presenter struct {
	out      io.Writer
	errOut   io.Writer
	format   Format
	timeMode TimeMode
	width    int
	now      func() time.Time
	loc      *time.Location
	styles   styles
	errStyle styles
}

// New builds a presenter.
func New(opts Options) *Presenter {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Err == nil {
		opts.Err = os.Stderr
	}
	if opts.Format == "" {
		opts.Format = FormatTable
	}
	if opts.TimeMode == "" {
		opts.TimeMode = TimeRelative
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Width <= 0 {
		opts.Width = detectWidth(opts.Out)
	}

	return &Presenter{
		out:      opts.Out,
		errOut:   opts.Err,
		format:   opts.Format,
		timeMode: opts.TimeMode,
		width:    opts.Width,
		now:      opts.Now,
		loc:      opts.Location,
		styles:   newStyles(newRenderer(opts.Out, opts.Color)),
		errStyle: newStyles(newRenderer(opts.Err, opts.Color)),
	}
}

func newRenderer(w io.Writer, color string) *lipgloss.Renderer {
	r := lipgloss.NewRenderer(w)
	switch color {
	case "never":
		r.SetColorProfile(termenv.Ascii)
	case "always":
		r.SetColorProfile(termenv.ANSI)
	}
	return r
}

func detectWidth(w io.Writer) int {
	if f, ok := w.(*os.File); ok && term.IsTerminal(f.Fd()) {
		if width, _, err := term.GetSize(f.Fd()); err == nil && width > 0 {
			return width
		}
	}
	if cols, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil && cols > 0 {
		return cols
	}
	return defaultWidth
}

// Success writes a marked success line to standard output.
func (p *Presenter) Success(format string, args ...any) {
	fmt.Fprintf(p.out, "%s %s\n", p.styles.success.Render(SuccessMarker), fmt.Sprintf(format, args...))
}

// Error writes a marked error line to standard error.
func (p *Presenter) Error(format string, args ...any) {
	fmt.Fprintf(p.errOut, "%s %s\n", p.errStyle.failure.Render(ErrorMarker), fmt.Sprintf(format, args...))
}

// Notice writes an unmarked informational line, such as an empty result.
func (p *Presenter) Notice(format string, args ...any) {
	fmt.Fprintln(p.out, p.styles.warn.Render(fmt.Sprintf(format, args...)))
}

// Projects renders a project listing.
func (p *Presenter) Projects(projects []models.Project) error {
	switch p.format {
	case FormatJSON:
		return p.writeJSON(projects)
	case FormatYAML:
		return p.writeYAML(projects)
	case FormatPlain:
		fmt.Fprintln(p.out, "ID\tNAME\tCREATED")
		for _, pr := range projects {
			fmt.Fprintf(p.out, "%d\t%s\t%s\n", pr.ID, pr.Name, pr.CreatedAt.Format(time.RFC3339))
		}
		return nil
	}

	if len(projects) == 0 {
		p.Notice("No projects found.")
		return nil
	}

	t := p.newTable("ID", "Name", "Created").
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return p.styles.header
			case col == 0:
				return p.styles.id
			case col == 1:
				return p.styles.project
			default:
				return p.styles.dim
			}
		})
	for _, pr := range projects {
		t.Row(strconv.FormatInt(pr.ID, 10), pr.Name, p.timestamp(pr.CreatedAt))
	}

	fmt.Fprintln(p.out, p.styles.title.Render("Projects"))
	fmt.Fprintln(p.out, t.Render())
	return nil
}

// Tasks renders a task listing in the given order.
func (p *Presenter) Tasks(tasks []models.TaskView) error {
	switch p.format {
	case FormatJSON:
		return p.writeJSON(tasks)
	case FormatYAML:
		return p.writeYAML(tasks)
	case FormatPlain:
		fmt.Fprintln(p.out, "ID\tTITLE\tPROJECT\tSTATUS\tCREATED")
		for _, t := range tasks {
			fmt.Fprintf(p.out, "%d\t%s\t%s\t%s\t%s\n",
				t.ID, t.Title, orPlaceholder(t.ProjectName), t.Status, t.CreatedAt.Format(time.RFC3339))
		}
		return nil
	}

	if len(tasks) == 0 {
		p.Notice("No tasks found.")
		return nil
	}

	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		rows = append(rows, []string{
			strconv.FormatInt(t.ID, 10),
			t.Title,
			orPlaceholder(t.ProjectName),
			string(t.Status),
			p.timestamp(t.CreatedAt),
		})
	}

	titleWidth := p.titleWidth(rows)
	for i, row := range rows {
		row[1] = Truncate(row[1], titleWidth)
		row[3] = p.styles.statusLabel(tasks[i].Status)
	}

	t := p.newTable("ID", "Title", "Project", "Status", "Created").
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return p.styles.header
			case col == 0:
				return p.styles.id
			case col == 2:
				return p.styles.project
			case col == 4:
				return p.styles.dim
			default:
				return p.styles.cell
			}
		}).
		Rows(rows...)

	fmt.Fprintln(p.out, p.styles.title.Render("Tasks"))
	fmt.Fprintln(p.out, t.Render())
	return nil
}

// Task renders the detail view of one task. withTimes adds created and
// updated timestamps.
func (p *Presenter) Task(t models.TaskView, withTimes bool) error {
	switch p.format {
	case FormatJSON:
		return p.writeJSON(t)
	case FormatYAML:
		return p.writeYAML(t)
	case FormatPlain:
		fmt.Fprintf(p.out, "id\t%d\n", t.ID)
		fmt.Fprintf(p.out, "title\t%s\n", t.Title)
		fmt.Fprintf(p.out, "project\t%s\n", orPlaceholder(t.ProjectName))
		fmt.Fprintf(p.out, "status\t%s\n", t.Status)
		fmt.Fprintf(p.out, "description\t%s\n", orPlaceholder(t.Description))
		if withTimes {
			fmt.Fprintf(p.out, "created\t%s\n", t.CreatedAt.Format(time.RFC3339))
			fmt.Fprintf(p.out, "updated\t%s\n", t.UpdatedAt.Format(time.RFC3339))
		}
		return nil
	}

	label := p.styles.label.Render
	lines := []string{
		label("ID:") + " " + strconv.FormatInt(t.ID, 10),
		label("Title:") + " " + t.Title,
		label("Project:") + " " + orPlaceholder(t.ProjectName),
		label("Status:") + " " + p.styles.statusLabel(t.Status),
		label("Description:") + " " + orPlaceholder(t.Description),
	}
	if withTimes {
		lines = append(lines,
			label("Created:")+" "+p.fullTimestamp(t.CreatedAt),
			label("Updated:")+" "+p.fullTimestamp(t.UpdatedAt),
		)
	}

	content := strings.Join(lines, "\n")
	panel := p.styles.panel
	if lipgloss.Width(content)+4 > p.width {
		panel = panel.Width(p.width - 2)
	}

	fmt.Fprintln(p.out, p.styles.title.Render(fmt.Sprintf("Task #%d", t.ID)))
	fmt.Fprintln(p.out, panel.Render(content))
	return nil
}

func (p *Presenter) newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(p.styles.border).
		Headers(headers...)
}

// titleWidth is what remains of the display width for the title column
// (index 1) once the other columns, cell padding and borders are placed.
func (p *Presenter) titleWidth(rows [][]string) int {
	headers := []string{"ID", "Title", "Project", "Status", "Created"}
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	fixed := len(headers) + 1 + 2*len(headers)
	for i, w := range widths {
		if i != 1 {
			fixed += w
		}
	}
	if avail := p.width - fixed; avail > minTitleWidth {
		return avail
	}
	return minTitleWidth
}

// Truncate shortens s to at most width display cells, ending in an ellipsis
// when anything was cut.
func Truncate(s string, width int) string {
	if runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, ellipsis)
}

func (p *Presenter) timestamp(t time.Time) string {
	if p.timeMode == TimeAbsolute {
		return Absolute(t, p.loc)
	}
	return Relative(t, p.now(), p.loc)
}

func (p *Presenter) fullTimestamp(t time.Time) string {
	if t.IsZero() {
		return placeholder
	}
	return fmt.Sprintf("%s (%s)", Absolute(t, p.loc), Relative(t, p.now(), p.loc))
}

func (p *Presenter) writeJSON(v any) error {
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (p *Presenter) writeYAML(v any) error {
	enc := yaml.NewEncoder(p.out)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func orPlaceholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return placeholder
	}
	return s
}
