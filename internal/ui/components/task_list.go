package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	runningTaskStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("42")).
				Border(lipgloss.NormalBorder()).
				BorderForeground(lipgloss.Color("42")).
				Padding(0, 1)

	pausedTaskStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	selectedTaskStyle = pausedTaskStyle.
				BorderForeground(lipgloss.Color("12"))

	listHeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("252")).
			Padding(0, 1)

	timeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	placeholderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Italic(true).
				Padding(0, 1)
)

const (
	runningIcon = "▶"
	pausedIcon  = "⏸"
)

// TaskRow is one pre-formatted line of the task list.
type TaskRow struct {
	ID      string
	Title   string
	Running bool
	Clock   string
	Hours   string
}

type TaskList struct {
	Rows   []TaskRow
	Cursor int
	Width  int
	Title  string
}

func NewTaskList(width int) *TaskList {
	return &TaskList{
		Rows:  make([]TaskRow, 0),
		Width: width,
		Title: "Tasks",
	}
}

// SetRows replaces the rows and keeps the cursor within bounds.
func (l *TaskList) SetRows(rows []TaskRow) {
	l.Rows = rows
	l.clampCursor()
}

func (l *TaskList) MoveUp() {
	if l.Cursor > 0 {
		l.Cursor--
	}
}

func (l *TaskList) MoveDown() {
	if l.Cursor < len(l.Rows)-1 {
		l.Cursor++
	}
}

// Selected returns the row under the cursor.
func (l *TaskList) Selected() (TaskRow, bool) {
	if len(l.Rows) == 0 {
		return TaskRow{}, false
	}
	return l.Rows[l.Cursor], true
}

func (l *TaskList) clampCursor() {
	if l.Cursor >= len(l.Rows) {
		l.Cursor = len(l.Rows) - 1
	}
	if l.Cursor < 0 {
		l.Cursor = 0
	}
}

func (l *TaskList) View() string {
	var content string
	if len(l.Rows) == 0 {
		content = placeholderStyle.Render("No tasks tracked yet")
	} else {
		boxes := make([]string, 0, len(l.Rows))
		for i, row := range l.Rows {
			boxes = append(boxes, l.renderRow(row, i == l.Cursor))
		}
		content = strings.Join(boxes, "\n")
	}

	if l.Title != "" {
		return listHeaderStyle.Render(l.Title) + "\n" + content
	}
	return content
}

func (l *TaskList) renderRow(row TaskRow, selected bool) string {
	style := pausedTaskStyle
	icon := pausedIcon
	switch {
	case row.Running:
		style = runningTaskStyle
		icon = runningIcon
	case selected:
		style = selectedTaskStyle
	}

	// One column for the cursor, two for the border.
	boxWidth := l.Width - 3
	if boxWidth < 0 {
		boxWidth = 0
	}

	innerWidth := boxWidth - 2
	if innerWidth < 0 {
		innerWidth = 0
	}

	times := timeStyle.Render(fmt.Sprintf("%s  %sh", row.Clock, row.Hours))

	nameWidth := innerWidth - 2
	if nameWidth < 0 {
		nameWidth = 0
	}

	var lines []string
	wrappedName := lipgloss.NewStyle().Width(nameWidth).Render(row.Title)
	for i, line := range strings.Split(wrappedName, "\n") {
		if i == 0 {
			lines = append(lines, fmt.Sprintf("%s %s", icon, line))
		} else {
			lines = append(lines, fmt.Sprintf("  %s", line))
		}
	}
	lines = append(lines, "  "+times)

	cursor := " "
	if selected {
		cursor = ">"
	}

	return lipgloss.JoinHorizontal(lipgloss.Center, cursor, style.Width(boxWidth).Render(strings.Join(lines, "\n")))
}
