package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	logTimeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	logEntryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	logErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	scrollbarTrackStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("236"))

	scrollbarHandleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("241"))
)

// ActivityLog renders timestamped timer events in a viewport.
type ActivityLog struct {
	viewport viewport.Model
	entries  []string
	limit    int
	ready    bool
	width    int
	height   int
}

// NewActivityLog creates an ActivityLog keeping at most limit entries.
func NewActivityLog(width, height, limit int) *ActivityLog {
	return &ActivityLog{
		viewport: viewport.New(width, height),
		limit:    limit,
		width:    width,
		height:   height,
	}
}

func (o *ActivityLog) SetSize(width, height int) {
	o.width = width
	o.height = height
	vpWidth := width
	if width > 0 {
		vpWidth = width - 1
	}
	if !o.ready {
		o.viewport = viewport.New(vpWidth, height)
		o.ready = true
	} else {
		o.viewport.Width = vpWidth
		o.viewport.Height = height
	}
	o.updateContent()
}

func (o *ActivityLog) Append(at time.Time, message string) {
	o.add(at, logEntryStyle.Render(message))
}

func (o *ActivityLog) AppendError(at time.Time, err error) {
	o.add(at, logErrorStyle.Render(err.Error()))
}

func (o *ActivityLog) add(at time.Time, rendered string) {
	o.entries = append(o.entries, fmt.Sprintf("%s %s", logTimeStyle.Render(at.Format("15:04:05")), rendered))
	if o.limit > 0 && len(o.entries) > o.limit {
		o.entries = o.entries[len(o.entries)-o.limit:]
	}
	o.updateContent()
}

func (o *ActivityLog) Len() int {
	return len(o.entries)
}

func (o *ActivityLog) Reset() {
	o.entries = nil
	o.updateContent()
}

func (o *ActivityLog) updateContent() {
	width := o.viewport.Width
	content := strings.Join(o.entries, "\n")
	if width > 0 {
		content = lipgloss.NewStyle().Width(width).Render(content)
	}
	o.viewport.SetContent(content)
	o.viewport.GotoBottom()
}

func (o *ActivityLog) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	o.viewport, cmd = o.viewport.Update(msg)
	return cmd
}

func (o *ActivityLog) View() string {
	if !o.ready {
		return ""
	}

	if o.viewport.TotalLineCount() <= o.viewport.Height {
		return o.viewport.View()
	}

	h := o.viewport.Height
	percent := o.viewport.ScrollPercent()

	handlePos := int(float64(h-1) * percent)

	var sb strings.Builder
	for i := 0; i < h; i++ {
		if i == handlePos {
			sb.WriteString(scrollbarHandleStyle.Render("┃"))
		} else {
			sb.WriteString(scrollbarTrackStyle.Render("│"))
		}
		if i < h-1 {
			sb.WriteString("\n")
		}
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, o.viewport.View(), sb.String())
}
