package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/ldi/stint/internal/router"
	"github.com/ldi/stint/internal/timer"
	"github.com/ldi/stint/internal/ui/components"
	"github.com/ldi/stint/pkg/models"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	badgeStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("42")).Padding(0, 1)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Padding(0, 1)
)

const (
	defaultWidth = 80
	logHeight    = 5
	logLimit     = 100
)

type tickMsg time.Time

type stateMsg struct {
	state *models.TimerState
	err   error
}

type actionMsg struct {
	message string
	err     error
}

// WatchModel shows the tracked tasks and re-polls the state on a fixed tick
// so the running task's time keeps advancing.
type WatchModel struct {
	router   *router.Router
	interval time.Duration

	state *models.TimerState
	now   time.Time

	list *components.TaskList
	log  *components.ActivityLog

	width    int
	height   int
	quitting bool
}

func NewWatchModel(r *router.Router, interval time.Duration) *WatchModel {
	log := components.NewActivityLog(defaultWidth, logHeight, logLimit)
	log.SetSize(defaultWidth, logHeight)

	return &WatchModel{
		router:   r,
		interval: interval,
		state:    models.NewTimerState(),
		now:      r.Now(),
		list:     components.NewTaskList(defaultWidth),
		log:      log,
		width:    defaultWidth,
	}
}

func (m *WatchModel) Init() tea.Cmd {
	return tea.Batch(m.fetch(), m.tick())
}

func (m *WatchModel) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *WatchModel) fetch() tea.Cmd {
	return func() tea.Msg {
		state, err := m.router.FetchState(context.Background())
		return stateMsg{state: state, err: err}
	}
}

func (m *WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.Width = msg.Width
		m.log.SetSize(msg.Width, logHeight)
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.fetch(), m.tick())

	case stateMsg:
		m.now = m.router.Now()
		if msg.err != nil {
			m.log.AppendError(m.now, msg.err)
			return m, nil
		}
		m.state = msg.state
		m.refreshRows()
		return m, nil

	case actionMsg:
		if msg.err != nil {
			m.log.AppendError(m.router.Now(), msg.err)
		} else if msg.message != "" {
			m.log.Append(m.router.Now(), msg.message)
		}
		return m, m.fetch()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m *WatchModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.quitting = true
		return m, tea.Quit

	case "up", "k":
		m.list.MoveUp()

	case "down", "j":
		m.list.MoveDown()

	case "enter", " ":
		if row, ok := m.list.Selected(); ok {
			return m, m.toggle(row.ID)
		}

	case "d":
		if row, ok := m.list.Selected(); ok {
			return m, m.delete(row.ID, row.Title)
		}

	case "o":
		if row, ok := m.list.Selected(); ok {
			return m, m.open(row.ID)
		}

	case "r":
		return m, m.fetch()
	}

	return m, nil
}

func (m *WatchModel) toggle(id string) tea.Cmd {
	return func() tea.Msg {
		task, err := m.router.Toggle(context.Background(), id)
		if err != nil {
			return actionMsg{err: err}
		}
		verb := "paused"
		if task.IsRunning() {
			verb = "started"
		}
		return actionMsg{message: fmt.Sprintf("%s %s", verb, task.Title)}
	}
}

func (m *WatchModel) delete(id, title string) tea.Cmd {
	return func() tea.Msg {
		if err := m.router.Delete(context.Background(), id); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{message: fmt.Sprintf("deleted %s", title)}
	}
}

func (m *WatchModel) open(id string) tea.Cmd {
	return func() tea.Msg {
		if err := m.router.OpenTask(context.Background(), id); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{message: fmt.Sprintf("opened task %s", id)}
	}
}

func (m *WatchModel) refreshRows() {
	tasks := m.state.Ordered()
	rows := make([]components.TaskRow, 0, len(tasks))
	for _, t := range tasks {
		elapsed := timer.Elapsed(t, m.now)
		rows = append(rows, components.TaskRow{
			ID:      t.ID,
			Title:   t.Title,
			Running: t.IsRunning(),
			Clock:   FormatClock(elapsed),
			Hours:   FormatDecimal(elapsed),
		})
	}
	m.list.SetRows(rows)
}

func (m *WatchModel) View() string {
	if m.quitting {
		return ""
	}

	var s strings.Builder

	header := headerStyle.Render("stint")
	if badge := timer.BadgeText(m.state); badge != "" {
		header = lipgloss.JoinHorizontal(lipgloss.Center, header, badgeStyle.Render(badge))
	}
	s.WriteString(header)
	s.WriteString("\n\n")

	s.WriteString(m.list.View())
	s.WriteString("\n\n")

	if m.log.Len() > 0 {
		s.WriteString(m.log.View())
		s.WriteString("\n")
	}

	s.WriteString(helpStyle.Render("j/k move • enter toggle • d delete • o open • r refresh • q quit"))
	s.WriteString("\n")

	return s.String()
}

func RunWatch(r *router.Router, interval time.Duration) error {
	m := NewWatchModel(r, interval)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
