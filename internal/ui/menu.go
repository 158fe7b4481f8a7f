package ui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/ldi/stint/internal/timer"
	"github.com/ldi/stint/pkg/models"
)

var (
	itemStyle         = lipgloss.NewStyle().PaddingLeft(2)
	selectedItemStyle = lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("12")).Bold(true)
	descriptionStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	clockStyle        = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
)

// MenuChoice is one entry of the launcher. Name is the command it runs.
type MenuChoice struct {
	Name        string
	Description string
}

// MenuModel is the launcher shown when stint runs without a command. Its
// header summarizes the timer as it was when the menu opened.
type MenuModel struct {
	active   *models.Task
	elapsed  time.Duration
	badge    string
	tracked  int
	choices  []MenuChoice
	cursor   int
	selected string
	quitting bool
}

func NewMenuModel(state *models.TimerState, now time.Time) MenuModel {
	if state == nil {
		state = models.NewTimerState()
	}

	m := MenuModel{
		badge:   timer.BadgeText(state),
		tracked: len(state.Tasks),
	}

	if active := state.Active(); active != nil {
		m.active = active
		m.elapsed = timer.Elapsed(active, now)
		m.choices = append(m.choices, MenuChoice{"pause", fmt.Sprintf("Pause %s", active.Title)})
	}

	m.choices = append(m.choices,
		MenuChoice{"watch", "Live dashboard with toggle, open and delete"},
		MenuChoice{"status", "Print tracked tasks and totals"},
		MenuChoice{"web", "Serve the HTTP API"},
		MenuChoice{"mcp", "Serve tools over stdio for assistants"},
		MenuChoice{"export", "Write a JSONL snapshot of the timer state"},
		MenuChoice{"init", "Create the database and import a snapshot"},
	)

	return m
}

func (m MenuModel) Init() tea.Cmd {
	return nil
}

func (m MenuModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "ctrl+c", "q", "esc":
		m.quitting = true
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < len(m.choices)-1 {
			m.cursor++
		}

	case "enter":
		m.selected = m.choices[m.cursor].Name
		return m, tea.Quit

	default:
		// Digits pick an entry directly.
		if n, err := strconv.Atoi(key.String()); err == nil && n >= 1 && n <= len(m.choices) {
			m.cursor = n - 1
			m.selected = m.choices[m.cursor].Name
			return m, tea.Quit
		}
	}

	return m, nil
}

func (m MenuModel) View() string {
	if m.quitting {
		return ""
	}

	var s strings.Builder

	s.WriteString(m.header())
	s.WriteString("\n\n")

	width := 0
	for _, c := range m.choices {
		width = max(width, len(c.Name))
	}

	for i, c := range m.choices {
		line := fmt.Sprintf("%d %-*s  ", i+1, width, c.Name)
		if m.cursor == i {
			s.WriteString(selectedItemStyle.Render("> " + line))
		} else {
			s.WriteString(itemStyle.Render("  " + line))
		}
		s.WriteString(descriptionStyle.Render(c.Description))
		s.WriteString("\n")
	}

	s.WriteString(helpStyle.Render("\n↑/↓ move • 1-9 pick • enter select • q quit"))
	s.WriteString("\n")

	return s.String()
}

func (m MenuModel) header() string {
	title := headerStyle.Render("stint")
	if m.badge != "" {
		title = lipgloss.JoinHorizontal(lipgloss.Center, title, badgeStyle.Render(m.badge))
	}

	var status string
	switch {
	case m.active != nil:
		status = fmt.Sprintf("%s %s", clockStyle.Render(FormatClock(m.elapsed)), m.active.Title)
	case m.tracked == 0:
		status = "No tasks tracked yet."
	default:
		status = "Nothing running."
	}

	tracked := fmt.Sprintf("%d tasks tracked", m.tracked)
	if m.tracked == 1 {
		tracked = "1 task tracked"
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		itemStyle.Render(status),
		itemStyle.Render(descriptionStyle.Render(tracked)),
	)
}

func (m MenuModel) Selected() string {
	return m.selected
}

// RunMenu shows the launcher and returns the chosen command name, or an
// empty string when the user quit.
func RunMenu(state *models.TimerState, now time.Time) (string, error) {
	p := tea.NewProgram(NewMenuModel(state, now))
	finalModel, err := p.Run()
	if err != nil {
		return "", err
	}
	return finalModel.(MenuModel).Selected(), nil
}
