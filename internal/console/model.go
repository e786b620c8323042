// Package console is a terminal front end over an in-process dashboard.
package console

import (
	"errors"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"StockLens/internal/domain/models"
)

// Dashboard is the selection state the console drives.
type Dashboard interface {
	Snapshot() models.DashboardState
	Subscribe() (<-chan models.DashboardState, func())
	SetInstrument(opt models.InstrumentOption) error
	ClearInstrument() error
	SetHorizon(h models.Horizon) error
	Reload() error
}

type stateMsg models.DashboardState

type closedMsg struct{}

func waitForState(ch <-chan models.DashboardState) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return closedMsg{}
		}
		return stateMsg(s)
	}
}

type Model struct {
	dash   Dashboard
	states <-chan models.DashboardState
	cancel func()

	state   models.DashboardState
	cursor  int
	lastErr error

	viewport viewport.Model
	ready    bool
	width    int
	height   int
}

func New(dash Dashboard) Model {
	states, cancel := dash.Subscribe()
	return Model{
		dash:   dash,
		states: states,
		cancel: cancel,
		state:  dash.Snapshot(),
	}
}

func (m Model) Init() tea.Cmd {
	return waitForState(m.states)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.cancel()
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
			m.refresh()
			return m, nil
		case "down", "j":
			if m.cursor < len(m.state.Catalog)-1 {
				m.cursor++
			}
			m.refresh()
			return m, nil
		case "enter":
			if m.cursor < len(m.state.Catalog) {
				m.lastErr = m.dash.SetInstrument(m.state.Catalog[m.cursor])
			}
			m.refresh()
			return m, nil
		case "x":
			m.lastErr = m.dash.ClearInstrument()
			m.refresh()
			return m, nil
		case "w":
			return m.setHorizon(models.HorizonWeek), nil
		case "m":
			return m.setHorizon(models.HorizonMonth), nil
		case "y":
			return m.setHorizon(models.HorizonYear), nil
		case "tab":
			return m.setHorizon(m.state.Selection.Horizon.Next()), nil
		case "r":
			m.lastErr = m.dash.Reload()
			m.refresh()
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		vpHeight := m.height - 2
		if vpHeight < 1 {
			vpHeight = 1
		}
		if !m.ready {
			m.viewport = viewport.New(m.width, vpHeight)
			m.viewport.MouseWheelEnabled = true
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = vpHeight
		}
		m.refresh()
		return m, nil

	case stateMsg:
		m.state = models.DashboardState(msg)
		if m.cursor >= len(m.state.Catalog) {
			m.cursor = max(len(m.state.Catalog)-1, 0)
		}
		m.refresh()
		return m, waitForState(m.states)

	case closedMsg:
		return m, tea.Quit
	}

	if m.ready {
		m.viewport, cmd = m.viewport.Update(msg)
	}
	return m, cmd
}

func (m Model) setHorizon(h models.Horizon) Model {
	m.lastErr = m.dash.SetHorizon(h)
	m.refresh()
	return m
}

func (m *Model) refresh() {
	if errors.Is(m.lastErr, models.ErrNoInstrument) {
		m.lastErr = errors.New("select an instrument first")
	}
	if m.ready {
		m.viewport.SetContent(m.renderContent())
	}
}
