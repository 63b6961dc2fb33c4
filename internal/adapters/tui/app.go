// Package tui is the terminal front end over the map engine.
package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"hexmap/internal/adapters/bus"
	"hexmap/internal/adapters/tui/views"
	"hexmap/internal/domain"
	"hexmap/internal/engine"
)

// ViewState represents the current view
type ViewState int

const (
	ViewBrowser ViewState = iota
	ViewHelp
)

// cacheEventMsg carries a bus event into the bubbletea loop.
type cacheEventMsg struct {
	event domain.Event
}

// App is the main TUI application model
type App struct {
	eng *engine.Engine

	state   ViewState
	browser *views.BrowserModel
	help    *views.HelpModel

	events chan domain.Event
	cancel func()

	width  int
	height int
}

// NewApp creates a new TUI application. It subscribes to the engine's bus so
// mutations from other surfaces show up without a manual reload.
func NewApp(eng *engine.Engine) *App {
	a := &App{
		eng:     eng,
		state:   ViewBrowser,
		browser: views.NewBrowserModel(eng),
		help:    views.NewHelpModel(),
		events:  make(chan domain.Event, 16),
	}
	a.cancel = bus.SubscribeIgnoring(eng.Bus, "tui", func(event domain.Event) {
		select {
		case a.events <- event:
		default:
		}
	})
	return a
}

// Init initializes the application
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.browser.Init(), a.waitForEvent())
}

func (a *App) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		return cacheEventMsg{event: <-a.events}
	}
}

// Update handles messages for the application
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.browser.SetSize(msg.Width, msg.Height)
		a.help.SetSize(msg.Width, msg.Height)
		return a, nil

	case cacheEventMsg:
		a.browser.Refresh()
		return a, a.waitForEvent()

	case views.SwitchToHelpMsg:
		a.state = ViewHelp
		return a, nil

	case views.SwitchToBrowserMsg:
		a.state = ViewBrowser
		a.browser.Refresh()
		return a, nil

	case tea.QuitMsg:
		a.cancel()
		return a, nil
	}

	// Delegate to current view
	var cmd tea.Cmd
	switch a.state {
	case ViewBrowser:
		_, cmd = a.browser.Update(msg)
	case ViewHelp:
		_, cmd = a.help.Update(msg)
	}

	return a, cmd
}

// View renders the current view
func (a *App) View() string {
	switch a.state {
	case ViewHelp:
		return a.help.View()
	default:
		return a.browser.View()
	}
}
