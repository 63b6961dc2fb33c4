package views

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"hexmap/internal/adapters/tui/styles"
	"hexmap/internal/cache"
	"hexmap/internal/domain"
	"hexmap/internal/engine"
	"hexmap/internal/navigation"
)

// BrowserKeyMap defines key bindings for the browser view
type BrowserKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Left   key.Binding
	Right  key.Binding
	Enter  key.Binding
	Back   key.Binding
	Sync   key.Binding
	Yank   key.Binding
	Reload key.Binding
	Help   key.Binding
	Quit   key.Binding
}

var BrowserKeys = BrowserKeyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "down"),
	),
	Left: key.NewBinding(
		key.WithKeys("h", "left"),
		key.WithHelp("h/←", "collapse"),
	),
	Right: key.NewBinding(
		key.WithKeys("l", "right"),
		key.WithHelp("l/→", "expand"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "center on tile"),
	),
	Back: key.NewBinding(
		key.WithKeys("backspace", "u"),
		key.WithHelp("u", "center on parent"),
	),
	Sync: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "sync"),
	),
	Yank: key.NewBinding(
		key.WithKeys("y"),
		key.WithHelp("y", "copy coordinate"),
	),
	Reload: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "reload region"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// row is one rendered line of the region tree.
type row struct {
	item        domain.Item
	indent      int
	hasChildren bool
	expanded    bool
}

// BrowserModel is the model for the region browser view
type BrowserModel struct {
	eng        *engine.Engine
	rows       []row
	cursor     int
	width      int
	height     int
	message    string
	messageErr bool
}

// NewBrowserModel creates a new browser model
func NewBrowserModel(eng *engine.Engine) *BrowserModel {
	return &BrowserModel{eng: eng}
}

// Init initializes the browser
func (m *BrowserModel) Init() tea.Cmd {
	m.rebuildRows()
	return nil
}

type refreshMsg struct{}

type errMsg struct {
	err error
}

type statusMsg struct {
	message string
}

// Update handles messages for the browser
func (m *BrowserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case refreshMsg:
		m.rebuildRows()
		return m, nil

	case errMsg:
		m.message = msg.err.Error()
		m.messageErr = true
		m.rebuildRows()
		return m, nil

	case statusMsg:
		m.message = msg.message
		m.messageErr = false
		m.rebuildRows()
		return m, nil

	case tea.KeyMsg:
		m.message = "" // Clear message on key press

		switch {
		case key.Matches(msg, BrowserKeys.Quit):
			return m, tea.Quit

		case key.Matches(msg, BrowserKeys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil

		case key.Matches(msg, BrowserKeys.Down):
			if m.cursor < len(m.rows)-1 {
				m.cursor++
			}
			return m, nil

		case key.Matches(msg, BrowserKeys.Left):
			if r := m.selectedRow(); r != nil {
				if r.expanded {
					m.eng.Store.Dispatch(cache.ToggleItemExpansion{ID: r.item.Metadata.CoordID})
					m.rebuildRows()
				} else if parent, ok := r.item.Metadata.Coord.Parent(); ok {
					m.moveCursorTo(parent.ID())
				}
			}
			return m, nil

		case key.Matches(msg, BrowserKeys.Right):
			if r := m.selectedRow(); r != nil && !r.expanded {
				m.eng.Store.Dispatch(cache.ToggleItemExpansion{ID: r.item.Metadata.CoordID})
				m.rebuildRows()
				if !r.hasChildren {
					return m, m.loadChildren(r.item.Metadata.CoordID)
				}
			}
			return m, nil

		case key.Matches(msg, BrowserKeys.Enter):
			if r := m.selectedRow(); r != nil {
				return m, m.navigateTo(r.item.Metadata.CoordID)
			}
			return m, nil

		case key.Matches(msg, BrowserKeys.Back):
			center := m.centerCoord()
			if center == nil {
				return m, nil
			}
			if parent, ok := center.Parent(); ok {
				return m, m.navigateTo(parent.ID())
			}
			return m, nil

		case key.Matches(msg, BrowserKeys.Sync):
			return m, m.forceSync()

		case key.Matches(msg, BrowserKeys.Yank):
			if r := m.selectedRow(); r != nil {
				coordID := r.item.Metadata.CoordID
				if err := clipboard.WriteAll(coordID); err != nil {
					return m, func() tea.Msg { return errMsg{err} }
				}
				m.message = fmt.Sprintf("Copied %s", coordID)
			}
			return m, nil

		case key.Matches(msg, BrowserKeys.Reload):
			return m, m.reloadRegion()

		case key.Matches(msg, BrowserKeys.Help):
			return m, func() tea.Msg {
				return SwitchToHelpMsg{}
			}
		}
	}

	return m, nil
}

func (m *BrowserModel) navigateTo(target string) tea.Cmd {
	return func() tea.Msg {
		result := m.eng.Navigator.NavigateToItem(context.Background(), navigation.Request{Target: target})
		if result.Err != nil {
			return errMsg{result.Err}
		}
		return refreshMsg{}
	}
}

func (m *BrowserModel) loadChildren(coordID string) tea.Cmd {
	return func() tea.Msg {
		if err := m.eng.Loader.LoadItemChildren(context.Background(), coordID); err != nil {
			return errMsg{err}
		}
		return refreshMsg{}
	}
}

func (m *BrowserModel) reloadRegion() tea.Cmd {
	center := m.eng.Store.CurrentCenter()
	if center == "" {
		return nil
	}
	return func() tea.Msg {
		m.eng.Store.Dispatch(cache.InvalidateRegion{CenterCoordID: center})
		if err := m.eng.Loader.LoadRegion(context.Background(), center, m.eng.Store.Config().MaxDepth); err != nil {
			return errMsg{err}
		}
		return statusMsg{"Region reloaded"}
	}
}

func (m *BrowserModel) forceSync() tea.Cmd {
	return func() tea.Msg {
		result, err := m.eng.Syncer.ForceSync(context.Background())
		if err != nil {
			return errMsg{err}
		}
		return statusMsg{fmt.Sprintf("Synced %d regions (%d items)", result.RegionsReloaded, result.ItemsSynced)}
	}
}

func (m *BrowserModel) selectedRow() *row {
	if m.cursor >= 0 && m.cursor < len(m.rows) {
		return &m.rows[m.cursor]
	}
	return nil
}

func (m *BrowserModel) centerCoord() *domain.Coordinate {
	center := m.eng.Store.CurrentCenter()
	if center == "" {
		return nil
	}
	coord, err := domain.ParseID(center)
	if err != nil {
		return nil
	}
	return &coord
}

func (m *BrowserModel) moveCursorTo(coordID string) {
	for i, r := range m.rows {
		if r.item.Metadata.CoordID == coordID {
			m.cursor = i
			return
		}
	}
}

// rebuildRows flattens the cached tree below the current center. The center
// and its direct children are always visible; deeper generations only under
// expanded ancestors.
func (m *BrowserModel) rebuildRows() {
	m.rows = nil

	center := m.centerCoord()
	if center == nil {
		m.clampCursor()
		return
	}

	items := m.eng.Store.Items()
	children := make(map[string][]domain.Item)
	for _, item := range items {
		if parent, ok := item.Metadata.Coord.Parent(); ok {
			pid := parent.ID()
			children[pid] = append(children[pid], item)
		}
	}
	for pid := range children {
		sort.Slice(children[pid], func(i, j int) bool {
			return children[pid][i].Metadata.CoordID < children[pid][j].Metadata.CoordID
		})
	}

	expanded := make(map[string]bool)
	for _, id := range m.eng.Store.ExpandedItemIDs() {
		expanded[id] = true
	}

	var walk func(item domain.Item, indent int)
	walk = func(item domain.Item, indent int) {
		id := item.Metadata.CoordID
		kids := children[id]
		open := indent == 0 || expanded[id]
		m.rows = append(m.rows, row{
			item:        item,
			indent:      indent,
			hasChildren: len(kids) > 0,
			expanded:    open,
		})
		if !open {
			return
		}
		for _, kid := range kids {
			walk(kid, indent+1)
		}
	}

	if centerItem, ok := items[center.ID()]; ok {
		walk(centerItem, 0)
	}
	m.clampCursor()
}

func (m *BrowserModel) clampCursor() {
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// View renders the browser
func (m *BrowserModel) View() string {
	var b strings.Builder

	b.WriteString(styles.Title.Render("Hexmap"))
	b.WriteString("\n")

	if len(m.rows) == 0 {
		if m.eng.Store.IsLoading() {
			b.WriteString(styles.MutedText.Render("Loading..."))
		} else {
			b.WriteString(styles.MutedText.Render("No region loaded."))
		}
		b.WriteString("\n")
	}

	for i, r := range m.rows {
		b.WriteString(m.renderRow(r, i == m.cursor))
		b.WriteString("\n")
	}

	if m.message != "" {
		b.WriteString("\n")
		if m.messageErr {
			b.WriteString(styles.ErrorMsg.Render(m.message))
		} else {
			b.WriteString(styles.Success.Render(m.message))
		}
	}

	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())
	b.WriteString("\n")
	b.WriteString(m.renderHelpLine())

	return styles.App.Render(b.String())
}

func (m *BrowserModel) renderRow(r row, selected bool) string {
	indent := strings.Repeat("  ", r.indent)

	var prefix string
	switch {
	case !r.hasChildren:
		prefix = styles.TreeLeaf
	case r.expanded:
		prefix = styles.TreeExpanded
	default:
		prefix = styles.TreeCollapsed
	}

	title := r.item.Data.Title
	if title == "" {
		title = "(untitled)"
	}
	text := fmt.Sprintf("%s %s", r.item.Metadata.CoordID, title)

	var style lipgloss.Style
	switch {
	case r.item.State.Pending:
		style = styles.TilePending
	case r.indent == 0:
		style = styles.TileCenter.Foreground(styles.DepthColor(0))
	case len(r.item.Metadata.Coord.Path) > 0 && !r.item.Metadata.Coord.Path[len(r.item.Metadata.Coord.Path)-1].IsStructural():
		style = styles.TileComposed
	default:
		style = styles.Tile.Foreground(styles.DepthColor(r.indent))
	}

	styledText := style.Render(text)
	if selected {
		styledText = styles.TileSelected.Render(text)
	}

	return fmt.Sprintf("%s%s%s", indent, styles.TreeBranch.Render(prefix), styledText)
}

func (m *BrowserModel) renderStatusBar() string {
	status := m.eng.Syncer.Status()

	var parts []string
	parts = append(parts, fmt.Sprintf("tiles %d", m.eng.Store.ItemCount()))
	parts = append(parts, fmt.Sprintf("regions %d", len(m.eng.Store.Regions())))
	if status.IsSyncing {
		parts = append(parts, "syncing…")
	} else if !status.LastSyncAt.IsZero() {
		parts = append(parts, "synced "+status.LastSyncAt.Format("15:04:05"))
	}
	if status.ErrorCount > 0 {
		parts = append(parts, fmt.Sprintf("errors %d", status.ErrorCount))
	}

	return styles.StatusBar.Render(strings.Join(parts, "  "))
}

func (m *BrowserModel) renderHelpLine() string {
	keys := []struct {
		key  string
		desc string
	}{
		{"j/k", "navigate"},
		{"h/l", "collapse/expand"},
		{"enter", "center"},
		{"u", "parent"},
		{"s", "sync"},
		{"y", "copy"},
		{"?", "help"},
		{"q", "quit"},
	}

	var parts []string
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s %s",
			styles.HelpKey.Render(k.key),
			styles.HelpDesc.Render(k.desc),
		))
	}

	return strings.Join(parts, styles.HelpSeparator.String())
}

// SetSize updates the view dimensions
func (m *BrowserModel) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// Refresh rebuilds the rows from the cache.
func (m *BrowserModel) Refresh() {
	m.rebuildRows()
}

// Messages for view switching
type SwitchToHelpMsg struct{}

type SwitchToBrowserMsg struct{}
