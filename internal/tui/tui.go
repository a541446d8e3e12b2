// Package tui is the single-screen interactive list: a search bar on top, the
// tasks newest first, and an add bar at the bottom.
//
// Reads and writes go through a tasks.Store. Persistence runs inside Bubble
// Tea commands and the result comes back as a message, so the event loop never
// blocks on storage. Failures are only logged by the store; the screen simply
// keeps showing the last persisted state.
package tui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/idilsaglam/tada/internal/model"
	"github.com/idilsaglam/tada/internal/tasks"
)

// taskItem adapts model.Task to bubbles/list.Item
type taskItem struct {
	model.Task
}

func (i taskItem) TitleText() string {
	box := boxUnchecked
	if i.IsDone {
		box = boxChecked
	}
	return fmt.Sprintf("%s %s", box, i.Task.Title)
}

// Implement list.Item interface
func (i taskItem) Title() string       { return i.TitleText() }
func (i taskItem) Description() string { return "" }
func (i taskItem) FilterValue() string { return i.Task.Title }

// Custom delegate to control how items render (single line)
type itemDelegate struct{}

func (d itemDelegate) Height() int                               { return 1 }
func (d itemDelegate) Spacing() int                              { return 0 }
func (d itemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(taskItem)
	if !ok {
		return
	}
	box, text := mutedStyle.Render(boxUnchecked), it.Task.Title
	if it.IsDone {
		box, text = successStyle.Render(boxChecked), doneStyle.Render(text)
	}
	prefix := "  "
	if index == m.Index() {
		prefix = selectedStyle.Render("> ")
	}
	fmt.Fprint(w, prefix+box+" "+text)
}

type focus int

const (
	focusList focus = iota
	focusSearch
	focusAdd
)

type keyMap struct {
	Search key.Binding
	Add    key.Binding
	Toggle key.Binding
	Delete key.Binding
	Quit   key.Binding
	Submit key.Binding
	Leave  key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Search: key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		Add:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		Toggle: key.NewBinding(key.WithKeys(" ", "x"), key.WithHelp("space", "done")),
		Delete: key.NewBinding(key.WithKeys("d", "delete"), key.WithHelp("d", "delete")),
		Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Submit: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "confirm")),
		Leave:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	}
}

// loadedMsg reports the startup load.
type loadedMsg struct{ err error }

// changedMsg reports that the stored list was rewritten elsewhere.
type changedMsg struct{}

// savedMsg reports a finished mutation.
type savedMsg struct {
	op  string
	err error
}

type modelTUI struct {
	ctx     context.Context
	store   *tasks.Store
	keys    keyMap
	changes <-chan struct{}

	list   list.Model
	search textinput.Model
	input  textinput.Model
	focus  focus

	width, height int
}

type Option func(*modelTUI)

// WithChanges reloads the list whenever changes fires.
func WithChanges(changes <-chan struct{}) Option {
	return func(m *modelTUI) { m.changes = changes }
}

// Run starts the program and blocks until the user quits.
func Run(ctx context.Context, store *tasks.Store, opts ...Option) error {
	p := tea.NewProgram(newModel(ctx, store, opts...), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

func newModel(ctx context.Context, store *tasks.Store, opts ...Option) modelTUI {
	keys := defaultKeys()

	l := list.New(nil, itemDelegate{}, 0, 0)
	l.SetShowHelp(true)
	l.SetShowPagination(true)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()
	l.Styles.Title = titleStyle
	l.Styles.HelpStyle = helpStyle
	l.Styles.PaginationStyle = helpStyle
	extra := func() []key.Binding { return []key.Binding{keys.Search, keys.Add, keys.Toggle, keys.Delete, keys.Quit} }
	l.AdditionalShortHelpKeys = extra
	l.AdditionalFullHelpKeys = extra

	search := textinput.New()
	search.Prompt = "🔍 "
	search.Placeholder = "Search"

	input := textinput.New()
	input.Prompt = "+ "
	input.Placeholder = "Add New ToDo"
	input.CharLimit = 200

	m := modelTUI{
		ctx:    ctx,
		store:  store,
		keys:   keys,
		list:   l,
		search: search,
		input:  input,
		width:  80,
		height: 24,
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.search.SetValue(store.Query())
	m.refresh()
	m.resize()
	return m
}

func (m modelTUI) Init() tea.Cmd {
	if m.store.Loaded() {
		return m.waitForChange()
	}
	return tea.Batch(m.load(), m.waitForChange())
}

func (m modelTUI) load() tea.Cmd {
	store, ctx := m.store, m.ctx
	return func() tea.Msg {
		return loadedMsg{err: store.Load(ctx)}
	}
}

// waitForChange blocks on the change feed; nil when there is none.
func (m modelTUI) waitForChange() tea.Cmd {
	if m.changes == nil {
		return nil
	}
	changes, done := m.changes, m.ctx.Done()
	return func() tea.Msg {
		select {
		case <-changes:
			return changedMsg{}
		case <-done:
			return nil
		}
	}
}

func (m modelTUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case loadedMsg:
		m.refresh()
		return m, nil

	case changedMsg:
		return m, tea.Batch(m.load(), m.waitForChange())

	case savedMsg:
		if msg.op == "add" && msg.err == nil {
			m.input.SetValue("")
			m.input.Blur()
			m.focus = focusList
			m.list.Select(0)
		}
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.focus {
		case focusSearch:
			return m.updateSearch(msg)
		case focusAdd:
			return m.updateAdd(msg)
		}
		return m.updateList(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m modelTUI) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Search):
		m.focus = focusSearch
		return m, m.search.Focus()
	case key.Matches(msg, m.keys.Add):
		m.focus = focusAdd
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.Toggle):
		if t, ok := m.selected(); ok {
			return m, m.mutate("toggle", func() error { return m.store.ToggleDone(m.ctx, t.ID) })
		}
		return m, nil
	case key.Matches(msg, m.keys.Delete):
		if t, ok := m.selected(); ok {
			return m, m.mutate("delete", func() error { return m.store.Delete(m.ctx, t.ID) })
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m modelTUI) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Leave) || key.Matches(msg, m.keys.Submit) {
		m.search.Blur()
		m.focus = focusList
		return m, nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if m.search.Value() != m.store.Query() {
		m.store.Search(m.search.Value())
		m.refresh()
		m.list.Select(0)
	}
	return m, cmd
}

func (m modelTUI) updateAdd(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Leave):
		m.input.Blur()
		m.focus = focusList
		return m, nil
	case key.Matches(msg, m.keys.Submit):
		title := m.input.Value()
		if strings.TrimSpace(title) == "" {
			return m, nil
		}
		return m, m.mutate("add", func() error {
			_, err := m.store.Add(m.ctx, title)
			return err
		})
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// mutate runs fn off the event loop and reports back with a savedMsg.
func (m modelTUI) mutate(op string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		return savedMsg{op: op, err: fn()}
	}
}

func (m modelTUI) selected() (model.Task, bool) {
	it, ok := m.list.SelectedItem().(taskItem)
	if !ok {
		return model.Task{}, false
	}
	return it.Task, true
}

// refresh rebuilds the list from the store's display order.
func (m *modelTUI) refresh() {
	display := m.store.Display()
	items := make([]list.Item, 0, len(display))
	for _, t := range display {
		items = append(items, taskItem{Task: t})
	}
	m.list.SetItems(items)

	done, pending := m.store.Stats()
	m.list.Title = fmt.Sprintf("%s   %s %d  %s %d  %s %d",
		titleStyle.Render("Todos"),
		successStyle.Render("✔"), done,
		pendingStyle.Render("•"), pending,
		accentStyle.Render("Total"), done+pending,
	)
}

func (m *modelTUI) resize() {
	// search bar and add bar take three rows each, the outer border two.
	h := m.height - 8
	if h < 3 {
		h = 3
	}
	w := m.width - 4
	if w < 20 {
		w = 20
	}
	m.list.SetSize(w, h)
	m.search.Width = w - 6
	m.input.Width = w - 6
}

func (m modelTUI) View() string {
	searchBar, addBar := barStyle, barStyle
	switch m.focus {
	case focusSearch:
		searchBar = activeBarStyle
	case focusAdd:
		addBar = activeBarStyle
	}
	w := m.width - 4
	if w < 20 {
		w = 20
	}

	body := m.list.View()
	if len(m.list.Items()) == 0 {
		body = emptyStyle.Width(w).Render("\nNo ToDos Found 😢\n")
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		searchBar.Width(w-2).Render(m.search.View()),
		body,
		addBar.Width(w-2).Render(m.input.View()),
	)
	return panelString(content)
}

// helpers for View
func panelString(inner string) string {
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("8")).
		Padding(0, 1)
	return border.Render(inner)
}
