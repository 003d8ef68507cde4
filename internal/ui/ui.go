package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/spotx/internal/formatter"
	"github.com/desertthunder/spotx/internal/services"
	"github.com/desertthunder/spotx/internal/shared"
	"github.com/desertthunder/spotx/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	InputView ViewState = iota
	LoadingView
	ResultView
)

// Model represents the TUI application state.
type Model struct {
	ctx     context.Context
	view    ViewState
	client  services.Lookuper
	history tasks.HistoryRecorder
	open    func(url string) error
	width   int
	height  int
	input   textinput.Model
	results list.Model
	query   string
	listing *formatter.Listing
	status  string
	err     error
	help    help.Model
	keys    keyMap
}

// NewModel creates a new TUI model with the provided dependencies. history may be nil.
func NewModel(ctx context.Context, client services.Lookuper, history tasks.HistoryRecorder) *Model {
	input := textinput.New()
	input.Placeholder = "spotify:track:… / https://open.spotify.com/… / words"
	input.Prompt = "› "
	input.CharLimit = 512
	input.Focus()

	return &Model{
		ctx:     ctx,
		view:    InputView,
		client:  client,
		history: history,
		open:    shared.OpenBrowser,
		input:   input,
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Run starts the TUI on the alternate screen and blocks until it exits.
func Run(ctx context.Context, client services.Lookuper, history tasks.HistoryRecorder) error {
	p := tea.NewProgram(NewModel(ctx, client, history), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI failed: %w", err)
	}
	return nil
}

// Init starts the cursor blinking in the query input.
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = max(msg.Width-8, 20)
		if m.listing != nil {
			m.results.SetSize(msg.Width-4, msg.Height-6)
		}
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.force) {
			return m, tea.Quit
		}
		switch m.view {
		case InputView:
			return m.handleInputKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}
		return m, nil

	case Msg:
		switch msg.kind {
		case MsgLookupComplete:
			return m.handleLookup(msg.data.(lookupComplete))
		case MsgBrowserOpened:
			opened := msg.data.(browserOpened)
			if opened.err != nil {
				m.status = styles.err.Render(opened.err.Error())
			} else {
				m.status = styles.ok.Render("Opened " + opened.url)
			}
			return m, nil
		}
	}

	return m.updateComponents(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case InputView:
		return m.renderInput()
	case LoadingView:
		return m.renderLoading()
	case ResultView:
		return m.renderResults()
	default:
		return ""
	}
}

func (m *Model) handleInputKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.search) {
		q := strings.TrimSpace(m.input.Value())
		if q == "" {
			return m, nil
		}
		m.query = q
		m.err = nil
		m.view = LoadingView
		return m, m.lookup(q)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.results.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.results, cmd = m.results.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = InputView
		m.status = ""
		m.input.SetValue("")
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.open):
		return m, m.openSelected()
	}

	var cmd tea.Cmd
	m.results, cmd = m.results.Update(msg)
	return m, cmd
}

func (m *Model) handleLookup(done lookupComplete) (tea.Model, tea.Cmd) {
	m.view = InputView
	if done.err != nil {
		m.err = done.err
		return m, nil
	}

	listing, err := formatter.FromResult(done.result)
	if err != nil {
		m.err = err
		return m, nil
	}
	if listing.Kind == "error" {
		m.err = fmt.Errorf("%w: %s", shared.ErrAPIRequest, listing.Subtitle)
		return m, nil
	}

	m.listing = listing
	m.results = list.New(listItems(listing), list.NewDefaultDelegate(), 0, 0)
	m.results.Title = fmt.Sprintf("%s: %s", listing.Kind, listing.Title)
	m.results.SetShowHelp(false)
	m.results.SetSize(max(m.width-4, 20), max(m.height-6, 10))
	m.status = ""
	m.view = ResultView
	m.input.Blur()
	return m, nil
}

func (m *Model) updateComponents(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case InputView:
		m.input, cmd = m.input.Update(msg)
	case ResultView:
		m.results, cmd = m.results.Update(msg)
	}
	return m, cmd
}

// lookup runs the search off the UI loop and records it in history on success.
func (m *Model) lookup(q string) tea.Cmd {
	client, history, ctx := m.client, m.history, m.ctx
	return func() tea.Msg {
		result, err := client.Search(ctx, q)
		if err == nil && result.APIError() == "" {
			// history is best effort in the TUI
			_ = tasks.Record(history, q, result)
		}
		return lookupCompleteMsg(q, result, err)
	}
}

// openSelected opens the highlighted row, falling back to the result itself.
func (m *Model) openSelected() tea.Cmd {
	target := m.listing.URL
	if item, ok := m.results.SelectedItem().(rowItem); ok && item.row.URL != "" {
		target = item.row.URL
	}
	if target == "" {
		return nil
	}

	open := m.open
	return func() tea.Msg {
		return browserOpenedMsg(target, open(target))
	}
}

func (m *Model) renderInput() string {
	title := styles.title.Render("spotx")

	var errView string
	if m.err != nil {
		errView = "\n\n" + styles.err.Render(fmt.Sprintf("Error: %v", m.err))
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.search, m.keys.force})
	return fmt.Sprintf("%s\n%s%s\n\n%s", title, m.input.View(), errView, helpView)
}

func (m *Model) renderLoading() string {
	title := styles.title.Render("spotx")
	ref := services.Classify(m.query)

	what := fmt.Sprintf("Searching for %q...", m.query)
	if !ref.IsQuery() {
		what = fmt.Sprintf("Fetching %s %s...", ref.Kind, ref.ID)
	}
	return fmt.Sprintf("%s\n%s", title, styles.warn.Render(what))
}

func (m *Model) renderResults() string {
	var header string
	if m.listing.Subtitle != "" {
		header = styles.help.Render(m.listing.Subtitle) + "\n"
	}

	status := m.status
	if status == "" {
		status = styles.help.Render(fmt.Sprintf("%d rows", m.listing.Count()))
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.up, m.keys.down, m.keys.open, m.keys.back, m.keys.quit})
	return fmt.Sprintf("%s%s\n%s\n\n%s", header, m.results.View(), status, helpView)
}
