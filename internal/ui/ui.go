package ui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/devonwallerson/amlibrary-plays/internal/formatter"
	"github.com/devonwallerson/amlibrary-plays/internal/models"
	"github.com/devonwallerson/amlibrary-plays/internal/search"
	"github.com/devonwallerson/amlibrary-plays/internal/session"
	"github.com/devonwallerson/amlibrary-plays/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	SignInView ViewState = iota
	LoadingView
	SearchView
	StatsView
)

const defaultBarWidth = 40

// Sessions is the part of [session.Provider] the TUI needs.
type Sessions interface {
	Current() (*session.Session, error)
	Wait(ctx context.Context) (*session.Session, error)
}

// Loader loads a library snapshot. Implemented by [tasks.LibraryEngine].
type Loader interface {
	Load(ctx context.Context, progress chan<- tasks.ProgressUpdate, force bool) (*models.Snapshot, error)
}

// Options configures a [Model].
type Options struct {
	Sessions    Sessions
	Loader      Loader
	Selector    *tasks.Selector
	Logger      *log.Logger
	SearchLimit int
}

// Model represents the TUI application state.
type Model struct {
	ctx         context.Context
	view        ViewState
	sessions    Sessions
	loader      Loader
	selector    *tasks.Selector
	logger      *log.Logger
	searchLimit int
	width       int
	height      int
	signingIn   bool
	spinner     spinner.Model
	input       textinput.Model
	results     list.Model
	query       string
	snapshot    *models.Snapshot
	progressCh  chan tasks.ProgressUpdate
	loadDone    chan Msg
	progress    tasks.ProgressUpdate
	loadErr     error
	err         error
	help        help.Model
	keys        keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, opts Options) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.title.UnsetMarginBottom()

	input := textinput.New()
	input.Placeholder = "Search songs or artists"
	input.CharLimit = 100
	input.Focus()

	results := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	results.SetShowTitle(false)
	results.SetShowStatusBar(false)
	results.SetShowHelp(false)
	results.SetFilteringEnabled(false)

	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	return &Model{
		ctx:         ctx,
		view:        SignInView,
		sessions:    opts.Sessions,
		loader:      opts.Loader,
		selector:    opts.Selector,
		logger:      logger,
		searchLimit: opts.SearchLimit,
		spinner:     s,
		input:       input,
		results:     results,
		help:        help.New(),
		keys:        newKeyMap(),
	}
}

// Init starts the spinner and skips sign-in when a session is already available.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.checkSession())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.results.SetSize(max(msg.Width-4, 0), max(msg.Height-10, 0))
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch m.view {
		case SignInView:
			return m.handleSignInKeys(msg)
		case LoadingView:
			if key.Matches(msg, m.keys.quit) {
				return m, tea.Quit
			}
			return m, nil
		case SearchView:
			return m.handleSearchKeys(msg)
		case StatsView:
			return m.handleStatsKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	if m.view == SearchView {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgSessionReady:
		res := msg.data.(sessionResult)
		m.signingIn = false
		if res.err != nil {
			m.err = res.err
			return m, nil
		}
		m.err = nil
		m.logger.Info("session ready", "app", res.session.App.Name)
		return m, m.startLoad(false)

	case MsgProgressUpdate:
		m.progress = msg.data.(tasks.ProgressUpdate)
		return m, m.waitForProgress()

	case MsgLibraryLoaded:
		res := msg.data.(loadResult)
		m.progressCh = nil
		m.loadDone = nil
		m.loadErr = res.err
		if res.err != nil {
			m.logger.Warn("library load finished with errors", "error", res.err)
		}
		if res.snapshot != nil {
			m.snapshot = res.snapshot
			m.selector.SetLibrary(res.snapshot.Playlists, res.snapshot.RecentlyPlayed)
			m.setResults(m.query)
		}
		m.view = SearchView
		return m, nil

	case MsgSelectionDone:
		out := msg.data.(tasks.Outcome)
		if !m.selector.Finish(out) {
			return m, nil
		}
		if out.StatsErr != nil {
			m.logger.Error("failed to compute stats", "track", out.Track.Name, "error", out.StatsErr)
		}
		return m, nil
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case SignInView:
		return m.renderSignIn()
	case LoadingView:
		return m.renderLoading()
	case SearchView:
		return m.renderSearch()
	case StatsView:
		return m.renderStats()
	default:
		return ""
	}
}

func (m *Model) handleSignInKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.enter):
		if m.signingIn || m.err != nil {
			return m, nil
		}
		m.signingIn = true
		return m, m.waitSession()
	}
	return m, nil
}

func (m *Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.exit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		if m.input.Value() == "" {
			return m, tea.Quit
		}
		m.input.Reset()
		m.setResults("")
		return m, nil
	case key.Matches(msg, m.keys.refresh):
		return m, m.startLoad(true)
	case key.Matches(msg, m.keys.up):
		m.results.CursorUp()
		return m, nil
	case key.Matches(msg, m.keys.down):
		m.results.CursorDown()
		return m, nil
	case key.Matches(msg, m.keys.enter):
		item, ok := m.results.SelectedItem().(trackItem)
		if !ok {
			return m, nil
		}
		return m, m.selectTrack(item.track)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() != m.query {
		m.setResults(m.input.Value())
	}
	return m, cmd
}

func (m *Model) handleStatsKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = SearchView
		return m, nil
	}
	return m, nil
}

func (m *Model) setResults(query string) {
	m.query = query
	var library []models.Track
	if m.snapshot != nil {
		library = m.snapshot.Library
	}
	m.results.SetItems(trackItems(search.Top(library, query, m.searchLimit)))
	m.results.Select(0)
}

// selectTrack switches to the stats view and starts a selection job unless the track is already selected.
func (m *Model) selectTrack(track models.Track) tea.Cmd {
	m.view = StatsView
	job := m.selector.Begin(track)
	if job == nil {
		return nil
	}
	m.logger.Debug("selected track", "track", track.Name, "token", job.Token)

	return func() tea.Msg {
		return selectionDoneMsg(job.Run(m.ctx))
	}
}

func (m *Model) checkSession() tea.Cmd {
	return func() tea.Msg {
		if m.sessions == nil {
			return nil
		}
		s, err := m.sessions.Current()
		if err != nil {
			return nil
		}
		return sessionReadyMsg(s, nil)
	}
}

func (m *Model) waitSession() tea.Cmd {
	return func() tea.Msg {
		s, err := m.sessions.Wait(m.ctx)
		return sessionReadyMsg(s, err)
	}
}

func (m *Model) startLoad(force bool) tea.Cmd {
	if m.progressCh != nil {
		return nil
	}

	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan Msg, 1)
	m.progressCh = progress
	m.loadDone = done
	m.progress = tasks.ProgressUpdate{Message: "Loading library..."}
	m.view = LoadingView

	go func() {
		snap, err := m.loader.Load(m.ctx, progress, force)
		done <- libraryLoadedMsg(snap, err)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	progress, done := m.progressCh, m.loadDone
	return func() tea.Msg {
		select {
		case update := <-progress:
			return progressUpdateMsg(update)
		case msg := <-done:
			return msg
		}
	}
}

func (m *Model) renderSignIn() string {
	title := styles.title.Render("libplays")

	var status string
	switch {
	case m.err != nil:
		status = styles.err.Render(fmt.Sprintf("Sign in failed: %v", m.err))
		return fmt.Sprintf("%s\n%s\n\n%s", title, status, m.help.ShortHelpView([]key.Binding{m.keys.quit}))
	case m.signingIn:
		status = fmt.Sprintf("%s Waiting for Apple Music authorization in your browser...", m.spinner.View())
	default:
		status = "Sign in with Apple Music to see your library stats."
	}

	signIn := key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "sign in"))
	return fmt.Sprintf("%s\n%s\n\n%s", title, status, m.help.ShortHelpView([]key.Binding{signIn, m.keys.quit}))
}

func (m *Model) renderLoading() string {
	title := styles.title.Render("Loading Library")

	var phase string
	switch m.progress.Phase {
	case tasks.CacheLoad:
		phase = "Reading cache..."
	case tasks.FetchLibrary:
		phase = "Fetching songs..."
	case tasks.FetchPlaylists, tasks.FetchPlaylistTracks:
		phase = "Fetching playlists..."
	case tasks.FetchRecent:
		phase = "Fetching recently played..."
	case tasks.CacheWrite:
		phase = "Saving..."
	default:
		phase = "Processing..."
	}

	return fmt.Sprintf("%s\n%s %s\n%s", title, m.spinner.View(), phase, m.progress.Message)
}

func (m *Model) renderSearch() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Search Your Library"))
	b.WriteString("\n")

	if m.loadErr != nil {
		if m.snapshot == nil {
			b.WriteString(styles.err.Render(fmt.Sprintf("Failed to load library: %v", m.loadErr)))
		} else {
			b.WriteString(styles.warn.Render(fmt.Sprintf("Some data could not be loaded: %v", m.loadErr)))
		}
		b.WriteString("\n\n")
	}

	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	switch {
	case strings.TrimSpace(m.query) == "":
		count := 0
		if m.snapshot != nil {
			count = len(m.snapshot.Library)
		}
		b.WriteString(styles.help.Render(fmt.Sprintf("%d songs in your library", count)))
	case len(m.results.Items()) == 0:
		b.WriteString(styles.help.Render("No matches"))
	default:
		b.WriteString(m.results.View())
	}

	helpKeys := []key.Binding{m.keys.up, m.keys.down, m.keys.enter, m.keys.refresh, m.keys.exit}
	return fmt.Sprintf("%s\n\n%s", b.String(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderStats() string {
	sel := m.selector.Current()
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.back, m.keys.quit})

	if sel.Track == nil {
		return fmt.Sprintf("%s\n\n%s", styles.help.Render("No song selected"), helpView)
	}

	title := styles.title.Render(sel.Track.Name)
	width := defaultBarWidth
	if m.width > 4 {
		width = m.width - 4
	}
	bar := gradientBar(sel.Gradient, width)

	var body string
	switch {
	case sel.State == tasks.Loading:
		body = fmt.Sprintf("%s Loading stats...", m.spinner.View())
	case sel.Err != nil:
		body = styles.err.Render(fmt.Sprintf("Failed to load stats: %v", sel.Err))
	case sel.Stats != nil:
		body = string(formatter.StatsToText(sel.Stats, sel.Gradient))
		if sel.Stats.RecentlyPlayed {
			body += styles.ok.Render("✓ In your recently played") + "\n"
		}
	}

	return fmt.Sprintf("%s\n%s\n%s\n%s\n%s", title, bar, body, bar, helpView)
}
