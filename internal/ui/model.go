package ui

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/golang/glog"

	"github.com/sazonarte/frontdesk/internal/feature"
	"github.com/sazonarte/frontdesk/internal/prefs"
	"github.com/sazonarte/frontdesk/internal/query"
	"github.com/sazonarte/frontdesk/internal/session"
)

// View represents the active screen once signed in.
type View int

const (
	ViewTables View = iota
	ViewCategories
	ViewItems
)

var viewNames = [...]string{"tables", "categories", "items"}

func (v View) String() string {
	if v < 0 || int(v) >= len(viewNames) {
		return viewNames[0]
	}
	return viewNames[v]
}

func (v View) title() string {
	switch v {
	case ViewCategories:
		return "Categories"
	case ViewItems:
		return "Items"
	default:
		return "Tables"
	}
}

// parseView maps a stored view name back to a View, defaulting to tables.
func parseView(name string) View {
	for i, n := range viewNames {
		if n == name {
			return View(i)
		}
	}
	return ViewTables
}

type promptKind int

const (
	promptNone promptKind = iota
	promptNewTable
	promptSearch
)

const defaultNoticeTTL = 4 * time.Second

// Options configures the UI.
type Options struct {
	Context    context.Context
	Session    *session.Manager
	Tables     *feature.Tables
	Categories *feature.Categories
	Items      *feature.Items
	ThemeName  string
	PrefsPath  string
	LastView   string
	NoticeTTL  time.Duration
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx        context.Context
	session    *session.Manager
	tables     *feature.Tables
	categories *feature.Categories
	items      *feature.Items
	prefsPath  string
	noticeTTL  time.Duration
	now        func() time.Time

	// UI state
	keys     keyMap
	help     help.Model
	spinner  spinner.Model
	theme    Theme
	view     View
	width    int
	height   int
	ready    bool
	showHelp bool

	// Session state
	auth        session.Snapshot
	changes     <-chan struct{}
	stopChanges func()
	login       form

	// Active list
	list     *query.Subscription
	result   query.Result
	selected [len(viewNames)]int
	search   string

	// Overlays
	prompt     form
	promptKind promptKind
	confirm    *confirmation
	notices    []notice
}

// New creates a new Bubble Tea model. When the session is already
// authenticated the last used view starts loading at once.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	themeName := opts.ThemeName
	if themeName == "" {
		themeName = "Nightfox"
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	ttl := opts.NoticeTTL
	if ttl <= 0 {
		ttl = defaultNoticeTTL
	}

	m := Model{
		ctx:        ctx,
		session:    opts.Session,
		tables:     opts.Tables,
		categories: opts.Categories,
		items:      opts.Items,
		prefsPath:  prefsPath,
		noticeTTL:  ttl,
		now:        time.Now,
		keys:       DefaultKeyMap(),
		help:       help.New(),
		spinner:    spinner.New(spinner.WithSpinner(spinner.Dot)),
		theme:      GetTheme(themeName),
		view:       parseView(opts.LastView),
	}
	m.help.ShowAll = true
	m.spinner.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.Accent))

	if m.session != nil {
		store := m.session.Store()
		m.changes, m.stopChanges = store.Changes()
		m.auth = store.Snapshot()
	}
	m.login = loginForm(m.auth.User.Email)
	if m.auth.Authenticated() {
		m.openList()
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tea.EnterAltScreen,
		tickCmd(time.Second),
		m.spinner.Tick,
	}
	if m.changes != nil {
		cmds = append(cmds, waitSession(m.ctx, m.changes))
	}
	if m.list != nil {
		cmds = append(cmds, waitResult(m.ctx, m.list))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.ready = true
		return m, nil

	case tickMsg:
		m.pruneNotices(time.Time(msg))
		return m, tickCmd(time.Second)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case resultMsg:
		if msg.sub != m.list || m.list == nil {
			return m, nil
		}
		m.result = m.list.Result()
		m.clampSelection()
		return m, waitResult(m.ctx, m.list)

	case sessionMsg:
		return m.handleSession()

	case loginMsg:
		return m.handleLogin(msg)

	case mutationMsg:
		return m.handleMutation(msg)
	}

	return m, nil
}

// Close releases the model's subscriptions.
func (m Model) Close() {
	if m.list != nil {
		m.list.Close()
	}
	if m.stopChanges != nil {
		m.stopChanges()
	}
}

// Run starts the console and blocks until the user quits or ctx ends.
func Run(opts Options) error {
	m := New(opts)
	ctx := m.ctx
	p := tea.NewProgram(m, tea.WithContext(ctx))
	final, err := p.Run()
	if fm, ok := final.(Model); ok {
		fm.Close()
	} else {
		m.Close()
	}
	if err != nil && errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func (m Model) handleSession() (tea.Model, tea.Cmd) {
	prev := m.auth
	m.auth = m.session.Store().Snapshot()
	cmds := []tea.Cmd{waitSession(m.ctx, m.changes)}

	switch {
	case m.auth.Authenticated() && !prev.Authenticated():
		m.closeOverlays()
		m.login = loginForm(m.auth.User.Email)
		cmds = append(cmds, m.openList())
	case !m.auth.Authenticated() && prev.Authenticated():
		m.closeOverlays()
		m.closeList()
		m.login = loginForm(prev.User.Email)
		m.notify(levelInfo, "Signed out")
	}
	return m, tea.Batch(cmds...)
}

// openList subscribes to the current view's data, replacing the previous
// subscription. The returned command waits for the first change.
func (m *Model) openList() tea.Cmd {
	if m.list != nil {
		m.list.Close()
		m.list = nil
	}
	switch m.view {
	case ViewTables:
		if m.tables != nil {
			m.list = m.tables.List()
		}
	case ViewCategories:
		if m.categories != nil {
			if m.search != "" {
				m.list = m.categories.Search(m.search)
			} else {
				m.list = m.categories.List()
			}
		}
	case ViewItems:
		if m.items != nil {
			m.list = m.items.List()
		}
	}
	if m.list == nil {
		m.result = query.Result{}
		return nil
	}
	m.result = m.list.Result()
	m.clampSelection()
	return waitResult(m.ctx, m.list)
}

func (m *Model) closeList() {
	if m.list != nil {
		m.list.Close()
		m.list = nil
	}
	m.result = query.Result{}
	m.search = ""
}

func (m *Model) closeOverlays() {
	m.promptKind = promptNone
	m.prompt = form{}
	m.confirm = nil
	m.showHelp = false
}

func (m Model) switchView(v View) (Model, tea.Cmd) {
	if v == m.view {
		return m, nil
	}
	m.view = v
	m.confirm = nil
	m.savePrefs()
	return m, m.openList()
}

func (m Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	if err := prefs.Save(m.prefsPath, prefs.Prefs{Theme: m.theme.Name, LastView: m.view.String()}); err != nil {
		glog.Warningf("[ui] save prefs: %v", err)
	}
}

func (m Model) rowCount() int {
	switch m.view {
	case ViewCategories:
		return len(m.categoryRows())
	case ViewItems:
		return len(m.itemRows())
	default:
		return len(m.tableRows())
	}
}

func (m *Model) clampSelection() {
	n := m.rowCount()
	sel := &m.selected[m.view]
	if *sel >= n {
		*sel = n - 1
	}
	if *sel < 0 {
		*sel = 0
	}
}
