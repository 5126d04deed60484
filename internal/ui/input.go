package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sazonarte/frontdesk/internal/api"
	"github.com/sazonarte/frontdesk/internal/feature"
)

// confirmation is a pending destructive action waiting for y.
type confirmation struct {
	prompt string
	cmd    tea.Cmd
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}

	if !m.auth.Authenticated() {
		return m.handleLoginKey(msg)
	}

	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	if m.confirm != nil {
		c := m.confirm
		m.confirm = nil
		if key.Matches(msg, m.keys.Yes) {
			return m, c.cmd
		}
		return m, nil
	}

	if m.promptKind != promptNone {
		return m.handlePromptKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.spinner.Style = m.spinner.Style.Foreground(lipgloss.Color(m.theme.Accent))
		m.savePrefs()
		return m, nil

	case key.Matches(msg, m.keys.Tab):
		return m.switchView((m.view + 1) % View(len(viewNames)))

	case key.Matches(msg, m.keys.ShiftTab):
		return m.switchView((m.view + View(len(viewNames)) - 1) % View(len(viewNames)))

	case key.Matches(msg, m.keys.ViewTables):
		return m.switchView(ViewTables)

	case key.Matches(msg, m.keys.ViewCategories):
		return m.switchView(ViewCategories)

	case key.Matches(msg, m.keys.ViewItems):
		return m.switchView(ViewItems)

	case key.Matches(msg, m.keys.Logout):
		if m.session != nil {
			m.session.Logout()
		}
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		if m.list != nil {
			m.list.Refetch()
		}
		return m, nil

	case key.Matches(msg, m.keys.Escape):
		if m.view == ViewCategories && m.search != "" {
			m.search = ""
			return m, m.openList()
		}
		return m, nil
	}

	if m.moveSelection(msg) {
		return m, nil
	}

	switch m.view {
	case ViewTables:
		return m.handleTablesKey(msg)
	case ViewCategories:
		return m.handleCategoriesKey(msg)
	case ViewItems:
		return m.handleItemsKey(msg)
	}
	return m, nil
}

func (m *Model) moveSelection(msg tea.KeyMsg) bool {
	n := m.rowCount()
	sel := &m.selected[m.view]
	switch {
	case key.Matches(msg, m.keys.Up):
		if *sel > 0 {
			*sel--
		}
	case key.Matches(msg, m.keys.Down):
		if *sel < n-1 {
			*sel++
		}
	case key.Matches(msg, m.keys.Top):
		*sel = 0
	case key.Matches(msg, m.keys.Bottom):
		*sel = max(n-1, 0)
	default:
		return false
	}
	return true
}

func (m Model) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var (
		cmd    tea.Cmd
		submit bool
	)
	m.login, cmd, submit = m.login.update(msg, m.keys)
	if !submit {
		return m, cmd
	}
	creds := api.Credentials{Email: m.login.value("email"), Password: m.login.raw("password")}
	if err := feature.Validate(creds); err != nil {
		m.login.setError(err)
		return m, nil
	}
	if m.session == nil {
		return m, nil
	}
	m.login.submitting = true
	return m, loginCmd(m.ctx, m.session, creds)
}

func (m Model) handleLogin(msg loginMsg) (tea.Model, tea.Cmd) {
	m.login.submitting = false
	if msg.err != nil {
		m.login.fields[1].input.SetValue("")
		m.login.setFocus(1)
		if !m.login.setError(msg.err) {
			m.notify(levelError, errorText(msg.err, "Login failed"))
		}
		return m, nil
	}
	name := msg.user.Name
	if name == "" {
		name = msg.user.Email
	}
	m.notify(levelSuccess, "Welcome, "+name)
	return m, nil
}

func (m Model) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Escape) && !m.prompt.submitting {
		m.promptKind = promptNone
		m.prompt = form{}
		return m, nil
	}
	var (
		cmd    tea.Cmd
		submit bool
	)
	m.prompt, cmd, submit = m.prompt.update(msg, m.keys)
	if !submit {
		return m, cmd
	}

	switch m.promptKind {
	case promptSearch:
		m.search = m.prompt.value("name")
		m.promptKind = promptNone
		m.prompt = form{}
		m.selected[ViewCategories] = 0
		return m, m.openList()

	case promptNewTable:
		in := api.CreateTableInput{Number: m.prompt.value("number"), Location: m.prompt.value("location")}
		if err := feature.Validate(in); err != nil {
			m.prompt.setError(err)
			return m, nil
		}
		m.prompt.submitting = true
		tables := m.tables
		return m, mutateCmd(m.ctx, "Table "+in.Number+" created", "Could not create table", func(ctx context.Context) error {
			_, err := tables.Create(ctx, in)
			return err
		})
	}
	return m, nil
}

func (m Model) handleMutation(msg mutationMsg) (tea.Model, tea.Cmd) {
	fromPrompt := m.promptKind != promptNone && m.prompt.submitting
	if fromPrompt {
		m.prompt.submitting = false
	}
	if msg.err != nil {
		if fromPrompt && m.prompt.setError(msg.err) {
			return m, nil
		}
		m.notify(levelError, errorText(msg.err, msg.fallback))
		return m, nil
	}
	if fromPrompt {
		m.promptKind = promptNone
		m.prompt = form{}
	}
	m.notify(levelSuccess, msg.done)
	return m, nil
}

func (m Model) handleTablesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.New) {
		m.promptKind = promptNewTable
		m.prompt = newTableForm()
		return m, nil
	}

	t, ok := m.selectedTable()
	if !ok {
		return m, nil
	}
	tables := m.tables
	switch {
	case key.Matches(msg, m.keys.CycleStatus):
		next := t.Status.Next()
		done := fmt.Sprintf("Table %s is now %s", t.Number, statusLabel(next))
		return m, mutateCmd(m.ctx, done, "Could not update table status", func(ctx context.Context) error {
			_, err := tables.UpdateStatus(ctx, t.ID, next)
			return err
		})

	case key.Matches(msg, m.keys.Delete):
		m.confirm = &confirmation{
			prompt: fmt.Sprintf("Delete table %s?", t.Number),
			cmd: mutateCmd(m.ctx, "Table "+t.Number+" deleted", "Could not delete table", func(ctx context.Context) error {
				return tables.Delete(ctx, t.ID)
			}),
		}
	}
	return m, nil
}

func (m Model) handleCategoriesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Search) {
		m.promptKind = promptSearch
		m.prompt = searchForm(m.search)
		return m, nil
	}
	c, ok := m.selectedCategory()
	if !ok {
		return m, nil
	}
	categories := m.categories
	if key.Matches(msg, m.keys.Delete) {
		prompt := fmt.Sprintf("Delete category %q?", c.Name)
		if n := len(c.Items); n > 0 {
			prompt = fmt.Sprintf("Delete category %q and its %d items?", c.Name, n)
		}
		m.confirm = &confirmation{
			prompt: prompt,
			cmd: mutateCmd(m.ctx, "Category "+c.Name+" deleted", "Could not delete category", func(ctx context.Context) error {
				return categories.Delete(ctx, c.ID)
			}),
		}
	}
	return m, nil
}

func (m Model) handleItemsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	it, ok := m.selectedItem()
	if !ok {
		return m, nil
	}
	items := m.items
	switch {
	case key.Matches(msg, m.keys.ToggleAvailable):
		available := !it.IsAvailable
		done := it.Name + " is now unavailable"
		if available {
			done = it.Name + " is now available"
		}
		return m, mutateCmd(m.ctx, done, "Could not update item", func(ctx context.Context) error {
			_, err := items.SetAvailable(ctx, it.ID, available)
			return err
		})

	case key.Matches(msg, m.keys.Delete):
		m.confirm = &confirmation{
			prompt: fmt.Sprintf("Delete item %q?", it.Name),
			cmd: mutateCmd(m.ctx, it.Name+" deleted", "Could not delete item", func(ctx context.Context) error {
				return items.Delete(ctx, it.ID)
			}),
		}
	}
	return m, nil
}

// statusLabel renders NEEDS_CLEANING as "needs cleaning".
func statusLabel(s api.TableStatus) string {
	return strings.ToLower(strings.ReplaceAll(string(s), "_", " "))
}
