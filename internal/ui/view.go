package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/sazonarte/frontdesk/internal/api"
	"github.com/sazonarte/frontdesk/internal/query"
)

// column is one fixed-width cell in a list row.
type column struct {
	title string
	width int
}

var (
	tableColumns    = []column{{"#", 6}, {"Number", 10}, {"Location", 24}, {"Status", 18}, {"Updated", 18}}
	categoryColumns = []column{{"#", 6}, {"Order", 7}, {"Name", 28}, {"Items", 7}, {"Description", 40}}
	itemColumns     = []column{{"#", 6}, {"Cat", 6}, {"Name", 28}, {"Price", 10}, {"Extra", 7}, {"Status", 14}}
)

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if !m.auth.Authenticated() {
		return m.renderLogin()
	}
	if m.showHelp {
		return m.renderHelp()
	}
	return m.renderMain()
}

func (m Model) renderLogin() string {
	styles := m.theme.Styles()
	header := styles.Header.Width(m.width).Render(styles.Logo.Background(lipgloss.Color(m.theme.Surface)).Render("frontdesk"))
	notices := m.renderNotices(styles)
	bodyHeight := m.height - 1 - lipgloss.Height(notices)
	body := lipgloss.Place(m.width, max(bodyHeight, 0), lipgloss.Center, lipgloss.Center, m.login.view(styles, m.width))
	if notices == "" {
		return header + "\n" + body
	}
	return header + "\n" + body + "\n" + notices
}

func (m Model) renderHelp() string {
	styles := m.theme.Styles()
	content := styles.AccentText.Bold(true).Render("Keys") + "\n\n" + m.help.View(m.keys) +
		"\n\n" + styles.FaintText.Render("press any key to close")
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, styles.Panel.Render(content))
}

func (m Model) renderMain() string {
	styles := m.theme.Styles()

	var b strings.Builder
	b.WriteString(m.renderHeader(styles))
	b.WriteString("\n")
	b.WriteString(m.renderTabs(styles))
	b.WriteString("\n")

	notices := m.renderNotices(styles)
	footer := m.renderFooter(styles)
	chrome := 3 + lipgloss.Height(footer)
	if notices != "" {
		chrome += lipgloss.Height(notices)
	}
	bodyHeight := max(m.height-chrome, 1)

	var body string
	switch {
	case m.promptKind != promptNone:
		body = lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, m.prompt.view(styles, m.width))
	default:
		body = m.renderList(styles, bodyHeight)
	}
	b.WriteString(lipgloss.NewStyle().Height(bodyHeight).MaxHeight(bodyHeight).Render(body))
	b.WriteString("\n")
	if notices != "" {
		b.WriteString(notices)
		b.WriteString("\n")
	}
	b.WriteString(footer)
	return b.String()
}

func (m Model) renderHeader(styles Styles) string {
	s := styles.WithBackground(m.theme.Surface)
	sep := s.Text.Render("  ")
	parts := []string{s.Logo.Render("frontdesk")}

	user := m.auth.User
	name := user.Name
	if name == "" {
		name = user.Email
	}
	parts = append(parts, s.Text.Render(name))
	if roles := roleNames(user); roles != "" {
		parts = append(parts, s.FaintText.Render(roles))
	}

	r := m.result
	switch {
	case r.Fetching:
		parts = append(parts, s.AccentText.Render(m.spinner.View()+" syncing"))
	case r.Status == query.Error:
		parts = append(parts, s.DangerText.Render("offline"))
	case !r.FetchedAt.IsZero():
		parts = append(parts, s.MutedText.Render("updated "+r.FetchedAt.Format("15:04:05")))
	}
	return styles.Header.Width(m.width).Render(strings.Join(parts, sep))
}

func (m Model) renderTabs(styles Styles) string {
	tabs := make([]string, len(viewNames))
	for i := range viewNames {
		v := View(i)
		label := fmt.Sprintf("%d %s", i+1, v.title())
		if v == m.view {
			tabs[i] = styles.Selected.Padding(0, 1).Render(label)
		} else {
			tabs[i] = styles.MutedText.Padding(0, 1).Render(label)
		}
	}
	line := strings.Join(tabs, " ")
	if m.view == ViewCategories && m.search != "" {
		line += "  " + styles.InfoText.Render(fmt.Sprintf("search: %q", m.search)) +
			" " + styles.FaintText.Render("(esc clears)")
	}
	return line
}

func (m Model) renderFooter(styles Styles) string {
	if m.confirm != nil {
		return styles.Footer.Width(m.width).Render(
			styles.WarningText.Background(lipgloss.Color(m.theme.Surface)).Render(m.confirm.prompt + "  y to confirm, any key cancels"))
	}
	var hints []string
	switch m.view {
	case ViewTables:
		hints = []string{"s status", "n new", "d delete"}
	case ViewCategories:
		hints = []string{"/ search", "d delete"}
	case ViewItems:
		hints = []string{"a availability", "d delete"}
	}
	hints = append(hints, "r reload", "tab view", "L sign out", "? help")
	return styles.Footer.Width(m.width).Render(strings.Join(hints, " · "))
}

// renderList shows the active view's rows, or its load state when there is
// nothing to show yet.
func (m Model) renderList(styles Styles, height int) string {
	r := m.result
	label := strings.ToLower(m.view.title())

	if !r.HasData {
		switch {
		case r.Status == query.Loading || r.Fetching:
			return m.spinner.View() + " " + styles.MutedText.Render("Loading "+label+"…")
		case r.Status == query.Error:
			return styles.DangerText.Render(errorText(r.Err, "Could not load "+label)) + "\n" +
				styles.MutedText.Render("press r to retry")
		default:
			return styles.MutedText.Render("Nothing loaded yet. Press r to load " + label + ".")
		}
	}

	var lines []string
	if r.Status == query.Error {
		lines = append(lines, styles.WarningText.Render("Showing last loaded "+label+": "+errorText(r.Err, "refresh failed")))
		height--
	}

	var (
		cols []column
		rows [][]string
	)
	switch m.view {
	case ViewTables:
		cols = tableColumns
		for _, t := range m.tableRows() {
			rows = append(rows, []string{
				fmt.Sprint(t.ID), t.Number, t.Location,
				styles.StatusStyle(string(t.Status)).Render(statusLabel(t.Status)),
				formatUpdated(t),
			})
		}
	case ViewCategories:
		cols = categoryColumns
		for _, c := range m.categoryRows() {
			rows = append(rows, []string{
				fmt.Sprint(c.ID), fmt.Sprint(c.Order), c.Name, fmt.Sprint(len(c.Items)), c.Description,
			})
		}
	case ViewItems:
		cols = itemColumns
		for _, it := range m.itemRows() {
			status := "unavailable"
			if it.IsAvailable {
				status = "available"
			}
			extra := ""
			if it.IsExtra {
				extra = "extra"
			}
			rows = append(rows, []string{
				fmt.Sprint(it.ID), fmt.Sprint(it.CategoryID), it.Name, it.Price, extra,
				styles.StatusStyle(status).Render(status),
			})
		}
	}

	if len(rows) == 0 {
		empty := "No " + label + " yet."
		if m.view == ViewCategories && m.search != "" {
			empty = fmt.Sprintf("No categories match %q.", m.search)
		}
		return strings.Join(append(lines, styles.MutedText.Render(empty)), "\n")
	}

	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = cell(c.title, c.width)
	}
	lines = append(lines, styles.FaintText.Render(strings.Join(header, " ")))

	visible := max(height-1, 1)
	sel := m.selected[m.view]
	offset := 0
	if sel >= visible {
		offset = sel - visible + 1
	}
	for i := offset; i < len(rows) && i < offset+visible; i++ {
		cells := make([]string, len(cols))
		for j, c := range cols {
			cells[j] = cell(rows[i][j], c.width)
		}
		line := strings.Join(cells, " ")
		if i == sel {
			line = styles.Selected.Render(line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// cell truncates s to width and pads it out to width.
func cell(s string, width int) string {
	s = ansi.Truncate(s, width, "…")
	return lipgloss.NewStyle().Width(width).Render(s)
}

func formatUpdated(t api.Table) string {
	ts := t.ParsedUpdatedAt()
	if ts.IsZero() {
		return ""
	}
	return ts.Local().Format("Jan 2 15:04")
}

func roleNames(u api.User) string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, strings.ToLower(string(r.Name)))
	}
	return strings.Join(names, ",")
}

func (m Model) tableRows() []api.Table {
	rows, _ := query.Data[[]api.Table](m.result)
	return rows
}

func (m Model) categoryRows() []api.MenuCategory {
	rows, _ := query.Data[[]api.MenuCategory](m.result)
	return rows
}

func (m Model) itemRows() []api.MenuItem {
	rows, _ := query.Data[[]api.MenuItem](m.result)
	return rows
}

func (m Model) selectedTable() (api.Table, bool) {
	rows := m.tableRows()
	i := m.selected[ViewTables]
	if m.view != ViewTables || i < 0 || i >= len(rows) {
		return api.Table{}, false
	}
	return rows[i], true
}

func (m Model) selectedCategory() (api.MenuCategory, bool) {
	rows := m.categoryRows()
	i := m.selected[ViewCategories]
	if m.view != ViewCategories || i < 0 || i >= len(rows) {
		return api.MenuCategory{}, false
	}
	return rows[i], true
}

func (m Model) selectedItem() (api.MenuItem, bool) {
	rows := m.itemRows()
	i := m.selected[ViewItems]
	if m.view != ViewItems || i < 0 || i >= len(rows) {
		return api.MenuItem{}, false
	}
	return rows[i], true
}
