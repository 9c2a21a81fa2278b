package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/ledgerdesk/internal/export"
	"github.com/alfredjeanlab/ledgerdesk/internal/listquery"
	"github.com/alfredjeanlab/ledgerdesk/internal/model"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse clients interactively",
	Long: `Page through the tenant's clients in a full-screen table.

Keys:
  /        search by name, trade name or CNPJ
  s        sort by the next column, S reverses the direction
  t        cycle the tax regime filter
  a        cycle the active filter
  n, p     next and previous page (also right and left)
  g, G     first and last page
  r        reload the current page
  q        quit`,
	GroupID: "views",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pageSize, _ := cmd.Flags().GetInt("page-size")

		updates := make(chan listquery.Snapshot[*model.Client], 1)
		l, err := newClientList(ledgerClient, pageSize, "", listquery.OnChange(latestSnapshot(updates)))
		if err != nil {
			return err
		}
		defer l.Close()

		m := newBrowseModel(l.Controller, updates, ledgerClient.Tenant())
		m.reload = func(ctx context.Context) error {
			_, err := l.Refresh(ctx)
			return err
		}
		_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
		return err
	},
}

func init() {
	browseCmd.Flags().Int("page-size", 25, "clients per page")
}

// latestSnapshot returns an OnChange callback that keeps only the newest
// snapshot in ch, which must have capacity 1.
func latestSnapshot(ch chan listquery.Snapshot[*model.Client]) func(listquery.Snapshot[*model.Client]) {
	return func(s listquery.Snapshot[*model.Client]) {
		select {
		case <-ch:
		default:
		}
		ch <- s
	}
}

type snapshotMsg listquery.Snapshot[*model.Client]

type errMsg struct{ err error }

// browseColumns pairs each table column with the sort field behind it.
var browseColumns = []struct {
	title string
	field string
	width int
}{
	{"Name", model.FieldName, 36},
	{"CNPJ", model.FieldCNPJ, 20},
	{"Regime", model.FieldTaxRegime, 18},
	{"Active", model.FieldActive, 7},
	{"Fee (R$)", model.FieldMonthlyFee, 12},
	{"Last filing", model.FieldLastFilingAt, 12},
}

var (
	browseTitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("74"))
	browseStatusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	browseErrorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	browseBaseStyle   = lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("240"))
)

// browseModel is the bubbletea model of the browse command. Keys drive the
// list controller; the controller's snapshots arrive on updates and are
// rendered into the table.
type browseModel struct {
	ctrl    *listquery.Controller[*model.Client]
	updates <-chan listquery.Snapshot[*model.Client]
	reload  func(context.Context) error
	tenant  string

	table       table.Model
	search      textinput.Model
	searching   bool
	formatter   *export.Formatter
	snap        listquery.Snapshot[*model.Client]
	sortColumn  int // index into browseColumns, -1 when unsorted
	regimeIndex int // 0 = no filter, i = TaxRegimes[i-1]
	activeIndex int // 0 = no filter, 1 = active, 2 = inactive
	err         error
}

func newBrowseModel(ctrl *listquery.Controller[*model.Client], updates <-chan listquery.Snapshot[*model.Client], tenant string) browseModel {
	cols := make([]table.Column, len(browseColumns))
	for i, c := range browseColumns {
		cols[i] = table.Column{Title: c.title, Width: c.width}
	}
	t := table.New(
		table.WithColumns(cols),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	si := textinput.New()
	si.Placeholder = "name, trade name or CNPJ..."
	si.CharLimit = 80
	si.Width = 40
	si.Prompt = "/ "

	return browseModel{
		ctrl:       ctrl,
		updates:    updates,
		tenant:     tenant,
		table:      t,
		search:     si,
		formatter:  export.NewFormatter(displayLocale),
		snap:       ctrl.Snapshot(),
		sortColumn: -1,
		reload: func(ctx context.Context) error {
			_, err := ctrl.Fetch(ctx)
			return err
		},
	}
}

func (m browseModel) Init() tea.Cmd {
	return tea.Batch(m.fetch(), m.waitForSnapshot())
}

// waitForSnapshot delivers the next controller snapshot as a message.
func (m browseModel) waitForSnapshot() tea.Cmd {
	return func() tea.Msg {
		s, ok := <-m.updates
		if !ok {
			return nil
		}
		return snapshotMsg(s)
	}
}

// fetch reloads the current page. Its result reaches the model through the
// snapshot channel; only the error is returned here.
func (m browseModel) fetch() tea.Cmd {
	reload := m.reload
	return func() tea.Msg {
		if err := reload(context.Background()); err != nil {
			return errMsg{err}
		}
		return nil
	}
}

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.table.SetHeight(max(msg.Height-8, 3))
		return m, nil

	case snapshotMsg:
		m.applySnapshot(listquery.Snapshot[*model.Client](msg))
		return m, m.waitForSnapshot()

	case errMsg:
		m.err = msg.err
		return m, nil

	case tea.KeyMsg:
		if m.searching {
			return m.updateSearch(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m browseModel) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.searching = false
		m.search.Blur()
		m.setErr(m.ctrl.SetFilter(model.FieldSearch, listquery.ParseFilter(m.search.Value())))
		return m, nil
	case tea.KeyEsc:
		m.searching = false
		m.search.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

func (m browseModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	page := m.snap.State.Page
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "/":
		m.searching = true
		return m, m.search.Focus()
	case "s":
		m.sortColumn = (m.sortColumn + 1) % len(browseColumns)
		m.setErr(m.ctrl.SetSort(browseColumns[m.sortColumn].field))
	case "S":
		if m.sortColumn >= 0 {
			m.setErr(m.ctrl.SetSort(browseColumns[m.sortColumn].field))
		}
	case "t":
		m.regimeIndex = (m.regimeIndex + 1) % (len(model.TaxRegimes) + 1)
		v := listquery.Null()
		if m.regimeIndex > 0 {
			v = listquery.Enum(string(model.TaxRegimes[m.regimeIndex-1]))
		}
		m.setErr(m.ctrl.SetFilter(model.FieldTaxRegime, v))
	case "a":
		m.activeIndex = (m.activeIndex + 1) % 3
		v := listquery.Null()
		if m.activeIndex > 0 {
			v = listquery.Flag(m.activeIndex == 1)
		}
		m.setErr(m.ctrl.SetFilter(model.FieldActive, v))
	case "n", "right":
		m.setErr(m.ctrl.SetPage(page + 1))
	case "p", "left":
		m.setErr(m.ctrl.SetPage(page - 1))
	case "g", "home":
		m.setErr(m.ctrl.SetPage(1))
	case "G", "end":
		m.setErr(m.ctrl.SetPage(m.snap.State.LastPage()))
	case "r":
		m.err = nil
		return m, m.fetch()
	default:
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *browseModel) setErr(err error) {
	m.err = err
}

func (m *browseModel) applySnapshot(s listquery.Snapshot[*model.Client]) {
	m.snap = s
	if s.Err != nil {
		m.err = s.Err
	} else if s.Status == listquery.StatusSuccess {
		m.err = nil
	}
	items := m.ctrl.SortedFilteredView()
	rows := make([]table.Row, len(items))
	for i, c := range items {
		rows[i] = table.Row{
			truncate(c.Name, browseColumns[0].width),
			model.FormatCNPJ(c.CNPJ),
			c.TaxRegime.Label(),
			m.formatter.Format(c.Active),
			m.formatter.Format(export.Cents(c.MonthlyFee)),
			m.formatter.Format(c.LastFilingAt),
		}
	}
	m.table.SetRows(rows)
	if m.table.Cursor() >= len(rows) {
		m.table.SetCursor(max(len(rows)-1, 0))
	}
}

func (m browseModel) View() string {
	var b strings.Builder
	b.WriteString(browseTitleStyle.Render("Clients of " + m.tenant))
	b.WriteString("\n")
	if m.searching || m.search.Value() != "" {
		b.WriteString(m.search.View())
	}
	b.WriteString("\n")
	b.WriteString(browseBaseStyle.Render(m.table.View()))
	b.WriteString("\n")

	status := pageSummary(m.snap.State, len(m.table.Rows()))
	if m.snap.Loading() {
		status += ", loading..."
	}
	b.WriteString(browseStatusStyle.Render(status))
	b.WriteString("\n")
	if m.err != nil {
		b.WriteString(browseErrorStyle.Render(errorLine(m.err)))
		b.WriteString("\n")
	}
	b.WriteString(browseStatusStyle.Render("/ search  s/S sort  t regime  a active  n/p page  r reload  q quit"))
	return b.String()
}

// errorLine describes err for the status bar, noting when retrying may help.
func errorLine(err error) string {
	var lerr *listquery.Error
	if errors.As(err, &lerr) && lerr.Retryable() {
		return fmt.Sprintf("%s (press r to retry)", lerr.Error())
	}
	return err.Error()
}
