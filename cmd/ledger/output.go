package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"golang.org/x/text/language"

	"github.com/alfredjeanlab/ledgerdesk/internal/export"
	"github.com/alfredjeanlab/ledgerdesk/internal/listquery"
	"github.com/alfredjeanlab/ledgerdesk/internal/model"
	"github.com/alfredjeanlab/ledgerdesk/internal/ui"
)

// displayLocale formats fees and dates in terminal output.
var displayLocale = language.BrazilianPortuguese

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

var clientListHeaders = []string{"ID", "NAME", "CNPJ", "REGIME", "ACTIVE", "FEE (R$)", "LAST FILING"}

// clientRow renders the list columns of one client.
func clientRow(f *export.Formatter, c *model.Client) []string {
	return []string{
		c.ID,
		truncate(c.Name, 40),
		model.FormatCNPJ(c.CNPJ),
		c.TaxRegime.Label(),
		f.Format(c.Active),
		f.Format(export.Cents(c.MonthlyFee)),
		f.Format(c.LastFilingAt),
	}
}

// printClientPage writes the current page of a list snapshot followed by a
// one-line summary of the page position.
func printClientPage(w io.Writer, snap listquery.Snapshot[*model.Client], items []*model.Client) {
	f := export.NewFormatter(displayLocale)
	rows := make([][]string, len(items))
	for i, c := range items {
		rows[i] = clientRow(f, c)
	}
	fmt.Fprintln(w, ui.Table(clientListHeaders, rows, 0))
	fmt.Fprintln(w, ui.RenderMuted(pageSummary(snap.State, len(items))))
}

// pageSummary describes where a page sits in the result set, e.g.
// "page 2/5, 20 of 93 clients, sorted by -monthly_fee".
func pageSummary(st listquery.QueryState, shown int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "page %d/%d, %d of %d clients", st.Page, st.LastPage(), shown, st.Total)
	if st.Sort != nil {
		fmt.Fprintf(&b, ", sorted by %s", st.Sort)
	}
	if fields := st.FilterFields(); len(fields) > 0 {
		parts := make([]string, len(fields))
		for i, k := range fields {
			parts[i] = k + "=" + st.Filters[k].String()
		}
		fmt.Fprintf(&b, ", where %s", strings.Join(parts, " "))
	}
	return b.String()
}

func printClientDetail(w io.Writer, c *model.Client) error {
	f := export.NewFormatter(displayLocale)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%s\n", c.ID)
	fmt.Fprintf(tw, "Name:\t%s\n", c.Name)
	if c.TradeName != "" {
		fmt.Fprintf(tw, "Trade name:\t%s\n", c.TradeName)
	}
	fmt.Fprintf(tw, "CNPJ:\t%s\n", model.FormatCNPJ(c.CNPJ))
	if c.CNAE != "" {
		fmt.Fprintf(tw, "CNAE:\t%s\n", model.FormatCNAE(c.CNAE))
	}
	fmt.Fprintf(tw, "Tax regime:\t%s\n", c.TaxRegime.Label())
	fmt.Fprintf(tw, "Active:\t%s\n", f.Format(c.Active))
	if c.Email != "" {
		fmt.Fprintf(tw, "Email:\t%s\n", c.Email)
	}
	fmt.Fprintf(tw, "Monthly fee:\tR$ %s\n", f.Format(export.Cents(c.MonthlyFee)))
	if c.LastFilingAt != nil {
		fmt.Fprintf(tw, "Last filing:\t%s\n", f.Format(c.LastFilingAt))
	}
	fmt.Fprintf(tw, "Created:\t%s\n", f.Format(c.CreatedAt))
	fmt.Fprintf(tw, "Updated:\t%s\n", f.Format(c.UpdatedAt))
	return tw.Flush()
}

func printEvents(w io.Writer, evts []*model.Event) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTOPIC\tACTOR\tAT")
	for _, e := range evts {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", e.ID, e.Topic, e.Actor, e.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return tw.Flush()
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-3]) + "..."
}
