package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/ledgerdesk/internal/client"
	"github.com/alfredjeanlab/ledgerdesk/internal/listquery"
	"github.com/alfredjeanlab/ledgerdesk/internal/model"
)

// pageCacheSize bounds the pages kept by a CLI list session.
const pageCacheSize = 64

// clientList is a list controller over the server's client collection plus
// the page cache in front of it.
type clientList struct {
	*listquery.Controller[*model.Client]
	cache *listquery.CachedSource[*model.Client]
}

// newClientList builds a server-sorted, server-filtered controller for the
// current tenant.
func newClientList(c *client.HTTPClient, pageSize int, sort string, opts ...listquery.Option[*model.Client]) (*clientList, error) {
	cache, err := listquery.NewCachedSource[*model.Client](client.NewClientSource(c), pageCacheSize)
	if err != nil {
		return nil, err
	}
	schema := model.ClientFields()
	base := []listquery.Option[*model.Client]{
		listquery.WithServerSort[*model.Client](),
		listquery.WithServerFilter[*model.Client](),
		listquery.WithPageSize[*model.Client](pageSize),
		listquery.WithLogger[*model.Client](logger),
	}
	if s := listquery.ParseSort(sort); s != nil {
		if f, ok := schema.Field(s.Field); !ok || !f.Sortable {
			return nil, fmt.Errorf("--sort: field %q is not sortable (one of %s)", s.Field, strings.Join(sortableFields(schema), ", "))
		}
		base = append(base, listquery.WithSort[*model.Client](s.Field, s.Direction))
	}
	ctrl := listquery.New(cache, listquery.Scope{Tenant: c.Tenant(), Token: authToken}, schema, append(base, opts...)...)
	return &clientList{Controller: ctrl, cache: cache}, nil
}

// Refresh drops cached pages and refetches the current one.
func (l *clientList) Refresh(ctx context.Context) (listquery.Snapshot[*model.Client], error) {
	l.cache.Invalidate()
	return l.Fetch(ctx)
}

// parseFilterFlag splits "field=value". Fields with a fixed set of values take
// the value as an enum member; others follow listquery.ParseFilter, so an
// empty value clears the filter.
func parseFilterFlag(schema *listquery.Schema[*model.Client], raw string) (string, listquery.FilterValue, error) {
	field, value, ok := strings.Cut(raw, "=")
	field = strings.TrimSpace(field)
	if !ok || field == "" {
		return "", listquery.Null(), fmt.Errorf("--filter %q: expected field=value", raw)
	}
	f, known := schema.Field(field)
	if !known || !f.Filterable {
		return "", listquery.Null(), fmt.Errorf("--filter %q: field %q is not filterable", raw, field)
	}
	value = strings.TrimSpace(value)
	if len(f.Enum) > 0 && value != "" {
		return field, listquery.Enum(value), nil
	}
	return field, listquery.ParseFilter(value), nil
}

func sortableFields(schema *listquery.Schema[*model.Client]) []string {
	var out []string
	for _, name := range schema.Names() {
		if f, _ := schema.Field(name); f.Sortable {
			out = append(out, name)
		}
	}
	return out
}

// loadPage applies filters, fetches page 1 to learn the total and then moves
// to page.
func loadPage(ctx context.Context, l *clientList, filters []string, page int) (listquery.Snapshot[*model.Client], error) {
	schema := model.ClientFields()
	for _, raw := range filters {
		field, v, err := parseFilterFlag(schema, raw)
		if err != nil {
			return listquery.Snapshot[*model.Client]{}, err
		}
		if err := l.SetFilter(field, v); err != nil {
			return listquery.Snapshot[*model.Client]{}, err
		}
	}
	snap, err := l.Fetch(ctx)
	if err != nil || page <= 1 {
		return snap, err
	}
	if err := l.SetPage(page); err != nil {
		return snap, err
	}
	if err := l.Wait(ctx); err != nil {
		return l.Snapshot(), err
	}
	snap = l.Snapshot()
	if snap.Err != nil {
		return snap, snap.Err
	}
	return snap, nil
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List clients, one page at a time",
	Long: `List the tenant's clients. Filters and sort are applied by the server.

Examples:
  ledger list --filter tax_regime=simples --sort -monthly_fee
  ledger list --filter search=padaria --page 2 --page-size 50
  ledger list --filter active=true --watch`,
	GroupID: "clients",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		filters, _ := cmd.Flags().GetStringArray("filter")
		sort, _ := cmd.Flags().GetString("sort")
		page, _ := cmd.Flags().GetInt("page")
		pageSize, _ := cmd.Flags().GetInt("page-size")
		watch, _ := cmd.Flags().GetBool("watch")
		interval, _ := cmd.Flags().GetDuration("interval")
		natsURL, _ := cmd.Flags().GetString("nats")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		l, err := newClientList(ledgerClient, pageSize, sort)
		if err != nil {
			return err
		}
		defer l.Close()

		snap, err := loadPage(ctx, l, filters, page)
		if err != nil {
			return err
		}
		show := func(snap listquery.Snapshot[*model.Client]) error {
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), map[string]any{"items": snap.Items, "state": snap.State})
			}
			printClientPage(cmd.OutOrStdout(), snap, l.SortedFilteredView())
			return nil
		}
		if err := show(snap); err != nil || !watch {
			return err
		}

		refresh := func() error {
			snap, err := l.Refresh(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				logger.Warn("refresh failed", "err", err)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return show(snap)
		}
		if natsURL != "" {
			return watchNATS(ctx, natsURL, ledgerClient.Tenant(), refresh)
		}
		return watchPoll(ctx, interval, refresh)
	},
}

func defaultNATSURL() string {
	if s := os.Getenv("LEDGER_NATS_URL"); s != "" {
		return s
	}
	return activeRemoteNATSURL()
}

func init() {
	listCmd.Flags().StringArray("filter", nil, "filter as field=value (repeatable)")
	listCmd.Flags().String("sort", "", `sort field, "-" prefix for descending`)
	listCmd.Flags().Int("page", 1, "page number")
	listCmd.Flags().Int("page-size", listquery.DefaultPageSize, "clients per page")
	listCmd.Flags().Bool("watch", false, "keep running and reprint the page when clients change")
	listCmd.Flags().Duration("interval", 5*time.Second, "polling interval for --watch without NATS")
	listCmd.Flags().String("nats", defaultNATSURL(), "NATS URL for --watch change notifications")
}
