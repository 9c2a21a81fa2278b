package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/ledgerdesk/internal/client"
	"github.com/alfredjeanlab/ledgerdesk/internal/export"
	"github.com/alfredjeanlab/ledgerdesk/internal/listquery"
	"github.com/alfredjeanlab/ledgerdesk/internal/model"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export clients as a spreadsheet-ready CSV",
	Long: `Export the clients matching --filter and --sort as CSV. Without --all only
the selected page is exported.

Examples:
  ledger export --filter tax_regime=simples -o .
  ledger export --all --locale en-US > clients.csv`,
	GroupID: "views",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		filters, _ := cmd.Flags().GetStringArray("filter")
		sort, _ := cmd.Flags().GetString("sort")
		page, _ := cmd.Flags().GetInt("page")
		pageSize, _ := cmd.Flags().GetInt("page-size")
		all, _ := cmd.Flags().GetBool("all")
		locale, _ := cmd.Flags().GetString("locale")
		output, _ := cmd.Flags().GetString("output")

		state := listquery.NewQueryState(pageSize)
		state.Sort = listquery.ParseSort(sort)
		state.Page = max(page, 1)
		schema := model.ClientFields()
		for _, raw := range filters {
			field, v, err := parseFilterFlag(schema, raw)
			if err != nil {
				return err
			}
			if !v.IsNull() {
				state.Filters[field] = v
			}
		}
		req := client.ListRequest(state)
		if all {
			req.Limit, req.Offset = 0, 0
		}

		data, err := ledgerClient.ExportClients(cmd.Context(), req, locale)
		if err != nil {
			return err
		}

		if output == "" || output == "-" {
			_, err := cmd.OutOrStdout().Write(data)
			return err
		}
		path := output
		if info, err := os.Stat(output); err == nil && info.IsDir() {
			path = output + string(os.PathSeparator) + export.Filename("clientes", time.Now())
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("writing export: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", path)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringArray("filter", nil, "filter as field=value (repeatable)")
	exportCmd.Flags().String("sort", "", `sort field, "-" prefix for descending`)
	exportCmd.Flags().Int("page", 1, "page to export")
	exportCmd.Flags().Int("page-size", listquery.DefaultPageSize, "clients per page")
	exportCmd.Flags().Bool("all", false, "export every matching client instead of one page")
	exportCmd.Flags().String("locale", "", "number and date locale, e.g. pt-BR or en-US (server default when empty)")
	exportCmd.Flags().StringP("output", "o", "", "file or directory to write (stdout when empty)")
}
