package main

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/ledgerdesk/internal/client"
	"github.com/alfredjeanlab/ledgerdesk/internal/model"
)

// parseFee reads an amount in reais, accepting either decimal separator
// ("450,00", "1.234,50", "450.5"), and returns centavos.
func parseFee(s string) (int64, error) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "R$"))
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	if i := strings.LastIndex(s, ","); i >= 0 {
		// Comma is the decimal separator; dots group thousands.
		s = strings.ReplaceAll(s[:i], ".", "") + "." + s[i+1:]
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	return int64(math.Round(v * 100)), nil
}

// parseDate reads YYYY-MM-DD or DD/MM/YYYY.
func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", "02/01/2006"} {
		if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD or DD/MM/YYYY)", s)
}

var showCmd = &cobra.Command{
	Use:     "show <id>",
	Short:   "Show a client",
	GroupID: "clients",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := ledgerClient.GetClient(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), c)
		}
		return printClientDetail(cmd.OutOrStdout(), c)
	},
}

var createCmd = &cobra.Command{
	Use:     "create <name> <cnpj>",
	Short:   "Register a client company",
	GroupID: "clients",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := &client.CreateClientRequest{Name: args[0], CNPJ: args[1]}
		req.TradeName, _ = cmd.Flags().GetString("trade-name")
		req.CNAE, _ = cmd.Flags().GetString("cnae")
		req.Email, _ = cmd.Flags().GetString("email")
		regime, _ := cmd.Flags().GetString("regime")
		req.TaxRegime = model.TaxRegime(regime)

		if cmd.Flags().Changed("fee") {
			raw, _ := cmd.Flags().GetString("fee")
			fee, err := parseFee(raw)
			if err != nil {
				return fmt.Errorf("--fee: %w", err)
			}
			req.MonthlyFee = fee
		}
		if cmd.Flags().Changed("inactive") {
			active := false
			req.Active = &active
		}
		if cmd.Flags().Changed("last-filing") {
			raw, _ := cmd.Flags().GetString("last-filing")
			t, err := parseDate(raw)
			if err != nil {
				return fmt.Errorf("--last-filing: %w", err)
			}
			req.LastFilingAt = &t
		}

		c, err := ledgerClient.CreateClient(cmd.Context(), req)
		if err != nil {
			return describeAPIError(err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), c)
		}
		return printClientDetail(cmd.OutOrStdout(), c)
	},
}

var updateCmd = &cobra.Command{
	Use:     "update <id>",
	Short:   "Update a client",
	GroupID: "clients",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := &client.UpdateClientRequest{}
		flags := cmd.Flags()

		str := func(name string) *string {
			if !flags.Changed(name) {
				return nil
			}
			v, _ := flags.GetString(name)
			return &v
		}
		req.Name = str("name")
		req.TradeName = str("trade-name")
		req.CNAE = str("cnae")
		req.Email = str("email")
		if v := str("regime"); v != nil {
			r := model.TaxRegime(*v)
			req.TaxRegime = &r
		}
		if flags.Changed("active") {
			v, _ := flags.GetBool("active")
			req.Active = &v
		}
		if v := str("fee"); v != nil {
			fee, err := parseFee(*v)
			if err != nil {
				return fmt.Errorf("--fee: %w", err)
			}
			req.MonthlyFee = &fee
		}
		if v := str("last-filing"); v != nil {
			t, err := parseDate(*v)
			if err != nil {
				return fmt.Errorf("--last-filing: %w", err)
			}
			req.LastFilingAt = &t
		}

		c, err := ledgerClient.UpdateClient(cmd.Context(), args[0], req)
		if err != nil {
			return describeAPIError(err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), c)
		}
		return printClientDetail(cmd.OutOrStdout(), c)
	},
}

var deleteCmd = &cobra.Command{
	Use:     "delete <id>...",
	Short:   "Delete clients",
	GroupID: "clients",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, id := range args {
			if err := ledgerClient.DeleteClient(cmd.Context(), id); err != nil {
				return fmt.Errorf("deleting %s: %w", id, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", id)
		}
		return nil
	},
}

var eventsCmd = &cobra.Command{
	Use:     "events <id>",
	Short:   "Show the change history of a client",
	GroupID: "clients",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		evts, err := ledgerClient.GetEvents(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), evts)
		}
		return printEvents(cmd.OutOrStdout(), evts)
	},
}

// describeAPIError appends per-field validation messages to err.
func describeAPIError(err error) error {
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || len(apiErr.Fields) == 0 {
		return err
	}
	var b strings.Builder
	b.WriteString(apiErr.Message)
	for _, f := range apiErr.Fields {
		fmt.Fprintf(&b, "\n  %s: %s", f.Field, f.Message)
	}
	return errors.New(b.String())
}

func init() {
	createCmd.Flags().String("trade-name", "", "trade name (nome fantasia)")
	createCmd.Flags().String("cnae", "", "main CNAE code")
	createCmd.Flags().String("regime", string(model.RegimeSimples), "tax regime (simples, presumido, real, mei)")
	createCmd.Flags().String("email", "", "contact email")
	createCmd.Flags().String("fee", "", "monthly fee in reais, e.g. 450,00")
	createCmd.Flags().Bool("inactive", false, "register the client as inactive")
	createCmd.Flags().String("last-filing", "", "date of the last filing")

	updateCmd.Flags().String("name", "", "legal name")
	updateCmd.Flags().String("trade-name", "", "trade name (nome fantasia)")
	updateCmd.Flags().String("cnae", "", "main CNAE code")
	updateCmd.Flags().String("regime", "", "tax regime (simples, presumido, real, mei)")
	updateCmd.Flags().String("email", "", "contact email")
	updateCmd.Flags().String("fee", "", "monthly fee in reais, e.g. 450,00")
	updateCmd.Flags().Bool("active", true, "whether the client is active")
	updateCmd.Flags().String("last-filing", "", "date of the last filing")
}
