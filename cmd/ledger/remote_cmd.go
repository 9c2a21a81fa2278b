package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/ledgerdesk/internal/ui"
)

var remoteCmd = &cobra.Command{
	Use:               "remote",
	Short:             "Manage named server remotes",
	GroupID:           "system",
	PersistentPreRunE: localCommand,
}

var remoteAddCmd = &cobra.Command{
	Use:   "add <name> <url>",
	Short: "Add or replace a named remote",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		r := Remote{URL: args[1]}
		r.Tenant, _ = flags.GetString("tenant")
		r.Token, _ = flags.GetString("token")
		r.NATSURL, _ = flags.GetString("nats")

		err := editRemotes(func(b *remoteBook) error {
			b.Remotes[args[0]] = r
			return nil
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "remote %q added (%s)\n", args[0], r.URL)
		return nil
	},
}

var remoteRemoveCmd = &cobra.Command{
	Use:     "remove <name>",
	Aliases: []string{"rm"},
	Short:   "Remove a named remote",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := editRemotes(func(b *remoteBook) error { return b.remove(args[0]) }); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "remote %q removed\n", args[0])
		return nil
	},
}

var remoteUseCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Make a remote the default for other commands",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := editRemotes(func(b *remoteBook) error { return b.use(args[0]) }); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "now using remote %q\n", args[0])
		return nil
	},
}

var remoteListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List remotes; the active one is starred",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		b, err := openRemotes()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(b.Remotes) == 0 {
			fmt.Fprintln(out, ui.RenderMuted("no remotes configured; add one with 'ledger remote add <name> <url>'"))
			return nil
		}
		var rows [][]string
		for _, name := range b.names() {
			r := b.Remotes[name]
			label := "  " + name
			if name == b.Active {
				label = "* " + name
			}
			rows = append(rows, []string{label, r.URL, r.Tenant, maskToken(r.Token, 8, "...")})
		}
		fmt.Fprintln(out, ui.Table([]string{"NAME", "URL", "TENANT", "TOKEN"}, rows, 0))
		return nil
	},
}

var remoteShowCmd = &cobra.Command{
	Use:   "show [<name>]",
	Short: "Show one remote, the active one by default",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := openRemotes()
		if err != nil {
			return err
		}
		name := b.Active
		if len(args) > 0 {
			name = args[0]
		}
		if name == "" {
			return errors.New("no active remote; name one or run 'ledger remote use <name>'")
		}
		r, err := b.lookup(name)
		if err != nil {
			return err
		}

		if name == b.Active {
			name += " (active)"
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		for _, kv := range [][2]string{
			{"name", name},
			{"url", r.URL},
			{"tenant", r.Tenant},
			{"token", maskToken(r.Token, 8, "")},
			{"nats_url", r.NATSURL},
		} {
			if kv[1] != "" {
				fmt.Fprintf(tw, "%s:\t%s\n", kv[0], kv[1])
			}
		}
		return tw.Flush()
	},
}

func init() {
	f := remoteAddCmd.Flags()
	f.String("tenant", "", "tenant to act for on this remote")
	f.String("token", "", "bearer token for authentication")
	f.String("nats", "", "NATS URL for live list updates")

	remoteCmd.AddCommand(remoteAddCmd, remoteRemoveCmd, remoteUseCmd, remoteListCmd, remoteShowCmd)
}
