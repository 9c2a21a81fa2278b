package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/ledgerdesk/internal/client"
	"github.com/alfredjeanlab/ledgerdesk/internal/config"
	"github.com/alfredjeanlab/ledgerdesk/internal/ui"
)

var (
	serverURL  string
	authToken  string
	tenant     string
	jsonOutput bool
	actor      string
	logLevel   string

	ledgerClient *client.HTTPClient
	logger       = slog.New(slog.NewTextHandler(os.Stderr, nil))
)

// firstSet returns the first non-empty value.
func firstSet(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// gitUserName is the committer name from git config, or "".
func gitUserName() string {
	out, err := exec.Command("git", "config", "user.name").Output()
	if err != nil {
		return ""
	}
	return string(out)
}

func defaultActor() string {
	if a := firstSet(os.Getenv("LEDGER_ACTOR")); a != "" {
		return a
	}
	return firstSet(gitUserName(), "unknown")
}

func defaultServerURL() string {
	return firstSet(os.Getenv("LEDGER_URL"), activeRemoteURL(), "http://localhost:8080")
}

func defaultToken() string { return firstSet(os.Getenv("LEDGER_TOKEN"), activeRemoteToken()) }

func defaultTenant() string { return firstSet(os.Getenv("LEDGER_TENANT"), activeRemoteTenant()) }

var rootCmd = &cobra.Command{
	Use:           "ledger <command>",
	Short:         "CLI client for the ledger client registry",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := setupLogger(); err != nil {
			return err
		}
		if tenant == "" {
			return fmt.Errorf("no tenant: pass --tenant, set LEDGER_TENANT or configure a remote")
		}
		ledgerClient = client.NewHTTPClient(serverURL, authToken, tenant).WithActor(actor)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if ledgerClient != nil {
			ledgerClient.Close()
		}
	},
}

func newHealthClient() *client.HTTPClient {
	return client.NewHTTPClient(serverURL, authToken, tenant)
}

// setupLogger replaces the default text logger's level with --log-level.
func setupLogger() error {
	level, err := config.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("--log-level: %w", err)
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return nil
}

// localCommand skips client setup for commands that never talk to a server.
func localCommand(cmd *cobra.Command, args []string) error {
	return setupLogger()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "url", defaultServerURL(), "ledger server URL")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", defaultToken(), "bearer token")
	rootCmd.PersistentFlags().StringVar(&tenant, "tenant", defaultTenant(), "tenant (accounting firm) to act for")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().StringVar(&actor, "actor", defaultActor(), "actor recorded on events")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	rootCmd.AddGroup(
		&cobra.Group{ID: "clients", Title: "Clients:"},
		&cobra.Group{ID: "views", Title: "Views:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)

	cobra.EnableCommandSorting = false
	rootCmd.SetHelpFunc(colorizedHelpFunc())

	rootCmd.AddCommand(listCmd, showCmd, createCmd, updateCmd, deleteCmd, eventsCmd)
	rootCmd.AddCommand(browseCmd, exportCmd)
	rootCmd.AddCommand(serveCmd, healthCmd, remoteCmd)
}

func main() {
	if !ui.ShouldUseColor() {
		ui.ForceNoColor()
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.RenderError("Error: "+err.Error()))
		os.Exit(1)
	}
}
