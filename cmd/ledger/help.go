package main

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/ledgerdesk/internal/ui"
)

var (
	// Unindented section headers ending in ":" such as "Clients:" or "Flags:".
	// "Usage:" is left plain.
	reSection = regexp.MustCompile(`(?m)^([A-Z][^\n]*:)\s*$`)

	// A two-space indented command name followed by its description.
	reSubcommand = regexp.MustCompile(`(?m)^(  )(\S+)(  )`)

	// Flag value types, e.g. "--url string" or "--page int".
	reValueType = regexp.MustCompile(`(--?\S+\s+)(string|int|duration|stringArray|stringToString)\b`)

	reDefaultValue = regexp.MustCompile(`\(default [^)]*\)`)
)

// colorizedHelpFunc renders cobra's usage text with section headers, command
// names and flag annotations colored, unless color is disabled.
func colorizedHelpFunc() func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		if cmd.Long != "" {
			fmt.Fprintln(out, strings.TrimSpace(cmd.Long))
			fmt.Fprintln(out)
		} else if cmd.Short != "" {
			fmt.Fprintln(out, cmd.Short)
			fmt.Fprintln(out)
		}
		var buf bytes.Buffer
		cmd.SetOut(&buf)
		_ = cmd.Usage()
		cmd.SetOut(out)
		if !ui.ShouldUseColor() {
			fmt.Fprint(out, buf.String())
			return
		}
		fmt.Fprint(out, colorizeHelp(buf.String()))
	}
}

func colorizeHelp(s string) string {
	s = reSection.ReplaceAllStringFunc(s, func(m string) string {
		if strings.HasPrefix(m, "Usage:") {
			return m
		}
		return ui.RenderAccent(strings.TrimSpace(m))
	})
	s = reSubcommand.ReplaceAllStringFunc(s, func(m string) string {
		p := reSubcommand.FindStringSubmatch(m)
		return p[1] + ui.RenderCommand(p[2]) + p[3]
	})
	s = reValueType.ReplaceAllStringFunc(s, func(m string) string {
		p := reValueType.FindStringSubmatch(m)
		return p[1] + ui.RenderMuted(p[2])
	})
	return reDefaultValue.ReplaceAllStringFunc(s, ui.RenderMuted)
}
