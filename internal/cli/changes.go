package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/jenkinsci/tfs-checkout/internal/domain"
	"github.com/jenkinsci/tfs-checkout/internal/infra/changelog"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	versionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	actionStyles = map[domain.ChangeAction]lipgloss.Style{
		domain.ActionAdd:    lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		domain.ActionEdit:   lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		domain.ActionDelete: lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
	}
)

// newChangesCommand creates the changes command.
func newChangesCommand(_ *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "changes <changelog>",
		Short: "Show the changesets recorded in a changelog file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := changelog.Read(args[0])
			if err != nil {
				return err
			}
			renderChangelog(cmd.OutOrStdout(), log)
			return nil
		},
	}
	noContainer(cmd)

	return cmd
}

// renderChangelog writes a human readable view of log to w.
func renderChangelog(w io.Writer, log *changelog.Changelog) {
	_, _ = fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("Build %d: %s (%s)", log.Build, log.ProjectPath, log.Workspace)))
	if log.VersionRange != "" {
		_, _ = fmt.Fprintln(w, dimStyle.Render("Range "+log.VersionRange))
	}
	if len(log.ChangeSets) == 0 {
		_, _ = fmt.Fprintln(w, "No changes.")
		return
	}

	for _, cs := range log.ChangeSets {
		_, _ = fmt.Fprintln(w)
		user := cs.User
		if cs.Domain != "" {
			user = cs.Domain + `\` + cs.User
		}
		_, _ = fmt.Fprintf(w, "%s %s %s\n",
			versionStyle.Render(shortVersion(cs.Version)),
			user,
			dimStyle.Render(cs.Date.Format("2006-01-02 15:04:05")))
		if c := strings.TrimSpace(cs.Comment); c != "" {
			for _, line := range strings.Split(c, "\n") {
				_, _ = fmt.Fprintf(w, "    %s\n", line)
			}
		}
		for _, item := range cs.Items {
			_, _ = fmt.Fprintf(w, "  %s %s\n", renderAction(item.Action), item.Path)
		}
	}
}

func renderAction(a domain.ChangeAction) string {
	label := fmt.Sprintf("%-6s", a)
	if style, ok := actionStyles[a]; ok {
		return style.Render(label)
	}
	return label
}

// shortVersion abbreviates commit hashes. Changeset numbers are kept.
func shortVersion(v string) string {
	if len(v) == 40 {
		return v[:10]
	}
	return v
}
