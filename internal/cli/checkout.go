package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/jenkinsci/tfs-checkout/internal/domain"
	"github.com/jenkinsci/tfs-checkout/internal/infra/changelog"
	"github.com/jenkinsci/tfs-checkout/internal/usecase"
)

// newCheckoutCommand creates the checkout command.
func newCheckoutCommand(st *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Reconcile the workspace, fetch files and record changes",
		Long: `Reconcile the job's workspace with the server, fetch the project at the
version selected by the checkout strategy and write the changesets since
the previous build to the changelog.

The strategy is "D" (or empty) for the build start time, or
"L<label>[@scope]" for a label. Without --previous-start-time the build is
treated as the first one and no history is queried for timestamps.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := st.container
			cfg := c.AppConfig
			v := st.v

			now := c.Clock.Now()
			start, err := parseTimeFlag(v.GetString("start-time"), now)
			if err != nil {
				return fmt.Errorf("--start-time: %w", err)
			}
			var previous *time.Time
			if raw := v.GetString("previous-start-time"); raw != "" {
				t, err := parseTimeFlag(raw, now)
				if err != nil {
					return fmt.Errorf("--previous-start-time: %w", err)
				}
				previous = &t
			}

			build := domain.BuildInfo{
				PreviousStartTime: previous,
				StartTime:         start,
				Node:              v.GetString("node"),
				JobName:           v.GetString("job-name"),
				Number:            v.GetInt("build-number"),
			}
			identity := cfg.Identity(c.JobDir, map[string]string{
				"JOB_NAME":     build.JobName,
				"NODE_NAME":    build.Node,
				"BUILD_NUMBER": strconv.Itoa(build.Number),
			})
			token := v.GetString("strategy")
			if token == "" {
				token = cfg.Checkout.Strategy
			}

			uc, err := c.CheckoutUseCase()
			if err != nil {
				return err
			}
			out, err := uc.Execute(cmd.Context(), usecase.CheckoutInput{
				Identity:      identity,
				Build:         build,
				StrategyToken: token,
				ServerURL:     cfg.Server.URL,
				UseUpdate:     cfg.Workspace.UseUpdate && !v.GetBool("fresh"),
				Overwrite:     cfg.Workspace.Overwrite || v.GetBool("overwrite"),
			})
			if err != nil {
				c.Logger.Error("checkout", fmt.Sprintf("Checkout failed after %s: %v", out.State, err))
				return err
			}

			path := v.GetString("changelog")
			if path == "" {
				path = domain.ChangelogPath(c.StateDir, build.Number)
			}
			entry := &changelog.Changelog{
				CreatedAt:   now,
				Workspace:   identity.Name,
				ProjectPath: identity.ServerPath,
				ChangeSets:  out.ChangeSets,
				Build:       build.Number,
			}
			if out.Query != nil {
				entry.VersionRange = out.Query.VersionRange()
			}
			if err := changelog.Write(path, entry); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "Workspace: %s\n", identity.Name)
			_, _ = fmt.Fprintf(w, "Version:   %s\n", out.VersionSpec)
			_, _ = fmt.Fprintf(w, "Changes:   %d\n", len(out.ChangeSets))
			_, _ = fmt.Fprintf(w, "Changelog: %s\n", path)
			return nil
		},
	}

	cmd.Flags().String("strategy", "", `Checkout strategy token, overrides [checkout] strategy ("D", "L<label>[@scope]")`)
	cmd.Flags().String("node", "", "Node the build runs on")
	cmd.Flags().String("job-name", "", "Job name used in the workspace name template")
	cmd.Flags().String("start-time", "", "Build start time, RFC 3339 (default: now)")
	cmd.Flags().String("previous-start-time", "", "Start time of the previous build, RFC 3339")
	cmd.Flags().String("changelog", "", "Changelog file (default: <state>/changelog/build-<n>.yaml)")
	cmd.Flags().Bool("fresh", false, "Recreate the workspace even if it is up to date")
	cmd.Flags().Bool("overwrite", false, "Overwrite locally modified files")

	return cmd
}

// parseTimeFlag parses an RFC 3339 time. Empty means def.
func parseTimeFlag(s string, def time.Time) (time.Time, error) {
	if s == "" {
		return def, nil
	}
	return time.Parse(time.RFC3339, s)
}
