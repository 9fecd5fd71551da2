package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jenkinsci/tfs-checkout/internal/domain"
)

// newVersionSpecCommand creates the versionspec command.
func newVersionSpecCommand() *cobra.Command {
	var startTime string

	cmd := &cobra.Command{
		Use:   "versionspec [strategy]",
		Short: "Print the version a checkout strategy resolves to",
		Long: `Print the strategy kind and the version spec sent to the server for a
checkout strategy token. An empty token selects the build start time.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var token string
			if len(args) > 0 {
				token = args[0]
			}
			strategy, err := domain.ParseCheckoutStrategy(token)
			if err != nil {
				return err
			}
			start, err := parseTimeFlag(startTime, domain.RealClock{}.Now())
			if err != nil {
				return fmt.Errorf("--start-time: %w", err)
			}
			spec, err := strategy.VersionSpec(start)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "Strategy: %s\n", strategy.Kind())
			_, _ = fmt.Fprintf(w, "Version:  %s\n", spec)
			return nil
		},
	}
	noContainer(cmd)

	cmd.Flags().StringVar(&startTime, "start-time", "", "Build start time, RFC 3339 (default: now)")

	return cmd
}
