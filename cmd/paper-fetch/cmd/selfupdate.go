package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oshokin/paper-fetch/internal/service/selfupdate"
)

var (
	// checkOnly reports a newer release without installing it.
	checkOnly bool
	// force skips the running-instance check and reinstalls the current release.
	force bool

	selfUpdateCmd = &cobra.Command{
		Use:   "self-update",
		Short: "Replace this binary with the newest release.",
		Long: `Looks up the latest paper-fetch release, downloads the binary for this platform
together with its .sha256 file and swaps it in once the digest matches.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()

			result, err := selfupdate.Run(ctx, &selfupdate.Options{
				ConfigPath: configPath,
				CheckOnly:  checkOnly,
				Force:      force,
			})
			if err != nil {
				return err
			}

			switch {
			case result.Applied:
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "updated %s -> %s\n", result.Current, result.Latest)
			case result.Available:
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "update available: %s -> %s\n", result.Current, result.Latest)
			default:
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "up to date: %s\n", result.Current)
			}

			return err
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	selfUpdateCmd.Flags().BoolVar(&checkOnly, "check", false, "only report whether a newer release exists")
	selfUpdateCmd.Flags().BoolVar(&force, "force", false, "apply even if other instances run or the release is not newer")
	rootCmd.AddCommand(selfUpdateCmd)
}
