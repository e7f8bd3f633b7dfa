package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oshokin/paper-fetch/internal/service/acquire"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <jar>",
	Short: "Check a jar against its .sha256 file, creating the file if missing.",
	Long: `Validates the archive structure of the given jar and compares its SHA-256 digest
with <jar>.sha256. A missing or unreadable checksum file is (re)written from the
fresh digest; a differing digest fails the command.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		options := &acquire.Options{
			ConfigPath: configPath,
			WorkDir:    workDir,
			LogLevel:   logLevel,
		}

		path, err := acquire.Verify(ctx, options, args[0])
		if err != nil {
			return err
		}

		_, err = fmt.Fprintln(cmd.OutOrStdout(), path)

		return err
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.AddCommand(verifyCmd)
}
