package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/oshokin/paper-fetch/internal/service/acquire"
)

var (
	// noProgress hides the download progress bar.
	noProgress bool
	// catalogURL overrides the configured release catalog.
	catalogURL string

	fetchCmd = &cobra.Command{
		Use:   "fetch [version]",
		Short: "Reuse or download a verified server jar and print its path.",
		Long: `Looks for a valid paper-*.jar in the work directory first. Without one, resolves
the version ("latest" by default) through the release catalog, downloads its
latest build and records the SHA-256 digest next to the jar.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runFetch,
	}
)

func runFetch(cmd *cobra.Command, args []string) error {
	// Setup graceful shutdown handling.
	ctx, stop := signalContext()
	defer stop()

	options := &acquire.Options{
		ConfigPath: configPath,
		WorkDir:    workDir,
		CatalogURL: catalogURL,
		LogLevel:   logLevel,
	}

	if len(args) > 0 {
		options.Version = args[0]
	}

	if !noProgress {
		options.Progress = os.Stderr
	}

	path, err := acquire.Run(ctx, options)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), path)

	return err
}

func addFetchFlags(c *cobra.Command) {
	c.Flags().BoolVar(&noProgress, "no-progress", false, "do not draw the download progress bar")
	c.Flags().StringVar(&catalogURL, "catalog-url", "", "release catalog endpoint (https only)")
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	addFetchFlags(fetchCmd)
	rootCmd.AddCommand(fetchCmd)
}
