package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/paper-fetch/internal/logger"
	"github.com/oshokin/paper-fetch/internal/version"
)

var errUnknownLogLevel = errors.New("unknown log level")

var (
	// configPath to the YAML or TOML settings file.
	configPath string
	// logLevel overrides the configured log level.
	logLevel string
	// workDir overrides the configured work directory.
	workDir string

	// rootCmd fetches the server jar when called without a subcommand.
	rootCmd = &cobra.Command{
		Use:   version.Name + " [version]",
		Short: "Download and verify a Paper server jar.",
		Long: `Acquires a Paper server jar from the PaperMC release catalog and keeps it trustworthy.

An existing paper-*.jar in the work directory is reused after its SHA-256 digest
is checked against the <jar>.sha256 file next to it. Without a local jar, the
latest build of the requested version (or of the newest version for "latest")
is downloaded, validated and recorded.

The path of the verified jar is printed on stdout; logs go to stderr.`,
		Args:              cobra.MaximumNArgs(1),
		SilenceUsage:      true,
		PersistentPreRunE: applyLogLevel,
		RunE:              runFetch,
	}
)

// Execute runs the paper-fetch CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
}

func applyLogLevel(_ *cobra.Command, _ []string) error {
	if logLevel == "" {
		return nil
	}

	level, ok := logger.ParseLogLevel(logLevel)
	if !ok {
		return fmt.Errorf("%w: %q", errUnknownLogLevel, logLevel)
	}

	logger.SetLevel(level)

	return nil
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "path to a YAML or TOML settings file (default paper-fetch.yaml if present)")
	flags.StringVarP(&logLevel, "log-level", "l", "", "log level: debug, info, warn or error")
	flags.StringVarP(&workDir, "work-dir", "w", "", "directory holding the server jar")

	addFetchFlags(rootCmd)
}
