package cmd

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestRootCommand_Subcommands checks every subcommand is registered.
func TestRootCommand_Subcommands(t *testing.T) {
	for _, name := range []string{"fetch", "verify", "self-update"} {
		found, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err)
		require.Equal(t, name, found.Name())
	}

	for _, flag := range []string{"config", "log-level", "work-dir"} {
		require.NotNil(t, rootCmd.PersistentFlags().Lookup(flag), flag)
	}
}

// TestApplyLogLevel rejects unknown levels and accepts an empty flag.
func TestApplyLogLevel(t *testing.T) {
	logLevel = ""
	require.NoError(t, applyLogLevel(rootCmd, nil))

	logLevel = "loud"
	require.ErrorIs(t, applyLogLevel(rootCmd, nil), errUnknownLogLevel)

	logLevel = "info"
	require.NoError(t, applyLogLevel(rootCmd, nil))

	logLevel = ""
}
