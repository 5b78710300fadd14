package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	// Collect subcommand names.
	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	// Verify expected subcommands are registered.
	expected := []string{"discover", "serve"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "discovery-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestDiscoverCommand_Flags(t *testing.T) {
	for _, name := range []string{"lat", "lng", "category", "mood", "distance", "social", "budget", "time", "batches"} {
		require.NotNil(t, discoverCmd.Flags().Lookup(name), "discover command should have --%s flag", name)
	}
	assert.Equal(t, "50", discoverCmd.Flags().Lookup("mood").DefValue)
	assert.Equal(t, "1", discoverCmd.Flags().Lookup("batches").DefValue)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}
