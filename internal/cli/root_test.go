package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "odataql", cmd.Use)
	assert.Contains(t, cmd.Long, "parameterized SQL")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"validate", "compile", "query", "log", "replay", "test"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestRequestCommandFlags(t *testing.T) {
	for _, name := range []string{"compile", "query"} {
		t.Run(name, func(t *testing.T) {
			cmd, _, err := NewRootCommand().Find([]string{name})
			require.NoError(t, err)

			for _, flag := range []string{"set", "query", "filter", "orderby", "select", "top", "skip", "max-rows"} {
				assert.NotNil(t, cmd.Flags().Lookup(flag), "missing --%s", flag)
			}
			assert.Equal(t, "-1", cmd.Flags().Lookup("top").DefValue)
		})
	}
}

func TestCompileCommandFlags(t *testing.T) {
	compileCmd, _, err := NewRootCommand().Find([]string{"compile"})
	require.NoError(t, err)

	outputFlag := compileCmd.Flags().Lookup("output")
	require.NotNil(t, outputFlag)
	assert.Equal(t, "o", outputFlag.Shorthand)
	assert.Nil(t, compileCmd.Flags().Lookup("db"))
}

func TestDatabaseCommandFlags(t *testing.T) {
	for _, name := range []string{"query", "log", "replay"} {
		t.Run(name, func(t *testing.T) {
			cmd, _, err := NewRootCommand().Find([]string{name})
			require.NoError(t, err)

			dbFlag := cmd.Flags().Lookup("db")
			require.NotNil(t, dbFlag)
			// --db is required, so default is empty
			assert.Equal(t, "", dbFlag.DefValue)

			driverFlag := cmd.Flags().Lookup("driver")
			require.NotNil(t, driverFlag)
			assert.Equal(t, "sqlite3", driverFlag.DefValue)
		})
	}
}

func TestTestCommandFlags(t *testing.T) {
	testCmd, _, err := NewRootCommand().Find([]string{"test"})
	require.NoError(t, err)

	updateFlag := testCmd.Flags().Lookup("update")
	require.NotNil(t, updateFlag)
	assert.Equal(t, "false", updateFlag.DefValue)

	assert.NotNil(t, testCmd.Flags().Lookup("filter"))
	assert.NotNil(t, testCmd.Flags().Lookup("golden-dir"))
}

func TestFormatValidation(t *testing.T) {
	// Test valid formats
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))

	// Test invalid formats
	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
	assert.False(t, isValidFormat("TEXT"))
}

func TestFormatValidationIntegration(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--format", "invalid", "validate", "."})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}
