package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aretw0/botflow/internal/config"
	"github.com/aretw0/botflow/internal/testutils"
	"github.com/aretw0/botflow/pkg/domain"
	"github.com/aretw0/botflow/pkg/flowfile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "", "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "botflow version "), out)
}

// The commands share cobra's global flag state, so one test walks through
// a whole workspace with the same --config.
func TestCommands_Workspace(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "botflow.yaml")

	c := config.DefaultConfig()
	c.Store.Driver = config.DriverSQLite
	c.Store.SQLitePath = filepath.Join(dir, "flows.db")
	c.Sessions.Dir = filepath.Join(dir, "sessions")
	c.Log.Level = "error"
	require.NoError(t, c.Save(cfgPath))

	flowPath := filepath.Join(dir, "greeting.yaml")
	require.NoError(t, flowfile.Save(flowPath, domain.StoredFlow{Name: "Greeting", FlowData: testutils.Greeting()}))

	out, err := run(t, "", "flows", "ls", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "No flows stored.")

	out, err = run(t, "", "flows", "import", flowPath, "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 'Greeting' as flow 1")

	out, err = run(t, "", "flows", "ls", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Greeting")
	assert.Regexp(t, `1\s+Greeting\s+4\s+3`, out)

	out, err = run(t, "", "flows", "show", "1", "--config", cfgPath)
	require.NoError(t, err)
	got, err := flowfile.Decode([]byte(out), flowfile.FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.ID)
	assert.Len(t, got.FlowData.Nodes, 4)

	exportPath := filepath.Join(dir, "export.json")
	_, err = run(t, "", "flows", "export", "1", "-o", exportPath, "--config", cfgPath)
	require.NoError(t, err)
	exported, err := flowfile.Load(exportPath)
	require.NoError(t, err)
	assert.Equal(t, "Greeting", exported.Name)

	_, err = run(t, "", "flows", "show", "abc", "--config", cfgPath)
	assert.ErrorContains(t, err, "invalid flow id")

	out, err = run(t, "", "graph", "--config", cfgPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "graph TD\n"), out)

	out, err = run(t, "Alice\n", "chat", "--plain", "--session", "cli-1", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "bot> What is your name?")
	assert.Contains(t, out, "Conversation finished.")

	out, err = run(t, "", "session", "ls", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "- cli-1")

	out, err = run(t, "", "session", "inspect", "cli-1", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, `"Alice"`)

	out, err = run(t, "", "session", "rm", "cli-1", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Removed session 'cli-1'")
}

func TestRoot_InvalidConfig(t *testing.T) {
	_, err := run(t, "", "flows", "ls", "--config", filepath.Join(t.TempDir(), "missing.yaml"), "--log-format", "xml")
	assert.Error(t, err)
}
