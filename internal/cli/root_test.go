package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/leapstack-labs/querytables/internal/cli/config"
	clitestutil "github.com/leapstack-labs/querytables/internal/cli/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/leapstack-labs/querytables/pkg/adapters/postgres"
)

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	config.ResetConfig()

	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)

	err := root.Execute()
	return out.String(), errOut.String(), err
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := NewRootCmd()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"version", "split", "tables", "key", "dependents", "serve"} {
		assert.Contains(t, names, want)
	}

	for _, flag := range []string{"config", "target", "host", "port", "database", "user", "state", "verbose", "output"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestRootCmd_Key(t *testing.T) {
	t.Chdir(t.TempDir())

	out, _, err := execute(t, "", "key", "db1", "public", "tableone", "-o", "text")
	require.NoError(t, err)
	assert.Equal(t, "t:8ny9He\n", out)

	out, _, err = execute(t, "", "key", "db2", "public", "tablethree", "-o", "yaml")
	require.NoError(t, err)
	assert.Equal(t, "table: db2:public.tablethree\nkey: t:Oh18ac\n", out)
}

func TestRootCmd_SplitFromStdin(t *testing.T) {
	t.Chdir(t.TempDir())

	out, _, err := execute(t, "SELECT 1;\nSELECT 'a;b'", "split", "-o", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"statements": ["SELECT 1", "SELECT 'a;b'"]}`, out)
}

func TestRootCmd_ConfigFile(t *testing.T) {
	clitestutil.SetupProject(t, "output: text\nlog:\n  format: json\n")

	out, _, err := execute(t, "", "split", "SELECT 1; SELECT 2", "--verbose")
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1;\nSELECT 2;\n", out)
}

func TestRootCmd_InvalidOutput(t *testing.T) {
	t.Chdir(t.TempDir())

	_, _, err := execute(t, "", "key", "db", "public", "t", "-o", "markdown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}

func TestRootCmd_Version(t *testing.T) {
	out, _, err := execute(t, "", "--version")
	require.NoError(t, err)
	assert.Equal(t, "querytables "+Version+"\n", out)
}
