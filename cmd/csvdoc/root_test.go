package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cliEnv struct {
	dir    string
	config string
}

func newCLIEnv(t *testing.T) cliEnv {
	t.Helper()
	dir := t.TempDir()
	config := filepath.Join(dir, "csvdoc.yaml")
	body := `
document: notes
store:
  driver: sqlite
  path: ` + filepath.Join(dir, "csvdoc.db") + `
seed:
  empty: true
columns:
  constrained: [Status]
rules:
  - name: status-set
    column: Status
    expr: 'value != ""'
    message: status is required
log:
  level: error
`
	require.NoError(t, os.WriteFile(config, []byte(body), 0o600))
	return cliEnv{dir: dir, config: config}
}

func (env cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config", env.config}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestImportExportRoundTrip(t *testing.T) {
	env := newCLIEnv(t)
	input := filepath.Join(env.dir, "in.csv")
	require.NoError(t, os.WriteFile(input, []byte("Name,Status\n\"Smith, J\",open\nLee,closed\n"), 0o600))

	out, err := env.run(t, "import", input)
	require.NoError(t, err)
	assert.Equal(t, "imported 2 rows, 2 columns\n", out)

	output := filepath.Join(env.dir, "out.csv")
	_, err = env.run(t, "export", "-o", output)
	require.NoError(t, err)
	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "Name,Status\n\"Smith, J\",open\nLee,closed", string(data))
}

func TestColumnCommands(t *testing.T) {
	env := newCLIEnv(t)
	input := filepath.Join(env.dir, "in.csv")
	require.NoError(t, os.WriteFile(input, []byte("Name,Status\nA,open\n"), 0o600))
	_, err := env.run(t, "import", input)
	require.NoError(t, err)

	_, err = env.run(t, "columns", "add", "Kind", "--constrained", "--option", "x", "--option", "y")
	require.NoError(t, err)
	_, err = env.run(t, "options", "set", "Status", "open", "done")
	require.NoError(t, err)

	out, err := env.run(t, "columns", "list")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Name\ttext\t150\t", lines[0])
	assert.Equal(t, "Status\toptions\t150\tdone|open", lines[1])
	assert.Equal(t, "Kind\toptions\t150\tx|y", lines[2])

	_, err = env.run(t, "columns", "remove", "Kind")
	require.NoError(t, err)
	_, err = env.run(t, "columns", "remove", "Kind")
	require.Error(t, err)
}

func TestCheckCommand(t *testing.T) {
	env := newCLIEnv(t)
	input := filepath.Join(env.dir, "in.csv")
	require.NoError(t, os.WriteFile(input, []byte("Name,Status\nA,open\nB,\n"), 0o600))
	_, err := env.run(t, "import", input)
	require.NoError(t, err)

	out, err := env.run(t, "check")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errViolations))
	assert.Contains(t, out, "status is required")
}

func TestInvalidConfigFlag(t *testing.T) {
	env := newCLIEnv(t)
	_, err := env.run(t, "--store", "postgres", "export")
	require.Error(t, err)
}

func TestConfigCommand(t *testing.T) {
	env := newCLIEnv(t)
	out, err := env.run(t, "--document", "override", "config")
	require.NoError(t, err)
	assert.Contains(t, out, "document: override")
	assert.Contains(t, out, "driver: sqlite")

	out, err = env.run(t, "config", "--trace")
	require.NoError(t, err)
	assert.Contains(t, out, "document\tfile\tnotes")
	assert.Contains(t, out, "history.depth\tdefault\t100")
}
