package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/weaver/internal/observability"
)

func runCmd(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("SCHEMA_PATH", "")
	observability.ResetForTest()

	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionFlag(t *testing.T) {
	out, err := runCmd(t, "", "--version")
	require.NoError(t, err)
	assert.Equal(t, Version+"\n", out)
}

func TestSchemaPrint(t *testing.T) {
	out, err := runCmd(t, "", "schema", "print")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "{\n  \"nodes\": {"))
	assert.Contains(t, out, `"ExperientialScene"`)
}

func TestSchemaStatements(t *testing.T) {
	out, err := runCmd(t, "", "schema", "statements", "--dimensions", "384")
	require.NoError(t, err)
	assert.Contains(t, out, "`vector.dimensions`: 384")
	assert.Contains(t, out, "CREATE CONSTRAINT")
}

func TestSchemaPrintCustomFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[[nodes]]
label = "Recipe"
primary_key = "recipe_name"

[[nodes.properties]]
name = "recipe_name"
type = "STRING"
`), 0o644))

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("[schema]\npath = \""+filepath.ToSlash(path)+"\"\n"), 0o644))

	out, err := runCmd(t, "", "--config", cfgPath, "schema", "print")
	require.NoError(t, err)
	assert.Contains(t, out, `"Recipe"`)
	assert.NotContains(t, out, `"ExperientialScene"`)
}

func TestMissingExplicitConfig(t *testing.T) {
	_, err := runCmd(t, "", "--config", "/nonexistent/weaver.toml", "schema", "print")
	assert.Error(t, err)
}

func TestImportRequiresArgument(t *testing.T) {
	_, err := runCmd(t, "", "import")
	assert.Error(t, err)
}

func TestReadInput(t *testing.T) {
	data, err := readInput("-", strings.NewReader(`{"nodes":{}}`))
	require.NoError(t, err)
	assert.Equal(t, `{"nodes":{}}`, string(data))

	path := filepath.Join(t.TempDir(), "bundle.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))
	data, err = readInput(path, nil)
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(data))

	_, err = readInput(filepath.Join(t.TempDir(), "missing.json"), nil)
	assert.ErrorContains(t, err, "failed to read")
}
