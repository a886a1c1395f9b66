package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "curator version "+Version)
}

func TestPartitionCommand(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "pdg.json")
	require.NoError(t, os.WriteFile(in, []byte(`{
  "nodes": [
    {"id": 0, "ast_size": 1}, {"id": 1, "ast_size": 1},
    {"id": 2, "ast_size": 1}, {"id": 3, "ast_size": 1}
  ],
  "edges": [
    {"src": 0, "dst": 1, "type": "control"},
    {"src": 1, "dst": 2, "type": "data"},
    {"src": 2, "dst": 3, "type": "data"}
  ]
}`), 0644))
	out := filepath.Join(dir, "parts.json")
	metricsOut := filepath.Join(dir, "metrics.prom")

	_, err := execute(t, "partition", in, "-o", out, "--threshold", "2",
		"--env-file", filepath.Join(dir, "absent.env"), "--metrics-out", metricsOut)
	require.NoError(t, err)
	assert.FileExists(t, out)
	assert.FileExists(t, metricsOut)
}

func TestSelectCommand(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "src")
	require.NoError(t, os.MkdirAll(root, 0755))
	for _, name := range []string{"a.js", "b.js", "c.js"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte("x = y + 1;"), 0644))
	}
	out := filepath.Join(dir, "selected.txt")

	_, err := execute(t, "select", root, "-o", out, "-k", "2", "--workers", "2",
		"--env-file", filepath.Join(dir, "absent.env"))
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "a.js")+"\n"+filepath.Join(root, "b.js"), string(data))
}

func TestConfigFileAndFlagValidation(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "curator.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("selection:\n  k: 1\n"), 0644))
	root := filepath.Join(dir, "src")
	require.NoError(t, os.MkdirAll(root, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.js"), []byte("x = 1;"), 0644))

	_, err := execute(t, "select", root, "--config", cfgPath, "--block-size", "0",
		"-o", filepath.Join(dir, "selected.txt"))
	assert.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "selected.txt"))
}

func TestArgsRequired(t *testing.T) {
	_, err := execute(t, "partition")
	assert.Error(t, err)

	_, err = execute(t, "select")
	assert.Error(t, err)
}
