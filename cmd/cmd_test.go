package cmd

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mabhi256/hotscope/internal/config"
	"github.com/mabhi256/hotscope/internal/testutil"
)

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// execute runs the root command in an isolated home and working directory
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func workspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Chdir(dir)
	return dir
}

func screenClass(key, body int32) []byte {
	return testutil.SimpleClass("com/example/ScreenKt", key, body)
}

var hexKey = regexp.MustCompile(`^[0-9a-f]{16}\n$`)

func TestVersion(t *testing.T) {
	workspace(t)
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "hotscope version dev\n", out)

	out, err = execute(t, "version", "-v")
	require.NoError(t, err)
	assert.Contains(t, out, "go:       go")
}

func TestAnalyze(t *testing.T) {
	dir := workspace(t)
	testutil.WriteFile(t, dir, "classes/com/example/ScreenKt.class", screenClass(100, 1))

	out, err := execute(t, "analyze", "classes")
	require.NoError(t, err)
	assert.Contains(t, out, "class com/example/ScreenKt\n")
	assert.Contains(t, out, "  Content(Landroidx/compose/runtime/Composer;I)V\n")
	assert.Contains(t, out, "RestartGroup key=100")

	out, err = execute(t, "analyze", "classes", "-o", "json")
	require.NoError(t, err)
	var doc struct {
		Classes []string         `json:"classes"`
		Scopes  []map[string]any `json:"scopes"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, []string{"com/example/ScreenKt"}, doc.Classes)
	assert.Len(t, doc.Scopes, 1)

	_, err = execute(t, "analyze", "classes", "-o", "yaml")
	assert.ErrorContains(t, err, "invalid output format")

	_, err = execute(t, "analyze", "missing")
	assert.Error(t, err)
}

func TestKey(t *testing.T) {
	dir := workspace(t)
	testutil.WriteFile(t, dir, "classes/com/example/ScreenKt.class", screenClass(-7, 1))

	out, err := execute(t, "key", "--", "-7", "classes")
	require.NoError(t, err)
	assert.Regexp(t, hexKey, out)

	out, err = execute(t, "key", "remember", "classes")
	require.NoError(t, err)
	assert.Equal(t, "0000000000000000\n", out)

	_, err = execute(t, "key", "12345", "classes")
	assert.ErrorContains(t, err, "unknown group: 12345")

	_, err = execute(t, "key", "abc", "classes")
	assert.Error(t, err)
}

func TestGroups(t *testing.T) {
	dir := workspace(t)
	testutil.WriteFile(t, dir, "classes/AKt.class", testutil.SimpleClass("AKt", 100, 1))
	testutil.WriteFile(t, dir, "classes/BKt.class", testutil.SimpleClass("BKt", 200, 1))

	out, err := execute(t, "groups", "classes")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"GROUP", "KEY", "SCOPES"}, strings.Fields(lines[0]))
	assert.Equal(t, "100", strings.Fields(lines[1])[0])
	assert.Equal(t, "200", strings.Fields(lines[2])[0])

	out, err = execute(t, "groups", "classes", "-o", "json")
	require.NoError(t, err)
	var entries []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	assert.Len(t, entries, 2)
	assert.Equal(t, float64(100), entries[0]["group"])
}

func TestDiff(t *testing.T) {
	dir := workspace(t)
	testutil.WriteFile(t, dir, "old/ScreenKt.class", screenClass(100, 1))
	testutil.WriteFile(t, dir, "old/OtherKt.class", testutil.SimpleClass("OtherKt", 200, 1))
	testutil.WriteFile(t, dir, "new/ScreenKt.class", screenClass(100, 2))
	testutil.WriteFile(t, dir, "new/OtherKt.class", testutil.SimpleClass("OtherKt", 200, 1))

	out, err := execute(t, "diff", "old", "new")
	require.NoError(t, err)
	assert.Contains(t, out, "invalidated 100 ")
	assert.NotContains(t, out, "unchanged   200")
	assert.Contains(t, out, "1 invalidated, 0 added, 0 removed, 1 unchanged\n")

	out, err = execute(t, "diff", "old", "new", "--all")
	require.NoError(t, err)
	assert.Contains(t, out, "unchanged   200")

	out, err = execute(t, "diff", "old", "old", "-o", "json")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)
}

func TestConfigInitAndShow(t *testing.T) {
	dir := workspace(t)

	out, err := execute(t, "config", "init")
	require.NoError(t, err)
	assert.Equal(t, "Wrote hotscope.toml\n", out)
	assert.FileExists(t, filepath.Join(dir, "hotscope.toml"))

	_, err = execute(t, "config", "init")
	assert.ErrorContains(t, err, "already exists")

	_, err = execute(t, "config", "init", "--force")
	require.NoError(t, err)

	out, err = execute(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "[analysis]")

	out, err = execute(t, "config", "show", "-o", "json")
	require.NoError(t, err)
	var shown config.Config
	require.NoError(t, json.Unmarshal([]byte(out), &shown))
	assert.Equal(t, *config.DefaultConfig(), shown)
}

func TestInvalidConfigFails(t *testing.T) {
	dir := workspace(t)
	path := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[logging]\nformat = \"xml\"\n"), 0o644))

	_, err := execute(t, "--config", path, "groups", dir)
	var cfgErr *config.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "logging.format", cfgErr.Field)

	// version never reads configuration
	_, err = execute(t, "--config", path, "version")
	assert.NoError(t, err)
}

func TestVerbosityOverridesConfig(t *testing.T) {
	workspace(t)

	_, err := execute(t, "-q", "version")
	require.NoError(t, err)
	assert.False(t, logger.Enabled(t.Context(), slog.LevelError))

	_, err = execute(t, "-vv", "version")
	require.NoError(t, err)
	assert.True(t, logger.Enabled(t.Context(), slog.LevelDebug))
}
