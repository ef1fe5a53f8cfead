package registry

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const echoToolYAML = `
tools:
  - name: echo
    description: Echoes a message
    inputSchema:
      type: object
      properties:
        msg:
          type: string
      required: [msg]
    routing:
      type: subprocess
      config:
        command: echo
        args: ["{{msg}}"]
        timeout: 1000
`

func TestRegistry_Reload_BasicLoad(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", echoToolYAML)

	r := New([]string{filepath.Join(dir, "*.yaml")}, ParseOptions{})
	require.NoError(t, r.Reload())

	snap := r.Current()
	rt, ok := snap.Lookup("echo")
	require.True(t, ok)
	assert.Equal(t, "Echoes a message", rt.Tool.Description)
	assert.Equal(t, 1, snap.Metadata.ToolCount)
}

func TestRegistry_Override_LastWriterWins(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, dir, "01.yaml", `
tools:
  - name: foo
    description: v1
    inputSchema: {type: object}
    routing: {type: http, config: {url: "http://a", method: GET}}
`)
	writeFile(t, dir, "02.yaml", `
tools:
  - name: foo
    description: v2
    inputSchema: {type: object}
    routing: {type: http, config: {url: "http://b", method: GET}}
`)

	r := New([]string{filepath.Join(dir, "*.yaml")}, ParseOptions{})
	require.NoError(t, r.Reload())

	snap := r.Current()
	rt, ok := snap.Lookup("foo")
	require.True(t, ok)
	assert.Equal(t, "v2", rt.Tool.Description)
	assert.Equal(t, filepath.Join(dir, "02.yaml"), rt.Origin)

	overrides := r.Overrides()
	require.Len(t, overrides, 1)
	assert.Equal(t, "foo", overrides[0].Name)
	assert.Equal(t, filepath.Join(dir, "02.yaml"), overrides[0].Winner)
	assert.Equal(t, []string{filepath.Join(dir, "01.yaml")}, overrides[0].Shadowed)
}

func TestRegistry_DuplicateNameWithinFile_Rejected(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, dir, "dup.yaml", `
tools:
  - name: dup
    description: one
    inputSchema: {type: object}
    routing: {type: http, config: {url: "http://a", method: GET}}
  - name: dup
    description: two
    inputSchema: {type: object}
    routing: {type: http, config: {url: "http://b", method: GET}}
`)

	r := New([]string{filepath.Join(dir, "*.yaml")}, ParseOptions{Strict: true})
	err := r.Reload()
	require.Error(t, err)
}

func TestRegistry_NonStrict_OneBadFileDoesNotPoisonOthers(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, dir, "good.yaml", echoToolYAML)
	writeFile(t, dir, "bad.yaml", "not: [valid")

	r := New([]string{filepath.Join(dir, "*.yaml")}, ParseOptions{Strict: false})
	require.NoError(t, r.Reload())

	_, ok := r.Current().Lookup("echo")
	assert.True(t, ok)
}

func TestRegistry_Strict_AbortsWholeRebuild(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, dir, "good.yaml", echoToolYAML)

	r := New([]string{filepath.Join(dir, "*.yaml")}, ParseOptions{Strict: true})
	require.NoError(t, r.Reload())
	_, ok := r.Current().Lookup("echo")
	require.True(t, ok)

	// Introduce a malformed file; strict mode must abort the rebuild and
	// preserve the previously-successful snapshot.
	writeFile(t, dir, "bad.yaml", "not: [valid")
	err := r.Reload()
	require.Error(t, err)

	_, ok = r.Current().Lookup("echo")
	assert.True(t, ok, "previous snapshot must be retained on strict-mode failure")
}

func TestSnapshot_VisibilityFiltering(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, dir, "mix.yaml", `
tools:
  - name: visible_tool
    description: visible
    inputSchema: {type: object}
    routing: {type: http, config: {url: "http://a", method: GET}}
  - name: hidden_tool
    description: hidden
    hidden: true
    inputSchema: {type: object}
    routing: {type: http, config: {url: "http://a", method: GET}}
  - name: disabled_tool
    description: disabled
    enabled: false
    inputSchema: {type: object}
    routing: {type: http, config: {url: "http://a", method: GET}}
`)

	r := New([]string{filepath.Join(dir, "*.yaml")}, ParseOptions{})
	require.NoError(t, r.Reload())
	snap := r.Current()

	all := snap.ListAllTools()
	assert.Len(t, all, 3)

	visible := snap.ListVisibleTools()
	assert.Len(t, visible, 1)
	assert.Equal(t, "visible_tool", visible[0].Tool.Name)

	// Name lookup ignores visibility.
	_, ok := snap.Lookup("hidden_tool")
	assert.True(t, ok)
	_, ok = snap.Lookup("disabled_tool")
	assert.True(t, ok)
}

func TestRegistry_HotReload_WatcherDetectsNewFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	r := New([]string{filepath.Join(dir, "*.yaml")}, ParseOptions{})
	require.NoError(t, r.Reload())
	_, ok := r.Current().Lookup("alpha")
	assert.False(t, ok)

	w, err := NewWatcher(r, 20*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, w.Watch(dir))
	defer w.Close()

	changed := make(chan struct{}, 4)
	w.OnChanged = func() { changed <- struct{}{} }
	go w.Run()

	writeFile(t, dir, "a.yaml", `
tools:
  - name: alpha
    description: alpha tool
    inputSchema: {type: object}
    routing: {type: http, config: {url: "http://a", method: GET}}
`)

	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for hot reload notification")
	}

	_, ok = r.Current().Lookup("alpha")
	assert.True(t, ok)
}

func TestValidName(t *testing.T) {
	t.Parallel()
	assert.True(t, ValidName("echo"))
	assert.True(t, ValidName("_private_tool1"))
	assert.False(t, ValidName("1bad"))
	assert.False(t, ValidName("bad-name"))
	assert.False(t, ValidName(""))
}
