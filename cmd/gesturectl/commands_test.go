package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phanxgames/gesture"
	"github.com/phanxgames/gesture/recording"
)

const replayScript = `
steps:
  - action: tap
    id: 1
    x: 10
    y: 10
  - action: wait
    ms: 100
  - action: drag
    id: 2
    fromX: 0
    fromY: 0
    toX: 200
    toY: 0
    frames: 5
`

type fixture struct {
	dir    string
	config string
	script string
	db     string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	f := fixture{
		dir:    dir,
		config: filepath.Join(dir, "gesture.toml"),
		script: filepath.Join(dir, "replay.yaml"),
		db:     filepath.Join(dir, "episodes.db"),
	}
	cfg := "log_level = \"error\"\n\n[recording]\npath = \"" + filepath.ToSlash(f.db) + "\"\n"
	require.NoError(t, os.WriteFile(f.config, []byte(cfg), 0o644))
	require.NoError(t, os.WriteFile(f.script, []byte(replayScript), 0o644))
	return f
}

func execute(t *testing.T, f fixture, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{"--config", f.config}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestReplayCommand(t *testing.T) {
	f := newFixture(t)
	out, err := execute(t, f, "replay", f.script)
	require.NoError(t, err)

	assert.Contains(t, out, "replaying "+f.script)
	assert.Contains(t, out, "tap")
	assert.Contains(t, out, "data=right")
	assert.Contains(t, out, "2 episodes")
	assert.NoFileExists(t, f.db)
}

func TestReplayWithScriptIdentifiers(t *testing.T) {
	f := newFixture(t)
	scripts := filepath.Join(f.dir, "identifiers")
	require.NoError(t, os.Mkdir(scripts, 0o755))
	js := `module.exports = {
  name: "anything",
  identify: function (touch) { return touch.isEnd ? { match: true, data: "done" } : null; }
};`
	require.NoError(t, os.WriteFile(filepath.Join(scripts, "anything.js"), []byte(js), 0o644))

	out, err := execute(t, f, "replay", "--identifiers", scripts, f.script)
	require.NoError(t, err)
	assert.Contains(t, out, "anything")
	assert.Contains(t, out, "data=done")
}

func TestReplayErrors(t *testing.T) {
	f := newFixture(t)
	_, err := execute(t, f, "replay", filepath.Join(f.dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(f.dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"steps": [{"action": "explode"}]}`), 0o644))
	_, err = execute(t, f, "replay", bad)
	assert.Error(t, err)
}

func TestRecordListExport(t *testing.T) {
	f := newFixture(t)
	_, err := execute(t, f, "replay", "--record", f.script)
	require.NoError(t, err)

	out, err := execute(t, f, "episodes", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "contacts=1")

	store, err := recording.Open(context.Background(), recording.Options{Path: f.db})
	require.NoError(t, err)
	list, err := store.List(context.Background(), 0)
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.Len(t, list, 2)

	out, err = execute(t, f, "episodes", "export", "--format", "json", list[0].ID.String())
	require.NoError(t, err)
	var script gesture.Script
	require.NoError(t, json.Unmarshal([]byte(out), &script))
	require.NotEmpty(t, script.Steps)
	assert.Equal(t, gesture.ScriptStep{Action: "press", ID: 2}, script.Steps[0])
	assert.Equal(t, "release", script.Steps[len(script.Steps)-1].Action)

	out, err = execute(t, f, "episodes", "export", list[1].ID.String())
	require.NoError(t, err)
	parsed, err := gesture.ParseScript([]byte(out))
	require.NoError(t, err)
	assert.Len(t, parsed.Steps, 3)

	_, err = execute(t, f, "episodes", "delete", list[1].ID.String())
	require.NoError(t, err)
	_, err = execute(t, f, "episodes", "delete", list[1].ID.String())
	assert.True(t, recording.IsNotFound(err))

	_, err = execute(t, f, "episodes", "export", "not-a-uuid")
	assert.Error(t, err)
}

func TestConfigShow(t *testing.T) {
	f := newFixture(t)
	out, err := execute(t, f, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "log_level")
	assert.Contains(t, out, "error")
	assert.Contains(t, out, "episodes.db")
}
