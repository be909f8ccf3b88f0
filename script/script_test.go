package script

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phanxgames/gesture"
)

const tapScript = `
module.exports = {
  name: "tap",
  identify: function (touch, identified, data) {
    if (!touch.isEnd) return null;
    var s = touch.sequences[0];
    if (s.maxRadius < 10 && s.timeLasting < 300) {
      return { result: "identified", match: true, data: { x: s.points[0].x, n: s.points.length } };
    }
    return { result: "identified", match: false };
  }
};
`

func writeScript(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func newArbiter(t *testing.T) (*gesture.Arbiter, *gesture.Injector) {
	t.Helper()
	clock := gesture.NewManualClock(time.Time{})
	a := gesture.New(gesture.WithClock(clock))
	t.Cleanup(func() { _ = a.Close() })
	return a, gesture.NewInjector(a, clock)
}

func TestLoadAndIdentify(t *testing.T) {
	path := writeScript(t, t.TempDir(), "tap.js", tapScript)
	id, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "tap", id.Name())
	assert.Equal(t, path, id.Path())

	a, in := newArbiter(t)
	var got []any
	a.NewDelegate().On(id, func(ev *gesture.Event) error {
		got = append(got, ev.Data)
		return nil
	})

	in.Tap(1, 4, 4)
	require.Len(t, got, 1)
	assert.Equal(t, map[string]any{"x": int64(4), "n": int64(2)}, got[0])

	in.Hold(1, 4, 4, time.Second)
	assert.Len(t, got, 1)
}

func TestResultMapping(t *testing.T) {
	tests := []struct {
		name string
		body string
		want gesture.Result
	}{
		{"null is pending", `return null;`, gesture.Pending{}},
		{"explicit pending", `return { result: "pending" };`, gesture.Pending{}},
		{"defer", `return { result: "defer", timeout: 250 };`, gesture.DeferUntil{Timeout: 250 * time.Millisecond}},
		{"unknown match", `return { result: "identified", continuing: true };`, gesture.Identified{Continuing: true}},
		{"no match", `return { match: false };`, gesture.Identified{Match: gesture.NoMatch}},
		{"match", `return { match: true, data: "x" };`, gesture.Identified{Match: gesture.Matched, Data: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := Compile("probe", `module.exports = { identify: function () { `+tt.body+` } };`)
			require.NoError(t, err)
			assert.Equal(t, "probe", id.Name())

			res, err := id.Identify(nil, false, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res)
		})
	}
}

func TestSessionSnapshot(t *testing.T) {
	id, err := Compile("count", `module.exports = {
  identify: function (touch, identified, data) {
    return { match: true, data: [touch.sequences.length, touch.activeCount, identified, data] };
  }
};`)
	require.NoError(t, err)

	a, in := newArbiter(t)
	var got []any
	a.NewDelegate().On(id, func(ev *gesture.Event) error {
		got = append(got, ev.Data)
		ev.StopAll()
		return nil
	})

	in.Press(1, 0, 0)
	in.Press(2, 10, 10)
	require.Len(t, got, 1)
	assert.Equal(t, []any{int64(1), int64(1), false, nil}, got[0])
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"syntax", `module.exports = {`},
		{"missing identify", `module.exports = { name: "broken" };`},
		{"identify not a function", `module.exports = { identify: 42 };`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile("bad", tt.src)
			assert.Error(t, err)
		})
	}
}

func TestIdentifyErrors(t *testing.T) {
	thrower, err := Compile("thrower", `module.exports = { identify: function () { throw new Error("boom"); } };`)
	require.NoError(t, err)
	_, err = thrower.Identify(nil, false, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	unknown, err := Compile("unknown", `module.exports = { identify: function () { return { result: "maybe" }; } };`)
	require.NoError(t, err)
	_, err = unknown.Identify(nil, false, nil)
	assert.Error(t, err)

	spin, err := Compile("spin", `module.exports = { identify: function () { for (;;) {} } };`, WithTimeout(20*time.Millisecond))
	require.NoError(t, err)
	_, err = spin.Identify(nil, false, nil)
	assert.True(t, errors.Is(err, ErrTimeout), "got %v", err)

	// The runtime is usable again after an interrupt.
	_, err = spin.Identify(nil, false, nil)
	assert.True(t, errors.Is(err, ErrTimeout))
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "b.js", `module.exports = { identify: function () { return null; } };`)
	writeScript(t, dir, "a.js", tapScript)
	writeScript(t, dir, "notes.txt", "ignored")

	ids, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.Equal(t, "tap", ids[0].Name())
	assert.Equal(t, "b", ids[1].Name())

	writeScript(t, dir, "c.js", `module.exports = {};`)
	_, err = LoadDir(dir)
	assert.Error(t, err)
}

func TestStaleInterruptIsCleared(t *testing.T) {
	id, err := Compile("tap", tapScript, WithTimeout(time.Second))
	require.NoError(t, err)

	// An interrupt left over from an earlier call's timer.
	id.vm.Interrupt(ErrTimeout)

	res, err := id.Identify(nil, false, nil)
	require.NoError(t, err)
	assert.Equal(t, gesture.Pending{}, res)
}
