package gesture

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScriptJSON(t *testing.T) {
	script, err := ParseScript([]byte(`{"steps": [
		{"action": "tap", "id": 1, "x": 10, "y": 20},
		{"action": "wait", "ms": 250},
		{"action": "drag", "id": 2, "fromX": 0, "fromY": 0, "toX": 50, "toY": 0, "frames": 3}
	]}`))
	require.NoError(t, err)
	require.Len(t, script.Steps, 3)
	assert.Equal(t, ScriptStep{Action: "tap", ID: 1, X: 10, Y: 20}, script.Steps[0])
	assert.Equal(t, 250, script.Steps[1].MS)
	assert.Equal(t, 3, script.Steps[2].Frames)
}

func TestParseScriptYAML(t *testing.T) {
	script, err := ParseScript([]byte(`
steps:
  - action: press
    id: 1
    x: 5
    y: 6
  - action: release
    id: 1
`))
	require.NoError(t, err)
	require.Len(t, script.Steps, 2)
	assert.Equal(t, ScriptStep{Action: "press", ID: 1, X: 5, Y: 6}, script.Steps[0])
}

func TestParseScriptErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"invalid json", `{"steps": [`},
		{"no steps", `{"steps": []}`},
		{"unknown action", `{"steps": [{"action": "screenshot"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadTestScript([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestTestRunnerReplays(t *testing.T) {
	a, clock := newTestArbiter(t)
	var episodes []Episode
	a.OnEpisodeEnd(func(ep Episode) { episodes = append(episodes, ep) })

	runner, err := LoadTestScript([]byte(`{"steps": [
		{"action": "tap", "id": 1, "x": 10, "y": 20},
		{"action": "wait", "ms": 500},
		{"action": "press", "id": 3, "x": 0, "y": 0},
		{"action": "move", "id": 3, "x": 5, "y": 0},
		{"action": "release", "id": 3},
		{"action": "hold", "id": 1, "x": 1, "y": 1, "ms": 700}
	]}`))
	require.NoError(t, err)

	in := NewInjector(a, clock)
	start := clock.Now()

	assert.False(t, runner.Done())
	assert.True(t, runner.Step(in))
	require.Len(t, episodes, 1)

	runner.Run(in)
	assert.True(t, runner.Done())
	assert.False(t, runner.Step(in))

	require.Len(t, episodes, 3)
	assert.Equal(t, 3, episodes[1].Sequences[0].Len())
	assert.Equal(t, DefaultFrame+500*time.Millisecond+700*time.Millisecond, clock.Now().Sub(start))
}
