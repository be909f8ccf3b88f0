package gesture

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// ScriptStep is a single action in a replay script.
type ScriptStep struct {
	Action string  `json:"action" yaml:"action"`
	ID     int     `json:"id,omitempty" yaml:"id,omitempty"`
	X      float64 `json:"x,omitempty" yaml:"x,omitempty"`
	Y      float64 `json:"y,omitempty" yaml:"y,omitempty"`
	FromX  float64 `json:"fromX,omitempty" yaml:"fromX,omitempty"`
	FromY  float64 `json:"fromY,omitempty" yaml:"fromY,omitempty"`
	ToX    float64 `json:"toX,omitempty" yaml:"toX,omitempty"`
	ToY    float64 `json:"toY,omitempty" yaml:"toY,omitempty"`
	Frames int     `json:"frames,omitempty" yaml:"frames,omitempty"`
	MS     int     `json:"ms,omitempty" yaml:"ms,omitempty"`
}

// Script is the top-level structure of a replay script.
type Script struct {
	Steps []ScriptStep `json:"steps" yaml:"steps"`
}

// ParseScript decodes a script. Documents starting with '{' are read as
// JSON, anything else as YAML.
func ParseScript(data []byte) (Script, error) {
	var script Script
	trimmed := bytes.TrimSpace(data)
	var err error
	if len(trimmed) > 0 && trimmed[0] == '{' {
		err = json.Unmarshal(trimmed, &script)
	} else {
		err = yaml.Unmarshal(trimmed, &script)
	}
	if err != nil {
		return Script{}, fmt.Errorf("parse test script: %w", err)
	}
	if len(script.Steps) == 0 {
		return Script{}, fmt.Errorf("parse test script: no steps")
	}
	for i, st := range script.Steps {
		switch st.Action {
		case "press", "move", "release", "tap", "hold", "drag", "wait":
		default:
			return Script{}, fmt.Errorf("parse test script: step %d: unknown action %q", i, st.Action)
		}
	}
	return script, nil
}

// TestRunner plays a Script through an Injector, one step at a time.
type TestRunner struct {
	steps  []ScriptStep
	cursor int
	done   bool
}

// NewTestRunner creates a runner for script.
func NewTestRunner(script Script) *TestRunner {
	return &TestRunner{steps: script.Steps, done: len(script.Steps) == 0}
}

// LoadTestScript parses a JSON or YAML script and returns a TestRunner
// ready to play it.
func LoadTestScript(data []byte) (*TestRunner, error) {
	script, err := ParseScript(data)
	if err != nil {
		return nil, err
	}
	return NewTestRunner(script), nil
}

// Done reports whether all steps have been executed.
func (r *TestRunner) Done() bool {
	return r.done
}

// Step executes the next step. It returns false once the script is done.
func (r *TestRunner) Step(in *Injector) bool {
	if r.done {
		return false
	}

	st := r.steps[r.cursor]
	r.cursor++

	switch st.Action {
	case "press":
		in.Press(st.ID, st.X, st.Y)
	case "move":
		in.Move(st.ID, st.X, st.Y)
	case "release":
		in.Release(st.ID)
	case "tap":
		in.Tap(st.ID, st.X, st.Y)
	case "hold":
		in.Hold(st.ID, st.X, st.Y, time.Duration(st.MS)*time.Millisecond)
	case "drag":
		in.Drag(st.ID, st.FromX, st.FromY, st.ToX, st.ToY, st.Frames)
	case "wait":
		in.Wait(time.Duration(st.MS) * time.Millisecond)
	}

	if r.cursor >= len(r.steps) {
		r.done = true
	}
	return true
}

// Run executes every remaining step.
func (r *TestRunner) Run(in *Injector) {
	for r.Step(in) {
	}
}
