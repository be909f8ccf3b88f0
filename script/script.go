// Package script runs gesture identifiers written in JavaScript.
//
// A script is a CommonJS-style module:
//
//	module.exports = {
//	  name: "tap",
//	  identify: function (touch, identified, data) {
//	    if (!touch.isEnd) return null;
//	    var s = touch.sequences[0];
//	    return { result: "identified", match: s.maxRadius < 10 };
//	  }
//	};
//
// identify returns null (pending), {result: "defer", timeout: ms} or
// {result: "identified", match, continuing, data}. A missing match leaves the
// verdict unknown.
package script

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"

	"github.com/phanxgames/gesture"
)

// DefaultTimeout bounds a single identify call.
const DefaultTimeout = 50 * time.Millisecond

// ErrTimeout is returned when identify runs longer than its timeout.
var ErrTimeout = errors.New("script: identify timed out")

// Identifier is a gesture.Identifier backed by a JavaScript module. Calls are
// serialized since a goja runtime is not safe for concurrent use.
type Identifier struct {
	name    string
	path    string
	timeout time.Duration

	mu       sync.Mutex
	vm       *goja.Runtime
	identify goja.Callable
}

// Option configures an Identifier.
type Option func(*Identifier)

// WithTimeout bounds each identify call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(id *Identifier) { id.timeout = d }
}

// Load reads and compiles the script at path. The module name defaults to the
// file name without extension.
func Load(path string, opts ...Option) (*Identifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("script: read %s: %w", path, err)
	}
	fallback := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	id, err := Compile(fallback, string(data), opts...)
	if err != nil {
		return nil, err
	}
	id.path = path
	return id, nil
}

// LoadDir loads every .js file in dir, sorted by file name.
func LoadDir(dir string, opts ...Option) ([]*Identifier, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.js"))
	if err != nil {
		return nil, fmt.Errorf("script: list %s: %w", dir, err)
	}
	sort.Strings(matches)

	ids := make([]*Identifier, 0, len(matches))
	for _, path := range matches {
		id, err := Load(path, opts...)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Compile evaluates source and returns the identifier it exports. name is
// used when the module does not export one.
func Compile(name, source string, opts ...Option) (*Identifier, error) {
	vm := goja.New()
	exports := vm.NewObject()
	module := vm.NewObject()
	_ = module.Set("exports", exports)
	_ = vm.Set("module", module)
	_ = vm.Set("exports", exports)

	if _, err := vm.RunString(source); err != nil {
		return nil, fmt.Errorf("script %s: execute: %w", name, err)
	}

	if v := module.Get("exports"); v != nil && !goja.IsUndefined(v) && !goja.IsNull(v) {
		exports = v.ToObject(vm)
	}

	id := &Identifier{name: name, vm: vm, timeout: DefaultTimeout}
	if v := exports.Get("name"); v != nil && !goja.IsUndefined(v) {
		id.name = v.String()
	}

	fn := exports.Get("identify")
	if fn == nil || goja.IsUndefined(fn) {
		return nil, fmt.Errorf("script %s: missing identify function", id.name)
	}
	call, ok := goja.AssertFunction(fn)
	if !ok {
		return nil, fmt.Errorf("script %s: identify must be a function", id.name)
	}
	id.identify = call

	for _, opt := range opts {
		opt(id)
	}
	return id, nil
}

// Name returns the exported module name.
func (id *Identifier) Name() string { return id.name }

// Path returns the file the identifier was loaded from, if any.
func (id *Identifier) Path() string { return id.path }

// Identify calls the script's identify function with a snapshot of touch.
func (id *Identifier) Identify(touch *gesture.Session, identified bool, data any) (gesture.Result, error) {
	id.mu.Lock()
	defer id.mu.Unlock()

	if id.timeout > 0 {
		// A timer that already fired for an earlier call must not abort
		// this one.
		id.vm.ClearInterrupt()
		var (
			guard    sync.Mutex
			finished bool
		)
		timer := time.AfterFunc(id.timeout, func() {
			guard.Lock()
			defer guard.Unlock()
			if !finished {
				id.vm.Interrupt(ErrTimeout)
			}
		})
		defer func() {
			timer.Stop()
			guard.Lock()
			finished = true
			guard.Unlock()
			id.vm.ClearInterrupt()
		}()
	}

	ret, err := id.identify(goja.Undefined(),
		id.vm.ToValue(sessionValue(touch)),
		id.vm.ToValue(identified),
		id.vm.ToValue(data),
	)
	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			return nil, fmt.Errorf("script %s: %w", id.name, ErrTimeout)
		}
		return nil, fmt.Errorf("script %s: %w", id.name, err)
	}
	return id.result(ret)
}

func (id *Identifier) result(v goja.Value) (gesture.Result, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return gesture.Pending{}, nil
	}
	obj := v.ToObject(id.vm)

	kind := "identified"
	if r := obj.Get("result"); r != nil && !goja.IsUndefined(r) {
		kind = r.String()
	}

	switch kind {
	case "pending":
		return gesture.Pending{}, nil
	case "defer":
		var ms int64
		if t := obj.Get("timeout"); t != nil && !goja.IsUndefined(t) {
			ms = t.ToInteger()
		}
		return gesture.DeferUntil{Timeout: time.Duration(ms) * time.Millisecond}, nil
	case "identified":
		res := gesture.Identified{}
		if m := obj.Get("match"); m != nil && !goja.IsUndefined(m) && !goja.IsNull(m) {
			if m.ToBoolean() {
				res.Match = gesture.Matched
			} else {
				res.Match = gesture.NoMatch
			}
		}
		if c := obj.Get("continuing"); c != nil {
			res.Continuing = c.ToBoolean()
		}
		if d := obj.Get("data"); d != nil && !goja.IsUndefined(d) {
			res.Data = d.Export()
		}
		return res, nil
	default:
		return nil, fmt.Errorf("script %s: unknown result %q", id.name, kind)
	}
}

// sessionValue flattens touch into plain values. Point times are
// milliseconds since the first point of their sequence.
func sessionValue(touch *gesture.Session) map[string]any {
	if touch == nil {
		return map[string]any{"sequences": []any{}}
	}
	seqs := touch.Sequences()
	out := make([]any, 0, len(seqs))
	for _, seq := range seqs {
		points := seq.Points()
		pts := make([]any, 0, len(points))
		var start time.Time
		if len(points) > 0 {
			start = points[0].Time
		}
		for _, p := range points {
			pts = append(pts, map[string]any{
				"x":       p.X,
				"y":       p.Y,
				"time":    float64(p.Time.Sub(start)) / float64(time.Millisecond),
				"isStart": p.IsStart,
				"isEnd":   p.IsEnd,
			})
		}
		v := seq.Velocity()
		diff, _ := seq.Diff()
		out = append(out, map[string]any{
			"id":          seq.ID(),
			"points":      pts,
			"ended":       seq.Ended(),
			"diff":        map[string]any{"x": diff.X, "y": diff.Y},
			"velocity":    map[string]any{"x": v.X, "y": v.Y, "speed": v.Speed},
			"maxRadius":   seq.MaxRadius(),
			"timeLasting": float64(seq.TimeLasting()) / float64(time.Millisecond),
		})
	}
	return map[string]any{
		"sequences":   out,
		"activeCount": touch.ActiveCount(),
		"isStart":     touch.IsStart(),
		"isEnd":       touch.IsEnd(),
		"timeLasting": float64(touch.TimeLasting()) / float64(time.Millisecond),
	}
}
