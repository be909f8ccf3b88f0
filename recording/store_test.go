package recording

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phanxgames/gesture"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), Options{Path: filepath.Join(t.TempDir(), "nested", "episodes.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// record runs fn against a fresh arbiter and returns the episodes it ended.
func record(t *testing.T, fn func(in *gesture.Injector)) []gesture.Episode {
	t.Helper()
	clock := gesture.NewManualClock(time.Time{})
	a := gesture.New(gesture.WithClock(clock))
	t.Cleanup(func() { _ = a.Close() })

	tap := gesture.IdentifierFunc("tap", func(touch *gesture.Session, _ bool, _ any) (gesture.Result, error) {
		if touch.IsEnd() {
			return gesture.Identified{Match: gesture.Matched}, nil
		}
		return gesture.Pending{}, nil
	})
	a.NewDelegate().On(tap, func(*gesture.Event) error { return nil })

	var episodes []gesture.Episode
	a.OnEpisodeEnd(func(ep gesture.Episode) { episodes = append(episodes, ep) })

	in := gesture.NewInjector(a, clock)
	in.SetTarget("canvas")
	fn(in)
	return episodes
}

func TestSaveListLoad(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	episodes := record(t, func(in *gesture.Injector) {
		in.Tap(1, 5, 5)
		in.Wait(time.Second)
		in.Drag(2, 0, 0, 30, 0, 3)
	})
	require.Len(t, episodes, 2)
	for _, ep := range episodes {
		require.NoError(t, s.Save(ctx, ep))
	}

	list, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, episodes[1].ID, list[0].ID, "newest first")
	assert.Equal(t, "canvas", list[0].Target)
	assert.Equal(t, 1, list[0].Contacts)
	assert.Equal(t, 1, list[0].Matches)
	assert.Equal(t, 3*gesture.DefaultFrame, list[0].Duration())

	limited, err := s.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	rec, err := s.Load(ctx, episodes[1].ID)
	require.NoError(t, err)
	require.Len(t, rec.Contacts, 1)
	assert.Equal(t, 2, rec.Contacts[0].ID)

	want := episodes[1].Sequences[0].Points()
	got := rec.Contacts[0].Points
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].Pos(), got[i].Pos())
		assert.True(t, want[i].Time.Equal(got[i].Time))
		assert.Equal(t, want[i].IsStart, got[i].IsStart)
		assert.Equal(t, want[i].IsEnd, got[i].IsEnd)
	}

	require.Len(t, rec.Matches, 1)
	assert.Equal(t, "tap", rec.Matches[0].Identifier)
	assert.True(t, rec.Matches[0].FirstMatch)
	assert.True(t, rec.Matches[0].Terminal)
}

func TestSaveTwiceFails(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	episodes := record(t, func(in *gesture.Injector) { in.Tap(1, 0, 0) })
	require.Len(t, episodes, 1)

	require.NoError(t, s.Save(ctx, episodes[0]))
	assert.Error(t, s.Save(ctx, episodes[0]))
}

func TestNotFoundAndDelete(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.Load(ctx, uuid.New())
	assert.True(t, IsNotFound(err))
	assert.True(t, IsNotFound(s.Delete(ctx, uuid.New())))

	episodes := record(t, func(in *gesture.Injector) { in.Tap(1, 0, 0) })
	require.NoError(t, s.Save(ctx, episodes[0]))
	require.NoError(t, s.Delete(ctx, episodes[0].ID))

	list, err := s.List(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestHookRecordsEpisodes(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	clock := gesture.NewManualClock(time.Time{})
	a := gesture.New(gesture.WithClock(clock))
	defer a.Close()
	a.OnEpisodeEnd(s.Hook())

	in := gesture.NewInjector(a, clock)
	in.Tap(1, 0, 0)
	in.Tap(1, 0, 0)

	list, err := s.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestScriptReplaysRecording(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	episodes := record(t, func(in *gesture.Injector) {
		in.Press(1, 0, 0)
		in.Wait(40 * time.Millisecond)
		in.Press(2, 100, 0)
		in.Wait(20 * time.Millisecond)
		in.Move(1, 10, 0)
		in.Release(2)
		in.Wait(10 * time.Millisecond)
		in.Release(1)
	})
	require.Len(t, episodes, 1)
	require.NoError(t, s.Save(ctx, episodes[0]))

	rec, err := s.Load(ctx, episodes[0].ID)
	require.NoError(t, err)

	script := rec.Script()
	assert.Equal(t, []gesture.ScriptStep{
		{Action: "press", ID: 1, X: 0, Y: 0},
		{Action: "wait", MS: 40},
		{Action: "press", ID: 2, X: 100, Y: 0},
		{Action: "wait", MS: 20},
		{Action: "move", ID: 1, X: 10, Y: 0},
		{Action: "release", ID: 2},
		{Action: "wait", MS: 10},
		{Action: "release", ID: 1},
	}, script.Steps)

	replayed := record(t, func(in *gesture.Injector) {
		gesture.NewTestRunner(script).Run(in)
	})
	require.Len(t, replayed, 1)
	assert.Equal(t, episodes[0].Ended.Sub(episodes[0].Started), replayed[0].Ended.Sub(replayed[0].Started))
}

func TestScriptKeepsOrderOfSimultaneousPoints(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	episodes := record(t, func(in *gesture.Injector) {
		in.Press(1, 0, 0)
		in.Press(2, 50, 0)
		in.Release(1)
		in.Move(2, 60, 0)
		in.Release(2)
	})
	require.Len(t, episodes, 1)
	require.NoError(t, s.Save(ctx, episodes[0]))

	rec, err := s.Load(ctx, episodes[0].ID)
	require.NoError(t, err)
	require.Len(t, rec.Contacts, 2)
	assert.Equal(t, 2, rec.Contacts[0].Points[1].Order)

	assert.Equal(t, []gesture.ScriptStep{
		{Action: "press", ID: 1, X: 0, Y: 0},
		{Action: "press", ID: 2, X: 50, Y: 0},
		{Action: "release", ID: 1},
		{Action: "move", ID: 2, X: 60, Y: 0},
		{Action: "release", ID: 2},
	}, rec.Script().Steps)
}
