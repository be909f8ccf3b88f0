package ebiteninput

import (
	"fmt"
	"image"
	"image/color"
	"sort"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
)

const markerSize = 6

var markerColor = color.RGBA{R: 255, G: 220, B: 60, A: 200}

// DebugText describes the arbiter's current episode and the contacts the
// source holds.
func (s *Source) DebugText() string {
	st := s.arbiter.Snapshot()
	var b strings.Builder
	fmt.Fprintf(&b, "contacts: %d  registrations: %d  timers: %d\n",
		st.ActiveContacts, st.ActiveRegistrations, st.PendingTimers)
	if st.StopAll {
		b.WriteString("stopped: all\n")
	} else if len(st.Stopped) > 0 {
		fmt.Fprintf(&b, "stopped: %s\n", strings.Join(st.Stopped, ", "))
	}

	ids := make([]int, 0, len(s.touches))
	for tid := range s.touches {
		ids = append(ids, int(tid))
	}
	sort.Ints(ids)
	for _, id := range ids {
		c := s.touches[ebiten.TouchID(id)]
		fmt.Fprintf(&b, "touch %d: %.0f,%.0f\n", id, c.x, c.y)
	}
	if s.mouseDown {
		fmt.Fprintf(&b, "mouse: %.0f,%.0f\n", s.mouseLast.x, s.mouseLast.y)
	}
	return b.String()
}

// DrawDebug marks every held contact on screen and prints DebugText with the
// current frame rates in the top-left corner.
func (s *Source) DrawDebug(screen *ebiten.Image) {
	mark := func(x, y float64) {
		r := image.Rect(int(x)-markerSize/2, int(y)-markerSize/2, int(x)+markerSize/2, int(y)+markerSize/2)
		screen.SubImage(r).(*ebiten.Image).Fill(markerColor)
	}
	for _, c := range s.touches {
		mark(c.x, c.y)
	}
	if s.mouseDown {
		mark(s.mouseLast.x, s.mouseLast.y)
	}

	text := fmt.Sprintf("FPS: %.1f  TPS: %.1f\n%s", ebiten.ActualFPS(), ebiten.ActualTPS(), s.DebugText())
	ebitenutil.DebugPrint(screen, text)
}
