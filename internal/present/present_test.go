package present

import (
	"testing"
	"time"
)

func TestRemainingListAndRender(t *testing.T) {
	found := map[string]bool{"Lamp": true}
	rem := RemainingList([]string{"Sofa", "Lamp", "Clock"}, func(id string) bool { return found[id] })
	if len(rem) != 2 || rem[0] != "Sofa" || rem[1] != "Clock" {
		t.Fatalf("remaining = %v", rem)
	}
	if got, want := Render(rem), "Find the objects:\nSofa\nClock"; got != want {
		t.Fatalf("Render = %q, want %q", got, want)
	}
	if got := Render(nil); got != ListHeading {
		t.Fatalf("empty Render = %q", got)
	}
}

func TestLabelNewPickPreemptsDismissal(t *testing.T) {
	l := NewLabel(0)
	if l.Duration() != DefaultLabelDuration {
		t.Fatalf("duration = %v", l.Duration())
	}

	first := l.Show("Sofa", Anchor{})
	second := l.Show("Lamp", Anchor{X: 10, Y: 20, OnScreen: true})

	if l.Expire(first) {
		t.Fatalf("stale dismissal hid the newer label")
	}
	v := l.View()
	if !v.Visible || v.Text != "Lamp" || v.Anchor.X != 10 {
		t.Fatalf("view = %+v", v)
	}
	if !l.Expire(second) {
		t.Fatalf("current dismissal ignored")
	}
	if l.View().Visible {
		t.Fatalf("label still visible")
	}
	if l.Expire(second) {
		t.Fatalf("second expire reported a change")
	}
}

func TestLabelCustomDuration(t *testing.T) {
	l := NewLabel(250 * time.Millisecond)
	if l.View().DurationMs != 250 {
		t.Fatalf("durationMs = %d", l.View().DurationMs)
	}
}
