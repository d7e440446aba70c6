package annotator

import (
	"slices"
	"testing"
	"time"
)

func TestFrameTimer(t *testing.T) {
	var fired int
	var ft frameTimer
	ft.start(50*time.Millisecond, func() { fired++ })

	ft.advance(30 * time.Millisecond)
	if fired != 0 || !ft.pending() {
		t.Fatalf("fired early: fired=%d pending=%v", fired, ft.pending())
	}
	ft.advance(20 * time.Millisecond)
	if fired != 1 || ft.pending() {
		t.Fatalf("fired=%d pending=%v, want 1 and false", fired, ft.pending())
	}
	ft.advance(time.Second)
	if fired != 1 {
		t.Errorf("fired again: %d", fired)
	}
}

func TestFrameTimerCancel(t *testing.T) {
	var fired bool
	var ft frameTimer
	ft.start(10*time.Millisecond, func() { fired = true })
	ft.cancel()
	ft.advance(time.Second)
	if fired {
		t.Error("cancelled timer fired")
	}
}

func TestDebouncerDeliversLastValue(t *testing.T) {
	var got []int
	d := newDebouncer(50*time.Millisecond, func(v int) { got = append(got, v) })

	d.push(1)
	d.advance(30 * time.Millisecond)
	d.push(2)
	d.advance(30 * time.Millisecond)
	if len(got) != 0 {
		t.Fatalf("delivered during burst: %v", got)
	}
	d.push(3)
	d.advance(49 * time.Millisecond)
	if len(got) != 0 {
		t.Fatalf("delivered before quiet window: %v", got)
	}
	d.advance(time.Millisecond)
	if !slices.Equal(got, []int{3}) {
		t.Errorf("got %v, want [3]", got)
	}
}

func TestDebouncerCancel(t *testing.T) {
	var got []int
	d := newDebouncer(10*time.Millisecond, func(v int) { got = append(got, v) })
	d.push(1)
	d.cancel()
	if d.pending() {
		t.Error("pending after cancel")
	}
	d.advance(time.Second)
	if len(got) != 0 {
		t.Errorf("cancelled debouncer delivered %v", got)
	}
}

func TestThrottleDeliversOncePerWindow(t *testing.T) {
	var got []int
	th := newThrottle(16*time.Millisecond, func(v int) { got = append(got, v) })

	th.push(1)
	th.advance(10 * time.Millisecond)
	th.push(2)
	th.push(3)
	if len(got) != 0 {
		t.Fatalf("delivered inside window: %v", got)
	}
	th.advance(6 * time.Millisecond)
	if !slices.Equal(got, []int{3}) {
		t.Fatalf("got %v, want [3]", got)
	}

	th.push(4)
	th.advance(16 * time.Millisecond)
	if !slices.Equal(got, []int{3, 4}) {
		t.Errorf("got %v, want [3 4]", got)
	}
	th.advance(time.Second)
	if len(got) != 2 {
		t.Errorf("idle throttle delivered again: %v", got)
	}
}

func TestThrottleCancel(t *testing.T) {
	var got []int
	th := newThrottle(16*time.Millisecond, func(v int) { got = append(got, v) })
	th.push(1)
	th.cancel()
	th.advance(time.Second)
	if len(got) != 0 {
		t.Errorf("cancelled throttle delivered %v", got)
	}
	if th.pending() {
		t.Error("pending after cancel")
	}
}
