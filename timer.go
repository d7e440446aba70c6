package annotator

import "time"

const (
	defaultHoverDebounce = 50 * time.Millisecond
	defaultDragThrottle  = 16 * time.Millisecond
)

// frameTimer is a one-shot timer advanced explicitly by its owner, normally
// from Canvas.Update. It never runs on another goroutine.
type frameTimer struct {
	remaining time.Duration
	active    bool
	fn        func()
}

// start arms the timer, replacing any pending callback.
func (t *frameTimer) start(d time.Duration, fn func()) {
	t.remaining = d
	t.active = true
	t.fn = fn
}

// cancel disarms the timer. The pending callback is dropped.
func (t *frameTimer) cancel() {
	t.active = false
	t.fn = nil
}

func (t *frameTimer) pending() bool { return t.active }

// advance moves the timer forward by dt and runs the callback if it expired.
func (t *frameTimer) advance(dt time.Duration) {
	if !t.active {
		return
	}
	t.remaining -= dt
	if t.remaining > 0 {
		return
	}
	fn := t.fn
	t.cancel()
	if fn != nil {
		fn()
	}
}

// debouncer delivers the last pushed value once no push has arrived for delay.
type debouncer[T any] struct {
	timer frameTimer
	delay time.Duration
	value T
	fire  func(T)
}

func newDebouncer[T any](delay time.Duration, fire func(T)) *debouncer[T] {
	return &debouncer[T]{delay: delay, fire: fire}
}

// push records v and restarts the quiet window.
func (d *debouncer[T]) push(v T) {
	d.value = v
	d.timer.start(d.delay, func() { d.fire(d.value) })
}

func (d *debouncer[T]) cancel()                  { d.timer.cancel() }
func (d *debouncer[T]) pending() bool            { return d.timer.pending() }
func (d *debouncer[T]) advance(dt time.Duration) { d.timer.advance(dt) }

// throttle delivers at most one value per interval. The first push opens a
// window; when it closes the latest value pushed during the window is
// delivered, so the final value of a burst is never dropped.
type throttle[T any] struct {
	timer    frameTimer
	interval time.Duration
	latest   T
	has      bool
	fire     func(T)
}

func newThrottle[T any](interval time.Duration, fire func(T)) *throttle[T] {
	return &throttle[T]{interval: interval, fire: fire}
}

func (t *throttle[T]) push(v T) {
	t.latest = v
	t.has = true
	if !t.timer.pending() {
		t.timer.start(t.interval, t.deliver)
	}
}

func (t *throttle[T]) deliver() {
	if !t.has {
		return
	}
	t.has = false
	t.fire(t.latest)
}

func (t *throttle[T]) cancel() {
	t.timer.cancel()
	t.has = false
}

func (t *throttle[T]) pending() bool            { return t.timer.pending() }
func (t *throttle[T]) advance(dt time.Duration) { t.timer.advance(dt) }
