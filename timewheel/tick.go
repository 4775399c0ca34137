package timewheel

// Tick is the discrete simulation clock. Increment wraps at the top of the
// uint64 range.
type Tick struct {
	current uint64
}

// Current returns the current tick.
func (t *Tick) Current() uint64 { return t.current }

// Set moves the clock, for example to follow a TickSync from the server.
func (t *Tick) Set(to uint64) { t.current = to }

// Increment advances the clock by one tick.
func (t *Tick) Increment() { t.current++ }

// Timer pairs a clock with a wheel so items are scheduled relative to now.
type Timer[T any] struct {
	tick  Tick
	wheel *Wheel[T]
}

// NewTimer returns a timer starting at tick 0 over a new wheel of depth levels.
func NewTimer[T any](depth int) *Timer[T] {
	return &Timer[T]{wheel: New[T](depth)}
}

// Now returns the current tick.
func (t *Timer[T]) Now() uint64 {
	return t.tick.Current()
}

// Wheel exposes the underlying wheel.
func (t *Timer[T]) Wheel() *Wheel[T] {
	return t.wheel
}

// ScheduleIn schedules item delay ticks from now. A delay of zero lands on the
// current tick and is returned by the next Due. Delays of Capacity or more are
// rejected with ErrBeyondHorizon.
func (t *Timer[T]) ScheduleIn(delay uint64, item T) error {
	if delay >= t.wheel.Capacity() {
		return ErrBeyondHorizon
	}
	t.wheel.Schedule(t.tick.Current()+delay, item)
	return nil
}

// Due drains the items of the current tick.
func (t *Timer[T]) Due() []T {
	return t.wheel.Drain(t.tick.Current())
}

// Advance moves to the next tick and drains it.
func (t *Timer[T]) Advance() []T {
	t.tick.Increment()
	return t.Due()
}
