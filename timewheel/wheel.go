// Package timewheel schedules work items at future discrete ticks.
//
// A Wheel is a fixed-depth hierarchy of 32-way levels. The bucket of a tick
// is found by descending one level per base-32 digit of the tick, most
// significant first, so Schedule and Drain both cost Depth steps. A wheel of
// depth D addresses 32^D consecutive ticks; ticks further apart than that
// share a bucket.
//
// Wheels, Ticks and Timers are owned by a single simulation loop and are not
// safe for concurrent use.
package timewheel

import (
	"fmt"

	"github.com/go-faster/errors"
)

const (
	// Radix is the number of children of every level.
	Radix     = 32
	radixBits = 5

	// MaxDepth keeps Capacity within a uint64.
	MaxDepth = 12
)

// ErrBeyondHorizon is returned for delays the wheel cannot distinguish from
// earlier ticks.
var ErrBeyondHorizon = errors.New("delay beyond timing wheel horizon")

type node[T any] struct {
	children [Radix]*node[T]
	bucket   []T
}

// Wheel is a radix-32 timing wheel holding items of type T.
type Wheel[T any] struct {
	depth int
	root  node[T]
	size  int
}

// New returns an empty wheel with depth levels. It panics unless
// 1 <= depth <= MaxDepth.
func New[T any](depth int) *Wheel[T] {
	if depth < 1 || depth > MaxDepth {
		panic(fmt.Sprintf("timewheel: depth %d out of range [1, %d]", depth, MaxDepth))
	}
	return &Wheel[T]{depth: depth}
}

// Depth returns the number of levels.
func (w *Wheel[T]) Depth() int {
	return w.depth
}

// Capacity returns the number of distinct ticks the wheel addresses, 32^Depth.
func (w *Wheel[T]) Capacity() uint64 {
	return 1 << (radixBits * w.depth)
}

// Len returns the number of scheduled items.
func (w *Wheel[T]) Len() int {
	return w.size
}

// index returns the child slot of tick at the given layer, layer 0 being the
// least significant digit.
func index(tick uint64, layer int) int {
	return int((tick >> (radixBits * layer)) % Radix)
}

// leaf descends to the node holding the bucket of tick. When create is false
// a missing branch yields nil.
func (w *Wheel[T]) leaf(tick uint64, create bool) *node[T] {
	n := &w.root
	for layer := w.depth - 1; layer >= 0; layer-- {
		i := index(tick, layer)
		child := n.children[i]
		if child == nil {
			if !create {
				return nil
			}
			child = &node[T]{}
			n.children[i] = child
		}
		n = child
	}
	return n
}

// Schedule appends item to the bucket of tick.
func (w *Wheel[T]) Schedule(tick uint64, item T) {
	n := w.leaf(tick, true)
	n.bucket = append(n.bucket, item)
	w.size++
}

// Drain removes and returns the items of tick's bucket in insertion order.
// It returns nil for an empty bucket.
func (w *Wheel[T]) Drain(tick uint64) []T {
	n := w.leaf(tick, false)
	if n == nil || len(n.bucket) == 0 {
		return nil
	}
	items := n.bucket
	n.bucket = nil
	w.size -= len(items)
	return items
}

// Peek returns how many items wait in tick's bucket.
func (w *Wheel[T]) Peek(tick uint64) int {
	n := w.leaf(tick, false)
	if n == nil {
		return 0
	}
	return len(n.bucket)
}
