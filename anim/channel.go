package anim

import (
	"sort"
)

// ChannelWriter collects keyframes of one animated property. A value equal to
// the last stored one is dropped. When such a run ends, the value of the frame
// just before the change is stored again so interpolation starts at the change.
type ChannelWriter[T any] struct {
	equal func(a, b T) bool

	times  []float32
	values []T

	last    T
	hasLast bool
	omitted bool
}

func NewChannelWriter[T any](equal func(a, b T) bool) *ChannelWriter[T] {
	return &ChannelWriter[T]{equal: equal}
}

// SubmitKeyframe offers value sampled at time, prevTime is the time of the previous frame.
func (w *ChannelWriter[T]) SubmitKeyframe(time, prevTime float32, value T) {
	if w.hasLast && w.equal(w.last, value) {
		w.omitted = true
		return
	}
	if w.hasLast && w.omitted {
		w.omitted = false
		w.Add(prevTime, w.last)
	}
	w.Add(time, value)
	w.last = value
	w.hasLast = true
}

// Add stores keyframe unconditionally.
func (w *ChannelWriter[T]) Add(time float32, value T) {
	w.times = append(w.times, time)
	w.values = append(w.values, value)
}

func (w *ChannelWriter[T]) Times() []float32 { return w.times }
func (w *ChannelWriter[T]) Values() []T      { return w.values }
func (w *ChannelWriter[T]) Len() int         { return len(w.times) }

func (w *ChannelWriter[T]) Reset() {
	w.times = w.times[:0]
	w.values = w.values[:0]
	var zero T
	w.last = zero
	w.hasLast = false
	w.omitted = false
}

// Sample evaluates the channel at time t the way a linear player would.
func (w *ChannelWriter[T]) Sample(t float32, lerp func(a, b T, k float32) T) T {
	var zero T
	switch {
	case len(w.times) == 0:
		return zero
	case t <= w.times[0]:
		return w.values[0]
	case t >= w.times[len(w.times)-1]:
		return w.values[len(w.values)-1]
	}

	i := sort.Search(len(w.times), func(i int) bool { return w.times[i] >= t })
	if w.times[i] == t {
		return w.values[i]
	}
	t0, t1 := w.times[i-1], w.times[i]
	return lerp(w.values[i-1], w.values[i], (t-t0)/(t1-t0))
}
