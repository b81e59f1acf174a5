package kinematics

// Ring is a fixed-capacity FIFO. Pushing onto a full ring evicts the oldest
// element in O(1).
type Ring[T any] struct {
	buf  []T
	r, n int
}

// NewRing returns an empty ring holding at most capacity elements. A
// capacity below 1 is treated as 1.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

// Push appends v. When the ring was full the evicted element is returned
// with ok set.
func (q *Ring[T]) Push(v T) (evicted T, ok bool) {
	w := q.r + q.n
	if w >= len(q.buf) {
		w -= len(q.buf)
	}
	if q.n == len(q.buf) {
		evicted, ok = q.buf[q.r], true
		q.buf[q.r] = v
		if q.r++; q.r == len(q.buf) {
			q.r = 0
		}
		return evicted, ok
	}
	q.buf[w] = v
	q.n++
	return evicted, false
}

// Len returns the number of stored elements.
func (q *Ring[T]) Len() int { return q.n }

// Cap returns the ring capacity.
func (q *Ring[T]) Cap() int { return len(q.buf) }

// At returns the i-th element, 0 being the oldest. It panics when i is out
// of range.
func (q *Ring[T]) At(i int) T {
	if i < 0 || i >= q.n {
		panic("kinematics: ring index out of range")
	}
	j := q.r + i
	if j >= len(q.buf) {
		j -= len(q.buf)
	}
	return q.buf[j]
}

// Last returns the newest element.
func (q *Ring[T]) Last() (T, bool) {
	if q.n == 0 {
		var zero T
		return zero, false
	}
	return q.At(q.n - 1), true
}

// Slice returns a copy of the contents, oldest first.
func (q *Ring[T]) Slice() []T {
	out := make([]T, q.n)
	for i := range out {
		out[i] = q.At(i)
	}
	return out
}
