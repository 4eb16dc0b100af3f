package reducer

// window is the fixed capacity buffer of not yet resolved points. len(points) is the
// occupancy, cap(points) never grows past capacity.
type window struct {
	capacity int
	points   []Point
}

func newWindow(capacity int) *window {
	return &window{
		capacity: capacity,
		points:   make([]Point, 0, capacity),
	}
}

func (w *window) add(p Point) error {
	if w.isFull() {
		return ErrBufferFull
	}

	w.points = append(w.points, p)

	return nil
}

func (w *window) isFull() bool {
	return len(w.points) >= w.capacity
}

func (w *window) count() int {
	return len(w.points)
}

// clear keeps the backing array, so a snapshot taken before must be a copy.
func (w *window) clear() {
	w.points = w.points[:0]
}

func (w *window) snapshot() []Point {
	return append(make([]Point, 0, len(w.points)), w.points...)
}

func (w *window) last() (p Point, ok bool) {
	if len(w.points) == 0 {
		return
	}

	return w.points[len(w.points)-1], true
}
