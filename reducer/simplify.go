package reducer

// simplifier is Douglas-Peucker over a window slice. Retain marks live in a side table
// owned by one pass; points never carry them.
type simplifier struct {
	metric       Metric
	allowedError float64
}

// simplify sets retain[k] for every point of [first, last] that must survive.
// Interior points under the allowed error are explicitly cleared. Only interior points
// split the range; an end point's distance to its own segment is rounding noise.
func (s *simplifier) simplify(points []Point, retain []bool, first, last int) {
	if last-first <= 1 {
		return
	}

	var dMax float64

	index := first
	start, end := points[first], points[last]

	for i := first + 1; i < last; i++ {
		d := s.metric.Distance(points[i], start, end)
		if d > dMax {
			index = i
			dMax = d
		}
	}

	if dMax > s.allowedError {
		retain[index] = true

		s.simplify(points, retain, index, last)
		s.simplify(points, retain, first, index)

		return
	}

	for i := first + 1; i < last; i++ {
		retain[i] = false
	}
}

// highestError returns the interior point of (first, last) farthest from the line
// points[first] -> points[last], or the last index of points when none is off the line.
func (s *simplifier) highestError(points []Point, first, last int) int {
	var maxDistance float64

	index := len(points) - 1

	for i := first + 1; i < last; i++ {
		d := s.metric.Distance(points[i], points[first], points[last])
		if d > maxDistance {
			maxDistance = d
			index = i
		}
	}

	return index
}
