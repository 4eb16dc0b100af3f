package reducer

import (
	"fmt"
	"math"

	"github.com/sgostarter/i/l"
)

// DataReducer simplifies a stream of points online. Call AddPoint for every sample and
// listen for retained points with SetRetained. When the stream ends (for instance engine
// off) call Reduce, or Finish to also emit the last buffered sample.
//
// A DataReducer is not safe for concurrent use. RetainedPoints keeps growing for the
// lifetime of the instance; long running streams should consume the retained callback.
type DataReducer struct {
	logger     l.Wrapper
	bufferSize int
	dataType   DataType
	metric     Metric
	simplifier simplifier
	window     *window

	retained       FNRetained
	retainedPoints []Point
	stats          Stats
}

func NewDataReducer(options ...Option) *DataReducer {
	opts := optionNew(options...)

	logger := opts.logger
	if logger == nil {
		logger = l.NewNopLoggerWrapper()
	}

	logger = logger.WithFields(l.StringField(l.ClsKey, "DataReducer"))

	if opts.bufferSize <= 0 {
		logger.WithFields(l.IntField("bufferSize", opts.bufferSize)).Error("invalid buffer size, use default")

		opts.bufferSize = DefaultBufferSize
	} else if opts.bufferSize < MinBufferSize {
		logger.WithFields(l.IntField("bufferSize", opts.bufferSize)).Error("buffer will never be reduced")
	}

	if opts.allowedError < 0 || math.IsNaN(opts.allowedError) {
		logger.WithFields(l.StringField("allowedError", fmt.Sprint(opts.allowedError))).Error(
			"invalid allowed error, use default")

		opts.allowedError = DefaultAllowedError
	}

	metric := MetricFor(opts.dataType)

	return &DataReducer{
		logger:     logger,
		bufferSize: opts.bufferSize,
		dataType:   opts.dataType,
		metric:     metric,
		simplifier: simplifier{
			metric:       metric,
			allowedError: opts.allowedError,
		},
		window:   newWindow(opts.bufferSize),
		retained: opts.retained,
	}
}

func NewDataReducerWithConfig(cfg *Config, options ...Option) *DataReducer {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	return NewDataReducer(append(cfg.Options(), options...)...)
}

func (r *DataReducer) SetRetained(fn FNRetained) {
	r.retained = fn
}

func (r *DataReducer) BufferSize() int {
	return r.bufferSize
}

func (r *DataReducer) AllowedError() float64 {
	return r.simplifier.allowedError
}

func (r *DataReducer) DataType() DataType {
	return r.dataType
}

// Distance is the deviation of current from start -> end with the reducer's metric.
func (r *DataReducer) Distance(current, start, end Point) float64 {
	return r.metric.Distance(current, start, end)
}

func (r *DataReducer) AddValue(value, timestamp float64) {
	r.AddPoint(NewPoint(value, timestamp))
}

// AddPoint buffers p. The first point of every window is retained right away. A full
// window is reduced before AddPoint returns.
func (r *DataReducer) AddPoint(p Point) {
	r.stats.Added++

	if r.window.count() == 0 {
		r.addRetainedPoint(p)
	}

	r.addToWindow(p)

	if r.window.isFull() {
		r.Reduce()
	}
}

// Reduce runs one pass over the buffered points and refills the window with the points
// after the last retained one. It is called automatically when the window is full.
// With less than 3 buffered points it does nothing.
func (r *DataReducer) Reduce() {
	count := r.window.count()
	if count < MinBufferSize {
		r.logger.WithFields(l.IntField("count", count)).Debug(ErrNotEnoughPoints.Error())

		return
	}

	r.stats.Passes++

	snapshot := r.window.snapshot()
	retain := make([]bool, len(snapshot))

	r.simplifier.simplify(snapshot, retain, 0, len(snapshot)-1)

	lastSavedIndex := r.saveRetainedPoints(snapshot, retain)

	r.window.clear()

	higherErrorIndex := r.simplifier.highestError(snapshot, lastSavedIndex, len(snapshot)-1)

	var (
		dropPoint bool
		dropIndex int
	)

	// nothing past the anchor survived: forget one point, or the window never moves
	if lastSavedIndex == 0 {
		dropIndex = r.pointToDropIndex(snapshot, lastSavedIndex, higherErrorIndex)
		dropPoint = true
	}

	for i := lastSavedIndex; i < len(snapshot); i++ {
		if dropPoint && i == dropIndex {
			r.stats.Dropped++

			continue
		}

		r.addToWindow(snapshot[i])
	}
}

// Finish reduces what is buffered, emits the last buffered point and empties the window.
// The next AddPoint starts a new window with a new anchor.
func (r *DataReducer) Finish() {
	r.Reduce()

	if r.window.count() > 1 {
		p, _ := r.window.last()
		r.addRetainedPoint(p)
	}

	r.window.clear()
}

// RetainedPoints returns a copy of every point handed to the retained callback, in order.
func (r *DataReducer) RetainedPoints() []Point {
	return append(make([]Point, 0, len(r.retainedPoints)), r.retainedPoints...)
}

// Buffered returns a copy of the unresolved points.
func (r *DataReducer) Buffered() []Point {
	return r.window.snapshot()
}

func (r *DataReducer) Stats() Stats {
	return r.stats
}

func (r *DataReducer) addToWindow(p Point) {
	if err := r.window.add(p); err != nil {
		r.stats.Rejected++

		r.logger.WithFields(l.ErrorField(err), l.IntField("bufferSize", r.bufferSize)).Error("point ignored")
	}
}

func (r *DataReducer) addRetainedPoint(p Point) {
	r.retainedPoints = append(r.retainedPoints, p)
	r.stats.Retained++

	if r.retained != nil {
		r.retained(p)
	}
}

// saveRetainedPoints emits the marked points after the anchor and returns the index of
// the last one, 0 when none.
func (r *DataReducer) saveRetainedPoints(points []Point, retain []bool) (lastSavedIndex int) {
	for i := 1; i < len(points); i++ {
		if retain[i] {
			r.addRetainedPoint(points[i])

			lastSavedIndex = i
		}
	}

	return
}

// pointToDropIndex spreads the dropped position with the timestamp span of the window,
// so consecutive stalled passes do not always forget the same slot.
func (r *DataReducer) pointToDropIndex(points []Point, lastSavedIndex, higherErrorIndex int) int {
	lastPoint := points[len(points)-1]
	lastSavedPoint := points[lastSavedIndex]

	pointSpread := truncToInt(math.Mod(lastPoint.Timestamp-lastSavedPoint.Timestamp,
		float64(r.bufferSize-3))) + 1

	index := lastSavedIndex + pointSpread

	if index == higherErrorIndex || index == lastSavedIndex {
		index++
	}

	return index
}

// truncToInt truncates toward zero, saturating at the int32 range; NaN gives 0.
func truncToInt(f float64) int {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt32:
		return math.MaxInt32
	case f <= math.MinInt32:
		return math.MinInt32
	}

	return int(f)
}
