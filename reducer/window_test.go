package reducer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWindow(t *testing.T) {
	w := newWindow(3)
	assert.EqualValues(t, 0, w.count())
	assert.False(t, w.isFull())

	_, ok := w.last()
	assert.False(t, ok)

	assert.Nil(t, w.add(NewPoint(1, 1)))
	assert.Nil(t, w.add(NewPoint(2, 2)))
	assert.Nil(t, w.add(NewPoint(3, 3)))
	assert.True(t, w.isFull())

	err := w.add(NewPoint(4, 4))
	assert.ErrorIs(t, err, ErrBufferFull)
	assert.EqualValues(t, 3, w.count())

	p, ok := w.last()
	assert.True(t, ok)
	assert.Equal(t, NewPoint(3, 3), p)

	snapshot := w.snapshot()
	w.clear()
	assert.EqualValues(t, 0, w.count())
	assert.Nil(t, w.add(NewPoint(9, 9)))

	// the snapshot does not share the window storage
	assert.Equal(t, []Point{NewPoint(1, 1), NewPoint(2, 2), NewPoint(3, 3)}, snapshot)
}
