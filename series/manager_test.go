package series

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sgostarter/i/commerr"
	"github.com/sgostarter/i/l"
	"github.com/sgostarter/libreducer/reducer"
	"github.com/sgostarter/libreducer/sink"
	"github.com/stretchr/testify/assert"
	"github.com/zoobzio/clockz"
)

func bumpPoints() []reducer.Point {
	return []reducer.Point{
		reducer.NewPoint(0, 0), reducer.NewPoint(0, 1), reducer.NewPoint(5, 2),
		reducer.NewPoint(0, 3), reducer.NewPoint(0, 4),
	}
}

func recordPoints(records []sink.Record) []reducer.Point {
	ps := make([]reducer.Point, 0, len(records))
	for _, record := range records {
		ps = append(ps, record.Point())
	}

	return ps
}

func TestManagerFinish(t *testing.T) {
	storage := sink.NewMemoryStorage()
	clock := clockz.NewFakeClock()

	m := NewManager(context.Background(), WithStorage(storage), WithClock(clock),
		WithLogger(l.NewConsoleLoggerWrapper()))

	for _, p := range bumpPoints() {
		assert.Nil(t, m.AddPoint(context.Background(), "speed", p))
	}

	sessionID, ok := m.SessionID("speed")
	assert.True(t, ok)

	stats, ok := m.Stats("speed")
	assert.True(t, ok)
	assert.EqualValues(t, 5, stats.Added)

	records, err := storage.Load(context.Background(), "speed")
	assert.Nil(t, err)
	assert.Equal(t, []reducer.Point{reducer.NewPoint(0, 0)}, recordPoints(records))

	assert.Nil(t, m.Finish(context.Background(), "speed"))
	assert.ErrorIs(t, m.Finish(context.Background(), "speed"), commerr.ErrNotFound)
	assert.Empty(t, m.Keys())

	records, err = storage.Load(context.Background(), "speed")
	assert.Nil(t, err)
	assert.Equal(t, []reducer.Point{reducer.NewPoint(0, 0), reducer.NewPoint(5, 2), reducer.NewPoint(0, 4)},
		recordPoints(records))

	for _, record := range records {
		assert.Equal(t, "speed", record.Key)
		assert.Equal(t, sessionID, record.SessionID)
		assert.Equal(t, clock.Now(), record.ReceivedAt)
	}

	latest, ok := m.Latest("speed")
	assert.True(t, ok)
	assert.Equal(t, reducer.NewPoint(0, 4), latest.Point())

	_, ok = m.Latest("fuel")
	assert.False(t, ok)

	// a new session for the same key
	assert.Nil(t, m.AddPoint(context.Background(), "speed", reducer.NewPoint(9, 10)))

	newSessionID, ok := m.SessionID("speed")
	assert.True(t, ok)
	assert.NotEqual(t, sessionID, newSessionID)

	assert.Nil(t, m.Close())
}

func TestManagerKeyOptions(t *testing.T) {
	storage := sink.NewMemoryStorage()

	m := NewManager(context.Background(), WithStorage(storage),
		WithReducerOptions(reducer.WithBufferSize(10), reducer.WithAllowedError(2)),
		WithKeyReducerOptions("loose", reducer.WithAllowedError(10)))

	for _, p := range bumpPoints() {
		assert.Nil(t, m.AddPoint(context.Background(), "strict", p))
		assert.Nil(t, m.AddPoint(context.Background(), "loose", p))
	}

	assert.Equal(t, []string{"loose", "strict"}, m.Keys())
	assert.Nil(t, m.FinishAll(context.Background()))

	records, err := storage.Load(context.Background(), "strict")
	assert.Nil(t, err)
	assert.EqualValues(t, 3, len(records))

	records, err = storage.Load(context.Background(), "loose")
	assert.Nil(t, err)
	assert.Equal(t, []reducer.Point{reducer.NewPoint(0, 0), reducer.NewPoint(0, 4)}, recordPoints(records))
}

func TestManagerFlushIdle(t *testing.T) {
	clock := clockz.NewFakeClock()

	m := NewManager(context.Background(), WithClock(clock), WithMaxIdle(time.Minute))

	defer m.Close()

	assert.Nil(t, m.AddPoint(context.Background(), "a", reducer.NewPoint(1, 1)))
	clock.Advance(30 * time.Second)
	assert.Nil(t, m.AddPoint(context.Background(), "b", reducer.NewPoint(1, 1)))
	clock.Advance(40 * time.Second)

	keys, err := m.FlushIdle(context.Background())
	assert.Nil(t, err)
	assert.Equal(t, []string{"a"}, keys)
	assert.Equal(t, []string{"b"}, m.Keys())

	keys, err = m.FlushIdle(context.Background())
	assert.Nil(t, err)
	assert.Empty(t, keys)

	clock.Advance(time.Minute)

	keys, err = m.FlushIdle(context.Background())
	assert.Nil(t, err)
	assert.Equal(t, []string{"b"}, keys)
	assert.Empty(t, m.Keys())

	// without storage the retained points are still visible
	latest, ok := m.Latest("a")
	assert.True(t, ok)
	assert.Equal(t, reducer.NewPoint(1, 1), latest.Point())
}

func TestManagerIdleRoutine(t *testing.T) {
	clock := clockz.NewFakeClock()

	m := NewManager(context.Background(), WithClock(clock), WithMaxIdle(time.Minute),
		WithCheckInterval(10*time.Second))

	assert.Nil(t, m.AddPoint(context.Background(), "engine", reducer.NewPoint(1, 1)))

	clock.Advance(2 * time.Minute)
	clock.BlockUntilReady()

	assert.Eventually(t, func() bool {
		return len(m.Keys()) == 0
	}, 2*time.Second, 10*time.Millisecond)

	assert.Nil(t, m.Close())
}

var errUTSave = errors.New("ut save failed")

type flakyStorage struct {
	sink.Storage

	lock sync.Mutex
	fail bool
}

func (stg *flakyStorage) setFail(fail bool) {
	stg.lock.Lock()
	stg.fail = fail
	stg.lock.Unlock()
}

func (stg *flakyStorage) Save(ctx context.Context, key string, records []sink.Record) error {
	stg.lock.Lock()
	fail := stg.fail
	stg.lock.Unlock()

	if fail {
		return errUTSave
	}

	return stg.Storage.Save(ctx, key, records)
}

func TestManagerSaveRetry(t *testing.T) {
	storage := &flakyStorage{Storage: sink.NewMemoryStorage()}
	storage.setFail(true)

	m := NewManager(context.Background(), WithStorage(storage), WithReducerOptions(reducer.WithBufferSize(3)))

	assert.ErrorIs(t, m.AddPoint(context.Background(), "zig", reducer.NewPoint(0, 0)), errUTSave)
	assert.ErrorIs(t, m.AddPoint(context.Background(), "zig", reducer.NewPoint(10, 1)), errUTSave)

	storage.setFail(false)

	// the third point fills the window, (10, 1) is retained
	assert.Nil(t, m.AddPoint(context.Background(), "zig", reducer.NewPoint(0, 2)))

	records, err := storage.Load(context.Background(), "zig")
	assert.Nil(t, err)
	assert.Equal(t, []reducer.Point{reducer.NewPoint(0, 0), reducer.NewPoint(10, 1)}, recordPoints(records))
}

func TestManagerClose(t *testing.T) {
	storage := sink.NewMemoryStorage()

	m := NewManager(context.Background(), WithStorage(storage), WithCheckInterval(time.Hour))

	for _, p := range bumpPoints() {
		assert.Nil(t, m.AddPoint(context.Background(), "speed", p))
	}

	assert.Nil(t, m.Close())
	assert.ErrorIs(t, m.AddPoint(context.Background(), "speed", reducer.NewPoint(1, 5)), ErrClosed)

	records, err := storage.Load(context.Background(), "speed")
	assert.Nil(t, err)
	assert.EqualValues(t, 3, len(records))
}

func TestManagerFinishSaveRetry(t *testing.T) {
	storage := &flakyStorage{Storage: sink.NewMemoryStorage()}
	storage.setFail(true)

	m := NewManager(context.Background(), WithStorage(storage))

	for _, p := range bumpPoints() {
		assert.ErrorIs(t, m.AddPoint(context.Background(), "speed", p), errUTSave)
	}

	assert.ErrorIs(t, m.Finish(context.Background(), "speed"), errUTSave)
	assert.Empty(t, m.Keys())
	assert.Equal(t, []reducer.Point{reducer.NewPoint(0, 0), reducer.NewPoint(5, 2), reducer.NewPoint(0, 4)},
		recordPoints(m.Unsaved("speed")))

	// still failing, kept again
	assert.ErrorIs(t, m.FinishAll(context.Background()), errUTSave)
	assert.EqualValues(t, 3, len(m.Unsaved("speed")))

	storage.setFail(false)

	assert.Nil(t, m.FinishAll(context.Background()))
	assert.Empty(t, m.Unsaved("speed"))

	records, err := storage.Load(context.Background(), "speed")
	assert.Nil(t, err)
	assert.Equal(t, []reducer.Point{reducer.NewPoint(0, 0), reducer.NewPoint(5, 2), reducer.NewPoint(0, 4)},
		recordPoints(records))
}

func TestManagerUnsavedBeforeNewSession(t *testing.T) {
	storage := &flakyStorage{Storage: sink.NewMemoryStorage()}
	storage.setFail(true)

	m := NewManager(context.Background(), WithStorage(storage))

	assert.ErrorIs(t, m.AddPoint(context.Background(), "fuel", reducer.NewPoint(3, 0)), errUTSave)
	assert.ErrorIs(t, m.Finish(context.Background(), "fuel"), errUTSave)

	storage.setFail(false)

	assert.Nil(t, m.AddPoint(context.Background(), "fuel", reducer.NewPoint(4, 10)))
	assert.Empty(t, m.Unsaved("fuel"))

	records, err := storage.Load(context.Background(), "fuel")
	assert.Nil(t, err)
	assert.Equal(t, []reducer.Point{reducer.NewPoint(3, 0), reducer.NewPoint(4, 10)}, recordPoints(records))
	assert.NotEqual(t, records[0].SessionID, records[1].SessionID)
}
