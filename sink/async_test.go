package sink

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sgostarter/i/l"
	"github.com/sgostarter/libreducer/reducer"
	"github.com/stretchr/testify/assert"
)

func utRecords(key string, n int) []Record {
	rs := make([]Record, 0, n)
	for i := 0; i < n; i++ {
		rs = append(rs, NewRecord(key, 1, reducer.NewPoint(float64(i), float64(i)), time.Unix(int64(i), 0)))
	}

	return rs
}

func TestMemoryStorage(t *testing.T) {
	stg := NewMemoryStorage()

	rs, err := stg.Load(context.Background(), "speed")
	assert.Nil(t, err)
	assert.Empty(t, rs)

	assert.Nil(t, stg.Save(context.Background(), "speed", utRecords("speed", 2)))
	assert.Nil(t, stg.Save(context.Background(), "speed", utRecords("speed", 3)[2:]))

	rs, err = stg.Load(context.Background(), "speed")
	assert.Nil(t, err)
	assert.Equal(t, utRecords("speed", 3), rs)

	assert.Nil(t, stg.Remove(context.Background(), "speed"))

	rs, err = stg.Load(context.Background(), "speed")
	assert.Nil(t, err)
	assert.Empty(t, rs)
}

func TestRecordPoint(t *testing.T) {
	p := reducer.NewLocationPoint(43.45, -79.72, time.Unix(100, 0))
	r := NewRecord("gps", 7, p, time.Unix(200, 0))

	assert.Equal(t, p, r.Point())
	assert.EqualValues(t, 7, r.SessionID)
	assert.Equal(t, "gps", r.Key)
}

func TestAsyncStorage(t *testing.T) {
	memStg := NewMemoryStorage()

	stg := NewAsyncStorage(context.Background(), memStg, 2, l.NewConsoleLoggerWrapper())

	rs := utRecords("fuel", 10)

	for i := range rs {
		assert.Nil(t, stg.Save(context.Background(), "fuel", rs[i:i+1]))
	}

	assert.Nil(t, stg.Save(context.Background(), "fuel", nil))

	stg.Close()
	stg.Close()

	loaded, err := stg.Load(context.Background(), "fuel")
	assert.Nil(t, err)
	assert.Equal(t, rs, loaded)

	err = stg.Save(context.Background(), "fuel", rs)
	assert.ErrorIs(t, err, ErrClosed)

	assert.Nil(t, stg.Remove(context.Background(), "fuel"))

	loaded, err = memStg.Load(context.Background(), "fuel")
	assert.Nil(t, err)
	assert.Empty(t, loaded)
}

type blockStorage struct {
	Storage

	once    sync.Once
	release chan struct{}
}

func (stg *blockStorage) Save(ctx context.Context, key string, records []Record) error {
	stg.once.Do(func() {
		<-stg.release
	})

	return stg.Storage.Save(ctx, key, records)
}

func TestAsyncStorageQueueFull(t *testing.T) {
	bs := &blockStorage{
		Storage: NewMemoryStorage(),
		release: make(chan struct{}),
	}

	stg := NewAsyncStorage(context.Background(), bs, 1, nil)

	rs := utRecords("rpm", 3)

	// one record is held by the blocked writer, one fits in the queue
	assert.Nil(t, stg.Save(context.Background(), "rpm", rs[0:1]))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var saveErr error

	for i := 1; i < 3 && saveErr == nil; i++ {
		saveErr = stg.Save(ctx, "rpm", rs[i:i+1])
	}

	assert.True(t, errors.Is(saveErr, context.DeadlineExceeded))

	close(bs.release)
	stg.Close()

	loaded, err := bs.Load(context.Background(), "rpm")
	assert.Nil(t, err)
	assert.True(t, len(loaded) >= 2)
	assert.Equal(t, rs[0], loaded[0])
}

func TestAsyncStorageParentCancelled(t *testing.T) {
	memStg := NewMemoryStorage()

	ctx, cancel := context.WithCancel(context.Background())

	stg := NewAsyncStorage(ctx, memStg, 1, nil)

	cancel()

	rs := utRecords("rpm", 1)

	var saved int

	// saves without a deadline must not block once the routine is gone
	assert.Eventually(t, func() bool {
		err := stg.Save(context.Background(), "rpm", rs)
		if err == nil {
			saved++

			return false
		}

		return errors.Is(err, ErrClosed)
	}, 2*time.Second, time.Millisecond)

	stg.Close()

	loaded, err := memStg.Load(context.Background(), "rpm")
	assert.Nil(t, err)
	assert.Equal(t, saved, len(loaded))
}
