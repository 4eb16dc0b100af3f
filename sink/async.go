package sink

import (
	"context"
	"sync"
	"time"

	"github.com/sgostarter/i/l"
	"github.com/sgostarter/libeasygo/routineman"
)

const defaultQueueSize = 100

type saveJob struct {
	key     string
	records []Record
}

// AsyncStorage decouples a retained callback from a slow Storage. Save only queues;
// a routine writes in order. Load reads the wrapped storage and does not see queued records.
type AsyncStorage struct {
	logger     l.Wrapper
	storage    Storage
	routineMan routineman.RoutineMan

	closeLock sync.RWMutex
	closed    bool
	stopOnce  sync.Once

	chJobs chan saveJob
	// closed when the routine stops taking jobs
	chExit chan struct{}
}

func NewAsyncStorage(ctx context.Context, storage Storage, queueSize int, logger l.Wrapper) *AsyncStorage {
	if logger == nil {
		logger = l.NewNopLoggerWrapper()
	}

	logger = logger.WithFields(l.StringField(l.ClsKey, "AsyncStorage"))

	if storage == nil {
		logger.Fatal("no storage")
	}

	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}

	if ctx == nil {
		ctx = context.Background()
	}

	impl := &AsyncStorage{
		logger:     logger,
		storage:    storage,
		routineMan: routineman.NewRoutineMan(ctx, logger),
		chJobs:     make(chan saveJob, queueSize),
		chExit:     make(chan struct{}),
	}

	impl.routineMan.StartRoutine(impl.saveRoutine, "saveRoutine")

	return impl
}

func (impl *AsyncStorage) Save(ctx context.Context, key string, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	impl.closeLock.RLock()
	defer impl.closeLock.RUnlock()

	if impl.closed {
		return ErrClosed
	}

	job := saveJob{
		key:     key,
		records: append([]Record{}, records...),
	}

	select {
	case impl.chJobs <- job:
		return nil
	case <-impl.chExit:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (impl *AsyncStorage) Load(ctx context.Context, key string) ([]Record, error) {
	return impl.storage.Load(ctx, key)
}

func (impl *AsyncStorage) Remove(ctx context.Context, key string) error {
	return impl.storage.Remove(ctx, key)
}

// Close writes every queued record, then stops the routine. Later saves fail with ErrClosed.
// Cancelling the ctx given to NewAsyncStorage has the same effect.
func (impl *AsyncStorage) Close() {
	impl.closeLock.Lock()
	impl.closed = true
	impl.closeLock.Unlock()

	impl.stopOnce.Do(func() {
		impl.routineMan.TriggerStop()
		impl.routineMan.Wait()
	})
}

func (impl *AsyncStorage) saveRoutine(ctx context.Context, _ func() bool) {
	for {
		select {
		case <-ctx.Done():
			impl.stop()

			return
		case job := <-impl.chJobs:
			impl.save(job)
		}
	}
}

// stop wakes blocked saves, waits until no save is queueing and writes what was queued.
func (impl *AsyncStorage) stop() {
	close(impl.chExit)

	impl.closeLock.Lock()
	impl.closed = true
	impl.closeLock.Unlock()

	impl.drain()
}

func (impl *AsyncStorage) drain() {
	for {
		select {
		case job := <-impl.chJobs:
			impl.save(job)
		default:
			return
		}
	}
}

func (impl *AsyncStorage) save(job saveJob) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := impl.storage.Save(ctx, job.key, job.records); err != nil {
		impl.logger.WithFields(l.ErrorField(err), l.StringField("key", job.key),
			l.IntField("count", len(job.records))).Error("save records failed")
	}
}
