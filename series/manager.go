package series

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/godruoyi/go-snowflake"
	"github.com/patrickmn/go-cache"
	"github.com/sgostarter/i/commerr"
	"github.com/sgostarter/i/l"
	"github.com/sgostarter/libeasygo/routineman"
	"github.com/sgostarter/libreducer/reducer"
	"github.com/sgostarter/libreducer/sink"
	"github.com/zoobzio/clockz"
)

type session struct {
	id      uint64
	reducer *reducer.DataReducer
	lastAt  time.Time
	pending []sink.Record
}

// Manager runs one reducer session per series key. A session opens on the first sample of
// a key and lasts until it is finished, explicitly or after MaxIdle without samples.
// All methods are safe for concurrent use; samples of one key are reduced in call order.
type Manager struct {
	logger  l.Wrapper
	opts    *Options
	clock   clockz.Clock
	storage sink.Storage

	routineMan routineman.RoutineMan

	lock     sync.Mutex
	closed   bool
	sessions map[string]*session
	// records of finished sessions that failed to save
	unsaved map[string][]sink.Record

	cachedLatest *cache.Cache
}

func NewManager(ctx context.Context, options ...Option) *Manager {
	opts := optionNew(options...)

	logger := opts.logger
	if logger == nil {
		logger = l.NewNopLoggerWrapper()
	}

	logger = logger.WithFields(l.StringField(l.ClsKey, "Manager"))

	if opts.clock == nil {
		opts.clock = clockz.RealClock
	}

	if opts.latestTTL <= 0 {
		opts.latestTTL = defaultLatestTTL
	}

	if ctx == nil {
		ctx = context.Background()
	}

	m := &Manager{
		logger:       logger,
		opts:         opts,
		clock:        opts.clock,
		storage:      opts.storage,
		routineMan:   routineman.NewRoutineMan(ctx, logger),
		sessions:     make(map[string]*session),
		unsaved:      make(map[string][]sink.Record),
		cachedLatest: cache.New(opts.latestTTL, opts.latestTTL),
	}

	if opts.checkInterval > 0 {
		ticker := m.clock.NewTicker(opts.checkInterval)

		m.routineMan.StartRoutine(func(ctx context.Context, _ func() bool) {
			m.idleRoutine(ctx, ticker)
		}, "idleRoutine")
	}

	return m
}

// AddPoint feeds p to the session of key, opening it when needed, and saves what the
// reducer retained. Records that failed to save are retried, first, with the next save
// of the key.
func (m *Manager) AddPoint(ctx context.Context, key string, p reducer.Point) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.closed {
		return ErrClosed
	}

	s, ok := m.sessions[key]
	if !ok {
		s = m.openSession(key)
		m.sessions[key] = s
	}

	s.lastAt = m.clock.Now()
	s.reducer.AddPoint(p)

	return m.flush(ctx, key, s)
}

// Finish ends the session of key: the buffered points are reduced and the last one retained.
func (m *Manager) Finish(ctx context.Context, key string) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	s, ok := m.sessions[key]
	if !ok {
		return commerr.ErrNotFound
	}

	return m.finish(ctx, key, s)
}

// FinishAll finishes every session and retries the records left unsaved by earlier finishes.
func (m *Manager) FinishAll(ctx context.Context) (err error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	// keys with a session retry with their finish
	var retryKeys []string

	for _, key := range m.unsavedKeys() {
		if _, ok := m.sessions[key]; !ok {
			retryKeys = append(retryKeys, key)
		}
	}

	for _, key := range m.keys() {
		if errF := m.finish(ctx, key, m.sessions[key]); errF != nil && err == nil {
			err = errF
		}
	}

	for _, key := range retryKeys {
		if errS := m.flushUnsaved(ctx, key, &session{}); errS != nil && err == nil {
			err = errS
		}
	}

	return
}

// FlushIdle finishes every session without samples for MaxIdle and returns their keys.
func (m *Manager) FlushIdle(ctx context.Context) (keys []string, err error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	now := m.clock.Now()

	for _, key := range m.keys() {
		s := m.sessions[key]
		if now.Sub(s.lastAt) < m.opts.maxIdle {
			continue
		}

		keys = append(keys, key)

		if errF := m.finish(ctx, key, s); errF != nil && err == nil {
			err = errF
		}
	}

	return
}

// Close stops the idle routine and finishes all sessions. Later samples fail with ErrClosed.
func (m *Manager) Close() error {
	m.routineMan.TriggerStop()
	m.routineMan.Wait()

	m.lock.Lock()
	m.closed = true
	m.lock.Unlock()

	return m.FinishAll(context.Background())
}

// Latest returns the last retained record of key, kept for LatestTTL.
func (m *Manager) Latest(key string) (record sink.Record, ok bool) {
	i, ok := m.cachedLatest.Get(key)
	if !ok {
		return
	}

	record, ok = i.(sink.Record)

	return
}

func (m *Manager) Keys() []string {
	m.lock.Lock()
	defer m.lock.Unlock()

	return m.keys()
}

func (m *Manager) SessionID(key string) (uint64, bool) {
	m.lock.Lock()
	defer m.lock.Unlock()

	s, ok := m.sessions[key]
	if !ok {
		return 0, false
	}

	return s.id, true
}

func (m *Manager) Stats(key string) (reducer.Stats, bool) {
	m.lock.Lock()
	defer m.lock.Unlock()

	s, ok := m.sessions[key]
	if !ok {
		return reducer.Stats{}, false
	}

	return s.reducer.Stats(), true
}

func (m *Manager) keys() []string {
	keys := make([]string, 0, len(m.sessions))
	for key := range m.sessions {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

func (m *Manager) openSession(key string) *session {
	s := &session{
		id: snowflake.ID(),
	}

	options := append(append([]reducer.Option{reducer.WithLogger(m.logger)}, m.opts.reducerOptions...),
		m.opts.keyOptions[key]...)

	s.reducer = reducer.NewDataReducer(options...)
	s.reducer.SetRetained(func(p reducer.Point) {
		record := sink.NewRecord(key, s.id, p, m.clock.Now())

		s.pending = append(s.pending, record)
		m.cachedLatest.SetDefault(key, record)
	})

	m.logger.WithFields(l.StringField("key", key), l.UInt64Field("sessionID", s.id)).Debug("session opened")

	return s
}

// Unsaved returns the records of finished sessions of key that failed to save.
func (m *Manager) Unsaved(key string) []sink.Record {
	m.lock.Lock()
	defer m.lock.Unlock()

	return append([]sink.Record{}, m.unsaved[key]...)
}

func (m *Manager) unsavedKeys() []string {
	keys := make([]string, 0, len(m.unsaved))
	for key := range m.unsaved {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

func (m *Manager) finish(ctx context.Context, key string, s *session) error {
	s.reducer.Finish()

	delete(m.sessions, key)

	m.logger.WithFields(l.StringField("key", key), l.UInt64Field("sessionID", s.id),
		l.IntField("retained", s.reducer.Stats().Retained)).Debug("session finished")

	return m.flushUnsaved(ctx, key, s)
}

// flushUnsaved flushes s, which is no longer open, keeping what failed under the key.
func (m *Manager) flushUnsaved(ctx context.Context, key string, s *session) error {
	err := m.flush(ctx, key, s)
	if err != nil {
		m.unsaved[key] = s.pending
	}

	return err
}

// flush saves the unsaved records of key followed by the pending ones of s. On failure
// all of them are left pending in s.
func (m *Manager) flush(ctx context.Context, key string, s *session) error {
	records := append(m.unsaved[key], s.pending...)

	delete(m.unsaved, key)

	s.pending = nil

	if m.storage == nil || len(records) == 0 {
		return nil
	}

	if err := m.storage.Save(ctx, key, records); err != nil {
		m.logger.WithFields(l.ErrorField(err), l.StringField("key", key),
			l.IntField("count", len(records))).Error("save records failed")

		s.pending = records

		return err
	}

	return nil
}

func (m *Manager) idleRoutine(ctx context.Context, ticker clockz.Ticker) {
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			keys, err := m.FlushIdle(ctx)
			if err != nil {
				m.logger.WithFields(l.ErrorField(err)).Error("flush idle sessions failed")
			}

			if len(keys) > 0 {
				m.logger.WithFields(l.IntField("count", len(keys))).Debug("idle sessions finished")
			}
		}
	}
}
