package series

import (
	"time"

	"github.com/sgostarter/i/l"
	"github.com/sgostarter/libreducer/reducer"
	"github.com/sgostarter/libreducer/sink"
	"github.com/zoobzio/clockz"
)

const (
	DefaultMaxIdle   = 5 * time.Minute
	defaultLatestTTL = time.Hour
)

type Options struct {
	logger        l.Wrapper
	clock         clockz.Clock
	storage       sink.Storage
	maxIdle       time.Duration
	checkInterval time.Duration
	latestTTL     time.Duration

	reducerOptions []reducer.Option
	keyOptions     map[string][]reducer.Option
}

type Option func(o *Options)

func optionNew(option ...Option) *Options {
	opts := &Options{
		clock:      clockz.RealClock,
		maxIdle:    DefaultMaxIdle,
		latestTTL:  defaultLatestTTL,
		keyOptions: make(map[string][]reducer.Option),
	}

	for _, o := range option {
		o(opts)
	}

	return opts
}

func WithLogger(logger l.Wrapper) Option {
	return func(o *Options) {
		o.logger = logger
	}
}

func WithClock(clock clockz.Clock) Option {
	return func(o *Options) {
		o.clock = clock
	}
}

// WithStorage persists the retained records. Without it only Latest keeps them.
func WithStorage(storage sink.Storage) Option {
	return func(o *Options) {
		o.storage = storage
	}
}

// WithMaxIdle sets how long a session may go without samples before FlushIdle finishes it.
func WithMaxIdle(d time.Duration) Option {
	return func(o *Options) {
		o.maxIdle = d
	}
}

// WithCheckInterval starts a routine calling FlushIdle every d. Zero disables it.
func WithCheckInterval(d time.Duration) Option {
	return func(o *Options) {
		o.checkInterval = d
	}
}

func WithLatestTTL(d time.Duration) Option {
	return func(o *Options) {
		o.latestTTL = d
	}
}

// WithReducerOptions applies to the reducer of every session.
func WithReducerOptions(options ...reducer.Option) Option {
	return func(o *Options) {
		o.reducerOptions = append(o.reducerOptions, options...)
	}
}

// WithKeyReducerOptions applies after the common reducer options, to the sessions of key only.
func WithKeyReducerOptions(key string, options ...reducer.Option) Option {
	return func(o *Options) {
		o.keyOptions[key] = append(o.keyOptions[key], options...)
	}
}
