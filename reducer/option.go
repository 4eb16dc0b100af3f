package reducer

import "github.com/sgostarter/i/l"

const (
	DefaultBufferSize   = 10
	DefaultAllowedError = 2.0

	// MinBufferSize is the smallest window that can ever be reduced.
	MinBufferSize = 3
)

type Options struct {
	bufferSize   int
	allowedError float64
	dataType     DataType
	logger       l.Wrapper
	retained     FNRetained
}

type Option func(o *Options)

func optionNew(option ...Option) *Options {
	opts := &Options{
		bufferSize:   DefaultBufferSize,
		allowedError: DefaultAllowedError,
		dataType:     DataTypeSingleValue,
	}

	for _, o := range option {
		o(opts)
	}

	return opts
}

func WithBufferSize(bufferSize int) Option {
	return func(o *Options) {
		o.bufferSize = bufferSize
	}
}

// WithAllowedError sets the distance a point may deviate before it is retained.
// A bigger value retains fewer points; 0 retains every point off the line.
func WithAllowedError(allowedError float64) Option {
	return func(o *Options) {
		o.allowedError = allowedError
	}
}

func WithDataType(dataType DataType) Option {
	return func(o *Options) {
		o.dataType = dataType
	}
}

func WithLogger(logger l.Wrapper) Option {
	return func(o *Options) {
		o.logger = logger
	}
}

func WithRetained(fn FNRetained) Option {
	return func(o *Options) {
		o.retained = fn
	}
}
