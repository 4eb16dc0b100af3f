package sink

import "errors"

var (
	ErrClosed    = errors.New("storage closed")
	ErrBadRecord = errors.New("bad record")
)
