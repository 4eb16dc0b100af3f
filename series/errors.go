package series

import "errors"

var ErrClosed = errors.New("manager closed")
