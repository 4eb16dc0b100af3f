package reducer

import "errors"

var (
	ErrBufferFull      = errors.New("buffer full")
	ErrNotEnoughPoints = errors.New("minimum 3 points required for reduction")
	ErrInvalidDataType = errors.New("invalid data type")
)
