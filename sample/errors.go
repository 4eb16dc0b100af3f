package sample

import "errors"

var ErrTooFewFields = errors.New("too few fields")
