package repository

import "errors"

var ErrDisabled = errors.New("generation log is disabled")
