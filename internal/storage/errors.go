package storage

import "errors"

// ErrEmptyToken is returned when a write is attempted without a token key.
var ErrEmptyToken = errors.New("token is required")
