package store

import "errors"

// ErrNotFound is returned when a row does not exist for the given key.
var ErrNotFound = errors.New("not found")
