package oras

import "errors"

// ErrInvalidReference is returned when a reference string is malformed.
var ErrInvalidReference = errors.New("oras: invalid reference")
