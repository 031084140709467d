// Package sizing provides overflow-checked size arithmetic for pack
// offsets and lengths.
package sizing

import (
	"io"
	"math"
)

// Int converts an on-disk length to a signed integer type, returning
// overflowErr if it does not fit.
func Int[T int | int64](n uint64, overflowErr error) (T, error) {
	var limit uint64 = math.MaxInt64
	if _, isInt := any(T(0)).(int); isInt {
		limit = math.MaxInt
	}
	if n > limit {
		return 0, overflowErr
	}
	return T(n), nil
}

// Add returns a+b. ok is false on overflow.
func Add(a, b uint64) (sum uint64, ok bool) {
	sum = a + b
	return sum, sum >= a
}

// ReadAll reads all of r, returning overflowErr if r holds more than
// limit bytes.
func ReadAll(r io.Reader, limit uint64, overflowErr error) ([]byte, error) {
	if limit > uint64(math.MaxInt-1) {
		return nil, overflowErr
	}
	lr := &io.LimitedReader{R: r, N: int64(limit) + 1} //nolint:gosec // checked above
	data, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if uint64(len(data)) > limit {
		return nil, overflowErr
	}
	return data, nil
}
