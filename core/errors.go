package pack

import (
	"errors"
	"fmt"
	"strings"

	"github.com/meigma/bale/rid"
)

// Sentinel errors.
var (
	// ErrFormat is returned for malformed identifiers, index data, or pack
	// directories.
	ErrFormat = errors.New("bale: malformed pack data")

	// ErrNotFound is matched by errors reporting an absent resource.
	ErrNotFound = errors.New("bale: resource not found")

	// ErrDigestMismatch is returned when resource bytes do not match the
	// digest recorded in the index.
	ErrDigestMismatch = errors.New("bale: resource digest mismatch")

	// ErrTooManyChunks is returned when a build needs more chunk files than
	// a chunk index can address.
	ErrTooManyChunks = errors.New("bale: too many chunk files")

	// ErrSizeOverflow is returned when byte counts exceed supported limits.
	ErrSizeOverflow = errors.New("bale: size overflow")
)

// NotFoundError reports that a pack does not hold a resource.
type NotFoundError struct {
	ID     rid.ID
	Reason string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("bale: resource %s not found: %s", e.ID, e.Reason)
}

// Is reports whether target is ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// LoadError reports a failure reading an indexed resource.
type LoadError struct {
	PackID string
	ID     rid.ID
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("bale: load %s from pack %s: %v", e.ID, e.PackID, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// ComponentFailure is one component's failure within an AggregateError.
type ComponentFailure struct {
	PackID string
	Err    error
}

// AggregateError reports that every component of a composite pack failed
// to load a resource.
//
// Error renders one line per component, in component order. When every
// failure is a not-found failure each line is "packID=reason" and the error
// matches ErrNotFound. Otherwise every line is "packID=message" using the
// full error message, and the error does not match ErrNotFound.
type AggregateError struct {
	ID       rid.ID
	Failures []ComponentFailure
}

// NotFound reports whether every component failure is a not-found failure.
func (e *AggregateError) NotFound() bool {
	for _, f := range e.Failures {
		if !errors.Is(f.Err, ErrNotFound) {
			return false
		}
	}
	return true
}

func (e *AggregateError) Error() string {
	return strings.Join(e.lines(), "\n")
}

// Is reports whether target is ErrNotFound and every failure is not-found.
func (e *AggregateError) Is(target error) bool {
	return target == ErrNotFound && e.NotFound()
}

func (e *AggregateError) lines() []string {
	reasons := e.NotFound()
	lines := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		var msg string
		if reasons {
			msg = Reason(f.Err)
		} else {
			msg = message(f.Err)
		}
		lines[i] = f.PackID + "=" + msg
	}
	return lines
}

// inline renders the aggregate on one line for nesting in another aggregate.
func (e *AggregateError) inline() string {
	return "[" + strings.Join(e.lines(), "; ") + "]"
}

// Reason returns the short not-found reason carried by err, or its full
// message when err is not a not-found failure.
func Reason(err error) string {
	var agg *AggregateError
	if errors.As(err, &agg) {
		return agg.inline()
	}
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return nf.Reason
	}
	return err.Error()
}

// message returns the full single-line message of err.
func message(err error) string {
	var agg *AggregateError
	if errors.As(err, &agg) {
		return agg.inline()
	}
	return strings.ReplaceAll(err.Error(), "\n", " ")
}
