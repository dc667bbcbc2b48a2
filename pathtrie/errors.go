package pathtrie

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPattern is the cause of every PatternError.
	ErrInvalidPattern = errors.New("invalid path pattern")

	// ErrConflict is the cause of every TrajectError.
	ErrConflict = errors.New("path conflict")

	// ErrNoInverse is returned by link generation when no inverse path is
	// registered for a model.
	ErrNoInverse = errors.New("no inverse path registered")

	// ErrBadRequest is the cause of every BadRequestError.
	ErrBadRequest = errors.New("bad request")
)

// PatternError is returned when a path pattern segment cannot be parsed.
type PatternError struct {
	Segment string
	Reason  string
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("%v: %q: %s", ErrInvalidPattern, e.Segment, e.Reason)
}

func (e *PatternError) Unwrap() error { return ErrInvalidPattern }

// TrajectError is returned when a pattern conflicts with the patterns
// already in the tree.
type TrajectError struct {
	Pattern string
	Reason  string
}

func (e *TrajectError) Error() string {
	return fmt.Sprintf("%v: %q: %s", ErrConflict, e.Pattern, e.Reason)
}

func (e *TrajectError) Unwrap() error { return ErrConflict }

// LinkError is returned when a path cannot be generated for a model.
type LinkError struct {
	Model  string
	Reason string
	Err    error
}

func (e *LinkError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot create link for %s: %s: %v", e.Model, e.Reason, e.Err)
	}

	return fmt.Sprintf("cannot create link for %s: %s", e.Model, e.Reason)
}

func (e *LinkError) Unwrap() error { return e.Err }

// BadRequestError is returned when a query parameter is missing or cannot
// be decoded. Callers map it to a client error.
type BadRequestError struct {
	Parameter string
	Err       error
}

func (e *BadRequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: parameter %q: %v", ErrBadRequest, e.Parameter, e.Err)
	}

	return fmt.Sprintf("%v: missing required parameter %q", ErrBadRequest, e.Parameter)
}

func (e *BadRequestError) Is(target error) bool { return target == ErrBadRequest }

func (e *BadRequestError) Unwrap() error { return e.Err }
