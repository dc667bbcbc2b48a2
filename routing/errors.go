package routing

import (
	"errors"
	"fmt"
)

type invalidDefinitionError string

func (e invalidDefinitionError) Error() string { return string(e) }
func (e invalidDefinitionError) Code() string  { return string(e) }

var (
	errMissingFactory   = invalidDefinitionError("missing_factory")
	errMissingVariables = invalidDefinitionError("missing_inverse_variables")
	errMissingApp       = invalidDefinitionError("missing_app")
	errAlreadyMounted   = invalidDefinitionError("already_mounted")
	errNotMounted       = invalidDefinitionError("not_mounted")
	errEmptyMount       = invalidDefinitionError("empty_mount_pattern")
)

var (
	// ErrNotFound is returned when a path does not resolve to a model.
	ErrNotFound = errors.New("not found")

	// ErrDeferLoop is returned when deferred links do not lead to an
	// instance with an inverse path.
	ErrDeferLoop = errors.New("too many deferred links")
)

// DefinitionError is returned when a path or a mount cannot be added to an
// application.
type DefinitionError struct {
	App      string
	Pattern  string
	Original error
}

func (err *DefinitionError) Error() string {
	return fmt.Sprintf("%s [%s]: %v", err.App, err.Pattern, err.Original)
}

func (err *DefinitionError) Unwrap() error { return err.Original }

// Reason returns a short code of the cause, or "other".
func (err *DefinitionError) Reason() string {
	var defErr invalidDefinitionError
	if errors.As(err.Original, &defErr) {
		return defErr.Code()
	}

	return "other"
}
