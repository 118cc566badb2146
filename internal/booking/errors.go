package booking

import "errors"

// ErrNotFound is the store-level sentinel for missing records.
var ErrNotFound = errors.New("not found")

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Code identifies an expected, caller-recoverable failure.
type Code string

const (
	CodeNotFound             Code = "not_found"
	CodeInvalid              Code = "invalid"
	CodeOutsideServiceWindow Code = "outside_service_window"
	CodeNoCapacity           Code = "no_capacity"
	CodeNoSuitableCapacity   Code = "no_suitable_capacity"
	CodeNoTablesInSector     Code = "no_tables_in_sector"
	CodeInternal             Code = "internal_error"
)

// Error carries a taxonomy code alongside a human-readable message. All
// codes except internal_error describe conditions the caller can act on.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string { return string(e.Code) + ": " + e.Message }

func newError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// CodeOf extracts the taxonomy code from err, defaulting to internal_error
// for anything that isn't a *Error.
func CodeOf(err error) Code {
	var be *Error
	if errors.As(err, &be) {
		return be.Code
	}
	return CodeInternal
}

// IsAssignmentFailure reports whether the code is one of the table
// assignment engine's reasons. They all map to "no capacity" at the caller.
func IsAssignmentFailure(c Code) bool {
	switch c {
	case CodeNoCapacity, CodeNoSuitableCapacity, CodeNoTablesInSector:
		return true
	}
	return false
}
