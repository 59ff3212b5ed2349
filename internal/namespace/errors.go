package namespace

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound matches every NotFoundError.
	ErrNotFound = errors.New("function not found")

	// ErrDuplicateName matches every DuplicateNameError.
	ErrDuplicateName = errors.New("function name already registered")

	// ErrInvalidArguments matches every ArgumentError.
	ErrInvalidArguments = errors.New("invalid arguments")

	// ErrSealed is returned when registering into a sealed namespace.
	ErrSealed = errors.New("namespace is sealed")
)

// NotFoundError reports an invocation or lookup of a name with no registered function.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no function registered under name %q", e.Name)
}

// Is lets errors.Is(err, ErrNotFound) match.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// DuplicateNameError reports a registration under a name that is already in use.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("function with name %q already registered", e.Name)
}

// Is lets errors.Is(err, ErrDuplicateName) match.
func (e *DuplicateNameError) Is(target error) bool {
	return target == ErrDuplicateName
}

// ArgumentError reports a call whose arguments do not fit the function's signature.
// It is produced before the implementation runs.
type ArgumentError struct {
	Function string
	// Param is the parameter the problem relates to. Empty for arity problems.
	Param  string
	Reason string
	Err    error
}

func (e *ArgumentError) Error() string {
	msg := e.Function + "(): "
	if e.Param != "" {
		msg += fmt.Sprintf("argument %q: ", e.Param)
	}
	msg += e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying conversion error, if any.
func (e *ArgumentError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrInvalidArguments) match.
func (e *ArgumentError) Is(target error) bool {
	return target == ErrInvalidArguments
}
