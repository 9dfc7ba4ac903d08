package core

import (
	"errors"
	"fmt"
)

// Result is the terminal outcome of one apply attempt.
type Result int

const (
	Success Result = iota
	Error
	Corrupt
	Retry
)

func (r Result) String() string {
	switch r {
	case Success:
		return "success"
	case Error:
		return "error"
	case Corrupt:
		return "corrupt"
	case Retry:
		return "retry"
	default:
		return fmt.Sprintf("result(%d)", int(r))
	}
}

// Error codes appended to the install log, matching the recovery error_code table.
const (
	ErrCodeZipVerificationFailure = 21
	ErrCodeZipOpenFailure         = 22
)

// ResultError tags a failure with the install result it maps to.
type ResultError struct {
	Result Result
	Err    error
}

func (e *ResultError) Error() string {
	if e.Err == nil {
		return e.Result.String()
	}
	return fmt.Sprintf("%s: %v", e.Result, e.Err)
}

func (e *ResultError) Unwrap() error { return e.Err }

// Fail builds a *ResultError from a format string.
func Fail(r Result, format string, args ...any) error {
	return &ResultError{Result: r, Err: fmt.Errorf(format, args...)}
}

// Wrap tags err with r. A nil err stays nil.
func Wrap(r Result, err error) error {
	if err == nil {
		return nil
	}
	return &ResultError{Result: r, Err: err}
}

// ResultOf recovers the result category of err. Untagged errors count as Error.
func ResultOf(err error) Result {
	if err == nil {
		return Success
	}
	var re *ResultError
	if errors.As(err, &re) {
		return re.Result
	}
	return Error
}
