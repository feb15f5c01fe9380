package shell

import (
	"errors"
	"fmt"
)

const (
	CodeValidation        = "VALIDATION"
	CodeTabNotFound       = "TAB_NOT_FOUND"
	CodeEngineUnavailable = "ENGINE_UNAVAILABLE"
	CodeFilterFetchFailed = "FILTER_FETCH_FAILED"
	CodeShellClosed       = "SHELL_CLOSED"
)

// ErrClosed is returned for commands submitted after Shutdown.
var ErrClosed = newError(CodeShellClosed, "shell is shutting down", nil)

type CodedError struct {
	Code    string
	Message string
	Cause   error
}

func (e *CodedError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
}

func (e *CodedError) Unwrap() error { return e.Cause }

func newError(code, msg string, cause error) error {
	return &CodedError{Code: code, Message: msg, Cause: cause}
}

// ErrorCode returns the code of the first CodedError in err's chain, or "".
func ErrorCode(err error) string {
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Code
	}
	return ""
}
