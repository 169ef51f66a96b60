package errors

import (
	stderrors "errors"
	"fmt"

	goerrors "github.com/go-errors/errors"
)

type ErrorType string

const (
	ErrTypeMalformedInput  ErrorType = "MALFORMED_INPUT"
	ErrTypeExportIO        ErrorType = "EXPORT_IO"
	ErrTypeInvalidSettings ErrorType = "INVALID_SETTINGS"
	ErrTypeUnavailable     ErrorType = "UNAVAILABLE"
	ErrTypeInternal        ErrorType = "INTERNAL"
)

type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Stack   []byte
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func (e *DomainError) StackTrace() []byte {
	return e.Stack
}

func New(errType ErrorType, message string, err error) *DomainError {
	var stack []byte
	if err != nil {
		if stackErr, ok := err.(*goerrors.Error); ok {
			stack = stackErr.Stack()
		} else {
			stack = goerrors.Wrap(err, 2).Stack()
		}
	} else {
		stack = goerrors.New(message).Stack()
	}

	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Stack:   stack,
	}
}

func MalformedInput(message string, err error) *DomainError {
	return New(ErrTypeMalformedInput, message, err)
}

func ExportIO(message string, err error) *DomainError {
	return New(ErrTypeExportIO, message, err)
}

func InvalidSettings(message string, err error) *DomainError {
	return New(ErrTypeInvalidSettings, message, err)
}

func Unavailable(message string, err error) *DomainError {
	return New(ErrTypeUnavailable, message, err)
}

func Internal(message string, err error) *DomainError {
	return New(ErrTypeInternal, message, err)
}

// Is reports whether any error in err's chain is a DomainError of the given type.
func Is(err error, errType ErrorType) bool {
	var de *DomainError
	for err != nil {
		if !stderrors.As(err, &de) {
			return false
		}
		if de.Type == errType {
			return true
		}
		err = de.Err
	}
	return false
}
