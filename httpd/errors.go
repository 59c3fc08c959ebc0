package httpd

import "fmt"

// ErrorCode enumerates server-side error kinds.
type ErrorCode int

const (
	ErrCodeBadRequest ErrorCode = iota
	ErrCodeHeadersTooLarge
	ErrCodeLengthRequired
	ErrCodeEntityTooLarge
	ErrCodeNotImplemented
	ErrCodeNotFound
	ErrCodeTimeout
	ErrCodeFatal
)

// Error is the structured error httpd functions return, in the
// api.Error{Code, Message, Context} shape.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
}

func (e *Error) Error() string {
	if len(e.Context) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (context: %+v)", e.Message, e.Context)
}

func newErr(code ErrorCode, msg string) *Error {
	return &Error{Code: code, Message: msg}
}
