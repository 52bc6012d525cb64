// Package apierr carries HTTP status and a stable error code alongside a
// wrapped cause, so services can tag failures without importing gin.
package apierr

import "fmt"

// Error is the transport-mapped error services return. Handlers unwrap it
// with errors.As; anything untagged surfaces as a 500 with no detail.
type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

// New tags err with a status and a machine-readable code such as
// "invalid_envelope" or "unknown_provider".
func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}
