package apperrors

import "errors"

// Code identifies the category of a domain error. Values are stable and
// surface verbatim in API error payloads.
type Code string

const (
	CodeNotFound       Code = "NOT_FOUND"
	CodeAuthorization  Code = "AUTHORIZATION_ERROR"
	CodeValidation     Code = "VALIDATION_ERROR"
	CodeConflict       Code = "CONFLICT_ERROR"
	CodeAuthentication Code = "AUTHENTICATION_ERROR"
)

// Error is the domain error type shared by the repositories and services.
// The message is pass-through: whatever a constructor received is what the
// caller (and ultimately the API client) sees.
type Error struct {
	code    Code
	message string
	cause   error
}

func (e *Error) Error() string {
	return e.message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Code returns the error category.
func (e *Error) Code() Code {
	return e.code
}

// NotFound reports that an entity id does not exist at all.
func NotFound(message string) *Error {
	return &Error{code: CodeNotFound, message: message}
}

// Authorization reports that an entity exists but the caller does not own it.
func Authorization(message string) *Error {
	return &Error{code: CodeAuthorization, message: message}
}

// Validation reports malformed input.
func Validation(message string) *Error {
	return &Error{code: CodeValidation, message: message}
}

// Conflict reports a uniqueness violation such as a duplicate username.
func Conflict(message string) *Error {
	return &Error{code: CodeConflict, message: message}
}

// Authentication reports bad credentials or an unusable token.
func Authentication(message string) *Error {
	return &Error{code: CodeAuthentication, message: message}
}

// WithCause attaches an underlying error for errors.Is/As chains.
func (e *Error) WithCause(cause error) *Error {
	return &Error{code: e.code, message: e.message, cause: cause}
}

// CodeOf extracts the Code from err, reporting whether err is a domain error.
func CodeOf(err error) (Code, bool) {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.code, true
	}
	return "", false
}
