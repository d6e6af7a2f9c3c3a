package failure

import (
	"errors"
	"net/http"
)

// Failure is an error that knows its HTTP status. Handlers render Message
// verbatim, so it must be safe to show a client.
type Failure struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

var ForbiddenError = &Failure{Code: http.StatusForbidden, Message: "You don't have the required permissions"}

func (e *Failure) Error() string {
	return e.Message
}

func newFailure(code int, msg string) error {
	return &Failure{Code: code, Message: msg}
}

// BadRequest wraps a validation error. A nil err stays nil.
func BadRequest(err error) error {
	if err == nil {
		return nil
	}

	return newFailure(http.StatusBadRequest, err.Error())
}

func BadRequestFromString(msg string) error {
	return newFailure(http.StatusBadRequest, msg)
}

func Unauthorized(msg string) error {
	return newFailure(http.StatusUnauthorized, msg)
}

func Forbidden(msg string) error {
	return newFailure(http.StatusForbidden, msg)
}

func NotFound(msg string) error {
	return newFailure(http.StatusNotFound, msg)
}

func MethodNotAllowed(method string) error {
	return newFailure(http.StatusMethodNotAllowed, method+" is not allowed on this route")
}

func Conflict(msg string) error {
	return newFailure(http.StatusConflict, msg)
}

// InternalError exposes err's message with a 500. A nil err stays nil.
func InternalError(err error) error {
	if err == nil {
		return nil
	}

	return newFailure(http.StatusInternalServerError, err.Error())
}

func Unimplemented(methodName string) error {
	return newFailure(http.StatusNotImplemented, methodName)
}

// Unavailable marks a backing store or collaborator that could not be reached.
// Clients get a retry prompt, never an empty result.
func Unavailable(msg string) error {
	return newFailure(http.StatusServiceUnavailable, msg)
}

// GetCode returns the status carried by err, 500 for anything else.
func GetCode(err error) int {
	var fail *Failure
	if errors.As(err, &fail) {
		return fail.Code
	}

	return http.StatusInternalServerError
}

func IsUnavailable(err error) bool {
	return GetCode(err) == http.StatusServiceUnavailable
}
