package lhttp

import (
	"fmt"
	"net/http"
)

// HttpError is the error type carried by every transport call. Code and
// Message describe a non-2xx response; Err describes a network or policy
// failure where no response was received.
type HttpError struct {
	Code    int
	Message string
	Err     error
}

func FromError(err error) *HttpError {
	if err == nil {
		return nil
	}

	// Own type
	if herr, ok := err.(*HttpError); ok {
		return herr
	}

	return &HttpError{Err: err}
}

func (e *HttpError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("got code %d and message \"%s\"", e.Code, e.Message)
}

func (e *HttpError) Clone() *HttpError {
	if e == nil {
		return nil
	}
	return &HttpError{
		Code:    e.Code,
		Message: e.Message,
		Err:     e.Err,
	}
}

// Transient reports whether the failure is worth retrying: either no response
// was received at all, or the server answered with a 5xx.
func (e *HttpError) Transient() bool {
	if e == nil {
		return false
	}
	return e.Err != nil || e.Code >= 500
}

func (e *HttpError) WithPayload(payload string) *HttpError {
	e.Message = payload
	return e
}

func NewNotFound(message string) *HttpError {
	return &HttpError{Code: http.StatusNotFound, Message: message}
}

func NewConflict(message string) *HttpError {
	return &HttpError{Code: http.StatusConflict, Message: message}
}

func NewBadRequest(message string) *HttpError {
	return &HttpError{Code: http.StatusBadRequest, Message: message}
}

func NewInternalError(message string) *HttpError {
	return &HttpError{Code: http.StatusInternalServerError, Message: message}
}
