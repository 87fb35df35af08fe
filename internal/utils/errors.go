package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind names a failure class of the extraction pipeline. It is returned
// to callers in the failure envelope.
type ErrorKind string

const (
	KindDownload          ErrorKind = "DownloadError"
	KindMalformedURL      ErrorKind = "MalformedURLError"
	KindParse             ErrorKind = "ParseError"
	KindExternalService   ErrorKind = "ExternalServiceError"
	KindMalformedResponse ErrorKind = "MalformedResponseError"
	KindSchemaViolation   ErrorKind = "SchemaViolationError"
	KindInputTooLarge     ErrorKind = "InputTooLargeError"
	KindUnsupportedType   ErrorKind = "UnsupportedTypeError"
	KindBadRequest        ErrorKind = "BadRequest"
	KindNotFound          ErrorKind = "NotFound"
	KindTimeout           ErrorKind = "TimeoutError"
	KindInternal          ErrorKind = "InternalError"
)

var kindStatus = map[ErrorKind]int{
	KindDownload:          http.StatusBadGateway,
	KindMalformedURL:      http.StatusBadRequest,
	KindParse:             http.StatusUnprocessableEntity,
	KindExternalService:   http.StatusBadGateway,
	KindMalformedResponse: http.StatusBadGateway,
	KindSchemaViolation:   http.StatusBadGateway,
	KindInputTooLarge:     http.StatusRequestEntityTooLarge,
	KindUnsupportedType:   http.StatusBadRequest,
	KindBadRequest:        http.StatusBadRequest,
	KindNotFound:          http.StatusNotFound,
	KindTimeout:           http.StatusServiceUnavailable,
	KindInternal:          http.StatusInternalServerError,
}

type AppError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	Err        error

	// UpstreamStatus is the HTTP status returned by the file host for
	// download failures.
	UpstreamStatus int
	// Raw holds the unparsed model output for malformed responses.
	Raw string
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func newAppError(kind ErrorKind, message string, err error) *AppError {
	return &AppError{
		Kind:       kind,
		StatusCode: kindStatus[kind],
		Message:    message,
		Err:        err,
	}
}

func NewBadRequestError(message string) *AppError {
	return newAppError(KindBadRequest, message, nil)
}

func NewNotFoundError(message string) *AppError {
	return newAppError(KindNotFound, message, nil)
}

func NewTimeoutError(message string) *AppError {
	return newAppError(KindTimeout, message, nil)
}

func NewInternalError(message string) *AppError {
	return newAppError(KindInternal, message, nil)
}

func NewDownloadError(status int) *AppError {
	e := newAppError(KindDownload, fmt.Sprintf("cannot download file: host returned status %d", status), nil)
	e.UpstreamStatus = status
	return e
}

func NewDownloadFailure(err error) *AppError {
	return newAppError(KindDownload, "cannot download file", err)
}

func NewMalformedURLError(message string) *AppError {
	return newAppError(KindMalformedURL, message, nil)
}

func NewParseError(message string, err error) *AppError {
	return newAppError(KindParse, message, err)
}

func NewExternalServiceError(message string, err error) *AppError {
	return newAppError(KindExternalService, message, err)
}

func NewMalformedResponseError(raw string, err error) *AppError {
	e := newAppError(KindMalformedResponse, "model response is not valid JSON", err)
	e.Raw = raw
	return e
}

func NewSchemaViolationError(message string, err error) *AppError {
	return newAppError(KindSchemaViolation, message, err)
}

func NewInputTooLargeError(message string) *AppError {
	return newAppError(KindInputTooLarge, message, nil)
}

func NewUnsupportedTypeError(ext string) *AppError {
	return newAppError(KindUnsupportedType, fmt.Sprintf("unsupported document type %q", ext), nil)
}

// AsAppError unwraps err into an *AppError. Anything else becomes an
// internal error that keeps err as its cause.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return newAppError(KindInternal, "internal server error", err)
}

// KindOf reports the ErrorKind of err, or KindInternal when err carries none.
func KindOf(err error) ErrorKind {
	return AsAppError(err).Kind
}
