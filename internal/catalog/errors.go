package catalog

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed fetch.
type ErrorKind string

// Error kinds.
const (
	KindNetwork    ErrorKind = "network"
	KindHTTPStatus ErrorKind = "http_status"
	KindBusiness   ErrorKind = "business"
)

// Sentinels matched by FetchError.Is, so callers can write
// errors.Is(err, catalog.ErrHTTPStatus).
var (
	ErrNetwork    = errors.New("catalog network error")
	ErrHTTPStatus = errors.New("catalog http status error")
	ErrBusiness   = errors.New("catalog business error")
)

// DefaultBusinessMessage is used when the catalog service reports a
// non-success status without a message of its own.
const DefaultBusinessMessage = "Something went wrong while loading products."

// FetchError is the classified failure returned by HTTPFetcher.
type FetchError struct {
	Kind       ErrorKind
	StatusCode int // transport status for http_status, business status for business
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	switch e.Kind {
	case KindHTTPStatus:
		return fmt.Sprintf("catalog %s error (status %d): %s", e.Kind, e.StatusCode, e.Message)
	case KindBusiness:
		return fmt.Sprintf("catalog %s error (code %d): %s", e.Kind, e.StatusCode, e.Message)
	default:
		if e.Err != nil {
			return fmt.Sprintf("catalog %s error: %s: %v", e.Kind, e.Message, e.Err)
		}
		return fmt.Sprintf("catalog %s error: %s", e.Kind, e.Message)
	}
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's kind.
func (e *FetchError) Is(target error) bool {
	switch target {
	case ErrNetwork:
		return e.Kind == KindNetwork
	case ErrHTTPStatus:
		return e.Kind == KindHTTPStatus
	case ErrBusiness:
		return e.Kind == KindBusiness
	}
	return false
}

// NewNetworkError wraps a transport failure.
func NewNetworkError(msg string, err error) *FetchError {
	return &FetchError{Kind: KindNetwork, Message: msg, Err: err}
}

// NewHTTPStatusError reports a non-2xx transport response.
func NewHTTPStatusError(code int, body string) *FetchError {
	return &FetchError{Kind: KindHTTPStatus, StatusCode: code, Message: body}
}

// NewBusinessError reports a 2xx response whose embedded status is not the
// expected success value. An empty msg falls back to DefaultBusinessMessage.
func NewBusinessError(code int, msg string) *FetchError {
	if msg == "" {
		msg = DefaultBusinessMessage
	}
	return &FetchError{Kind: KindBusiness, StatusCode: code, Message: msg}
}

// KindOf returns the kind of a classified error, or "" for anything else.
func KindOf(err error) ErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}
