package arca

import (
	"errors"
	"fmt"
)

// Kind classifies a failure talking to the ARCA webservices. Callers branch on
// the kind instead of matching message text.
type Kind int

const (
	// KindCertificate: certificate or key load, parse, temporal validity or
	// signing failure. Always local, never worth retrying as-is.
	KindCertificate Kind = iota + 1
	// KindAuth: WSAA protocol fault or malformed login response. Retry with
	// ForceNew after addressing the cause.
	KindAuth
	// KindConnection: transport failure (DNS/TCP/TLS/timeout). Retryable with
	// backoff by the caller; never retried here.
	KindConnection
	// KindService: the service reported a business-level error on an otherwise
	// successful exchange, or response handling failed unexpectedly.
	KindService
	// KindValidation: the comprobante was rejected. Correct the request.
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindCertificate:
		return "certificate"
	case KindAuth:
		return "auth"
	case KindConnection:
		return "connection"
	case KindService:
		return "service"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// Error is the single error type raised by this package. Code carries the
// remote error code when the service reported one.
type Error struct {
	Kind Kind
	Code string
	Msg  string
	err  error
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("arca: %s: %s (code %s)", e.Kind, e.Msg, e.Code)
	}
	return fmt.Sprintf("arca: %s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.err }

// KindOf returns the Kind of err if it is an *Error, zero otherwise.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return 0
}

func certErr(err error, format string, args ...any) *Error {
	return &Error{Kind: KindCertificate, Msg: fmt.Sprintf(format, args...), err: err}
}

func authErr(err error, format string, args ...any) *Error {
	return &Error{Kind: KindAuth, Msg: fmt.Sprintf(format, args...), err: err}
}

func connErr(err error, format string, args ...any) *Error {
	return &Error{Kind: KindConnection, Msg: fmt.Sprintf(format, args...), err: err}
}

func svcErr(code string, err error, format string, args ...any) *Error {
	return &Error{Kind: KindService, Code: code, Msg: fmt.Sprintf(format, args...), err: err}
}

func validationErr(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}
