package models

import "fmt"

// ErrorKind classifies broker failures. Each kind maps to a stable numeric
// envelope code so clients can branch without parsing messages.
type ErrorKind string

const (
	KindValidation        ErrorKind = "validation_error"
	KindInvalidAPIKey     ErrorKind = "invalid_api_key"
	KindInvalidState      ErrorKind = "invalid_state"
	KindNotFound          ErrorKind = "not_found"
	KindConflict          ErrorKind = "conflict"
	KindCodeExchange      ErrorKind = "code_exchange_failed"
	KindNotBound          ErrorKind = "not_bound"
	KindUnsupported       ErrorKind = "unsupported_command"
	KindRefreshFailed     ErrorKind = "refresh_failed"
	KindVendorUnavailable ErrorKind = "vendor_unavailable"
	KindVendorRejected    ErrorKind = "vendor_rejected"
	KindInternal          ErrorKind = "internal"
)

// Code returns the stable envelope code for the kind. The values double as
// HTTP statuses.
func (k ErrorKind) Code() int {
	switch k {
	case KindValidation:
		return 400
	case KindInvalidAPIKey:
		return 401
	case KindInvalidState:
		return 403
	case KindNotFound:
		return 404
	case KindConflict, KindCodeExchange:
		return 409
	case KindNotBound:
		return 412
	case KindUnsupported:
		return 422
	case KindRefreshFailed:
		return 424
	case KindVendorUnavailable:
		return 502
	case KindVendorRejected:
		return 502
	default:
		return 500
	}
}

// BrokerError is the uniform failure type surfaced through the response
// envelope. Data carries structured detail (for vendor rejections, the raw
// upstream payload) without re-interpretation.
type BrokerError struct {
	Kind ErrorKind
	Msg  string
	Data interface{}
	// Status overrides Kind.Code() when non-zero. Used to pass a vendor's
	// own HTTP status through to the client.
	Status int
	Err    error
}

func (e *BrokerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *BrokerError) Unwrap() error {
	return e.Err
}

// Code returns the envelope code for this error.
func (e *BrokerError) Code() int {
	if e.Status != 0 {
		return e.Status
	}
	return e.Kind.Code()
}

// NewError creates a BrokerError with a formatted message.
func NewError(kind ErrorKind, format string, args ...interface{}) *BrokerError {
	return &BrokerError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// WrapError creates a BrokerError wrapping a cause.
func WrapError(kind ErrorKind, err error, format string, args ...interface{}) *BrokerError {
	return &BrokerError{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}
