package copepod

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/oreanmos/copepod-go/internal/constants"
)

// ErrorKind classifies a normalized error.
type ErrorKind int

const (
	// KindTransport is a network, TLS or DNS failure. It never carries a status.
	KindTransport ErrorKind = iota + 1
	// KindAPI is a non-2xx response from the platform.
	KindAPI
	// KindAuth is a local precondition that was not met before dispatch: a missing
	// credential, or a request interceptor refusing the call.
	KindAuth
	// KindDecode is a success response whose body did not match the expected shape.
	KindDecode
	// KindStream is a malformed or unexpected frame on an event stream.
	KindStream
)

// Sentinels matched by errors.Is against any *Error of the same kind.
var (
	ErrTransport = errors.New("transport error")
	ErrAPI       = errors.New("api error")
	ErrAuth      = errors.New("auth error")
	ErrDecode    = errors.New("decode error")
	ErrStream    = errors.New("stream error")
)

// Static errors for err113 compliance.
var (
	ErrMFARequired              = errors.New("multi-factor authentication required")
	ErrInvalidBaseURL           = errors.New("invalid base URL")
	ErrConfigRequired           = errors.New("config is required")
	ErrIncompleteTokenPair      = errors.New("response carries no token pair")
	ErrUnsupportedOperationType = errors.New("unsupported operation type")
	ErrInvalidBatchData         = errors.New("invalid data type for record operation")
)

func (k ErrorKind) sentinel() error {
	switch k {
	case KindTransport:
		return ErrTransport
	case KindAPI:
		return ErrAPI
	case KindAuth:
		return ErrAuth
	case KindDecode:
		return ErrDecode
	case KindStream:
		return ErrStream
	default:
		return nil
	}
}

// String returns the kind name used in error messages.
func (k ErrorKind) String() string {
	if s := k.sentinel(); s != nil {
		return s.Error()
	}

	return "unknown error"
}

// Error is the single error type returned by the request pipeline and the event stream.
//
// For KindAPI errors Status holds the HTTP status and Code the optional machine-readable
// code; an empty Code means the server did not send one. Message is the server's message
// verbatim, or a fixed fallback when the body carried none.
type Error struct {
	Kind    ErrorKind `json:"kind"              yaml:"kind"`
	Status  int       `json:"status,omitempty"  yaml:"status,omitempty"`
	Code    string    `json:"code,omitempty"    yaml:"code,omitempty"`
	Message string    `json:"message"           yaml:"message"`
	Err     error     `json:"-"                 yaml:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Kind == KindAPI {
		if e.Code != "" {
			return fmt.Sprintf("%s %d (%s): %s", e.Kind, e.Status, e.Code, e.Message)
		}

		return fmt.Sprintf("%s %d: %s", e.Kind, e.Status, e.Message)
	}

	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's kind.
func (e *Error) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

// HasCode reports whether the server supplied a machine-readable code.
func (e *Error) HasCode() bool {
	return e.Code != ""
}

// NewTransportError wraps a failure of the network layer.
func NewTransportError(err error) *Error {
	return &Error{Kind: KindTransport, Message: err.Error(), Err: err}
}

// NewAuthError reports an unmet local authentication precondition.
func NewAuthError(message string) *Error {
	return &Error{Kind: KindAuth, Message: message}
}

// NewRejectedError wraps the refusal of a request interceptor. Nothing was sent.
func NewRejectedError(err error) *Error {
	return &Error{Kind: KindAuth, Message: "request rejected: " + err.Error(), Err: err}
}

// NewDecodeError wraps a failure to decode a success body.
func NewDecodeError(err error) *Error {
	return &Error{Kind: KindDecode, Message: err.Error(), Err: err}
}

// NewStreamError reports a malformed or unexpected event stream frame.
func NewStreamError(message string, err error) *Error {
	return &Error{Kind: KindStream, Message: message, Err: err}
}

// NewAPIError builds an application failure from its parts.
func NewAPIError(status int, code, message string) *Error {
	return &Error{Kind: KindAPI, Status: status, Code: code, Message: message}
}

// ParseAPIError normalizes a non-2xx response body. The body is read as a generic JSON
// value; "code" and "message" are taken when they are strings. A body that is empty or
// not JSON yields the fallback message (constants.DefaultErrorMessage when empty).
func ParseAPIError(status int, body []byte, fallback string) *Error {
	if fallback == "" {
		fallback = constants.DefaultErrorMessage
	}

	var payload map[string]interface{}

	_ = json.Unmarshal(body, &payload)

	code, _ := payload["code"].(string)

	message, ok := payload["message"].(string)
	if !ok {
		message = fallback
	}

	return NewAPIError(status, code, message)
}

// MFARequiredError is returned by Login when the account needs a second factor.
// Complete the login with AuthClient.VerifyMFA using MFAToken.
type MFARequiredError struct {
	MFAToken string
}

// Error implements the error interface.
func (e *MFARequiredError) Error() string {
	return ErrMFARequired.Error()
}

// Is matches ErrMFARequired and ErrAuth.
func (e *MFARequiredError) Is(target error) bool {
	return target == ErrMFARequired || target == ErrAuth
}

// StatusCode returns the HTTP status of an application error, or 0.
func StatusCode(err error) int {
	apiErr := &Error{}
	if errors.As(err, &apiErr) && apiErr.Kind == KindAPI {
		return apiErr.Status
	}

	return 0
}

// ErrorCode returns the machine-readable code of an application error, or "".
func ErrorCode(err error) string {
	apiErr := &Error{}
	if errors.As(err, &apiErr) && apiErr.Kind == KindAPI {
		return apiErr.Code
	}

	return ""
}

// IsNotFound checks if the error is a not found error.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// IsUnauthorized checks if the error is an unauthorized error.
func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}

// IsForbidden checks if the error is a forbidden error.
func IsForbidden(err error) bool {
	return StatusCode(err) == http.StatusForbidden
}
