package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure of a connect or print call
type Kind int

const (
	// Unknown is reported for errors that did not originate in this module
	Unknown Kind = iota
	// TransportUnavailable means the radio is off, the stack is missing or permission was denied
	TransportUnavailable
	// DeviceNotFound means a scan window elapsed without seeing the target
	DeviceNotFound
	// ConnectionFailed is a driver-level connect error
	ConnectionFailed
	// WriteFailed means the transport rejected a write
	WriteFailed
	// UnsupportedDevice means no writable characteristic was found
	UnsupportedDevice
	// ImageUnavailable is a logo fetch or decode failure
	ImageUnavailable
	// NotConnected is returned when printing without an active connection
	NotConnected
	// InvalidJob is returned for a print job that cannot be rendered
	InvalidJob
)

var kindNames = map[Kind]string{
	Unknown:              "Unknown",
	TransportUnavailable: "TransportUnavailable",
	DeviceNotFound:       "DeviceNotFound",
	ConnectionFailed:     "ConnectionFailed",
	WriteFailed:          "WriteFailed",
	UnsupportedDevice:    "UnsupportedDevice",
	ImageUnavailable:     "ImageUnavailable",
	NotConnected:         "NotConnected",
	InvalidJob:           "InvalidJob",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// HTTPStatus maps a kind to the status code used by the HTTP facade
func (k Kind) HTTPStatus() int {
	switch k {
	case TransportUnavailable:
		return http.StatusServiceUnavailable
	case DeviceNotFound:
		return http.StatusNotFound
	case ConnectionFailed, WriteFailed:
		return http.StatusBadGateway
	case UnsupportedDevice, InvalidJob:
		return http.StatusUnprocessableEntity
	case NotConnected:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Error is a typed failure carrying the operation that produced it
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// New creates a typed error. err may be nil.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf creates a typed error from a format string
func Newf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, apperror.New(DeviceNotFound, "", nil)) works
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in the chain, or Unknown
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return Unknown
}

// IsKind reports whether err carries the given kind
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
