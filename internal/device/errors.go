package device

import (
	"errors"
	"fmt"
	"strings"
)

// NotFoundError represents an error when a GATT resource is not found
type NotFoundError struct {
	Resource string   // "service", "characteristic"
	UUIDs    []string // One or more UUIDs (e.g., [serviceUUID] or [serviceUUID, charUUID])
}

func (e *NotFoundError) Error() string {
	if len(e.UUIDs) == 0 {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	if len(e.UUIDs) == 1 {
		return fmt.Sprintf("%s %q not found", e.Resource, e.UUIDs[0])
	}
	return fmt.Sprintf("%s %q not found in service %q", e.Resource, e.UUIDs[len(e.UUIDs)-1], e.UUIDs[0])
}

// ConnectionState represents the specific kind of connection state failure
type ConnectionState string

const (
	NotConnected   ConnectionState = "not_connected"
	NotInitialized ConnectionState = "not_initialized"
)

// ConnectionError represents any connection-related problem
type ConnectionError struct {
	State ConnectionState
	Msg   string
}

// Error implements the error interface
func (e *ConnectionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Msg == "" {
		return string(e.State)
	}
	return fmt.Sprintf("%s: %s", e.State, e.Msg)
}

// Is allows errors.Is to compare ConnectionError values by State
func (e *ConnectionError) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*ConnectionError)
	if !ok {
		return false
	}
	return e.State == t.State
}

// Predefined sentinel errors for connection states
var (
	ErrNotConnected   = &ConnectionError{State: NotConnected}
	ErrNotInitialized = &ConnectionError{State: NotInitialized}
)

// ErrUnsupported is returned by backends that are not available on this platform.
var ErrUnsupported = errors.New("unsupported")

// Kind classifies bridge failures.
type Kind string

const (
	KindAdapterUnavailable Kind = "adapter unavailable"
	KindScanFailed         Kind = "scan failed"
	KindNoMatchingDevice   Kind = "no matching device"
	KindConnectFailed      Kind = "connect failed"
	KindDiscoveryFailed    Kind = "discovery failed"
	KindSubscribeFailed    Kind = "subscribe failed"
	KindProfileUnsupported Kind = "profile unsupported"
	KindWriteFailed        Kind = "write failed"
	KindNotifyDecode       Kind = "notification decode error"
	KindDisconnectFailed   Kind = "disconnect failed"
)

// Error is a classified bridge failure. Two Errors match under errors.Is
// when their kinds are equal, so the Err* sentinels below can be used as targets.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	parts := []string{string(e.Kind)}
	if e.Msg != "" {
		parts = append(parts, e.Msg)
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	return strings.Join(parts, ": ")
}

// Is allows errors.Is to compare Error values by Kind
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Sentinels for errors.Is checks
var (
	ErrAdapterUnavailable = &Error{Kind: KindAdapterUnavailable}
	ErrScanFailed         = &Error{Kind: KindScanFailed}
	ErrNoMatchingDevice   = &Error{Kind: KindNoMatchingDevice}
	ErrConnectFailed      = &Error{Kind: KindConnectFailed}
	ErrDiscoveryFailed    = &Error{Kind: KindDiscoveryFailed}
	ErrSubscribeFailed    = &Error{Kind: KindSubscribeFailed}
	ErrProfileUnsupported = &Error{Kind: KindProfileUnsupported}
	ErrWriteFailed        = &Error{Kind: KindWriteFailed}
	ErrNotifyDecode       = &Error{Kind: KindNotifyDecode}
	ErrDisconnectFailed   = &Error{Kind: KindDisconnectFailed}
)

// Wrap classifies err under kind. A nil err still produces an Error so that
// conditions without an underlying cause (e.g. no match) can be reported.
func Wrap(kind Kind, err error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of the outermost classified error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// NormalizeError maps well-known backend error strings to the structured
// errors above. It ensures consistent handling even if the upstream library
// changes messages slightly. Returns wrapped errors to preserve original context.
func NormalizeError(err error) error {
	if err == nil {
		return nil
	}

	msg := err.Error()
	switch {
	case containsIgnoreCase(msg, "is bluetooth turned on"),
		containsIgnoreCase(msg, "bluetooth is turned off"),
		containsIgnoreCase(msg, "adapter is not powered"):
		return fmt.Errorf("%w: %v", ErrAdapterUnavailable, err)
	case containsIgnoreCase(msg, "device not connected"),
		containsIgnoreCase(msg, "disconnected"):
		return fmt.Errorf("%w: %v", ErrNotConnected, err)
	case containsIgnoreCase(msg, "connection is not initialized"):
		return fmt.Errorf("%w: %v", ErrNotInitialized, err)
	default:
		return err
	}
}

// containsIgnoreCase checks substring case-insensitively
func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// IsConnectionState reports whether err is a ConnectionError with the given state
func IsConnectionState(err error, state ConnectionState) bool {
	var cerr *ConnectionError
	if errors.As(err, &cerr) {
		return cerr.State == state
	}
	return false
}
