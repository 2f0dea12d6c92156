package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/alwint3r/bluest-nordic-uart-service/internal/device"
)

// Process exit codes
const (
	ExitOK                 = 0
	ExitFailure            = 1
	ExitNoMatchingDevice   = 2
	ExitAdapterUnavailable = 3
	ExitScanFailed         = 4
	ExitConnectFailed      = 5
	ExitDiscoveryFailed    = 6 // also subscribe failures
	ExitProfileUnsupported = 7
)

// ExitCode maps a command error to the process exit status.
// Ctrl+C is a normal exit.
func ExitCode(err error) int {
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return ExitOK
	case errors.Is(err, device.ErrNoMatchingDevice):
		return ExitNoMatchingDevice
	case errors.Is(err, device.ErrAdapterUnavailable):
		return ExitAdapterUnavailable
	case errors.Is(err, device.ErrScanFailed):
		return ExitScanFailed
	case errors.Is(err, device.ErrConnectFailed):
		return ExitConnectFailed
	case errors.Is(err, device.ErrProfileUnsupported):
		return ExitProfileUnsupported
	case errors.Is(err, device.ErrDiscoveryFailed), errors.Is(err, device.ErrSubscribeFailed):
		return ExitDiscoveryFailed
	default:
		return ExitFailure
	}
}

// FormatUserError renders err for the ERROR: line on stderr
func FormatUserError(err error) string {
	if err == nil {
		return ""
	}

	var nf *device.NotFoundError
	switch {
	case errors.Is(err, device.ErrUnsupported):
		return fmt.Sprintf("BLE is not supported on this platform: %v", err)
	case errors.Is(err, device.ErrAdapterUnavailable):
		return fmt.Sprintf("Bluetooth adapter is not available, is Bluetooth turned on? (%v)", err)
	case errors.Is(err, device.ErrProfileUnsupported) && errors.As(err, &nf):
		return fmt.Sprintf("device does not support the Nordic UART Service: %s", nf)
	default:
		return err.Error()
	}
}
