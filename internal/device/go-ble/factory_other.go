//go:build !darwin && !linux

package goble

import (
	"fmt"
	"runtime"

	"github.com/alwint3r/bluest-nordic-uart-service/internal/device"
	"github.com/go-ble/ble"
)

// DeviceFactory creates ble.Device instances (can be overridden in tests)
//
//nolint:revive // DeviceFactory name is intentional for test mocking
var DeviceFactory = func() (ble.Device, error) {
	return nil, fmt.Errorf("go-ble on %s: %w", runtime.GOOS, device.ErrUnsupported)
}
