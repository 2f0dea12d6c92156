package devicefactory

import (
	"fmt"
	"sort"
	"strings"

	"github.com/alwint3r/bluest-nordic-uart-service/internal/device"
	"github.com/alwint3r/bluest-nordic-uart-service/internal/device/bluez"
	goble "github.com/alwint3r/bluest-nordic-uart-service/internal/device/go-ble"
	"github.com/sirupsen/logrus"
)

const (
	BackendGoBLE = "goble"
	BackendBlueZ = "bluez"

	// DefaultBackend is used when no backend is configured
	DefaultBackend = BackendGoBLE
)

// AdapterFactory creates a device.Adapter for one backend
type AdapterFactory func(logger *logrus.Logger) device.Adapter

// Backends maps backend names to adapter constructors.
// This is a variable so that it can be overridden in tests.
var Backends = map[string]AdapterFactory{
	BackendGoBLE: func(logger *logrus.Logger) device.Adapter { return goble.NewAdapter(logger) },
	BackendBlueZ: func(logger *logrus.Logger) device.Adapter { return bluez.NewAdapter(logger) },
}

// NewAdapter creates the adapter for the named backend. An empty name selects DefaultBackend.
func NewAdapter(backend string, logger *logrus.Logger) (device.Adapter, error) {
	name := strings.ToLower(strings.TrimSpace(backend))
	if name == "" {
		name = DefaultBackend
	}

	factory, ok := Backends[name]
	if !ok {
		return nil, fmt.Errorf("unknown BLE backend %q (available: %s)", backend, strings.Join(Names(), ", "))
	}

	if logger != nil {
		logger.WithField("backend", name).Debug("Creating BLE adapter")
	}
	return factory(logger), nil
}

// Names returns the registered backend names in sorted order
func Names() []string {
	names := make([]string, 0, len(Backends))
	for name := range Backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
