// Package bluez implements device.Adapter on Linux through tinygo.org/x/bluetooth,
// which talks to BlueZ over D-Bus. Adapter power is checked directly on the
// bus before the stack is enabled.
package bluez

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/alwint3r/bluest-nordic-uart-service/internal/device"
	"github.com/godbus/dbus/v5"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

const (
	bluezDest     = "org.bluez"
	bluezRoot     = "/"
	adapterPrefix = "/org/bluez/"
	adapterIface  = "org.bluez.Adapter1"

	// DefaultPowerPollInterval is how often Adapter1.Powered is re-read while
	// waiting for the radio.
	DefaultPowerPollInterval = 500 * time.Millisecond
)

// powerProbe reports whether the local radio is powered
type powerProbe interface {
	Powered() (bool, error)
	Close() error
}

type dbusPowerProbe struct {
	conn *dbus.Conn
	path dbus.ObjectPath
}

func newDBusPowerProbe() (powerProbe, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("dbus: %w", err)
	}
	path, err := findAdapterPath(conn)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &dbusPowerProbe{conn: conn, path: path}, nil
}

// findAdapterPath returns the first BlueZ adapter in path order (hci0 before hci1).
func findAdapterPath(conn *dbus.Conn) (dbus.ObjectPath, error) {
	var out map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	obj := conn.Object(bluezDest, bluezRoot)
	if err := obj.Call("org.freedesktop.DBus.ObjectManager.GetManagedObjects", 0).Store(&out); err != nil {
		return "", fmt.Errorf("GetManagedObjects: %w", err)
	}

	var paths []string
	for path, ifaces := range out {
		if _, ok := ifaces[adapterIface]; !ok {
			continue
		}
		if strings.HasPrefix(string(path), adapterPrefix) {
			paths = append(paths, string(path))
		}
	}
	if len(paths) == 0 {
		return "", fmt.Errorf("no BlueZ adapter found")
	}
	sort.Strings(paths)
	return dbus.ObjectPath(paths[0]), nil
}

func (p *dbusPowerProbe) Powered() (bool, error) {
	var v dbus.Variant
	err := p.conn.Object(bluezDest, p.path).
		Call("org.freedesktop.DBus.Properties.Get", 0, adapterIface, "Powered").
		Store(&v)
	if err != nil {
		return false, fmt.Errorf("read %s.Powered: %w", p.path, err)
	}
	powered, ok := v.Value().(bool)
	if !ok {
		return false, fmt.Errorf("read %s.Powered: unexpected type %T", p.path, v.Value())
	}
	return powered, nil
}

func (p *dbusPowerProbe) Close() error {
	return p.conn.Close()
}

// waitPowered polls probe until the radio reports powered or ctx is done.
func waitPowered(ctx context.Context, clock clockwork.Clock, interval time.Duration, probe powerProbe, logger *logrus.Logger) error {
	ticker := clock.NewTicker(interval)
	defer ticker.Stop()

	logged := false
	for {
		powered, err := probe.Powered()
		if err != nil {
			return device.Wrap(device.KindAdapterUnavailable, err, "query adapter power")
		}
		if powered {
			return nil
		}
		if !logged {
			logger.Info("Bluetooth adapter is powered off, waiting...")
			logged = true
		}

		select {
		case <-ctx.Done():
			return device.Wrap(device.KindAdapterUnavailable, ctx.Err(), "adapter not powered")
		case <-ticker.Chan():
		}
	}
}
