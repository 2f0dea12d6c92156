// Package device defines the Bluetooth Low Energy capabilities the bridge
// consumes, independent of the BLE stack that provides them.
//
// The package contains:
//   - Adapter, Peer, Service and Characteristic interfaces
//   - the error taxonomy shared by backends and the session driver
//   - UUID normalization used for case- and dash-insensitive matching
//
// Concrete backends live in sub-packages (go-ble, bluez).
package device
