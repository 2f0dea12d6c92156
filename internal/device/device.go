package device

import (
	"context"
)

// Advertisement is a single scan report produced by an Adapter.
// It is only valid for the duration of the scan handler call unless the
// caller keeps it to connect.
type Advertisement interface {
	LocalName() string // empty when the peripheral did not advertise a name
	Addr() string
	RSSI() int
	Connectable() bool
}

// Adapter wraps the host BLE radio
type Adapter interface {
	// WaitAvailable blocks until the radio is powered and usable.
	WaitAvailable(ctx context.Context) error

	// Scan delivers advertisements to handler until ctx is done or the
	// underlying scan ends. No service filter is applied and duplicates are
	// reported. A scan ended by ctx returns nil.
	Scan(ctx context.Context, handler func(Advertisement)) error

	// Connect dials the peripheral that produced adv.
	Connect(ctx context.Context, adv Advertisement) (Peer, error)

	// Disconnect tears the link down. Safe to call on an already lost link.
	Disconnect(peer Peer) error
}

// Peer is a connected remote peripheral
type Peer interface {
	Address() string
	Name() string
	IsConnected() bool

	// Disconnected is closed once the link is lost or torn down.
	Disconnected() <-chan struct{}

	DiscoverServices(ctx context.Context) ([]Service, error)
}

// Service represents a discovered GATT service
type Service interface {
	UUID() string
	DiscoverCharacteristics(ctx context.Context) ([]Characteristic, error)
}

// CharacteristicInfo represents characteristic metadata
type CharacteristicInfo interface {
	UUID() string
}

// CharacteristicWriter issues writes that do not wait for acknowledgement
type CharacteristicWriter interface {
	WriteWithoutResponse(data []byte) error
}

// CharacteristicSubscriber enables notifications.
// The returned channel is closed when ctx is done, the peer disconnects or
// the remote side stops notifying.
type CharacteristicSubscriber interface {
	Subscribe(ctx context.Context) (<-chan Notification, error)
}

// Characteristic combines info + operations
type Characteristic interface {
	CharacteristicInfo
	CharacteristicWriter
	CharacteristicSubscriber
}

// Notification is one item of a notification stream.
// Err is set when the transport reported a per-item failure (e.g. dropped data).
type Notification struct {
	Data []byte
	Err  error
}
