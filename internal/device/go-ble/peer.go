package goble

import (
	"context"
	"sync"

	"github.com/alwint3r/bluest-nordic-uart-service/internal/device"
	"github.com/alwint3r/bluest-nordic-uart-service/internal/groutine"
	"github.com/alwint3r/bluest-nordic-uart-service/internal/ringchan"
	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
)

// DefaultNotificationBuffer is the per-subscription notification buffer size.
// When the consumer falls behind, the oldest notifications are dropped.
const DefaultNotificationBuffer = 128

// BLEPeer is a live go-ble connection
type BLEPeer struct {
	client  gattClient
	address string
	name    string
	logger  *logrus.Logger

	writeMu   sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
}

func newBLEPeer(client gattClient, address, name string, logger *logrus.Logger) *BLEPeer {
	p := &BLEPeer{
		client:  client,
		address: address,
		name:    name,
		logger:  logger,
		done:    make(chan struct{}),
	}

	groutine.Go(context.Background(), "ble-connection-monitor", func(ctx context.Context) {
		select {
		case <-client.Disconnected():
			p.logger.WithField("address", p.address).Debug("go-ble reported disconnection")
			p.markDisconnected()
		case <-p.done:
		}
	})

	return p
}

func (p *BLEPeer) Address() string { return p.address }
func (p *BLEPeer) Name() string    { return p.name }

func (p *BLEPeer) Disconnected() <-chan struct{} { return p.done }

func (p *BLEPeer) IsConnected() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

func (p *BLEPeer) markDisconnected() {
	p.closeOnce.Do(func() { close(p.done) })
}

// cancel tears the link down once; later calls are no-ops.
func (p *BLEPeer) cancel() error {
	if !p.IsConnected() {
		return nil
	}
	err := device.NormalizeError(p.client.CancelConnection())
	p.markDisconnected()
	if device.IsConnectionState(err, device.NotConnected) {
		return nil
	}
	return err
}

// DiscoverServices enumerates all primary services
func (p *BLEPeer) DiscoverServices(ctx context.Context) ([]device.Service, error) {
	if !p.IsConnected() {
		return nil, device.ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	svcs, err := p.client.DiscoverServices(nil)
	if err != nil {
		return nil, device.NormalizeError(err)
	}

	result := make([]device.Service, 0, len(svcs))
	for _, s := range svcs {
		result = append(result, &BLEService{peer: p, svc: s})
	}
	return result, nil
}

// BLEService is a discovered go-ble service
type BLEService struct {
	peer *BLEPeer
	svc  *ble.Service
}

func (s *BLEService) UUID() string {
	return s.svc.UUID.String()
}

// DiscoverCharacteristics enumerates all characteristics of the service
func (s *BLEService) DiscoverCharacteristics(ctx context.Context) ([]device.Characteristic, error) {
	if !s.peer.IsConnected() {
		return nil, device.ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	chars, err := s.peer.client.DiscoverCharacteristics(nil, s.svc)
	if err != nil {
		return nil, device.NormalizeError(err)
	}

	result := make([]device.Characteristic, 0, len(chars))
	for _, c := range chars {
		result = append(result, &BLECharacteristic{peer: s.peer, char: c})
	}
	return result, nil
}

// BLECharacteristic is a discovered go-ble characteristic
type BLECharacteristic struct {
	peer *BLEPeer
	char *ble.Characteristic
}

func (c *BLECharacteristic) UUID() string {
	return c.char.UUID.String()
}

// WriteWithoutResponse issues an ATT write command
func (c *BLECharacteristic) WriteWithoutResponse(data []byte) error {
	if !c.peer.IsConnected() {
		return device.ErrNotConnected
	}

	c.peer.writeMu.Lock()
	defer c.peer.writeMu.Unlock()

	return device.NormalizeError(c.peer.client.WriteCharacteristic(c.char, data, true))
}

// Subscribe enables notifications (or indications when the characteristic
// only supports those) and streams them until ctx is done or the link drops.
func (c *BLECharacteristic) Subscribe(ctx context.Context) (<-chan device.Notification, error) {
	p := c.peer
	if !p.IsConnected() {
		return nil, device.ErrNotConnected
	}

	uuid := c.UUID()
	logger := p.logger.WithField("char_uuid", uuid)

	// go-ble needs the CCCD handle to enable notifications
	if c.char.CCCD == nil {
		if _, err := p.client.DiscoverDescriptors(nil, c.char); err != nil {
			logger.WithField("error", err).Debug("Descriptor discovery failed")
		}
	}

	indicate := c.char.Property&ble.CharNotify == 0 && c.char.Property&ble.CharIndicate != 0
	ring := ringchan.New[device.Notification](DefaultNotificationBuffer)

	err := p.client.Subscribe(c.char, indicate, func(data []byte) {
		buf := make([]byte, len(data))
		copy(buf, data)
		if ring.Send(device.Notification{Data: buf}) {
			logger.Warn("Notification buffer full, dropped oldest notification")
		}
	})
	if err != nil {
		ring.Close()
		return nil, device.NormalizeError(err)
	}

	groutine.Go(context.Background(), "ble-subscription-"+device.ShortenUUID(uuid), func(context.Context) {
		select {
		case <-ctx.Done():
			if p.IsConnected() {
				if err := p.client.Unsubscribe(c.char, indicate); err != nil {
					logger.WithField("error", err).Debug("Unsubscribe failed")
				}
			}
		case <-p.done:
		}
		ring.Close()
		logger.WithField("metrics", ring.GetMetrics()).Debug("Subscription closed")
	})

	return ring.C(), nil
}
