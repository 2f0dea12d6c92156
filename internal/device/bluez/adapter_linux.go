//go:build linux

package bluez

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/alwint3r/bluest-nordic-uart-service/internal/device"
	"github.com/alwint3r/bluest-nordic-uart-service/internal/groutine"
	"github.com/alwint3r/bluest-nordic-uart-service/internal/ringchan"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"tinygo.org/x/bluetooth"
)

// DefaultNotificationBuffer is the per-subscription notification buffer size.
const DefaultNotificationBuffer = 128

// Adapter implements device.Adapter on top of tinygo.org/x/bluetooth
type Adapter struct {
	bt           *bluetooth.Adapter
	logger       *logrus.Logger
	clock        clockwork.Clock
	pollInterval time.Duration
	stopRetry    time.Duration
	newProbe     func() (powerProbe, error)

	mu      sync.Mutex
	enabled bool
	peers   map[string]*Peer
}

// NewAdapter creates a BlueZ backed adapter using the default HCI adapter
func NewAdapter(logger *logrus.Logger) *Adapter {
	if logger == nil {
		logger = logrus.New()
	}
	return &Adapter{
		bt:           bluetooth.DefaultAdapter,
		logger:       logger,
		clock:        clockwork.NewRealClock(),
		pollInterval: DefaultPowerPollInterval,
		stopRetry:    DefaultScanStopRetry,
		newProbe:     newDBusPowerProbe,
		peers:        make(map[string]*Peer),
	}
}

// WaitAvailable blocks until BlueZ reports the adapter powered, then enables the stack.
func (a *Adapter) WaitAvailable(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.enabled {
		return nil
	}

	probe, err := a.newProbe()
	if err != nil {
		return device.Wrap(device.KindAdapterUnavailable, err, "connect to BlueZ")
	}
	defer func() {
		if err := probe.Close(); err != nil {
			a.logger.WithField("error", err).Debug("Failed to close D-Bus connection")
		}
	}()

	if err := waitPowered(ctx, a.clock, a.pollInterval, probe, a.logger); err != nil {
		return err
	}

	if err := a.bt.Enable(); err != nil {
		return device.Wrap(device.KindAdapterUnavailable, device.NormalizeError(err), "enable BlueZ adapter")
	}
	a.bt.SetConnectHandler(a.onConnectEvent)
	a.enabled = true
	return nil
}

func (a *Adapter) onConnectEvent(dev bluetooth.Device, connected bool) {
	if connected {
		return
	}
	addr := dev.Address.String()

	a.mu.Lock()
	p, ok := a.peers[addr]
	delete(a.peers, addr)
	a.mu.Unlock()

	if ok {
		a.logger.WithField("address", addr).Debug("BlueZ reported disconnection")
		p.markDisconnected()
	}
}

// Scan runs BlueZ LE discovery until ctx is done
func (a *Adapter) Scan(ctx context.Context, handler func(device.Advertisement)) error {
	if err := a.WaitAvailable(ctx); err != nil {
		return err
	}
	if ctx.Err() != nil {
		return nil
	}

	done := make(chan struct{})
	stopped := groutine.Go(ctx, "bluez-scan-stop", func(ctx context.Context) {
		stopScanWhenDone(ctx, done, a.clock, a.stopRetry, a.bt.StopScan, a.logger)
	})

	err := a.bt.Scan(func(_ *bluetooth.Adapter, result bluetooth.ScanResult) {
		if ctx.Err() != nil {
			return
		}
		handler(&scanAdvertisement{result: result})
	})
	close(done)
	<-stopped

	if err != nil && ctx.Err() == nil {
		return device.NormalizeError(err)
	}
	return nil
}

// Connect dials the advertised MAC address. tinygo has its own connect
// timeout; ctx only lets the caller stop waiting for it.
func (a *Adapter) Connect(ctx context.Context, adv device.Advertisement) (device.Peer, error) {
	if err := a.WaitAvailable(ctx); err != nil {
		return nil, err
	}

	mac, err := bluetooth.ParseMAC(adv.Addr())
	if err != nil {
		return nil, fmt.Errorf("parse address %q: %w", adv.Addr(), err)
	}
	addr := bluetooth.Address{MACAddress: bluetooth.MACAddress{MAC: mac}}

	type connectResult struct {
		dev bluetooth.Device
		err error
	}
	ch := make(chan connectResult, 1)
	groutine.Go(ctx, "bluez-connect", func(context.Context) {
		dev, err := a.bt.Connect(addr, bluetooth.ConnectionParams{})
		ch <- connectResult{dev: dev, err: err}
	})

	var r connectResult
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r = <-ch:
	}
	if r.err != nil {
		return nil, device.NormalizeError(r.err)
	}

	p := &Peer{
		dev:     r.dev,
		address: adv.Addr(),
		name:    adv.LocalName(),
		logger:  a.logger,
		done:    make(chan struct{}),
	}

	a.mu.Lock()
	a.peers[r.dev.Address.String()] = p
	a.mu.Unlock()

	return p, nil
}

// Disconnect drops the link. A peer that is already gone is not an error.
func (a *Adapter) Disconnect(peer device.Peer) error {
	p, ok := peer.(*Peer)
	if !ok {
		return fmt.Errorf("bluez: foreign peer %T", peer)
	}
	if !p.IsConnected() {
		return nil
	}

	a.mu.Lock()
	delete(a.peers, p.dev.Address.String())
	a.mu.Unlock()

	err := device.NormalizeError(p.dev.Disconnect())
	p.markDisconnected()
	if device.IsConnectionState(err, device.NotConnected) {
		return nil
	}
	return err
}

type scanAdvertisement struct {
	result bluetooth.ScanResult
}

func (s *scanAdvertisement) LocalName() string { return s.result.LocalName() }
func (s *scanAdvertisement) Addr() string      { return s.result.Address.String() }
func (s *scanAdvertisement) RSSI() int         { return int(s.result.RSSI) }

// Connectable is not exposed by BlueZ discovery results.
func (s *scanAdvertisement) Connectable() bool { return true }

// Peer is a BlueZ connection
type Peer struct {
	dev     bluetooth.Device
	address string
	name    string
	logger  *logrus.Logger

	writeMu   sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
}

func (p *Peer) Address() string               { return p.address }
func (p *Peer) Name() string                  { return p.name }
func (p *Peer) Disconnected() <-chan struct{} { return p.done }

func (p *Peer) IsConnected() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

func (p *Peer) markDisconnected() {
	p.closeOnce.Do(func() { close(p.done) })
}

func (p *Peer) DiscoverServices(ctx context.Context) ([]device.Service, error) {
	if !p.IsConnected() {
		return nil, device.ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	svcs, err := p.dev.DiscoverServices(nil)
	if err != nil {
		return nil, device.NormalizeError(err)
	}

	result := make([]device.Service, 0, len(svcs))
	for _, s := range svcs {
		result = append(result, &service{peer: p, svc: s})
	}
	return result, nil
}

type service struct {
	peer *Peer
	svc  bluetooth.DeviceService
}

func (s *service) UUID() string { return s.svc.UUID().String() }

func (s *service) DiscoverCharacteristics(ctx context.Context) ([]device.Characteristic, error) {
	if !s.peer.IsConnected() {
		return nil, device.ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	chars, err := s.svc.DiscoverCharacteristics(nil)
	if err != nil {
		return nil, device.NormalizeError(err)
	}

	result := make([]device.Characteristic, 0, len(chars))
	for _, c := range chars {
		result = append(result, &characteristic{peer: s.peer, char: c})
	}
	return result, nil
}

type characteristic struct {
	peer *Peer
	char bluetooth.DeviceCharacteristic
}

func (c *characteristic) UUID() string { return c.char.UUID().String() }

func (c *characteristic) WriteWithoutResponse(data []byte) error {
	if !c.peer.IsConnected() {
		return device.ErrNotConnected
	}

	c.peer.writeMu.Lock()
	defer c.peer.writeMu.Unlock()

	_, err := c.char.WriteWithoutResponse(data)
	return device.NormalizeError(err)
}

func (c *characteristic) Subscribe(ctx context.Context) (<-chan device.Notification, error) {
	p := c.peer
	if !p.IsConnected() {
		return nil, device.ErrNotConnected
	}

	uuid := c.UUID()
	logger := p.logger.WithField("char_uuid", uuid)
	ring := ringchan.New[device.Notification](DefaultNotificationBuffer)

	err := c.char.EnableNotifications(func(buf []byte) {
		data := make([]byte, len(buf))
		copy(data, buf)
		if ring.Send(device.Notification{Data: data}) {
			logger.Warn("Notification buffer full, dropped oldest notification")
		}
	})
	if err != nil {
		ring.Close()
		return nil, device.NormalizeError(err)
	}

	groutine.Go(context.Background(), "bluez-subscription-"+device.ShortenUUID(device.NormalizeUUID(uuid)), func(context.Context) {
		select {
		case <-ctx.Done():
			if p.IsConnected() {
				// a nil callback stops notifications
				if err := c.char.EnableNotifications(nil); err != nil {
					logger.WithField("error", err).Debug("Disabling notifications failed")
				}
			}
		case <-p.done:
		}
		ring.Close()
	})

	return ring.C(), nil
}
