package testutils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/alwint3r/bluest-nordic-uart-service/internal/device"
	"github.com/alwint3r/bluest-nordic-uart-service/internal/ringchan"
)

// FakeNotificationBuffer is the notification buffer of a fake characteristic.
// Notifications queued before Subscribe are delivered once it is called.
const FakeNotificationBuffer = 64

// CharacteristicConfig represents a GATT characteristic of a fake peripheral
type CharacteristicConfig struct {
	UUID       string `json:"uuid"`
	Properties string `json:"properties,omitempty"` // e.g., "write-without-response,notify"; empty allows everything
}

// ServiceConfig represents a GATT service of a fake peripheral
type ServiceConfig struct {
	UUID            string                 `json:"uuid"`
	Characteristics []CharacteristicConfig `json:"characteristics,omitempty"`
}

// DeviceProfileConfig represents the complete GATT profile of a fake peripheral
type DeviceProfileConfig struct {
	Services []ServiceConfig `json:"services"`
}

// NUSProfileJSON is a well-formed Nordic UART Service profile.
const NUSProfileJSON = `
{
	"services": [
		{
			"uuid": "6e400001-b5a3-f393-e0a9-e50e24dcca9e",
			"characteristics": [
				{ "uuid": "6e400002-b5a3-f393-e0a9-e50e24dcca9e", "properties": "write,write-without-response" },
				{ "uuid": "6e400003-b5a3-f393-e0a9-e50e24dcca9e", "properties": "notify" }
			]
		}
	]
}`

// PeripheralDeviceBuilder builds a FakePeer with a configurable GATT profile
type PeripheralDeviceBuilder struct {
	profile DeviceProfileConfig
}

// NewPeripheralDeviceBuilder creates a new peripheral device builder
func NewPeripheralDeviceBuilder() *PeripheralDeviceBuilder {
	return &PeripheralDeviceBuilder{
		profile: DeviceProfileConfig{
			Services: []ServiceConfig{},
		},
	}
}

// WithService adds a service to the device profile
func (b *PeripheralDeviceBuilder) WithService(uuid string) *PeripheralDeviceBuilder {
	b.profile.Services = append(b.profile.Services, ServiceConfig{
		UUID:            uuid,
		Characteristics: []CharacteristicConfig{},
	})
	return b
}

// WithCharacteristic adds a characteristic to the last added service
func (b *PeripheralDeviceBuilder) WithCharacteristic(uuid, properties string) *PeripheralDeviceBuilder {
	if len(b.profile.Services) == 0 {
		panic("WithCharacteristic: no service added yet, call WithService first")
	}

	last := len(b.profile.Services) - 1
	b.profile.Services[last].Characteristics = append(b.profile.Services[last].Characteristics, CharacteristicConfig{
		UUID:       uuid,
		Properties: properties,
	})
	return b
}

// FromJSON fills the device profile from JSON
func (b *PeripheralDeviceBuilder) FromJSON(jsonStrFmt string, args ...interface{}) *PeripheralDeviceBuilder {
	var config DeviceProfileConfig
	if err := json.Unmarshal([]byte(fmt.Sprintf(jsonStrFmt, args...)), &config); err != nil {
		panic(fmt.Sprintf("PeripheralDeviceBuilder.FromJSON: failed to unmarshal: %v", err))
	}

	b.profile = config
	return b
}

// GetServices returns the configured services
func (b *PeripheralDeviceBuilder) GetServices() []ServiceConfig {
	return b.profile.Services
}

// Build creates a connected FakePeer with the configured profile
func (b *PeripheralDeviceBuilder) Build() *FakePeer {
	p := &FakePeer{done: make(chan struct{})}
	for _, svcConfig := range b.profile.Services {
		svc := &FakeService{uuid: svcConfig.UUID, peer: p}
		for _, charConfig := range svcConfig.Characteristics {
			svc.chars = append(svc.chars, &FakeCharacteristic{
				uuid:       charConfig.UUID,
				properties: charConfig.Properties,
				peer:       p,
				ring:       ringchan.New[device.Notification](FakeNotificationBuffer),
				subscribed: make(chan struct{}),
			})
		}
		p.services = append(p.services, svc)
	}
	return p
}

// FakePeer is an in-memory device.Peer
type FakePeer struct {
	mu       sync.Mutex
	address  string
	name     string
	services []*FakeService

	discoverErr error

	done      chan struct{}
	closeOnce sync.Once
}

func (p *FakePeer) Address() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.address
}

func (p *FakePeer) Name() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.name
}

func (p *FakePeer) setIdentity(address, name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.address = address
	p.name = name
}

func (p *FakePeer) Disconnected() <-chan struct{} { return p.done }

func (p *FakePeer) IsConnected() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// Drop simulates link loss: Disconnected is closed and every
// notification stream ends.
func (p *FakePeer) Drop() {
	p.closeOnce.Do(func() { close(p.done) })
}

// SetDiscoverError makes DiscoverServices fail with err
func (p *FakePeer) SetDiscoverError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.discoverErr = err
}

func (p *FakePeer) DiscoverServices(ctx context.Context) ([]device.Service, error) {
	if !p.IsConnected() {
		return nil, device.ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.discoverErr != nil {
		return nil, p.discoverErr
	}

	result := make([]device.Service, 0, len(p.services))
	for _, s := range p.services {
		result = append(result, s)
	}
	return result, nil
}

// Characteristic returns the first characteristic with the given UUID, or nil
func (p *FakePeer) Characteristic(uuid string) *FakeCharacteristic {
	for _, s := range p.services {
		for _, c := range s.chars {
			if device.EqualUUID(c.uuid, uuid) {
				return c
			}
		}
	}
	return nil
}

// FakeService is an in-memory device.Service
type FakeService struct {
	uuid  string
	peer  *FakePeer
	chars []*FakeCharacteristic
}

func (s *FakeService) UUID() string { return s.uuid }

func (s *FakeService) DiscoverCharacteristics(ctx context.Context) ([]device.Characteristic, error) {
	if !s.peer.IsConnected() {
		return nil, device.ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := make([]device.Characteristic, 0, len(s.chars))
	for _, c := range s.chars {
		result = append(result, c)
	}
	return result, nil
}

// FakeCharacteristic is an in-memory device.Characteristic that records
// writes and replays queued notifications.
type FakeCharacteristic struct {
	uuid       string
	properties string
	peer       *FakePeer

	mu           sync.Mutex
	writes       [][]byte
	writeErrs    []error
	subscribeErr error

	ring       *ringchan.RingChannel[device.Notification]
	subscribed chan struct{}
	subOnce    sync.Once
}

func (c *FakeCharacteristic) UUID() string { return c.uuid }

func (c *FakeCharacteristic) allows(prop string) bool {
	if c.properties == "" {
		return true
	}
	for _, p := range strings.Split(c.properties, ",") {
		if strings.TrimSpace(p) == prop {
			return true
		}
	}
	return false
}

// WriteWithoutResponse records data. Queued write errors are consumed in order.
func (c *FakeCharacteristic) WriteWithoutResponse(data []byte) error {
	if !c.peer.IsConnected() {
		return device.ErrNotConnected
	}
	if !c.allows("write-without-response") {
		return errors.New("characteristic does not support write without response")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.writeErrs) > 0 {
		err := c.writeErrs[0]
		c.writeErrs = c.writeErrs[1:]
		if err != nil {
			return err
		}
	}

	buf := make([]byte, len(data))
	copy(buf, data)
	c.writes = append(c.writes, buf)
	return nil
}

// QueueWriteErrors makes the next writes return errs in order; nil entries succeed.
func (c *FakeCharacteristic) QueueWriteErrors(errs ...error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeErrs = append(c.writeErrs, errs...)
}

// Writes returns a copy of all successful writes
func (c *FakeCharacteristic) Writes() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.writes))
	copy(out, c.writes)
	return out
}

// WriteCount returns the number of successful writes
func (c *FakeCharacteristic) WriteCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.writes)
}

// SetSubscribeError makes Subscribe fail with err
func (c *FakeCharacteristic) SetSubscribeError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribeErr = err
}

// Subscribe returns the notification stream. It ends when ctx is done,
// the peer drops or EndNotifications is called.
func (c *FakeCharacteristic) Subscribe(ctx context.Context) (<-chan device.Notification, error) {
	if !c.peer.IsConnected() {
		return nil, device.ErrNotConnected
	}
	if !c.allows("notify") && !c.allows("indicate") {
		return nil, errors.New("characteristic does not support notifications")
	}

	c.mu.Lock()
	err := c.subscribeErr
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}

	c.subOnce.Do(func() {
		close(c.subscribed)
		go func() {
			select {
			case <-ctx.Done():
			case <-c.peer.done:
			}
			c.ring.Close()
		}()
	})
	return c.ring.C(), nil
}

// Subscribed is closed once Subscribe succeeded
func (c *FakeCharacteristic) Subscribed() <-chan struct{} {
	return c.subscribed
}

// Notify queues a notification payload
func (c *FakeCharacteristic) Notify(data []byte) {
	c.ring.Send(device.Notification{Data: data})
}

// NotifyError queues a per-item transport error
func (c *FakeCharacteristic) NotifyError(err error) {
	c.ring.Send(device.Notification{Err: err})
}

// EndNotifications closes the stream without dropping the link
func (c *FakeCharacteristic) EndNotifications() {
	c.ring.Close()
}
