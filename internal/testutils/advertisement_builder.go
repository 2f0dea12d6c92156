package testutils

import (
	"encoding/json"
	"fmt"

	"github.com/alwint3r/bluest-nordic-uart-service/internal/device"
	"github.com/alwint3r/bluest-nordic-uart-service/internal/testutils/mocks"
)

// AdvertisementBuilder builds mocked advertisements for testing.
// Every accessor is mocked with .Maybe() so tests can assert which ones
// were (or were not) consulted.
type AdvertisementBuilder struct {
	name        string
	address     string
	rssi        int
	connectable bool
}

// NewAdvertisementBuilder creates a builder for a connectable, nameless advertisement.
func NewAdvertisementBuilder() *AdvertisementBuilder {
	return &AdvertisementBuilder{
		rssi:        -50,
		connectable: true,
	}
}

// WithName sets the local name. An empty name means the peripheral did not advertise one.
func (b *AdvertisementBuilder) WithName(name string) *AdvertisementBuilder {
	b.name = name
	return b
}

// WithAddress sets the device address for the advertisement.
func (b *AdvertisementBuilder) WithAddress(addr string) *AdvertisementBuilder {
	b.address = addr
	return b
}

// WithRSSI sets the signal strength for the advertisement.
func (b *AdvertisementBuilder) WithRSSI(rssi int) *AdvertisementBuilder {
	b.rssi = rssi
	return b
}

// WithConnectable sets whether the device accepts connections.
func (b *AdvertisementBuilder) WithConnectable(c bool) *AdvertisementBuilder {
	b.connectable = c
	return b
}

// FromJSON fills builder fields from a JSON string with format support.
// Panics on invalid JSON as this is intended for test data setup.
func (b *AdvertisementBuilder) FromJSON(jsonStrFmt string, args ...interface{}) *AdvertisementBuilder {
	var data struct {
		Name        *string `json:"name"`
		Address     *string `json:"address"`
		RSSI        *int    `json:"rssi"`
		Connectable *bool   `json:"connectable"`
	}
	if err := json.Unmarshal([]byte(fmt.Sprintf(jsonStrFmt, args...)), &data); err != nil {
		panic(fmt.Sprintf("AdvertisementBuilder.FromJSON: failed to unmarshal: %v", err))
	}

	if data.Name != nil {
		b.name = *data.Name
	}
	if data.Address != nil {
		b.address = *data.Address
	}
	if data.RSSI != nil {
		b.rssi = *data.RSSI
	}
	if data.Connectable != nil {
		b.connectable = *data.Connectable
	}
	return b
}

// Build creates a MockAdvertisement implementing device.Advertisement.
func (b *AdvertisementBuilder) Build() *mocks.MockAdvertisement {
	adv := &mocks.MockAdvertisement{}
	adv.On("LocalName").Return(b.name).Maybe()
	adv.On("Addr").Return(b.address).Maybe()
	adv.On("RSSI").Return(b.rssi).Maybe()
	adv.On("Connectable").Return(b.connectable).Maybe()
	return adv
}

// AdvertisementArrayBuilder builds an ordered advertisement stream with generic parent support.
//
//	ads := NewAdvertisementArrayBuilder[[]device.Advertisement]().
//	    WithNewAdvertisement().WithName("Tag-00").WithAddress("AA:00").Build().
//	    WithNewAdvertisement().WithName("Tag-01").WithAddress("AA:01").Build().
//	    Build()
//
// When T is a builder (e.g. *FakeAdapterBuilder), Build hands the stream to
// the parent and returns it.
type AdvertisementArrayBuilder[T any] struct {
	advertisements []device.Advertisement
	parent         T
	buildFunc      func(T, []device.Advertisement) T
}

// NewAdvertisementArrayBuilder creates a new array builder with the specified generic type.
func NewAdvertisementArrayBuilder[T any]() *AdvertisementArrayBuilder[T] {
	return &AdvertisementArrayBuilder[T]{
		advertisements: make([]device.Advertisement, 0),
	}
}

// WithAdvertisements appends pre-built advertisements to the stream.
func (ab *AdvertisementArrayBuilder[T]) WithAdvertisements(ads ...device.Advertisement) *AdvertisementArrayBuilder[T] {
	ab.advertisements = append(ab.advertisements, ads...)
	return ab
}

// WithNames appends one advertisement per name. Address is derived from the
// position; an empty name produces a nameless advertisement.
func (ab *AdvertisementArrayBuilder[T]) WithNames(names ...string) *AdvertisementArrayBuilder[T] {
	for _, name := range names {
		addr := fmt.Sprintf("AA:BB:CC:DD:EE:%02X", len(ab.advertisements))
		ab.advertisements = append(ab.advertisements, NewAdvertisementBuilder().WithName(name).WithAddress(addr).Build())
	}
	return ab
}

// WithNewAdvertisement returns an item builder whose Build appends to this array.
func (ab *AdvertisementArrayBuilder[T]) WithNewAdvertisement() *AdvertisementArrayBuilderItem[T] {
	return &AdvertisementArrayBuilderItem[T]{
		AdvertisementBuilder: NewAdvertisementBuilder(),
		parent:               ab,
	}
}

// Build returns the parent if it exists and has a buildFunc, otherwise returns the array
func (ab *AdvertisementArrayBuilder[T]) Build() T {
	if ab.buildFunc != nil {
		return ab.buildFunc(ab.parent, ab.advertisements)
	}
	var result interface{} = ab.advertisements
	return result.(T)
}

// AdvertisementArrayBuilderItem wraps AdvertisementBuilder to return to the parent array builder.
type AdvertisementArrayBuilderItem[T any] struct {
	*AdvertisementBuilder
	parent *AdvertisementArrayBuilder[T]
}

// WithName sets the local name and keeps the item type for chaining.
func (abi *AdvertisementArrayBuilderItem[T]) WithName(name string) *AdvertisementArrayBuilderItem[T] {
	abi.AdvertisementBuilder.WithName(name)
	return abi
}

// WithAddress sets the address and keeps the item type for chaining.
func (abi *AdvertisementArrayBuilderItem[T]) WithAddress(addr string) *AdvertisementArrayBuilderItem[T] {
	abi.AdvertisementBuilder.WithAddress(addr)
	return abi
}

// WithRSSI sets the RSSI and keeps the item type for chaining.
func (abi *AdvertisementArrayBuilderItem[T]) WithRSSI(rssi int) *AdvertisementArrayBuilderItem[T] {
	abi.AdvertisementBuilder.WithRSSI(rssi)
	return abi
}

// Build adds the advertisement to the parent array and returns the array builder
func (abi *AdvertisementArrayBuilderItem[T]) Build() *AdvertisementArrayBuilder[T] {
	abi.parent.advertisements = append(abi.parent.advertisements, abi.AdvertisementBuilder.Build())
	return abi.parent
}
