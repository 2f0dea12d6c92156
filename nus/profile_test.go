package nus_test

import (
	"context"
	"errors"
	"testing"

	"github.com/alwint3r/bluest-nordic-uart-service/internal/device"
	"github.com/alwint3r/bluest-nordic-uart-service/internal/testutils"
	"github.com/alwint3r/bluest-nordic-uart-service/nus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	// GOAL: Verify RX and TX are resolved from the NUS service without being swapped
	//
	// TEST SCENARIO: well-formed profile → RX is 6e400002, TX is 6e400003

	peer := testutils.NewPeripheralDeviceBuilder().FromJSON(testutils.NUSProfileJSON).Build()

	profile, err := nus.Resolve(context.Background(), peer)
	require.NoError(t, err)

	assert.True(t, device.EqualUUID(nus.ServiceUUID, profile.Service.UUID()))
	assert.True(t, device.EqualUUID(nus.RXUUID, profile.RX.UUID()), "RX MUST be the write characteristic")
	assert.True(t, device.EqualUUID(nus.TXUUID, profile.TX.UUID()), "TX MUST be the notify characteristic")
	assert.Same(t, peer.Characteristic(nus.RXUUID), profile.RX)
	assert.Same(t, peer.Characteristic(nus.TXUUID), profile.TX)
}

func TestResolveCaseInsensitive(t *testing.T) {
	// GOAL: Verify UUID matching ignores case and dashes
	//
	// TEST SCENARIO: uppercase dashed service, undashed characteristics → resolved

	peer := testutils.NewPeripheralDeviceBuilder().
		WithService("6E400001-B5A3-F393-E0A9-E50E24DCCA9E").
		WithCharacteristic("6E400003B5A3F393E0A9E50E24DCCA9E", "notify").
		WithCharacteristic("6e400002b5a3f393e0a9e50e24dcca9e", "write-without-response").
		Build()

	profile, err := nus.Resolve(context.Background(), peer)
	require.NoError(t, err)
	assert.Equal(t, "6e400002b5a3f393e0a9e50e24dcca9e", profile.RX.UUID())
	assert.Equal(t, "6E400003B5A3F393E0A9E50E24DCCA9E", profile.TX.UUID())
}

func TestResolveFirstMatchWins(t *testing.T) {
	// GOAL: Verify duplicated UUIDs resolve to the first discovered entry
	//
	// TEST SCENARIO: other service, NUS service twice; RX twice in the first NUS service

	peer := testutils.NewPeripheralDeviceBuilder().
		WithService("180d").
		WithCharacteristic(nus.RXUUID, "write-without-response").
		WithService(nus.ServiceUUID).
		WithCharacteristic(nus.RXUUID, "write-without-response").
		WithCharacteristic(nus.RXUUID, "write").
		WithCharacteristic(nus.TXUUID, "notify").
		WithService(nus.ServiceUUID).
		Build()

	profile, err := nus.Resolve(context.Background(), peer)
	require.NoError(t, err)

	services, err := peer.DiscoverServices(context.Background())
	require.NoError(t, err)
	assert.Same(t, services[1], profile.Service, "MUST pick the first NUS service")

	chars, err := services[1].DiscoverCharacteristics(context.Background())
	require.NoError(t, err)
	assert.Same(t, chars[0], profile.RX, "MUST pick the first RX characteristic")
	assert.Same(t, chars[2], profile.TX)
}

func TestResolveMissing(t *testing.T) {
	// GOAL: Verify a missing UUID fails with ErrProfileUnsupported naming the resource
	//
	// TEST SCENARIO: each of service/RX/TX absent → ErrProfileUnsupported + NotFoundError

	tests := []struct {
		name     string
		builder  *testutils.PeripheralDeviceBuilder
		resource string
		missing  string
	}{
		{
			name:     "no service",
			builder:  testutils.NewPeripheralDeviceBuilder().WithService("180d").WithCharacteristic("2a37", "notify"),
			resource: "service",
			missing:  nus.ServiceUUID,
		},
		{
			name: "no rx",
			builder: testutils.NewPeripheralDeviceBuilder().
				WithService(nus.ServiceUUID).
				WithCharacteristic(nus.TXUUID, "notify"),
			resource: "characteristic",
			missing:  nus.RXUUID,
		},
		{
			name: "no tx",
			builder: testutils.NewPeripheralDeviceBuilder().
				WithService(nus.ServiceUUID).
				WithCharacteristic(nus.RXUUID, "write-without-response"),
			resource: "characteristic",
			missing:  nus.TXUUID,
		},
		{
			name: "near miss uuid",
			builder: testutils.NewPeripheralDeviceBuilder().
				WithService(nus.ServiceUUID).
				WithCharacteristic(nus.RXUUID, "write-without-response").
				WithCharacteristic("6e400004-b5a3-f393-e0a9-e50e24dcca9e", "notify"),
			resource: "characteristic",
			missing:  nus.TXUUID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile, err := nus.Resolve(context.Background(), tt.builder.Build())

			assert.Nil(t, profile, "MUST NOT return a partial profile")
			require.ErrorIs(t, err, device.ErrProfileUnsupported)

			var nf *device.NotFoundError
			require.ErrorAs(t, err, &nf)
			assert.Equal(t, tt.resource, nf.Resource)
			assert.Equal(t, tt.missing, nf.UUIDs[len(nf.UUIDs)-1])
		})
	}
}

func TestResolveNotConnected(t *testing.T) {
	peer := testutils.NewPeripheralDeviceBuilder().FromJSON(testutils.NUSProfileJSON).Build()
	peer.Drop()

	_, err := nus.Resolve(context.Background(), peer)
	assert.ErrorIs(t, err, device.ErrNotConnected)
}

func TestResolveDiscoveryFailure(t *testing.T) {
	peer := testutils.NewPeripheralDeviceBuilder().FromJSON(testutils.NUSProfileJSON).Build()
	peer.SetDiscoverError(errors.New("att: request timed out"))

	_, err := nus.Resolve(context.Background(), peer)
	assert.ErrorIs(t, err, device.ErrDiscoveryFailed)
	assert.NotErrorIs(t, err, device.ErrProfileUnsupported)
	assert.Contains(t, err.Error(), "request timed out")
}
