package testutils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alwint3r/bluest-nordic-uart-service/internal/device"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeAdapterScan(t *testing.T) {
	ads := NewAdvertisementArrayBuilder[[]device.Advertisement]().
		WithNewAdvertisement().WithName("Tag-00").WithAddress("AA:00").Build().
		WithNames("", "Tag-02").
		Build()

	var names []string
	err := NewFakeAdapter(nil, ads...).WithEndScan().Scan(context.Background(), func(adv device.Advertisement) {
		names = append(names, adv.LocalName())
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"Tag-00", "", "Tag-02"}, names)
	assert.Equal(t, "AA:BB:CC:DD:EE:02", ads[2].Addr(), "address MUST follow the stream position")
}

func TestFakeAdapterScanBlocksUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := NewFakeAdapter(nil).Scan(ctx, func(device.Advertisement) {})
	assert.NoError(t, err, "a scan ended by ctx MUST return nil")
	assert.Error(t, ctx.Err())
}

func TestFakePeerLifecycle(t *testing.T) {
	// GOAL: Verify the fake peer honours the device contract used by the session
	//
	// TEST SCENARIO: connect → write → queued notification → drop → stream closed, writes rejected

	peer := NewPeripheralDeviceBuilder().FromJSON(NUSProfileJSON).Build()
	adv := NewAdvertisementBuilder().WithName("Tag-01").WithAddress("AA:01").Build()
	adapter := NewFakeAdapter(peer, adv)

	p, err := adapter.Connect(context.Background(), adv)
	require.NoError(t, err)
	assert.Equal(t, "AA:01", p.Address())
	assert.Equal(t, "Tag-01", p.Name())

	rx := peer.Characteristic("6E400002-B5A3-F393-E0A9-E50E24DCCA9E")
	tx := peer.Characteristic("6e400003b5a3f393e0a9e50e24dcca9e")
	require.NotNil(t, rx)
	require.NotNil(t, tx)

	rx.QueueWriteErrors(errors.New("busy"), nil)
	assert.Error(t, rx.WriteWithoutResponse([]byte("a")))
	assert.NoError(t, rx.WriteWithoutResponse([]byte("b")))
	assert.Equal(t, [][]byte{[]byte("b")}, rx.Writes())

	_, err = rx.Subscribe(context.Background())
	assert.Error(t, err, "RX MUST NOT support notifications")
	assert.Error(t, tx.WriteWithoutResponse([]byte("x")), "TX MUST NOT accept writes")

	tx.Notify([]byte("early"))
	stream, err := tx.Subscribe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "early", string((<-stream).Data))

	require.NoError(t, adapter.Disconnect(p))
	assert.False(t, p.IsConnected())
	_, open := <-stream
	assert.False(t, open, "stream MUST close when the peer drops")
	assert.ErrorIs(t, rx.WriteWithoutResponse([]byte("c")), device.ErrNotConnected)
	assert.Equal(t, 1, adapter.DisconnectCalls())
}
