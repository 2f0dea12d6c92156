package ringchan

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendOverwritesOldest(t *testing.T) {
	rc := New[int](3)
	for i := 0; i < 10; i++ {
		rc.Send(i)
	}
	rc.Close()

	var got []int
	for v := range rc.C() {
		got = append(got, v)
	}
	assert.Equal(t, []int{7, 8, 9}, got, "only the newest values MUST survive")

	m := rc.GetMetrics()
	assert.EqualValues(t, 10, m.Written)
	assert.EqualValues(t, 7, m.Overwritten)
}

func TestSendReportsDrop(t *testing.T) {
	rc := New[string](1)
	assert.False(t, rc.Send("a"))
	assert.True(t, rc.Send("b"))
	assert.Equal(t, 1, rc.Len())
	assert.Equal(t, 1, rc.Cap())
}

func TestCloseIsIdempotentAndSendAfterCloseIsDropped(t *testing.T) {
	rc := New[int](2)
	rc.Send(1)
	rc.Close()
	require.NotPanics(t, rc.Close)
	require.NotPanics(t, func() { rc.Send(2) })
	assert.True(t, rc.Closed())

	v, ok := <-rc.C()
	assert.True(t, ok)
	assert.Equal(t, 1, v, "buffered element MUST stay readable after Close")
	_, ok = <-rc.C()
	assert.False(t, ok)
	assert.EqualValues(t, 1, rc.GetMetrics().Errors)
}

func TestConcurrentSendAndClose(t *testing.T) {
	rc := New[int](4)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				rc.Send(i)
			}
		}()
	}
	go rc.Close()
	wg.Wait()
	rc.Close()

	for range rc.C() {
	}
	assert.True(t, rc.Closed())
}

func TestNewPanicsOnZeroCapacity(t *testing.T) {
	assert.Panics(t, func() { New[int](0) })
}
