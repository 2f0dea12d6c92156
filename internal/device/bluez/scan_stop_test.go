package bluez

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStopper struct {
	mu       sync.Mutex
	calls    int
	failures int // calls that fail before one succeeds; negative fails forever
}

func (s *fakeStopper) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failures < 0 || s.calls <= s.failures {
		return errors.New("bluetooth: not scanning")
	}
	return nil
}

func (s *fakeStopper) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func runStopScan(ctx context.Context, scanEnded <-chan struct{}, clock clockwork.Clock, s *fakeStopper) <-chan struct{} {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	returned := make(chan struct{})
	go func() {
		defer close(returned)
		stopScanWhenDone(ctx, scanEnded, clock, DefaultScanStopRetry, s.Stop, logger)
	}()
	return returned
}

func TestStopScanRetriesUntilScanStarted(t *testing.T) {
	// GOAL: Verify a cancel that lands before the scan starts still stops the scan
	//
	// TEST SCENARIO: ctx cancelled → StopScan fails twice with "not scanning" → retried on each tick → third call succeeds → helper returns

	clock := clockwork.NewFakeClock()
	stopper := &fakeStopper{failures: 2}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	returned := runStopScan(ctx, make(chan struct{}), clock, stopper)

	require.Eventually(t, func() bool {
		select {
		case <-returned:
			return true
		default:
			clock.Advance(DefaultScanStopRetry)
			return false
		}
	}, time.Second, time.Millisecond, "helper MUST return once StopScan succeeds")
	assert.Equal(t, 3, stopper.Calls(), "StopScan MUST be retried until it succeeds")
}

func TestStopScanGivesUpWhenScanEnds(t *testing.T) {
	// GOAL: Verify retries end once the scan call itself returned
	//
	// TEST SCENARIO: ctx cancelled → StopScan keeps failing → scan returns → helper returns without further calls

	clock := clockwork.NewFakeClock()
	stopper := &fakeStopper{failures: -1}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	scanEnded := make(chan struct{})

	returned := runStopScan(ctx, scanEnded, clock, stopper)
	require.Eventually(t, func() bool { return stopper.Calls() >= 1 }, time.Second, time.Millisecond)

	close(scanEnded)
	select {
	case <-returned:
	case <-time.After(time.Second):
		require.FailNow(t, "helper MUST return once the scan ended")
	}

	calls := stopper.Calls()
	clock.Advance(10 * DefaultScanStopRetry)
	assert.Equal(t, calls, stopper.Calls(), "StopScan MUST NOT be called after the scan ended")
}

func TestStopScanNotCalledWhenScanEndsFirst(t *testing.T) {
	stopper := &fakeStopper{}
	scanEnded := make(chan struct{})
	close(scanEnded)

	returned := runStopScan(context.Background(), scanEnded, clockwork.NewFakeClock(), stopper)
	select {
	case <-returned:
	case <-time.After(time.Second):
		require.FailNow(t, "helper MUST return when the scan ended on its own")
	}
	assert.Zero(t, stopper.Calls())
}
