// Package bridge drives a single Nordic UART Service session: find the
// peripheral by name, connect, resolve the profile, then run the uplink
// and downlink loops until the notification stream ends.
package bridge

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/alwint3r/bluest-nordic-uart-service/internal/device"
	"github.com/alwint3r/bluest-nordic-uart-service/internal/groutine"
	"github.com/alwint3r/bluest-nordic-uart-service/nus"
	"github.com/alwint3r/bluest-nordic-uart-service/scanner"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

// Options configures a Session
type Options struct {
	Name                   string        // advertised local name to match exactly
	Payload                []byte        // uplink payload; nil means nus.DefaultPayload
	ScanTimeout            time.Duration // zero scans until a match or cancellation
	MaxConsecutiveFailures int
	Clock                  clockwork.Clock
	Logger                 *logrus.Logger
	Observer               Observer
	Progress               scanner.ProgressCallback
}

// Result summarizes a finished session
type Result struct {
	Address  string
	Uplink   UplinkStats
	Downlink DownlinkStats
}

// Session runs the bridge state machine against one adapter
type Session struct {
	adapter  device.Adapter
	opts     Options
	logger   *logrus.Logger
	observer Observer

	mu      sync.RWMutex
	state   State
	outcome Outcome
}

// NewSession creates an idle session
func NewSession(adapter device.Adapter, opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	if opts.Observer == nil {
		opts.Observer = NopObserver{}
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &Session{
		adapter:  adapter,
		opts:     opts,
		logger:   opts.Logger,
		observer: opts.Observer,
		state:    Idle,
	}
}

// State returns the current lifecycle phase
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Outcome returns how the session ended, or OutcomeNone while it runs
func (s *Session) Outcome() Outcome {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.outcome
}

func (s *Session) setState(to State) {
	s.transition(to, OutcomeNone)
}

func (s *Session) terminate(outcome Outcome) {
	s.transition(Terminated, outcome)
}

func (s *Session) transition(to State, outcome Outcome) {
	s.mu.Lock()
	from := s.state
	s.state = to
	s.outcome = outcome
	s.mu.Unlock()

	fields := logrus.Fields{"from": from.String(), "to": to.String()}
	if to == Terminated {
		fields["outcome"] = outcome.String()
	}
	s.logger.WithFields(fields).Debug("Session state changed")
	s.observer.OnStateChange(from, to, outcome)
}

// Run executes the session once. It returns nil after a clean disconnect,
// a device.ErrNoMatchingDevice error when no advertisement matched and a
// classified device error for every other setup failure. Cancelling ctx
// while streaming ends the session cleanly.
func (s *Session) Run(ctx context.Context) (*Result, error) {
	if s.State() != Idle {
		return nil, errors.New("session already started")
	}
	if s.opts.Name == "" {
		return nil, errors.New("device name is required")
	}

	s.setState(Scanning)

	if err := s.adapter.WaitAvailable(ctx); err != nil {
		return nil, s.fail(ctx, classify(device.KindAdapterUnavailable, err, "wait for adapter"))
	}

	s.observer.OnScanStarted(s.opts.Name)
	adv, found, err := scanner.NewScanner(s.logger).FindByName(ctx, s.adapter, s.opts.Name,
		&scanner.ScanOptions{Timeout: s.opts.ScanTimeout}, s.opts.Progress)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	if !found {
		s.terminate(OutcomeNotFound)
		return nil, device.Wrap(device.KindNoMatchingDevice, nil, "no advertisement named %q", s.opts.Name)
	}
	s.observer.OnDeviceFound(s.opts.Name, adv.Addr())

	s.setState(Connecting)
	peer, err := s.adapter.Connect(ctx, adv)
	if err != nil {
		return nil, s.fail(ctx, classify(device.KindConnectFailed, err, "connect to %s", adv.Addr()))
	}
	s.observer.OnConnected(peer)
	s.logger.WithFields(logrus.Fields{
		"name":    s.opts.Name,
		"address": peer.Address(),
	}).Info("Connected")

	s.setState(Discovering)
	profile, err := nus.Resolve(ctx, peer)
	if err != nil {
		s.dropPeer(peer)
		return nil, s.fail(ctx, classify(device.KindDiscoveryFailed, err, "resolve profile"))
	}

	streamCtx, cancelStream := context.WithCancel(ctx)
	defer cancelStream()

	stream, err := profile.TX.Subscribe(streamCtx)
	if err != nil {
		s.dropPeer(peer)
		return nil, s.fail(ctx, classify(device.KindSubscribeFailed, err, "subscribe to TX"))
	}

	result := &Result{Address: peer.Address()}
	s.setState(Streaming)

	uplink := NewUplink(profile.RX, UplinkOptions{
		Payload:                s.opts.Payload,
		MaxConsecutiveFailures: s.opts.MaxConsecutiveFailures,
		Clock:                  s.opts.Clock,
	}, s.logger, s.observer)

	var uplinkErr error
	uplinkCtx, cancelUplink := context.WithCancel(streamCtx)
	uplinkDone := groutine.Go(uplinkCtx, "nus-uplink", func(ctx context.Context) {
		result.Uplink, uplinkErr = uplink.Run(ctx)
	})

	result.Downlink = NewDownlink(s.logger, s.observer).Run(stream)

	s.setState(Disconnecting)
	cancelUplink()
	<-uplinkDone
	if uplinkErr != nil {
		s.logger.WithError(uplinkErr).Warn("Uplink ended early")
	}

	s.dropPeer(peer)
	s.observer.OnDisconnected()
	s.terminate(OutcomeClean)

	s.logger.WithFields(logrus.Fields{
		"writes":   result.Uplink.Attempts,
		"failures": result.Uplink.Failures,
		"received": result.Downlink.Received,
		"skipped":  result.Downlink.Skipped,
	}).Info("Session finished")
	return result, nil
}

// fail terminates the session after a setup error. A cancelled ctx is
// reported as-is so callers can tell an interrupt from a failure.
func (s *Session) fail(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		s.terminate(OutcomeClean)
		return ctx.Err()
	}
	s.terminate(OutcomeError)
	return err
}

// dropPeer disconnects best-effort; failures are logged only
func (s *Session) dropPeer(peer device.Peer) {
	if err := s.adapter.Disconnect(peer); err != nil {
		err = device.Wrap(device.KindDisconnectFailed, err, "disconnect %s", peer.Address())
		s.logger.WithError(err).Warn("Disconnect failed")
	}
}

// classify wraps err under kind unless it is already classified
func classify(kind device.Kind, err error, format string, args ...any) error {
	if _, ok := device.KindOf(err); ok {
		return err
	}
	return device.Wrap(kind, device.NormalizeError(err), format, args...)
}
