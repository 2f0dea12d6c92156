package bridge

import (
	"github.com/alwint3r/bluest-nordic-uart-service/internal/device"
)

// State is a session lifecycle phase
type State int

const (
	Idle State = iota
	Scanning
	Connecting
	Discovering
	Streaming
	Disconnecting
	Terminated
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Scanning:
		return "Scanning"
	case Connecting:
		return "Connecting"
	case Discovering:
		return "Discovering"
	case Streaming:
		return "Streaming"
	case Disconnecting:
		return "Disconnecting"
	case Terminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// Outcome describes how a terminated session ended
type Outcome int

const (
	OutcomeNone Outcome = iota // session not terminated yet
	OutcomeClean
	OutcomeNotFound
	OutcomeError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNone:
		return "None"
	case OutcomeClean:
		return "Clean"
	case OutcomeNotFound:
		return "NotFound"
	case OutcomeError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Observer receives session lifecycle and data events.
// Calls are made from the driver and uplink goroutines and must not block.
type Observer interface {
	OnStateChange(from, to State, outcome Outcome)
	OnScanStarted(target string)
	OnDeviceFound(name, address string)
	OnConnected(peer device.Peer)
	OnWrite(payload []byte, err error)
	OnRead(text string)
	OnSkipped(err error)
	OnDisconnected()
}

// NopObserver ignores every event. Embed it to implement a subset of Observer.
type NopObserver struct{}

func (NopObserver) OnStateChange(State, State, Outcome) {}
func (NopObserver) OnScanStarted(string)                {}
func (NopObserver) OnDeviceFound(string, string)        {}
func (NopObserver) OnConnected(device.Peer)             {}
func (NopObserver) OnWrite([]byte, error)               {}
func (NopObserver) OnRead(string)                       {}
func (NopObserver) OnSkipped(error)                     {}
func (NopObserver) OnDisconnected()                     {}
