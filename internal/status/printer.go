// Package status prints human-readable session lines.
package status

import (
	"fmt"
	"io"
	"sync"

	"github.com/alwint3r/bluest-nordic-uart-service/bridge"
	"github.com/alwint3r/bluest-nordic-uart-service/internal/device"
	"github.com/fatih/color"
)

var _ bridge.Observer = (*Printer)(nil)

// Printer writes lifecycle and payload lines to out and warnings to errOut
type Printer struct {
	mu     sync.Mutex
	out    io.Writer
	errOut io.Writer

	lifecycle *color.Color
	write     *color.Color
	read      *color.Color
	warn      *color.Color
}

// NewPrinter creates a status printer. When colors is false no escape
// sequences are written, regardless of the terminal.
func NewPrinter(out, errOut io.Writer, colors bool) *Printer {
	p := &Printer{
		out:       out,
		errOut:    errOut,
		lifecycle: color.New(color.FgCyan, color.Bold),
		write:     color.New(color.FgGreen),
		read:      color.New(color.FgMagenta),
		warn:      color.New(color.FgYellow),
	}
	for _, c := range []*color.Color{p.lifecycle, p.write, p.read, p.warn} {
		if colors {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p *Printer) println(w io.Writer, c *color.Color, format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = c.Fprintln(w, fmt.Sprintf(format, args...))
}

func (p *Printer) OnStateChange(bridge.State, bridge.State, bridge.Outcome) {}

func (p *Printer) OnScanStarted(string) {
	p.println(p.out, p.lifecycle, "Starting scan")
}

func (p *Printer) OnDeviceFound(name, address string) {
	p.println(p.out, p.lifecycle, "Found device %s (%s)", name, address)
}

func (p *Printer) OnConnected(device.Peer) {
	p.println(p.out, p.lifecycle, "Connected to Device!")
}

func (p *Printer) OnWrite(payload []byte, err error) {
	if err != nil {
		p.println(p.errOut, p.warn, "WARNING: %v", err)
		return
	}
	p.println(p.out, p.write, "Write: %s", payload)
}

func (p *Printer) OnRead(text string) {
	p.println(p.out, p.read, "Read: %s", text)
}

func (p *Printer) OnSkipped(err error) {
	p.println(p.errOut, p.warn, "WARNING: %v", err)
}

func (p *Printer) OnDisconnected() {
	p.println(p.out, p.lifecycle, "Disconnected from device!")
}

// NotFound prints the no-match line to errOut
func (p *Printer) NotFound() {
	p.println(p.errOut, p.warn, "No device found!")
}
