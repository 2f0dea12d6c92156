package main

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"golang.org/x/term"
)

const (
	progressUpdateInterval = 100 * time.Millisecond
	clearLineSequence      = "\r\033[K"
)

// ProgressPrinter displays a single updating line with elapsed or remaining time.
//
// Usage:
//
//	p := NewProgressPrinter(os.Stdout, "Scanning", "Starting", "Matched")
//	p.Start()
//	defer p.Stop()
//
// A ProgressPrinter is single-use. A nil *ProgressPrinter is valid and prints nothing.
type ProgressPrinter struct {
	out        io.Writer
	prefix     string
	phase      atomic.Value        // stores string - current phase name
	stopPhases map[string]struct{} // set of phases that trigger a graceful shutdown
	startTime  time.Time
	ticker     atomic.Pointer[time.Ticker]
	stopChan   chan struct{}
	done       chan struct{} // closed when goroutine exits
	started    atomic.Bool   // ensures Start is called at most once
	countUp    bool          // true for count up, false for countdown
	duration   time.Duration // for countdown mode
}

// NewProgressPrinter creates a progress printer that counts up (shows elapsed time).
// stopPhases are phase names that will trigger automatic cleanup when set via Callback.
func NewProgressPrinter(out io.Writer, prefix, phase string, stopPhases ...string) *ProgressPrinter {
	return newProgressPrinter(out, prefix, phase, true, 0, stopPhases)
}

// NewCountdownProgressPrinter creates a progress printer that counts down from the duration.
func NewCountdownProgressPrinter(out io.Writer, prefix, phase string, duration time.Duration, stopPhases ...string) *ProgressPrinter {
	return newProgressPrinter(out, prefix, phase, false, duration, stopPhases)
}

func newProgressPrinter(out io.Writer, prefix, phase string, countUp bool, duration time.Duration, stopPhases []string) *ProgressPrinter {
	stopSet := make(map[string]struct{}, len(stopPhases))
	for _, p := range stopPhases {
		stopSet[p] = struct{}{}
	}
	p := &ProgressPrinter{
		out:        out,
		prefix:     prefix,
		stopPhases: stopSet,
		countUp:    countUp,
		duration:   duration,
	}
	p.phase.Store(phase)
	return p
}

// Start begins displaying progress updates in a background goroutine.
// Calls after the first are ignored.
func (p *ProgressPrinter) Start() {
	if p == nil || !p.started.CompareAndSwap(false, true) {
		return
	}

	p.done = make(chan struct{})
	p.stopChan = make(chan struct{})
	p.startTime = time.Now()
	ticker := time.NewTicker(progressUpdateInterval)
	p.ticker.Store(ticker)

	fmt.Fprintf(p.out, "\r%s (%s...)   ", p.prefix, p.phase.Load().(string))
	go p.loop(ticker)
}

func (p *ProgressPrinter) loop(ticker *time.Ticker) {
	defer close(p.done)

	for {
		select {
		case <-p.stopChan:
			return
		case <-ticker.C:
			phase := p.phase.Load().(string)
			if _, isStopPhase := p.stopPhases[phase]; isStopPhase {
				return
			}
			p.print(phase, p.seconds(time.Since(p.startTime)))
		}
	}
}

// seconds returns elapsed seconds, or remaining seconds rounded to nearest in countdown mode
func (p *ProgressPrinter) seconds(elapsed time.Duration) int {
	if p.countUp {
		return int(elapsed.Seconds())
	}
	remaining := p.duration - elapsed
	if remaining <= 0 {
		return 0
	}
	return int(remaining.Seconds() + 0.5)
}

func (p *ProgressPrinter) print(phase string, seconds int) {
	if seconds > 0 {
		fmt.Fprintf(p.out, "\r%s (%s %ds)   ", p.prefix, phase, seconds)
	} else {
		fmt.Fprintf(p.out, "\r%s (%s...)   ", p.prefix, phase)
	}
}

// Callback returns a progress callback that updates the phase.
// Setting a stop phase stops the printer. Safe for concurrent use.
func (p *ProgressPrinter) Callback() func(phase string) {
	if p == nil {
		return nil
	}
	return func(phase string) {
		p.phase.Store(phase)
		if _, isStopPhase := p.stopPhases[phase]; isStopPhase {
			p.Stop()
		}
	}
}

// Stop stops the progress display and clears the line.
// Safe to call multiple times, before Start and from multiple goroutines.
func (p *ProgressPrinter) Stop() {
	if p == nil {
		return
	}
	ticker := p.ticker.Swap(nil)
	if ticker == nil {
		return
	}

	ticker.Stop()
	close(p.stopChan)
	<-p.done

	fmt.Fprint(p.out, clearLineSequence)
}

func isTerminalFd(fd uintptr) bool {
	return term.IsTerminal(int(fd))
}
