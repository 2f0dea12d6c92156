package main

import (
	"strings"
	"testing"
	"time"

	"github.com/alwint3r/bluest-nordic-uart-service/internal/testutils"
	"github.com/stretchr/testify/assert"
)

func TestProgressPrinter(t *testing.T) {
	out := &testutils.SyncBuffer{}
	p := NewProgressPrinter(out, "Scanning for \"Tag-01\"", "Starting", "Matched")

	p.Start()
	p.Start() // ignored
	cb := p.Callback()
	cb("Scanning")

	assert.Eventually(t, func() bool {
		return strings.Contains(out.String(), "(Scanning")
	}, time.Second, 10*time.Millisecond)

	cb("Matched") // stop phase
	p.Stop()      // idempotent

	text := out.String()
	assert.True(t, strings.HasPrefix(text, "\rScanning for \"Tag-01\" (Starting...)"))
	assert.True(t, strings.HasSuffix(text, clearLineSequence), "MUST clear the line on stop")
	assert.Equal(t, 1, strings.Count(text, clearLineSequence))
}

func TestProgressPrinterNil(t *testing.T) {
	var p *ProgressPrinter
	assert.NotPanics(t, func() {
		p.Start()
		p.Stop()
	})
	assert.Nil(t, p.Callback())
}

func TestProgressPrinterCountdown(t *testing.T) {
	p := NewCountdownProgressPrinter(&testutils.SyncBuffer{}, "Scanning", "Scanning", 10*time.Second)

	assert.Equal(t, 10, p.seconds(0))
	assert.Equal(t, 7, p.seconds(3300*time.Millisecond))
	assert.Equal(t, 0, p.seconds(11*time.Second))
}
