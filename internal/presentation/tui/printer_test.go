package tui

import (
	"bytes"
	"testing"

	"github.com/aretw0/livehost/pkg/diagnostic"
	"github.com/aretw0/livehost/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestPrinter_PlainOutput(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false)

	p.StateChange(domain.StateChange{From: domain.StateLoaded, To: domain.StatePlaying, Module: "a.lua"})
	p.Message(domain.SessionMessage{Topic: "tick", Payload: "1"})
	p.StateChange(domain.StateChange{From: domain.StatePlaying, To: domain.StateFaulted, Module: "a.lua", Reason: "boom"})
	p.Diagnostics(nil)
	p.Diagnostics([]diagnostic.Error{diagnostic.Errorf(diagnostic.LineSpan("a.lua", 2), "bad")})
	p.System("Waiting for %s", "changes")

	assert.Equal(t, ">>> loaded -> playing (a.lua)\n"+
		"[tick] 1\n"+
		">>> playing -> faulted (a.lua): boom\n"+
		"ERROR (a.lua:2:1-2:1): bad\n"+
		"1 error, 0 warnings\n"+
		">>> Waiting for changes\n", buf.String())
}

func TestPrinter_QuietKeepsMessages(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, true)

	p.StateChange(domain.StateChange{From: domain.StateLoaded, To: domain.StatePlaying})
	p.System("hello")
	p.Message(domain.SessionMessage{Topic: "out", Payload: "x"})
	assert.Equal(t, "[out] x\n", buf.String())
}

func TestPrinter_ConfiguredFatalKinds(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false)
	p.SetFatalKinds("error", "warning")

	p.Diagnostics([]diagnostic.Error{diagnostic.Warningf(diagnostic.LineSpan("a.lua", 3), "strict")})
	assert.Equal(t, "WARNING (a.lua:3:1-3:1): strict\n"+
		"1 error, 0 warnings\n", buf.String())
}

func TestBanner_NoColourOffTerminal(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, "0.1.0\n")
	assert.NotContains(t, buf.String(), "\x1b[")
	assert.Contains(t, buf.String(), "v0.1.0")
}
