package tui

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/aretw0/livehost/pkg/diagnostic"
	"github.com/aretw0/livehost/pkg/domain"
	"github.com/aretw0/livehost/pkg/supervisor"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Profile picks the colour profile for w: the environment's for terminals
// (NO_COLOR is honoured), plain ASCII otherwise.
func Profile(w io.Writer) termenv.Profile {
	if !IsTerminal(w) {
		return termenv.Ascii
	}
	return termenv.EnvColorProfile()
}

// Printer writes host events as lines of text. Safe for concurrent use.
type Printer struct {
	mu    sync.Mutex
	w     io.Writer
	out   *termenv.Output
	prof  termenv.Profile
	quiet bool
	fatal []diagnostic.Kind
}

// NewPrinter creates a printer for w. A quiet printer only prints module messages.
func NewPrinter(w io.Writer, quiet bool) *Printer {
	prof := Profile(w)
	return &Printer{
		w:     w,
		out:   termenv.NewOutput(w, termenv.WithProfile(prof)),
		prof:  prof,
		quiet: quiet,
	}
}

// System prints a ">>> " prefixed host message.
func (p *Printer) System(format string, args ...any) {
	if p.quiet {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "%s %s\n", p.out.String(">>>").Faint(), fmt.Sprintf(format, args...))
}

// Message prints "[topic] payload".
func (p *Printer) Message(m domain.SessionMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	topic := p.out.String("[" + m.Topic + "]").Foreground(p.out.Color("4"))
	fmt.Fprintf(p.w, "%s %s\n", topic, m.Payload)
}

// StateChange prints a transition.
func (p *Printer) StateChange(c domain.StateChange) {
	if p.quiet {
		return
	}
	to := p.out.String(string(c.To)).Bold()
	switch c.To {
	case domain.StateFaulted, domain.StateStuck:
		to = to.Foreground(p.out.Color("1"))
	case domain.StatePlaying:
		to = to.Foreground(p.out.Color("2"))
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	line := fmt.Sprintf("%s %s -> %s", p.out.String(">>>").Faint(), c.From, to)
	if c.Module != "" {
		line += fmt.Sprintf(" (%s)", c.Module)
	}
	if c.Reason != "" {
		line += ": " + c.Reason
	}
	fmt.Fprintln(p.w, line)
}

// SetFatalKinds makes diagnostics of these kinds render as errors. Empty keeps
// the defaults.
func (p *Printer) SetFatalKinds(kinds ...diagnostic.Kind) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fatal = kinds
}

// Diagnostics renders a non-empty diagnostics feed.
func (p *Printer) Diagnostics(errs []diagnostic.Error) {
	if len(errs) == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	opts := []diagnostic.RenderOption{diagnostic.WithProfile(p.prof)}
	if len(p.fatal) > 0 {
		opts = append(opts, diagnostic.WithFatal(p.fatal...))
	}
	_ = diagnostic.Render(p.w, errs, opts...)
}

// Hooks subscribes the printer to a supervisor.
func (p *Printer) Hooks() supervisor.Hooks {
	return supervisor.Hooks{
		OnStateChange: func(_ context.Context, c domain.StateChange) { p.StateChange(c) },
		OnMessage:     func(_ context.Context, m domain.SessionMessage) { p.Message(m) },
		OnDiagnostics: func(_ context.Context, errs []diagnostic.Error) { p.Diagnostics(errs) },
	}
}
