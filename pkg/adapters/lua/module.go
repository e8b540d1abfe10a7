package lua

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/Shopify/go-lua"
	"github.com/aretw0/livehost/pkg/channel"
	"github.com/aretw0/livehost/pkg/module"
)

// Module runs one Lua script. Every Run starts from a fresh Lua state.
type Module struct {
	module.Pausable

	name      string
	code      string
	hasPause  bool
	hasResume bool
	logger    *slog.Logger

	mu      sync.Mutex
	pending []string // queued hook names, run on the script goroutine
}

var _ module.Module = (*Module)(nil)

// Pause queues the script's pause hook, then marks the module paused. The hook is
// queued first so the script never sees host.paused() before its pause hook ran.
func (m *Module) Pause() {
	if m.hasPause {
		m.enqueue("pause")
	}
	m.Pausable.Pause()
}

// Resume queues the script's resume hook, then clears the pause mark.
func (m *Module) Resume() {
	if m.hasResume {
		m.enqueue("resume")
	}
	m.Pausable.Resume()
}

func (m *Module) enqueue(hook string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, hook)
}

func (m *Module) takePending() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	hooks := m.pending
	m.pending = nil
	return hooks
}

// Run evaluates the script and calls its run function. A Lua error after
// cancellation counts as a clean exit.
func (m *Module) Run(ctx context.Context, out channel.Sender) error {
	m.takePending()

	l := lua.NewState()
	lua.OpenLibraries(l)
	registerHost(l, &runHost{ctx: ctx, out: out, mod: m})

	if err := lua.LoadBuffer(l, m.code, "@"+m.name, ""); err != nil {
		return newScriptError(m.name, errorMessage(l, err))
	}
	if err := l.ProtectedCall(0, 0, 0); err != nil {
		return m.runError(ctx, l, err)
	}

	l.Global("run")
	if !l.IsFunction(-1) {
		return newScriptError(m.name, "global function run is not defined")
	}
	if err := l.ProtectedCall(0, 0, 0); err != nil {
		return m.runError(ctx, l, err)
	}
	return nil
}

func (m *Module) runError(ctx context.Context, l *lua.State, err error) error {
	msg := errorMessage(l, err)
	if ctx.Err() != nil {
		return nil
	}
	return newScriptError(m.name, msg)
}

// host is what the Lua host table talks to.
type host interface {
	send(topic, payload string) error
	cancelled() bool
	paused() bool
	sleep(ms int) bool
	log(msg string)
	// safePoint runs queued hooks. Called at the start of every host function.
	safePoint(l *lua.State)
}

var errCancelled = errors.New("cancelled")

func registerHost(l *lua.State, h host) {
	fns := []lua.RegistryFunction{
		{Name: "send", Function: func(l *lua.State) int {
			h.safePoint(l)
			topic := lua.CheckString(l, 1)
			payload := lua.OptString(l, 2, "")
			if err := h.send(topic, payload); err != nil {
				lua.Errorf(l, "send: %s", err.Error())
			}
			return 0
		}},
		{Name: "cancelled", Function: func(l *lua.State) int {
			h.safePoint(l)
			l.PushBoolean(h.cancelled())
			return 1
		}},
		{Name: "paused", Function: func(l *lua.State) int {
			h.safePoint(l)
			l.PushBoolean(h.paused())
			return 1
		}},
		{Name: "sleep", Function: func(l *lua.State) int {
			h.safePoint(l)
			ms := lua.OptInteger(l, 1, 0)
			l.PushBoolean(h.sleep(ms))
			return 1
		}},
		{Name: "log", Function: func(l *lua.State) int {
			h.safePoint(l)
			h.log(lua.CheckString(l, 1))
			return 0
		}},
	}
	l.NewTable()
	lua.SetFunctions(l, fns, 0)
	l.SetGlobal("host")
}
