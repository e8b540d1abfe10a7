package lua

import (
	"context"
	"log/slog"
	"time"

	"github.com/Shopify/go-lua"
	"github.com/aretw0/livehost/pkg/channel"
)

// runHost backs the host table during Run.
type runHost struct {
	ctx context.Context
	out channel.Sender
	mod *Module
}

func (h *runHost) send(topic, payload string) error {
	if h.ctx.Err() != nil {
		return errCancelled
	}
	return h.out.Send(h.ctx, topic, payload)
}

func (h *runHost) cancelled() bool {
	return h.ctx.Err() != nil
}

func (h *runHost) paused() bool {
	return h.mod.Paused()
}

func (h *runHost) sleep(ms int) bool {
	if ms <= 0 {
		return h.ctx.Err() == nil
	}
	t := time.NewTimer(time.Duration(ms) * time.Millisecond)
	defer t.Stop()
	select {
	case <-h.ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (h *runHost) log(msg string) {
	h.mod.logger.Info("Lua", "module", h.mod.name, "msg", msg)
}

func (h *runHost) safePoint(l *lua.State) {
	for _, hook := range h.mod.takePending() {
		l.Global(hook)
		if !l.IsFunction(-1) {
			l.Pop(1)
			continue
		}
		l.Call(0, 0)
	}
}

// scratchHost backs the host table while a build evaluates the top level.
// Nothing runs yet, so sends are dropped and sleeps return immediately.
type scratchHost struct {
	logger *slog.Logger
	unit   string
}

func newScratchHost(logger *slog.Logger, unit string) *scratchHost {
	return &scratchHost{logger: logger, unit: unit}
}

func (h *scratchHost) send(topic, payload string) error { return nil }
func (h *scratchHost) cancelled() bool                    { return false }
func (h *scratchHost) paused() bool                       { return false }
func (h *scratchHost) sleep(ms int) bool                  { return true }
func (h *scratchHost) safePoint(l *lua.State)             {}

func (h *scratchHost) log(msg string) {
	h.logger.Debug("Lua (build)", "module", h.unit, "msg", msg)
}
