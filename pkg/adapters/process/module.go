package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/aretw0/livehost/internal/logging"
	"github.com/aretw0/livehost/pkg/channel"
	"github.com/aretw0/livehost/pkg/module"
)

// DefaultGrace is the time an interrupted process gets before it is killed.
const DefaultGrace = 5 * time.Second

// Topics used for forwarded output lines.
const (
	TopicStdout = "stdout"
	TopicStderr = "stderr"
)

const maxLine = 1 << 20

// Module runs an external process. Each output line becomes one message.
// Cancellation interrupts the process and kills it after the grace period.
// On Unix, Pause and Resume stop and continue the process.
type Module struct {
	module.Pausable

	cfg    ModuleConfig
	logger *slog.Logger

	mu   sync.Mutex
	proc *os.Process
}

var _ module.Module = (*Module)(nil)

// Option configures a Module.
type Option func(*Module)

// WithLogger sets the logger used for signal failures.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Module) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewModule creates a process module from cfg.
func NewModule(cfg ModuleConfig, opts ...Option) *Module {
	if cfg.Grace <= 0 {
		cfg.Grace = DefaultGrace
	}
	m := &Module{cfg: cfg, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Pause marks the module paused and stops the running process.
func (m *Module) Pause() {
	m.Pausable.Pause()
	m.signal("pause", pauseProcess)
}

// Resume clears the pause mark and continues the running process.
func (m *Module) Resume() {
	m.Pausable.Resume()
	m.signal("resume", resumeProcess)
}

func (m *Module) signal(op string, fn func(*os.Process) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.proc == nil {
		return
	}
	if err := fn(m.proc); err != nil {
		m.logger.Warn("Process signal failed", "module", m.cfg.Name, "op", op, "pid", m.proc.Pid, "err", err)
	}
}

func (m *Module) setProc(p *os.Process) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.proc = p
	if p != nil && m.Paused() {
		if err := pauseProcess(p); err != nil {
			m.logger.Warn("Process signal failed", "module", m.cfg.Name, "op", "pause", "pid", p.Pid, "err", err)
		}
	}
}

// Run starts the process and forwards its output until it exits.
// An exit caused by cancellation is a clean return.
func (m *Module) Run(ctx context.Context, out channel.Sender) error {
	cmd := exec.CommandContext(ctx, m.cfg.Command, m.cfg.Args...)
	cmd.Dir = m.cfg.Dir
	cmd.Env = cmd.Environ()
	for k, v := range m.cfg.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	cmd.Cancel = func() error { return interrupt(cmd.Process) }
	cmd.WaitDelay = m.cfg.Grace

	// Output produced while shutting down is still forwarded until the channel closes.
	sendCtx := context.WithoutCancel(ctx)

	stdoutR, stdoutW := io.Pipe()
	stderrR, stderrW := io.Pipe()
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	var (
		wg   sync.WaitGroup
		tail lastLine
	)
	wg.Add(2)
	go forward(sendCtx, &wg, stdoutR, out, TopicStdout, nil)
	go forward(sendCtx, &wg, stderrR, out, TopicStderr, &tail)

	closePipes := func() {
		_ = stdoutW.Close()
		_ = stderrW.Close()
		wg.Wait()
	}

	if err := cmd.Start(); err != nil {
		closePipes()
		return fmt.Errorf("failed to start %s: %w", m.cfg.Name, err)
	}
	m.setProc(cmd.Process)

	err := cmd.Wait()
	m.setProc(nil)
	closePipes()

	if ctx.Err() != nil {
		return nil
	}
	if err != nil {
		if msg := tail.get(); msg != "" {
			return fmt.Errorf("%s: %w: %s", m.cfg.Name, err, msg)
		}
		return fmt.Errorf("%s: %w", m.cfg.Name, err)
	}
	return nil
}

// forward sends every line of r on topic. Once sending fails the rest of r is
// drained so the process never blocks on a full pipe.
func forward(ctx context.Context, wg *sync.WaitGroup, r *io.PipeReader, out channel.Sender, topic string, tail *lastLine) {
	defer wg.Done()
	defer r.Close()

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)
	sending := true
	for sc.Scan() {
		line := sc.Text()
		if tail != nil && line != "" {
			tail.set(line)
		}
		if !sending {
			continue
		}
		if err := out.Send(ctx, topic, line); err != nil {
			sending = false
		}
	}
	if err := sc.Err(); err != nil && !errors.Is(err, io.ErrClosedPipe) {
		_, _ = io.Copy(io.Discard, r)
	}
}

type lastLine struct {
	mu   sync.Mutex
	line string
}

func (l *lastLine) set(s string) {
	l.mu.Lock()
	l.line = s
	l.mu.Unlock()
}

func (l *lastLine) get() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.line
}
