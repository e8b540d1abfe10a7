package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/livehost/internal/logging"
	"github.com/aretw0/livehost/pkg/channel"
	"github.com/aretw0/livehost/pkg/diagnostic"
	"github.com/aretw0/livehost/pkg/domain"
	"github.com/aretw0/livehost/pkg/module"
	"github.com/aretw0/livehost/pkg/ports"
)

// DefaultHostID identifies a supervisor in status stores when none is configured.
const DefaultHostID = "default"

// storeTimeout bounds each status write.
const storeTimeout = 2 * time.Second

// Supervisor is the module lifecycle state machine. Safe for concurrent use.
type Supervisor struct {
	logger      *slog.Logger
	stopTimeout time.Duration
	policy      channel.Policy
	metrics     *metrics
	store       ports.StatusStore
	hostID      string
	fatalKinds  []diagnostic.Kind

	mu         sync.Mutex // serializes control operations
	collector  *diagnostic.Collector
	handle     module.Handle
	sess       *session
	generation uint64
	lastErr    error
	closed     bool

	state  atomic.Value // domain.State
	status atomic.Pointer[domain.Status]
	disp   *dispatcher
	saver  *saver // nil without a status store
}

// New creates an Idle supervisor.
func New(opts ...Option) *Supervisor {
	s := &Supervisor{
		logger:      logging.NewNop(),
		stopTimeout: DefaultStopTimeout,
		policy:      channel.Unbounded(),
		hostID:      DefaultHostID,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.hostID == "" {
		s.hostID = DefaultHostID
	}

	var copts []diagnostic.CollectorOption
	if len(s.fatalKinds) > 0 {
		copts = append(copts, diagnostic.WithFatalKinds(s.fatalKinds...))
	}
	s.collector = diagnostic.NewCollector(copts...)
	s.disp = newDispatcher(s.logger)
	if s.store != nil {
		s.saver = newSaver(s.store, s.hostID, s.logger)
	}
	s.state.Store(domain.StateIdle)

	s.mu.Lock()
	s.refreshStatus()
	s.mu.Unlock()
	return s
}

// State returns the current state without blocking.
func (s *Supervisor) State() domain.State {
	return s.state.Load().(domain.State)
}

// Status returns the latest snapshot without blocking.
func (s *Supervisor) Status() domain.Status {
	return *s.status.Load()
}

// Diagnostics returns the sorted diagnostics of the latest build, plus any fault or
// stuck records raised since.
func (s *Supervisor) Diagnostics() []diagnostic.Error {
	return s.collector.All()
}

// Subscribe registers observers. The returned function unregisters them.
func (s *Supervisor) Subscribe(h Hooks) (unsubscribe func()) {
	return s.disp.subscribe(h)
}

// Flush blocks until every event published so far has reached the subscribers.
func (s *Supervisor) Flush(ctx context.Context) error {
	return s.disp.flush(ctx)
}

// Load accepts a freshly built module. diags replaces the current diagnostics
// wholesale. If any of them is fatal the supervisor stays where it is and a
// *GateError is returned.
func (s *Supervisor) Load(ctx context.Context, h module.Handle, diags []diagnostic.Error) (domain.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.State()
	if s.closed {
		return st, ErrClosed
	}
	switch st {
	case domain.StateIdle, domain.StateLoaded, domain.StateFaulted:
	default:
		return st, &TransitionError{Op: "load", State: st}
	}

	if err := s.gateLocked(h, diags); err != nil {
		return st, err
	}

	s.handle = h
	s.lastErr = nil
	s.logger.Info("Module loaded", "module", h.Name, "digest", h.Digest, "diagnostics", len(diags))
	s.setState(domain.StateLoaded, h.Name, "")
	return domain.StateLoaded, nil
}

// Play starts a run session from Loaded, or resumes one from Paused.
func (s *Supervisor) Play(ctx context.Context) (domain.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.State()
	if s.closed {
		return st, ErrClosed
	}
	switch st {
	case domain.StatePlaying:
		return st, nil
	case domain.StateLoaded:
		s.sess = s.newSession(s.handle)
		s.setState(domain.StatePlaying, s.handle.Name, "")
		s.launch(s.sess)
		return domain.StatePlaying, nil
	case domain.StatePaused:
		if err := callHook(s.handle, "resume", s.handle.Module.Resume); err != nil {
			return s.hookFaultLocked(ctx, err)
		}
		s.setState(domain.StatePlaying, s.handle.Name, "")
		return domain.StatePlaying, nil
	default:
		return st, &TransitionError{Op: "play", State: st}
	}
}

// Pause tells a playing module to pause. The run session keeps going. In any state
// without an active, unpaused run this is a no-op.
func (s *Supervisor) Pause(ctx context.Context) (domain.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.State()
	if s.closed {
		return st, ErrClosed
	}
	if st != domain.StatePlaying {
		return st, nil
	}
	if err := callHook(s.handle, "pause", s.handle.Module.Pause); err != nil {
		return s.hookFaultLocked(ctx, err)
	}
	s.setState(domain.StatePaused, s.handle.Name, "")
	return domain.StatePaused, nil
}

// Stop cancels the run session and waits for it, bounded by the stop timeout and
// ctx. From Loaded it simply unloads. A session that does not return in time leaves
// the supervisor Stuck and yields a *StuckError.
func (s *Supervisor) Stop(ctx context.Context) (domain.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return s.State(), ErrClosed
	}
	return s.stopLocked(ctx)
}

func (s *Supervisor) stopLocked(ctx context.Context) (domain.State, error) {
	st := s.State()
	name := s.handle.Name

	switch st {
	case domain.StateLoaded:
		s.handle = module.Handle{}
		s.setState(domain.StateIdle, name, "")
		return domain.StateIdle, nil

	case domain.StatePlaying, domain.StatePaused:
		sess := s.sess
		s.setState(domain.StateStopping, name, "")
		if err := s.teardown(ctx, sess); err != nil {
			return s.stuckLocked(err)
		}
		s.sess = nil
		s.handle = module.Handle{}
		s.logger.Info("Session stopped", "module", name, "session_id", sess.id)
		s.setState(domain.StateIdle, name, "")
		return domain.StateIdle, nil

	default:
		return st, &TransitionError{Op: "stop", State: st}
	}
}

// HotSwap replaces the running module. The current session is torn down without
// publishing Stopping or Idle, then h is gated and played. A rejected build leaves
// the supervisor Faulted.
func (s *Supervisor) HotSwap(ctx context.Context, h module.Handle, diags []diagnostic.Error) (domain.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.State()
	if s.closed {
		return st, ErrClosed
	}
	if !st.Active() {
		return st, &TransitionError{Op: "hot-swap", State: st}
	}

	old := s.sess
	oldName := s.handle.Name
	if err := s.teardown(ctx, old); err != nil {
		return s.stuckLocked(err)
	}
	s.sess = nil

	if err := s.gateLocked(h, diags); err != nil {
		s.handle = module.Handle{}
		s.logger.Warn("Hot-swap rejected", "old", oldName, "new", h.Name, "err", err)
		s.setState(domain.StateFaulted, oldName, err.Error())
		return domain.StateFaulted, err
	}

	s.handle = h
	s.lastErr = nil
	s.sess = s.newSession(h)
	s.logger.Info("Module hot-swapped", "old", oldName, "new", h.Name, "generation", s.generation)
	s.setState(domain.StatePlaying, h.Name, "")
	s.launch(s.sess)
	return domain.StatePlaying, nil
}

// Abandon gives up on a stuck session and returns to Idle. The session goroutine is
// left to finish on its own and its result is ignored.
func (s *Supervisor) Abandon(ctx context.Context) (domain.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.State()
	if s.closed {
		return st, ErrClosed
	}
	if st != domain.StateStuck {
		return st, &TransitionError{Op: "abandon", State: st}
	}

	name := s.handle.Name
	if s.sess != nil {
		s.logger.Warn("Abandoning stuck session", "module", name, "session_id", s.sess.id)
	}
	s.sess = nil
	s.handle = module.Handle{}
	s.setState(domain.StateIdle, name, "")
	return domain.StateIdle, nil
}

// Close stops any active session, then drains pending hook deliveries and the
// last status write. Every operation fails with ErrClosed afterwards.
func (s *Supervisor) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	var err error
	switch s.State() {
	case domain.StateLoaded, domain.StatePlaying, domain.StatePaused:
		_, err = s.stopLocked(ctx)
	}
	s.closed = true
	s.mu.Unlock()

	err = errors.Join(err, s.disp.close(ctx))
	if s.saver != nil {
		err = errors.Join(err, s.saver.close(ctx))
	}
	return err
}

// Gate replaces the diagnostics as Load would and reports a *GateError if they
// are fatal, without changing state. A running module keeps running either way.
func (s *Supervisor) Gate(name string, diags []diagnostic.Error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if err := s.gateDiagsLocked(name, diags); err != nil {
		return err
	}
	s.refreshStatus()
	return nil
}

// gateLocked replaces the diagnostics and decides whether h may be loaded.
func (s *Supervisor) gateLocked(h module.Handle, diags []diagnostic.Error) error {
	if err := s.gateDiagsLocked(h.Name, diags); err != nil {
		return err
	}
	if h.IsZero() {
		return ErrNoModule
	}
	return nil
}

func (s *Supervisor) gateDiagsLocked(name string, diags []diagnostic.Error) error {
	s.collector.Replace(diags)
	s.publishDiagnostics()

	var (
		first diagnostic.Error
		count int
	)
	for _, e := range s.collector.All() {
		if s.collector.IsFatal(e) {
			if count == 0 {
				first = e
			}
			count++
		}
	}
	if count > 0 {
		err := &GateError{Module: name, First: first, Count: count}
		s.lastErr = err
		s.logger.Warn("Build rejected", "module", name, "fatal", count, "first", first.String())
		s.refreshStatus()
		return err
	}
	return nil
}

// hookFaultLocked ends the session after Pause or Resume panicked.
func (s *Supervisor) hookFaultLocked(ctx context.Context, err error) (domain.State, error) {
	var fe *FaultError
	if !errors.As(err, &fe) {
		fe = &FaultError{Module: s.handle.Name, Cause: err}
	}
	if sess := s.sess; sess != nil {
		if terr := s.teardown(ctx, sess); terr != nil {
			s.stuckLocked(terr)
			return domain.StateStuck, errors.Join(fe, terr)
		}
		s.sess = nil
	}
	s.faultLocked(fe)
	return domain.StateFaulted, fe
}

// faultLocked records fe, releases the handle and enters Faulted.
func (s *Supervisor) faultLocked(fe *FaultError) {
	s.metrics.fault()
	s.lastErr = fe
	s.logger.Error("Module fault", "module", fe.Module, "phase", fe.Phase, "err", fe.Cause)
	s.surface(diagnostic.KindFault, fe.Module, fe.Error())
	s.handle = module.Handle{}
	s.setState(domain.StateFaulted, fe.Module, fe.Error())
}

// stuckLocked enters Stuck. The stuck session stays current so a late return can
// still be observed by watch.
func (s *Supervisor) stuckLocked(err error) (domain.State, error) {
	s.lastErr = err
	name := s.handle.Name
	s.logger.Error("Module stuck", "module", name, "err", err)
	s.surface(diagnostic.KindStuck, name, err.Error())
	s.setState(domain.StateStuck, name, err.Error())
	return domain.StateStuck, err
}

// surface adds a runtime record to the diagnostics feed.
func (s *Supervisor) surface(kind diagnostic.Kind, unit, msg string) {
	s.collector.Report(diagnostic.New(kind, msg, diagnostic.Span{Unit: unit}))
	s.publishDiagnostics()
}

func (s *Supervisor) publishDiagnostics() {
	s.disp.publish(event{diags: s.collector.All(), isDiag: true})
}

// setState records and publishes a transition. Caller holds s.mu.
func (s *Supervisor) setState(to domain.State, name, reason string) {
	from := s.State()
	s.state.Store(to)
	s.metrics.transition(from, to)

	change := domain.StateChange{
		From:       from,
		To:         to,
		Module:     name,
		Generation: s.generation,
		Reason:     reason,
		Timestamp:  time.Now(),
	}
	if s.sess != nil {
		change.SessionID = s.sess.id
	}
	s.logger.Debug("State changed", "from", from, "to", to, "module", name)
	s.disp.publish(event{change: &change})
	s.refreshStatus()
}

// refreshStatus rebuilds the snapshot and queues it for the store. Caller holds s.mu.
func (s *Supervisor) refreshStatus() {
	st := domain.Status{
		HostID:      s.hostID,
		State:       s.State(),
		Module:      s.handle.Name,
		Digest:      s.handle.Digest,
		Generation:  s.generation,
		Diagnostics: s.collector.Len(),
		UpdatedAt:   time.Now().UTC(),
	}
	if s.sess != nil {
		st.SessionID = s.sess.id
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	s.status.Store(&st)

	if s.saver != nil {
		s.saver.save(st)
	}
}
