package supervisor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/livehost/internal/ids"
	"github.com/aretw0/livehost/pkg/channel"
	"github.com/aretw0/livehost/pkg/domain"
	"github.com/aretw0/livehost/pkg/module"
)

// session is one execution of a module's Run.
type session struct {
	id      string
	gen     uint64
	handle  module.Handle
	ch      *channel.Channel
	cancel  context.CancelFunc
	started time.Time

	runDone  chan struct{} // closed when Run returns
	pumpDone chan struct{} // closed when every message has been published
	err      error         // Run result, valid after runDone
}

// newSession prepares a session for h. Nothing runs until launch, so the caller can
// publish Playing before the first message.
func (s *Supervisor) newSession(h module.Handle) *session {
	s.generation++
	return &session{
		id:       ids.New(),
		gen:      s.generation,
		handle:   h,
		ch:       channel.New(s.policy),
		runDone:  make(chan struct{}),
		pumpDone: make(chan struct{}),
	}
}

func (s *Supervisor) launch(sess *session) {
	ctx, cancel := context.WithCancel(context.Background())
	sess.cancel = cancel
	sess.started = time.Now()

	go func() {
		defer close(sess.runDone)
		sess.err = runModule(ctx, sess.handle, sess.ch.Endpoint())
	}()
	go s.pump(sess)
	go s.watch(sess)

	s.logger.Info("Session started", "module", sess.handle.Name, "session_id", sess.id, "generation", sess.gen)
}

// runModule calls Run and converts a panic into a FaultError.
func runModule(ctx context.Context, h module.Handle, out channel.Sender) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &FaultError{Module: h.Name, Phase: "run", Cause: fmt.Errorf("panic: %v", r)}
		}
	}()
	return h.Module.Run(ctx, out)
}

// callHook invokes Pause or Resume, converting a panic into a FaultError.
func callHook(h module.Handle, phase string, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &FaultError{Module: h.Name, Phase: phase, Cause: fmt.Errorf("panic: %v", r)}
		}
	}()
	fn()
	return nil
}

// pump forwards channel messages to the dispatcher in order. In bounded mode it
// waits for each delivery, so a slow host applies backpressure to the module.
func (s *Supervisor) pump(sess *session) {
	defer close(sess.pumpDone)
	bounded := sess.ch.Policy().IsBounded()
	for {
		m, err := sess.ch.Receive(context.Background())
		if err != nil {
			return
		}
		s.metrics.message()

		ev := event{msg: &domain.SessionMessage{
			SessionID:  sess.id,
			Module:     sess.handle.Name,
			Generation: sess.gen,
			ID:         m.ID,
			Seq:        m.Seq,
			Topic:      m.Topic,
			Payload:    m.Payload,
			Timestamp:  m.Time,
		}}
		if bounded {
			ev.done = make(chan struct{})
		}
		s.disp.publish(ev)
		if ev.done != nil {
			<-ev.done
		}
	}
}

// watch handles a session whose Run returned without the supervisor asking it to.
// Sessions already torn down by Stop or HotSwap are ignored here.
func (s *Supervisor) watch(sess *session) {
	<-sess.runDone
	sess.ch.Close()
	<-sess.pumpDone

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sess != sess {
		return
	}
	s.sess = nil
	s.metrics.sessionEnded(sess.started)

	if s.State() == domain.StateStuck {
		s.logger.Warn("Stuck session finished", "module", sess.handle.Name, "session_id", sess.id)
		name := sess.handle.Name
		s.handle = module.Handle{}
		s.setState(domain.StateIdle, name, "")
		return
	}

	err := sess.err
	if err == nil || errors.Is(err, context.Canceled) {
		// The handle stays loaded for the next Play, which must not start paused.
		if s.State() == domain.StatePaused {
			if herr := callHook(sess.handle, "resume", sess.handle.Module.Resume); herr != nil {
				s.logger.Warn("Resume after completion failed", "module", sess.handle.Name, "err", herr)
			}
		}
		s.logger.Info("Session finished", "module", sess.handle.Name, "session_id", sess.id)
		s.setState(domain.StateLoaded, sess.handle.Name, "")
		return
	}

	var fe *FaultError
	if !errors.As(err, &fe) {
		fe = &FaultError{Module: sess.handle.Name, Phase: "run", Cause: err}
	}
	s.faultLocked(fe)
}

// teardown cancels sess and waits for Run to return. It never publishes a state.
// The channel is closed up front so the module's sends fail fast; pending messages
// are still delivered before teardown returns.
func (s *Supervisor) teardown(ctx context.Context, sess *session) error {
	sess.cancel()
	sess.ch.Close()

	waitCtx := ctx
	if s.stopTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, s.stopTimeout)
		defer cancel()
	}

	start := time.Now()
	select {
	case <-sess.runDone:
	case <-waitCtx.Done():
		<-sess.pumpDone
		s.metrics.stuckSession()
		return &StuckError{Module: sess.handle.Name, SessionID: sess.id, Waited: time.Since(start)}
	}

	<-sess.pumpDone
	s.metrics.sessionEnded(sess.started)
	return nil
}
