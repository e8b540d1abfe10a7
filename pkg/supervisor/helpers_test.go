package supervisor_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/livehost/pkg/channel"
	"github.com/aretw0/livehost/pkg/diagnostic"
	"github.com/aretw0/livehost/pkg/domain"
	"github.com/aretw0/livehost/pkg/module"
	"github.com/aretw0/livehost/pkg/supervisor"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// recorder collects everything a subscriber observes.
type recorder struct {
	mu       sync.Mutex
	changes  []domain.StateChange
	messages []domain.SessionMessage
	diags    [][]diagnostic.Error
	timeline []string // "state:<to>" and "msg:<payload>" in delivery order
}

func record(t *testing.T, sup *supervisor.Supervisor) *recorder {
	t.Helper()
	r := &recorder{}
	unsubscribe := sup.Subscribe(supervisor.Hooks{
		OnStateChange: func(ctx context.Context, c domain.StateChange) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.changes = append(r.changes, c)
			r.timeline = append(r.timeline, "state:"+string(c.To))
		},
		OnMessage: func(ctx context.Context, m domain.SessionMessage) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.messages = append(r.messages, m)
			r.timeline = append(r.timeline, "msg:"+m.Payload)
		},
		OnDiagnostics: func(ctx context.Context, errs []diagnostic.Error) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.diags = append(r.diags, errs)
		},
	})
	t.Cleanup(unsubscribe)
	return r
}

func (r *recorder) states() []domain.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.State, len(r.changes))
	for i, c := range r.changes {
		out[i] = c.To
	}
	return out
}

func (r *recorder) payloads() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.messages))
	for i, m := range r.messages {
		out[i] = m.Payload
	}
	return out
}

func (r *recorder) events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.timeline...)
}

func (r *recorder) lastDiagnostics() []diagnostic.Error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.diags) == 0 {
		return nil
	}
	return r.diags[len(r.diags)-1]
}

func newSupervisor(t *testing.T, opts ...supervisor.Option) *supervisor.Supervisor {
	t.Helper()
	sup := supervisor.New(opts...)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = sup.Close(ctx)
	})
	return sup
}

func handle(t *testing.T, name string, m module.Module) module.Handle {
	t.Helper()
	h, err := module.NewHandle(name, m)
	require.NoError(t, err)
	return h
}

// ticker sends "<prefix>-N" every tick until cancelled.
func ticker(prefix string, tick time.Duration) module.RunFunc {
	return func(ctx context.Context, out channel.Sender) error {
		n := 0
		return module.Loop(ctx, tick, nil, func(ctx context.Context) error {
			n++
			return out.Send(ctx, "tick", fmt.Sprintf("%s-%d", prefix, n))
		})
	}
}

// stubborn ignores cancellation until release is closed.
func stubborn(release <-chan struct{}) module.RunFunc {
	return func(ctx context.Context, out channel.Sender) error {
		<-release
		return nil
	}
}

// waitState polls until the supervisor reaches want.
func waitState(t *testing.T, sup *supervisor.Supervisor, want domain.State) {
	t.Helper()
	require.Eventually(t, func() bool { return sup.State() == want },
		2*time.Second, 5*time.Millisecond, "expected state %s, still %s", want, sup.State())
}

func flush(t *testing.T, sup *supervisor.Supervisor) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, sup.Flush(ctx))
}

// mockModule records hook calls. Run blocks until cancelled.
type mockModule struct {
	mock.Mock
}

func (m *mockModule) Pause()  { m.Called() }
func (m *mockModule) Resume() { m.Called() }

func (m *mockModule) Run(ctx context.Context, out channel.Sender) error {
	<-ctx.Done()
	return nil
}

// mockStore is a testify mock of ports.StatusStore.
type mockStore struct {
	mock.Mock
}

func (m *mockStore) Save(ctx context.Context, status domain.Status) error {
	return m.Called(ctx, status).Error(0)
}

func (m *mockStore) Load(ctx context.Context, hostID string) (domain.Status, error) {
	args := m.Called(ctx, hostID)
	return args.Get(0).(domain.Status), args.Error(1)
}

func (m *mockStore) Delete(ctx context.Context, hostID string) error {
	return m.Called(ctx, hostID).Error(0)
}

func (m *mockStore) List(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}
