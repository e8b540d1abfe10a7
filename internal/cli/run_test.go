package cli

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/livehost"
	"github.com/aretw0/livehost/internal/presentation/tui"
	"github.com/aretw0/livehost/pkg/channel"
	"github.com/aretw0/livehost/pkg/domain"
	"github.com/aretw0/livehost/pkg/module"
	"github.com/aretw0/livehost/pkg/supervisor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stuckHost returns a host whose module ignores cancellation and has just
// failed to stop.
func stuckHost(t *testing.T) *livehost.Host {
	t.Helper()
	ctx := context.Background()
	release := make(chan struct{})
	host := livehost.New(supervisor.New(supervisor.WithStopTimeout(20 * time.Millisecond)))
	t.Cleanup(func() {
		close(release)
		_ = host.Close(ctx)
	})

	h, err := module.NewHandle("stubborn", module.RunFunc(func(context.Context, channel.Sender) error {
		<-release
		return nil
	}))
	require.NoError(t, err)
	_, err = host.Load(ctx, h, nil)
	require.NoError(t, err)
	_, err = host.Play(ctx)
	require.NoError(t, err)
	_, err = host.Stop(ctx)
	require.ErrorIs(t, err, supervisor.ErrStuckModule)
	require.Equal(t, domain.StateStuck, host.State())
	return host
}

func TestAbandonStuck_ClearsStuckSession(t *testing.T) {
	host := stuckHost(t)
	var out syncBuffer
	abandonStuck(context.Background(), host, tui.NewPrinter(&out, false))

	assert.Equal(t, domain.StateIdle, host.State())
	assert.Contains(t, out.String(), "Abandoned stuck module 'stubborn'.")
}

func TestAbandonStuck_LeavesOtherStatesAlone(t *testing.T) {
	host := livehost.New(supervisor.New())
	t.Cleanup(func() { _ = host.Close(context.Background()) })
	var out syncBuffer
	abandonStuck(context.Background(), host, tui.NewPrinter(&out, false))

	assert.Equal(t, domain.StateIdle, host.State())
	assert.Empty(t, out.String())
}

func TestReportReload_StuckHint(t *testing.T) {
	host := stuckHost(t)
	var out syncBuffer
	reportReload(tui.NewPrinter(&out, false), host, &supervisor.StuckError{Module: "stubborn", Waited: 20 * time.Millisecond})

	assert.Contains(t, out.String(), "'stubborn' ignored cancellation. The next change abandons it.")
}
