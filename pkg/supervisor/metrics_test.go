package supervisor_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/livehost/pkg/channel"
	"github.com/aretw0/livehost/pkg/domain"
	"github.com/aretw0/livehost/pkg/module"
	"github.com/aretw0/livehost/pkg/supervisor"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gathered returns the metric families of reg keyed by name.
func gathered(t *testing.T, reg *prometheus.Registry) map[string]*dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	out := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		out[f.GetName()] = f
	}
	return out
}

func labelValue(m *dto.Metric, name string) string {
	for _, l := range m.GetLabel() {
		if l.GetName() == name {
			return l.GetValue()
		}
	}
	return ""
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	sup := newSupervisor(t, supervisor.WithMetrics(reg))

	_, err := sup.Load(ctx, handle(t, "chatty", module.RunFunc(func(ctx context.Context, out channel.Sender) error {
		for i := 0; i < 3; i++ {
			_ = out.Send(ctx, "n", "x")
		}
		return errors.New("done badly")
	})), nil)
	require.NoError(t, err)
	_, err = sup.Play(ctx)
	require.NoError(t, err)
	waitState(t, sup, domain.StateFaulted)

	families := gathered(t, reg)

	assert.Equal(t, 3.0, families["livehost_messages_total"].GetMetric()[0].GetCounter().GetValue())
	assert.Equal(t, 1.0, families["livehost_faults_total"].GetMetric()[0].GetCounter().GetValue())

	transitions := map[string]float64{}
	for _, m := range families["livehost_transitions_total"].GetMetric() {
		transitions[labelValue(m, "from")+">"+labelValue(m, "to")] = m.GetCounter().GetValue()
	}
	assert.Equal(t, map[string]float64{
		"idle>loaded":     1,
		"loaded>playing":  1,
		"playing>faulted": 1,
	}, transitions)

	for _, m := range families["livehost_state"].GetMetric() {
		want := 0.0
		if labelValue(m, "state") == string(domain.StateFaulted) {
			want = 1
		}
		assert.Equal(t, want, m.GetGauge().GetValue(), "state gauge %s", labelValue(m, "state"))
	}
}

func TestMetrics_SharedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := newSupervisor(t, supervisor.WithMetrics(reg))
	b := newSupervisor(t, supervisor.WithMetrics(reg))

	_, err := a.Load(ctx, handle(t, "a", ticker("a", time.Millisecond)), nil)
	require.NoError(t, err)
	_, err = b.Load(ctx, handle(t, "b", ticker("b", time.Millisecond)), nil)
	require.NoError(t, err)

	families := gathered(t, reg)
	require.Len(t, families["livehost_transitions_total"].GetMetric(), 1)
	assert.Equal(t, 2.0, families["livehost_transitions_total"].GetMetric()[0].GetCounter().GetValue())
}
