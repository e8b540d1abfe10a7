package channel_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aretw0/livehost/pkg/channel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannel_FIFO(t *testing.T) {
	ch := channel.New(channel.Unbounded())
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		require.NoError(t, ch.Send(ctx, "note", fmt.Sprintf("m%d", i)))
	}
	assert.Equal(t, 3, ch.Len())

	for i := 1; i <= 3; i++ {
		m, err := ch.Receive(ctx)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("m%d", i), m.Payload)
		assert.Equal(t, uint64(i), m.Seq)
		assert.Equal(t, "note", m.Topic)
		assert.Len(t, m.ID, 26)
	}
}

func TestChannel_FIFOAcrossGoroutines(t *testing.T) {
	ch := channel.New(channel.Bounded(2))
	ctx := context.Background()
	const total = 200

	go func() {
		for i := 0; i < total; i++ {
			_ = ch.Send(ctx, "seq", fmt.Sprint(i))
		}
		ch.Close()
	}()

	got := 0
	for {
		m, err := ch.Receive(ctx)
		if errors.Is(err, channel.ErrChannelClosed) {
			break
		}
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprint(got), m.Payload)
		got++
	}
	assert.Equal(t, total, got)
}

func TestChannel_TopicRequired(t *testing.T) {
	ch := channel.New(channel.Unbounded())
	assert.ErrorIs(t, ch.Send(context.Background(), "", "x"), channel.ErrTopicRequired)
}

func TestChannel_CloseRejectsSendsButDrains(t *testing.T) {
	ch := channel.New(channel.Unbounded())
	ctx := context.Background()
	require.NoError(t, ch.Send(ctx, "t", "before"))

	ch.Close()
	ch.Close() // idempotent
	assert.True(t, ch.Closed())
	assert.ErrorIs(t, ch.Send(ctx, "t", "after"), channel.ErrChannelClosed)

	m, err := ch.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "before", m.Payload)

	_, err = ch.Receive(ctx)
	assert.ErrorIs(t, err, channel.ErrChannelClosed)
}

func TestChannel_BoundedSuspendsSender(t *testing.T) {
	ch := channel.New(channel.Bounded(1))
	ctx := context.Background()
	require.NoError(t, ch.Send(ctx, "t", "first"))

	sent := make(chan error, 1)
	go func() {
		sent <- ch.Send(ctx, "t", "second")
	}()

	select {
	case <-sent:
		t.Fatal("send should be suspended while the channel is full")
	case <-time.After(50 * time.Millisecond):
	}

	m, err := ch.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "first", m.Payload)

	select {
	case err := <-sent:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("send should resume once the host receives")
	}
}

func TestChannel_CloseWakesSuspendedSender(t *testing.T) {
	ch := channel.New(channel.Bounded(1))
	ctx := context.Background()
	require.NoError(t, ch.Send(ctx, "t", "fill"))

	sent := make(chan error, 1)
	go func() {
		sent <- ch.Send(ctx, "t", "blocked")
	}()
	time.Sleep(20 * time.Millisecond)
	ch.Close()

	select {
	case err := <-sent:
		assert.ErrorIs(t, err, channel.ErrChannelClosed)
	case <-time.After(time.Second):
		t.Fatal("close should wake a suspended sender")
	}
}

func TestChannel_SuspendedSendHonorsContext(t *testing.T) {
	ch := channel.New(channel.Bounded(1))
	require.NoError(t, ch.Send(context.Background(), "t", "fill"))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, ch.Send(ctx, "t", "late"), context.DeadlineExceeded)
	assert.Equal(t, 1, ch.Len())
}

func TestChannel_ReceiveHonorsContext(t *testing.T) {
	ch := channel.New(channel.Unbounded())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := ch.Receive(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestChannel_EndpointIsSendOnly(t *testing.T) {
	ch := channel.New(channel.Unbounded())
	ep := ch.Endpoint()

	_, isChannel := ep.(*channel.Channel)
	assert.False(t, isChannel)

	require.NoError(t, ep.Send(context.Background(), "t", "via endpoint"))
	m, err := ch.Receive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "via endpoint", m.Payload)
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    channel.Policy
		wantErr bool
	}{
		{in: "", want: channel.Unbounded()},
		{in: "unbounded", want: channel.Unbounded()},
		{in: " Bounded:16 ", want: channel.Bounded(16)},
		{in: "bounded:0", wantErr: true},
		{in: "bounded:x", wantErr: true},
		{in: "lossy", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := channel.ParsePolicy(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, channel.ErrInvalidPolicy)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got.String(), tt.want.String())
		})
	}
	assert.Equal(t, "bounded:1", channel.Bounded(-3).String())
}
