package sse

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionOutboundFIFO(t *testing.T) {
	session := newSession("s1", 64, time.Second)
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		require.NoError(t, session.Send(ctx, &Event{Name: EventMessage, Data: i}))
	}

	for i := 0; i < 50; i++ {
		event := <-session.outbound
		assert.Equal(t, i, event.Data)
	}
}

func TestSessionSendBackpressure(t *testing.T) {
	session := newSession("s1", 1, 10*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, session.Send(ctx, &Event{Name: EventMessage}))

	err := session.Send(ctx, &Event{Name: EventMessage})
	require.ErrorIs(t, err, ErrBackpressure)
}

func TestSessionPushInboundBackpressure(t *testing.T) {
	session := newSession("s1", 1, 10*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, session.PushInbound(ctx, json.RawMessage(`1`)))

	err := session.PushInbound(ctx, json.RawMessage(`2`))
	require.ErrorIs(t, err, ErrBackpressure)
}

func TestSessionClosed(t *testing.T) {
	session := newSession("s1", 64, time.Second)
	ctx := context.Background()

	session.Close()
	session.Close()

	assert.True(t, session.Closed())
	require.ErrorIs(t, session.Send(ctx, &Event{Name: EventMessage}), ErrSessionClosed)
	require.ErrorIs(t, session.PushInbound(ctx, json.RawMessage(`{}`)), ErrSessionClosed)

	_, err := session.Receive(ctx)
	require.ErrorIs(t, err, ErrSessionClosed)
}

func TestSessionCloseUnblocksReceive(t *testing.T) {
	session := newSession("s1", 64, time.Second)

	errCh := make(chan error, 1)
	go func() {
		_, err := session.Receive(context.Background())
		errCh <- err
	}()

	time.Sleep(10 * time.Millisecond)
	session.Close()

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, ErrSessionClosed)
	case <-time.After(time.Second):
		t.Fatal("receive did not unblock after close")
	}
}

func TestSessionInboundDrainedAfterClose(t *testing.T) {
	session := newSession("s1", 64, time.Second)
	ctx := context.Background()

	require.NoError(t, session.PushInbound(ctx, json.RawMessage(`1`)))
	require.NoError(t, session.PushInbound(ctx, json.RawMessage(`2`)))

	session.Close()

	payload, err := session.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, `1`, string(payload))

	payload, err = session.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, `2`, string(payload))

	_, err = session.Receive(ctx)
	require.ErrorIs(t, err, ErrSessionClosed)
}

func TestSessionReceiveContextCanceled(t *testing.T) {
	session := newSession("s1", 64, time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := session.Receive(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
