package chat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/studyhallhq/studyhall/plugin/agent"
)

func TestStreamDeliversInOrder(t *testing.T) {
	ctx := context.Background()
	stream := newStream(func() {})

	go func() {
		_ = stream.send(ctx, agent.SessionEvent("conv-1"))
		_ = stream.send(ctx, agent.TokenEvent("a"))
		_ = stream.send(ctx, agent.TokenEvent("b"))
		_ = stream.send(ctx, agent.DoneEvent("ab"))
		stream.close()
	}()

	var types []agent.EventType
	for event := range stream.Events() {
		types = append(types, event.Type)
	}
	require.Equal(t, []agent.EventType{
		agent.EventSession, agent.EventToken, agent.EventToken, agent.EventDone,
	}, types)
}

func TestStreamSendFailsAfterContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	stream := newStream(cancel)

	// Fill the buffer with no consumer, then cancel: the blocked send
	// must return instead of hanging.
	go func() {
		time.Sleep(10 * time.Millisecond)
		stream.Cancel()
	}()

	var err error
	for i := 0; i < defaultStreamBuffer+1; i++ {
		err = stream.send(ctx, agent.TokenEvent("x"))
		if err != nil {
			break
		}
	}
	require.Error(t, err)
}

func TestStreamCancelIsIdempotent(t *testing.T) {
	calls := 0
	stream := newStream(func() { calls++ })

	stream.Cancel()
	stream.Cancel()
	stream.Cancel()
	require.Equal(t, 1, calls)
}

func TestStreamCloseIsIdempotent(t *testing.T) {
	stream := newStream(func() {})
	stream.close()
	require.NotPanics(t, stream.close)

	_, open := <-stream.Events()
	require.False(t, open)
}
