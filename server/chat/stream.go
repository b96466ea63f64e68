package chat

import (
	"context"
	"sync"

	"github.com/studyhallhq/studyhall/plugin/agent"
)

// defaultStreamBuffer bounds the event channel. A slow consumer makes
// the producer block instead of growing memory, and the block
// propagates back into the model stream read.
const defaultStreamBuffer = 32

// Stream is the consumer half of one chat run. Events arrive on
// Events() in grammar order: at most one session event, any number of
// token events, then exactly one done or error event, after which the
// channel is closed.
type Stream struct {
	events chan agent.Event
	cancel context.CancelFunc

	closeOnce  sync.Once
	cancelOnce sync.Once
}

func newStream(cancel context.CancelFunc) *Stream {
	return &Stream{
		events: make(chan agent.Event, defaultStreamBuffer),
		cancel: cancel,
	}
}

// Events returns the event channel.
func (s *Stream) Events() <-chan agent.Event {
	return s.events
}

// Cancel abandons the run. The producer stops promptly and the
// in-flight turn is not persisted. Safe to call more than once and
// after the stream ended.
func (s *Stream) Cancel() {
	s.cancelOnce.Do(s.cancel)
}

// send delivers an event, blocking for back-pressure. It fails only
// when the run context ends, which is also how consumer cancellation
// reaches the producer.
func (s *Stream) send(ctx context.Context, event agent.Event) error {
	select {
	case s.events <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// close ends the stream. Called exactly once by the producer after the
// terminal event.
func (s *Stream) close() {
	s.closeOnce.Do(func() {
		close(s.events)
	})
}
