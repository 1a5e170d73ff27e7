package sse

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrSessionClosed is returned by queue operations on a session that has
	// already ended. It is never retried internally.
	ErrSessionClosed = errors.New("sse: session closed")

	// ErrBackpressure is returned when a session queue stayed full beyond the
	// bounded wait. Callers may retry later.
	ErrBackpressure = errors.New("sse: session queue full")
)

const (
	stateOpen = int32(iota)
	stateClosing
	stateClosed
)

// Session is one client's bidirectional channel: an ordered outbound event
// queue drained by the SSE stream writer, and an ordered inbound payload
// queue fed by the message route and drained by the application.
//
// Both queues are bounded. Pushing into a full queue blocks the caller up to
// the configured wait, then fails with ErrBackpressure.
type Session struct {
	id string

	outbound chan *Event
	inbound  chan json.RawMessage

	pushWait time.Duration

	state     int32
	closeOnce sync.Once
	done      chan struct{}
}

func newSession(id string, queueSize int, pushWait time.Duration) *Session {
	return &Session{
		id:       id,
		outbound: make(chan *Event, queueSize),
		inbound:  make(chan json.RawMessage, queueSize),
		pushWait: pushWait,
		done:     make(chan struct{}),
	}
}

// ID returns the session identifier assigned at handshake time.
func (s *Session) ID() string {
	return s.id
}

// Closed reports whether the session has ended.
func (s *Session) Closed() bool {
	return atomic.LoadInt32(&s.state) != stateOpen
}

// Send appends an event to the outbound queue, in delivery order.
func (s *Session) Send(ctx context.Context, event *Event) error {
	if s.Closed() {
		return ErrSessionClosed
	}

	timer := time.NewTimer(s.pushWait)
	defer timer.Stop()

	select {
	case s.outbound <- event:
		return nil
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrBackpressure
	}
}

// PushInbound appends a raw client payload to the inbound queue. It is called
// by the message route handler; custom routing layers delivering payloads
// themselves must call it the same way.
func (s *Session) PushInbound(ctx context.Context, payload json.RawMessage) error {
	if s.Closed() {
		return ErrSessionClosed
	}

	timer := time.NewTimer(s.pushWait)
	defer timer.Stop()

	select {
	case s.inbound <- payload:
		return nil
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrBackpressure
	}
}

// Receive blocks until the next inbound payload is available. Payloads that
// were queued before the session closed are still drained; once the queue is
// empty and the session has ended it returns ErrSessionClosed.
func (s *Session) Receive(ctx context.Context) (json.RawMessage, error) {
	select {
	case payload := <-s.inbound:
		return payload, nil
	default:
	}

	select {
	case payload := <-s.inbound:
		return payload, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		// A payload may have slipped in before the close won the select.
		select {
		case payload := <-s.inbound:
			return payload, nil
		default:
			return nil, ErrSessionClosed
		}
	}
}

// Close ends the session. It is idempotent and wakes every caller blocked on
// Send, PushInbound or Receive. Outbound events still buffered are discarded;
// inbound payloads stay readable until drained.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		atomic.StoreInt32(&s.state, stateClosing)
		close(s.done)
		atomic.StoreInt32(&s.state, stateClosed)
	})
}
