// Package sse is a session-multiplexing SSE transport for MCP HTTP mode.
// Each client connection becomes an independent bidirectional session handed
// to the application through NextTransport; outbound events travel on the SSE
// stream, inbound messages arrive through a paired POST route.
package sse

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
)

var (
	// ErrServerClosed is returned by NextTransport once Shutdown has run.
	ErrServerClosed = errors.New("sse: server closed")

	// ErrCapacityExceeded is returned when the accept queue is at its cap and
	// a new handshake cannot be taken on.
	ErrCapacityExceeded = errors.New("sse: accept queue full")
)

const (
	defaultStreamPath    = "/sse"
	defaultMessagePath   = "/message"
	defaultQueueSize     = 64
	defaultAcceptBacklog = 64
	defaultPushWait      = 5 * time.Second
)

type ServerOptions struct {
	Logger zerolog.Logger

	// StreamPath and MessagePath are the routes bound by Router. MessagePath
	// is also announced to clients in the endpoint event.
	StreamPath  string
	MessagePath string

	// QueueSize bounds each session's outbound and inbound queues.
	QueueSize int

	// AcceptBacklog caps the number of handshaked sessions not yet claimed
	// through NextTransport; further handshakes are refused.
	AcceptBacklog int

	// PushWait bounds how long a push into a full session queue blocks before
	// failing with ErrBackpressure.
	PushWait time.Duration
}

// Server accepts SSE connections and hands each one off as an independent
// bidirectional session. Authorization is the caller's concern: wrap the
// router with middleware before mounting it.
type Server struct {
	log  zerolog.Logger
	opts ServerOptions

	registry *registry

	mux     sync.RWMutex
	closed  bool
	pending chan *Session
}

func New(options *ServerOptions) *Server {
	opts := ServerOptions{}
	if options != nil {
		opts = *options
	}

	if opts.StreamPath == "" {
		opts.StreamPath = defaultStreamPath
	}
	if opts.MessagePath == "" {
		opts.MessagePath = defaultMessagePath
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.AcceptBacklog <= 0 {
		opts.AcceptBacklog = defaultAcceptBacklog
	}
	if opts.PushWait <= 0 {
		opts.PushWait = defaultPushWait
	}

	return &Server{
		log:      opts.Logger,
		opts:     opts,
		registry: newRegistry(),
		pending:  make(chan *Session, opts.AcceptBacklog),
	}
}

// Router returns a router with the stream and message routes already bound.
func (s *Server) Router() *httprouter.Router {
	router := httprouter.New()
	router.GET(s.opts.StreamPath, s.StreamHandler())
	router.POST(s.opts.MessagePath, s.MessageHandler())

	return router
}

// StreamHandler serves the stream-open route. It registers a new session,
// enqueues it for NextTransport, then drives the SSE stream until the session
// closes or the client disconnects.
func (s *Server) StreamHandler() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		if err := s.reserve(); err != nil {
			s.log.Warn().Err(err).Msg("refusing SSE handshake")
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}

		session, err := s.registry.create(s.opts.QueueSize, s.opts.PushWait)
		if err != nil {
			http.Error(w, "could not create session", http.StatusInternalServerError)
			return
		}

		if err := s.enqueue(session); err != nil {
			s.registry.remove(session.ID())
			s.log.Warn().Err(err).Msg("refusing SSE handshake")
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}

		s.log.Info().Str("session_id", session.ID()).Msg("new SSE connection")

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)

		defer func() {
			s.registry.remove(session.ID())
			s.log.Info().Str("session_id", session.ID()).Msg("SSE connection closed")
		}()

		if err := writeFrame(w, EventEndpoint, s.opts.MessagePath+"?sessionId="+session.ID()); err != nil {
			return
		}
		flusher.Flush()

		for {
			select {
			case event := <-session.outbound:
				data, err := event.encode()
				if err != nil {
					s.log.Error().Err(err).Str("session_id", session.ID()).Msg("could not encode event")
					continue
				}

				if err := writeFrame(w, event.Name, data); err != nil {
					return
				}
				flusher.Flush()

			case <-session.done:
				return

			case <-r.Context().Done():
				return
			}
		}
	}
}

// MessageHandler serves the message-intake route. Payloads are matched to a
// session by the sessionId query parameter and pushed onto its inbound queue.
func (s *Server) MessageHandler() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		sessionID := r.URL.Query().Get("sessionId")
		if sessionID == "" {
			http.Error(w, "missing sessionId", http.StatusBadRequest)
			return
		}

		session, ok := s.registry.get(sessionID)
		if !ok {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil || !json.Valid(payload) {
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}

		s.log.Debug().Str("session_id", sessionID).Msg("received client message")

		switch err := session.PushInbound(r.Context(), payload); {
		case errors.Is(err, ErrSessionClosed):
			http.Error(w, "session closed", http.StatusGone)
		case errors.Is(err, ErrBackpressure):
			w.Header().Set("Retry-After", "1")
			http.Error(w, "session queue full", http.StatusTooManyRequests)
		case err != nil:
			// Client went away mid-push; nothing left to answer.
		default:
			w.WriteHeader(http.StatusAccepted)
		}
	}
}

// NextTransport blocks until a newly handshaked session is available. Every
// session is handed off exactly once. It returns ErrServerClosed after
// Shutdown.
func (s *Server) NextTransport(ctx context.Context) (*Session, error) {
	select {
	case session, ok := <-s.pending:
		if !ok {
			return nil, ErrServerClosed
		}

		return session, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Shutdown stops accepting handshakes, closes every registered session
// (including those still waiting to be claimed) and releases blocked
// NextTransport callers. It is idempotent.
func (s *Server) Shutdown() {
	s.mux.Lock()
	if s.closed {
		s.mux.Unlock()
		return
	}
	s.closed = true
	s.mux.Unlock()

	close(s.pending)

	sessions := s.registry.drain()
	for _, session := range sessions {
		session.Close()
	}

	s.log.Info().Int("sessions", len(sessions)).Msg("SSE server shut down")
}

// Count reports the number of currently registered sessions.
func (s *Server) Count() int {
	return s.registry.len()
}

// reserve refuses the handshake up front when no accept slot is free, before
// any session state is allocated. The check is advisory; enqueue re-checks
// under the same guard that Shutdown takes.
func (s *Server) reserve() error {
	s.mux.RLock()
	defer s.mux.RUnlock()

	if s.closed {
		return ErrServerClosed
	}

	if len(s.pending) >= cap(s.pending) {
		return ErrCapacityExceeded
	}

	return nil
}

func (s *Server) enqueue(session *Session) error {
	s.mux.RLock()
	defer s.mux.RUnlock()

	if s.closed {
		return ErrServerClosed
	}

	select {
	case s.pending <- session:
		return nil
	default:
		return ErrCapacityExceeded
	}
}
