package sse

import (
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// registry owns the set of live sessions. The mutex guards the map only;
// session queues carry their own synchronization so that one session's I/O
// never blocks registry operations on another.
type registry struct {
	mux      sync.RWMutex
	sessions map[string]*Session
}

func newRegistry() *registry {
	return &registry{
		sessions: make(map[string]*Session),
	}
}

func (r *registry) create(queueSize int, pushWait time.Duration) (*Session, error) {
	id, err := gonanoid.New()
	if err != nil {
		return nil, err
	}

	session := newSession(id, queueSize, pushWait)

	r.mux.Lock()
	r.sessions[id] = session
	r.mux.Unlock()

	return session, nil
}

func (r *registry) get(id string) (*Session, bool) {
	r.mux.RLock()
	defer r.mux.RUnlock()

	session, ok := r.sessions[id]

	return session, ok
}

// remove detaches the session and closes it. Removing an unknown identifier
// is a no-op reported as false; a removed session can never be looked up
// again.
func (r *registry) remove(id string) bool {
	r.mux.Lock()
	session, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mux.Unlock()

	if ok {
		session.Close()
	}

	return ok
}

// drain detaches every session, returning them for the caller to close.
func (r *registry) drain() []*Session {
	r.mux.Lock()
	defer r.mux.Unlock()

	sessions := make([]*Session, 0, len(r.sessions))
	for id, session := range r.sessions {
		sessions = append(sessions, session)
		delete(r.sessions, id)
	}

	return sessions
}

func (r *registry) len() int {
	r.mux.RLock()
	defer r.mux.RUnlock()

	return len(r.sessions)
}
