package handler

import (
	"sync"

	"github.com/daobinhgiang/bedtrack/internal/credential"
	"github.com/daobinhgiang/bedtrack/internal/session"
)

// ClientFactory builds the credential handle and controller pair for a new
// client.
type ClientFactory func() (*credential.Client, *session.Controller)

// ClientSession is the per-client state the handlers operate on.
type ClientSession struct {
	Creds *credential.Client
	Ctrl  *session.Controller
}

// ClientRegistry hands out one ClientSession per client id, creating it on
// first sight.
type ClientRegistry struct {
	mu       sync.Mutex
	factory  ClientFactory
	sessions map[string]*ClientSession
}

func NewClientRegistry(factory ClientFactory) *ClientRegistry {
	return &ClientRegistry{
		factory:  factory,
		sessions: make(map[string]*ClientSession),
	}
}

// Get returns the session for a client id, creating it if needed.
func (r *ClientRegistry) Get(clientID string) *ClientSession {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sess, ok := r.sessions[clientID]; ok {
		return sess
	}

	creds, ctrl := r.factory()
	sess := &ClientSession{Creds: creds, Ctrl: ctrl}
	r.sessions[clientID] = sess
	return sess
}

// Close detaches every controller from its session-change stream.
func (r *ClientRegistry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, sess := range r.sessions {
		sess.Ctrl.Close()
	}
	r.sessions = make(map[string]*ClientSession)
}
