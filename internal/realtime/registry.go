package realtime

import (
	"sync"
	"time"

	"github.com/ariefcatur/go-realtime-points/internal/obs"
	"github.com/google/uuid"
)

// Registry tracks the open connections of one gateway. It is owned by whoever builds the
// gateway and lives as long as it does.
type Registry struct {
	// SendBuffer is the per-connection outbound queue length.
	SendBuffer int
	// PingPeriod drives transport-level pings; zero disables them.
	PingPeriod time.Duration

	mu      sync.RWMutex
	clients map[string]*Client
}

func NewRegistry(sendBuffer int, pingPeriod time.Duration) *Registry {
	return &Registry{SendBuffer: sendBuffer, PingPeriod: pingPeriod, clients: map[string]*Client{}}
}

// Add registers conn under a fresh id and starts its writer.
func (r *Registry) Add(conn Conn, ident Identity) *Client {
	c := newClient(uuid.NewString(), conn, ident, r.SendBuffer)

	r.mu.Lock()
	if r.clients == nil {
		r.clients = map[string]*Client{}
	}
	r.clients[c.ID] = c
	r.mu.Unlock()

	obs.WSConnections.Inc()
	go c.writeLoop(r.PingPeriod)
	return c
}

// Remove unregisters and closes the client. Removing an unknown id is a no-op.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	c, ok := r.clients[id]
	delete(r.clients, id)
	r.mu.Unlock()

	if !ok {
		return false
	}
	c.close()
	obs.WSConnections.Dec()
	return true
}

func (r *Registry) Get(id string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[id]
	return c, ok
}

// Snapshot copies the current client set so callers can iterate without holding the lock.
func (r *Registry) Snapshot() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c)
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// CloseAll drops every connection; used on shutdown.
func (r *Registry) CloseAll() {
	for _, c := range r.Snapshot() {
		r.Remove(c.ID)
	}
}
