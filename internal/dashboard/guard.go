package dashboard

import "sync"

// Ticket identifies one request issued through a Guard.
type Ticket struct {
	Key string
	seq uint64
}

// Guard drops responses to requests that were superseded. A screen calls
// Begin before fetching and renders a result only while its ticket is Current.
type Guard struct {
	mu      sync.Mutex
	seq     uint64
	current Ticket
}

// Begin issues a ticket for key and supersedes every earlier one.
func (g *Guard) Begin(key string) Ticket {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	g.current = Ticket{Key: key, seq: g.seq}
	return g.current
}

// Current reports whether t is still the latest ticket.
func (g *Guard) Current(t Ticket) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return t.seq != 0 && t == g.current
}
