package presence

import (
	"sort"
	"sync"
)

// Registry counts open realtime connections per user. A user is online while the count is positive.
// It is safe for concurrent use.
type Registry struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		counts: make(map[string]int),
	}
}

// Connect records a new connection and reports whether the user just came online.
func (r *Registry) Connect(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	previous := r.counts[userID]
	r.counts[userID] = previous + 1
	return previous == 0
}

// Disconnect records a closed connection and reports whether it was the user's last one.
func (r *Registry) Disconnect(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.counts[userID]
	if !ok {
		return false
	}
	if current <= 1 {
		delete(r.counts, userID)
		return true
	}
	r.counts[userID] = current - 1
	return false
}

func (r *Registry) IsOnline(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[userID] > 0
}

func (r *Registry) Count(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[userID]
}

// Online returns the ids of all online users, sorted.
func (r *Registry) Online() []string {
	r.mu.Lock()
	ids := make([]string, 0, len(r.counts))
	for id := range r.counts {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	sort.Strings(ids)
	return ids
}
