// Package presence counts live push connections per user.
package presence

import (
	"sort"
	"sync"
)

const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Registry maps a user id to the number of connections it currently holds.
// Only Connect and Disconnect mutate it.
type Registry struct {
	mu     sync.Mutex
	counts map[uint]int
}

func New() *Registry {
	return &Registry{counts: make(map[uint]int)}
}

// Connect records a new connection and reports whether the user just came online.
func (r *Registry) Connect(userID uint) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.counts[userID]++
	return r.counts[userID] == 1
}

// Disconnect drops one connection and reports whether it was the user's last.
// A disconnect for a user with no connections is a no-op.
func (r *Registry) Disconnect(userID uint) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.counts[userID]
	if !ok {
		return false
	}
	if n <= 1 {
		delete(r.counts, userID)
		return true
	}
	r.counts[userID] = n - 1
	return false
}

func (r *Registry) IsOnline(userID uint) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.counts[userID] > 0
}

func (r *Registry) Status(userID uint) string {
	if r.IsOnline(userID) {
		return StatusOnline
	}
	return StatusOffline
}

// Snapshot copies the current counts.
func (r *Registry) Snapshot() map[uint]int {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[uint]int, len(r.counts))
	for id, n := range r.counts {
		out[id] = n
	}
	return out
}

// Online returns the ids of every connected user in ascending order.
func (r *Registry) Online() []uint {
	r.mu.Lock()
	ids := make([]uint, 0, len(r.counts))
	for id := range r.counts {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Close forgets every connection. The registry stays usable afterwards.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.counts = make(map[uint]int)
}
