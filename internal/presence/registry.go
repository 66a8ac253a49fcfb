package presence

import (
	"fmt"
	"sort"
	"sync"

	"dm-relay/internal/errs"
)

// ConnectionID identifies one live connection. It is assigned by the
// transport when the connection is accepted.
type ConnectionID string

// Registry maps connections to announced usernames. It is the source of
// truth for who is online. Several connections may share a username.
type Registry struct {
	mu      sync.RWMutex
	entries map[ConnectionID]string
}

func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[ConnectionID]string),
	}
}

// Register upserts the username for id. A second announce on the same
// connection replaces the previous name.
func (r *Registry) Register(id ConnectionID, username string) error {
	if username == "" {
		return fmt.Errorf("%w: username is required", errs.ErrInvalidInput)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[id] = username
	return nil
}

// Unregister removes id. Unknown ids are ignored.
func (r *Registry) Unregister(id ConnectionID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.entries, id)
}

// Lookup returns a connection announced as username. When the name is
// shared, which connection is returned is unspecified.
func (r *Registry) Lookup(username string) (ConnectionID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for id, name := range r.entries {
		if name == username {
			return id, true
		}
	}
	return "", false
}

// Snapshot returns every registered username, duplicates included.
// The result is sorted but callers must not depend on the order.
func (r *Registry) Snapshot() []string {
	r.mu.RLock()
	users := make([]string, 0, len(r.entries))
	for _, name := range r.entries {
		users = append(users, name)
	}
	r.mu.RUnlock()

	sort.Strings(users)
	return users
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}
