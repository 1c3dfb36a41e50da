package recents

import (
	"sync"

	"github.com/weatherwise/weatherwise/internal/storage"
)

// MaxEntries bounds the recents list.
const MaxEntries = 20

// Registry tracks recently viewed locations, most-recent-first, capped at
// MaxEntries and free of duplicates. Mutations are serialized by an internal
// lock so interleaved views cannot lose an update.
type Registry struct {
	mu sync.Mutex
	kv *storage.FileStore
}

func NewRegistry(kv *storage.FileStore) *Registry {
	return &Registry{kv: kv}
}

// List returns the recents, most recent first.
func (r *Registry) List() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadLocked()
}

// Add records a view of name. An existing entry is removed before the new one
// is prepended; that order is what moves a re-visited location to the front
// instead of leaving a stale duplicate behind. The list is then truncated to
// MaxEntries.
func (r *Registry) Add(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := removeName(r.loadLocked(), name)
	list = append([]string{name}, list...)
	if len(list) > MaxEntries {
		list = list[:MaxEntries]
	}

	return r.saveLocked(list)
}

// Remove deletes name from the recents. Removing an absent name is a no-op.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.loadLocked()
	filtered := removeName(list, name)
	if len(filtered) == len(list) {
		return nil
	}
	return r.saveLocked(filtered)
}

// Clear empties the recents list.
func (r *Registry) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saveLocked([]string{})
}

func (r *Registry) loadLocked() []string {
	var list []string
	if !r.kv.Get(storage.KeyRecents, &list) {
		return nil
	}
	return list
}

func (r *Registry) saveLocked(list []string) error {
	return r.kv.Set(storage.KeyRecents, list)
}

func removeName(list []string, name string) []string {
	out := make([]string, 0, len(list))
	for _, item := range list {
		if item != name {
			out = append(out, item)
		}
	}
	return out
}
