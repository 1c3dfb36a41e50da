package favorites

import (
	"slices"
	"sync"

	"github.com/weatherwise/weatherwise/internal/storage"
)

// seedLocations is the favorites list a fresh profile starts with, before any
// user action. It matches the default list the WeatherWise front end ships.
var seedLocations = []string{
	"Tehran",
	"New York",
	"London",
	"Tokyo",
	"Sydney",
	"Dubai",
	"Paris",
	"Moscow",
}

// Subscriber receives the full favorites list after each successful mutation.
// Callbacks run synchronously on the mutating goroutine and must not block.
type Subscriber func(favorites []string)

// Registry is the ordered set of favorite location names, persisted in the
// profile store. Mutations are serialized by an internal lock so two racing
// toggles cannot lose an update, and every successful mutation fans out to all
// subscribers so independent UI surfaces stay in sync without direct coupling.
type Registry struct {
	mu sync.Mutex
	kv *storage.FileStore

	subsMu  sync.Mutex
	subs    map[int]Subscriber
	nextSub int
}

func NewRegistry(kv *storage.FileStore) *Registry {
	return &Registry{
		kv:   kv,
		subs: make(map[int]Subscriber),
	}
}

// List returns the favorites in display order. A profile with no stored value
// gets the built-in seed list.
func (r *Registry) List() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadLocked()
}

// Contains reports membership without copying the list.
func (r *Registry) Contains(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Contains(r.loadLocked(), name)
}

// Toggle flips membership of name and returns the resulting state, so callers
// can update their view without a re-fetch.
func (r *Registry) Toggle(name string) (bool, error) {
	r.mu.Lock()

	favs := r.loadLocked()
	var isFavorite bool
	if slices.Contains(favs, name) {
		favs = remove(favs, name)
		isFavorite = false
	} else {
		favs = append(favs, name)
		isFavorite = true
	}

	if err := r.saveLocked(favs); err != nil {
		r.mu.Unlock()
		return false, err
	}
	r.mu.Unlock()

	r.notify(favs)
	return isFavorite, nil
}

// Add appends name to the favorites. Adding an existing favorite is a no-op.
func (r *Registry) Add(name string) error {
	r.mu.Lock()

	favs := r.loadLocked()
	if slices.Contains(favs, name) {
		r.mu.Unlock()
		return nil
	}
	favs = append(favs, name)

	if err := r.saveLocked(favs); err != nil {
		r.mu.Unlock()
		return err
	}
	r.mu.Unlock()

	r.notify(favs)
	return nil
}

// Remove deletes name from the favorites. Removing an absent name is a no-op.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()

	favs := r.loadLocked()
	if !slices.Contains(favs, name) {
		r.mu.Unlock()
		return nil
	}
	favs = remove(favs, name)

	if err := r.saveLocked(favs); err != nil {
		r.mu.Unlock()
		return err
	}
	r.mu.Unlock()

	r.notify(favs)
	return nil
}

// Subscribe registers fn for change notifications and returns its
// unsubscribe function.
func (r *Registry) Subscribe(fn Subscriber) func() {
	r.subsMu.Lock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn
	r.subsMu.Unlock()

	return func() {
		r.subsMu.Lock()
		delete(r.subs, id)
		r.subsMu.Unlock()
	}
}

// loadLocked reads the persisted set. Callers hold r.mu.
func (r *Registry) loadLocked() []string {
	var favs []string
	if !r.kv.Get(storage.KeyFavorites, &favs) {
		return slices.Clone(seedLocations)
	}
	return favs
}

// saveLocked persists the full set. Callers hold r.mu.
func (r *Registry) saveLocked(favs []string) error {
	return r.kv.Set(storage.KeyFavorites, favs)
}

func (r *Registry) notify(favs []string) {
	r.subsMu.Lock()
	subs := make([]Subscriber, 0, len(r.subs))
	for _, fn := range r.subs {
		subs = append(subs, fn)
	}
	r.subsMu.Unlock()

	for _, fn := range subs {
		fn(slices.Clone(favs))
	}
}

func remove(list []string, name string) []string {
	out := list[:0]
	for _, item := range list {
		if item != name {
			out = append(out, item)
		}
	}
	return out
}
