package maps

import "sync"

// DefaultRecentCapacity is how many chosen place ids are remembered.
const DefaultRecentCapacity = 20

// RecentPlaces is a bounded FIFO set of recently chosen place ids. It only
// biases selection away from repeats; losing an entry is harmless.
type RecentPlaces struct {
	mu       sync.Mutex
	capacity int
	order    []string
	set      map[string]struct{}
}

// NewRecentPlaces returns an empty set holding at most capacity ids.
func NewRecentPlaces(capacity int) *RecentPlaces {
	if capacity <= 0 {
		capacity = DefaultRecentCapacity
	}
	return &RecentPlaces{
		capacity: capacity,
		order:    make([]string, 0, capacity),
		set:      make(map[string]struct{}, capacity),
	}
}

// Add remembers id, evicting the oldest entry when full. Adding an id that
// is already present does not refresh its position.
func (r *RecentPlaces) Add(id string) {
	if id == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.set[id]; ok {
		return
	}
	if len(r.order) == r.capacity {
		oldest := r.order[0]
		r.order = r.order[1:]
		delete(r.set, oldest)
	}
	r.order = append(r.order, id)
	r.set[id] = struct{}{}
}

// Contains reports whether id was chosen recently.
func (r *RecentPlaces) Contains(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.set[id]
	return ok
}

// Len returns the number of remembered ids.
func (r *RecentPlaces) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}

// Filter returns the places not chosen recently. When every place was
// chosen recently the input is returned unchanged.
func (r *RecentPlaces) Filter(places []Place) []Place {
	r.mu.Lock()
	defer r.mu.Unlock()

	fresh := make([]Place, 0, len(places))
	for _, p := range places {
		if _, ok := r.set[p.ID]; !ok {
			fresh = append(fresh, p)
		}
	}
	if len(fresh) == 0 {
		return places
	}
	return fresh
}
