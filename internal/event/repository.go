package event

import (
	"context"
	"sort"
	"sync"
	"time"
)

// TagCount is one tag with its usage count across all events.
type TagCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Repository defines the persistence contract for events. Absence is a
// normal outcome: GetByID and Update return ErrEventNotFound for unknown
// ids, Delete reports found via its boolean. Implementations are
// responsible for the atomicity of a single create/update/delete; no
// cross-row transaction is offered, so a recurring series persists one
// row at a time.
type Repository interface {
	// Create stores a new event and assigns its id.
	Create(ctx context.Context, e *Event) (*Event, error)

	// GetByID retrieves an event by id.
	GetByID(ctx context.Context, id int64) (*Event, error)

	// Update replaces the event's mutable fields and bumps updatedAt.
	Update(ctx context.Context, id int64, e *Event) (*Event, error)

	// Delete hard-deletes an event, reporting whether it existed.
	Delete(ctx context.Context, id int64) (bool, error)

	// List returns events matching the filter, ordered ascending by
	// start time, windowed by pagination.
	List(ctx context.Context, f Filter, p Pagination) ([]*Event, error)

	// DistinctOrganizers returns the sorted set of stored organizer
	// strings, excluding empties.
	DistinctOrganizers(ctx context.Context) ([]string, error)

	// TagsWithCounts returns every stored #tag# with its usage count,
	// ordered by count descending.
	TagsWithCounts(ctx context.Context) ([]TagCount, error)
}

// InMemoryRepository is a map-backed Repository used for tests and
// development. Thread-safe via RWMutex.
type InMemoryRepository struct {
	mu     sync.RWMutex
	events map[int64]*Event
	nextID int64
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		events: make(map[int64]*Event),
		nextID: 1,
	}
}

// Create stores a new event and assigns the next id.
func (r *InMemoryRepository) Create(ctx context.Context, e *Event) (*Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *e
	stored.ID = r.nextID
	r.nextID++

	now := time.Now().UTC()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	r.events[stored.ID] = &stored
	out := stored
	return &out, nil
}

// GetByID retrieves an event by id.
func (r *InMemoryRepository) GetByID(ctx context.Context, id int64) (*Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.events[id]
	if !ok {
		return nil, ErrEventNotFound
	}
	out := *e
	return &out, nil
}

// Update replaces the stored event's fields, preserving id and
// createdAt. Last write wins; no version check is performed.
func (r *InMemoryRepository) Update(ctx context.Context, id int64, e *Event) (*Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.events[id]
	if !ok {
		return nil, ErrEventNotFound
	}

	stored := *e
	stored.ID = id
	stored.CreatedAt = existing.CreatedAt
	stored.UpdatedAt = time.Now().UTC()

	r.events[id] = &stored
	out := stored
	return &out, nil
}

// Delete removes an event, reporting whether it existed.
func (r *InMemoryRepository) Delete(ctx context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.events[id]; !ok {
		return false, nil
	}
	delete(r.events, id)
	return true, nil
}

// List returns matching events ordered ascending by start time.
func (r *InMemoryRepository) List(ctx context.Context, f Filter, p Pagination) ([]*Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]*Event, 0)
	for _, e := range r.events {
		if f.Matches(e) {
			ev := *e
			matched = append(matched, &ev)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].StartTime.Equal(matched[j].StartTime) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].StartTime.Before(matched[j].StartTime)
	})

	p = p.Normalize()
	if p.Skip >= len(matched) {
		return []*Event{}, nil
	}
	matched = matched[p.Skip:]
	if len(matched) > p.Limit {
		matched = matched[:p.Limit]
	}
	return matched, nil
}

// DistinctOrganizers returns the sorted set of organizer strings.
func (r *InMemoryRepository) DistinctOrganizers(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	for _, e := range r.events {
		if e.Organizer != "" {
			seen[e.Organizer] = true
		}
	}
	out := make([]string, 0, len(seen))
	for o := range seen {
		out = append(out, o)
	}
	sort.Strings(out)
	return out, nil
}

// TagsWithCounts aggregates tag usage across all events.
func (r *InMemoryRepository) TagsWithCounts(ctx context.Context) ([]TagCount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[string]int)
	for _, e := range r.events {
		for _, t := range ParseTags(e.Tags) {
			counts[t]++
		}
	}
	out := make([]TagCount, 0, len(counts))
	for name, count := range counts {
		out = append(out, TagCount{Name: name, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Name < out[j].Name
		}
		return out[i].Count > out[j].Count
	})
	return out, nil
}
