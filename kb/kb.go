package kb

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/elliotchance/orderedmap/v2"

	"github.com/signalsfoundry/skynav/model"
)

var (
	// ErrLocationExists indicates a location with the same ID is already stored.
	ErrLocationExists = errors.New("location already exists")
	// ErrLocationNotFound indicates a requested location was not found.
	ErrLocationNotFound = errors.New("location not found")
	// ErrInvalidLocation indicates a location failed validation.
	ErrInvalidLocation = errors.New("invalid location")
)

// EventType indicates what kind of change happened in the KB.
type EventType int

const (
	EventLocationAdded EventType = iota
	EventLocationUpdated
	EventLocationRemoved
)

// Event is emitted to subscribers when something interesting happens.
type Event struct {
	Type     EventType
	Location model.Location
}

// KnowledgeBase is an in-memory, thread-safe registry of observer locations
// keyed by their small-string ID. Listing preserves insertion order.
type KnowledgeBase struct {
	mu sync.RWMutex

	locations *orderedmap.OrderedMap[string, model.Location]

	subs []func(Event)
}

// NewKnowledgeBase constructs an empty KB.
func NewKnowledgeBase() *KnowledgeBase {
	return &KnowledgeBase{
		locations: orderedmap.NewOrderedMap[string, model.Location](),
	}
}

// normalizeID makes lookups insensitive to case and to spacing around commas.
func normalizeID(id string) string {
	name, state, country := model.ParseLocationID(id)
	return strings.ToLower(name + "," + state + "," + country)
}

func validate(loc model.Location) error {
	if strings.TrimSpace(loc.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidLocation)
	}
	if strings.TrimSpace(loc.PlanetName) == "" {
		return fmt.Errorf("%w: planet is required for %q", ErrInvalidLocation, loc.ID())
	}
	if loc.Latitude < -90 || loc.Latitude > 90 {
		return fmt.Errorf("%w: latitude %v out of range for %q", ErrInvalidLocation, loc.Latitude, loc.ID())
	}
	return nil
}

// AddLocation adds a new location. It returns an error if the ID already exists.
func (kb *KnowledgeBase) AddLocation(loc model.Location) error {
	if err := validate(loc); err != nil {
		return err
	}

	kb.mu.Lock()
	key := normalizeID(loc.ID())
	if _, exists := kb.locations.Get(key); exists {
		kb.mu.Unlock()
		return fmt.Errorf("location %q: %w", loc.ID(), ErrLocationExists)
	}
	kb.locations.Set(key, loc)
	subs := append([]func(Event){}, kb.subs...)
	kb.mu.Unlock()

	notify(subs, Event{Type: EventLocationAdded, Location: loc})
	return nil
}

// PutLocation adds or replaces a location.
func (kb *KnowledgeBase) PutLocation(loc model.Location) error {
	if err := validate(loc); err != nil {
		return err
	}

	kb.mu.Lock()
	key := normalizeID(loc.ID())
	_, existed := kb.locations.Get(key)
	kb.locations.Set(key, loc)
	subs := append([]func(Event){}, kb.subs...)
	kb.mu.Unlock()

	evType := EventLocationAdded
	if existed {
		evType = EventLocationUpdated
	}
	notify(subs, Event{Type: evType, Location: loc})
	return nil
}

// RemoveLocation deletes the location with the given ID.
func (kb *KnowledgeBase) RemoveLocation(id string) error {
	kb.mu.Lock()
	key := normalizeID(id)
	loc, ok := kb.locations.Get(key)
	if !ok {
		kb.mu.Unlock()
		return fmt.Errorf("location %q: %w", id, ErrLocationNotFound)
	}
	kb.locations.Delete(key)
	subs := append([]func(Event){}, kb.subs...)
	kb.mu.Unlock()

	notify(subs, Event{Type: EventLocationRemoved, Location: loc})
	return nil
}

// Resolve returns the location with the given small-string ID.
func (kb *KnowledgeBase) Resolve(id string) (model.Location, error) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	loc, ok := kb.locations.Get(normalizeID(id))
	if !ok {
		return model.Location{}, fmt.Errorf("location %q: %w", id, ErrLocationNotFound)
	}
	return loc, nil
}

// ListLocations returns a snapshot of all locations in insertion order.
func (kb *KnowledgeBase) ListLocations() []model.Location {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	res := make([]model.Location, 0, kb.locations.Len())
	for el := kb.locations.Front(); el != nil; el = el.Next() {
		res = append(res, el.Value)
	}
	return res
}

// LocationsOn returns the locations on the given planet, in insertion order.
func (kb *KnowledgeBase) LocationsOn(planet string) []model.Location {
	var res []model.Location
	for _, loc := range kb.ListLocations() {
		if strings.EqualFold(loc.PlanetName, planet) {
			res = append(res, loc)
		}
	}
	return res
}

// Len returns the number of stored locations.
func (kb *KnowledgeBase) Len() int {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return kb.locations.Len()
}

// Subscribe registers a callback for KB events. It returns an unsubscribe function.
func (kb *KnowledgeBase) Subscribe(fn func(Event)) (unsubscribe func()) {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	kb.subs = append(kb.subs, fn)
	idx := len(kb.subs) - 1

	return func() {
		kb.mu.Lock()
		defer kb.mu.Unlock()
		if idx < 0 || idx >= len(kb.subs) {
			return
		}
		kb.subs = append(kb.subs[:idx], kb.subs[idx+1:]...)
		idx = -1
	}
}

// Notify subscribers outside the lock to avoid deadlocks.
func notify(subs []func(Event), ev Event) {
	for _, sub := range subs {
		sub(ev)
	}
}
