package kb

import (
    "sort"
    "sync"

    "github.com/signalsfoundry/geoar-bridge/model"
)

// EventType indicates what kind of change happened in the registry.
type EventType int

const (
    EventAnchorAdded EventType = iota
    EventAnchorUpdated
    EventAnchorRemoved
    EventCleared
)

// Event is emitted to subscribers when the anchor set changes.
type Event struct {
    Type   EventType
    Anchor model.TrackedAnchor
}

// AnchorRegistry is an in-memory, thread-safe store of the anchors the
// tracking subsystem currently reports.
type AnchorRegistry struct {
    mu sync.RWMutex

    anchors map[string]model.TrackedAnchor

    subs   map[int]func(Event)
    nextID int
}

// NewAnchorRegistry constructs an empty registry.
func NewAnchorRegistry() *AnchorRegistry {
    return &AnchorRegistry{
        anchors: make(map[string]model.TrackedAnchor),
        subs:    make(map[int]func(Event)),
    }
}

// Add stores new anchors. An anchor already present is replaced and
// reported as updated.
func (r *AnchorRegistry) Add(anchors ...model.TrackedAnchor) {
    r.apply(anchors)
}

// Update replaces stored anchors. Unknown anchors are added.
func (r *AnchorRegistry) Update(anchors ...model.TrackedAnchor) {
    r.apply(anchors)
}

// Remove deletes anchors by ID. Unknown IDs are ignored.
func (r *AnchorRegistry) Remove(anchors ...model.TrackedAnchor) {
    r.mu.Lock()
    events := make([]Event, 0, len(anchors))
    for _, a := range anchors {
        if _, ok := r.anchors[a.ID]; !ok {
            continue
        }
        delete(r.anchors, a.ID)
        events = append(events, Event{Type: EventAnchorRemoved, Anchor: a})
    }
    subs := r.snapshotSubsLocked()
    r.mu.Unlock()

    notify(subs, events)
}

// Clear drops every anchor, e.g. when tracking is reset.
func (r *AnchorRegistry) Clear() {
    r.mu.Lock()
    r.anchors = make(map[string]model.TrackedAnchor)
    subs := r.snapshotSubsLocked()
    r.mu.Unlock()

    notify(subs, []Event{{Type: EventCleared}})
}

// Get returns the anchor with the given ID.
func (r *AnchorRegistry) Get(id string) (model.TrackedAnchor, bool) {
    r.mu.RLock()
    defer r.mu.RUnlock()
    a, ok := r.anchors[id]
    return a, ok
}

// Len returns the number of stored anchors.
func (r *AnchorRegistry) Len() int {
    r.mu.RLock()
    defer r.mu.RUnlock()
    return len(r.anchors)
}

// List returns a snapshot of all anchors sorted by ID.
func (r *AnchorRegistry) List() []model.TrackedAnchor {
    r.mu.RLock()
    res := make([]model.TrackedAnchor, 0, len(r.anchors))
    for _, a := range r.anchors {
        res = append(res, a)
    }
    r.mu.RUnlock()

    sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
    return res
}

// Planes returns the stored plane anchors sorted by ID.
func (r *AnchorRegistry) Planes() []model.TrackedAnchor {
    all := r.List()
    planes := all[:0]
    for _, a := range all {
        if a.Kind == model.AnchorKindPlane {
            planes = append(planes, a)
        }
    }
    return planes
}

// Subscribe registers a callback for registry events. It returns an
// unsubscribe function that is safe to call more than once.
func (r *AnchorRegistry) Subscribe(fn func(Event)) (unsubscribe func()) {
    r.mu.Lock()
    defer r.mu.Unlock()
    id := r.nextID
    r.nextID++
    r.subs[id] = fn

    return func() {
        r.mu.Lock()
        defer r.mu.Unlock()
        delete(r.subs, id)
    }
}

func (r *AnchorRegistry) apply(anchors []model.TrackedAnchor) {
    r.mu.Lock()
    events := make([]Event, 0, len(anchors))
    for _, a := range anchors {
        typ := EventAnchorAdded
        if _, exists := r.anchors[a.ID]; exists {
            typ = EventAnchorUpdated
        }
        r.anchors[a.ID] = a
        events = append(events, Event{Type: typ, Anchor: a})
    }
    subs := r.snapshotSubsLocked()
    r.mu.Unlock()

    notify(subs, events)
}

func (r *AnchorRegistry) snapshotSubsLocked() []func(Event) {
    subs := make([]func(Event), 0, len(r.subs))
    for _, fn := range r.subs {
        subs = append(subs, fn)
    }
    return subs
}

// notify runs outside the lock so subscribers may call back into the
// registry.
func notify(subs []func(Event), events []Event) {
    for _, ev := range events {
        for _, sub := range subs {
            sub(ev)
        }
    }
}
