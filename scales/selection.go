package scales

import (
	"slices"
	"sync"
)

// Change is delivered to observers whenever the selected scale changes.
// Labels is nil when the name is not in the catalog.
type Change struct {
	Name   string
	Labels []string
}

// Selection tracks the current scale and notifies registered observers.
type Selection struct {
	mu        sync.Mutex
	catalog   *Catalog
	current   Change
	observers []observer
	nextID    int
}

type observer struct {
	id int
	fn func(Change)
}

// NewSelection starts with nothing selected.
func NewSelection(catalog *Catalog) *Selection {
	return &Selection{catalog: catalog}
}

// OnChange registers fn and returns a function that removes it.
func (s *Selection) OnChange(fn func(Change)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.observers = append(s.observers, observer{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.observers = slices.DeleteFunc(s.observers, func(o observer) bool { return o.id == id })
	}
}

// Select makes name current and notifies observers in registration order.
// Observers run on the caller's goroutine after the lock is released and
// must not modify the labels.
func (s *Selection) Select(name string) Change {
	labels, _ := s.catalog.Labels(name)
	change := Change{Name: name, Labels: labels}

	s.mu.Lock()
	s.current = change
	observers := slices.Clone(s.observers)
	s.mu.Unlock()

	for _, o := range observers {
		o.fn(change)
	}
	return change
}

// Current returns the last selected change.
func (s *Selection) Current() Change {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}
