package reconciler

import "sync"

// Store serialises actions from the change feed and from local mutations onto one State
type Store[T any] struct {
	cfg Config[T]

	// notifyMu orders notifications the same way as the state changes
	notifyMu  sync.Mutex
	mu        sync.RWMutex
	state     State[T]
	listeners []func(items []T, selected string)
}

func NewStore[T any](cfg Config[T]) *Store[T] {
	return &Store[T]{
		cfg:   cfg,
		state: NewState[T](),
	}
}

// Dispatch applies a and notifies listeners with the new view.
// Listeners see views in dispatch order and must not call Dispatch themselves.
func (s *Store[T]) Dispatch(a Action[T]) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	s.state = Reduce(s.cfg, s.state, a)
	items := s.state.View(s.cfg)
	selected := s.state.selected
	listeners := append([]func([]T, string){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(items, selected)
	}
}

// OnChange registers fn to run after every dispatched action
func (s *Store[T]) OnChange(fn func(items []T, selected string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Store[T]) Items() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.View(s.cfg)
}

func (s *Store[T]) Get(id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.state.View(s.cfg) {
		if s.cfg.Key(item) == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}

func (s *Store[T]) Len() int {
	return len(s.Items())
}

func (s *Store[T]) Select(id string) {
	s.Dispatch(SelectID[T](id))
}

func (s *Store[T]) Selected() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.selected
}

// Pending reports how many optimistic changes are still unconfirmed
func (s *Store[T]) Pending() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Pending()
}

// State returns the current snapshot
func (s *Store[T]) State() State[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}
