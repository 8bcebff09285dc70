// Package reconciler keeps a locally cached, ordered list consistent with a
// remote change feed and with optimistic local mutations.
//
// The list is modelled as a confirmed part (rows the server is known to
// have) plus an optimistic overlay (rows added or hidden locally and not yet
// confirmed). Every input is an Action applied by the pure Reduce function;
// all actions are keyed by row id so duplicated or reordered delivery
// converges to the same state.
package reconciler

import (
	"sort"

	"github.com/scylladb/go-set/strset"
)

type Kind int

const (
	// Loaded replaces the confirmed rows with an initial fetch
	Loaded Kind = iota
	// Inserted is a server insert event
	Inserted
	// Updated is a server update event
	Updated
	// Deleted is a server delete event
	Deleted
	// OptimisticAdd shows a row before the server confirms it
	OptimisticAdd
	// OptimisticRemove hides a row before the server confirms the delete
	OptimisticRemove
	// RollBack discards the optimistic overlay, optionally replacing the confirmed rows with a re-fetch
	RollBack
	// Select changes the selected row
	Select
)

func (k Kind) String() string {
	switch k {
	case Loaded:
		return "loaded"
	case Inserted:
		return "inserted"
	case Updated:
		return "updated"
	case Deleted:
		return "deleted"
	case OptimisticAdd:
		return "optimistic_add"
	case OptimisticRemove:
		return "optimistic_remove"
	case RollBack:
		return "roll_back"
	case Select:
		return "select"
	default:
		return "unknown"
	}
}

type Action[T any] struct {
	Kind Kind
	// Item is the row of Inserted, Updated and OptimisticAdd
	Item T
	// Items are the rows of Loaded, and of RollBack when Replace is set
	Items   []T
	Replace bool
	// ID is the row id of Deleted, OptimisticRemove and Select
	ID string
}

func Load[T any](items []T) Action[T] {
	return Action[T]{Kind: Loaded, Items: items}
}

func Insert[T any](item T) Action[T] {
	return Action[T]{Kind: Inserted, Item: item}
}

func Update[T any](item T) Action[T] {
	return Action[T]{Kind: Updated, Item: item}
}

func Delete[T any](id string) Action[T] {
	return Action[T]{Kind: Deleted, ID: id}
}

func AddOptimistic[T any](item T) Action[T] {
	return Action[T]{Kind: OptimisticAdd, Item: item}
}

func RemoveOptimistic[T any](id string) Action[T] {
	return Action[T]{Kind: OptimisticRemove, ID: id}
}

// Rollback drops the optimistic overlay and replaces the confirmed rows with refetched
func Rollback[T any](refetched []T) Action[T] {
	return Action[T]{Kind: RollBack, Items: refetched, Replace: true}
}

// RestoreConfirmed drops the optimistic overlay and keeps the confirmed rows
func RestoreConfirmed[T any]() Action[T] {
	return Action[T]{Kind: RollBack}
}

func SelectID[T any](id string) Action[T] {
	return Action[T]{Kind: Select, ID: id}
}

// Config describes the rows of one view
type Config[T any] struct {
	// Key returns the row id
	Key func(T) string
	// Less orders the view
	Less func(a, b T) bool
	// FallbackToFirst moves the selection to the first remaining row when the selected row goes away.
	// Otherwise the selection is cleared.
	FallbackToFirst bool
}

// State is an immutable snapshot; Reduce never modifies its input.
type State[T any] struct {
	confirmed  []T
	pending    []T
	hidden     *strset.Set
	tombstones *strset.Set
	selected   string
}

func NewState[T any]() State[T] {
	return State[T]{
		hidden:     strset.New(),
		tombstones: strset.New(),
	}
}

func (s State[T]) clone() State[T] {
	out := State[T]{
		confirmed:  append([]T(nil), s.confirmed...),
		pending:    append([]T(nil), s.pending...),
		hidden:     strset.New(),
		tombstones: strset.New(),
		selected:   s.selected,
	}
	if s.hidden != nil {
		out.hidden = s.hidden.Copy()
	}
	if s.tombstones != nil {
		out.tombstones = s.tombstones.Copy()
	}
	return out
}

// Selected returns the selected row id, or "" when nothing is selected
func (s State[T]) Selected() string {
	return s.selected
}

// Pending reports how many optimistic changes are awaiting confirmation
func (s State[T]) Pending() int {
	n := len(s.pending)
	if s.hidden != nil {
		n += s.hidden.Size()
	}
	return n
}

// Confirmed returns the rows the server is known to have, in view order
func (s State[T]) Confirmed() []T {
	return append([]T(nil), s.confirmed...)
}

// View returns the rows to display: confirmed rows minus hidden ones, with pending rows merged in by cfg.Less.
// Confirmed rows keep their relative positions.
func (s State[T]) View(cfg Config[T]) []T {
	out := make([]T, 0, len(s.confirmed)+len(s.pending))
	for _, item := range s.confirmed {
		if s.hidden != nil && s.hidden.Has(cfg.Key(item)) {
			continue
		}
		out = append(out, item)
	}
	for _, item := range s.pending {
		out = insertSorted(cfg, out, item)
	}
	return out
}

func indexOf[T any](cfg Config[T], items []T, id string) int {
	for i, item := range items {
		if cfg.Key(item) == id {
			return i
		}
	}
	return -1
}

// insertSorted places item after every row that does not sort after it
func insertSorted[T any](cfg Config[T], items []T, item T) []T {
	i := sort.Search(len(items), func(i int) bool {
		return cfg.Less(item, items[i])
	})
	items = append(items, item)
	copy(items[i+1:], items[i:])
	items[i] = item
	return items
}

func removeAt[T any](items []T, i int) []T {
	return append(items[:i], items[i+1:]...)
}

func sortedUnique[T any](cfg Config[T], items []T) []T {
	seen := strset.New()
	out := make([]T, 0, len(items))
	for _, item := range items {
		k := cfg.Key(item)
		if seen.Has(k) {
			continue
		}
		seen.Add(k)
		out = append(out, item)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return cfg.Less(out[i], out[j])
	})
	return out
}

// replaceConfirmed installs an authoritative row set. Pending rows it contains are reconciled,
// and tombstones are cleared since the new rows supersede earlier deletes.
func (s *State[T]) replaceConfirmed(cfg Config[T], items []T) {
	s.confirmed = sortedUnique(cfg, items)
	s.tombstones = strset.New()

	present := strset.New()
	for _, item := range s.confirmed {
		present.Add(cfg.Key(item))
	}
	pending := s.pending[:0]
	for _, item := range s.pending {
		if !present.Has(cfg.Key(item)) {
			pending = append(pending, item)
		}
	}
	s.pending = pending

	for _, id := range s.hidden.List() {
		if !present.Has(id) {
			s.hidden.Remove(id)
		}
	}
}

// Reduce applies a to s and returns the new state
func Reduce[T any](cfg Config[T], s State[T], a Action[T]) State[T] {
	next := s.clone()

	switch a.Kind {
	case Loaded:
		next.replaceConfirmed(cfg, a.Items)

	case Inserted:
		id := cfg.Key(a.Item)
		if next.tombstones.Has(id) || indexOf(cfg, next.confirmed, id) >= 0 {
			return s
		}
		if i := indexOf(cfg, next.pending, id); i >= 0 {
			next.pending = removeAt(next.pending, i)
		}
		next.confirmed = insertSorted(cfg, next.confirmed, a.Item)

	case Updated:
		id := cfg.Key(a.Item)
		if next.tombstones.Has(id) {
			return s
		}
		if i := indexOf(cfg, next.confirmed, id); i >= 0 {
			next.confirmed[i] = a.Item
			break
		}
		if i := indexOf(cfg, next.pending, id); i >= 0 {
			// the server has the row, so the update confirms it
			next.pending = removeAt(next.pending, i)
			next.confirmed = insertSorted(cfg, next.confirmed, a.Item)
			break
		}
		return s

	case Deleted:
		next.tombstones.Add(a.ID)
		next.hidden.Remove(a.ID)
		if i := indexOf(cfg, next.confirmed, a.ID); i >= 0 {
			next.confirmed = removeAt(next.confirmed, i)
		}
		if i := indexOf(cfg, next.pending, a.ID); i >= 0 {
			next.pending = removeAt(next.pending, i)
		}

	case OptimisticAdd:
		id := cfg.Key(a.Item)
		if next.tombstones.Has(id) || indexOf(cfg, next.confirmed, id) >= 0 {
			return s
		}
		if i := indexOf(cfg, next.pending, id); i >= 0 {
			next.pending[i] = a.Item
		} else {
			next.pending = append(next.pending, a.Item)
		}

	case OptimisticRemove:
		if i := indexOf(cfg, next.pending, a.ID); i >= 0 {
			next.pending = removeAt(next.pending, i)
		} else if indexOf(cfg, next.confirmed, a.ID) >= 0 {
			next.hidden.Add(a.ID)
		} else {
			return s
		}

	case RollBack:
		next.pending = nil
		next.hidden = strset.New()
		if a.Replace {
			next.replaceConfirmed(cfg, a.Items)
		}

	case Select:
		next.selected = a.ID

	default:
		return s
	}

	next.fixSelection(cfg)
	return next
}

// fixSelection keeps the selection pointing at a visible row
func (s *State[T]) fixSelection(cfg Config[T]) {
	if s.selected == "" {
		return
	}
	view := s.View(cfg)
	if indexOf(cfg, view, s.selected) >= 0 {
		return
	}
	if cfg.FallbackToFirst && len(view) > 0 {
		s.selected = cfg.Key(view[0])
		return
	}
	s.selected = ""
}
