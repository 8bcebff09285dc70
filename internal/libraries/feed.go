package libraries

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// tables that publish change events
const (
	TableProfiles = "profiles"
	TableChats    = "chats"
	TableMessages = "messages"
	TableSettings = "secrets"
)

const defaultSubscriptionBuffer = 64

// ChangeEvent is a row level notification. New is empty for deletes and Old is empty for inserts.
type ChangeEvent struct {
	Seq             uint64          `json:"seq"`
	Table           string          `json:"table"`
	Type            EventType       `json:"eventType"`
	New             json.RawMessage `json:"new,omitempty"`
	Old             json.RawMessage `json:"old,omitempty"`
	CommitTimestamp time.Time       `json:"commit_timestamp"`
}

// Row returns the row the event is about: the new row, or the old one for deletes.
func (e ChangeEvent) Row() json.RawMessage {
	if e.Type == EventDelete || len(e.New) == 0 {
		return e.Old
	}
	return e.New
}

// Field reads a top level column of the event row as a string.
func (e ChangeEvent) Field(column string) (string, bool) {
	row := e.Row()
	if len(row) == 0 {
		return "", false
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(row, &fields); err != nil {
		return "", false
	}
	return fieldString(fields, column)
}

func fieldString(fields map[string]interface{}, column string) (string, bool) {
	v, ok := fields[column]
	if !ok || v == nil {
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, true
	}
	return fmt.Sprint(v), true
}

// Filter restricts a subscription to rows whose column equals value
type Filter struct {
	Column string `json:"column"`
	Value  string `json:"value"`
}

func (f *Filter) String() string {
	if f == nil {
		return "*"
	}
	return f.Column + "=eq." + f.Value
}

// Subscription receives the events of one table, optionally filtered
type Subscription struct {
	ID     string
	Table  string
	Filter *Filter
	C      <-chan ChangeEvent

	ch chan ChangeEvent
}

// Publisher is what repositories need from the broker
type Publisher interface {
	Publish(ev ChangeEvent)
}

// Broker fans change events out to subscriptions
type Broker struct {
	mu     sync.RWMutex
	subs   map[string]*Subscription
	closed bool
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[string]*Subscription),
	}
}

// Subscribe registers a subscription. A closed broker returns a subscription whose channel is already closed.
func (b *Broker) Subscribe(table string, filter *Filter, buffer int) *Subscription {
	if buffer <= 0 {
		buffer = defaultSubscriptionBuffer
	}
	ch := make(chan ChangeEvent, buffer)
	sub := &Subscription{
		ID:     uuid.NewString(),
		Table:  table,
		Filter: filter,
		C:      ch,
		ch:     ch,
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return sub
	}
	b.subs[sub.ID] = sub
	return sub
}

// Unsubscribe releases a subscription and closes its channel. Returns false if it was already gone.
func (b *Broker) Unsubscribe(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub, ok := b.subs[id]
	if !ok {
		return false
	}
	delete(b.subs, id)
	close(sub.ch)
	return true
}

// Publish delivers ev to every matching subscription without blocking.
// A subscriber with a full buffer misses the event.
func (b *Broker) Publish(ev ChangeEvent) {
	var fields map[string]interface{}
	if row := ev.Row(); len(row) > 0 {
		if err := json.Unmarshal(row, &fields); err != nil {
			log.Printf("[feed] undecodable %s row on %s: %v", ev.Type, ev.Table, err)
		}
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		if sub.Table != ev.Table {
			continue
		}
		if sub.Filter != nil {
			v, ok := fieldString(fields, sub.Filter.Column)
			if !ok || v != sub.Filter.Value {
				continue
			}
		}
		select {
		case sub.ch <- ev:
		default:
			log.Printf("[feed] subscription %s (%s %s) is full, dropping seq %d", sub.ID, sub.Table, sub.Filter, ev.Seq)
		}
	}
}

// Len returns the number of live subscriptions
func (b *Broker) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close releases every subscription; later subscriptions are born closed.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		delete(b.subs, id)
		close(sub.ch)
	}
}
