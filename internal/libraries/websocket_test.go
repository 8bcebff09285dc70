package libraries

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(id string) *Client {
	return &Client{
		ID:   id,
		Send: make(chan []byte, 1),
		subs: make(map[string]*Subscription),
	}
}

func TestHubReleasesOnUnregister(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	hub := NewHub(b)
	go hub.Run()
	defer hub.Stop()

	client := newTestClient("c1")
	require.True(t, hub.register(client))
	sub := b.Subscribe(TableChats, nil, 0)
	client.mu.Lock()
	client.subs[sub.ID] = sub
	client.mu.Unlock()

	hub.unregister(client)

	_, ok := <-client.Send
	assert.False(t, ok)
	_, ok = <-sub.C
	assert.False(t, ok)
	assert.Equal(t, 0, b.Len())
}

func TestHubStoppedDoesNotBlockConnections(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	hub := NewHub(b)
	go hub.Run()

	open := newTestClient("open")
	require.True(t, hub.register(open))
	hub.Stop()
	// Run releases what it still holds on the way out
	_, ok := <-open.Send
	require.False(t, ok)

	done := make(chan struct{})
	go func() {
		defer close(done)
		hub.unregister(open)
		assert.False(t, hub.register(newTestClient("late")))
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("hub blocked a connection after it stopped")
	}
}
