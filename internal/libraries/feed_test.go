package libraries

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatEvent(t *testing.T, typ EventType, row map[string]string) ChangeEvent {
	raw, err := json.Marshal(row)
	require.NoError(t, err)
	ev := ChangeEvent{Table: TableChats, Type: typ, CommitTimestamp: time.Now()}
	if typ == EventDelete {
		ev.Old = raw
	} else {
		ev.New = raw
	}
	return ev
}

func receive(t *testing.T, sub *Subscription) (ChangeEvent, bool) {
	t.Helper()
	select {
	case ev, ok := <-sub.C:
		return ev, ok
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
		return ChangeEvent{}, false
	}
}

func assertEmpty(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case ev := <-sub.C:
		t.Fatalf("unexpected event %+v", ev)
	default:
	}
}

func TestBrokerFiltersByTableAndColumn(t *testing.T) {
	b := NewBroker()
	defer b.Close()

	all := b.Subscribe(TableChats, nil, 0)
	mine := b.Subscribe(TableChats, &Filter{Column: "user_id", Value: "u1"}, 0)
	messages := b.Subscribe(TableMessages, nil, 0)

	b.Publish(chatEvent(t, EventInsert, map[string]string{"id": "c1", "user_id": "u1"}))
	b.Publish(chatEvent(t, EventInsert, map[string]string{"id": "c2", "user_id": "u2"}))

	ev, _ := receive(t, all)
	assert.Equal(t, EventInsert, ev.Type)
	_, _ = receive(t, all)

	ev, _ = receive(t, mine)
	id, ok := ev.Field("id")
	require.True(t, ok)
	assert.Equal(t, "c1", id)
	assertEmpty(t, mine)
	assertEmpty(t, messages)
}

func TestBrokerMatchesDeletesOnOldRow(t *testing.T) {
	b := NewBroker()
	defer b.Close()

	mine := b.Subscribe(TableChats, &Filter{Column: "user_id", Value: "u1"}, 0)
	b.Publish(chatEvent(t, EventDelete, map[string]string{"id": "c1", "user_id": "u1"}))

	ev, _ := receive(t, mine)
	assert.Equal(t, EventDelete, ev.Type)
	id, _ := ev.Field("id")
	assert.Equal(t, "c1", id)
}

func TestBrokerDropsWhenSubscriberIsFull(t *testing.T) {
	b := NewBroker()
	defer b.Close()

	slow := b.Subscribe(TableChats, nil, 1)
	b.Publish(chatEvent(t, EventInsert, map[string]string{"id": "c1"}))
	b.Publish(chatEvent(t, EventInsert, map[string]string{"id": "c2"}))

	ev, _ := receive(t, slow)
	id, _ := ev.Field("id")
	assert.Equal(t, "c1", id)
	assertEmpty(t, slow)
}

func TestBrokerUnsubscribeAndClose(t *testing.T) {
	b := NewBroker()

	sub := b.Subscribe(TableChats, nil, 0)
	assert.Equal(t, 1, b.Len())
	assert.True(t, b.Unsubscribe(sub.ID))
	assert.False(t, b.Unsubscribe(sub.ID))
	_, ok := <-sub.C
	assert.False(t, ok)

	other := b.Subscribe(TableChats, nil, 0)
	b.Close()
	_, ok = <-other.C
	assert.False(t, ok)
	assert.Equal(t, 0, b.Len())

	late := b.Subscribe(TableChats, nil, 0)
	_, ok = <-late.C
	assert.False(t, ok)
	// publishing after close is a no-op
	b.Publish(chatEvent(t, EventInsert, map[string]string{"id": "c3"}))
}

func TestFilterString(t *testing.T) {
	var f *Filter
	assert.Equal(t, "*", f.String())
	assert.Equal(t, "chat_id=eq.42", (&Filter{Column: "chat_id", Value: "42"}).String())
}

func TestParseWebSocketMessage(t *testing.T) {
	msg, err := parseWebSocketMessage([]byte(`{"type":"subscribe","data":{"ref":"r1","table":"messages","filter":{"column":"chat_id","value":"c1"}}}`))
	require.NoError(t, err)
	payload, ok := msg.Data.(*SubscribePayload)
	require.True(t, ok)
	assert.Equal(t, "r1", payload.Ref)
	assert.Equal(t, TableMessages, payload.Table)
	assert.Equal(t, "c1", payload.Filter.Value)

	msg, err = parseWebSocketMessage([]byte(`{"type":"chat_message","data":{"chat_id":"c1","message":"hi"}}`))
	require.NoError(t, err)
	chat, ok := msg.Data.(*ChatMessagePayload)
	require.True(t, ok)
	assert.Equal(t, "hi", chat.Message)

	msg, err = parseWebSocketMessage([]byte(`{"type":"ping"}`))
	require.NoError(t, err)
	assert.Equal(t, WebSocketMessageTypePing, msg.Type)
	assert.Nil(t, msg.Data)

	_, err = parseWebSocketMessage([]byte(`not json`))
	assert.Error(t, err)
}
