package client

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"chatdesk-backend/internal/dashboard"
	"chatdesk-backend/internal/libraries"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

var ErrStreamClosed = errors.New("stream closed")

// Event is a frame that is not routed to a feed: chat progress, pongs and unmatched errors
type Event struct {
	Type libraries.WebSocketMessageType
	Data json.RawMessage
}

// Error decodes the message of an error frame
func (e Event) Error() string {
	var payload libraries.ErrorPayload
	_ = json.Unmarshal(e.Data, &payload)
	return payload.Message
}

// Stream is one /ws connection. Feeds, dashboard snapshots and events are fed by a single read loop.
type Stream struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan subscribeResult
	feeds   map[string]*Feed

	events    chan Event
	dashboard chan dashboard.Snapshot
	done      chan struct{}
	err       error
}

type subscribeResult struct {
	feed *Feed
	err  error
}

// Feed delivers the change events of one subscription. C is closed once the server confirms
// the unsubscribe or the stream ends.
type Feed struct {
	ID    string
	Table string
	C     <-chan libraries.ChangeEvent

	ch     chan libraries.ChangeEvent
	quit   chan struct{}
	once   sync.Once
	stream *Stream
}

// Dial opens the websocket using the client's session token
func (c *Client) Dial(ctx context.Context) (*Stream, error) {
	u := *c.baseURL
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = u.Path + "/ws"

	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			return nil, errors.Wrapf(err, "dialing %s (%s)", u.String(), resp.Status)
		}
		return nil, errors.Wrapf(err, "dialing %s", u.String())
	}

	s := &Stream{
		conn:      conn,
		pending:   make(map[string]chan subscribeResult),
		feeds:     make(map[string]*Feed),
		events:    make(chan Event, 64),
		dashboard: make(chan dashboard.Snapshot, 1),
		done:      make(chan struct{}),
	}
	go s.readLoop()
	return s, nil
}

// Events returns chat progress frames and errors that belong to no subscription
func (s *Stream) Events() <-chan Event {
	return s.events
}

// Done is closed when the connection ends
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Err reports why the stream ended
func (s *Stream) Err() error {
	<-s.done
	return s.err
}

func (s *Stream) Close() error {
	s.writeMu.Lock()
	_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	s.writeMu.Unlock()
	err := s.conn.Close()
	<-s.done
	return err
}

func (s *Stream) write(msgType libraries.WebSocketMessageType, data interface{}) error {
	frame, err := json.Marshal(libraries.WebSocketMessage{Type: msgType, Data: data})
	if err != nil {
		return errors.Wrapf(err, "encoding %s frame", msgType)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	select {
	case <-s.done:
		return ErrStreamClosed
	default:
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return errors.Wrapf(err, "writing %s frame", msgType)
	}
	return nil
}

// Subscribe starts a change feed for table, optionally restricted by filter
func (s *Stream) Subscribe(ctx context.Context, table string, filter *libraries.Filter) (*Feed, error) {
	ref := uuid.NewString()
	reply := make(chan subscribeResult, 1)
	s.mu.Lock()
	s.pending[ref] = reply
	s.mu.Unlock()
	abandon := func() {
		s.mu.Lock()
		delete(s.pending, ref)
		s.mu.Unlock()
		// a reply may have landed before the ref was dropped
		select {
		case res := <-reply:
			if res.feed != nil {
				_ = res.feed.Close()
			}
		default:
		}
	}

	if err := s.write(libraries.WebSocketMessageTypeSubscribe, &libraries.SubscribePayload{Ref: ref, Table: table, Filter: filter}); err != nil {
		abandon()
		return nil, err
	}

	select {
	case res := <-reply:
		abandon()
		if res.err != nil {
			return nil, errors.Wrapf(res.err, "subscribing to %s", table)
		}
		return res.feed, nil
	case <-ctx.Done():
		abandon()
		return nil, ctx.Err()
	case <-s.done:
		abandon()
		return nil, ErrStreamClosed
	}
}

// Close stops delivery and asks the server to drop the subscription
func (f *Feed) Close() error {
	var err error
	f.once.Do(func() {
		close(f.quit)
		err = f.stream.write(libraries.WebSocketMessageTypeUnsubscribe, &libraries.SubscriptionPayload{SubscriptionId: f.ID})
		if errors.Is(err, ErrStreamClosed) {
			err = nil
		}
	})
	return err
}

// WatchDashboard asks for dashboard snapshots. Only the latest unread snapshot is kept.
func (s *Stream) WatchDashboard() (<-chan dashboard.Snapshot, error) {
	if err := s.write(libraries.WebSocketMessageTypeSubscribeDashboard, nil); err != nil {
		return nil, err
	}
	return s.dashboard, nil
}

// SendChat sends a chat message over the socket; progress arrives on Events
func (s *Stream) SendChat(payload libraries.ChatMessagePayload) error {
	return s.write(libraries.WebSocketMessageTypeMessage, &payload)
}

func (s *Stream) Ping() error {
	return s.write(libraries.WebSocketMessageTypePing, nil)
}

func (s *Stream) readLoop() {
	defer s.shutdown()
	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				s.err = err
			}
			return
		}

		var frame struct {
			Type libraries.WebSocketMessageType `json:"type"`
			Data json.RawMessage                `json:"data,omitempty"`
		}
		if err := json.Unmarshal(msg, &frame); err != nil {
			log.Printf("[client] undecodable frame: %v", err)
			continue
		}
		s.route(frame.Type, frame.Data)
	}
}

func (s *Stream) route(msgType libraries.WebSocketMessageType, data json.RawMessage) {
	switch msgType {
	case libraries.WebSocketMessageTypeSubscribed:
		var payload libraries.SubscriptionPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			log.Printf("[client] bad subscribed frame: %v", err)
			return
		}
		ch := make(chan libraries.ChangeEvent, 256)
		feed := &Feed{ID: payload.SubscriptionId, Table: payload.Table, C: ch, ch: ch, quit: make(chan struct{}), stream: s}
		s.mu.Lock()
		s.feeds[feed.ID] = feed
		reply, waiting := s.pending[payload.Ref]
		if waiting {
			reply <- subscribeResult{feed: feed}
		}
		s.mu.Unlock()
		if !waiting {
			// nobody is waiting any more
			go feed.Close()
		}

	case libraries.WebSocketMessageTypeUnsubscribed:
		var payload libraries.SubscriptionPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			return
		}
		s.mu.Lock()
		feed, ok := s.feeds[payload.SubscriptionId]
		delete(s.feeds, payload.SubscriptionId)
		s.mu.Unlock()
		if ok {
			close(feed.ch)
		}

	case libraries.WebSocketMessageTypeChange:
		var payload libraries.ChangePayload
		if err := json.Unmarshal(data, &payload); err != nil {
			log.Printf("[client] bad change frame: %v", err)
			return
		}
		s.mu.Lock()
		feed, ok := s.feeds[payload.SubscriptionId]
		s.mu.Unlock()
		if !ok {
			return
		}
		select {
		case feed.ch <- payload.Event:
		case <-feed.quit:
		}

	case libraries.WebSocketMessageTypeDashboard:
		var snapshot dashboard.Snapshot
		if err := json.Unmarshal(data, &snapshot); err != nil {
			log.Printf("[client] bad dashboard frame: %v", err)
			return
		}
		select {
		case <-s.dashboard:
		default:
		}
		s.dashboard <- snapshot

	case libraries.WebSocketMessageTypeError:
		var payload libraries.ErrorPayload
		_ = json.Unmarshal(data, &payload)
		if payload.Ref != "" {
			s.mu.Lock()
			reply, waiting := s.pending[payload.Ref]
			if waiting {
				reply <- subscribeResult{err: errors.New(payload.Message)}
			}
			s.mu.Unlock()
			if waiting {
				return
			}
		}
		s.emit(Event{Type: msgType, Data: data})

	default:
		s.emit(Event{Type: msgType, Data: data})
	}
}

func (s *Stream) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
		log.Printf("[client] event queue full, dropping %s", ev.Type)
	}
}

func (s *Stream) shutdown() {
	s.mu.Lock()
	feeds := s.feeds
	s.feeds = map[string]*Feed{}
	s.mu.Unlock()
	for _, feed := range feeds {
		close(feed.ch)
	}
	close(s.dashboard)
	close(s.events)
	close(s.done)
}
