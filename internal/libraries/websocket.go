package libraries

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"chatdesk-backend/internal/models"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// WebSocketMessageType names every frame exchanged over /ws
type WebSocketMessageType string

const (
	WebSocketMessageTypePing               WebSocketMessageType = "ping"
	WebSocketMessageTypePong               WebSocketMessageType = "pong"
	WebSocketMessageTypeError              WebSocketMessageType = "error"
	WebSocketMessageTypeMessage            WebSocketMessageType = "chat_message"
	WebSocketMessageTypeChatResponse       WebSocketMessageType = "chat_response"
	WebSocketMessageTypeChatStarting       WebSocketMessageType = "chat_starting"
	WebSocketMessageTypeChatCompleted      WebSocketMessageType = "chat_completed"
	WebSocketMessageTypeSubscribe          WebSocketMessageType = "subscribe"
	WebSocketMessageTypeSubscribed         WebSocketMessageType = "subscribed"
	WebSocketMessageTypeUnsubscribe        WebSocketMessageType = "unsubscribe"
	WebSocketMessageTypeUnsubscribed       WebSocketMessageType = "unsubscribed"
	WebSocketMessageTypeChange             WebSocketMessageType = "change"
	WebSocketMessageTypeSubscribeDashboard WebSocketMessageType = "subscribe_dashboard"
	WebSocketMessageTypeDashboard          WebSocketMessageType = "dashboard"
)

// LocalsPrincipal is the fiber locals key holding the authenticated *models.Principal
const LocalsPrincipal = "principal"

type Client struct {
	ID        string
	Conn      *websocket.Conn
	Send      chan []byte
	Principal *models.Principal

	mu        sync.Mutex
	closed    bool
	once      sync.Once
	subs      map[string]*Subscription
	dashboard context.CancelFunc
}

type Hub struct {
	Clients    map[string]*Client
	Register   chan *Client
	Unregister chan *Client

	broker *Broker
	quit   chan struct{}
}

type WebSocketMessage struct {
	Type WebSocketMessageType `json:"type"`
	Data interface{}          `json:"data,omitempty"`
}

type ChatMessagePayload struct {
	ChatId    string `json:"chat_id,omitempty"`
	Message   string `json:"message"`
	Model     string `json:"model,omitempty"`
	MessageId string `json:"message_id,omitempty"`
}

type ChatMessageResponsePayload struct {
	ChatId         string      `json:"chat_id"`
	Message        string      `json:"message"`
	HumanMessageId string      `json:"human_message_id,omitempty"`
	AiMessageId    string      `json:"ai_message_id,omitempty"`
	Data           interface{} `json:"data,omitempty"`
}

// ErrorPayload carries the ref of the request that failed, when it had one
type ErrorPayload struct {
	Message string `json:"message"`
	Ref     string `json:"ref,omitempty"`
}

// SubscribePayload asks for change events of a table. Ref is echoed on the reply.
type SubscribePayload struct {
	Ref    string  `json:"ref,omitempty"`
	Table  string  `json:"table"`
	Filter *Filter `json:"filter,omitempty"`
}

type SubscriptionPayload struct {
	Ref            string `json:"ref,omitempty"`
	SubscriptionId string `json:"subscription_id"`
	Table          string `json:"table,omitempty"`
}

type ChangePayload struct {
	SubscriptionId string      `json:"subscription_id"`
	Event          ChangeEvent `json:"event"`
}

// SubscriptionGuard decides whether a principal may watch a table with a filter
type SubscriptionGuard interface {
	AuthorizeSubscription(ctx context.Context, principal *models.Principal, table string, filter *Filter) error
}

// ChatMessageProcessor defines an interface for processing chat messages
type ChatMessageProcessor interface {
	ProcessChatMessage(hub *Hub, client *Client, message *ChatMessagePayload)
}

// DashboardStreamer pushes dashboard snapshots until ctx is cancelled
type DashboardStreamer interface {
	Stream(ctx context.Context, push func(snapshot interface{}))
}

func NewHub(broker *Broker) *Hub {
	return &Hub{
		Clients:    make(map[string]*Client),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		broker:     broker,
		quit:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.Clients[client.ID] = client
		case client := <-h.Unregister:
			if _, exists := h.Clients[client.ID]; exists {
				delete(h.Clients, client.ID)
				h.release(client)
			}
		case <-h.quit:
			for id, client := range h.Clients {
				delete(h.Clients, id)
				h.release(client)
			}
			return
		}
	}
}

func (h *Hub) Stop() {
	close(h.quit)
}

// register hands client to Run. It reports false once the hub has stopped.
func (h *Hub) register(client *Client) bool {
	select {
	case h.Register <- client:
		return true
	case <-h.quit:
		return false
	}
}

// unregister hands client to Run, or releases it directly when Run is gone
func (h *Hub) unregister(client *Client) {
	select {
	case h.Unregister <- client:
	case <-h.quit:
		h.release(client)
	}
}

// release drops every subscription and dashboard stream owned by client and closes its send queue
func (h *Hub) release(client *Client) {
	client.once.Do(func() {
		client.mu.Lock()
		subs := client.subs
		client.subs = nil
		cancel := client.dashboard
		client.dashboard = nil
		client.closed = true
		close(client.Send)
		client.mu.Unlock()

		for id := range subs {
			h.broker.Unsubscribe(id)
		}
		if cancel != nil {
			cancel()
		}
	})
}

// SendMessage queues message for client. Messages to a closed or saturated client are dropped.
func (h *Hub) SendMessage(client *Client, message []byte) {
	client.mu.Lock()
	defer client.mu.Unlock()
	if client.closed {
		return
	}
	select {
	case client.Send <- message:
	default:
		log.Printf("[ws] send queue full for client %s, dropping frame", client.ID)
	}
}

func (h *Hub) sendFrame(client *Client, Type WebSocketMessageType, data interface{}) {
	frame, err := json.Marshal(WebSocketMessage{Type: Type, Data: data})
	if err != nil {
		log.Printf("[ws] failed to marshal %s frame: %v", Type, err)
		return
	}
	h.SendMessage(client, frame)
}

// SendErrorMessage sends a standardized error message to a client
func SendErrorMessage(hub *Hub, client *Client, errorMsg string) {
	hub.sendFrame(client, WebSocketMessageTypeError, &ErrorPayload{Message: errorMsg})
}

// SendEventType sends a frame that only carries a type
func SendEventType(hub *Hub, client *Client, eventType WebSocketMessageType) {
	hub.sendFrame(client, eventType, nil)
}

// SendChatMessageResponse sends a chat message response to a client
func SendChatMessageResponse(hub *Hub, client *Client, Type WebSocketMessageType, message *ChatMessageResponsePayload) {
	hub.sendFrame(client, Type, message)
}

func (h *Hub) subscribe(ctx context.Context, client *Client, guard SubscriptionGuard, payload *SubscribePayload) {
	if payload.Table == "" {
		h.sendFrame(client, WebSocketMessageTypeError, &ErrorPayload{Message: "Table is required", Ref: payload.Ref})
		return
	}
	if err := guard.AuthorizeSubscription(ctx, client.Principal, payload.Table, payload.Filter); err != nil {
		h.sendFrame(client, WebSocketMessageTypeError, &ErrorPayload{Message: err.Error(), Ref: payload.Ref})
		return
	}

	sub := h.broker.Subscribe(payload.Table, payload.Filter, 0)
	client.mu.Lock()
	if client.closed {
		client.mu.Unlock()
		h.broker.Unsubscribe(sub.ID)
		return
	}
	client.subs[sub.ID] = sub
	client.mu.Unlock()

	h.sendFrame(client, WebSocketMessageTypeSubscribed, &SubscriptionPayload{Ref: payload.Ref, SubscriptionId: sub.ID, Table: sub.Table})

	go func() {
		for ev := range sub.C {
			h.sendFrame(client, WebSocketMessageTypeChange, &ChangePayload{SubscriptionId: sub.ID, Event: ev})
		}
	}()
}

func (h *Hub) unsubscribe(client *Client, payload *SubscriptionPayload) {
	id := payload.SubscriptionId
	client.mu.Lock()
	_, owned := client.subs[id]
	delete(client.subs, id)
	client.mu.Unlock()

	if !owned {
		h.sendFrame(client, WebSocketMessageTypeError, &ErrorPayload{Message: "Unknown subscription", Ref: payload.Ref})
		return
	}
	h.broker.Unsubscribe(id)
	h.sendFrame(client, WebSocketMessageTypeUnsubscribed, &SubscriptionPayload{Ref: payload.Ref, SubscriptionId: id})
}

func (h *Hub) streamDashboard(client *Client, streamer DashboardStreamer) {
	if client.Principal == nil || !client.Principal.IsAdmin {
		SendErrorMessage(h, client, "Admin session required")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	client.mu.Lock()
	if client.closed {
		client.mu.Unlock()
		cancel()
		return
	}
	if client.dashboard != nil {
		// a second request restarts the stream
		client.dashboard()
	}
	client.dashboard = cancel
	client.mu.Unlock()

	go streamer.Stream(ctx, func(snapshot interface{}) {
		h.sendFrame(client, WebSocketMessageTypeDashboard, snapshot)
	})
}

// parseWebSocketMessage parses incoming websocket message and returns the message structure
func parseWebSocketMessage(msg []byte) (*WebSocketMessage, error) {
	var rawMessage struct {
		Type WebSocketMessageType `json:"type"`
		Data json.RawMessage      `json:"data,omitempty"`
	}
	if err := json.Unmarshal(msg, &rawMessage); err != nil {
		return nil, err
	}

	message := &WebSocketMessage{
		Type: rawMessage.Type,
	}

	if len(rawMessage.Data) > 0 {
		switch rawMessage.Type {
		case WebSocketMessageTypeMessage:
			var chatPayload ChatMessagePayload
			if err := json.Unmarshal(rawMessage.Data, &chatPayload); err != nil {
				return nil, err
			}
			message.Data = &chatPayload
		case WebSocketMessageTypeSubscribe:
			var subscribePayload SubscribePayload
			if err := json.Unmarshal(rawMessage.Data, &subscribePayload); err != nil {
				return nil, err
			}
			message.Data = &subscribePayload
		case WebSocketMessageTypeUnsubscribe:
			var subscriptionPayload SubscriptionPayload
			if err := json.Unmarshal(rawMessage.Data, &subscriptionPayload); err != nil {
				return nil, err
			}
			message.Data = &subscriptionPayload
		default:
			var data interface{}
			if err := json.Unmarshal(rawMessage.Data, &data); err != nil {
				return nil, err
			}
			message.Data = data
		}
	}

	return message, nil
}

// dispatch routes one parsed frame
func (h *Hub) dispatch(client *Client, message *WebSocketMessage, guard SubscriptionGuard, processor ChatMessageProcessor, dashboard DashboardStreamer) {
	switch message.Type {
	case WebSocketMessageTypePing:
		SendEventType(h, client, WebSocketMessageTypePong)

	case WebSocketMessageTypeMessage:
		chatPayload, ok := message.Data.(*ChatMessagePayload)
		if !ok {
			SendErrorMessage(h, client, "Chat message payload is required")
			return
		}
		if chatPayload.ChatId == "" {
			SendErrorMessage(h, client, "Chat ID is required")
			return
		}
		go processor.ProcessChatMessage(h, client, chatPayload)

	case WebSocketMessageTypeSubscribe:
		subscribePayload, ok := message.Data.(*SubscribePayload)
		if !ok {
			SendErrorMessage(h, client, "Subscribe payload is required")
			return
		}
		h.subscribe(context.Background(), client, guard, subscribePayload)

	case WebSocketMessageTypeUnsubscribe:
		subscriptionPayload, ok := message.Data.(*SubscriptionPayload)
		if !ok || subscriptionPayload.SubscriptionId == "" {
			SendErrorMessage(h, client, "Subscription ID is required")
			return
		}
		h.unsubscribe(client, subscriptionPayload)

	case WebSocketMessageTypeSubscribeDashboard:
		h.streamDashboard(client, dashboard)

	default:
		SendErrorMessage(h, client, "Type is invalid or not provided")
	}
}

func WebSocketHandler(hub *Hub, guard SubscriptionGuard, processor ChatMessageProcessor, dashboard DashboardStreamer) fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		principal, _ := conn.Locals(LocalsPrincipal).(*models.Principal)
		client := &Client{
			ID:        uuid.NewString(),
			Conn:      conn,
			Send:      make(chan []byte, 256),
			Principal: principal,
			subs:      make(map[string]*Subscription),
		}

		if !hub.register(client) {
			return
		}

		// Write loop
		go func() {
			defer conn.Close()
			for msg := range client.Send {
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					log.Println("[ws] write error:", err)
					return
				}
			}
		}()

		// Read loop
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				log.Println("[ws] read error:", err)
				break
			}

			message, err := parseWebSocketMessage(msg)
			if err != nil {
				log.Println("[ws] failed to parse JSON:", err)
				SendErrorMessage(hub, client, "Invalid JSON format")
				continue
			}
			hub.dispatch(client, message, guard, processor, dashboard)
		}

		hub.unregister(client)
	})
}
