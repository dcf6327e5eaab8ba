package sse

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Client is one open event stream. Topics are response or sheet ids.
type Client struct {
	ID     string
	Topics map[uuid.UUID]bool
	Send   chan []byte
}

func NewClient(topics ...uuid.UUID) *Client {
	c := &Client{
		ID:     uuid.NewString(),
		Topics: make(map[uuid.UUID]bool, len(topics)),
		Send:   make(chan []byte, 64),
	}
	for _, t := range topics {
		c.Topics[t] = true
	}
	return c
}

type topicMessage struct {
	Topic uuid.UUID
	Event Event
}

type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan *topicMessage
	done       chan struct{}
	log        logrus.FieldLogger
	mu         sync.RWMutex
}

func NewHub(log logrus.FieldLogger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *topicMessage, 256),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run dispatches until ctx is cancelled, then closes every client stream.
// Clients registered after that are closed immediately.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for id, client := range h.clients {
				close(client.Send)
				delete(h.clients, id)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(client.Send)
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			data, err := json.Marshal(msg.Event)
			if err != nil {
				h.log.WithError(err).WithField("event", msg.Event.Type).Error("failed to encode event")
				continue
			}
			h.mu.RLock()
			for _, client := range h.clients {
				if !client.Topics[msg.Topic] {
					continue
				}
				select {
				case client.Send <- data:
				default:
					// slow reader, drop
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.Send)
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) Subscribe(clientID string, topic uuid.UUID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	client, ok := h.clients[clientID]
	if ok {
		client.Topics[topic] = true
	}
	return ok
}

func (h *Hub) Unsubscribe(clientID string, topic uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if client, ok := h.clients[clientID]; ok {
		delete(client.Topics, topic)
	}
}

// Publish queues an event for subscribers of topic. It never blocks the
// caller; events are dropped when the queue is full.
func (h *Hub) Publish(topic uuid.UUID, event string, payload any) {
	select {
	case h.broadcast <- &topicMessage{Topic: topic, Event: Event{Type: event, Data: payload}}:
	default:
		h.log.WithFields(logrus.Fields{"topic": topic, "event": event}).Warn("event queue full, dropping")
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
