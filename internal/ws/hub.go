package ws

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/sellos-taller/dashboard/internal/dashboard"
	"github.com/sellos-taller/dashboard/internal/query"
	"github.com/sellos-taller/dashboard/internal/service"
)

// viewEvent routes a message to one view's room, or to every room when
// View is empty. Change is forwarded to each receiving session.
type viewEvent struct {
	View    query.View
	Message dashboard.Message
	Change  *service.ChangeEvent
}

// Hub maintains the set of live dashboard clients and fans messages out to them
type Hub struct {
	// Registered clients by list view
	rooms map[query.View]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *viewEvent
	done       chan struct{}

	mu     sync.RWMutex
	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		rooms:      make(map[query.View]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *viewEvent, 256),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run starts the hub's main loop and returns when ctx is done, closing every
// client still registered.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for view, clients := range h.rooms {
				for client := range clients {
					client.close()
				}
				delete(h.rooms, view)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.view] == nil {
				h.rooms[client.view] = make(map[*Client]bool)
			}
			h.rooms[client.view][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.dropLocked(client)
			h.mu.Unlock()

		case event := <-h.broadcast:
			h.dispatch(event)
		}
	}
}

func (h *Hub) dispatch(event *viewEvent) {
	message, err := json.Marshal(event.Message)
	if err != nil {
		h.logger.Error("marshal hub event", zap.String("type", event.Message.Type), zap.Error(err))
		return
	}

	h.mu.Lock()
	var receivers []*Client
	for view, clients := range h.rooms {
		if event.View != "" && view != event.View {
			continue
		}
		for client := range clients {
			if !client.deliver(message) {
				// Send buffer full, the client is too slow to keep
				h.logger.Warn("dropping slow dashboard client", zap.String("view", string(view)))
				h.dropLocked(client)
				continue
			}
			receivers = append(receivers, client)
		}
	}
	h.mu.Unlock()

	if event.Change == nil {
		return
	}
	for _, client := range receivers {
		if client.session != nil {
			client.session.HandleChange(*event.Change)
		}
	}
}

func (h *Hub) dropLocked(client *Client) {
	clients, ok := h.rooms[client.view]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}
	delete(clients, client)
	client.close()
	if len(clients) == 0 {
		delete(h.rooms, client.view)
	}
}

// join registers client. It reports false once the hub has stopped.
func (h *Hub) join(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) enqueue(event *viewEvent) {
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("hub broadcast queue full, event dropped", zap.String("type", event.Message.Type))
	}
}

// BroadcastToView sends a message to every client on one list view.
func (h *Hub) BroadcastToView(view query.View, msg dashboard.Message) {
	h.enqueue(&viewEvent{View: view, Message: msg})
}

// NotifyPedidoChanged tells every connected dashboard that a pedido changed.
// Each session refreshes its own list.
func (h *Hub) NotifyPedidoChanged(ev service.ChangeEvent) {
	h.enqueue(&viewEvent{
		Message: dashboard.Message{Type: dashboard.MsgChanged, Payload: ev},
		Change:  &ev,
	})
}

// Clients returns the number of clients on a view.
func (h *Hub) Clients(view query.View) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[view])
}
