package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/sellos-taller/dashboard/internal/auth"
	"github.com/sellos-taller/dashboard/internal/dashboard"
	"github.com/sellos-taller/dashboard/internal/middleware"
	"github.com/sellos-taller/dashboard/internal/query"
	"github.com/sellos-taller/dashboard/internal/service"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum action size allowed from peer; an edit form fits comfortably
	maxMessageSize = 16 << 10

	sendBuffer = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // Origins are not trusted; the JWT is
	},
}

// Session is the per-connection dashboard state a client drives.
// Satisfied by *dashboard.Session.
type Session interface {
	Start()
	Dispatch(a dashboard.Action)
	HandleChange(ev service.ChangeEvent)
	Close()
}

// SessionFactory builds the session for a new connection. publish delivers
// outbound messages to that connection.
type SessionFactory func(view query.View, publish dashboard.Publisher) (Session, error)

// Client represents a single WebSocket connection
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	view    query.View
	session Session
	logger  *zap.Logger

	mu     sync.Mutex
	closed bool
	send   chan []byte
}

func newClient(hub *Hub, view query.View, logger *zap.Logger) *Client {
	return &Client{
		hub:    hub,
		view:   view,
		logger: logger,
		send:   make(chan []byte, sendBuffer),
	}
}

// deliver queues a message without blocking. It reports false when the
// client is closed or its buffer is full.
func (c *Client) deliver(message []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// publish is the session's Publisher. State snapshots are complete, so a
// dropped one is superseded by the next.
func (c *Client) publish(msg dashboard.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("marshal dashboard message", zap.String("type", msg.Type), zap.Error(err))
		return
	}
	if !c.deliver(data) {
		c.logger.Debug("dashboard message dropped", zap.String("type", msg.Type))
	}
}

// ReadPump decodes inbound actions and dispatches them to the session until
// the connection closes. The application runs ReadPump in a per-connection
// goroutine.
func (c *Client) ReadPump() {
	defer func() {
		c.session.Close()
		c.hub.leave(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("websocket read error", zap.Error(err))
			}
			return
		}

		action, err := dashboard.DecodeAction(data)
		if err != nil {
			c.publish(dashboard.Message{
				Type:    dashboard.MsgAlert,
				Payload: dashboard.Alert{Kind: dashboard.AlertInput, Message: err.Error()},
			})
			continue
		}
		c.session.Dispatch(action)
	}
}

// WritePump pumps queued messages to the WebSocket connection
// The application runs WritePump in a per-connection goroutine
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// One JSON document per frame; the browser parses each frame whole
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWS handles live dashboard connections.
// Endpoint: WS /ws/dashboard?view=pedidos|produccion&token=JWT
func ServeWS(hub *Hub, jwtSecret string, newSession SessionFactory, w http.ResponseWriter, r *http.Request) {
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	claims, err := auth.ValidateToken(jwtSecret, tokenStr)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	view, err := query.ParseView(r.URL.Query().Get("view"))
	if err != nil {
		http.Error(w, "invalid view", http.StatusBadRequest)
		return
	}
	if !middleware.ViewAllowed(claims.Role, view) {
		http.Error(w, "view access denied", http.StatusForbidden)
		return
	}

	logger := hub.logger.With(zap.String("operador", claims.Email), zap.String("view", string(view)))
	client := newClient(hub, view, logger)

	session, err := newSession(view, client.publish)
	if err != nil {
		logger.Error("create dashboard session", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	client.session = session

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade", zap.Error(err))
		session.Close()
		return
	}
	client.conn = conn

	if !hub.join(client) {
		session.Close()
		conn.Close()
		return
	}
	session.Start()

	go client.WritePump()
	go client.ReadPump()
}
