package echoapi

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/trezcool/proctor/core"
	"github.com/trezcool/proctor/core/relay"
)

const maxMessageSize = 4 << 20 // frames are base64 encoded images

var _ relay.Connection = (*wsConnection)(nil) // interface compliance check

func newUpgrader(origins []string) websocket.Upgrader {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || allowed["*"] || allowed[origin]
		},
	}
}

// wsConnection is a relay.Connection backed by a websocket.
// Outbound messages go through a bounded queue drained by writePump.
type wsConnection struct {
	id        string
	ws        *websocket.Conn
	send      chan relay.Message
	closed    chan struct{}
	closeOnce sync.Once
	conf      core.ServerConfig
}

func newWSConnection(ws *websocket.Conn, conf core.ServerConfig) *wsConnection {
	return &wsConnection{
		id:     uuid.NewString(),
		ws:     ws,
		send:   make(chan relay.Message, conf.SendBuffer),
		closed: make(chan struct{}),
		conf:   conf,
	}
}

func (c *wsConnection) ID() string {
	return c.id
}

// Send drops msg when the queue is full or the connection is closed.
func (c *wsConnection) Send(msg relay.Message) bool {
	select {
	case <-c.closed:
		return false
	default:
	}

	select {
	case c.send <- msg:
		return true
	case <-c.closed:
		return false
	default:
		return false
	}
}

func (c *wsConnection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		err = c.ws.Close()
	})
	return err
}

func (c *wsConnection) writePump() {
	ticker := time.NewTicker(c.conf.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.conf.WriteTimeout))
			if err := c.ws.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.conf.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.closed:
			return
		}
	}
}

// readPump hands every inbound text message to handle, in order, until the connection fails.
func (c *wsConnection) readPump(handle func(data []byte)) {
	c.ws.SetReadLimit(maxMessageSize)
	pongWait := 2 * c.conf.PingInterval
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		kind, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
		handle(data)
	}
}
