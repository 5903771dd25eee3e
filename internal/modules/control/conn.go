package control

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Remotes are served from other hosts on the LAN.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// conn is a websocket sink.
type conn struct {
	id   string
	ws   *websocket.Conn
	hub  *Hub
	send chan string
	done chan struct{}
	once sync.Once
}

func (c *conn) ID() string { return c.id }

func (c *conn) Send(text string) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- text:
		return true
	default:
		return false
	}
}

func (c *conn) Close() {
	c.once.Do(func() { close(c.done) })
}

// ServeHTTP upgrades the request and serves the connection until either side
// closes it.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := &conn{
		id:   h.ids.NewID(),
		ws:   ws,
		hub:  h,
		send: make(chan string, h.cfg.SendBuffer),
		done: make(chan struct{}),
	}
	h.Add(c)
	go c.writeLoop(h.cfg.PingInterval)
	c.readLoop(2 * h.cfg.PingInterval)
	h.Remove(c.id)
}

func (c *conn) readLoop(pongWait time.Duration) {
	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Debug("websocket read failed", zap.String("sink", c.id), zap.Error(err))
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
		_ = c.hub.Dispatch(c.id, string(data))
	}
}

func (c *conn) writeLoop(pingInterval time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()
	for {
		select {
		case text := <-c.send:
			if err := c.write(text); err != nil {
				c.Close()
				return
			}
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			c.flush()
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		}
	}
}

// flush writes whatever is still queued; the shutdown notice travels this way.
func (c *conn) flush() {
	for {
		select {
		case text := <-c.send:
			if err := c.write(text); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *conn) write(text string) error {
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.TextMessage, []byte(text))
}
