package jam

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Client wraps one websocket subscriber. Inbound frames are drained only to
// service control messages; all mutations arrive over the HTTP API.
type Client struct {
	conn *websocket.Conn
	js   *JamServer
	log  *log.Logger

	sessionMu sync.Mutex
	session   *Session

	send     chan *ServerMessage
	stop     chan struct{}
	stopOnce sync.Once
}

func NewClient(conn *websocket.Conn, js *JamServer, logger *log.Logger) *Client {
	return &Client{
		conn: conn,
		js:   js,
		log:  logger,
		send: make(chan *ServerMessage, 256),
		stop: make(chan struct{}),
	}
}

func (c *Client) setSession(s *Session) {
	c.sessionMu.Lock()
	defer c.sessionMu.Unlock()
	c.session = s
}

func (c *Client) getSession() *Session {
	c.sessionMu.Lock()
	defer c.sessionMu.Unlock()
	return c.session
}

// queueMessage hands a message to the write pump without blocking the
// session loop. Returns false if the client's buffer is full.
func (c *Client) queueMessage(msg *ServerMessage) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) stopClient() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
}

func (c *Client) cleanup() {
	c.stopClient()
	if s := c.getSession(); s != nil {
		select {
		case s.detachChan <- c:
		default:
			c.log.Println("detach channel full, dropping detach")
		}
	}
	c.conn.Close()
}

// Read drains the connection so close and pong frames are processed and a
// dead peer is noticed. Payloads are ignored.
func (c *Client) Read() {
	defer c.cleanup()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Printf("websocket read error: %s", err)
			}
			return
		}
	}
}

func (c *Client) Write() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.cleanup()
	}()

	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				c.log.Printf("websocket write error: %s", err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.stop:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
