package server

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = (pongWait * 9) / 10
	// maxMessageSize leaves room for avatar data URLs and full graph
	// replaces, which are the largest frames the protocol carries.
	maxMessageSize = 1 << 20
)

// Client is one open duplex session bound to a single room instance.
// Its read pump forwards raw frames to the room's loop in arrival
// order; its write pump drains the send queue and keeps the connection
// alive with pings.
type Client struct {
	id   string
	conn *websocket.Conn
	rs   *RelayServer
	room *Room
	log  *log.Logger
	send chan []byte
	stop chan struct{}
	// stopOnce guards stop: both the read pump's cleanup and server
	// shutdown may race to close it.
	stopOnce sync.Once
}

func NewClient(conn *websocket.Conn, rs *RelayServer, l *log.Logger) *Client {
	return &Client{
		id:   uuid.NewString(),
		conn: conn,
		rs:   rs,
		log:  l,
		send: make(chan []byte, 256),
		stop: make(chan struct{}),
	}
}

// Id returns the connection identifier used to tag relayed messages.
func (c *Client) Id() string {
	return c.id
}

func (c *Client) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.log.Printf("connection %q: write exiting", c.id)
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}

			if !c.sendMessage(websocket.TextMessage, msg) {
				return
			}
		case <-c.stop:
			return
		case <-ticker.C:
			if !c.sendMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (c *Client) Read() {
	defer func() {
		c.conn.Close()
		c.cleanup()
		c.log.Printf("connection %q: read exiting", c.id)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(appData string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Printf("ws: read: %v", err)
			}
			break
		}

		if c.room == nil {
			continue
		}

		select {
		case c.room.msgChan <- &inboundMessage{sender: c, data: raw}:
		default:
			c.log.Printf("message channel full for room %q, dropping frame", c.room.id)
		}
	}
}

// queueMessage enqueues a pre-serialized frame for the write pump.
// Delivery is at-most-once: a full queue drops the frame rather than
// stalling the room loop.
func (c *Client) queueMessage(data []byte) bool {
	select {
	case c.send <- data:
	default:
		c.log.Printf("connection %q: send queue full, dropping message", c.id)
		return false
	}

	return true
}

func (c *Client) sendMessage(msgType int, msg []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(msgType, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.Printf("write message: %s", err)
		}
		return false
	}

	return true
}

func (c *Client) stopClient() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Client) cleanup() {
	c.rs.DeregisterClient(c)
	c.leaveRoom()
	c.stopClient()
}

// leaveRoom hands the connection back to its room for deregistration.
// If the room loop has already exited during shutdown, the leave is
// skipped rather than blocking forever.
func (c *Client) leaveRoom() {
	if c.room == nil {
		return
	}

	select {
	case c.room.leaveChan <- c:
	case <-c.room.done:
	}
}
