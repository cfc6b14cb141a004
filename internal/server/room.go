package server

import (
	"log"

	"github.com/roomkit/relay/internal/stats"
	"github.com/roomkit/relay/internal/types"
)

// inboundMessage is one raw frame read off a connection, queued to the
// room it belongs to.
type inboundMessage struct {
	sender *Client
	data   []byte
}

// roomRequest is a plain HTTP request routed through the room loop so
// it observes the same serialized state as the socket traffic.
type roomRequest struct {
	method string
	reply  chan string
}

// Room is one isolated room instance. It runs as a single-goroutine
// actor: joins, leaves, messages and HTTP requests are drained off its
// channels one at a time, so the store and identity ledger are mutated
// without locks. A room's kind is fixed at creation and rooms live
// until process shutdown.
type Room struct {
	id         string
	kind       Kind
	store      Store
	rs         *RelayServer
	joinChan   chan *Client
	leaveChan  chan *Client
	msgChan    chan *inboundMessage
	reqChan    chan *roomRequest
	clients    map[*Client]struct{}
	identities map[string]*types.Identity
	log        *log.Logger
	stats      stats.StatsProvider
	// exit is closed by the relay server during shutdown; done is
	// closed by the room once its loop has drained.
	exit chan struct{}
	done chan struct{}
}

func newRoom(id string, rs *RelayServer, logger *log.Logger, sp stats.StatsProvider) *Room {
	kind := ResolveKind(id)

	return &Room{
		id:         id,
		kind:       kind,
		store:      newStore(kind),
		rs:         rs,
		joinChan:   make(chan *Client, 256),
		leaveChan:  make(chan *Client, 256),
		msgChan:    make(chan *inboundMessage, 256),
		reqChan:    make(chan *roomRequest, 64),
		clients:    make(map[*Client]struct{}),
		identities: make(map[string]*types.Identity),
		log:        logger,
		stats:      sp,
		exit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

func (r *Room) run() {
	r.log.Printf("starting room %q (kind %s)", r.id, r.kind)
	defer close(r.done)

	for {
		select {
		case c := <-r.joinChan:
			r.handleJoin(c)
		case c := <-r.leaveChan:
			r.handleLeave(c)
		case msg := <-r.msgChan:
			r.handleMessage(msg)
		case req := <-r.reqChan:
			r.handleRequest(req)
		case <-r.exit:
			r.log.Printf("room %q is exiting", r.id)
			return
		}
	}
}

// handleJoin registers the connection and sends it the store's
// snapshot. Registration happens first so presence counts seen by the
// snapshot path already include the joiner.
func (r *Room) handleJoin(c *Client) {
	r.clients[c] = struct{}{}
	r.log.Printf("connection %q joined room %q", c.id, r.id)
	r.store.connect(r, c)
}

// handleLeave removes the connection, drops its identity binding and
// runs the store's cleanup broadcast.
func (r *Room) handleLeave(c *Client) {
	if _, ok := r.clients[c]; !ok {
		return
	}

	delete(r.clients, c)
	delete(r.identities, c.id)
	r.log.Printf("connection %q left room %q", c.id, r.id)
	r.store.disconnect(r, c)
}

func (r *Room) handleMessage(msg *inboundMessage) {
	r.stats.Incr(MessagesReceived)
	r.store.message(r, msg.sender, msg.data)
}

func (r *Room) handleRequest(req *roomRequest) {
	req.reply <- r.store.request(r, req.method)
}

// setIdentity binds a display identity to the connection, replacing
// any earlier binding.
func (r *Room) setIdentity(c *Client, ident *types.Identity) {
	r.identities[c.id] = ident
}

func (r *Room) identity(c *Client) (*types.Identity, bool) {
	ident, ok := r.identities[c.id]
	return ident, ok
}

// send queues a message to a single connection.
func (r *Room) send(c *Client, data []byte) {
	if data == nil {
		return
	}

	c.queueMessage(data)
}

// broadcast fans a serialized message out to every connection in the
// room, excluding skip when non-nil. Delivery is best-effort: a client
// whose send queue is full drops the message.
func (r *Room) broadcast(data []byte, skip *Client) {
	if data == nil {
		return
	}

	for c := range r.clients {
		if c == skip {
			continue
		}

		c.queueMessage(data)
	}

	r.stats.Incr(MessagesBroadcast)
}
