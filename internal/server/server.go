package server

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/roomkit/relay/internal/stats"
)

// Metric names registered with the stats provider.
const (
	ActiveClients     = "ActiveClients"
	ActiveRooms       = "ActiveRooms"
	MessagesReceived  = "MessagesReceived"
	MessagesBroadcast = "MessagesBroadcast"
)

var ErrServerClosed = errors.New("relay server closed")

type joinRequest struct {
	roomId string
	client *Client
	// joined is closed once the client's room pointer is set, so the
	// caller can start the read pump without racing assignment.
	joined chan struct{}
}

type serverRequest struct {
	roomId string
	req    *roomRequest
}

// RelayServer owns the room registry. Rooms spring into existence on
// first contact (socket join or HTTP request) with their kind resolved
// from the room identifier, and live until shutdown; there is no
// separate room-creation API.
type RelayServer struct {
	log         *log.Logger
	stats       stats.StatsProvider
	joinChan    chan *joinRequest
	requestChan chan *serverRequest
	clients     map[*Client]struct{}
	clientsLock sync.Mutex
	rooms       map[string]*Room
	stop        chan struct{}
	done        chan struct{}
}

func NewRelayServer(logger *log.Logger, sp stats.StatsProvider) (*RelayServer, error) {
	sp.RegisterMetric(ActiveClients)
	sp.RegisterMetric(ActiveRooms)
	sp.RegisterMetric(MessagesReceived)
	sp.RegisterMetric(MessagesBroadcast)

	return &RelayServer{
		log:         logger,
		stats:       sp,
		joinChan:    make(chan *joinRequest, 256),
		requestChan: make(chan *serverRequest, 64),
		clients:     make(map[*Client]struct{}),
		rooms:       make(map[string]*Room),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}, nil
}

func (rs *RelayServer) Run() {
	for {
		select {
		case join := <-rs.joinChan:
			room := rs.getOrCreateRoom(join.roomId)
			join.client.room = room
			close(join.joined)
			select {
			case room.joinChan <- join.client:
			default:
				rs.log.Printf("join channel full on room %q", room.id)
			}
		case req := <-rs.requestChan:
			room := rs.getOrCreateRoom(req.roomId)
			select {
			case room.reqChan <- req.req:
			default:
				rs.log.Printf("request channel full on room %q", room.id)
				req.req.reply <- ""
			}
		case <-rs.stop:
			rs.log.Println("shutting down rooms")
			for _, r := range rs.rooms {
				close(r.exit)
				<-r.done
			}

			close(rs.done)
			return
		}
	}
}

// getOrCreateRoom is only called from the run loop; the rooms map has
// no other writers.
func (rs *RelayServer) getOrCreateRoom(id string) *Room {
	if room, ok := rs.rooms[id]; ok {
		return room
	}

	room := newRoom(id, rs, rs.log, rs.stats)
	rs.rooms[id] = room
	rs.stats.Incr(ActiveRooms)
	go room.run()

	return room
}

// Join routes a connection to its room, creating the room on first
// contact.
func (rs *RelayServer) Join(roomId string, c *Client) error {
	jr := &joinRequest{roomId: roomId, client: c, joined: make(chan struct{})}

	select {
	case rs.joinChan <- jr:
	case <-rs.done:
		return ErrServerClosed
	}

	select {
	case <-jr.joined:
		return nil
	case <-rs.done:
		return ErrServerClosed
	}
}

// Request routes a plain HTTP request through the room's loop and
// waits for the textual reply body.
func (rs *RelayServer) Request(roomId, method string) (string, error) {
	req := &roomRequest{method: method, reply: make(chan string, 1)}

	select {
	case rs.requestChan <- &serverRequest{roomId: roomId, req: req}:
	case <-rs.done:
		return "", ErrServerClosed
	}

	select {
	case body := <-req.reply:
		return body, nil
	case <-rs.done:
		return "", ErrServerClosed
	}
}

func (rs *RelayServer) RegisterClient(c *Client) {
	rs.clientsLock.Lock()
	defer rs.clientsLock.Unlock()

	rs.clients[c] = struct{}{}
	rs.stats.Incr(ActiveClients)
}

func (rs *RelayServer) DeregisterClient(c *Client) {
	rs.clientsLock.Lock()
	defer rs.clientsLock.Unlock()

	if _, ok := rs.clients[c]; !ok {
		return
	}

	delete(rs.clients, c)
	rs.stats.Decr(ActiveClients)
}

// Shutdown stops every client pump, drains the room loops and waits
// for the run loop to exit or the context to expire.
func (rs *RelayServer) Shutdown(ctx context.Context) error {
	rs.log.Println("received shutdown signal")

	rs.clientsLock.Lock()
	for c := range rs.clients {
		c.stopClient()
	}
	rs.clientsLock.Unlock()

	close(rs.stop)

	select {
	case <-rs.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
