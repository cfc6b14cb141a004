package server

import (
	"net/http"
	"strconv"
)

// counterStore is a single modular counter, kept deliberately
// primitive: both directions of its socket protocol and its HTTP body
// are the bare decimal value with no JSON envelope.
type counterStore struct {
	count int
}

func (s *counterStore) connect(r *Room, c *Client) {
	r.send(c, []byte(strconv.Itoa(s.count)))
}

func (s *counterStore) message(r *Room, sender *Client, data []byte) {
	if string(data) == "increment" {
		s.increment(r)
	}
}

func (s *counterStore) disconnect(r *Room, c *Client) {}

// request answers the room's HTTP surface: POST increments, GET only
// reads, and both respond with the current value.
func (s *counterStore) request(r *Room, method string) string {
	if method == http.MethodPost {
		s.increment(r)
	}

	return strconv.Itoa(s.count)
}

func (s *counterStore) increment(r *Room) {
	s.count = (s.count + 1) % 100
	r.broadcast([]byte(strconv.Itoa(s.count)), nil)
}
