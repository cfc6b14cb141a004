package server

// Store is the state owned by one room instance. All four methods are
// called only from the room's run loop, so implementations hold no
// locks. connect runs after the sender is registered, so presence
// counts already include the joiner; disconnect runs after it is
// removed.
type Store interface {
	// connect sends the store's snapshot to a newly joined connection.
	connect(r *Room, c *Client)
	// message applies one inbound message and emits any resulting
	// broadcasts. Malformed, invalid or unrecognized input is dropped
	// without a reply.
	message(r *Room, sender *Client, data []byte)
	// disconnect performs kind-specific cleanup after a connection is
	// removed from the registry.
	disconnect(r *Room, c *Client)
	// request answers a plain HTTP request addressed to the room.
	request(r *Room, method string) string
}

// noopStore backs rooms whose identifier resolves to no kind:
// connections are accepted, messages are ignored.
type noopStore struct{}

func (noopStore) connect(r *Room, c *Client)                {}
func (noopStore) message(r *Room, sender *Client, d []byte) {}
func (noopStore) disconnect(r *Room, c *Client)             {}

func (noopStore) request(r *Room, method string) string { return "ok" }
