package server

import (
	"encoding/json"
)

// graphItem is one node or edge: the caller-supplied id plus the
// payload kept opaque, since the server never interprets positional or
// visual fields.
type graphItem struct {
	id  string
	raw json.RawMessage
}

// graphStore holds a diagram's nodes and edges. Mutations are stored;
// select, marquee and cursor traffic is ephemeral and only relayed.
type graphStore struct {
	nodes []graphItem
	edges []graphItem
}

// flowMessage covers every inbound shape of the graph protocol, which
// uses flat envelopes except for the payload-wrapped identify.
type flowMessage struct {
	Type    string            `json:"type"`
	Payload json.RawMessage   `json:"payload,omitempty"`
	Node    json.RawMessage   `json:"node,omitempty"`
	Edge    json.RawMessage   `json:"edge,omitempty"`
	Nodes   []json.RawMessage `json:"nodes,omitempty"`
	Edges   []json.RawMessage `json:"edges,omitempty"`
	Ids     []string          `json:"ids,omitempty"`
	Rect    json.RawMessage   `json:"rect,omitempty"`
	X       float64           `json:"x,omitempty"`
	Y       float64           `json:"y,omitempty"`
	Color   string            `json:"color,omitempty"`
	Name    string            `json:"name,omitempty"`
	Avatar  string            `json:"avatar,omitempty"`
}

type graphInit struct {
	Type  string            `json:"type"`
	Nodes []json.RawMessage `json:"nodes"`
	Edges []json.RawMessage `json:"edges"`
}

type graphSelect struct {
	Type  string   `json:"type"`
	Ids   []string `json:"ids"`
	From  string   `json:"from"`
	Color string   `json:"color,omitempty"`
	Name  string   `json:"name,omitempty"`
}

type graphMarquee struct {
	Type  string          `json:"type"`
	Rect  json.RawMessage `json:"rect"`
	From  string          `json:"from"`
	Color string          `json:"color,omitempty"`
	Name  string          `json:"name,omitempty"`
}

type graphCursor struct {
	Type   string  `json:"type"`
	From   string  `json:"from"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Color  string  `json:"color,omitempty"`
	Name   string  `json:"name,omitempty"`
	Avatar string  `json:"avatar,omitempty"`
}

type graphCursorLeave struct {
	Type string `json:"type"`
	Id   string `json:"id"`
}

func (s *graphStore) connect(r *Room, c *Client) {
	r.send(c, r.marshalMessage(graphInit{
		Type:  "init",
		Nodes: rawItems(s.nodes),
		Edges: rawItems(s.edges),
	}))
}

func (s *graphStore) message(r *Room, sender *Client, data []byte) {
	var msg flowMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		r.log.Printf("room %q: drop malformed message: %v", r.id, err)
		return
	}

	switch msg.Type {
	case "identify":
		if ident, ok := parseIdentify(msg.Payload); ok {
			r.setIdentity(sender, ident)
		}
	case "add-node":
		if item, ok := newGraphItem(msg.Node); ok {
			s.nodes = append(s.nodes, item)
			r.broadcast(data, sender)
		}
	case "update-node":
		item, ok := newGraphItem(msg.Node)
		if !ok {
			return
		}

		// replace-only: an unknown id leaves the collection untouched
		for i := range s.nodes {
			if s.nodes[i].id == item.id {
				s.nodes[i] = item
			}
		}
		r.broadcast(data, sender)
	case "add-edge":
		if item, ok := newGraphItem(msg.Edge); ok {
			s.edges = append(s.edges, item)
			r.broadcast(data, sender)
		}
	case "graph":
		// wholesale replace for batched local edits, last writer wins
		s.nodes = collectGraphItems(msg.Nodes)
		s.edges = collectGraphItems(msg.Edges)
		r.broadcast(data, sender)
	case "reset":
		s.nodes = nil
		s.edges = nil
		r.broadcast(r.marshalMessage(envelope{Type: "reset"}), nil)
	case "select":
		out := graphSelect{Type: "select", Ids: msg.Ids, From: sender.id}
		if ident, ok := r.identity(sender); ok {
			out.Color = ident.Color
			out.Name = ident.Name
		}
		r.broadcast(r.marshalMessage(out), sender)
	case "marquee":
		out := graphMarquee{Type: "marquee", Rect: msg.Rect, From: sender.id}
		if ident, ok := r.identity(sender); ok {
			out.Color = ident.Color
			out.Name = ident.Name
		}
		r.broadcast(r.marshalMessage(out), sender)
	case "cursor":
		out := graphCursor{
			Type:   "cursor",
			From:   sender.id,
			X:      msg.X,
			Y:      msg.Y,
			Color:  msg.Color,
			Name:   msg.Name,
			Avatar: msg.Avatar,
		}
		if ident, ok := r.identity(sender); ok {
			out.Color = ident.Color
			out.Name = ident.Name
			if ident.Avatar != "" {
				out.Avatar = ident.Avatar
			}
		}
		r.broadcast(r.marshalMessage(out), sender)
	}
}

// disconnect tells peers to drop the departed connection's cursor
// overlay.
func (s *graphStore) disconnect(r *Room, c *Client) {
	r.broadcast(r.marshalMessage(graphCursorLeave{Type: "cursor-leave", Id: c.id}), c)
}

func (s *graphStore) request(r *Room, method string) string { return "ok" }

func newGraphItem(raw json.RawMessage) (graphItem, bool) {
	if len(raw) == 0 {
		return graphItem{}, false
	}

	var idField struct {
		Id string `json:"id"`
	}
	if err := json.Unmarshal(raw, &idField); err != nil {
		return graphItem{}, false
	}

	return graphItem{id: idField.Id, raw: raw}, true
}

func collectGraphItems(raws []json.RawMessage) []graphItem {
	var items []graphItem
	for _, raw := range raws {
		if item, ok := newGraphItem(raw); ok {
			items = append(items, item)
		}
	}

	return items
}

func rawItems(items []graphItem) []json.RawMessage {
	raws := make([]json.RawMessage, len(items))
	for i, item := range items {
		raws[i] = item.raw
	}

	return raws
}
