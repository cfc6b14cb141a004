package server

import (
	"encoding/json"
)

// documentStore is one collaboratively edited text buffer. Every edit
// replaces content and version wholesale: there is no merge, and the
// last message processed wins.
type documentStore struct {
	content string
	version int
}

type documentEdit struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	Version int    `json:"version"`
}

type documentCursorIn struct {
	Pos      int    `json:"pos"`
	SelStart *int   `json:"selStart,omitempty"`
	SelEnd   *int   `json:"selEnd,omitempty"`
	Name     string `json:"name,omitempty"`
	Color    string `json:"color,omitempty"`
}

type documentCursorOut struct {
	Type     string `json:"type"`
	From     string `json:"from"`
	Pos      int    `json:"pos"`
	SelStart *int   `json:"selStart,omitempty"`
	SelEnd   *int   `json:"selEnd,omitempty"`
	Name     string `json:"name,omitempty"`
	Color    string `json:"color,omitempty"`
}

func (s *documentStore) connect(r *Room, c *Client) {
	r.send(c, r.marshalMessage(documentEdit{Type: "init", Content: s.content, Version: s.version}))
}

func (s *documentStore) message(r *Room, sender *Client, data []byte) {
	var msg envelope
	if err := json.Unmarshal(data, &msg); err != nil {
		r.log.Printf("room %q: drop malformed message: %v", r.id, err)
		return
	}

	switch msg.Type {
	case "identify":
		if ident, ok := parseIdentify(msg.Payload); ok {
			r.setIdentity(sender, ident)
		}
	case "edit":
		var edit documentEdit
		// the client wraps edits in a payload; accept the flat shape too
		raw := []byte(msg.Payload)
		if len(raw) == 0 {
			raw = data
		}
		if err := json.Unmarshal(raw, &edit); err != nil {
			return
		}

		s.content = edit.Content
		s.version = edit.Version
		r.broadcast(r.marshalMessage(documentEdit{Type: "edit", Content: s.content, Version: s.version}), sender)
	case "cursor":
		var cursor documentCursorIn
		raw := []byte(msg.Payload)
		if len(raw) == 0 {
			raw = data
		}
		if err := json.Unmarshal(raw, &cursor); err != nil {
			return
		}

		out := documentCursorOut{
			Type:     "cursor",
			From:     sender.id,
			Pos:      cursor.Pos,
			SelStart: cursor.SelStart,
			SelEnd:   cursor.SelEnd,
			Name:     cursor.Name,
			Color:    cursor.Color,
		}
		if ident, ok := r.identity(sender); ok {
			out.Name = ident.Name
			out.Color = ident.Color
		}
		r.broadcast(r.marshalMessage(out), sender)
	}
}

func (s *documentStore) disconnect(r *Room, c *Client) {}

func (s *documentStore) request(r *Room, method string) string { return "ok" }
